package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgreenly/nu-agent/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved sessions",
	Long:  `List all saved conversation sessions for the current project.`,
	RunE:  runSessions,
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsRm,
}

func init() {
	sessionsCmd.AddCommand(sessionsRmCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	store, err := session.StoreForWorkDir(workDir)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	summaries, err := store.List()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}

	fmt.Printf("%-10s  %-20s  %-8s  %-9s  %s\n", "ID", "UPDATED", "MESSAGES", "SPEND", "TITLE")
	fmt.Println("────────────────────────────────────────────────────────────────────────────")

	for _, s := range summaries {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		if len(title) > 36 {
			title = title[:33] + "..."
		}
		fmt.Printf("%-10s  %-20s  %-8d  $%-8.4f  %s\n",
			s.ID,
			formatTime(s.UpdatedAt),
			s.MessageCount,
			s.SpendUSD,
			title,
		)
	}

	fmt.Println()
	fmt.Println("Resume a session with: nu --resume <id>")
	fmt.Println("Resume the most recent: nu --resume last")

	return nil
}

func runSessionsRm(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	store, err := session.StoreForWorkDir(workDir)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	if err := store.Delete(args[0]); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
