// Package cmd wires the CLI entry points together.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgreenly/nu-agent/internal/agent"
	"github.com/mgreenly/nu-agent/internal/config"
	"github.com/mgreenly/nu-agent/internal/llm"
	"github.com/mgreenly/nu-agent/internal/logging"
	"github.com/mgreenly/nu-agent/internal/permission"
	"github.com/mgreenly/nu-agent/internal/runner"
	"github.com/mgreenly/nu-agent/internal/session"
	"github.com/mgreenly/nu-agent/internal/tool"
	"github.com/mgreenly/nu-agent/internal/version"
)

var (
	resumeID  string
	maxRounds int
)

var rootCmd = &cobra.Command{
	Use:     "nu",
	Short:   "A coding agent with parallel tool execution",
	Version: version.Version,
	RunE:    runInteractive,
}

func init() {
	rootCmd.Flags().StringVar(&resumeID, "resume", "", "resume a saved session by ID, or \"last\" for the most recent")
	rootCmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "cap LLM round-trips per request (0 uses the config default)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInteractive(cmd *cobra.Command, args []string) error {
	logger, cleanup, err := logging.Setup()
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer func() {
		if cerr := cleanup(); cerr != nil {
			fmt.Fprintf(os.Stderr, "closing log file: %v\n", cerr)
		}
	}()

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if maxRounds > 0 {
		cfg.MaxRounds = maxRounds
	}

	logger.Info("starting nu", "work_dir", workDir, "max_rounds", cfg.MaxRounds)

	registry := tool.NewRegistry()
	if err := tool.RegisterBuiltins(registry, workDir); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	perms, err := permission.NewCheckerWithConfig(workDir)
	if err != nil {
		return fmt.Errorf("setting up permissions: %w", err)
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return errors.New("ANTHROPIC_API_KEY environment variable is not set. " +
			"Get an API key at https://console.anthropic.com/ and export it:\n\n" +
			"  export ANTHROPIC_API_KEY=sk-ant-...")
	}

	client := llm.NewAnthropicClient(cfg.Model)

	store, err := session.StoreForWorkDir(workDir)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	sess, err := resolveSession(store)
	if err != nil {
		return err
	}

	ag := agent.New(client, registry, perms, workDir, cfg.MaxRounds, logger)
	if len(sess.Messages) > 0 {
		ag.Conversation().SetMessages(sess.Messages)
		ag.RestoreMetrics(sess.Metrics)
		fmt.Printf("Resumed session %s (%d messages)\n", sess.ID, sess.MessageCount())
	}

	return runner.New(ag, workDir, client.Model(), store, sess).Run()
}

// resolveSession loads the requested session or creates a fresh one.
func resolveSession(store *session.Store) (*session.Session, error) {
	if resumeID == "" {
		sess, err := session.NewSession()
		if err != nil {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		return sess, nil
	}

	if resumeID == "last" {
		sess, err := store.MostRecent()
		if err != nil {
			return nil, fmt.Errorf("loading most recent session: %w", err)
		}
		if sess == nil {
			return nil, errors.New("no saved sessions to resume")
		}
		return sess, nil
	}

	sess, err := store.Load(resumeID)
	if err != nil {
		return nil, fmt.Errorf("resuming session: %w", err)
	}
	return sess, nil
}
