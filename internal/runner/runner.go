// Package runner implements the interactive terminal loop: reading
// user input, streaming agent output, and prompting for permissions.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/charmbracelet/glamour"
	"github.com/chzyer/readline"

	"github.com/mgreenly/nu-agent/internal/agent"
	"github.com/mgreenly/nu-agent/internal/permission"
	"github.com/mgreenly/nu-agent/internal/session"
	"github.com/mgreenly/nu-agent/internal/version"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorRed    = "\033[31m"
)

// Runner handles the stdin/stdout interaction loop.
type Runner struct {
	agent        *agent.Agent
	session      *session.Session
	sessionStore *session.Store
	workDir      string
	model        string
	rl           *readline.Instance
}

// New creates a new Runner.
func New(ag *agent.Agent, workDir, model string, store *session.Store, sess *session.Session) *Runner {
	return &Runner{
		agent:        ag,
		session:      sess,
		sessionStore: store,
		workDir:      workDir,
		model:        model,
	}
}

// Run starts the main interaction loop.
func (r *Runner) Run() error {
	r.printWelcome()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          colorBold + "> " + colorReset,
		HistoryFile:     filepath.Join(os.Getenv("HOME"), ".nu-agent", "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue // Ctrl+C clears line, continue prompting
			}
			if err == io.EOF {
				fmt.Println("Goodbye.")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		lower := strings.ToLower(input)
		if lower == "exit" || lower == "quit" {
			fmt.Println("Goodbye.")
			return nil
		}

		if strings.HasPrefix(input, "/") {
			r.handleSlashCommand(input)
			continue
		}

		if err := r.processInput(input, sigCh); err != nil {
			fmt.Fprintf(os.Stderr, "%sError: %v%s\n", colorRed, err, colorReset)
		}
	}
}

func (r *Runner) processInput(input string, sigCh chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := r.agent.SendMessage(ctx, input)

	fmt.Println() // blank line before response

	var textBuffer strings.Builder

	flushText := func() {
		if textBuffer.Len() > 0 {
			fmt.Print(renderMarkdown(textBuffer.String()))
			fmt.Println()
			textBuffer.Reset()
		}
	}

	for {
		select {
		case <-sigCh:
			cancel()
			flushText()
			fmt.Println(colorYellow + "\n[Cancelled]" + colorReset)
			return nil

		case chunk, ok := <-ch:
			if !ok {
				flushText()
				return nil
			}

			switch chunk.Type {
			case agent.ChunkText:
				textBuffer.WriteString(chunk.Text)

			case agent.ChunkToolUse:
				flushText()
				fmt.Printf("  %s→%s %s\n", colorDim, colorReset, formatToolInfo(chunk.ToolName, chunk.ToolInput))

			case agent.ChunkBatchStart:
				if chunk.BatchSize > 1 {
					fmt.Printf("  %s⚡ running %d tools in parallel%s\n", colorCyan, chunk.BatchSize, colorReset)
				}

			case agent.ChunkToolResult:
				status := colorGreen + "✓" + colorReset
				if chunk.Result != nil && chunk.Result.IsError {
					status = colorRed + "✗" + colorReset
				}
				suffix := ""
				if chunk.Result != nil {
					if lines := countLines(chunk.Result.Output); lines > 0 {
						suffix = fmt.Sprintf(" %s(%d lines)%s", colorDim, lines, colorReset)
					}
				}
				fmt.Printf("  %s %s%s\n", status, chunk.ToolName, suffix)

			case agent.ChunkBatchDone:
				if chunk.BatchSize > 1 {
					fmt.Printf("  %sbatch complete in %s%s\n", colorDim, chunk.Elapsed.Round(time.Millisecond), colorReset)
				}

			case agent.ChunkPermissionRequest:
				flushText()
				permInfo := formatPermissionInfo(chunk.ToolName, chunk.ToolInput)
				prompt := fmt.Sprintf("%sAllow %s%s(%s%s%s)%s? [y/n/a]: %s",
					colorYellow, colorBold, chunk.ToolName, colorDim, permInfo, colorYellow, colorReset, colorReset)
				r.agent.PermResp <- r.readPermissionResponse(prompt)

			case agent.ChunkDone:
				flushText()
				fmt.Println()
				r.saveSession()
				return nil

			case agent.ChunkError:
				flushText()
				r.saveSession()
				if chunk.Err != nil {
					return chunk.Err
				}
				return fmt.Errorf("unknown error")
			}
		}
	}
}

func (r *Runner) handleSlashCommand(input string) {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/metrics", "/usage", "/u":
		r.printMetrics()
	case "/permissions", "/perms", "/p":
		r.handlePermissionsCommand(args)
	case "/help", "/h", "/?":
		r.printHelp()
	default:
		fmt.Printf("%sUnknown command: %s. Type /help for available commands.%s\n", colorRed, cmd, colorReset)
	}
}

func (r *Runner) printHelp() {
	fmt.Println(`
Available commands:
  /metrics, /usage, /u     - Show token usage and spend for this session
  /permissions, /perms, /p - Manage permission rules
    list                   - Show current rules
    add <rule>             - Add a rule, e.g. /p add allow bash go test*
  /help, /h, /?            - Show this help message

  exit, quit               - Close the application`)
}

func (r *Runner) printMetrics() {
	m := r.agent.Metrics()
	fmt.Printf("\n%sSession usage%s\n", colorBold, colorReset)
	fmt.Printf("  input tokens:  %d\n", m.TokensInput)
	fmt.Printf("  output tokens: %d\n", m.TokensOutput)
	fmt.Printf("  tool calls:    %d\n", m.ToolCallCount)
	fmt.Printf("  spend:         $%.4f\n", m.SpendUSD)
	fmt.Printf("  context size:  ~%d tokens\n\n", r.agent.Conversation().TokenCount())
}

func (r *Runner) handlePermissionsCommand(args []string) {
	perms := r.agent.Permissions()

	if len(args) == 0 || strings.EqualFold(args[0], "list") {
		fmt.Println("\nPermission rules:")
		for _, rule := range perms.Rules() {
			fmt.Printf("  %s %s %s\n", rule.Action, rule.Tool, rule.Pattern)
		}
		fmt.Println()
		return
	}

	switch strings.ToLower(args[0]) {
	case "add", "a":
		r.addPermission(perms, args[1:])
	default:
		fmt.Printf("%sUnknown permissions subcommand: %s%s\n", colorRed, args[0], colorReset)
	}
}

func (r *Runner) addPermission(perms *permission.Checker, args []string) {
	if len(args) == 0 {
		fmt.Printf("%sUsage: /permissions add <action> <tool> <pattern>%s\n", colorRed, colorReset)
		return
	}

	ruleStr := strings.Join(args, " ")
	rule, err := permission.ParseRule(ruleStr)
	if err != nil {
		fmt.Printf("%sError parsing rule: %v%s\n", colorRed, err, colorReset)
		return
	}
	perms.AddRule(rule)
	fmt.Printf("Added rule: %s%s%s\n", colorGreen, ruleStr, colorReset)
}

func (r *Runner) readPermissionResponse(prompt string) agent.PermissionResponse {
	oldPrompt := r.rl.Config.Prompt
	r.rl.SetPrompt(prompt)
	defer r.rl.SetPrompt(oldPrompt)

	first := true
	for {
		if !first {
			r.rl.SetPrompt("Please enter y, n, or a: ")
		}
		first = false

		line, err := r.rl.Readline()
		if err != nil {
			return agent.PermissionDenied
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return agent.PermissionGranted
		case "n", "no":
			return agent.PermissionDenied
		case "a", "always":
			return agent.PermissionGrantedAlways
		}
	}
}

func (r *Runner) saveSession() {
	if r.sessionStore == nil || r.session == nil {
		return
	}

	r.session.SetMessages(r.agent.Conversation().Messages())
	r.session.Metrics = r.agent.Metrics()

	if r.session.Title == "" && len(r.session.Messages) > 0 {
		r.session.Title = extractSessionTitle(r.session.Messages)
	}

	_ = r.sessionStore.Save(r.session)
}

func extractSessionTitle(messages []anthropic.MessageParam) string {
	for _, msg := range messages {
		if string(msg.Role) == "user" {
			for _, block := range msg.Content {
				if block.OfText != nil && block.OfText.Text != "" {
					text := block.OfText.Text
					if len(text) > 50 {
						return text[:47] + "..."
					}
					return text
				}
			}
		}
	}
	return "Untitled"
}

var logo = []string{
	"\033[38;5;49m███╗   ██╗██╗   ██╗\033[0m",
	"\033[38;5;43m████╗  ██║██║   ██║\033[0m",
	"\033[38;5;37m██╔██╗ ██║██║   ██║\033[0m",
	"\033[38;5;31m██║╚██╗██║██║   ██║\033[0m",
	"\033[38;5;25m██║ ╚████║╚██████╔╝\033[0m",
	"\033[38;5;25m╚═╝  ╚═══╝ ╚═════╝ \033[0m",
}

func (r *Runner) printWelcome() {
	info := []string{
		"",
		fmt.Sprintf("v%s", version.Version),
		r.model,
		shortenPath(r.workDir),
		"",
		"",
	}

	for i, line := range logo {
		fmt.Printf("%s  %s%s%s\n", line, colorDim, info[i], colorReset)
	}
	fmt.Println()
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}

// shortenFilePath returns the last n components of a path.
func shortenFilePath(path string, components int) string {
	parts := strings.Split(path, string(filepath.Separator))
	if len(parts) <= components {
		return path
	}
	return "…/" + strings.Join(parts[len(parts)-components:], string(filepath.Separator))
}

// formatToolInfo creates a display string for a tool use.
func formatToolInfo(name, input string) string {
	var data map[string]any
	if err := json.Unmarshal([]byte(input), &data); err != nil {
		return name
	}

	pick := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := data[k].(string); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}

	switch name {
	case "bash":
		if cmd, ok := pick("command"); ok {
			if len(cmd) > 60 {
				cmd = cmd[:57] + "..."
			}
			return fmt.Sprintf("%s %s%s%s", name, colorDim, cmd, colorReset)
		}
	case "grep", "glob":
		if pat, ok := pick("pattern"); ok {
			return fmt.Sprintf("%s %s%s%s", name, colorDim, pat, colorReset)
		}
	case "move":
		if src, ok := pick("source_path"); ok {
			return fmt.Sprintf("%s %s%s%s", name, colorDim, shortenFilePath(src, 3), colorReset)
		}
	default:
		if fp, ok := pick("file_path", "path"); ok {
			return fmt.Sprintf("%s %s%s%s", name, colorDim, shortenFilePath(fp, 3), colorReset)
		}
	}

	return name
}

// countLines returns the number of lines in a string.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// markdownRenderer is the glamour renderer for terminal markdown.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithStylePath("tokyo-night"),
		glamour.WithWordWrap(0), // No wrapping - let terminal handle it
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown converts markdown to styled terminal output.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(defaultCodeFenceLanguage(content))
	if err != nil {
		return content
	}
	return strings.TrimSuffix(rendered, "\n")
}

// defaultCodeFenceLanguage labels unlabeled code fences as "text" so
// chroma doesn't misdetect a language and highlight garbage.
func defaultCodeFenceLanguage(content string) string {
	lines := strings.Split(content, "\n")
	inFence := false
	for i, line := range lines {
		if !strings.HasPrefix(line, "```") {
			continue
		}
		if !inFence && strings.TrimSpace(strings.TrimPrefix(line, "```")) == "" {
			lines[i] = "```text"
		}
		inFence = !inFence
	}
	return strings.Join(lines, "\n")
}

// formatPermissionInfo extracts the key info from tool input for the
// permission prompt.
func formatPermissionInfo(toolName, input string) string {
	var data map[string]any
	if err := json.Unmarshal([]byte(input), &data); err != nil {
		if len(input) > 80 {
			return input[:77] + "..."
		}
		return input
	}

	if toolName == "bash" {
		if cmd, ok := data["command"].(string); ok {
			if len(cmd) > 80 {
				return cmd[:77] + "..."
			}
			return cmd
		}
	}
	for _, key := range []string{"file_path", "path", "source_path"} {
		if fp, ok := data[key].(string); ok && fp != "" {
			return fp
		}
	}

	if len(input) > 80 {
		return input[:77] + "..."
	}
	return input
}
