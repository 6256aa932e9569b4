package permission

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of a permissions file. Each rule is a
// single line: "<action> <tool> <pattern>", where the pattern may
// contain spaces (e.g. "allow bash git status*").
type Config struct {
	Rules []string `yaml:"rules"`
}

// ConfigPath returns the permissions file location for a work dir.
func ConfigPath(workDir string) string {
	return filepath.Join(workDir, ".nu-agent", "permissions.yaml")
}

// NewCheckerWithConfig creates a checker with default rules plus any
// rules found in the work dir's permissions file. A missing file is
// not an error.
func NewCheckerWithConfig(workDir string) (*Checker, error) {
	c := NewChecker()
	c.configPath = ConfigPath(workDir)

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading permissions file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing permissions file: %w", err)
	}

	for _, line := range cfg.Rules {
		rule, err := ParseRule(line)
		if err != nil {
			return nil, fmt.Errorf("permissions file: %w", err)
		}
		c.AddRule(rule)
	}
	return c, nil
}

// ParseRule parses a "<action> <tool> <pattern>" rule line.
func ParseRule(line string) (Rule, error) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if len(parts) < 3 {
		return Rule{}, fmt.Errorf("invalid rule %q, want \"<action> <tool> <pattern>\"", line)
	}

	action, err := parseAction(parts[0])
	if err != nil {
		return Rule{}, fmt.Errorf("invalid rule %q: %w", line, err)
	}

	return Rule{Tool: parts[1], Pattern: parts[2], Action: action}, nil
}

func parseAction(s string) (Action, error) {
	switch s {
	case "allow":
		return Allow, nil
	case "deny":
		return Deny, nil
	case "ask":
		return Ask, nil
	default:
		return Ask, fmt.Errorf("unknown action %q, must be allow, deny, or ask", s)
	}
}

// AllowAlways grants the call for this session and appends a matching
// allow rule to the permissions file so it survives restarts.
func (c *Checker) AllowAlways(toolName string, input []byte) error {
	subject := extractSubject(toolName, input)
	pattern := subject
	if pattern == "" {
		pattern = "*"
	}
	rule := Rule{Tool: toolName, Pattern: pattern, Action: Allow}

	c.mu.Lock()
	c.rules = append(c.rules, rule)
	c.sessionAllows[sessionKey(toolName, subject)] = true
	path := c.configPath
	c.mu.Unlock()

	if path == "" {
		return nil // session-only checker, nothing to persist
	}
	return appendRule(path, rule)
}

func appendRule(path string, rule Rule) error {
	var cfg Config
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing permissions file: %w", err)
		}
	}

	cfg.Rules = append(cfg.Rules, fmt.Sprintf("%s %s %s", rule.Action, rule.Tool, rule.Pattern))

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshaling permissions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing permissions file: %w", err)
	}
	return nil
}
