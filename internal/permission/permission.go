// Package permission decides whether a tool call may execute, based on
// configurable rules evaluated before the call is scheduled.
package permission

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Action is the permission decision for a tool call.
type Action int

const (
	// Allow permits the call without prompting.
	Allow Action = iota
	// Deny blocks the call.
	Deny
	// Ask requires user confirmation.
	Ask
)

// String returns the config-file name of the action.
func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// Rule matches tool invocations. Tool may be "*" for any tool; Pattern
// is a glob matched against the call's subject (the command for bash,
// the target path for file tools).
type Rule struct {
	Tool    string
	Pattern string
	Action  Action
}

// Matches reports whether the rule applies to the given tool and
// subject.
func (r *Rule) Matches(toolName, subject string) bool {
	if r.Tool != "*" && r.Tool != toolName {
		return false
	}
	if r.Pattern == "*" {
		return true
	}

	if ok, err := filepath.Match(r.Pattern, subject); err == nil && ok {
		return true
	}

	// Trailing-star patterns also match by prefix, so "git status*"
	// covers "git status --short" even though glob * stops at
	// separators for paths.
	if strings.HasSuffix(r.Pattern, "*") {
		if strings.HasPrefix(subject, strings.TrimSuffix(r.Pattern, "*")) {
			return true
		}
	}

	// File patterns may target just the base name.
	if subject != "" && strings.ContainsRune(subject, '/') {
		if ok, err := filepath.Match(r.Pattern, filepath.Base(subject)); err == nil && ok {
			return true
		}
	}

	return false
}

// specificity scores a rule so more targeted rules win over broad ones.
func (r *Rule) specificity() int {
	score := 0
	if r.Tool != "*" {
		score += 100
	}
	if r.Pattern != "*" {
		score += 50 + len(r.Pattern)
	}
	return score
}

// Checker evaluates permission rules for tool calls.
type Checker struct {
	mu            sync.RWMutex
	rules         []Rule
	sessionAllows map[string]bool
	defaultAction Action
	configPath    string
}

// NewChecker creates a checker with the built-in default rules and an
// Ask default for everything else.
func NewChecker() *Checker {
	c := &Checker{
		sessionAllows: make(map[string]bool),
		defaultAction: Ask,
	}
	c.rules = defaultRules()
	return c
}

func defaultRules() []Rule {
	rules := []Rule{
		{Tool: "read", Pattern: "*", Action: Allow},
		{Tool: "glob", Pattern: "*", Action: Allow},
		{Tool: "grep", Pattern: "*", Action: Allow},
		{Tool: "list_dir", Pattern: "*", Action: Allow},
	}
	// Shell commands that only inspect state.
	for _, cmd := range []string{
		"git status*", "git log*", "git diff*", "git show*", "git branch*",
		"ls*", "pwd*", "cat *", "head *", "tail *", "wc *", "which *",
		"go vet*", "go version*",
	} {
		rules = append(rules, Rule{Tool: "bash", Pattern: cmd, Action: Allow})
	}
	return rules
}

// AddRule appends a rule to the checker.
func (c *Checker) AddRule(r Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, r)
}

// Rules returns a copy of the current rule list.
func (c *Checker) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Check returns the action for a tool call. The most specific matching
// rule wins; session-scoped always-allows take precedence; no match
// falls back to the checker's default.
func (c *Checker) Check(toolName string, input json.RawMessage) Action {
	subject := extractSubject(toolName, input)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.sessionAllows[sessionKey(toolName, subject)] {
		return Allow
	}

	matched := make([]Rule, 0, 4)
	for _, r := range c.rules {
		if r.Matches(toolName, subject) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return c.defaultAction
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].specificity() > matched[j].specificity()
	})
	return matched[0].Action
}

// AllowSession grants the call (and identical future calls) for the
// rest of the session without persisting anything.
func (c *Checker) AllowSession(toolName string, input json.RawMessage) {
	subject := extractSubject(toolName, input)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionAllows[sessionKey(toolName, subject)] = true
}

func sessionKey(toolName, subject string) string {
	return toolName + "\x00" + subject
}

// extractSubject pulls the matchable field out of a tool's input: the
// command for bash, the first path-ish argument for file tools.
func extractSubject(toolName string, input json.RawMessage) string {
	var args map[string]json.RawMessage
	if err := json.Unmarshal(input, &args); err != nil {
		return ""
	}

	keys := []string{"file_path", "path", "source_path", "pattern"}
	if toolName == "bash" {
		keys = []string{"command"}
	}

	for _, key := range keys {
		raw, ok := args[key]
		if !ok {
			continue
		}
		var v string
		if err := json.Unmarshal(raw, &v); err == nil && v != "" {
			return v
		}
	}
	return ""
}
