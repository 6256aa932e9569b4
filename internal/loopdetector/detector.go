// Package loopdetector detects when the agent is stuck repeating the
// same tool calls without making progress.
package loopdetector

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mgreenly/nu-agent/internal/tool"
)

// Default thresholds.
const (
	DefaultMaxRepeatedCalls     = 3 // Same tool+input executed this many times
	DefaultMaxConsecutiveErrors = 5 // Identical error results in a row
)

// Config holds the detection thresholds.
type Config struct {
	MaxRepeatedCalls     int
	MaxConsecutiveErrors int
}

// DefaultConfig returns the default detection configuration.
func DefaultConfig() Config {
	return Config{
		MaxRepeatedCalls:     DefaultMaxRepeatedCalls,
		MaxConsecutiveErrors: DefaultMaxConsecutiveErrors,
	}
}

// Detection is the outcome of a Check.
type Detection struct {
	Detected bool
	Reason   string
}

type record struct {
	name string
	hash string
}

// Detector tracks executed tool calls across rounds of a single user
// request. It is not safe for concurrent use; the orchestrator records
// results serially.
type Detector struct {
	config            Config
	history           []record
	callCounts        map[string]int // hash(tool+input) -> count
	consecutiveErrors int
	lastErrorHash     string
}

// New creates a Detector with the given configuration.
func New(config Config) *Detector {
	return &Detector{
		config:     config,
		callCounts: make(map[string]int),
	}
}

// NewWithDefaults creates a Detector with default configuration.
func NewWithDefaults() *Detector {
	return New(DefaultConfig())
}

// RecordCall records an executed tool call and its result.
func (d *Detector) RecordCall(call tool.ToolCall, result tool.Result) {
	hash := hashCall(call.Name, string(call.Arguments))
	d.history = append(d.history, record{name: call.Name, hash: hash})
	d.callCounts[hash]++

	if result.IsError {
		errHash := hashCall(call.Name, result.Output)
		if errHash == d.lastErrorHash {
			d.consecutiveErrors++
		} else {
			d.consecutiveErrors = 1
			d.lastErrorHash = errHash
		}
	} else {
		d.consecutiveErrors = 0
		d.lastErrorHash = ""
	}
}

// Check evaluates the recorded history and reports whether the agent
// appears stuck.
func (d *Detector) Check() Detection {
	for hash, count := range d.callCounts {
		if count >= d.config.MaxRepeatedCalls {
			return Detection{
				Detected: true,
				Reason:   fmt.Sprintf("tool %q called %d times with identical input", d.toolNameForHash(hash), count),
			}
		}
	}

	if d.consecutiveErrors >= d.config.MaxConsecutiveErrors {
		return Detection{
			Detected: true,
			Reason:   fmt.Sprintf("received %d consecutive identical errors", d.consecutiveErrors),
		}
	}

	return Detection{}
}

// Reset clears all state. Call this when starting a new user request.
func (d *Detector) Reset() {
	d.history = nil
	d.callCounts = make(map[string]int)
	d.consecutiveErrors = 0
	d.lastErrorHash = ""
}

func (d *Detector) toolNameForHash(targetHash string) string {
	for _, r := range d.history {
		if r.hash == targetHash {
			return r.name
		}
	}
	return "unknown"
}

func hashCall(name, input string) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
