// Package logger provides leveled logging for sercha-answers.
// Debug, Info and Warn messages are printed only in verbose mode;
// Error messages are always printed. Credentials are redacted from
// every message before it is written.
package logger

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprint(output, Redact(fmt.Sprintf("[DEBUG] "+format, args...))+"\n")
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprint(output, Redact(fmt.Sprintf("[INFO] "+format, args...))+"\n")
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprint(output, Redact(fmt.Sprintf("[WARN] "+format, args...))+"\n")
	}
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprint(output, Redact(fmt.Sprintf("[ERROR] "+format, args...))+"\n")
}

// RedactedBearer replaces bearer credentials in diagnostics.
const RedactedBearer = "Bearer ***REDACTED***"

var (
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`)
	apiKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{8,}`)
)

// Redact masks bearer tokens and provider API keys in s.
func Redact(s string) string {
	s = bearerPattern.ReplaceAllString(s, RedactedBearer)
	return apiKeyPattern.ReplaceAllString(s, "sk-***REDACTED***")
}
