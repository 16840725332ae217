package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// Logger provides structured logging with redaction support
type Logger struct {
	debug   bool
	noColor bool

	mu  sync.Mutex
	out io.Writer
}

// New creates a new logger instance writing to stderr
func New(debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
	}
}

// NewWithWriter creates a logger that writes to w instead of stderr
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		out:     w,
	}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewWithWriter(io.Discard, false, true)
}

func (l *Logger) writer() io.Writer {
	if l.out != nil {
		return l.out
	}
	return os.Stderr
}

func (l *Logger) emit(color, marker, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.noColor {
		fmt.Fprintf(l.writer(), "\033[%sm%s\033[0m %s\n", color, marker, msg)
	} else {
		fmt.Fprintf(l.writer(), "%s %s\n", marker, msg)
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit("32", "✓", fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit("33", "⚠", fmt.Sprintf(format, args...))
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit("31", "✗", fmt.Sprintf(format, args...))
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit("36", "[DEBUG]", fmt.Sprintf(format, args...))
}

// Audit records a security-relevant event such as a secret being revealed
// or the configuration changing. Audit lines are always written, regardless
// of debug mode, and must never carry secret content.
func (l *Logger) Audit(event string, fields map[string]string) {
	var sb strings.Builder
	sb.WriteString(event)
	for _, k := range sortedKeys(fields) {
		fmt.Fprintf(&sb, " %s=%s", k, fields[k])
	}
	l.emit("35", "[AUDIT]", sb.String())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Secret is a string that formats as a placeholder under every verb. Wrap
// configuration material such as a hash salt in it before passing it to a
// log call.
type Secret string

const placeholder = "[REDACTED]"

func (s Secret) String() string   { return placeholder }
func (s Secret) GoString() string { return placeholder }

// Redact replaces every occurrence of the given values in s. Values of three
// bytes or fewer are left alone, since replacing them would mangle ordinary
// text.
func Redact(s string, values []string) string {
	for _, v := range values {
		if len(v) > 3 {
			s = strings.ReplaceAll(s, v, placeholder)
		}
	}
	return s
}
