package logging_test

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/secretval/internal/logging"
)

// captureStderr captures stderr output for testing
func captureStderr(fn func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestSecretRedaction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "secret is redacted", input: "my-secret-password"},
		{name: "empty secret is still redacted", input: ""},
		{name: "complex secret is redacted", input: "password123!@#"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := logging.Secret(tt.input)
			assert.Equal(t, "[REDACTED]", s.String())
			assert.Equal(t, "[REDACTED]", s.GoString())
			assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
			assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
		})
	}
}

// TestLoggerLevels verifies every level writes its marker and message
func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true, true)

	logger.Info("info %s", "message")
	logger.Warn("warn %s", "message")
	logger.Error("error %s", "message")
	logger.Debug("debug %s", "message")

	out := buf.String()
	assert.Contains(t, out, "✓ info message")
	assert.Contains(t, out, "⚠ warn message")
	assert.Contains(t, out, "✗ error message")
	assert.Contains(t, out, "[DEBUG] debug message")
	assert.NotContains(t, out, "\033[", "Should not contain ANSI codes when color disabled")
}

func TestLoggerColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false, false)
	logger.Warn("careful")

	assert.Contains(t, buf.String(), "\033[33m⚠\033[0m careful")
}

// TestDebugModeDisabled verifies debug logs don't appear when debug is off
func TestDebugModeDisabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false, true)
	logger.Debug("This should not appear")

	assert.Empty(t, buf.String(), "Debug message should not appear when debug is disabled")
}

func TestAudit(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false, true)
	logger.Audit("secret.reveal", map[string]string{"kind": "string", "caller": "unwrap"})

	assert.Equal(t, "[AUDIT] secret.reveal caller=unwrap kind=string\n", buf.String())
}

// TestSecretRedactionAcrossLogLevels verifies secrets passed as logging.Secret never reach output
func TestSecretRedactionAcrossLogLevels(t *testing.T) {
	t.Parallel()

	secretValue := "super-secret-password-12345"
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true, true)

	logger.Info("Retrieved secret: %s", logging.Secret(secretValue))
	logger.Warn("Retrieved secret: %v", logging.Secret(secretValue))
	logger.Error("Retrieved secret: %#v", logging.Secret(secretValue))
	logger.Debug("Retrieved secret: %+v", logging.Secret(secretValue))

	out := buf.String()
	assert.NotContains(t, out, secretValue, "Log must not contain actual secret value")
	assert.Equal(t, 4, strings.Count(out, "[REDACTED]"))
}

func TestLoggerConcurrentWrites(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false, true)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("line %d", i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, strings.Count(buf.String(), "\n"))
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logging.Discard().Info("nothing")
}

// TestDefaultWriterIsStderr verifies New() writes to stderr
func TestDefaultWriterIsStderr(t *testing.T) {
	// Note: Cannot use t.Parallel() because captureStderr() modifies global os.Stderr

	logger := logging.New(false, true)

	output := captureStderr(func() {
		logger.Info("Test message")
	})

	assert.Contains(t, output, "✓ Test message")
}

// TestRedactFunction tests the Redact utility function
func TestRedactFunction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "single secret redacted",
			input:    "The password is secret123",
			secrets:  []string{"secret123"},
			expected: "The password is [REDACTED]",
		},
		{
			name:     "no secrets to redact",
			input:    "This has no secrets",
			secrets:  []string{},
			expected: "This has no secrets",
		},
		{
			name:     "short secret ignored",
			input:    "Short secret: ab",
			secrets:  []string{"ab"},
			expected: "Short secret: ab", // Too short to redact
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, logging.Redact(tt.input, tt.secrets))
		})
	}
}
