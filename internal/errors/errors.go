package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError reports a configuration that was rejected. Rule names the
// invariant that was violated so callers can match on it.
type ConfigError struct {
	Field      string
	Rule       string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message
	if e.Rule != "" {
		msg += fmt.Sprintf(" [%s]", e.Rule)
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ConfigIOError wraps a failure to read or write persisted configuration.
type ConfigIOError struct {
	Op   string
	Path string
	Err  error
}

func (e ConfigIOError) Error() string {
	return fmt.Sprintf("failed to %s configuration %s: %v", e.Op, e.Path, e.Err)
}

func (e ConfigIOError) Unwrap() error {
	return e.Err
}

// IsRule reports whether err is a ConfigError for the given rule.
func IsRule(err error, rule string) bool {
	var ce ConfigError
	return errors.As(err, &ce) && ce.Rule == rule
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var ue UserError
	if errors.As(err, &ue) {
		return err
	}
	var ce ConfigError
	if errors.As(err, &ce) {
		return ce
	}

	var ioe ConfigIOError
	if errors.As(err, &ioe) {
		switch {
		case errors.Is(ioe.Err, fs.ErrPermission):
			return UserError{
				Message:    "Permission denied",
				Details:    ioe.Path,
				Suggestion: "Check file permissions or run with appropriate privileges",
				Err:        err,
			}
		case errors.Is(ioe.Err, fs.ErrNotExist):
			return UserError{
				Message:    "Configuration file not found",
				Details:    ioe.Path,
				Suggestion: "Verify the path exists, or run 'secretval config export <path>' to create one",
				Err:        err,
			}
		}
		return UserError{
			Message:    fmt.Sprintf("Configuration %s failed", ioe.Op),
			Details:    ioe.Err.Error(),
			Suggestion: "Check the file syntax; 'secretval config validate <path>' reports the exact problem",
			Err:        err,
		}
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "toml:") {
		return ConfigError{
			Message:    "Invalid TOML format",
			Suggestion: "Check for unquoted strings and duplicate keys",
		}
	}

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "json:") || strings.Contains(errStr, "invalid character") {
		return UserError{
			Message:    "Invalid JSON input",
			Suggestion: "Values are read from stdin as JSON, for example: echo '\"my-token\"' | secretval wrap",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}
