package config

import (
	stderrors "errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override persisted settings.
const (
	EnvShowUnredacted = "SECRETVAL_SHOW_UNREDACTED"
	EnvLevel          = "SECRETVAL_LEVEL"
	EnvStyle          = "SECRETVAL_STYLE"
)

// LoadDotEnv loads variables from a .env file without overriding ones that
// are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// envLayer collects the overrides present in the environment.
func envLayer(lookup func(string) (string, bool)) map[string]any {
	layer := map[string]any{}
	if v, ok := lookup(EnvShowUnredacted); ok && truthy(v) {
		layer["redaction.show_unredacted"] = true
	}
	if v, ok := lookup(EnvLevel); ok && v != "" {
		layer["security.level"] = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvStyle); ok && v != "" {
		layer["redaction.style"] = strings.ToLower(strings.TrimSpace(v))
	}
	return layer
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
