package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/systmms/secretval/internal/errors"
)

// layers is everything a configuration is resolved from, lowest first after
// the built-in defaults.
type layers struct {
	doc       map[string]any
	env       map[string]any
	overrides map[string]any
}

// resolve merges the layers through viper and decodes the result. When salt
// is non-nil a hash_salt_ref is resolved into hash_salt.
func resolve(l layers, salt SaltResolver) (*PluginConfig, error) {
	v := viper.New()
	for key, val := range defaultValues {
		v.SetDefault(key, val)
	}
	if l.doc != nil {
		if err := v.MergeConfigMap(l.doc); err != nil {
			return nil, fmt.Errorf("failed to merge persisted configuration: %w", err)
		}
	}
	for _, layer := range []map[string]any{l.env, l.overrides} {
		for _, key := range sortedKeys(layer) {
			v.Set(key, layer[key])
		}
	}

	// Paranoid forbids partial redaction, so its default flips to match.
	if Level(strings.ToLower(v.GetString("security.level"))) == LevelParanoid {
		v.SetDefault("security.allow_partial_redaction", false)
	}

	var cfg PluginConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ConfigError{
			Message:    fmt.Sprintf("could not decode configuration: %v", err),
			Rule:       RuleSchema,
			Suggestion: "Check that every value has the right type",
		}
	}

	p := &cfg.Redaction.Partial
	if salt != nil && p.UseHash && p.HashSaltRef != "" && p.HashSalt == "" {
		resolved, err := salt(p.HashSaltRef)
		if err != nil {
			return nil, errors.ConfigIOError{Op: "resolve salt", Path: p.HashSaltRef, Err: err}
		}
		p.HashSalt = resolved
	}
	return &cfg, nil
}

// checkKeys rejects runtime setting keys that name nothing.
func checkKeys(settings map[string]any) error {
	for _, key := range sortedKeys(settings) {
		if !knownKey(key) {
			return errors.ConfigError{
				Field:      key,
				Rule:       RuleUnknownKey,
				Message:    "unknown configuration key",
				Suggestion: "Run 'secretval config show' to list the available keys",
			}
		}
	}
	return nil
}

func knownKey(key string) bool {
	key = strings.ToLower(key)
	if _, ok := defaultValues[key]; ok {
		return true
	}
	switch key {
	case "redaction.types", "redaction.contexts":
		return true
	}
	for _, prefix := range []string{"redaction.types.", "redaction.contexts."} {
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return true
		}
	}
	return false
}

// flatten renders cfg as dotted keys for change diffs.
func flatten(cfg *PluginConfig) map[string]string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil
	}
	out := map[string]string{}
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, v := range node {
			if sub, ok := v.(map[string]any); ok {
				walk(prefix+k+".", sub)
				continue
			}
			out[prefix+k] = fmt.Sprint(v)
		}
	}
	walk("", tree)
	return out
}

// changedKeys lists the dotted keys whose values differ.
func changedKeys(before, after *PluginConfig) []string {
	a, b := flatten(before), flatten(after)
	var keys []string
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
