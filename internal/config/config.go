package config

import (
	"fmt"
	"sort"

	"github.com/systmms/secretval/internal/hostval"
	"github.com/systmms/secretval/internal/partial"
	"github.com/systmms/secretval/internal/template"
)

// CurrentVersion is the only persisted document version understood.
const CurrentVersion = 1

// Level is the security posture. Higher levels forbid more.
type Level string

const (
	LevelMinimal  Level = "minimal"
	LevelStandard Level = "standard"
	LevelParanoid Level = "paranoid"
)

// Levels lists the security levels in increasing strictness.
var Levels = []Level{LevelMinimal, LevelStandard, LevelParanoid}

// Style selects the preset used as the default redaction template.
type Style string

const (
	StyleSimple Style = "simple"
	StyleTyped  Style = "typed"
	StyleMasked Style = "masked"
	StyleCustom Style = "custom"
)

// Styles lists the known redaction styles.
var Styles = []Style{StyleSimple, StyleTyped, StyleMasked, StyleCustom}

// StylePresets maps every non-custom style to its template text.
var StylePresets = map[Style]string{
	StyleSimple: "<redacted>",
	StyleTyped:  "<redacted:{{secret_type}}>",
	StyleMasked: "{{replicate(character='*', length=secret_length)}}",
}

// Occasion is the kind of presentation a render is for.
type Occasion string

const (
	OccasionDisplay Occasion = "display"
	OccasionDebug   Occasion = "debug"
	OccasionLog     Occasion = "log"
)

// Occasions lists the render occasions.
var Occasions = []Occasion{OccasionDisplay, OccasionDebug, OccasionLog}

// ParseOccasion parses a render occasion name.
func ParseOccasion(s string) (Occasion, error) {
	for _, o := range Occasions {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown occasion %q (expected display, debug or log)", s)
}

// PluginConfig is the complete effective configuration.
type PluginConfig struct {
	Version   int             `mapstructure:"version" toml:"version" yaml:"version" json:"version"`
	Redaction RedactionConfig `mapstructure:"redaction" toml:"redaction" yaml:"redaction" json:"redaction"`
	Security  SecurityConfig  `mapstructure:"security" toml:"security" yaml:"security" json:"security"`

	// Revision identifies the swap that installed this configuration.
	Revision string `mapstructure:"-" toml:"-" yaml:"-" json:"-"`

	compiled *compiledTemplates
}

// RedactionConfig controls how secrets are shown.
type RedactionConfig struct {
	Style             Style                  `mapstructure:"style" toml:"style" yaml:"style" json:"style"`
	Template          string                 `mapstructure:"template" toml:"template,omitempty" yaml:"template,omitempty" json:"template,omitempty"`
	Types             map[string]string      `mapstructure:"types" toml:"types,omitempty" yaml:"types,omitempty" json:"types,omitempty"`
	Contexts          map[string]string      `mapstructure:"contexts" toml:"contexts,omitempty" yaml:"contexts,omitempty" json:"contexts,omitempty"`
	ShowUnredacted    bool                   `mapstructure:"show_unredacted" toml:"show_unredacted" yaml:"show_unredacted" json:"show_unredacted"`
	MaskSecret        bool                   `mapstructure:"mask_secret" toml:"mask_secret" yaml:"mask_secret" json:"mask_secret"`
	AllowSecretString bool                   `mapstructure:"allow_secret_string" toml:"allow_secret_string" yaml:"allow_secret_string" json:"allow_secret_string"`
	Partial           PartialRedactionConfig `mapstructure:"partial" toml:"partial" yaml:"partial" json:"partial"`
}

// PartialRedactionConfig controls partial reveal of text secrets.
type PartialRedactionConfig struct {
	Enabled     bool   `mapstructure:"enabled" toml:"enabled" yaml:"enabled" json:"enabled"`
	ShowFirst   int    `mapstructure:"show_first" toml:"show_first" yaml:"show_first" json:"show_first"`
	ShowLast    int    `mapstructure:"show_last" toml:"show_last" yaml:"show_last" json:"show_last"`
	MinLength   int    `mapstructure:"min_length" toml:"min_length" yaml:"min_length" json:"min_length"`
	MaxReveal   int    `mapstructure:"max_reveal" toml:"max_reveal" yaml:"max_reveal" json:"max_reveal"`
	MaskChar    string `mapstructure:"mask_char" toml:"mask_char" yaml:"mask_char" json:"mask_char"`
	UseHash     bool   `mapstructure:"use_hash" toml:"use_hash" yaml:"use_hash" json:"use_hash"`
	HashSalt    string `mapstructure:"hash_salt" toml:"hash_salt,omitempty" yaml:"hash_salt,omitempty" json:"hash_salt,omitempty"`
	HashSaltRef string `mapstructure:"hash_salt_ref" toml:"hash_salt_ref,omitempty" yaml:"hash_salt_ref,omitempty" json:"hash_salt_ref,omitempty"`
	HashLength  int    `mapstructure:"hash_length" toml:"hash_length" yaml:"hash_length" json:"hash_length"`
}

// SecurityConfig bounds what the redaction settings may do.
type SecurityConfig struct {
	Level                     Level `mapstructure:"level" toml:"level" yaml:"level" json:"level"`
	AuditConfigChanges        bool  `mapstructure:"audit_config_changes" toml:"audit_config_changes" yaml:"audit_config_changes" json:"audit_config_changes"`
	MaxCustomTextLength       int   `mapstructure:"max_custom_text_length" toml:"max_custom_text_length" yaml:"max_custom_text_length" json:"max_custom_text_length"`
	AllowPartialRedaction     bool  `mapstructure:"allow_partial_redaction" toml:"allow_partial_redaction" yaml:"allow_partial_redaction" json:"allow_partial_redaction"`
	MinPartialRedactionLength int   `mapstructure:"min_partial_redaction_length" toml:"min_partial_redaction_length" yaml:"min_partial_redaction_length" json:"min_partial_redaction_length"`
}

type compiledTemplates struct {
	def      *template.Template
	types    map[hostval.Kind]*template.Template
	contexts map[Occasion]*template.Template
}

// defaultValues is the built-in layer, keyed by dotted path.
var defaultValues = map[string]any{
	"version":                               CurrentVersion,
	"redaction.style":                       string(StyleTyped),
	"redaction.template":                    "",
	"redaction.show_unredacted":             false,
	"redaction.mask_secret":                 false,
	"redaction.allow_secret_string":         false,
	"redaction.partial.enabled":             false,
	"redaction.partial.show_first":          2,
	"redaction.partial.show_last":           2,
	"redaction.partial.min_length":          8,
	"redaction.partial.max_reveal":          8,
	"redaction.partial.mask_char":           "*",
	"redaction.partial.use_hash":            false,
	"redaction.partial.hash_salt":           "",
	"redaction.partial.hash_salt_ref":       "",
	"redaction.partial.hash_length":         12,
	"security.level":                        string(LevelStandard),
	"security.audit_config_changes":         true,
	"security.max_custom_text_length":       256,
	"security.allow_partial_redaction":      true,
	"security.min_partial_redaction_length": 8,
}

// Defaults returns the built-in configuration, ready for rendering.
func Defaults() *PluginConfig {
	cfg := &PluginConfig{
		Version: CurrentVersion,
		Redaction: RedactionConfig{
			Style: StyleTyped,
			Partial: PartialRedactionConfig{
				ShowFirst:  2,
				ShowLast:   2,
				MinLength:  8,
				MaxReveal:  8,
				MaskChar:   "*",
				HashLength: 12,
			},
		},
		Security: SecurityConfig{
			Level:                     LevelStandard,
			AuditConfigChanges:        true,
			MaxCustomTextLength:       256,
			AllowPartialRedaction:     true,
			MinPartialRedactionLength: 8,
		},
	}
	compiled, err := compile(cfg)
	if err != nil {
		panic(fmt.Sprintf("built-in configuration is invalid: %v", err))
	}
	cfg.compiled = compiled
	return cfg
}

// Clone returns a deep copy. Compiled templates are shared since they are
// immutable.
func (c *PluginConfig) Clone() *PluginConfig {
	out := *c
	out.Redaction.Types = cloneMap(c.Redaction.Types)
	out.Redaction.Contexts = cloneMap(c.Redaction.Contexts)
	return &out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DefaultTemplateText returns the template text the style selects.
func (c *PluginConfig) DefaultTemplateText() string {
	if c.Redaction.Style == StyleCustom {
		return c.Redaction.Template
	}
	if text, ok := StylePresets[c.Redaction.Style]; ok {
		return text
	}
	return StylePresets[StyleTyped]
}

// DefaultTemplate returns the compiled default template.
func (c *PluginConfig) DefaultTemplate() *template.Template {
	if c.compiled != nil {
		return c.compiled.def
	}
	return fallbackTemplate
}

// TypeTemplate returns the per-kind override, if any.
func (c *PluginConfig) TypeTemplate(k hostval.Kind) (*template.Template, bool) {
	if c.compiled == nil {
		return nil, false
	}
	t, ok := c.compiled.types[k]
	return t, ok
}

// ContextTemplate returns the per-occasion override, if any.
func (c *PluginConfig) ContextTemplate(o Occasion) (*template.Template, bool) {
	if c.compiled == nil {
		return nil, false
	}
	t, ok := c.compiled.contexts[o]
	return t, ok
}

// PartialActive reports whether partial redaction may be used for renders.
func (c *PluginConfig) PartialActive() bool {
	return c.Redaction.Partial.Enabled &&
		c.Security.AllowPartialRedaction &&
		c.Security.Level != LevelParanoid
}

// LengthVisible reports whether templates may see secret_length.
func (c *PluginConfig) LengthVisible() bool {
	return !c.Redaction.MaskSecret && c.Security.Level != LevelParanoid
}

// BlindLengthTemplates names the configured templates that read
// secret_length while it is hidden. They render the length as empty.
func (c *PluginConfig) BlindLengthTemplates() []string {
	if c.LengthVisible() || c.compiled == nil {
		return nil
	}
	var names []string
	if c.compiled.def.UsesSecretLength() {
		names = append(names, "default")
	}
	for k, t := range c.compiled.types {
		if t.UsesSecretLength() {
			names = append(names, "types."+k.String())
		}
	}
	for o, t := range c.compiled.contexts {
		if t.UsesSecretLength() {
			names = append(names, "contexts."+string(o))
		}
	}
	sort.Strings(names)
	return names
}

// SecretStringAllowed reports whether templates may read the plaintext.
func (c *PluginConfig) SecretStringAllowed() bool {
	if c.Security.Level == LevelParanoid {
		return false
	}
	return c.Redaction.ShowUnredacted || c.Redaction.AllowSecretString
}

// ShowUnredacted reports whether renders should print plaintext.
func (c *PluginConfig) ShowUnredacted() bool {
	return c.Redaction.ShowUnredacted && c.Security.Level != LevelParanoid
}

// PartialOptions converts the partial section for the partial package.
func (c *PluginConfig) PartialOptions() partial.Options {
	p := c.Redaction.Partial
	return partial.Options{
		ShowFirst:  p.ShowFirst,
		ShowLast:   p.ShowLast,
		MinLength:  p.MinLength,
		MaskChar:   p.MaskChar,
		UseHash:    p.UseHash,
		HashSalt:   p.HashSalt,
		HashLength: p.HashLength,
	}
}

var fallbackTemplate = template.MustCompile(StylePresets[StyleTyped])

// Redacted returns a copy safe to print: the hash salt is masked.
func (c *PluginConfig) Redacted() *PluginConfig {
	out := c.Clone()
	if out.Redaction.Partial.HashSalt != "" {
		out.Redaction.Partial.HashSalt = "<redacted>"
	}
	return out
}
