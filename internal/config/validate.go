package config

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/systmms/secretval/internal/errors"
	"github.com/systmms/secretval/internal/hostval"
	"github.com/systmms/secretval/internal/template"
)

// Validation rule identifiers carried in errors.ConfigError.Rule.
const (
	RuleParanoidNoPartial     = "paranoid-no-partial"
	RuleParanoidNoUnredacted  = "paranoid-no-unredacted"
	RuleCustomTextLength      = "custom-text-length"
	RuleCustomTemplateMissing = "custom-template-required"
	RulePartialNotAllowed     = "partial-not-allowed"
	RulePartialMaxReveal      = "partial-max-reveal"
	RulePartialMinLength      = "partial-min-length"
	RuleTemplateSyntax        = "template-syntax"
	RuleSecretStringGated     = "secret-string-gated"
	RuleUnknownLevel          = "unknown-level"
	RuleUnknownStyle          = "unknown-style"
	RuleUnknownKind           = "unknown-kind"
	RuleUnknownContext        = "unknown-context"
	RuleUnknownKey            = "unknown-key"
	RuleNegativeValue         = "negative-value"
	RuleMaskChar              = "invalid-mask-char"
	RuleHashSaltRequired      = "hash-salt-required"
	RuleUnsupportedVersion    = "unsupported-version"
	RuleSchema                = "schema"
)

// Validate checks cfg against every configuration rule and returns the
// first violation as an errors.ConfigError.
func Validate(cfg *PluginConfig) error {
	_, err := compile(cfg)
	return err
}

// Prepare validates cfg and returns a copy with its templates compiled.
func Prepare(cfg *PluginConfig) (*PluginConfig, error) {
	compiled, err := compile(cfg)
	if err != nil {
		return nil, err
	}
	out := cfg.Clone()
	out.compiled = compiled
	return out, nil
}

func compile(cfg *PluginConfig) (*compiledTemplates, error) {
	if err := checkPolicy(cfg); err != nil {
		return nil, err
	}

	defText := cfg.DefaultTemplateText()
	if cfg.Redaction.Style == StyleCustom {
		if defText == "" {
			return nil, errors.ConfigError{
				Field:      "redaction.template",
				Rule:       RuleCustomTemplateMissing,
				Message:    "style 'custom' needs a template",
				Suggestion: "Set redaction.template, or pick one of the simple, typed or masked styles",
			}
		}
		if err := checkLength(cfg, "redaction.template", defText); err != nil {
			return nil, err
		}
	}
	def, err := compileField("redaction.template", defText)
	if err != nil {
		return nil, err
	}
	if def.UsesSecretString() {
		return nil, errors.ConfigError{
			Field:      "redaction.template",
			Rule:       RuleSecretStringGated,
			Message:    "the default template may not reference secret_string",
			Suggestion: "Use show_unredacted for plaintext display, or a per-type template with allow_secret_string",
		}
	}

	out := &compiledTemplates{
		def:      def,
		types:    make(map[hostval.Kind]*template.Template, len(cfg.Redaction.Types)),
		contexts: make(map[Occasion]*template.Template, len(cfg.Redaction.Contexts)),
	}

	for _, name := range sortedNames(cfg.Redaction.Types) {
		field := "redaction.types." + name
		kind, err := hostval.ParseKind(name)
		if err != nil {
			return nil, errors.ConfigError{
				Field:      field,
				Rule:       RuleUnknownKind,
				Value:      name,
				Message:    "unknown secret kind",
				Suggestion: "Kinds are: " + kindNames(),
			}
		}
		tmpl, err := compileOverride(cfg, field, cfg.Redaction.Types[name])
		if err != nil {
			return nil, err
		}
		out.types[kind] = tmpl
	}

	for _, name := range sortedNames(cfg.Redaction.Contexts) {
		field := "redaction.contexts." + name
		occ, err := ParseOccasion(name)
		if err != nil {
			return nil, errors.ConfigError{
				Field:      field,
				Rule:       RuleUnknownContext,
				Value:      name,
				Message:    "unknown render occasion",
				Suggestion: "Occasions are: display, debug, log",
			}
		}
		tmpl, err := compileOverride(cfg, field, cfg.Redaction.Contexts[name])
		if err != nil {
			return nil, err
		}
		out.contexts[occ] = tmpl
	}

	return out, nil
}

// CheckOverride applies the custom template rules to an instance override
// supplied at wrap time.
func (c *PluginConfig) CheckOverride(t *template.Template) error {
	if err := checkLength(c, "template", t.Source()); err != nil {
		return err
	}
	return checkSecretString(c, "template", t)
}

func compileOverride(cfg *PluginConfig, field, text string) (*template.Template, error) {
	if err := checkLength(cfg, field, text); err != nil {
		return nil, err
	}
	tmpl, err := compileField(field, text)
	if err != nil {
		return nil, err
	}
	if err := checkSecretString(cfg, field, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func compileField(field, text string) (*template.Template, error) {
	tmpl, err := template.Compile(text)
	if err != nil {
		var se *template.SyntaxError
		msg := err.Error()
		if stderrors.As(err, &se) {
			msg = fmt.Sprintf("%s at position %d", se.Detail, se.Pos)
		}
		return nil, errors.ConfigError{
			Field:      field,
			Rule:       RuleTemplateSyntax,
			Value:      text,
			Message:    msg,
			Suggestion: "Functions available: " + strings.Join(template.FunctionNames(), ", "),
		}
	}
	return tmpl, nil
}

func checkLength(cfg *PluginConfig, field, text string) error {
	if n := utf8.RuneCountInString(text); n > cfg.Security.MaxCustomTextLength {
		return errors.ConfigError{
			Field:      field,
			Rule:       RuleCustomTextLength,
			Value:      n,
			Message:    fmt.Sprintf("template text is longer than security.max_custom_text_length (%d)", cfg.Security.MaxCustomTextLength),
			Suggestion: "Shorten the template or raise security.max_custom_text_length",
		}
	}
	return nil
}

func checkSecretString(cfg *PluginConfig, field string, t *template.Template) error {
	if t.UsesSecretString() && !cfg.SecretStringAllowed() {
		return errors.ConfigError{
			Field:      field,
			Rule:       RuleSecretStringGated,
			Message:    "template references secret_string but plaintext access is not enabled",
			Suggestion: "Set redaction.allow_secret_string = true (not available at paranoid level)",
		}
	}
	return nil
}

func checkPolicy(cfg *PluginConfig) error {
	if cfg.Version != CurrentVersion {
		return errors.ConfigError{
			Field:      "version",
			Rule:       RuleUnsupportedVersion,
			Value:      cfg.Version,
			Message:    "unsupported configuration version",
			Suggestion: fmt.Sprintf("Set 'version = %d' at the top of the configuration file", CurrentVersion),
		}
	}
	if !knownLevel(cfg.Security.Level) {
		return errors.ConfigError{
			Field:      "security.level",
			Rule:       RuleUnknownLevel,
			Value:      cfg.Security.Level,
			Message:    "unknown security level",
			Suggestion: "Levels are: minimal, standard, paranoid",
		}
	}
	if !knownStyle(cfg.Redaction.Style) {
		return errors.ConfigError{
			Field:      "redaction.style",
			Rule:       RuleUnknownStyle,
			Value:      cfg.Redaction.Style,
			Message:    "unknown redaction style",
			Suggestion: "Styles are: simple, typed, masked, custom",
		}
	}

	p := cfg.Redaction.Partial
	s := cfg.Security
	for _, f := range []struct {
		name  string
		value int
	}{
		{"redaction.partial.show_first", p.ShowFirst},
		{"redaction.partial.show_last", p.ShowLast},
		{"redaction.partial.min_length", p.MinLength},
		{"redaction.partial.max_reveal", p.MaxReveal},
		{"redaction.partial.hash_length", p.HashLength},
		{"security.max_custom_text_length", s.MaxCustomTextLength},
		{"security.min_partial_redaction_length", s.MinPartialRedactionLength},
	} {
		if f.value < 0 {
			return errors.ConfigError{
				Field:   f.name,
				Rule:    RuleNegativeValue,
				Value:   f.value,
				Message: "value must not be negative",
			}
		}
	}

	if s.Level == LevelParanoid {
		switch {
		case cfg.Redaction.ShowUnredacted:
			return paranoidError("redaction.show_unredacted", RuleParanoidNoUnredacted)
		case cfg.Redaction.AllowSecretString:
			return paranoidError("redaction.allow_secret_string", RuleParanoidNoUnredacted)
		case s.AllowPartialRedaction:
			return paranoidError("security.allow_partial_redaction", RuleParanoidNoPartial)
		case p.Enabled:
			return paranoidError("redaction.partial.enabled", RuleParanoidNoPartial)
		}
	}

	if utf8.RuneCountInString(p.MaskChar) != 1 {
		return errors.ConfigError{
			Field:      "redaction.partial.mask_char",
			Rule:       RuleMaskChar,
			Value:      p.MaskChar,
			Message:    "mask character must be exactly one character",
			Suggestion: "Use a single character such as '*' or '#'",
		}
	}

	if !p.Enabled {
		return nil
	}
	if !s.AllowPartialRedaction {
		return errors.ConfigError{
			Field:      "redaction.partial.enabled",
			Rule:       RulePartialNotAllowed,
			Value:      true,
			Message:    "partial redaction requires security.allow_partial_redaction",
			Suggestion: "Set security.allow_partial_redaction = true or disable partial redaction",
		}
	}
	if p.ShowFirst+p.ShowLast > p.MaxReveal {
		return errors.ConfigError{
			Field:      "redaction.partial.show_first",
			Rule:       RulePartialMaxReveal,
			Value:      p.ShowFirst + p.ShowLast,
			Message:    fmt.Sprintf("show_first + show_last exceeds max_reveal (%d)", p.MaxReveal),
			Suggestion: "Reveal fewer characters or raise redaction.partial.max_reveal",
		}
	}
	if p.MinLength < s.MinPartialRedactionLength {
		return errors.ConfigError{
			Field:      "redaction.partial.min_length",
			Rule:       RulePartialMinLength,
			Value:      p.MinLength,
			Message:    fmt.Sprintf("min_length is below security.min_partial_redaction_length (%d)", s.MinPartialRedactionLength),
			Suggestion: fmt.Sprintf("Set redaction.partial.min_length to at least %d", s.MinPartialRedactionLength),
		}
	}
	if p.UseHash && p.HashSalt == "" && s.Level != LevelMinimal {
		return errors.ConfigError{
			Field:      "redaction.partial.hash_salt",
			Rule:       RuleHashSaltRequired,
			Message:    "hash redaction needs a salt at this security level",
			Suggestion: "Set redaction.partial.hash_salt_ref = \"keyring:<service>/<account>\" or redaction.partial.hash_salt",
		}
	}
	return nil
}

func paranoidError(field, rule string) error {
	return errors.ConfigError{
		Field:      field,
		Rule:       rule,
		Value:      true,
		Message:    "not permitted at security level paranoid",
		Suggestion: "Turn the setting off, or lower security.level",
	}
}

func knownLevel(l Level) bool {
	for _, k := range Levels {
		if k == l {
			return true
		}
	}
	return false
}

func knownStyle(s Style) bool {
	for _, k := range Styles {
		if k == s {
			return true
		}
	}
	return false
}

func kindNames() string {
	names := make([]string, 0, len(hostval.Kinds))
	for _, k := range hostval.Kinds {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
