package secret

import (
	"bytes"

	"github.com/systmms/secretval/internal/config"
	"github.com/systmms/secretval/internal/logging"
	"github.com/systmms/secretval/internal/metrics"
	"github.com/systmms/secretval/internal/partial"
	"github.com/systmms/secretval/internal/template"
)

// ConfigSource gives read access to an effective configuration for the
// duration of fn. *config.Manager is the usual implementation.
type ConfigSource interface {
	Read(fn func(cfg *config.PluginConfig))
}

// Static is a ConfigSource over a fixed configuration. The configuration
// should come from config.Defaults or config.Prepare.
type Static struct {
	Config *config.PluginConfig
}

func (s Static) Read(fn func(cfg *config.PluginConfig)) {
	fn(s.Config)
}

var defaultSource ConfigSource = Static{Config: config.Defaults()}

// Render strategies, reported to metrics.
const (
	strategyUnredacted = "unredacted"
	strategyOverride   = "override"
	strategyPartial    = "partial"
	strategyType       = "type"
	strategyContext    = "context"
	strategyDefault    = "default"
)

// Render produces the presentation form of v for occasion occ. The first
// applicable source wins:
//
//  1. show_unredacted: the plaintext textual form
//  2. the instance template
//  3. partial redaction, when enabled and the value is long enough
//  4. the per-kind template
//  5. the per-occasion template
//  6. the default template
//
// The configuration read lock is held for the whole render. A nil src
// means the built-in defaults.
func Render(v *Value, occ config.Occasion, src ConfigSource) (string, error) {
	if !v.live() {
		return "", ErrRevealOnNonSecret
	}
	if src == nil {
		src = defaultSource
	}

	var (
		out      string
		strategy string
		err      error
	)
	src.Read(func(cfg *config.PluginConfig) {
		out, strategy, err = render(v, occ, cfg)
	})
	if err != nil {
		return "", err
	}
	metrics.RecordRender(v.kind.String(), string(occ), strategy)
	return out, nil
}

func render(v *Value, occ config.Occasion, cfg *config.PluginConfig) (string, string, error) {
	if cfg.ShowUnredacted() {
		text, err := v.text()
		return text, strategyUnredacted, err
	}

	ctx := v.renderContext(cfg)

	if v.override != nil {
		out, err := v.override.Render(ctx)
		return out, strategyOverride, err
	}

	if cfg.PartialActive() {
		text, err := v.text()
		if err != nil {
			return "", strategyPartial, err
		}
		if out, ok := partial.Apply(text, cfg.PartialOptions(), cfg.LengthVisible()); ok {
			return out, strategyPartial, nil
		}
	}

	if t, ok := cfg.TypeTemplate(v.kind); ok {
		out, err := t.Render(ctx)
		return out, strategyType, err
	}
	if t, ok := cfg.ContextTemplate(occ); ok {
		out, err := t.Render(ctx)
		return out, strategyContext, err
	}
	out, err := cfg.DefaultTemplate().Render(ctx)
	return out, strategyDefault, err
}

// renderContext builds the template context allowed by cfg.
func (v *Value) renderContext(cfg *config.PluginConfig) template.Context {
	ctx := template.Context{SecretType: v.kind.String()}
	if v.sized && cfg.LengthVisible() {
		ctx.SecretLength = template.Length(v.length)
	}
	if cfg.SecretStringAllowed() {
		ctx.SecretString = v.text
	}
	if cfg.PartialActive() {
		opts := cfg.PartialOptions()
		showLength := cfg.LengthVisible()
		ctx.Partial = func(s string) string {
			if out, ok := partial.Apply(s, opts, showLength); ok {
				return out
			}
			return partial.Conceal(s, opts.MaskChar, showLength)
		}
	}
	return ctx
}

// fallback is what the presentation channel prints when rendering fails.
func fallback(v *Value) string {
	if v == nil {
		return "<nil>"
	}
	metrics.RecordRenderFallback(v.kind.String())
	return "<redacted:" + v.kind.String() + ">"
}

// Renderer binds secrets to a configuration source and an audit logger.
type Renderer struct {
	src    ConfigSource
	logger *logging.Logger
}

// NewRenderer returns a renderer reading src. A nil logger discards audit
// output.
func NewRenderer(src ConfigSource, logger *logging.Logger) *Renderer {
	if src == nil {
		src = defaultSource
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Renderer{src: src, logger: logger}
}

// Source returns the configuration source.
func (r *Renderer) Source() ConfigSource {
	return r.src
}

// Wrap wraps x bound to this renderer.
func (r *Renderer) Wrap(x any, opts ...Option) (*Value, error) {
	return Wrap(x, append(opts, WithRenderer(r))...)
}

// WrapWith compiles text, checks it against the security policy (length
// limit and secret_string gating) and wraps x with it.
func (r *Renderer) WrapWith(x any, text string, opts ...Option) (*Value, error) {
	tmpl, err := template.Compile(text)
	if err != nil {
		return nil, err
	}
	r.src.Read(func(cfg *config.PluginConfig) {
		err = cfg.CheckOverride(tmpl)
	})
	if err != nil {
		return nil, err
	}
	return Wrap(x, append(opts, WithTemplate(tmpl), WithRenderer(r))...)
}

// Decode parses a data-channel envelope, JSON or protobuf, and binds the
// result to r. A template carried in the envelope must satisfy the current
// policy.
func (r *Renderer) Decode(data []byte) (*Value, error) {
	decode := DecodeProto
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		decode = Decode
	}
	v, err := decode(data, WithRenderer(r))
	if err != nil {
		return nil, err
	}
	if t := v.Template(); t != nil {
		r.src.Read(func(cfg *config.PluginConfig) {
			err = cfg.CheckOverride(t)
		})
		if err != nil {
			v.Destroy()
			return nil, err
		}
	}
	return v, nil
}

// IsEnvelope reports whether data is a secret envelope, JSON or protobuf,
// that Decode would accept under the current policy.
func (r *Renderer) IsEnvelope(data []byte) bool {
	v, err := r.Decode(data)
	if err != nil {
		return false
	}
	v.Destroy()
	return true
}

// Render renders v with this renderer's configuration.
func (r *Renderer) Render(v *Value, occ config.Occasion) (string, error) {
	return Render(v, occ, r.src)
}

// Reveal reveals v and records the exposure on the audit channel. The
// audit line carries the kind, never the content.
func (r *Renderer) Reveal(v *Value) (any, error) {
	out, err := Reveal(v)
	if err != nil {
		return nil, err
	}
	metrics.RecordReveal(v.kind.String())
	r.logger.Audit("secret.reveal", map[string]string{"kind": v.kind.String()})
	return out, nil
}
