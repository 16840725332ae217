package secret

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/systmms/secretval/internal/hostval"
	"github.com/systmms/secretval/internal/metrics"
	"github.com/systmms/secretval/internal/secure"
	"github.com/systmms/secretval/internal/template"
)

// Value is a wrapped secret. It is immutable once wrapped and safe for
// concurrent use. The zero Value is not a secret; use Wrap.
type Value struct {
	kind     hostval.Kind
	length   int
	sized    bool
	loc      *time.Location
	override *template.Template
	renderer *Renderer

	mu        sync.RWMutex
	buf       *secure.Buffer // canonical bytes of scalar kinds
	composite any            // deep copy of list and record kinds
	destroyed bool
}

// Option configures a Value at wrap time.
type Option func(*Value)

// WithTemplate attaches a per-instance redaction template. It takes
// precedence over every configured template.
func WithTemplate(t *template.Template) Option {
	return func(v *Value) { v.override = t }
}

// WithRenderer binds the value to a renderer, so its presentation follows
// that renderer's configuration instead of the built-in defaults.
func WithRenderer(r *Renderer) Option {
	return func(v *Value) { v.renderer = r }
}

// Wrap classifies v into one of the eight secret kinds and takes a private
// copy of it. Integers are normalised to int64 and float32 to float64.
func Wrap(v any, opts ...Option) (*Value, error) {
	s, err := wrap(v, opts)
	label := "invalid"
	if s != nil {
		label = s.kind.String()
	}
	metrics.RecordWrap(label, err == nil)
	return s, err
}

// WrapWith compiles text and wraps v with it as the instance template.
// A syntax error aborts the wrap.
func WrapWith(v any, text string, opts ...Option) (*Value, error) {
	tmpl, err := template.Compile(text)
	if err != nil {
		return nil, err
	}
	return Wrap(v, append(opts, WithTemplate(tmpl))...)
}

func wrap(v any, opts []Option) (*Value, error) {
	if _, ok := v.(*Value); ok {
		return nil, &WrapError{Kind: "secret", Reason: ErrUnsupportedKind, Detail: "value is already a secret"}
	}

	k, norm, err := hostval.Classify(v)
	switch {
	case errors.Is(err, hostval.ErrNothing):
		return nil, &WrapError{Kind: "nothing", Reason: ErrEmptyInput}
	case err != nil:
		return nil, &WrapError{Kind: fmt.Sprintf("%T", v), Reason: ErrUnsupportedKind, Detail: err.Error()}
	}

	s := &Value{kind: k}
	s.length, s.sized = hostval.Len(k, norm)

	switch k {
	case hostval.KindList, hostval.KindRecord:
		// Every element must be representable on the data channel.
		check, err := hostval.EncodeJSON(norm)
		if err != nil {
			return nil, &WrapError{Kind: k.String(), Reason: ErrUnsupportedKind, Detail: err.Error()}
		}
		secure.Wipe(check)
		s.composite = hostval.Clone(norm)
	default:
		canon, err := hostval.CanonicalBytes(k, norm)
		if err != nil {
			return nil, &WrapError{Kind: k.String(), Reason: ErrUnsupportedKind, Detail: err.Error()}
		}
		if k == hostval.KindDate {
			s.loc = norm.(time.Time).Location()
		}
		s.buf = secure.NewBuffer(canon)
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Kind returns the payload kind.
func (v *Value) Kind() hostval.Kind {
	return v.kind
}

// TypeName returns the kind identifier: string, int, bool, float, binary,
// date, list or record.
func (v *Value) TypeName() string {
	return v.kind.String()
}

// Len returns the natural length (runes, bytes or elements) for kinds that
// have one.
func (v *Value) Len() (int, bool) {
	return v.length, v.sized
}

// Template returns the instance template, or nil.
func (v *Value) Template() *template.Template {
	return v.override
}

// Reveal returns the original payload. This is the only sanctioned path
// back to cleartext; it neither logs nor alters the content. Lists,
// records and byte slices are returned as fresh copies.
func Reveal(v *Value) (any, error) {
	if v == nil {
		return nil, ErrRevealOnNonSecret
	}
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.destroyed || !v.kind.Valid() {
		return nil, ErrRevealOnNonSecret
	}
	if v.composite != nil {
		return hostval.Clone(v.composite), nil
	}

	var out any
	err := v.buf.Open(func(b []byte) error {
		var err error
		out, err = hostval.FromCanonical(v.kind, b)
		return err
	})
	if errors.Is(err, secure.ErrDestroyed) {
		return nil, ErrRevealOnNonSecret
	}
	if err != nil {
		return nil, err
	}
	if t, ok := out.(time.Time); ok && v.loc != nil {
		out = t.In(v.loc)
	}
	return out, nil
}

// Unwrap reveals x if it is a secret and fails with ErrRevealOnNonSecret
// otherwise.
func Unwrap(x any) (any, error) {
	v, ok := x.(*Value)
	if !ok {
		return nil, ErrRevealOnNonSecret
	}
	return Reveal(v)
}

// IsSecret reports whether x is a live secret.
func IsSecret(x any) bool {
	v, ok := x.(*Value)
	return ok && v.live()
}

// live reports whether v was produced by Wrap and not yet destroyed.
func (v *Value) live() bool {
	if v == nil {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.destroyed && v.kind.Valid()
}

// TypeOf returns the kind identifier of x, which must be a secret.
func TypeOf(x any) (string, error) {
	if !IsSecret(x) {
		return "", ErrRevealOnNonSecret
	}
	return x.(*Value).TypeName(), nil
}

// text returns the textual form used by partial redaction and the
// secret_string template variable.
func (v *Value) text() (string, error) {
	payload, err := Reveal(v)
	if err != nil {
		return "", err
	}
	return hostval.Text(v.kind, payload)
}

// Compare reports whether a and b hold the same payload. Values of
// different kinds are unequal after a single kind comparison; same-kind
// payloads are compared in constant time over their canonical bytes.
func Compare(a, b *Value) (bool, error) {
	if !a.live() || !b.live() {
		return false, ErrRevealOnNonSecret
	}
	if a.kind != b.kind {
		return false, nil
	}
	if a.buf != nil {
		return a.buf.Equal(b.buf), nil
	}

	x, err := a.canonicalComposite()
	if err != nil {
		return false, err
	}
	defer secure.Wipe(x)
	y, err := b.canonicalComposite()
	if err != nil {
		return false, err
	}
	defer secure.Wipe(y)
	return secure.ConstantTimeEqual(x, y), nil
}

// Equal is Compare without the error: anything that is not a live secret
// is unequal.
func Equal(a, b *Value) bool {
	eq, err := Compare(a, b)
	return err == nil && eq
}

// Equal reports whether v and other hold the same payload.
func (v *Value) Equal(other *Value) bool {
	return Equal(v, other)
}

func (v *Value) canonicalComposite() ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.destroyed || v.composite == nil {
		return nil, ErrRevealOnNonSecret
	}
	return hostval.CanonicalBytes(v.kind, v.composite)
}

// Destroyed reports whether Destroy has been called.
func (v *Value) Destroyed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.destroyed
}

// Destroy overwrites the payload with zeros and releases it. Byte slices
// inside lists and records are wiped too; Go strings are immutable and can
// only be released. Calling Destroy more than once is safe.
func (v *Value) Destroy() {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return
	}
	v.destroyed = true
	if v.buf != nil {
		v.buf.Destroy()
	}
	wipeComposite(v.composite)
	v.composite = nil
}

func wipeComposite(x any) {
	switch c := x.(type) {
	case []byte:
		secure.Wipe(c)
	case []any:
		for i, e := range c {
			wipeComposite(e)
			c[i] = nil
		}
	case map[string]any:
		for k, e := range c {
			wipeComposite(e)
			delete(c, k)
		}
	}
}

// Use wraps x, passes the secret to fn and destroys it before returning,
// whether fn returns normally, returns an error or panics.
func Use(x any, fn func(*Value) error, opts ...Option) error {
	v, err := Wrap(x, opts...)
	if err != nil {
		return err
	}
	defer v.Destroy()
	return fn(v)
}
