package config

import (
	stderrors "errors"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/systmms/secretval/internal/errors"
	"github.com/systmms/secretval/internal/logging"
	"github.com/systmms/secretval/internal/metrics"
)

// Manager owns the effective configuration. Renders read it under a shared
// lock; every change is validated in full before it is swapped in, so a
// rejected change leaves the previous configuration in effect.
type Manager struct {
	mu        sync.RWMutex
	current   *PluginConfig
	doc       map[string]any
	overrides map[string]any

	store     Store
	lookupEnv func(string) (string, bool)
	salt      SaltResolver
	logger    *logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets where the configuration is persisted.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithLookupEnv replaces os.LookupEnv for environment overrides.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(m *Manager) { m.lookupEnv = fn }
}

// WithSaltResolver replaces ResolveSalt.
func WithSaltResolver(r SaltResolver) Option {
	return func(m *Manager) { m.salt = r }
}

// WithLogger sets the logger used for the audit channel.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager returns a manager holding the built-in defaults. Call Load to
// apply the store and environment.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		lookupEnv: os.LookupEnv,
		salt:      ResolveSalt,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.current = Defaults()
	m.current.Revision = uuid.NewString()
	return m
}

// Location returns the store path, or "" without a store.
func (m *Manager) Location() string {
	if m.store == nil {
		return ""
	}
	return m.store.Location()
}

// Read calls fn with the effective configuration while holding the read
// lock. fn must not retain or modify cfg.
func (m *Manager) Read(fn func(cfg *PluginConfig)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.current)
}

// Current returns a copy of the effective configuration.
func (m *Manager) Current() *PluginConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// Load reads the store and applies the environment.
func (m *Manager) Load() error {
	return m.load("load")
}

// Reload re-reads the store. Runtime overrides are kept.
func (m *Manager) Reload() error {
	return m.load("reload")
}

func (m *Manager) load(op string) error {
	var doc map[string]any
	if m.store != nil {
		var err error
		if doc, err = m.store.Load(); err != nil {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.reject(op, err)
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply(op, doc, m.overrides, false)
}

// Configure applies runtime overrides on top of everything else. The
// overrides accumulate across calls and are not persisted until Persist.
func (m *Manager) Configure(settings map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkKeys(settings); err != nil {
		m.reject("configure", err)
		return err
	}
	merged := make(map[string]any, len(m.overrides)+len(settings))
	for k, v := range m.overrides {
		merged[k] = v
	}
	for k, v := range settings {
		merged[strings.ToLower(k)] = v
	}
	return m.apply("configure", m.doc, merged, false)
}

// Set applies a single runtime override. String values are converted to
// the field's type.
func (m *Manager) Set(key string, value any) error {
	return m.Configure(map[string]any{key: value})
}

// Persist writes the persisted layer together with the runtime overrides to
// the store. Environment overrides are never written.
func (m *Manager) Persist() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply("persist", m.doc, m.overrides, true)
}

// Reset discards the persisted document and runtime overrides and persists
// the built-in defaults.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply("reset", nil, nil, true)
}

// Import replaces the persisted document with the one at path. Runtime
// overrides are discarded.
func (m *Manager) Import(path string) error {
	doc, err := ReadDocument(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.reject("import", err)
		return err
	}
	return m.apply("import", doc, nil, true)
}

// Export writes the persisted view of the configuration to path in the
// format its extension implies.
func (m *Manager) Export(path string) error {
	m.mu.RLock()
	view, err := resolve(layers{doc: m.doc, overrides: m.overrides}, nil)
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	return WriteDocument(path, view)
}

// ValidateFile resolves the document at path with the current environment
// and validates it without applying it.
func (m *Manager) ValidateFile(path string) error {
	doc, err := ReadDocument(path)
	if err != nil {
		return err
	}
	cfg, err := resolve(layers{doc: doc, env: envLayer(m.lookupEnv)}, m.salt)
	if err != nil {
		return err
	}
	return Validate(cfg)
}

// apply resolves, validates, optionally persists and swaps. Callers hold
// the write lock.
func (m *Manager) apply(op string, doc, overrides map[string]any, persist bool) error {
	sensitive := saltValues(doc, overrides)
	cfg, err := resolve(layers{doc: doc, env: envLayer(m.lookupEnv), overrides: overrides}, m.salt)
	if err != nil {
		m.reject(op, err, sensitive...)
		return err
	}
	next, err := Prepare(cfg)
	if err != nil {
		m.reject(op, err, append(sensitive, cfg.Redaction.Partial.HashSalt)...)
		return err
	}
	if ref := next.Redaction.Partial.HashSaltRef; ref != "" && next.Redaction.Partial.UseHash {
		m.logger.Debug("hash salt %s resolved from %s", logging.Secret(next.Redaction.Partial.HashSalt), ref)
	}

	if persist && m.store != nil {
		view, err := resolve(layers{doc: doc, overrides: overrides}, nil)
		if err == nil {
			err = m.store.Save(view)
		}
		if err != nil {
			m.logger.Error("configuration not saved to %s: %s", m.store.Location(), logging.Redact(err.Error(), sensitive))
			m.reject(op, err, sensitive...)
			return err
		}
	}

	next.Revision = uuid.NewString()
	prev := m.current
	m.current = next
	m.doc = doc
	m.overrides = overrides

	metrics.RecordConfigChange(op, true)
	if prev.Security.AuditConfigChanges || next.Security.AuditConfigChanges {
		changed := changedKeys(prev, next)
		m.logger.Audit("config.changed", map[string]string{
			"op":       op,
			"revision": next.Revision,
			"changed":  strings.Join(changed, ","),
		})
	}
	m.logger.Debug("configuration %s applied (revision %s)", op, next.Revision)
	return nil
}

// reject records a refused change. Any of the sensitive values found in the
// error text are masked before it reaches the debug log.
func (m *Manager) reject(op string, err error, sensitive ...string) {
	metrics.RecordConfigChange(op, false)
	sensitive = append(sensitive, m.current.Redaction.Partial.HashSalt)
	m.logger.Debug("configuration %s rejected: %s", op, logging.Redact(err.Error(), sensitive))
	if !m.current.Security.AuditConfigChanges {
		return
	}
	fields := map[string]string{"op": op}
	var ce errors.ConfigError
	var ioe errors.ConfigIOError
	switch {
	case stderrors.As(err, &ce):
		fields["rule"] = ce.Rule
		fields["field"] = ce.Field
	case stderrors.As(err, &ioe):
		fields["io"] = ioe.Op
		fields["path"] = ioe.Path
	}
	m.logger.Audit("config.rejected", fields)
}

// saltValues collects inline hash salts from a persisted document and a
// set of runtime overrides.
func saltValues(doc, overrides map[string]any) []string {
	var out []string
	if s, ok := overrides["redaction.partial.hash_salt"].(string); ok {
		out = append(out, s)
	}
	redaction, _ := doc["redaction"].(map[string]any)
	partial, _ := redaction["partial"].(map[string]any)
	if s, ok := partial["hash_salt"].(string); ok {
		out = append(out, s)
	}
	return out
}
