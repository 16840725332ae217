package config

import (
	"github.com/systmms/secretval/internal/logging"
)

// Config is the command-line view of the configuration: where the file
// lives, who logs, and the manager built from both.
type Config struct {
	Path      string
	Logger    *logging.Logger
	LookupEnv func(string) (string, bool)

	manager *Manager
	loaded  bool
}

// Manager returns the manager for Path without loading it. Commands that
// replace the stored document (reset, import) use it so that a broken file
// can still be repaired.
func (c *Config) Manager() *Manager {
	if c.manager != nil {
		return c.manager
	}
	logger := c.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	path := c.Path
	if path == "" {
		path = DefaultPath()
	}
	opts := []Option{WithStore(NewFileStore(path)), WithLogger(logger)}
	if c.LookupEnv != nil {
		opts = append(opts, WithLookupEnv(c.LookupEnv))
	}
	c.manager = NewManager(opts...)
	return c.manager
}

// Load returns the manager after loading the store and environment once.
func (c *Config) Load() (*Manager, error) {
	m := c.Manager()
	if c.loaded {
		return m, nil
	}
	if err := m.Load(); err != nil {
		return nil, err
	}
	c.loaded = true
	return m, nil
}
