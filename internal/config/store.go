package config

import (
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/systmms/secretval/internal/errors"
)

// EnvConfigPath names the variable that overrides the default store path.
const EnvConfigPath = "SECRETVAL_CONFIG"

// Format is a persisted document encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks the document format from the file extension. TOML is
// the default.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatTOML
	}
}

// ParseFormat parses a format name as accepted on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (expected toml, yaml or json)", s)
}

// DefaultPath returns the store location: $SECRETVAL_CONFIG if set, else
// config.toml under the user configuration directory.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "secretval.toml"
	}
	return filepath.Join(dir, "secretval", "config.toml")
}

// Store persists the configuration document between runs.
type Store interface {
	// Load returns the persisted document, or nil when nothing has been
	// persisted yet.
	Load() (map[string]any, error)
	Save(cfg *PluginConfig) error
	Location() string
}

// FileStore keeps the configuration in a single TOML, YAML or JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Location() string { return s.path }

func (s *FileStore) Load() (map[string]any, error) {
	doc, err := ReadDocument(s.path)
	if err != nil && stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return doc, err
}

func (s *FileStore) Save(cfg *PluginConfig) error {
	return WriteDocument(s.path, cfg)
}

// ReadDocument reads, decodes and schema-checks the document at path.
func ReadDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigIOError{Op: "read", Path: path, Err: err}
	}
	doc, err := DecodeDocument(data, FormatForPath(path))
	if err != nil {
		return nil, errors.ConfigIOError{Op: "parse", Path: path, Err: err}
	}
	if err := checkSchema(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// WriteDocument encodes cfg in the format implied by path and replaces the
// file atomically. The file is created with owner-only permissions.
func WriteDocument(path string, cfg *PluginConfig) error {
	data, err := EncodeDocument(cfg, FormatForPath(path))
	if err != nil {
		return errors.ConfigIOError{Op: "encode", Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.ConfigIOError{Op: "write", Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".secretval-*")
	if err != nil {
		return errors.ConfigIOError{Op: "write", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.ConfigIOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.ConfigIOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return errors.ConfigIOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.ConfigIOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// DecodeDocument parses raw document bytes into a generic map.
func DecodeDocument(data []byte, format Format) (map[string]any, error) {
	doc := map[string]any{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON:
		if len(strings.TrimSpace(string(data))) > 0 {
			err = json.Unmarshal(data, &doc)
		}
	default:
		err = toml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// EncodeDocument serialises cfg. A salt that came from hash_salt_ref is not
// written out.
func EncodeDocument(cfg *PluginConfig, format Format) ([]byte, error) {
	doc := cfg.Clone()
	if doc.Redaction.Partial.HashSaltRef != "" {
		doc.Redaction.Partial.HashSalt = ""
	}
	switch format {
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return toml.Marshal(doc)
	}
}

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

func checkSchema(doc map[string]any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	first := result.Errors()[0]
	return errors.ConfigError{
		Field:      strings.TrimPrefix(first.Field(), "(root)."),
		Rule:       RuleSchema,
		Message:    "document does not match the configuration schema:\n  - " + strings.Join(msgs, "\n  - "),
		Suggestion: "Run 'secretval config export <path>' to see a valid document",
	}
}
