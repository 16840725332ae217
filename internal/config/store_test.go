package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretval/internal/errors"
)

func TestFormatForPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatTOML, FormatForPath("/etc/secretval/config.toml"))
	assert.Equal(t, FormatYAML, FormatForPath("config.YML"))
	assert.Equal(t, FormatYAML, FormatForPath("config.yaml"))
	assert.Equal(t, FormatJSON, FormatForPath("config.json"))
	assert.Equal(t, FormatTOML, FormatForPath("config"))

	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("ini")
	assert.Error(t, err)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Redaction.Types = map[string]string{"binary": "<bytes>"}

	for _, format := range []Format{FormatTOML, FormatYAML, FormatJSON} {
		data, err := EncodeDocument(cfg, format)
		require.NoError(t, err, format)

		doc, err := DecodeDocument(data, format)
		require.NoError(t, err, format)
		require.NoError(t, checkSchema(doc), format)

		back, err := resolve(layers{doc: doc}, nil)
		require.NoError(t, err, format)
		assert.Equal(t, "<bytes>", back.Redaction.Types["binary"], format)
		assert.Equal(t, cfg.Security, back.Security, format)
		assert.Equal(t, cfg.Redaction.Partial, back.Redaction.Partial, format)
	}
}

func TestEncodeDocument_DropsReferencedSalt(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Redaction.Partial.HashSalt = "from-keyring"
	cfg.Redaction.Partial.HashSaltRef = "keyring:svc/acct"

	data, err := EncodeDocument(cfg, FormatTOML)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-keyring")
	assert.Equal(t, "from-keyring", cfg.Redaction.Partial.HashSalt)

	// A literal salt is kept.
	cfg.Redaction.Partial.HashSaltRef = ""
	data, err = EncodeDocument(cfg, FormatTOML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "from-keyring")
}

func TestCheckSchema(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		doc   map[string]any
		field string
	}{
		{"wrong type", map[string]any{"version": "one"}, "version"},
		{"bad enum", map[string]any{"security": map[string]any{"level": "extreme"}}, "security.level"},
		{"unknown key", map[string]any{"redaction": map[string]any{"colour": "red"}}, "redaction"},
		{"bad salt ref", map[string]any{"redaction": map[string]any{"partial": map[string]any{"hash_salt_ref": "vault:x"}}}, "redaction.partial.hash_salt_ref"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := checkSchema(tt.doc)
			require.Error(t, err)
			assert.True(t, errors.IsRule(err, RuleSchema))

			var ce errors.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestWriteDocument_CreatesParent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
	require.NoError(t, WriteDocument(path, Defaults()))

	doc, err := ReadDocument(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc["version"])
}

func TestReadDocument_Missing(t *testing.T) {
	t.Parallel()

	_, err := ReadDocument(filepath.Join(t.TempDir(), "nope.toml"))
	var ioe errors.ConfigIOError
	require.ErrorAs(t, err, &ioe)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.yaml")
	assert.Equal(t, "/tmp/custom.yaml", DefaultPath())

	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "secretval", "config.toml"), DefaultPath())
}

func TestResolveSalt_Env(t *testing.T) {
	t.Setenv("SECRETVAL_TEST_SALT", "pepper")

	salt, err := ResolveSalt("env:SECRETVAL_TEST_SALT")
	require.NoError(t, err)
	assert.Equal(t, "pepper", salt)

	_, err = ResolveSalt("env:SECRETVAL_TEST_SALT_ABSENT")
	assert.ErrorIs(t, err, ErrSaltNotFound)

	for _, ref := range []string{"plain", "keyring:noslash", "vault:x/y"} {
		_, err := ResolveSalt(ref)
		assert.Error(t, err, ref)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SECRETVAL_DOTENV_PROBE=from-file\n"), 0o600))

	t.Setenv("SECRETVAL_DOTENV_PROBE", "")
	os.Unsetenv("SECRETVAL_DOTENV_PROBE")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("SECRETVAL_DOTENV_PROBE"))

	// Existing variables win.
	t.Setenv("SECRETVAL_DOTENV_PROBE", "from-env")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("SECRETVAL_DOTENV_PROBE"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestEnvLayer(t *testing.T) {
	t.Parallel()

	layer := envLayer(fakeEnv(map[string]string{
		EnvShowUnredacted: "on",
		EnvLevel:          " Minimal ",
	}))
	assert.Equal(t, map[string]any{
		"redaction.show_unredacted": true,
		"security.level":            "minimal",
	}, layer)

	assert.Empty(t, envLayer(fakeEnv(map[string]string{EnvShowUnredacted: "no"})))
}
