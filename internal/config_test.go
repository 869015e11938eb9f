package internal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/copilot-session/testutil"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	testutil.WriteFile(t, path, []byte(`
database: /data/sessions.db
editions: [insider]
include_cli: false
storage_paths:
  - path: /mnt/ws
    edition: insider
git_timeout: 2s
log_format: json
`))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/sessions.db", cfg.Database)
	assert.Equal(t, []string{EditionInsider}, cfg.Editions)
	assert.False(t, cfg.IncludeCLI)
	assert.Equal(t, []StorageRoot{{Path: "/mnt/ws", Edition: EditionInsider}}, cfg.StoragePaths)
	assert.Equal(t, 2*time.Second, cfg.GitTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	testutil.WriteFile(t, path, []byte("editions: [unclosed"))

	_, err := LoadConfig(path)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "config", perr.Source)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Editions = []string{EditionStable}
	cfg.StoragePaths = []StorageRoot{{Path: "/ws", Edition: EditionStable}}
	cfg.CLIPaths = []string{"/cli"}

	require.NoError(t, SaveConfig(path, cfg))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfig_HasEdition(t *testing.T) {
	assert.True(t, Config{}.HasEdition(EditionInsider))
	cfg := Config{Editions: []string{EditionStable}}
	assert.True(t, cfg.HasEdition(EditionStable))
	assert.False(t, cfg.HasEdition(EditionInsider))
}
