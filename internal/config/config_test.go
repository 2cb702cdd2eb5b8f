package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpolson/selfc/internal/config"
)

func TestDefaultConfigIsUsableOutOfTheBox(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Greater(t, cfg.Arenas.SymbolCap, 0)
	assert.Greater(t, cfg.Arenas.CodeWords, 0)
	assert.Greater(t, cfg.Arenas.DataBytes, 0)
	assert.Greater(t, cfg.Arenas.StackWords, 0)
	assert.Equal(t, uint64(0), cfg.VM.MaxCycles)
	assert.NotEmpty(t, cfg.APIServer.Addr)
}

func TestLoadFromMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadFromOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selfc.toml")
	const toml = `
[arenas]
symbol_capacity = 99
code_words = 1234

[vm]
max_cycles = 500

[api_server]
addr = "0.0.0.0:9999"
`
	require.NoError(t, os.WriteFile(path, []byte(toml), 0644))

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.Arenas.SymbolCap)
	assert.Equal(t, 1234, cfg.Arenas.CodeWords)
	assert.Equal(t, uint64(500), cfg.VM.MaxCycles)
	assert.Equal(t, "0.0.0.0:9999", cfg.APIServer.Addr)
}

func TestLoadFromRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selfc.toml")
	require.NoError(t, os.WriteFile(path, []byte("not valid toml [[["), 0644))

	_, err := config.LoadFrom(path)
	assert.Error(t, err)
}

func TestArenaSizesConversion(t *testing.T) {
	cfg := config.DefaultConfig()
	sizes := cfg.ArenaSizes()
	assert.Equal(t, cfg.Arenas.SymbolCap, sizes.SymbolCap)
	assert.Equal(t, cfg.Arenas.CodeWords, sizes.CodeWords)
	assert.Equal(t, cfg.Arenas.DataBytes, sizes.DataBytes)
	assert.Equal(t, cfg.Arenas.StackWords, sizes.StackWords)
}
