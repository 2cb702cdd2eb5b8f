// Package config loads the compiler/VM's TOML configuration file,
// grounded on the teacher's config/config.go: a struct of nested,
// toml-tagged sections, a DefaultConfig, and a Load/LoadFrom pair that
// falls back to defaults when no file is present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/jpolson/selfc/internal/arena"
)

// Config holds every tunable the compiler and VM expose outside of
// command-line flags: pool sizes (spec.md §2), VM execution limits,
// and listing/disassembly display preferences.
type Config struct {
	Arenas struct {
		SymbolCap  int `toml:"symbol_capacity"`
		CodeWords  int `toml:"code_words"`
		DataBytes  int `toml:"data_bytes"`
		StackWords int `toml:"stack_words"`
	} `toml:"arenas"`

	VM struct {
		MaxCycles   uint64 `toml:"max_cycles"`
		TraceOnStep bool   `toml:"trace_on_step"`
	} `toml:"vm"`

	Listing struct {
		ShowSource    bool `toml:"show_source"`
		ShowAddresses bool `toml:"show_addresses"`
	} `toml:"listing"`

	APIServer struct {
		Addr string `toml:"addr"`
	} `toml:"api_server"`
}

// DefaultConfig returns the compiler's out-of-the-box settings: the
// spec's 256 KiB pools (internal/arena.DefaultSizes), an unbounded
// cycle count, and a plain listing.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Arenas.SymbolCap = 4096
	cfg.Arenas.CodeWords = 32 * 1024
	cfg.Arenas.DataBytes = 256 * 1024
	cfg.Arenas.StackWords = 32 * 1024

	cfg.VM.MaxCycles = 0 // 0 means unbounded
	cfg.VM.TraceOnStep = false

	cfg.Listing.ShowSource = true
	cfg.Listing.ShowAddresses = true

	cfg.APIServer.Addr = "127.0.0.1:4190"

	return cfg
}

// GetConfigPath returns the platform-specific config file path,
// creating its directory if necessary.
func GetConfigPath() string {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		dir = filepath.Join(dir, "selfc")
	case "darwin", "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "selfc.toml"
		}
		dir = filepath.Join(home, ".config", "selfc")
	default:
		return "selfc.toml"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "selfc.toml"
	}
	return filepath.Join(dir, "selfc.toml")
}

// Load reads configuration from the default config file, falling back
// to DefaultConfig if it doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads configuration from path, falling back to
// DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ArenaSizes converts the loaded configuration into internal/arena's
// Sizes shape.
func (c *Config) ArenaSizes() arena.Sizes {
	return arena.Sizes{
		SymbolCap:  c.Arenas.SymbolCap,
		CodeWords:  c.Arenas.CodeWords,
		DataBytes:  c.Arenas.DataBytes,
		StackWords: c.Arenas.StackWords,
	}
}
