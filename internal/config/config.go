// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets go to OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"cmpfetch/cli/internal/xdg"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel string         `json:"log_level"`
	Terminal TerminalConfig `json:"terminal"`
	Dispatch DispatchConfig `json:"dispatch"`
	// OutputDir is where report artifacts land when no --output is given.
	OutputDir string `json:"output_dir"`
}

// TerminalConfig holds the local terminal service endpoint.
type TerminalConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DispatchConfig holds multi-request dispatcher knobs.
type DispatchConfig struct {
	TimeoutSeconds    int `json:"timeout_seconds"`
	MaxRetries        int `json:"max_retries"`
	RetryDelaySeconds int `json:"retry_delay_seconds"`
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults.
func Load() (Config, error) {
	var c Config
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Default returns the configuration used when no config file exists.
// Port 8194 is the terminal's conventional local API port.
func Default() Config {
	return Config{
		LogLevel: "info",
		Terminal: TerminalConfig{Host: "localhost", Port: 8194},
		Dispatch: DispatchConfig{
			TimeoutSeconds:    1200,
			MaxRetries:        3,
			RetryDelaySeconds: 30,
		},
	}
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
