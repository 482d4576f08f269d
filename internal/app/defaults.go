package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - REDARCH_CONFIG_PATH: config file location (default: ~/.config/redarch.toml)
//   - REDARCH_HOME: base directory for redarch data (default: ~/.local/share/redarch)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking REDARCH_CONFIG_PATH env var first,
// then falling back to the default ~/.config/redarch.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("REDARCH_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "redarch.toml"), nil
}

// getBaseDir returns the base directory for redarch data, checking REDARCH_HOME env var first,
// then falling back to the XDG default ~/.local/share/redarch.
func getBaseDir() (string, error) {
	if path := os.Getenv("REDARCH_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "redarch"), nil
}
