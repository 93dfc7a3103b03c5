package hostconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// GlobalConfig holds user-wide settings shared by every host.
// Stored at ~/.config/primehunt/config.toml.
type GlobalConfig struct {
	DefaultHost string `toml:"default_host"`
}

func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "primehunt", "config.toml"), nil
}

// LoadGlobalConfig reads the global config, returning an empty config if the
// file does not exist yet.
func LoadGlobalConfig() (*GlobalConfig, error) {
	path, err := globalConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &GlobalConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read global config: %w", err)
	}
	var cfg GlobalConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse global config: %w", err)
	}
	return &cfg, nil
}

// Save writes the global config to disk.
func (g *GlobalConfig) Save() error {
	path, err := globalConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := toml.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal global config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// SetDefaultHost updates default_host in the global config.
func SetDefaultHost(name string) error {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return err
	}
	cfg.DefaultHost = name
	return cfg.Save()
}
