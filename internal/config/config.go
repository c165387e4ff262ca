package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds everything the client and server read at startup.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Person PersonConfig `mapstructure:"person"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

type ServerConfig struct {
	URL    string `mapstructure:"url"`     // base URL the client talks to
	Addr   string `mapstructure:"addr"`    // listen address for `punchcard serve`
	DBPath string `mapstructure:"db_path"` // sqlite file for the server
}

type PersonConfig struct {
	ID string `mapstructure:"id"`
}

type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".punchcard")
	return &Config{
		Server: ServerConfig{
			URL:    "http://localhost:8787",
			Addr:   ":8787",
			DBPath: filepath.Join(dataDir, "punchcard.db"),
		},
		Cache: CacheConfig{
			Dir: dataDir,
		},
	}
}

// Load merges configuration from the global file and a project override.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil // Return defaults if no home dir
	}

	cwd, err := os.Getwd()
	if err != nil {
		return cfg, nil // Return defaults if no cwd
	}

	// Load global config first
	globalPath := filepath.Join(home, ".punchcard", "config.yaml")
	if err := loadFile(globalPath, cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	// Load project config (overrides global)
	projectPath := filepath.Join(cwd, ".punchcard", "config.yaml")
	if err := loadFile(projectPath, cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	// The PUNCHCARD_PERSON env var beats both files, useful on shared vans.
	if person := os.Getenv("PUNCHCARD_PERSON"); person != "" {
		cfg.Person.ID = person
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".punchcard", "config.yaml")
}
