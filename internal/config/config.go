package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port           string   `yaml:"port"`
	DatabaseURL    string   `yaml:"databaseURL"`
	LogLevel       string   `yaml:"logLevel"`
	OllamaBaseURL  string   `yaml:"ollamaBaseURL"`
	OllamaModel    string   `yaml:"ollamaModel"`
	HistoryLimit   int      `yaml:"historyLimit"`
	RedisAddr      string   `yaml:"redisAddr"`
	RedisPassword  string   `yaml:"redisPassword"`
	ChatRateLimit  int      `yaml:"chatRateLimit"`
	ChatRateWindow string   `yaml:"chatRateWindow"`
	TrustedProxies []string `yaml:"trustedProxies"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.OllamaBaseURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RateWindow parses the chat rate window, defaulting to one minute.
func (c FileConfig) RateWindow() (time.Duration, error) {
	if c.ChatRateWindow == "" {
		return time.Minute, nil
	}
	window, err := time.ParseDuration(c.ChatRateWindow)
	if err != nil {
		return 0, fmt.Errorf("parse chatRateWindow: %w", err)
	}
	if window <= 0 {
		return 0, errors.New("chatRateWindow must be positive")
	}
	return window, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.OllamaModel == "" {
		return errors.New("config: ollamaModel is required (set in config.yaml or OLLAMA_MODEL)")
	}
	if cfg.HistoryLimit < 0 {
		return errors.New("config: historyLimit must be >= 0")
	}
	return nil
}
