package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// PlaceholderSHA256 is the expected checksum shipped before a real one is
// known. Verification against it only reports the actual digest.
const PlaceholderSHA256 = "a1b2c3d4e5f6..."

type Config struct {
	Model         ModelConfig      `toml:"model"`
	Generation    GenerationConfig `toml:"generation"`
	Validation    ValidationConfig `toml:"validation"`
	History       HistoryConfig    `toml:"history"`
	Notifications NotifyConfig     `toml:"notifications"`
}

type ModelConfig struct {
	Name        string  `toml:"name"`
	Path        string  `toml:"path"`
	SHA256      string  `toml:"sha256"`
	RequireFile bool    `toml:"require_file"`
	MinRAMGB    float64 `toml:"min_ram_gb"`
}

type GenerationConfig struct {
	Provider         string  `toml:"provider"` // "openai" or "claude-cli"
	BaseURL          string  `toml:"base_url"`
	APIKey           string  `toml:"api_key"`
	Model            string  `toml:"model"`
	MaxTokens        int     `toml:"max_tokens"`
	Temperature      float64 `toml:"temperature"`
	TopP             float64 `toml:"top_p"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	StructuredOutput bool    `toml:"structured_output"`
}

type ValidationConfig struct {
	Mode       string `toml:"mode"`       // "fail-fast" or "collect-all"
	Extraction string `toml:"extraction"` // "bracket-span" or "balanced"
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type NotifyConfig struct {
	Enabled    bool `toml:"enabled"`
	MinSeconds int  `toml:"min_seconds"`
}

func DefaultConfig() Config {
	return Config{
		Model: ModelConfig{
			Name:        "gemma-3n-e2b-it",
			Path:        filepath.Join("models", "gemma-3n-e2b-it-q4_k_m.gguf"),
			SHA256:      PlaceholderSHA256,
			RequireFile: true,
			MinRAMGB:    4,
		},
		Generation: GenerationConfig{
			Provider:       "openai",
			BaseURL:        "http://127.0.0.1:8080/v1",
			Model:          "gemma-3n-e2b-it",
			MaxTokens:      2048,
			Temperature:    0.7,
			TopP:           0.9,
			TimeoutSeconds: 120,
		},
		Validation: ValidationConfig{
			Mode:       "fail-fast",
			Extraction: "bracket-span",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Notifications: NotifyConfig{
			Enabled:    false,
			MinSeconds: 20,
		},
	}
}

// Timeout is the per-request generation timeout.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// ConfigDir resolves $CLARITY_CONFIG_DIR, then $XDG_CONFIG_HOME/clarity,
// then ~/.config/clarity.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CLARITY_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "clarity"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "clarity"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath returns the history database path, defaulting to the config dir.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "clarity.db"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path over the defaults. A missing file
// yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLARITY_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("CLARITY_MODEL_SHA256"); v != "" {
		cfg.Model.SHA256 = v
	}
	if v := os.Getenv("CLARITY_BASE_URL"); v != "" {
		cfg.Generation.BaseURL = v
	}
	if v := os.Getenv("CLARITY_GENERATION_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("CLARITY_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes the default config to path unless a file exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	cfg := DefaultConfig()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
