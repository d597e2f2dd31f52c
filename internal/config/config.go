package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	TokenStoreFile    = "file"
	TokenStoreKeyring = "keyring"
)

// GmailConfig tunes how hard the mailbox API is driven
type GmailConfig struct {
	RequestsPerSecond int    `json:"requests_per_second" yaml:"requests_per_second"`
	BreakerFailures   uint32 `json:"breaker_failures" yaml:"breaker_failures"`
	BreakerTimeout    string `json:"breaker_timeout" yaml:"breaker_timeout"`
}

// LLMConfig holds all LLM-related configuration
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // openai, ollama, bedrock
	Model    string `json:"model" yaml:"model"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Region   string `json:"region" yaml:"region"` // For AWS Bedrock
	APIKey   string `json:"api_key" yaml:"api_key"`
	Timeout  string `json:"timeout" yaml:"timeout"`

	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// JournalConfig controls the sqlite record of sent replies
type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// Config holds all configuration for the auto-reply run
type Config struct {
	Credentials string `json:"credentials" yaml:"credentials"`
	Token       string `json:"token" yaml:"token"`
	// TokenStore selects where the OAuth token lives: "file" or "keyring"
	TokenStore      string `json:"token_store" yaml:"token_store"`
	InteractiveAuth bool   `json:"interactive_auth" yaml:"interactive_auth"`

	MaxResults int  `json:"max_results" yaml:"max_results"`
	DryRun     bool `json:"dry_run" yaml:"dry_run"`

	// Logging
	LogFile  string `json:"log_file" yaml:"log_file"`
	LogLevel string `json:"log_level" yaml:"log_level"`

	Gmail   GmailConfig   `json:"gmail" yaml:"gmail"`
	LLM     LLMConfig     `json:"llm" yaml:"llm"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		TokenStore:      TokenStoreFile,
		InteractiveAuth: true,
		MaxResults:      10,
		LogFile:         filepath.Join("logs", "app.log"),
		LogLevel:        "info",
		Gmail:           DefaultGmailConfig(),
		LLM:             DefaultLLMConfig(),
		Journal:         JournalConfig{Enabled: false},
	}
}

// DefaultGmailConfig returns default mailbox call limits
func DefaultGmailConfig() GmailConfig {
	return GmailConfig{
		RequestsPerSecond: 5,
		BreakerFailures:   5,
		BreakerTimeout:    "30s",
	}
}

// DefaultLLMConfig returns default LLM configuration
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:    "openai",
		Timeout:     "30s",
		MaxTokens:   150,
		Temperature: 0.7,
	}
}

// LoadDotEnv loads KEY=value pairs from the given files (".env" when none)
// into the environment. Variables already set win; missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from file. A missing file yields the defaults;
// a file that cannot be parsed is an error.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := decode(configPath, data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", configPath, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	if c.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("max_results must be positive, got %d", c.MaxResults))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be within [0, 2], got %g", c.LLM.Temperature))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "ollama", "bedrock":
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	switch c.TokenStore {
	case TokenStoreFile, TokenStoreKeyring:
	default:
		errs = append(errs, fmt.Errorf("unknown token_store %q", c.TokenStore))
	}
	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("invalid llm.timeout %q", c.LLM.Timeout))
		}
	}
	if c.Gmail.BreakerTimeout != "" {
		if _, err := time.ParseDuration(c.Gmail.BreakerTimeout); err != nil {
			errs = append(errs, fmt.Errorf("invalid gmail.breaker_timeout %q", c.Gmail.BreakerTimeout))
		}
	}
	return errors.Join(errs...)
}

// SaveConfig saves the configuration to a file, as YAML when the extension asks for it
func (c *Config) SaveConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// never write the API key back to disk
	out := *c
	out.LLM.APIKey = ""

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(&out)
	} else {
		data, err = json.MarshalIndent(&out, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// GetLLMTimeout returns parsed timeout for LLM
func (c *Config) GetLLMTimeout() time.Duration {
	if c.LLM.Timeout != "" {
		if d, err := time.ParseDuration(c.LLM.Timeout); err == nil {
			return d
		}
	}
	return 30 * time.Second
}

// GetBreakerTimeout returns how long the Gmail breaker stays open
func (c *Config) GetBreakerTimeout() time.Duration {
	if c.Gmail.BreakerTimeout != "" {
		if d, err := time.ParseDuration(c.Gmail.BreakerTimeout); err == nil {
			return d
		}
	}
	return 30 * time.Second
}
