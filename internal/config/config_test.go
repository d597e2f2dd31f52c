package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, 10, cfg.MaxResults)
	assert.Equal(t, TokenStoreFile, cfg.TokenStore)
	assert.True(t, cfg.InteractiveAuth)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, filepath.Join("logs", "app.log"), cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Journal.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultLLMConfig(t *testing.T) {
	cfg := DefaultLLMConfig()

	assert.Equal(t, "openai", cfg.Provider)
	assert.Empty(t, cfg.Model, "each provider picks its own default model")
	assert.Equal(t, 150, cfg.MaxTokens)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, "30s", cfg.Timeout)
	assert.Empty(t, cfg.APIKey)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxResults)
}

func TestLoadConfig_JSON(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "max_results": 25,
  "dry_run": true,
  "llm": {"provider": "ollama", "model": "llama3", "temperature": 0.2},
  "journal": {"enabled": true, "path": "/tmp/replies.db"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MaxResults)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, 150, cfg.LLM.MaxTokens, "unset fields keep defaults")
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "/tmp/replies.db", cfg.Journal.Path)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
token_store: keyring
max_results: 3
log_level: debug
gmail:
  requests_per_second: 2
  breaker_failures: 7
llm:
  provider: bedrock
  region: eu-west-1
  model: anthropic.claude-3-haiku-20240307-v1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, TokenStoreKeyring, cfg.TokenStore)
	assert.Equal(t, 3, cfg.MaxResults)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Gmail.RequestsPerSecond)
	assert.Equal(t, uint32(7), cfg.Gmail.BreakerFailures)
	assert.Equal(t, "bedrock", cfg.LLM.Provider)
	assert.Equal(t, "eu-west-1", cfg.LLM.Region)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{ not json"), 0o644))
	_, err := LoadConfig(jsonPath)
	assert.ErrorContains(t, err, "parse config")

	yamlPath := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("max_results: [1, 2"), 0o644))
	_, err = LoadConfig(yamlPath)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadConfig_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"llm":{"api_key":"sk-file"}}`), 0o600))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("AUTOREPLY_TEST_FROM_DOTENV=loaded\nAUTOREPLY_TEST_PRESET=from-file\n"), 0o600))

	t.Setenv("AUTOREPLY_TEST_FROM_DOTENV", "")
	require.NoError(t, os.Unsetenv("AUTOREPLY_TEST_FROM_DOTENV"))
	t.Setenv("AUTOREPLY_TEST_PRESET", "from-env")

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("AUTOREPLY_TEST_FROM_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("AUTOREPLY_TEST_PRESET"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero_max_results", func(c *Config) { c.MaxResults = 0 }, "max_results"},
		{"negative_max_tokens", func(c *Config) { c.LLM.MaxTokens = -1 }, "llm.max_tokens"},
		{"temperature_too_high", func(c *Config) { c.LLM.Temperature = 2.5 }, "llm.temperature"},
		{"unknown_provider", func(c *Config) { c.LLM.Provider = "palm" }, "llm.provider"},
		{"unknown_token_store", func(c *Config) { c.TokenStore = "vault" }, "token_store"},
		{"bad_timeout", func(c *Config) { c.LLM.Timeout = "soon" }, "llm.timeout"},
		{"bad_breaker_timeout", func(c *Config) { c.Gmail.BreakerTimeout = "1 minute" }, "gmail.breaker_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxResults = -5
	cfg.LLM.Provider = "nope"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_results")
	assert.Contains(t, err.Error(), "llm.provider")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)
			cfg := DefaultConfig()
			cfg.MaxResults = 42
			cfg.LLM.APIKey = "sk-secret"

			require.NoError(t, cfg.SaveConfig(path))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.NotContains(t, string(data), "sk-secret")

			t.Setenv("OPENAI_API_KEY", "")
			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, 42, loaded.MaxResults)
			assert.Empty(t, loaded.LLM.APIKey)
			assert.Equal(t, "sk-secret", cfg.LLM.APIKey, "caller's config untouched")
		})
	}
}

func TestSaveConfig_JSONShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, DefaultConfig().SaveConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "max_results")
	assert.Contains(t, raw, "llm")
	assert.Contains(t, raw, "journal")
}

func TestTimeouts(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetBreakerTimeout())

	cfg.LLM.Timeout = "5s"
	cfg.Gmail.BreakerTimeout = "1m"
	assert.Equal(t, 5*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, time.Minute, cfg.GetBreakerTimeout())

	cfg.LLM.Timeout = "garbage"
	assert.Equal(t, 30*time.Second, cfg.GetLLMTimeout())
}
