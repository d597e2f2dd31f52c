package llm

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultOllamaEndpoint = "http://localhost:11434/api/generate"
	DefaultOllamaModel    = "llama3.2:latest"
)

// OllamaClient represents an Ollama client for local LLM interactions
type OllamaClient struct {
	Endpoint string
	Model    string
	Timeout  time.Duration

	httpClient *http.Client
}

// NewOllama creates a new Ollama client
func NewOllama(endpoint, model string, timeout time.Duration) *OllamaClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultOllamaEndpoint
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultOllamaModel
	}
	return &OllamaClient{
		Endpoint:   endpoint,
		Model:      model,
		Timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ollamaRequest represents the JSON structure expected by Ollama
type ollamaRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Name returns provider name
func (c *OllamaClient) Name() string { return "ollama" }

// Complete sends a prompt to Ollama and returns the generated text
func (c *OllamaClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	opts = opts.withDefaults()
	data, err := json.Marshal(ollamaRequest{
		Model:  c.Model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]interface{}{
			"num_predict": opts.MaxTokens,
			"temperature": opts.Temperature,
		},
	})
	if err != nil {
		return "", completionError(c.Name(), "encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(data))
	if err != nil {
		return "", completionError(c.Name(), "build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", completionError(c.Name(), "request to Ollama failed: %w", err)
	}
	defer resp.Body.Close()

	var response ollamaResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&response)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && response.Error != "" {
			return "", completionError(c.Name(), "status %d: %s", resp.StatusCode, response.Error)
		}
		return "", completionError(c.Name(), "Ollama returned status %s", resp.Status)
	}
	if decodeErr != nil {
		return "", completionError(c.Name(), "decode Ollama response: %w", decodeErr)
	}

	text := strings.TrimSpace(response.Response)
	if text == "" {
		return "", &CompletionError{Provider: c.Name(), Cause: ErrEmptyCompletion}
	}
	return text, nil
}

// IsAvailable checks if the Ollama service is available
func (c *OllamaClient) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.Replace(c.Endpoint, "/api/generate", "/api/tags", 1), nil)
	if err != nil {
		return false
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
