package llm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultOpenAIEndpoint = "https://api.openai.com"
	DefaultOpenAIModel    = "gpt-3.5-turbo-instruct"
)

// OpenAIClient implements Provider against the OpenAI text completions endpoint
type OpenAIClient struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration

	httpClient *http.Client
}

// NewOpenAI creates an OpenAI client. An empty key is accepted here and reported on first use.
func NewOpenAI(endpoint, model, apiKey string, timeout time.Duration) *OpenAIClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultOpenAIEndpoint
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{
		Endpoint:   strings.TrimRight(endpoint, "/"),
		Model:      model,
		APIKey:     strings.TrimSpace(apiKey),
		Timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type openAIRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	N           int     `json:"n"`
}

type openAIResponse struct {
	Choices []struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Name returns provider name
func (c *OpenAIClient) Name() string { return "openai" }

// Complete sends the prompt to /v1/completions and returns the first choice, trimmed
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if c.APIKey == "" {
		return "", completionError(c.Name(), "OPENAI_API_KEY is not set")
	}
	opts = opts.withDefaults()

	data, err := json.Marshal(openAIRequest{
		Model:       c.Model,
		Prompt:      prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		N:           1,
	})
	if err != nil {
		return "", completionError(c.Name(), "encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/v1/completions", bytes.NewReader(data))
	if err != nil {
		return "", completionError(c.Name(), "build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", completionError(c.Name(), "request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", completionError(c.Name(), "read response: %w", err)
	}

	var out openAIResponse
	decodeErr := json.Unmarshal(body, &out)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return "", completionError(c.Name(), "status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", completionError(c.Name(), "status %s", resp.Status)
	}
	if decodeErr != nil {
		return "", completionError(c.Name(), "decode response: %w", decodeErr)
	}
	if len(out.Choices) == 0 {
		return "", &CompletionError{Provider: c.Name(), Cause: ErrEmptyCompletion}
	}
	text := strings.TrimSpace(out.Choices[0].Text)
	if text == "" {
		return "", &CompletionError{Provider: c.Name(), Cause: ErrEmptyCompletion}
	}
	return text, nil
}

