package llm

import (
	"context"
	"errors"
	"fmt"
)

const (
	DefaultMaxTokens   = 150
	DefaultTemperature = 0.7
)

// ErrEmptyCompletion is the cause recorded when a provider answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Provider defines a generic LLM interface
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Options tunes a single completion request
type Options struct {
	MaxTokens   int
	Temperature float64
}

// DefaultOptions returns the sampling parameters used for replies
func DefaultOptions() Options {
	return Options{MaxTokens: DefaultMaxTokens, Temperature: DefaultTemperature}
}

func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature < 0 {
		o.Temperature = DefaultTemperature
	}
	return o
}

// CompletionError reports a failed completion request.
type CompletionError struct {
	Provider string
	Cause    error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Cause)
}

func (e *CompletionError) Unwrap() error { return e.Cause }

func completionError(provider string, format string, args ...interface{}) *CompletionError {
	return &CompletionError{Provider: provider, Cause: fmt.Errorf(format, args...)}
}
