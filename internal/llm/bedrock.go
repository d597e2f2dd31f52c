package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/goccy/go-json"
)

// invoker is the slice of the Bedrock runtime API used here
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient implements Provider for Amazon Bedrock
type BedrockClient struct {
	Region  string
	Model   string
	Timeout time.Duration

	svc invoker
}

// NewBedrock initializes a Bedrock client using default AWS config chain
func NewBedrock(ctx context.Context, region, model string, timeout time.Duration) (*BedrockClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("bedrock model is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var cfg aws.Config
	var err error
	if strings.TrimSpace(region) != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	} else {
		// region may come from the AWS profile or env
		cfg, err = awsconfig.LoadDefaultConfig(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS region not resolved. Set llm.region, AWS_REGION or define region in the selected AWS profile")
	}
	return &BedrockClient{Region: cfg.Region, Model: model, Timeout: timeout, svc: bedrockruntime.NewFromConfig(cfg)}, nil
}

// Name returns provider name
func (b *BedrockClient) Name() string { return "bedrock" }

// Complete sends a prompt to Bedrock and returns the generated text
func (b *BedrockClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	switch detectBedrockFamily(b.Model) {
	case "anthropic":
		return b.completeAnthropic(ctx, prompt, opts.withDefaults())
	default:
		return "", completionError(b.Name(), "unsupported Bedrock model family for %q", b.Model)
	}
}

func (b *BedrockClient) completeAnthropic(ctx context.Context, prompt string, opts Options) (string, error) {
	modelID := normalizeModelID(b.Model)
	body, err := json.Marshal(map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        opts.MaxTokens,
		"temperature":       opts.Temperature,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": prompt},
				},
			},
		},
	})
	if err != nil {
		return "", completionError(b.Name(), "encode request: %w", err)
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	out, err := b.svc.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", &CompletionError{Provider: b.Name(), Cause: annotateBedrockError(fmt.Errorf("bedrock invoke error: %w", err), modelID)}
	}

	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", completionError(b.Name(), "decode Anthropic response: %w", err)
	}
	for _, c := range resp.Content {
		if c.Type == "text" && strings.TrimSpace(c.Text) != "" {
			return strings.TrimSpace(c.Text), nil
		}
	}
	return "", &CompletionError{Provider: b.Name(), Cause: ErrEmptyCompletion}
}

// normalizeModelID appends the :0 revision to bare model ids; ARNs and inference profiles are left alone
func normalizeModelID(model string) string {
	lower := strings.ToLower(model)
	if strings.HasPrefix(lower, "arn:") || strings.Contains(lower, "inference-profile/") || strings.Contains(model, ":") {
		return model
	}
	return model + ":0"
}

func detectBedrockFamily(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.Contains(m, "anthropic."):
		return "anthropic"
	case strings.Contains(m, "meta."):
		return "meta" // not yet implemented
	case strings.Contains(m, "amazon.titan"):
		return "titan" // not yet implemented
	default:
		return ""
	}
}

// annotateBedrockError adds common hints for Bedrock model ID issues
func annotateBedrockError(err error, modelID string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "validationexception") && strings.Contains(msg, "throughput isn't supported") {
		return fmt.Errorf("%w\nHint: This model may require an inference profile. Try setting llm.model to the profile ID/ARN for %q", err, modelID)
	}
	if strings.Contains(msg, "provided model identifier is invalid") {
		return fmt.Errorf("%w\nHint: Verify the exact Bedrock ModelId or use the inference profile ID. Regional prefixes (e.g., us.) and revision suffix (:0) may be required", err)
	}
	return err
}
