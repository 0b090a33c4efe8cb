package ai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint,
// typically a local llama.cpp or Ollama server.
type OpenAIConfig struct {
	BaseURL          string
	APIKey           string
	Model            string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	Timeout          time.Duration
	StructuredOutput bool
}

// OpenAI generates responses through the chat completions API.
type OpenAI struct {
	client openai.Client
	cfg    OpenAIConfig
	logger *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(1),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// local servers ignore the key but the client insists on one
		opts = append(opts, option.WithAPIKey("local"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		logger: logger,
	}
}

func (o *OpenAI) Name() string { return o.cfg.Model }

func (o *OpenAI) Generate(ctx context.Context, p Prompt) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(p.Text),
		},
	}
	if o.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.cfg.MaxTokens))
	}
	if o.cfg.Temperature > 0 {
		params.Temperature = openai.Float(o.cfg.Temperature)
	}
	if o.cfg.TopP > 0 {
		params.TopP = openai.Float(o.cfg.TopP)
	}
	if o.cfg.StructuredOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "suggestions",
					Description: openai.String("Suggestions with confidence and reasoning"),
					Schema:      Schema(),
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	o.logger.Debug("requesting chat completion",
		"base_url", o.cfg.BaseURL,
		"model", o.cfg.Model,
		"mode", p.Mode,
		"prompt_len", len(p.Text),
		"structured_output", o.cfg.StructuredOutput,
	)

	startTime := time.Now()
	completion, err := o.client.Chat.Completions.New(ctx, params)
	elapsed := time.Since(startTime)
	if err != nil {
		o.logger.Error("chat completion failed", "error", err, "elapsed", elapsed)
		if ctx.Err() != nil {
			return "", fmt.Errorf("model request timed out after %s", elapsed.Truncate(time.Second))
		}
		return "", fmt.Errorf("requesting chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat completion")
	}

	content := completion.Choices[0].Message.Content
	o.logger.Debug("chat completion finished",
		"elapsed", elapsed,
		"finish_reason", completion.Choices[0].FinishReason,
		"content_len", len(content),
		"content", truncateStr(content, 2000),
	)
	return content, nil
}
