package adapter

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient talks to any OpenAI compatible chat completion endpoint
// (OpenAI, DeepSeek, SiliconFlow and so on) in JSON object mode.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
	model   string
}

func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = url
	}
}

func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// NewOpenAI creates a client. SDK level retries are disabled because the oracle
// layer owns the retry policy.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, goerr.New("openai api key is required")
	}

	cfg := &openAIConfig{model: "gpt-4o-mini"}
	for _, opt := range opts {
		opt(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	client := openai.NewClient(reqOpts...)
	return &OpenAIClient{
		client: &client,
		model:  cfg.model,
	}, nil
}

// GenerateJSON sends the request in JSON object mode. The schema is appended to the
// system instructions because JSON object mode does not take a schema.
func (c *OpenAIClient) GenerateJSON(ctx context.Context, req *JSONRequest) (string, error) {
	system := req.System
	if req.Schema != nil {
		raw, err := json.MarshalIndent(req.Schema, "", "  ")
		if err != nil {
			return "", goerr.Wrap(err, "failed to marshal response schema", goerr.V("name", req.Name))
		}
		system += "\n\nRespond with a single JSON object that conforms to this JSON Schema:\n" + string(raw)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(float64(req.Temperature)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create chat completion", goerr.V("name", req.Name), goerr.V("model", c.model))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", goerr.New("empty response from chat completion", goerr.V("name", req.Name))
	}

	return resp.Choices[0].Message.Content, nil
}
