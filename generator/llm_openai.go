package generator

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Gemini serves an OpenAI-compatible chat completions endpoint.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

var defaultModels = map[string]string{
	"openai": "gpt-4o-mini",
	"gemini": "gemini-2.0-flash",
}

// OpenAILLM implements LLMClient with the openai-go SDK (chat completions).
// Any OpenAI-compatible provider works through BaseURL.
type OpenAILLM struct {
	Model  string
	client openai.Client
}

func NewOpenAILLMFromConfig(cfg *LLMSettings, extra ...option.RequestOption) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "gemini"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s api key missing; provide llm.api_key", provider)
	}

	baseURL := cfg.BaseURL
	switch provider {
	case "gemini":
		if baseURL == "" {
			baseURL = geminiBaseURL
		}
	case "deepseek":
		if baseURL == "" {
			return nil, errors.New("deepseek requires llm.base_url")
		}
	case "openai":
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModels[provider]
	}
	if model == "" {
		return nil, errors.New("llm model is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)

	return &OpenAILLM{Model: model, client: openai.NewClient(opts...)}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", o.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
