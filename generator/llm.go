package generator

import "context"

// LLMClient abstracts the text-generation backend so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the backend configuration shared by the implementations.
type LLMSettings struct {
	// Provider is openai, gemini, deepseek or mock.
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewLLM returns the client for settings.Provider.
func NewLLM(cfg *LLMSettings) (LLMClient, error) {
	if cfg != nil && cfg.Provider == "mock" {
		return MockLLM{}, nil
	}
	return NewOpenAILLMFromConfig(cfg)
}
