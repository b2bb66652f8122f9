package factory

import (
	"fmt"

	"ai-topic-notes/pkg/llm"
	"ai-topic-notes/pkg/llm/ollama"
	"ai-topic-notes/pkg/llm/openaicompat"
)

// NewLLMProvider returns (nil, nil) for provider "none" so chat and summary
// generation can be switched off.
func NewLLMProvider(providerType, modelName, baseURL string) (llm.LLMProvider, error) {
	switch providerType {
	case "none", "":
		return nil, nil
	case "ollama":
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "openai", "hackclub":
		return openaicompat.NewProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
