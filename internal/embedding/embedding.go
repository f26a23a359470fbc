package embedding

import (
	"fmt"
)

// NewModel creates an embedding model client for the given provider tag and
// model name. baseURL is only consulted by self-hosted providers.
func NewModel(provider, model, apiKey, baseURL string) (Embedding, error) {
	switch Provider(provider) {
	case Google:
		return NewGoogleModel(apiKey, model)
	case OpenAI:
		return NewOpenAIModel(apiKey, model)
	case Ollama:
		return NewOllamaModel(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
