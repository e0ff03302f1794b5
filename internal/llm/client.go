package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	requestTimeout  = 60 * time.Second
	maxOutputTokens = 4096
)

// Message roles understood by every provider.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is the interface for LLM providers.
type Client interface {
	Generate(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// NewClient creates an LLM client based on the model name.
//
// Format: "provider:model" (colon is mandatory).
//
//	"google:gemini-2.5-flash"       → GeminiClient
//	"anthropic:claude-sonnet-4-6"   → ClaudeClient
//	"openai:gpt-4o"                 → OpenAICompatibleClient (OpenAI)
//	"mistral:mistral-large-latest"  → OpenAICompatibleClient (Mistral)
//	"ollama:llama3"                 → OpenAICompatibleClient (Ollama)
//	"openrouter:anthropic/claude-3" → OpenAICompatibleClient (OpenRouter)
func NewClient(model string) (Client, error) {
	provider, modelName, hasColon := strings.Cut(model, ":")
	if !hasColon || modelName == "" {
		return nil, fmt.Errorf("invalid model format %q: expected \"provider:model\" (e.g. \"google:gemini-2.5-flash\")", model)
	}

	switch provider {
	case "google":
		return NewGeminiClient(modelName)
	case "anthropic":
		return NewClaudeClient(modelName)
	default:
		cfg, ok := providers[provider]
		if !ok {
			return nil, fmt.Errorf("unknown LLM provider: %q", provider)
		}
		return NewOpenAICompatibleClient(cfg, modelName), nil
	}
}

// ToGeminiRole converts a role to Gemini's format ("assistant" → "model").
func ToGeminiRole(role string) string {
	if role == RoleAssistant {
		return "model"
	}
	return role
}
