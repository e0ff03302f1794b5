package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// providerConfig holds the configuration for an OpenAI-compatible provider.
type providerConfig struct {
	name      string
	baseURL   string
	apiKeyEnv string
	headers   map[string]string
}

// providers is the registry of OpenAI-compatible provider configurations.
// Adding a new provider requires only a new entry here.
var providers = map[string]providerConfig{
	"openai": {
		name:      "openai",
		baseURL:   "https://api.openai.com/v1",
		apiKeyEnv: "OPENAI_API_KEY",
	},
	"mistral": {
		name:      "mistral",
		baseURL:   "https://api.mistral.ai/v1",
		apiKeyEnv: "MISTRAL_API_KEY",
	},
	"ollama": {
		name:      "ollama",
		baseURL:   "http://localhost:11434/v1",
		apiKeyEnv: "",
	},
	"openrouter": {
		name:      "openrouter",
		baseURL:   "https://openrouter.ai/api/v1",
		apiKeyEnv: "OPENROUTER_API_KEY",
		headers: map[string]string{
			"HTTP-Referer": "https://github.com/agent-host",
			"X-Title":      "Agent Host",
		},
	},
}

// OpenAICompatibleClient talks to any API speaking the OpenAI Chat Completions protocol.
type OpenAICompatibleClient struct {
	model  string
	config providerConfig
	opts   []option.RequestOption
}

// NewOpenAICompatibleClient creates a new client for the given provider config and model name.
// Validation is lazy: missing API keys do not cause errors at creation time.
func NewOpenAICompatibleClient(cfg providerConfig, model string, opts ...option.RequestOption) *OpenAICompatibleClient {
	// Ollama: override base URL from env var
	if cfg.name == "ollama" {
		if envURL := os.Getenv("OLLAMA_BASE_URL"); envURL != "" {
			cfg.baseURL = envURL
		}
	}
	return &OpenAICompatibleClient{model: model, config: cfg, opts: opts}
}

// Generate sends the conversation and returns the first choice's text.
func (c *OpenAICompatibleClient) Generate(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	opts := []option.RequestOption{
		option.WithBaseURL(c.config.baseURL),
		option.WithRequestTimeout(requestTimeout),
	}
	if c.config.apiKeyEnv != "" {
		apiKey := os.Getenv(c.config.apiKeyEnv)
		if apiKey == "" {
			return "", fmt.Errorf("%s environment variable not set", c.config.apiKeyEnv)
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		opts = append(opts, option.WithAPIKey(c.config.name))
	}
	for k, v := range c.config.headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	client := openai.NewClient(append(opts, c.opts...)...)

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: toOpenAIMessages(systemPrompt, messages),
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.config.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.config.name)
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(systemPrompt string, messages []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" {
		result = append(result, openai.SystemMessage(systemPrompt))
	}
	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}
