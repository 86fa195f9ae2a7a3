package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/videoqa/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Completer generates an answer from a system instruction and a user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewCompleter builds the completion client selected by cfg.Provider.
func NewCompleter(cfg *config.CompletionConfig) (Completer, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewCompletionService(cfg), nil
	case "ollama":
		return NewOllamaCompleter(cfg)
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Provider)
	}
}

// CompletionService calls an OpenAI-compatible chat completion endpoint.
type CompletionService struct {
	client      *resty.Client
	model       string
	endpoint    string
	temperature float64
	maxTokens   int
}

// NewCompletionService creates a new completion service.
// Parameters:
//   - cfg: completion configuration including model, API key and limits.
//
// Returns:
//   - *CompletionService: initialized chat client wrapper.
func NewCompletionService(cfg *config.CompletionConfig) *CompletionService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &CompletionService{
		client:      client,
		model:       cfg.Model,
		endpoint:    baseURL + "/chat/completions",
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// GetModel returns the model name being used.
func (s *CompletionService) GetModel() string {
	return s.model
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the system and user messages and returns the first choice.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - system: instruction message.
//   - user: prompt carrying context and question.
//
// Returns:
//   - string: generated answer text.
//   - error: non-nil if the API request fails or returns no choice.
func (s *CompletionService) Complete(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}

	var resp chatResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call completion API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("completion API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("completion API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response (status: %d)", httpResp.StatusCode())
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// OllamaCompleter generates answers with a local Ollama model.
type OllamaCompleter struct {
	llm         *ollama.LLM
	temperature float64
	maxTokens   int
}

// NewOllamaCompleter creates a completer backed by langchaingo's Ollama client.
func NewOllamaCompleter(cfg *config.CompletionConfig) (*OllamaCompleter, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &OllamaCompleter{llm: llm, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}, nil
}

// Complete sends the system and user messages as one chat turn.
func (c *OllamaCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("ollama completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in ollama response")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
