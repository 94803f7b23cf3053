package repository

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/ayush6624/go-chatgpt"
)

const (
	defaultChatModel       = "gpt-4o-mini"
	defaultChatTemperature = 0.4
	defaultChatMaxTokens   = 400

	maxChatMessages      = 12
	maxChatContentLength = 2000
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResult struct {
	Reply ChatMessage `json:"reply"`
	Usage any         `json:"usage,omitempty"`
}

// GptRepository proxies chat completions so the API key stays
// server-side. History is trimmed and clamped before it leaves.
type GptRepository interface {
	Chat(ctx context.Context, messages []ChatMessage, model string, temperature float64, maxTokens int) (*ChatResult, error)
}

func NewGptRepository(apiKey string) (GptRepository, error) {
	client, err := chatgpt.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to construct gpt client: %w", err)
	}

	return &gptRepositoryHandler{
		GptClient: client,
	}, nil
}

type gptRepositoryHandler struct {
	GptClient *chatgpt.Client
}

// TrimChatHistory clamps each message to 2000 chars, coerces unknown
// roles to user, drops empties, and keeps only the last 12 turns.
func TrimChatHistory(messages []ChatMessage) []chatgpt.ChatMessage {
	trimmed := []chatgpt.ChatMessage{}
	for _, message := range messages {
		role := chatgpt.ChatGPTModelRoleUser
		switch message.Role {
		case "system":
			role = chatgpt.ChatGPTModelRoleSystem
		case "assistant":
			role = chatgpt.ChatGPTModelRoleAssistant
		}

		content := message.Content
		if len(content) > maxChatContentLength {
			cut := maxChatContentLength
			// never split a rune at the clamp boundary
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut]
		}
		if content == "" {
			continue
		}

		trimmed = append(trimmed, chatgpt.ChatMessage{
			Role:    role,
			Content: content,
		})
	}

	if len(trimmed) > maxChatMessages {
		trimmed = trimmed[len(trimmed)-maxChatMessages:]
	}
	if len(trimmed) == 0 {
		trimmed = append(trimmed, chatgpt.ChatMessage{
			Role:    chatgpt.ChatGPTModelRoleUser,
			Content: "Hello, can you assist me with trading questions?",
		})
	}

	return trimmed
}

func (h *gptRepositoryHandler) Chat(ctx context.Context, messages []ChatMessage, model string, temperature float64, maxTokens int) (*ChatResult, error) {
	if model == "" {
		model = defaultChatModel
	}
	if temperature <= 0 {
		temperature = defaultChatTemperature
	}
	if maxTokens <= 0 {
		maxTokens = defaultChatMaxTokens
	}

	response, err := h.GptClient.Send(ctx, &chatgpt.ChatCompletionRequest{
		Model:       chatgpt.ChatGPTModel(model),
		Messages:    TrimChatHistory(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	choice := response.Choices[0].Message
	return &ChatResult{
		Reply: ChatMessage{
			Role:    string(choice.Role),
			Content: choice.Content,
		},
		Usage: response.Usage,
	}, nil
}
