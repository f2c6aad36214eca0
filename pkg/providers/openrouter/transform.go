package openrouter

import (
	"fmt"

	"mercator-hq/kyosan/pkg/providers"
)

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatError is returned by OpenRouter in a 200 body when an upstream model
// fails.
type chatError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

func toChatRequest(req *providers.CompletionRequest) chatRequest {
	out := chatRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	for i, m := range req.Messages {
		out.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func fromChatResponse(name string, resp *chatResponse) (*providers.CompletionResponse, error) {
	if resp.Error != nil {
		return nil, &providers.ProviderError{
			Provider: name,
			Message:  fmt.Sprintf("upstream error (code %v): %s", resp.Error.Code, resp.Error.Message),
		}
	}
	if len(resp.Choices) == 0 {
		return nil, &providers.ParseError{Provider: name, Cause: fmt.Errorf("response has no choices")}
	}

	choice := resp.Choices[0]
	out := &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
	}
	if resp.Usage != nil {
		out.Usage = providers.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}
