package openai

import (
	"encoding/json"
	"fmt"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	completionsPath    = "/chat/completions"
	azureDeploymentFmt = "/openai/deployments/%s/chat/completions?api-version=%s"
	defaultAPIVersion  = "2024-06-01"
	defaultHTTPTimeout = 120 // seconds
	userAgent          = "chatloop-go/openai"
)

// CompletionRequest follows the chat-completions API contract.
type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Tools       []ToolParam   `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

// ChatMessage represents one conversational turn on the wire. Tool-result
// turns set ToolCallID; assistant turns may carry ToolCalls.
type ChatMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	Reasoning  string          `json:"reasoning,omitempty"`
	ToolCalls  []ToolCallParam `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// ToolParam advertises one callable function to the model.
type ToolParam struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef carries the name, description and JSON-schema parameters of a
// tool definition.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCallParam is a tool invocation attached to an assistant message.
type ToolCallParam struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the target function and its serialized arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// CompletionResponse captures the subset of the response schema we consume.
type CompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []Choice     `json:"choices"`
	Usage   UsagePayload `json:"usage"`
}

// Choice wraps one candidate assistant message.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// UsagePayload reports token accounting for the request.
type UsagePayload struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse models API error payloads.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody drills into the API error object.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// APIError surfaces endpoint errors with HTTP metadata.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("completion API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion API error (%d, %s): %s", e.StatusCode, e.Type, e.Message)
}
