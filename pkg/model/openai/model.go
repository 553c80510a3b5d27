package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	modelpkg "github.com/cexll/chatloop-go/pkg/model"
)

// Ensure ChatModel implements the Model interface.
var _ modelpkg.Model = (*ChatModel)(nil)

// ChatModel is a concrete model backed by a chat-completions endpoint.
type ChatModel struct {
	client   *http.Client
	endpoint string
	model    string
	headers  map[string]string
	opts     modelOptions
}

// Complete performs one blocking chat-completions call. Tools are advertised
// with tool_choice "auto"; the endpoint decides whether to emit tool calls.
func (m *ChatModel) Complete(ctx context.Context, messages []modelpkg.Message, tools []modelpkg.ToolDef) (*modelpkg.Completion, error) {
	payload := m.buildPayload(messages, tools)
	resp, err := m.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, readAPIError(resp)
	}

	var completion CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}

	return convertResponse(completion), nil
}

func (m *ChatModel) buildPayload(messages []modelpkg.Message, tools []modelpkg.ToolDef) CompletionRequest {
	payload := CompletionRequest{
		Model:       m.model,
		Messages:    toWireMessages(messages),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: m.opts.Temperature,
		TopP:        m.opts.TopP,
	}
	if len(tools) > 0 {
		payload.Tools = toWireTools(tools)
		payload.ToolChoice = "auto"
	}
	return payload
}

func (m *ChatModel) doRequest(ctx context.Context, payload CompletionRequest) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}

	for k, v := range m.headers {
		if v == "" {
			continue
		}
		req.Header.Set(k, v)
	}

	return m.client.Do(req)
}

func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("completion API status %d: %w", resp.StatusCode, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var apiErr ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return APIError{StatusCode: resp.StatusCode, Type: apiErr.Error.Type, Message: apiErr.Error.Message}
	}

	return APIError{StatusCode: resp.StatusCode, Message: string(body)}
}

func convertResponse(resp CompletionResponse) *modelpkg.Completion {
	out := &modelpkg.Completion{
		Usage: modelpkg.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, choice := range resp.Choices {
		out.Messages = append(out.Messages, fromWireMessage(choice.Message))
	}
	return out
}

func fromWireMessage(msg ChatMessage) modelpkg.Message {
	converted := modelpkg.Message{
		Role:       msg.Role,
		Content:    msg.Content,
		Reasoning:  msg.Reasoning,
		ToolCallID: msg.ToolCallID,
	}
	if converted.Role == "" {
		converted.Role = modelpkg.RoleAssistant
	}
	for _, call := range msg.ToolCalls {
		converted.ToolCalls = append(converted.ToolCalls, modelpkg.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return converted
}

func toWireMessages(messages []modelpkg.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		wire := ChatMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			Reasoning:  msg.Reasoning,
			ToolCallID: msg.ToolCallID,
		}
		for _, call := range msg.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, ToolCallParam{
				ID:   call.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		out = append(out, wire)
	}
	return out
}

func toWireTools(tools []modelpkg.ToolDef) []ToolParam {
	out := make([]ToolParam, 0, len(tools))
	for _, def := range tools {
		out = append(out, ToolParam{
			Type: "function",
			Function: FunctionDef{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(def.Parameters),
			},
		})
	}
	return out
}
