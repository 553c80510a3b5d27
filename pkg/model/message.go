package model

// Conversation roles understood by the completion backends.
const (
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single conversational turn exchanged with a model.
// Histories are append-only: callers construct new slices instead of
// mutating messages in place.
type Message struct {
	Role      string
	Content   string
	Reasoning string
	ToolCalls []ToolCall
	// ToolCallID links a RoleTool message back to the ToolCall it resolves.
	ToolCallID string
}

// ToolCall captures a tool invocation emitted by an assistant message.
// Arguments holds the serialized JSON payload exactly as the model sent it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDef is the descriptor advertised to the model for one callable tool.
type ToolDef struct {
	Name        string
	Description string
	Parameters  []byte
}

// Usage reports the token accounting returned by a completion endpoint.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add combines two usage reports, used to accumulate across tool rounds.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// Completion is the normalized result of one completion call. Messages holds
// one entry per candidate choice returned by the endpoint, in wire order.
type Completion struct {
	Messages []Message
	Usage    Usage
}
