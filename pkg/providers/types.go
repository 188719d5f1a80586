package providers

import "context"

// Message roles in provider wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one chat message in OpenAI-compatible wire format.
type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolDefinition describes one callable tool in wire format.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LLMResponse is a completed (or accumulated) model reply.
type LLMResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        *UsageInfo
	Model        string
}

// StreamEventType discriminates StreamEvent variants.
type StreamEventType int

const (
	StreamToken StreamEventType = iota
	StreamToolCall
	StreamError
	StreamDone
)

// StreamEvent is one unit of a streamed reply: a token, a tool call,
// an error, or the terminal done marker. Exactly one of the payload
// fields is meaningful per type.
type StreamEvent struct {
	Type     StreamEventType
	Token    string
	ToolCall *ToolCall
	Err      error
	Response *LLMResponse // set on StreamDone with the accumulated reply
}

// StreamCallback receives stream events in arrival order. It is called
// from a single goroutine; a final StreamDone or StreamError event
// always terminates the sequence.
type StreamCallback func(StreamEvent)

// ChatOptions tune a single completion call. Zero values mean
// provider defaults; Temperature is a pointer so 0 is requestable.
type ChatOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// LLMProvider is the minimal synchronous completion surface.
type LLMProvider interface {
	Name() string
	DefaultModel() string
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions) (*LLMResponse, error)
}

// StreamingProvider additionally streams tokens as they arrive. The
// returned response carries the accumulated content, including any
// partial content when err is non-nil.
type StreamingProvider interface {
	LLMProvider
	Stream(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions, cb StreamCallback) (*LLMResponse, error)
}
