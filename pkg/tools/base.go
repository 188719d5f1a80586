package tools

import "context"

// Tool is the interface all tools implement.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *ToolResult
}

// ClosableTool is an optional interface for tools that hold runtime
// resources and require explicit teardown on shutdown.
type ClosableTool interface {
	Tool
	Close() error
}

// ToolResult is the outcome of one tool execution. ForLLM is what the
// model sees as grounding context; ForUser is what the client may be
// shown directly (often the same text).
type ToolResult struct {
	ForLLM  string
	ForUser string
	IsError bool
	Err     error
}

// OKResult builds a successful result with identical model/user text.
func OKResult(text string) *ToolResult {
	return &ToolResult{ForLLM: text, ForUser: text}
}

// ErrorResult builds a failed result carrying a message for the model.
func ErrorResult(message string) *ToolResult {
	return &ToolResult{ForLLM: message, IsError: true}
}

// WithError attaches the underlying error to a result.
func (r *ToolResult) WithError(err error) *ToolResult {
	r.Err = err
	return r
}

func ToolToSchema(tool Tool) map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"parameters":  tool.Parameters(),
		},
	}
}
