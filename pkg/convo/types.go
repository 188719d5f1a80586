package convo

import "time"

// Role values for turns. Stored as plain strings in SQLite.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ToolCall records one tool invocation attached to an assistant turn.
type ToolCall struct {
	Name   string                 `json:"name"`
	Args   map[string]interface{} `json:"args,omitempty"`
	Result string                 `json:"result,omitempty"`
}

// Turn is a single message in a conversation. Turns are append-only
// and never mutated once stored.
type Turn struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Conversation is an ordered turn log with identity metadata.
// Turns is chronological, oldest first.
type Conversation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ProjectID string    `json:"project_id,omitempty"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationSummary is the listing view: metadata without turns.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ProjectID string    `json:"project_id,omitempty"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project groups conversations and carries free-form context that is
// injected into the system prompt for its conversations.
type Project struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Context   map[string]string `json:"context,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
