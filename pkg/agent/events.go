package agent

// EventType discriminates the typed events a streamed exchange emits.
type EventType string

const (
	EventConversation EventType = "conversation"
	EventToken        EventType = "token"
	EventToolCall     EventType = "tool_call"
	EventToolResult   EventType = "tool_result"
	EventFollowUps    EventType = "followups"
	EventError        EventType = "error"
	EventDone         EventType = "done"
)

// Event is one frame of a streamed chat exchange. Every exchange ends
// with exactly one terminal frame: done or error.
type Event struct {
	Type           EventType              `json:"type"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Token          string                 `json:"token,omitempty"`
	Tool           string                 `json:"tool,omitempty"`
	Arguments      map[string]interface{} `json:"arguments,omitempty"`
	Result         string                 `json:"result,omitempty"`
	FollowUps      []string               `json:"followups,omitempty"`
	Provider       string                 `json:"provider,omitempty"`
	Model          string                 `json:"model,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

// EventSink receives events as they are produced. A nil sink is valid
// and discards everything.
type EventSink func(Event)

func (s EventSink) emit(ev Event) {
	if s != nil {
		s(ev)
	}
}

// state tracks a request through the processing pipeline. Used for
// logging and error attribution.
type state string

const (
	stateReceived        state = "RECEIVED"
	stateContextResolved state = "CONTEXT_RESOLVED"
	stateToolsExecuted   state = "TOOLS_EXECUTED"
	stateModelStreaming  state = "MODEL_STREAMING"
	statePersisted       state = "PERSISTED"
	stateDone            state = "DONE"
)
