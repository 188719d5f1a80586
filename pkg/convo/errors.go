package convo

import "errors"

var (
	// ErrConversationNotFound is returned by strict operations
	// (Append, History, Rename, Delete) for unknown conversation ids.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrProjectNotFound is returned for unknown project ids.
	ErrProjectNotFound = errors.New("project not found")

	// ErrEmptyRole is returned when appending a turn without a role.
	ErrEmptyRole = errors.New("turn role is empty")
)
