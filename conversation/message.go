// Package conversation holds the append-only message history shared between
// workflow participants, along with the sanitizer that makes a history safe
// to hand to a different execution context.
package conversation

import (
	"encoding/json"
)

// Role identifies the kind of a Message.
type Role string

const (
	RoleUser        Role = "user"
	RoleParticipant Role = "participant"
	RoleToolCall    Role = "tool_call"
	RoleToolResult  Role = "tool_result"
	RoleSystem      Role = "system"
)

func (r Role) String() string {
	return string(r)
}

// ExternalAuthor is the author recorded on messages submitted by a human in
// response to an information request.
const ExternalAuthor = "human"

// UserAuthor is the author recorded on the initial workflow input.
const UserAuthor = "user"

// ToolCallPayload is the structured content of a tool_call message.
type ToolCallPayload struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolResultPayload is the structured content of a tool_result message.
type ToolResultPayload struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name,omitempty"`
	Output     string `json:"output"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Message is a single entry in a conversation. Messages are values; once
// created they are never modified.
type Message struct {
	Role            Role               `json:"role"`
	Text            string             `json:"text,omitempty"`
	ToolCall        *ToolCallPayload   `json:"tool_call,omitempty"`
	ToolResult      *ToolResultPayload `json:"tool_result,omitempty"`
	OriginContextID string             `json:"origin_context_id,omitempty"`
	Author          string             `json:"author,omitempty"`
}

// NewUserMessage returns the message that opens an execution.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text, Author: UserAuthor}
}

// NewExternalMessage returns a message attributed to the external actor that
// answered an information request.
func NewExternalMessage(text string) Message {
	return Message{Role: RoleUser, Text: text, Author: ExternalAuthor}
}

// NewParticipantMessage returns a text message produced by a participant.
func NewParticipantMessage(author, text string) Message {
	return Message{Role: RoleParticipant, Text: text, Author: author}
}

// NewSystemMessage returns a system message.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Text: text}
}

// NewToolCallMessage returns a tool_call message produced by a participant.
func NewToolCallMessage(author string, call ToolCallPayload) Message {
	return Message{Role: RoleToolCall, ToolCall: &call, Author: author}
}

// NewToolResultMessage returns a tool_result message produced by a participant.
func NewToolResultMessage(author string, result ToolResultPayload) Message {
	return Message{Role: RoleToolResult, ToolResult: &result, Author: author}
}

// WithOrigin returns a copy of the message stamped with the execution
// context it was produced in.
func (m Message) WithOrigin(contextID string) Message {
	m.OriginContextID = contextID
	return m
}

// IsTool reports whether the message carries a tool payload.
func (m Message) IsTool() bool {
	return m.Role == RoleToolCall || m.Role == RoleToolResult
}

// Equal reports whether two messages have identical content.
func (m Message) Equal(other Message) bool {
	if m.Role != other.Role ||
		m.Text != other.Text ||
		m.OriginContextID != other.OriginContextID ||
		m.Author != other.Author {
		return false
	}
	switch {
	case m.ToolCall == nil && other.ToolCall != nil,
		m.ToolCall != nil && other.ToolCall == nil:
		return false
	case m.ToolCall != nil:
		if m.ToolCall.ID != other.ToolCall.ID ||
			m.ToolCall.Name != other.ToolCall.Name ||
			string(m.ToolCall.Input) != string(other.ToolCall.Input) {
			return false
		}
	}
	switch {
	case m.ToolResult == nil && other.ToolResult != nil,
		m.ToolResult != nil && other.ToolResult == nil:
		return false
	case m.ToolResult != nil:
		if *m.ToolResult != *other.ToolResult {
			return false
		}
	}
	return true
}

func (m Message) clone() Message {
	if m.ToolCall != nil {
		call := *m.ToolCall
		if call.Input != nil {
			call.Input = append(json.RawMessage(nil), call.Input...)
		}
		m.ToolCall = &call
	}
	if m.ToolResult != nil {
		result := *m.ToolResult
		m.ToolResult = &result
	}
	return m
}
