package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Sanitize returns a snapshot in which every tool_call and tool_result
// message has been replaced by a plain participant text message describing
// it. Tool records are bound to the context that produced them and cannot be
// replayed verbatim elsewhere. All other messages are kept as is and order is
// preserved.
func Sanitize(s Snapshot) Snapshot {
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = SanitizeMessage(m)
	}
	return Snapshot{messages: out}
}

// SanitizeMessage converts a single tool message to text. Non-tool messages
// are returned unchanged.
func SanitizeMessage(m Message) Message {
	switch m.Role {
	case RoleToolCall:
		var name, args string
		if m.ToolCall != nil {
			name = m.ToolCall.Name
			args = compactArgs(m.ToolCall.Input)
		} else {
			args = "{}"
		}
		return Message{
			Role:            RoleParticipant,
			Text:            fmt.Sprintf("[Tool Call: %s(%s)]", name, args),
			OriginContextID: m.OriginContextID,
			Author:          m.Author,
		}
	case RoleToolResult:
		var id, value string
		if m.ToolResult != nil {
			id = m.ToolResult.ToolCallID
			value = m.ToolResult.Output
		}
		return Message{
			Role:            RoleParticipant,
			Text:            fmt.Sprintf("[Tool Result for %s: %s]", id, value),
			OriginContextID: m.OriginContextID,
			Author:          m.Author,
		}
	default:
		return m.clone()
	}
}

func compactArgs(input json.RawMessage) string {
	if len(bytes.TrimSpace(input)) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, input); err != nil {
		return string(input)
	}
	return buf.String()
}
