package providers

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/relay/conversation"
)

// TurnRole is the speaker of a Turn from the model's point of view.
type TurnRole string

const (
	TurnUser      TurnRole = "user"
	TurnAssistant TurnRole = "assistant"
	TurnSystem    TurnRole = "system"
)

// Turn is a provider-neutral rendering of one conversation message.
type Turn struct {
	Role TurnRole
	Text string
}

// Turns renders a snapshot as seen by the participant self. Messages self
// authored become assistant turns. Messages from anyone else become user
// turns prefixed with their author, except the workflow input which is
// passed through as is. Empty messages are skipped.
func Turns(self string, s conversation.Snapshot) []Turn {
	turns := make([]Turn, 0, s.Len())
	for _, m := range s.Messages() {
		text := messageText(m)
		if strings.TrimSpace(text) == "" {
			continue
		}
		switch {
		case m.Role == conversation.RoleSystem:
			turns = append(turns, Turn{Role: TurnSystem, Text: text})
		case m.Author == self && self != "":
			turns = append(turns, Turn{Role: TurnAssistant, Text: text})
		case m.Author == "" || m.Author == conversation.UserAuthor:
			turns = append(turns, Turn{Role: TurnUser, Text: text})
		default:
			turns = append(turns, Turn{Role: TurnUser, Text: fmt.Sprintf("[%s]: %s", m.Author, text)})
		}
	}
	return turns
}

func messageText(m conversation.Message) string {
	switch {
	case m.ToolCall != nil:
		return fmt.Sprintf("Called tool %s with %s", m.ToolCall.Name, string(m.ToolCall.Input))
	case m.ToolResult != nil:
		if m.ToolResult.IsError {
			return fmt.Sprintf("Tool %s failed: %s", m.ToolResult.Name, m.ToolResult.Output)
		}
		return fmt.Sprintf("Tool %s returned: %s", m.ToolResult.Name, m.ToolResult.Output)
	}
	return m.Text
}

// JoinInstructions joins the non-empty instruction parts with blank lines.
func JoinInstructions(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
