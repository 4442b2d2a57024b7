package conversation

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/deepnoodle-ai/wonton/assert"
	"pgregory.net/rapid"
)

func TestAppendDoesNotMutateInput(t *testing.T) {
	base := NewSnapshot(NewUserMessage("hello"))
	next := Append(base, NewParticipantMessage("a", "hi"))

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, next.Len())
	assert.Equal(t, "hello", next.At(0).Text)
	assert.Equal(t, "hi", next.At(1).Text)

	// Two appends from the same base must not share storage.
	left := Append(base, NewParticipantMessage("a", "left"))
	right := Append(base, NewParticipantMessage("b", "right"))
	assert.Equal(t, "left", left.At(1).Text)
	assert.Equal(t, "right", right.At(1).Text)
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewSnapshot(NewToolCallMessage("a", ToolCallPayload{
		ID:    "call_1",
		Name:  "search",
		Input: json.RawMessage(`{"q":"go"}`),
	}))

	msgs := s.Messages()
	msgs[0].Text = "changed"
	msgs[0].ToolCall.Name = "other"

	assert.Equal(t, "", s.At(0).Text)
	assert.Equal(t, "search", s.At(0).ToolCall.Name)
}

func TestLastText(t *testing.T) {
	s := NewSnapshot(
		NewUserMessage("question"),
		NewParticipantMessage("a", "first"),
		NewToolCallMessage("b", ToolCallPayload{ID: "1", Name: "x"}),
		NewParticipantMessage("b", "second"),
	)

	text, ok := s.LastText("")
	assert.True(t, ok)
	assert.Equal(t, "second", text)

	text, ok = s.LastText("a")
	assert.True(t, ok)
	assert.Equal(t, "first", text)

	_, ok = s.LastText("missing")
	assert.False(t, ok)

	_, ok = Snapshot{}.LastText("")
	assert.False(t, ok)
}

func TestSnapshotJSON(t *testing.T) {
	s := NewSnapshot(
		NewUserMessage("question"),
		NewToolCallMessage("a", ToolCallPayload{ID: "1", Name: "lookup", Input: json.RawMessage(`{"k":1}`)}),
		NewToolResultMessage("a", ToolResultPayload{ToolCallID: "1", Output: "found"}),
		NewParticipantMessage("a", "done").WithOrigin("exec/0"),
	)
	data, err := json.Marshal(s)
	assert.NoError(t, err)

	var decoded Snapshot
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, s.Equal(decoded))

	empty, err := json.Marshal(Snapshot{})
	assert.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestSanitizeToolMessages(t *testing.T) {
	s := NewSnapshot(
		NewUserMessage("find go docs"),
		NewToolCallMessage("researcher", ToolCallPayload{
			ID:    "call_7",
			Name:  "web_search",
			Input: json.RawMessage("{\n  \"query\": \"go docs\"\n}"),
		}).WithOrigin("exec/1"),
		NewToolResultMessage("researcher", ToolResultPayload{
			ToolCallID: "call_7",
			Name:       "web_search",
			Output:     "https://go.dev/doc",
		}),
		NewParticipantMessage("researcher", "Found it."),
	)

	out := Sanitize(s)
	assert.Equal(t, 4, out.Len())
	assert.Equal(t, RoleUser, out.At(0).Role)
	assert.Equal(t, "find go docs", out.At(0).Text)

	call := out.At(1)
	assert.Equal(t, RoleParticipant, call.Role)
	assert.Equal(t, `[Tool Call: web_search({"query":"go docs"})]`, call.Text)
	assert.Equal(t, "researcher", call.Author)
	assert.Equal(t, "exec/1", call.OriginContextID)
	assert.Nil(t, call.ToolCall)

	result := out.At(2)
	assert.Equal(t, RoleParticipant, result.Role)
	assert.Equal(t, "[Tool Result for call_7: https://go.dev/doc]", result.Text)
	assert.Nil(t, result.ToolResult)

	assert.Equal(t, "Found it.", out.At(3).Text)

	// The input is left untouched.
	assert.Equal(t, RoleToolCall, s.At(1).Role)
}

func TestSanitizeEmptyArgs(t *testing.T) {
	m := SanitizeMessage(NewToolCallMessage("a", ToolCallPayload{ID: "1", Name: "now"}))
	assert.Equal(t, "[Tool Call: now({})]", m.Text)
}

func messageGenerator() *rapid.Generator[Message] {
	return rapid.Custom(func(t *rapid.T) Message {
		author := rapid.SampledFrom([]string{"a", "b", "coordinator"}).Draw(t, "author")
		text := rapid.StringN(0, 20, -1).Draw(t, "text")
		switch rapid.IntRange(0, 4).Draw(t, "kind") {
		case 0:
			return NewUserMessage(text)
		case 1:
			return NewParticipantMessage(author, text)
		case 2:
			return NewSystemMessage(text)
		case 3:
			n := rapid.IntRange(0, 100).Draw(t, "n")
			return NewToolCallMessage(author, ToolCallPayload{
				ID:    fmt.Sprintf("call_%d", n),
				Name:  "tool_" + author,
				Input: json.RawMessage(fmt.Sprintf(`{"n": %d}`, n)),
			})
		default:
			return NewToolResultMessage(author, ToolResultPayload{
				ToolCallID: fmt.Sprintf("call_%d", rapid.IntRange(0, 100).Draw(t, "id")),
				Output:     text,
			})
		}
	})
}

func TestPropertySanitizeIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msgs := rapid.SliceOfN(messageGenerator(), 0, 12).Draw(t, "messages")
		s := NewSnapshot(msgs...)

		once := Sanitize(s)
		twice := Sanitize(once)
		if !once.Equal(twice) {
			t.Fatalf("sanitize is not idempotent")
		}
		if once.Len() != s.Len() {
			t.Fatalf("sanitize changed length: %d -> %d", s.Len(), once.Len())
		}
		for i := 0; i < s.Len(); i++ {
			in, out := s.At(i), once.At(i)
			if out.IsTool() {
				t.Fatalf("message %d still carries a tool payload", i)
			}
			if !in.IsTool() && !in.Equal(out) {
				t.Fatalf("non-tool message %d was modified", i)
			}
			if in.Author != out.Author {
				t.Fatalf("message %d lost its author", i)
			}
		}
	})
}

func TestPropertyAppendMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := Snapshot{}
		steps := rapid.IntRange(1, 8).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			batch := rapid.SliceOfN(messageGenerator(), 0, 4).Draw(t, fmt.Sprintf("batch-%d", i))
			next := Append(s, batch...)
			if next.Len() < s.Len() {
				t.Fatalf("snapshot shrank from %d to %d", s.Len(), next.Len())
			}
			if !next.HasPrefix(s) {
				t.Fatalf("append rewrote history")
			}
			s = next
		}
	})
}
