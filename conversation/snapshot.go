package conversation

import (
	"encoding/json"
)

// Snapshot is an immutable, ordered view of a conversation. The zero value
// is an empty conversation.
type Snapshot struct {
	messages []Message
}

// NewSnapshot returns a snapshot holding copies of the given messages.
func NewSnapshot(msgs ...Message) Snapshot {
	return Append(Snapshot{}, msgs...)
}

// Append returns a new snapshot with msgs added after the existing history.
// The input snapshot is never modified and the result never shares its
// backing array.
func Append(s Snapshot, msgs ...Message) Snapshot {
	out := make([]Message, 0, len(s.messages)+len(msgs))
	out = append(out, s.messages...)
	for _, m := range msgs {
		out = append(out, m.clone())
	}
	return Snapshot{messages: out}
}

// Len returns the number of messages.
func (s Snapshot) Len() int {
	return len(s.messages)
}

// At returns the message at index i. It panics if i is out of range.
func (s Snapshot) At(i int) Message {
	return s.messages[i].clone()
}

// Messages returns a copy of the messages in order.
func (s Snapshot) Messages() []Message {
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.clone()
	}
	return out
}

// Last returns the final message, if any.
func (s Snapshot) Last() (Message, bool) {
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1].clone(), true
}

// LastText returns the text of the most recent text-bearing participant
// message. If author is non-empty only messages from that author count.
func (s Snapshot) LastText(author string) (string, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.Role != RoleParticipant || m.Text == "" {
			continue
		}
		if author != "" && m.Author != author {
			continue
		}
		return m.Text, true
	}
	return "", false
}

// Equal reports whether two snapshots hold the same messages in the same
// order.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.messages) != len(other.messages) {
		return false
	}
	for i := range s.messages {
		if !s.messages[i].Equal(other.messages[i]) {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is an ordered prefix of s.
func (s Snapshot) HasPrefix(prefix Snapshot) bool {
	if len(prefix.messages) > len(s.messages) {
		return false
	}
	for i := range prefix.messages {
		if !s.messages[i].Equal(prefix.messages[i]) {
			return false
		}
	}
	return true
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.messages == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.messages)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	s.messages = msgs
	return nil
}
