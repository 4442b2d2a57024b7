package participant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/deepnoodle-ai/wonton/assert"
	"github.com/deepnoodle-ai/wonton/retry"
)

func echo(id string) Participant {
	return Func(func(ctx context.Context, inv *Invocation) (*Result, error) {
		return &Result{Messages: []conversation.Message{
			conversation.NewParticipantMessage(id, "hello from "+id),
		}}, nil
	})
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Register(Descriptor{ID: "researcher", DisplayName: "Researcher", Description: "Finds facts", Participant: echo("researcher")}))
	assert.NoError(t, r.Register(Descriptor{ID: "writer", Description: "Writes prose", Participant: echo("writer")}))

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Has("writer"))
	assert.False(t, r.Has("editor"))
	assert.Equal(t, []string{"researcher", "writer"}, r.IDs())

	d, err := r.Get("researcher")
	assert.NoError(t, err)
	assert.Equal(t, "Researcher", d.DisplayName)

	_, err = r.Get("editor")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryDuplicateID(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Register(Descriptor{ID: "a", Participant: echo("a")}))

	err := r.Register(Descriptor{ID: "a", Participant: echo("a")})
	var dup *DuplicateIDError
	assert.True(t, errors.As(err, &dup))
	assert.Equal(t, "a", dup.ID)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryInvalidDescriptor(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Register(Descriptor{ID: " ", Participant: echo("x")}), ErrInvalidDescriptor)
	assert.ErrorIs(t, r.Register(Descriptor{ID: "x"}), ErrInvalidDescriptor)
}

func TestRegistryFreeze(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Register(Descriptor{ID: "a", Participant: echo("a")}))
	r.Freeze()
	assert.True(t, r.Frozen())
	assert.ErrorIs(t, r.Register(Descriptor{ID: "b", Participant: echo("b")}), ErrRegistryFrozen)
}

func TestDescribeAllOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		assert.NoError(t, r.Register(Descriptor{ID: id, Description: id + " desc", Participant: echo(id)}))
	}
	all := r.DescribeAll()
	assert.Len(t, all, 3)
	assert.Equal(t, "zeta", all[0].ID)
	assert.Equal(t, "zeta", all[0].DisplayName, "display name defaults to the id")
	assert.Equal(t, "alpha desc", all[1].Description)
	assert.Equal(t, "mid", all[2].ID)
}

func TestDecisionText(t *testing.T) {
	r := &Result{Messages: []conversation.Message{
		conversation.NewParticipantMessage("a", "first"),
		conversation.NewToolCallMessage("a", conversation.ToolCallPayload{ID: "1", Name: "x"}),
		conversation.NewParticipantMessage("a", "final"),
	}}
	assert.Equal(t, "final", r.DecisionText())

	r.RawDecision = `{"summary":"s","user_input_needed":false}`
	assert.Equal(t, r.RawDecision, r.DecisionText())

	var nilResult *Result
	assert.Equal(t, "", nilResult.DecisionText())
}

func TestWithRetry(t *testing.T) {
	attempts := 0
	flaky := Func(func(ctx context.Context, inv *Invocation) (*Result, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("temporarily unavailable")
		}
		return &Result{RawDecision: "ok"}, nil
	})

	p := WithRetry(flaky, RetryOptions{MaxAttempts: 5, BaseWait: time.Millisecond, MaxWait: 5 * time.Millisecond})
	result, err := p.Invoke(context.Background(), &Invocation{})
	assert.NoError(t, err)
	assert.Equal(t, "ok", result.RawDecision)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryPermanent(t *testing.T) {
	attempts := 0
	broken := Func(func(ctx context.Context, inv *Invocation) (*Result, error) {
		attempts++
		return nil, retry.MarkPermanent(errors.New("bad request"))
	})

	p := WithRetry(broken, RetryOptions{MaxAttempts: 5, BaseWait: time.Millisecond})
	_, err := p.Invoke(context.Background(), &Invocation{})
	assert.ErrorContains(t, err, "bad request")
	assert.Equal(t, 1, attempts)
}
