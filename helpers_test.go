package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/deepnoodle-ai/relay/coordinator"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/relay/routing"
	"github.com/deepnoodle-ai/wonton/assert"
)

var fixedTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func routeTo(next string) string {
	d := routing.Decision{Summary: "handing over to " + next, NextParticipant: next}
	return "Done with my part.\n<decision>" + d.JSON() + "</decision>"
}

func finish() string {
	d := routing.Decision{Summary: "all done"}
	return "Work complete.\n<decision>" + d.JSON() + "</decision>"
}

func askUser(prompt string) string {
	d := routing.Decision{Summary: "need a choice", UserInputNeeded: true, UserPrompt: prompt}
	return "I need input.\n<decision>" + d.JSON() + "</decision>"
}

// scripted replies with its route outputs in order, repeating the last one,
// and with synth on synthesis calls. It records every invocation.
type scripted struct {
	id          string
	description string
	route       []string
	synth       string
	errs        []error
	extras      []conversation.Message

	mu     sync.Mutex
	calls  []*participant.Invocation
	synths []*participant.Invocation
}

func newScripted(id string, route ...string) *scripted {
	return &scripted{id: id, route: route, synth: "final answer from " + id}
}

func (s *scripted) Invoke(ctx context.Context, inv *participant.Invocation) (*participant.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.Phase == participant.PhaseSynthesize {
		s.synths = append(s.synths, inv)
		return &participant.Result{
			Messages: []conversation.Message{conversation.NewParticipantMessage(s.id, s.synth)},
		}, nil
	}
	n := len(s.calls)
	s.calls = append(s.calls, inv)
	if n < len(s.errs) && s.errs[n] != nil {
		return nil, s.errs[n]
	}
	text := s.route[len(s.route)-1]
	if n < len(s.route) {
		text = s.route[n]
	}
	msgs := append([]conversation.Message{}, s.extras...)
	msgs = append(msgs, conversation.NewParticipantMessage(s.id, text))
	return &participant.Result{Messages: msgs}, nil
}

func (s *scripted) Calls() []*participant.Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*participant.Invocation{}, s.calls...)
}

func (s *scripted) Synths() []*participant.Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*participant.Invocation{}, s.synths...)
}

func (s *scripted) descriptor() participant.Descriptor {
	description := s.description
	if description == "" {
		description = "Handles the " + s.id + " part of the work"
	}
	return participant.Descriptor{
		ID:          s.id,
		DisplayName: "Participant " + s.id,
		Description: description,
		Participant: s,
	}
}

// fakeBackend hands out a fixed participant as the derived coordinator.
type fakeBackend struct {
	coordinator participant.Participant
	err         error
	spec        *coordinator.Spec
}

func (b *fakeBackend) NewParticipant(ctx context.Context, spec *coordinator.Spec) (participant.Participant, error) {
	b.spec = spec
	if b.err != nil {
		return nil, b.err
	}
	return b.coordinator, nil
}

var errUnavailable = errors.New("model unavailable")

func buildWorkflow(t *testing.T, coordinatorID string, maxHops int, ps ...*scripted) *Workflow {
	t.Helper()
	descs := make([]participant.Descriptor, len(ps))
	for i, p := range ps {
		descs[i] = p.descriptor()
	}
	wf, err := Build(context.Background(), BuildOptions{
		Name:         "test",
		Participants: descs,
		Coordinator:  coordinatorID,
		MaxHops:      maxHops,
	})
	assert.NoError(t, err)
	return wf
}

func newTestRouter(t *testing.T, wf *Workflow) *Router {
	t.Helper()
	r, err := NewRouter(RouterOptions{Workflow: wf, Clock: fixedClock})
	assert.NoError(t, err)
	return r
}

// runToStop advances until the router returns anything but an invoke
// action.
func runToStop(t *testing.T, r *Router, state ExecutionState, in Incoming) (ExecutionState, Action, error) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		next, action, err := r.Advance(ctx, state, in)
		if err != nil || action.Kind != ActionInvoke {
			return next, action, err
		}
		state, in = next, Continue()
	}
	t.Fatalf("execution did not stop")
	return state, Action{}, nil
}

func authors(s conversation.Snapshot) []string {
	var out []string
	for _, m := range s.Messages() {
		out = append(out, m.Author)
	}
	return out
}
