// Package relay routes a conversation between registered participants until
// one of them asks for outside input or the work is done.
//
// The core types are:
//
//   - [Workflow] is a frozen set of participants plus a start node. When no
//     coordinator is named, one is derived from the participant descriptions.
//   - [ExecutionState] is the value owned by one run of a workflow.
//   - [Router] advances an ExecutionState by exactly one transition.
//   - [SuspensionManager] persists and consumes checkpoints when a
//     participant needs a human answer.
//   - [Engine] drives executions to completion and publishes [Event]s.
//
// # Quick Start
//
//	wf, _ := relay.Build(ctx, relay.BuildOptions{
//	    Name:         "research",
//	    Participants: []participant.Descriptor{researcher, writer},
//	    Backend:      openai.NewBackend(),
//	})
//	engine, _ := relay.NewEngine(relay.EngineOptions{Workflow: wf})
//	state, _ := engine.Start(ctx, "Compare X and Y", relay.RunOptions{})
//	if state.Status == relay.StatusSuspended {
//	    state, _ = engine.SubmitResponse(ctx, state.PendingCheckpoint.CorrelationID, "Y")
//	}
//	fmt.Println(state.Output)
//
// Checkpoint stores live in the [github.com/deepnoodle-ai/relay/checkpoint]
// packages. LLM-backed participants are in the
// [github.com/deepnoodle-ai/relay/providers] subpackages.
package relay
