package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/deepnoodle-ai/relay"
	wontoncli "github.com/deepnoodle-ai/wonton/cli"
)

func registerResumeCommand(app *wontoncli.App) {
	app.Command("resume").
		Description("Answer a pending information request").
		Long("Submits an answer for the checkpoint with the given correlation id "+
			"and drives the execution until it suspends again or finishes. The "+
			"execution is restored from the configured checkpoint store.").
		Args("correlation-id", "answer").
		Run(func(ctx *wontoncli.Context) error {
			parseGlobalFlags(ctx)
			if ctx.NArg() < 2 {
				return wontoncli.Errorf("usage: relay resume <correlation-id> <answer>")
			}

			goCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			s, err := openSession(goCtx)
			if err != nil {
				return wontoncli.Errorf("%v", err)
			}
			defer s.Close()

			p, err := newPrinter(os.Stdout, eventFilter)
			if err != nil {
				return wontoncli.Errorf("%v", err)
			}
			return resume(goCtx, s, p, ctx.Arg(0), ctx.Arg(1))
		})
}

func resume(ctx context.Context, s *session, p *printer, correlationID, answer string) error {
	state, err := s.engine.SubmitResponse(ctx, correlationID, answer)
	if err != nil {
		if errors.Is(err, relay.ErrUnknownCorrelation) {
			return wontoncli.Errorf("no pending request %s in the checkpoint store", correlationID)
		}
		return err
	}
	p.State(state)
	if state.Status == relay.StatusSuspended && state.PendingCheckpoint != nil {
		printResumeHint(p.w, s, &relay.InformationRequest{
			CorrelationID: state.PendingCheckpoint.CorrelationID,
			Prompt:        state.PendingCheckpoint.Prompt,
		})
	}
	return nil
}
