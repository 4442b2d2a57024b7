package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/deepnoodle-ai/relay"
	wontoncli "github.com/deepnoodle-ai/wonton/cli"
)

func registerRunCommand(app *wontoncli.App) {
	app.Command("run").
		Description("Start a workflow execution").
		Long("Starts an execution with the given input and prints its events. "+
			"When a participant asks for input, --interactive reads the answer "+
			"from stdin; otherwise the command exits and the execution can be "+
			"continued later with 'relay resume'.").
		Args("input?").
		Flags(
			wontoncli.String("input", "m").Help("Input message (alternative to positional argument)"),
			wontoncli.String("id", "").Help("Execution id (random when empty)"),
			wontoncli.Bool("interactive", "i").Help("Answer information requests from stdin"),
		).
		Run(func(ctx *wontoncli.Context) error {
			parseGlobalFlags(ctx)

			input := ctx.String("input")
			if ctx.NArg() > 0 {
				input = ctx.Arg(0)
			}
			if strings.TrimSpace(input) == "" {
				return wontoncli.Errorf("no input provided. Use argument or --input flag")
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
			var answers io.Reader
			if ctx.Bool("interactive") {
				answers = os.Stdin
			}
			return runExecution(goCtx, s, p, input, ctx.String("id"), answers)
		})
}

// runExecution starts an execution and follows its event stream. With a
// non-nil answers reader, information requests are answered with the next
// line read from it.
func runExecution(ctx context.Context, s *session, p *printer, input, id string, answers io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := s.engine.Run(ctx, input, relay.RunOptions{ExecutionID: id})
	if err != nil {
		return err
	}
	defer stream.Close()

	var lines *bufio.Scanner
	if answers != nil {
		lines = bufio.NewScanner(answers)
	}
	submitErr := make(chan error, 1)

	for stream.Next(ctx) {
		ev := stream.Event()
		p.Event(ev)
		switch ev.Type {
		case relay.EventSuspended:
			if ev.Request == nil {
				continue
			}
			if lines == nil {
				printResumeHint(p.w, s, ev.Request)
				return nil
			}
			fmt.Fprint(p.w, headerStyle.Sprint("> "))
			if !lines.Scan() {
				printResumeHint(p.w, s, ev.Request)
				return lines.Err()
			}
			correlationID, answer := ev.Request.CorrelationID, lines.Text()
			// Events of the resumed hops arrive on this stream while the
			// submission runs.
			go func() {
				if _, err := s.engine.SubmitResponse(ctx, correlationID, answer); err != nil &&
					(errors.Is(err, relay.ErrUnknownCorrelation) || errors.Is(err, relay.ErrInvalidTransition)) {
					submitErr <- err
					cancel()
				}
			}()
		case relay.EventFailed, relay.EventError:
			if ev.Error != nil {
				return ev.Error
			}
			return errors.New("execution failed")
		}
		if ev.Terminal() {
			return nil
		}
	}
	select {
	case err := <-submitErr:
		return err
	default:
	}
	return stream.Err()
}

func printResumeHint(w io.Writer, s *session, req *relay.InformationRequest) {
	fmt.Fprintf(w, "\nAnswer with: relay resume %s \"<answer>\"\n", req.CorrelationID)
	if !s.durable() {
		fmt.Fprintln(w, warningStyle.Sprint("The checkpoint store is in memory; configure a durable store to resume from another process."))
	}
}
