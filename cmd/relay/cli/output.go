package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/deepnoodle-ai/relay"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/fatih/color"
	"github.com/gobwas/glob"
	"github.com/mattn/go-runewidth"
)

var (
	headerStyle  = color.New(color.FgCyan, color.Bold)
	warningStyle = color.New(color.FgYellow, color.Bold)
	errorStyle   = color.New(color.FgRed, color.Bold)
	stepStyle    = color.New(color.FgMagenta, color.Bold)
	outputStyle  = color.New(color.FgGreen)
	timeStyle    = color.New(color.FgWhite, color.Faint)
	mutedStyle   = color.New(color.FgHiBlack)
)

const (
	arrow     = "→"
	checkmark = "✓"
	xmark     = "✗"
	hourglass = "⏳"
)

// printer renders execution events and states.
type printer struct {
	w      io.Writer
	filter glob.Glob
	now    func() time.Time
}

// newPrinter returns a printer showing the event types matching pattern.
func newPrinter(w io.Writer, pattern string) (*printer, error) {
	if pattern == "" {
		pattern = "*"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid event filter %q: %w", pattern, err)
	}
	return &printer{w: w, filter: g, now: time.Now}, nil
}

func (p *printer) shows(t relay.EventType) bool {
	return p.filter.Match(string(t))
}

func (p *printer) stamp() string {
	return timeStyle.Sprint(p.now().Format("15:04:05"))
}

// Event prints one event if it passes the filter.
func (p *printer) Event(ev *relay.Event) {
	if !p.shows(ev.Type) {
		return
	}
	prefix := fmt.Sprintf("%s %s", p.stamp(), mutedStyle.Sprintf("[%s #%d]", ev.ExecutionID, ev.Iteration))
	switch ev.Type {
	case relay.EventStarted:
		fmt.Fprintf(p.w, "%s %s\n", prefix, headerStyle.Sprint("started"))
	case relay.EventRouting:
		if ev.From != "" {
			fmt.Fprintf(p.w, "%s %s %s %s\n", prefix, ev.From, arrow, stepStyle.Sprint(ev.Participant))
		} else {
			fmt.Fprintf(p.w, "%s %s %s\n", prefix, arrow, stepStyle.Sprint(ev.Participant))
		}
	case relay.EventResumed:
		fmt.Fprintf(p.w, "%s %s %s\n", prefix, headerStyle.Sprint("resumed"), stepStyle.Sprint(ev.Participant))
	case relay.EventSuspended:
		fmt.Fprintf(p.w, "%s %s %s is waiting for input\n", prefix, warningStyle.Sprint(hourglass), ev.Participant)
		if ev.Request != nil {
			p.request(ev.Request)
		}
	case relay.EventTerminated:
		fmt.Fprintf(p.w, "%s %s %s\n", prefix, outputStyle.Sprint(checkmark), terminationLabel(ev.Reason))
		if ev.Output != "" {
			fmt.Fprintf(p.w, "\n%s\n", ev.Output)
		}
	case relay.EventFailed, relay.EventError:
		fmt.Fprintf(p.w, "%s %s %s\n", prefix, errorStyle.Sprint(xmark), errorText(ev.Error))
	default:
		fmt.Fprintf(p.w, "%s %s\n", prefix, ev.Type)
	}
}

func (p *printer) request(req *relay.InformationRequest) {
	fmt.Fprintf(p.w, "  %s %s\n", mutedStyle.Sprint("correlation:"), req.CorrelationID)
	fmt.Fprintf(p.w, "  %s %s\n", mutedStyle.Sprint("question:"), req.Prompt)
}

// State prints the outcome of a synchronous call.
func (p *printer) State(state relay.ExecutionState) {
	switch state.Status {
	case relay.StatusTerminated:
		fmt.Fprintf(p.w, "%s %s %s\n", p.stamp(), outputStyle.Sprint(checkmark), terminationLabel(state.TerminationReason))
		if state.Output != "" {
			fmt.Fprintf(p.w, "\n%s\n", state.Output)
		}
	case relay.StatusSuspended:
		fmt.Fprintf(p.w, "%s %s %s is waiting for input\n", p.stamp(), warningStyle.Sprint(hourglass), state.ActiveParticipant)
		if cp := state.PendingCheckpoint; cp != nil {
			p.request(&relay.InformationRequest{CorrelationID: cp.CorrelationID, Prompt: cp.Prompt})
		}
	case relay.StatusFailed:
		var err error
		if state.Failure != nil {
			err = state.Failure.Err
		}
		fmt.Fprintf(p.w, "%s %s %s\n", p.stamp(), errorStyle.Sprint(xmark), errorText(err))
	default:
		fmt.Fprintf(p.w, "%s %s at %s\n", p.stamp(), state.Status, state.ActiveParticipant)
	}
}

func terminationLabel(reason relay.TerminationReason) string {
	if reason == relay.ReasonIterationLimit {
		return "stopped at the hop limit"
	}
	return "completed"
}

func errorText(err error) string {
	if err == nil {
		return "failed"
	}
	return err.Error()
}

// participantTable renders descriptions as aligned columns. Descriptions
// are truncated to maxWidth display cells.
func participantTable(descriptions []participant.Description, coordinatorID string, maxWidth int) string {
	idWidth, nameWidth := runewidth.StringWidth("ID"), runewidth.StringWidth("NAME")
	for _, d := range descriptions {
		idWidth = max(idWidth, runewidth.StringWidth(d.ID))
		nameWidth = max(nameWidth, runewidth.StringWidth(d.DisplayName))
	}
	var b strings.Builder
	row := func(marker, id, name, description string) {
		line := marker + " " + runewidth.FillRight(id, idWidth) + "  " + runewidth.FillRight(name, nameWidth) + "  " + description
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
	row(" ", "ID", "NAME", "DESCRIPTION")
	for _, d := range descriptions {
		marker := " "
		if d.ID == coordinatorID {
			marker = "*"
		}
		description := d.Description
		if maxWidth > 0 {
			description = runewidth.Truncate(description, maxWidth, "…")
		}
		row(marker, d.ID, d.DisplayName, description)
	}
	return b.String()
}
