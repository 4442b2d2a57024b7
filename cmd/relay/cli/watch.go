package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/deepnoodle-ai/relay"
	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/slogger"
	wontoncli "github.com/deepnoodle-ai/wonton/cli"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	doneSuffix     = ".done"
	rejectedSuffix = ".rejected"
)

func registerWatchCommand(app *wontoncli.App) {
	app.Command("watch").
		Description("Answer information requests from files dropped in a directory").
		Long("Watches an inbox directory for answer files. A file named "+
			"<correlation-id>.txt answers the pending request with that id. "+
			"Answered files are renamed with a .done suffix, files naming an "+
			"unknown request get a .rejected suffix.").
		Args("dir").
		Flags(
			wontoncli.String("pattern", "p").Default("*.txt").Help("Glob selecting answer files"),
			wontoncli.String("debounce", "").Default("250ms").Help("Ignore repeated events for a file within this window"),
			wontoncli.String("metrics-addr", "").Help("Serve Prometheus metrics on this address (e.g. :9090)"),
		).
		Run(func(ctx *wontoncli.Context) error {
			parseGlobalFlags(ctx)
			if ctx.NArg() < 1 {
				return wontoncli.Errorf("usage: relay watch <dir>")
			}
			debounce, err := time.ParseDuration(ctx.String("debounce"))
			if err != nil {
				return wontoncli.Errorf("invalid --debounce: %v", err)
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
			in, err := newInbox(ctx.Arg(0), ctx.String("pattern"), s.engine, p, s.logger)
			if err != nil {
				return wontoncli.Errorf("%v", err)
			}
			in.debounce = debounce

			if addr := ctx.String("metrics-addr"); addr != "" {
				srv := &http.Server{
					Addr:    addr,
					Handler: promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						s.logger.Error("metrics server failed", "error", err)
					}
				}()
				defer srv.Shutdown(context.Background())
			}
			return in.Watch(goCtx)
		})
}

// inbox answers information requests from files in a directory.
type inbox struct {
	dir       string
	pattern   string
	engine    *relay.Engine
	printer   *printer
	logger    slogger.Logger
	debounce  time.Duration
	debouncer map[string]time.Time
}

func newInbox(dir, pattern string, engine *relay.Engine, p *printer, logger slogger.Logger) (*inbox, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("inbox: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inbox: %s is not a directory", dir)
	}
	return &inbox{
		dir:       dir,
		pattern:   pattern,
		engine:    engine,
		printer:   p,
		logger:    slogger.OrDefault(logger),
		debouncer: make(map[string]time.Time),
	}, nil
}

// Watch processes the files already in the inbox and then every file
// created or written until ctx is done.
func (in *inbox) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", in.dir, err)
	}
	if err := in.ProcessExisting(ctx); err != nil {
		return err
	}

	fmt.Fprintf(in.printer.w, "%s %s\n", headerStyle.Sprint("Watching"), in.dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if in.debounced(event.Name) {
				continue
			}
			if err := in.Handle(ctx, event.Name); err != nil {
				in.logger.Error("failed to handle answer file", "file", event.Name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("file watcher error", "error", err)
		}
	}
}

// ProcessExisting handles the matching files present in the inbox, oldest
// name first.
func (in *inbox) ProcessExisting(ctx context.Context) error {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if err := in.Handle(ctx, filepath.Join(in.dir, name)); err != nil {
			in.logger.Error("failed to handle answer file", "file", name, "error", err)
		}
	}
	return nil
}

func (in *inbox) debounced(path string) bool {
	now := time.Now()
	for p, last := range in.debouncer {
		if now.Sub(last) >= in.debounce {
			delete(in.debouncer, p)
		}
	}
	if _, ok := in.debouncer[path]; ok {
		return true
	}
	in.debouncer[path] = now
	return false
}

// Handle submits the answer in path. Files that do not match the pattern,
// are empty, or have already been moved are ignored.
func (in *inbox) Handle(ctx context.Context, path string) error {
	name := filepath.Base(path)
	if strings.HasSuffix(name, doneSuffix) || strings.HasSuffix(name, rejectedSuffix) {
		return nil
	}
	if ok, _ := doublestar.Match(in.pattern, name); !ok {
		return nil
	}
	correlationID := strings.TrimSuffix(name, filepath.Ext(name))
	if err := checkpoint.ValidateID(correlationID); err != nil {
		return in.reject(path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	answer := strings.TrimSpace(string(data))
	if answer == "" {
		// Still being written.
		return nil
	}

	in.logger.Info("submitting answer", "correlation_id", correlationID, "file", name)
	state, err := in.engine.SubmitResponse(ctx, correlationID, answer)
	if err != nil {
		if errors.Is(err, relay.ErrUnknownCorrelation) || errors.Is(err, relay.ErrWorkflowMismatch) {
			return in.reject(path, err)
		}
		if !answered(state, correlationID) {
			return err
		}
		// The answer was taken; only a later hop failed.
		in.logger.Error("execution stopped after answer",
			"correlation_id", correlationID,
			"execution_id", state.ExecutionID,
			"status", state.Status,
			"error", err)
	}
	in.printer.State(state)
	return os.Rename(path, path+doneSuffix)
}

// answered reports whether state has moved past the request correlationID.
func answered(state relay.ExecutionState, correlationID string) bool {
	if state.ExecutionID == "" {
		return false
	}
	pending := state.PendingCheckpoint
	return pending == nil || pending.CorrelationID != correlationID
}

func (in *inbox) reject(path string, cause error) error {
	in.logger.Warn("rejected answer file", "file", filepath.Base(path), "error", cause)
	if err := os.Rename(path, path+rejectedSuffix); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
