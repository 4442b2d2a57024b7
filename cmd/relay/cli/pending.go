package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/deepnoodle-ai/relay/checkpoint"
	wontoncli "github.com/deepnoodle-ai/wonton/cli"
	"github.com/mattn/go-runewidth"
)

func registerPendingCommand(app *wontoncli.App) {
	app.Command("pending").
		Description("List pending information requests").
		NoArgs().
		Flags(
			wontoncli.Int("width", "w").Default(60).Help("Maximum width of the question column"),
		).
		Run(func(ctx *wontoncli.Context) error {
			parseGlobalFlags(ctx)
			goCtx := context.Background()

			cfg, err := loadConfig()
			if err != nil {
				return wontoncli.Errorf("%v", err)
			}
			store, err := openStore(goCtx, cfg)
			if err != nil {
				return wontoncli.Errorf("%v", err)
			}
			defer store.Close()

			lister, ok := store.Lister()
			if !ok {
				return wontoncli.Errorf("checkpoint store %q cannot list checkpoints", cfg.Store.Type)
			}
			checkpoints, err := lister.List(goCtx)
			if err != nil {
				return wontoncli.Errorf("failed to list checkpoints: %v", err)
			}
			printPending(os.Stdout, checkpoints, ctx.Int("width"))
			return nil
		})
}

// printPending prints checkpoints oldest first.
func printPending(w io.Writer, checkpoints []*checkpoint.Checkpoint, width int) {
	if len(checkpoints) == 0 {
		fmt.Fprintln(w, "No pending requests")
		return
	}
	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].CreatedAt.Before(checkpoints[j].CreatedAt)
	})
	fmt.Fprintln(w, headerStyle.Sprintf("%d pending request(s)", len(checkpoints)))
	for _, cp := range checkpoints {
		prompt := cp.Prompt
		if width > 0 {
			prompt = runewidth.Truncate(prompt, width, "…")
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			cp.CorrelationID,
			timeStyle.Sprint(cp.CreatedAt.Local().Format("2006-01-02 15:04")),
			stepStyle.Sprint(cp.RequestingParticipant),
			prompt)
	}
}
