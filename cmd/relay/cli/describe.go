package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/deepnoodle-ai/relay"
	"github.com/deepnoodle-ai/relay/config"
	wontoncli "github.com/deepnoodle-ai/wonton/cli"
)

func registerDescribeCommand(app *wontoncli.App) {
	app.Command("describe").
		Description("Show the participants and coordinator of a workflow").
		NoArgs().
		Flags(
			wontoncli.Int("width", "w").Default(60).Help("Maximum width of the description column"),
		).
		Run(func(ctx *wontoncli.Context) error {
			parseGlobalFlags(ctx)
			goCtx := context.Background()

			cfg, err := loadConfig()
			if err != nil {
				return wontoncli.Errorf("%v", err)
			}
			logger, err := cfg.Logging.NewLogger(os.Stderr)
			if err != nil {
				return wontoncli.Errorf("%v", err)
			}
			workflow, err := config.Build(goCtx, cfg, config.BuildOptions{Logger: logger})
			if err != nil {
				return wontoncli.Errorf("%v", err)
			}
			describeWorkflow(os.Stdout, workflow, cfg.Store, ctx.Int("width"))
			return nil
		})
}

func describeWorkflow(w io.Writer, workflow *relay.Workflow, store config.Store, width int) {
	fmt.Fprintln(w, headerStyle.Sprint(workflow.Name()))
	coordinator := workflow.Coordinator()
	if workflow.Derived() {
		fmt.Fprintf(w, "Coordinator: %s (derived)\n", coordinator.ID)
	} else {
		fmt.Fprintf(w, "Coordinator: %s\n", coordinator.ID)
	}
	fmt.Fprintf(w, "Max hops:    %d\n", workflow.MaxHops())
	storeType := store.Type
	if storeType == "" {
		storeType = config.StoreMemory
	}
	fmt.Fprintf(w, "Store:       %s\n\n", storeType)
	fmt.Fprint(w, participantTable(workflow.Registry().DescribeAll(), coordinator.ID, width))
}
