// Package cli implements the relay command line tool.
package cli

import (
	"fmt"
	"os"

	wontoncli "github.com/deepnoodle-ai/wonton/cli"
)

var (
	configPath  string
	storeRef    string
	logLevel    string
	eventFilter string
	app         *wontoncli.App
)

func Execute() {
	app = wontoncli.New("relay").
		Description("Relay runs conversational multi-participant workflows").
		Version("0.1.0").
		GlobalFlags(
			wontoncli.String("config", "c").
				Default("relay.yaml").
				Env("RELAY_CONFIG").
				Help("Workflow config file, or a directory of config files to merge"),
			wontoncli.String("store", "").
				Help("Checkpoint store: memory, file:<dir>, sqlite:<path> or redis[:<addr>] (overrides RELAY_STORE)"),
			wontoncli.String("log-level", "").
				Help("Log level to use (none, debug, info, warn, error)"),
			wontoncli.String("events", "").
				Default("*").
				Help("Glob selecting the event types to print (e.g. 'execution.{suspended,terminated}')"),
		)

	registerRunCommand(app)
	registerResumeCommand(app)
	registerPendingCommand(app)
	registerDescribeCommand(app)
	registerWatchCommand(app)

	if err := app.Execute(); err != nil {
		if wontoncli.IsHelpRequested(err) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(wontoncli.GetExitCode(err))
	}
}

// parseGlobalFlags extracts global flag values from context
func parseGlobalFlags(ctx *wontoncli.Context) {
	configPath = ctx.String("config")
	storeRef = ctx.String("store")
	logLevel = ctx.String("log-level")
	eventFilter = ctx.String("events")
}
