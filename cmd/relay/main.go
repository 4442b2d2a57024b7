package main

import "github.com/deepnoodle-ai/relay/cmd/relay/cli"

func main() {
	cli.Execute()
}
