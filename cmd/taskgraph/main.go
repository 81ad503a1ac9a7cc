package main

import (
	"fmt"
	"os"

	app "github.com/valter-silva-au/taskgraph/internal"
	"github.com/valter-silva-au/taskgraph/internal/cli"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.SetVersionInfo(version, commit, date)
	basePath := app.ResolveBasePath()

	a, err := app.NewApp(basePath, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing taskgraph: %v\n", err)
		return 1
	}
	defer func() { _ = a.Close() }()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
