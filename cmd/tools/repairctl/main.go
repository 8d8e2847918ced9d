// repairctl runs recommendations against fixtures or a live API and loads
// fixtures into the search back-ends.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "repairctl",
		Usage:   "Repairer recommendation tooling",
		Version: version,
		Commands: []*cli.Command{
			recommendCmd(),
			problemTypesCmd(),
			indexCmd(),
			flushCacheCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "repairctl: %v\n", err)
		os.Exit(1)
	}
}
