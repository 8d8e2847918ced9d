package main

import (
	"context"
	"fmt"

	"repair-recommender/pkg/registry"

	"github.com/urfave/cli/v3"
)

func problemTypesCmd() *cli.Command {
	return &cli.Command{
		Name:  "problem-types",
		Usage: "Print the problem-type registry or resolve free text against it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "registry", Usage: "registry JSON file (built-in when empty)"},
			&cli.StringFlag{Name: "resolve", Aliases: []string{"r"}, Usage: "text to resolve to a problem type"},
			&cli.IntFlag{Name: "fuzzy-distance", Value: registry.DefaultFuzzyDistance, Usage: "largest accepted edit distance"},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			reg, err := registry.LoadRegistry(cmd.String("registry"))
			if err != nil {
				return fmt.Errorf("load registry: %w", err)
			}
			resolver := registry.NewResolver(reg, int(cmd.Int("fuzzy-distance")))

			text := cmd.String("resolve")
			if text == "" {
				return writeOutput(cmd, reg)
			}
			pt, ok := resolver.Resolve(text)
			if !ok {
				return fmt.Errorf("no problem type matches %q", text)
			}
			return writeOutput(cmd, pt)
		},
	}
}
