package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/bundledeps/internal/engine"
)

var depsRaw bool

func init() {
	depsCmd.Flags().BoolVar(&depsRaw, "raw", false, "Print the raw dependency set instead of the dynamic list")
	rootCmd.AddCommand(depsCmd)
}

var depsCmd = &cobra.Command{
	Use:   "deps [bundle]",
	Short: "Print the dynamic dependencies of one bundle, building its group on demand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openHostSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		return printDeps(cmd, s.engine, args[0])
	},
}

func printDeps(cmd *cobra.Command, e *engine.Engine, bundle string) error {
	deps, err := e.Dependencies(cmd.Context(), bundle)
	if errors.Is(err, engine.ErrBundleNotFound) {
		return fmt.Errorf("unknown bundle %q", bundle)
	}
	if err != nil {
		return err
	}
	if depsRaw {
		if deps, err = e.RawDependencies(bundle); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	for _, d := range deps {
		fmt.Fprintln(out, d)
	}
	return nil
}
