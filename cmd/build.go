package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/bundledeps/internal/manifest"
)

var (
	buildOut  string
	buildJSON bool
)

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "Write a SQLite manifest to this path")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "Print bundle → dynamic dependencies as JSON")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build dynamic dependency lists for every configured group",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openHostSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		start := time.Now()
		if err := s.engine.BuildAllGroups(cmd.Context(), s.store); err != nil {
			return err
		}
		if buildOut != "" {
			w, err := manifest.NewWriter(buildOut)
			if err != nil {
				return err
			}
			if err := w.WriteEngine(cmd.Context(), s.engine); err != nil {
				_ = w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
		}

		snap := s.engine.Snapshot()
		out := cmd.OutOrStdout()
		if buildJSON {
			lists := make(map[string][]string, len(snap))
			for _, b := range snap {
				lists[b.Name] = b.Dynamic
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(lists)
		}

		for _, b := range snap {
			fmt.Fprintf(out, "%s\t%d dynamic / %d raw\n", b.Name, len(b.Dynamic), len(b.Raw))
		}
		fmt.Fprintf(out, "Built %d bundles in %v.\n", len(snap), time.Since(start).Round(time.Millisecond))
		return nil
	},
}
