package cmd

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/bundledeps/internal/assetgraph"
)

func init() {
	rootCmd.AddCommand(importGraphCmd)
}

var importGraphCmd = &cobra.Command{
	Use:   "import-graph [edges.json] [graph.db]",
	Short: "Convert a JSON edge list into a SQLite asset graph",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		edges, err := assetgraph.ReadEdges(osfs.New("/"), absPath(args[0]))
		if err != nil {
			return err
		}

		output := args[1]
		_ = os.Remove(output) // Overwrite
		w, err := assetgraph.NewSQLiteGraphWriter(output)
		if err != nil {
			return err
		}
		n, err := edges.Write(w)
		if err != nil {
			_ = w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d edges from %d assets into %s.\n", n, len(edges), output)
		return nil
	},
}
