package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(bundlesCmd)
}

var bundlesCmd = &cobra.Command{
	Use:   "bundles",
	Short: "List every bundle the configured groups produce",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openHostSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if err := s.engine.BuildAllGroups(cmd.Context(), s.store); err != nil {
			return err
		}
		for _, name := range s.engine.Bundles() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
