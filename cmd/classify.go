package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify [path...]",
	Short: "Report whether asset paths are static or dynamic under the given rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules := newRules()
		out := cmd.OutOrStdout()
		for _, p := range args {
			kind := "static"
			if rules.IsDynamic(p) {
				kind = "dynamic"
			}
			fmt.Fprintf(out, "%s\t%s\n", kind, p)
		}
		return nil
	},
}
