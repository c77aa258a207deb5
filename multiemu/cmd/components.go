package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the component kinds a machine description can use.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tPARAMETERS\tDESCRIPTION")

		for _, name := range KindNames() {
			k := kinds[name]
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, k.Params, k.Description)
		}

		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(componentsCmd)
}
