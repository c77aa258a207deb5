package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kay-lambdadelta/multiemu-sub003/naming"
	"github.com/kay-lambdadelta/multiemu-sub003/snapshot"
)

var inspectSnapshotCmd = &cobra.Command{
	Use:   "inspect-snapshot <file>",
	Short: "Print the header of a saved machine state.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		h, err := snapshot.ReadHeader(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "machine: %s\n", h.Machine)
		fmt.Fprintf(out, "cycle:   %d\n\n", h.Cycle)

		ids := make([]naming.ID, 0, len(h.Components))
		for id := range h.Components {
			ids = append(ids, id)
		}

		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COMPONENT\tVERSION")

		for _, id := range ids {
			fmt.Fprintf(tw, "%s\t%s\n", id, h.Components[id])
		}

		if h.Scheduler != nil {
			fmt.Fprintln(tw, "\nTASK\tTOTAL\tPENDING")

			for _, t := range h.Scheduler.Tasks {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", t.Owner.Child(t.Name), t.Total, t.Pending)
			}
		}

		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(inspectSnapshotCmd)
}
