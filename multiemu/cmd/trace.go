package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kay-lambdadelta/multiemu-sub003/datarecording"
	"github.com/kay-lambdadelta/multiemu-sub003/tracing"
)

type traceOptions struct {
	limit int
	owner string
}

var traceOpts traceOptions

var traceCmd = &cobra.Command{
	Use:   "trace <recording.sqlite3>",
	Short: "Print a recording written by run.",
	Long: `Print the run properties, the task runs and the access faults stored ` +
		`in a recording written by run with MULTIEMU_RECORD_DB set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return err
		}

		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		return printTrace(cmd.Context(), reader, traceOpts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)

	f := traceCmd.Flags()
	f.IntVar(&traceOpts.limit, "limit", 20, "rows to print per table, 0 prints all")
	f.StringVar(&traceOpts.owner, "owner", "", "only print rows of this component")
}

func printTrace(
	ctx context.Context,
	reader datarecording.DataReader,
	opts traceOptions,
	out io.Writer,
) error {
	reader.MapTable(datarecording.ExecTable, datarecording.ExecInfo{})
	reader.MapTable(tracing.TaskRunTable, tracing.TaskRunEntry{})
	reader.MapTable(tracing.AccessFaultTable, tracing.AccessFaultEntry{})

	props, _, err := reader.Query(ctx, datarecording.ExecTable,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROPERTY\tVALUE")

	for _, p := range props {
		info := p.(*datarecording.ExecInfo)
		fmt.Fprintf(tw, "%s\t%s\n", info.Property, info.Value)
	}

	params := datarecording.QueryParams{Limit: opts.limit}
	if opts.owner != "" {
		params.Where = "Owner = ?"
		params.Args = []any{opts.owner}
	}

	runParams := params
	runParams.OrderBy = "Now"

	runs, total, err := reader.Query(ctx, tracing.TaskRunTable, runParams)
	if err != nil {
		return err
	}

	fmt.Fprintf(tw, "\ntask runs: %d, showing %d\n", total, len(runs))
	fmt.Fprintln(tw, "CYCLE\tTASK\tPERIODS\tREQUESTED")

	for _, r := range runs {
		run := r.(*tracing.TaskRunEntry)
		fmt.Fprintf(tw, "%d\t%s.%s\t%d\t%t\n",
			run.Now, run.Owner, run.Task, run.Periods, run.Requested)
	}

	faults, total, err := reader.Query(ctx, tracing.AccessFaultTable, params)
	if err != nil {
		return err
	}

	fmt.Fprintf(tw, "\naccess faults: %d, showing %d\n", total, len(faults))
	fmt.Fprintln(tw, "SPACE\tACCESS\tRANGE\tCAUSE\tOWNER")

	for _, f := range faults {
		fault := f.(*tracing.AccessFaultEntry)
		fmt.Fprintf(tw, "%d\t%s %#x/%d\t%#x-%#x\t%s\t%s\n",
			fault.Space, fault.Direction, fault.Address, fault.Width,
			fault.Start, fault.End, fault.Cause, fault.Owner)
	}

	return tw.Flush()
}
