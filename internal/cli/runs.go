package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/baldhumanity/hexneat/internal/store"
)

// NewRunsCommand creates the runs command listing recorded runs.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		database string
		runID    string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, or the generations of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cmd.Context(), database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if runID != "" {
				gens, err := st.Generations(cmd.Context(), runID)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read generations", err)
				}
				fmt.Fprintln(tw, "GEN\tBEST\tMEAN\tSTDEV\tSPECIES\tGENOME\tELAPSED")
				for _, g := range gens {
					fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.4f\t%d\t%d\t%s\n",
						g.Generation, g.BestFitness, g.MeanFitness, g.StdevFitness, g.Species, g.BestGenomeKey, g.Elapsed.Round(time.Millisecond))
				}
				return nil
			}

			runs, err := st.Runs(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list runs", err)
			}
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tBEST")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\n", r.ID, r.StartedAt.Format(time.RFC3339), r.Status, r.BestFitness)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&database, "db", "", "SQLite run database (required)")
	cmd.Flags().StringVar(&runID, "run", "", "show the generations of this run")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}
