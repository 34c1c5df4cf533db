package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baldhumanity/hexneat/experiment"
)

// NewDrawCommand creates the draw command.
func NewDrawCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "draw <archive>",
		Short: "Write DOT drawings of a winner's CPPN and decoded network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := rootOpts.logger(cmd.ErrOrStderr())
			g, err := experiment.LoadArchive(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load archive", err)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return WrapExitError(ExitCommandError, "failed to create output dir", err)
			}
			settings, err := rootOpts.settings()
			if err != nil {
				return err
			}
			files, err := experiment.DrawNetworks(outDir, experiment.NewGaitEvaluator(settings.Evaluation, logger), g)
			if err != nil {
				return WrapExitError(ExitFailure, "draw failed", err)
			}
			for _, f := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}
