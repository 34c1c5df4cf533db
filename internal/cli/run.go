package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/baldhumanity/hexneat/experiment"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config             string
	OutputDir          string
	Generations        int
	Serial             bool
	Workers            int
	Resume             string
	Database           string
	MetricsAddr        string
	CheckpointInterval int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve a gait controller",
		Long: `Evolve CPPN genomes and write the winner archive, network drawings and
statistics plots.

The parallel driver evaluates genomes on one worker per CPU for 1000
generations by default; --serial evaluates one genome at a time for 10.

Example:
  hexneat run --out out
  hexneat run --serial --db runs.db
  hexneat run --resume out/neat-checkpoint-50.gz --generations 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvolution(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "NEAT CPPN config (overrides settings)")
	cmd.Flags().StringVar(&opts.OutputDir, "out", "", "output directory (overrides settings)")
	cmd.Flags().IntVar(&opts.Generations, "generations", 0, "generation limit (overrides settings)")
	cmd.Flags().BoolVar(&opts.Serial, "serial", false, "evaluate genomes one at a time")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel workers (0: one per CPU)")
	cmd.Flags().StringVar(&opts.Resume, "resume", "", "resume from a checkpoint file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in a SQLite database")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().IntVar(&opts.CheckpointInterval, "checkpoint-interval", 0, "checkpoint every N generations (overrides settings)")

	return cmd
}

func (o *RunOptions) apply(cmd *cobra.Command, s *experiment.Settings) {
	flags := cmd.Flags()
	if flags.Changed("config") {
		s.NeatConfig = o.Config
	}
	if flags.Changed("out") {
		s.OutputDir = o.OutputDir
	}
	if flags.Changed("serial") && o.Serial {
		s.Parallel = false
		if !flags.Changed("generations") {
			s.Generations = experiment.SerialGenerations
		}
	}
	if flags.Changed("generations") {
		s.Generations = o.Generations
	}
	if flags.Changed("workers") {
		s.Workers = o.Workers
	}
	if flags.Changed("resume") {
		s.Resume = o.Resume
	}
	if flags.Changed("db") {
		s.Database = o.Database
	}
	if flags.Changed("metrics-addr") {
		s.MetricsAddr = o.MetricsAddr
	}
	if flags.Changed("checkpoint-interval") {
		s.CheckpointInterval = o.CheckpointInterval
	}
}

func runEvolution(cmd *cobra.Command, opts *RunOptions) error {
	logger := opts.logger(cmd.ErrOrStderr())

	settings, err := opts.settings()
	if err != nil {
		return err
	}
	opts.apply(cmd, &settings)
	if err := settings.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	result, err := experiment.Run(ctx, settings, logger)
	if err != nil {
		return WrapExitError(ExitFailure, "run failed", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n", result.RunID)
	fmt.Fprintf(out, "winner genome %d fitness %.6f\n", result.Winner.Key, result.Winner.Fitness)
	for _, f := range result.Files {
		fmt.Fprintf(out, "wrote %s\n", f)
	}
	return nil
}

// signalContext derives a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
