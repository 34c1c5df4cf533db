package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baldhumanity/hexneat/experiment"
	"github.com/baldhumanity/hexneat/internal/store"
	"github.com/baldhumanity/hexneat/neat"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Duration float64
	Trace    string
	Gait     string
	Database string
	RunID    string
	Quiet    bool
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [archive]",
		Short: "Walk a saved winner",
		Long: `Replay a winner archive with the replay gait, failed legs and
non-fatal collisions. A duration of 0 replays until interrupted.

Example:
  hexneat replay out/hyperneat_cppn.gob.gz --trace out/replay.csv
  hexneat replay --db runs.db --run <run-id> --duration 0`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args)
		},
	}

	cmd.Flags().Float64Var(&opts.Duration, "duration", 0, "seconds to replay, 0 until interrupted (overrides settings)")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "CSV frame trace path (overrides settings)")
	cmd.Flags().StringVar(&opts.Gait, "gait", "", "replay gait preset (overrides settings)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "load the winner from a SQLite run database")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id in --db")
	cmd.Flags().BoolVar(&opts.Quiet, "quiet", false, "do not log joint angles")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *ReplayOptions, args []string) error {
	logger := opts.logger(cmd.ErrOrStderr())

	settings, err := opts.settings()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("duration") {
		settings.Replay.Duration = opts.Duration
	}
	if flags.Changed("trace") {
		settings.Replay.Trace = opts.Trace
	}
	if flags.Changed("gait") {
		settings.Replay.Gait = opts.Gait
	}
	if opts.Quiet {
		settings.Replay.PrintAngles = false
	}
	if err := settings.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	winner, err := loadWinner(ctx, opts, args)
	if err != nil {
		return err
	}

	res, err := experiment.Replay(ctx, settings, winner, logger)
	if err != nil {
		return WrapExitError(ExitFailure, "replay failed", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "replayed %d steps (%.3f s), base at x=%.4f y=%.4f\n",
		res.Steps, res.Time, res.BasePos[0], res.BasePos[1])
	return nil
}

func loadWinner(ctx context.Context, opts *ReplayOptions, args []string) (*neat.Genome, error) {
	switch {
	case len(args) == 1 && opts.Database != "":
		return nil, WrapExitError(ExitCommandError, "invalid arguments", errors.New("give an archive or --db, not both"))
	case len(args) == 1:
		g, err := experiment.LoadArchive(args[0])
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load archive", err)
		}
		return g, nil
	case opts.Database != "":
		if opts.RunID == "" {
			return nil, WrapExitError(ExitCommandError, "invalid arguments", errors.New("--run is required with --db"))
		}
		st, err := store.Open(ctx, opts.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		w, ok, err := st.GetWinner(ctx, opts.RunID)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read winner", err)
		}
		if !ok {
			return nil, WrapExitError(ExitCommandError, "no winner", fmt.Errorf("run %s has no winner", opts.RunID))
		}
		g, err := neat.DecodeGenome(bytes.NewReader(w.Payload))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to decode winner", err)
		}
		return g, nil
	}
	return nil, WrapExitError(ExitCommandError, "invalid arguments", errors.New("an archive path or --db and --run is required"))
}
