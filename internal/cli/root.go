// Package cli implements the hexneat command line.
package cli

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/baldhumanity/hexneat/experiment"
)

// DefaultSettingsPath is read when --settings is not given, if present.
const DefaultSettingsPath = "configs/experiment.yaml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose      bool
	SettingsPath string
}

// NewRootCommand creates the hexneat root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hexneat",
		Short: "Evolve hexapod gaits with HyperNEAT",
		Long: `hexneat evolves CPPNs with NEAT, decodes them on a hexapod substrate
into gait controllers, and scores them by the distance a simulated hexapod
walks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.SettingsPath, "settings", "", "experiment settings YAML (default "+DefaultSettingsPath+" if present)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewDrawCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))

	return cmd
}

// logger builds the text logger writing to w.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// settings loads the settings file, falling back to defaults when no path
// was given and the default file does not exist.
func (o *RootOptions) settings() (experiment.Settings, error) {
	path := o.SettingsPath
	explicit := path != ""
	if !explicit {
		path = DefaultSettingsPath
	}
	s, err := experiment.LoadSettings(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return experiment.DefaultSettings(), nil
		}
		return s, WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	return s, nil
}
