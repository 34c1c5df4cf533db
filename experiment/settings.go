// Package experiment drives HyperNEAT gait evolution for the hexapod:
// evaluation episodes, serial and parallel evaluators, the evolution run
// with its outputs, and replay of a saved winner.
package experiment

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/baldhumanity/hexneat/hexapod"
)

// Episode configures one controller/simulator episode.
type Episode struct {
	Duration       float64 `yaml:"duration"` // s; <= 0 in replay runs until cancelled
	Gait           string  `yaml:"gait"`
	BodyHeight     float64 `yaml:"body_height"`
	Velocity       float64 `yaml:"velocity"`
	Period         float64 `yaml:"period"`
	CrabAngle      float64 `yaml:"crab_angle"`
	Dt             float64 `yaml:"dt"`
	CollisionFatal bool    `yaml:"collision_fatal"`
}

// ReplaySettings configure the winner replay.
type ReplaySettings struct {
	Episode     `yaml:",inline"`
	FailedLegs  []int  `yaml:"failed_legs"`
	PrintAngles bool   `yaml:"print_angles"`
	Follow      bool   `yaml:"follow"`
	Trace       string `yaml:"trace"`       // CSV frame trace path, empty for none
	TraceEvery  int    `yaml:"trace_every"` // write every nth frame
}

// Settings are the experiment parameters.
type Settings struct {
	NeatConfig         string         `yaml:"neat_config"`
	OutputDir          string         `yaml:"output_dir"`
	Generations        int            `yaml:"generations"`
	Parallel           bool           `yaml:"parallel"`
	Workers            int            `yaml:"workers"` // 0 means one per CPU
	CheckpointInterval int            `yaml:"checkpoint_interval"`
	CheckpointPrefix   string         `yaml:"checkpoint_prefix"`
	Resume             string         `yaml:"resume"`
	Database           string         `yaml:"database"`
	MetricsAddr        string         `yaml:"metrics_addr"`
	Evaluation         Episode        `yaml:"evaluation"`
	Replay             ReplaySettings `yaml:"replay"`
}

// Generation counts of the two driver variants.
const (
	ParallelGenerations = 1000
	SerialGenerations   = 10
)

// DefaultSettings returns the parallel experiment defaults.
func DefaultSettings() Settings {
	return Settings{
		NeatConfig:       "configs/config-cppn",
		OutputDir:        ".",
		Generations:      ParallelGenerations,
		Parallel:         true,
		CheckpointPrefix: "neat-checkpoint-",
		Evaluation: Episode{
			Duration:       5,
			Gait:           "stationary",
			BodyHeight:     0.15,
			Velocity:       0.9,
			Period:         1.0,
			CrabAngle:      -math.Pi / 6,
			Dt:             hexapod.DefaultDt,
			CollisionFatal: true,
		},
		Replay: ReplaySettings{
			Episode: Episode{
				Duration:   10,
				Gait:       "tripod",
				BodyHeight: 0.15,
				Velocity:   0.46,
				Period:     1.0,
				CrabAngle:  -1.57,
				Dt:         hexapod.DefaultDt,
			},
			FailedLegs:  []int{0},
			PrintAngles: true,
			Follow:      true,
			TraceEvery:  1,
		},
	}
}

// LoadSettings reads YAML settings over the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Validate checks the settings for values no run can use.
func (s Settings) Validate() error {
	var errs []error
	if s.NeatConfig == "" {
		errs = append(errs, errors.New("neat_config is required"))
	}
	if s.Generations < 0 {
		errs = append(errs, fmt.Errorf("generations %d must not be negative", s.Generations))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", s.Workers))
	}
	if s.CheckpointInterval < 0 {
		errs = append(errs, fmt.Errorf("checkpoint_interval %d must not be negative", s.CheckpointInterval))
	}
	if s.Evaluation.Duration <= 0 {
		errs = append(errs, fmt.Errorf("evaluation.duration %v must be positive", s.Evaluation.Duration))
	}
	if err := s.Evaluation.validate("evaluation"); err != nil {
		errs = append(errs, err)
	}
	if err := s.Replay.validate("replay"); err != nil {
		errs = append(errs, err)
	}
	for _, leg := range s.Replay.FailedLegs {
		if leg < 0 || leg >= hexapod.NumLegs {
			errs = append(errs, fmt.Errorf("replay.failed_legs: leg %d out of range", leg))
		}
	}
	return errors.Join(errs...)
}

func (e Episode) validate(section string) error {
	var errs []error
	if _, err := hexapod.GaitByName(e.Gait); err != nil {
		errs = append(errs, fmt.Errorf("%s.gait: %w", section, err))
	}
	if e.BodyHeight <= 0 {
		errs = append(errs, fmt.Errorf("%s.body_height %v must be positive", section, e.BodyHeight))
	}
	if e.Period <= 0 {
		errs = append(errs, fmt.Errorf("%s.period %v must be positive", section, e.Period))
	}
	if e.Velocity < 0 {
		errs = append(errs, fmt.Errorf("%s.velocity %v must not be negative", section, e.Velocity))
	}
	if e.Dt < 0 {
		errs = append(errs, fmt.Errorf("%s.dt %v must not be negative", section, e.Dt))
	}
	return errors.Join(errs...)
}

// Steps is the number of simulator steps covering Duration.
func (e Episode) Steps() int {
	dt := e.Dt
	if dt <= 0 {
		dt = hexapod.DefaultDt
	}
	return int(math.Ceil(e.Duration/dt - 1e-9))
}

// Marshal returns the settings as YAML.
func (s Settings) Marshal() (string, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
