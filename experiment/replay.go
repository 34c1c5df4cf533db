package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/baldhumanity/hexneat/hexapod"
	"github.com/baldhumanity/hexneat/hyperneat"
	"github.com/baldhumanity/hexneat/neat"
)

// ReplayResult summarises a replay.
type ReplayResult struct {
	Steps   int
	Time    float64
	BasePos hexapod.Vec3
}

// Replay walks the saved winner with the replay gait, failed legs and a
// non-fatal simulator. It stops after Replay.Duration seconds, or when ctx
// is done if the duration is not positive.
func Replay(ctx context.Context, settings Settings, winner *neat.Genome, logger *slog.Logger) (*ReplayResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rs := settings.Replay
	evaluator := NewGaitEvaluator(rs.Episode, logger)
	_, net, err := evaluator.BuildNetworks(winner)
	if err != nil {
		return nil, fmt.Errorf("build winner network: %w", err)
	}

	flat, err := hexapod.GaitByName(rs.Gait)
	if err != nil {
		return nil, err
	}
	legs, err := hexapod.ReshapeLegParams(flat)
	if err != nil {
		return nil, err
	}
	controller, err := hexapod.NewController(legs, hexapod.ControllerOptions{
		BodyHeight:  rs.BodyHeight,
		Velocity:    rs.Velocity,
		Period:      rs.Period,
		CrabAngle:   rs.CrabAngle,
		ANN:         net,
		Activations: hyperneat.Activations(evaluator.Substrate),
		PrintAngles: rs.PrintAngles,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("replay controller: %w", err)
	}

	var trace *hexapod.CSVTrace
	simOpts := hexapod.SimulatorOptions{
		Dt:             rs.Dt,
		CollisionFatal: rs.CollisionFatal,
		FailedLegs:     rs.FailedLegs,
		Follow:         rs.Follow,
		Logger:         logger,
	}
	if rs.Trace != "" {
		f, err := os.Create(rs.Trace)
		if err != nil {
			return nil, fmt.Errorf("create trace: %w", err)
		}
		defer f.Close()
		trace = hexapod.NewCSVTrace(f, rs.TraceEvery)
		simOpts.Visualiser = trace
	}

	sim, err := hexapod.NewSimulator(controller, simOpts)
	if err != nil {
		return nil, err
	}
	defer sim.Terminate()

	limit := -1
	if rs.Duration > 0 {
		limit = rs.Steps()
	}
	res := &ReplayResult{}
	for ; limit < 0 || res.Steps < limit; res.Steps++ {
		if ctx.Err() != nil {
			break
		}
		if err := sim.Step(); err != nil {
			return res, fmt.Errorf("replay step %d: %w", res.Steps, err)
		}
	}
	res.Time = sim.Time()
	res.BasePos = sim.BasePos()

	if trace != nil {
		if err := trace.Flush(); err != nil {
			return res, fmt.Errorf("flush trace: %w", err)
		}
	}
	logger.Info("replay finished", "steps", res.Steps, "t", res.Time, "x", res.BasePos[0], "y", res.BasePos[1])
	return res, nil
}
