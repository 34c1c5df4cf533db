package experiment

import (
	"errors"
	"log/slog"

	"github.com/baldhumanity/hexneat/hexapod"
	"github.com/baldhumanity/hexneat/hyperneat"
	"github.com/baldhumanity/hexneat/neat"
	"github.com/baldhumanity/hexneat/neat/nn"
)

// GaitEvaluator scores a CPPN genome by the distance the hexapod walks
// along x. It holds no mutable state and may be shared by goroutines.
type GaitEvaluator struct {
	Substrate *hyperneat.Substrate
	Decode    hyperneat.Options
	Episode   Episode
	Logger    *slog.Logger
}

// NewGaitEvaluator creates an evaluator on the hexapod substrate.
func NewGaitEvaluator(episode Episode, logger *slog.Logger) *GaitEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GaitEvaluator{
		Substrate: hyperneat.HexapodSubstrate(),
		Decode:    hyperneat.DefaultOptions(),
		Episode:   episode,
		Logger:    logger,
	}
}

// BuildNetworks decodes a genome into its CPPN and the substrate network.
// The substrate network is reset.
func (e *GaitEvaluator) BuildNetworks(g *neat.Genome) (*nn.FeedForwardNetwork, *nn.RecurrentNetwork, error) {
	cppn, err := nn.CreateFeedForwardNetwork(g)
	if err != nil {
		return nil, nil, err
	}
	net, err := hyperneat.CreatePhenotypeNetwork(cppn, e.Substrate, e.Decode)
	if err != nil {
		return nil, nil, err
	}
	net.Reset()
	return cppn, net, nil
}

// EvaluateGenome runs one episode and returns the genome's fitness: the
// final base x position, or 0 when the network cannot be built, the gait
// is infeasible, or the robot collides.
func (e *GaitEvaluator) EvaluateGenome(g *neat.Genome) float64 {
	log := e.Logger.With("genome", g.Key)

	_, net, err := e.BuildNetworks(g)
	if err != nil {
		log.Warn("network build failed", "error", err)
		return 0
	}

	flat, err := hexapod.GaitByName(e.Episode.Gait)
	if err != nil {
		log.Warn("unknown gait", "error", err)
		return 0
	}
	legs, err := hexapod.ReshapeLegParams(flat)
	if err != nil {
		log.Warn("bad gait table", "error", err)
		return 0
	}

	controller, err := hexapod.NewController(legs, hexapod.ControllerOptions{
		BodyHeight:  e.Episode.BodyHeight,
		Velocity:    e.Episode.Velocity,
		Period:      e.Episode.Period,
		CrabAngle:   e.Episode.CrabAngle,
		ANN:         net,
		Activations: hyperneat.Activations(e.Substrate),
		Logger:      log,
	})
	if err != nil {
		log.Debug("controller rejected", "error", err)
		return 0
	}

	sim, err := hexapod.NewSimulator(controller, hexapod.SimulatorOptions{
		Dt:             e.Episode.Dt,
		CollisionFatal: e.Episode.CollisionFatal,
		Logger:         log,
	})
	if err != nil {
		log.Debug("simulator rejected", "error", err)
		return 0
	}
	defer sim.Terminate()

	for i, n := 0, e.Episode.Steps(); i < n; i++ {
		if err := sim.Step(); err != nil {
			if errors.Is(err, hexapod.ErrCollision) {
				log.Debug("episode ended by collision", "error", err)
			} else {
				log.Debug("episode failed", "error", err)
			}
			return 0
		}
	}
	return sim.BasePos()[0]
}
