package hexapod

import (
	"fmt"
	"log/slog"
	"math"
)

// MaxCorrection bounds the network's per-joint correction, rad.
const MaxCorrection = 0.5

// Network is a neural controller queried once per control step.
type Network interface {
	Activate(inputs []float64) ([]float64, error)
}

// ControllerOptions configure NewController.
type ControllerOptions struct {
	BodyHeight float64 // hip height above ground, m
	Velocity   float64 // fraction of MaxStride covered per cycle
	Period     float64 // gait cycle length, s
	CrabAngle  float64 // walking direction in the body frame, rad
	// ANN adds joint corrections to the gait; nil walks on the gait alone.
	ANN Network
	// Activations is the number of network steps per control step.
	Activations int
	PrintAngles bool
	Logger      *slog.Logger
}

// Controller produces joint targets from a leg-parameter gait and an
// optional neural correction.
type Controller struct {
	legs [NumLegs]LegParams
	opts ControllerOptions
	dirX float64
	dirY float64
	log  *slog.Logger
}

// NewController validates the gait and checks every foot stays reachable
// over a full cycle.
func NewController(legs [NumLegs]LegParams, opts ControllerOptions) (*Controller, error) {
	if opts.BodyHeight <= 0 {
		return nil, fmt.Errorf("body height %v must be positive", opts.BodyHeight)
	}
	if opts.Period <= 0 {
		return nil, fmt.Errorf("period %v must be positive", opts.Period)
	}
	if opts.Velocity < 0 {
		return nil, fmt.Errorf("velocity %v must not be negative", opts.Velocity)
	}
	if opts.Activations <= 0 {
		opts.Activations = 1
	}
	for i, p := range legs {
		if err := p.validate(i); err != nil {
			return nil, err
		}
	}

	c := &Controller{
		legs: legs,
		opts: opts,
		dirX: math.Cos(opts.CrabAngle),
		dirY: math.Sin(opts.CrabAngle),
		log:  opts.Logger,
	}
	if c.log == nil {
		c.log = slog.Default()
	}

	const samples = 32
	for s := 0; s < samples; s++ {
		t := opts.Period * float64(s) / samples
		if _, err := c.GaitAngles(t); err != nil {
			return nil, fmt.Errorf("infeasible gait: %w", err)
		}
	}
	return c, nil
}

// Options returns the options the controller was built with.
func (c *Controller) Options() ControllerOptions {
	return c.opts
}

// Phase returns the gait cycle position in [0, 1) at time t.
func (c *Controller) Phase(t float64) float64 {
	p := math.Mod(t/c.opts.Period, 1)
	if p < 0 {
		p++
	}
	return p
}

// FootTarget returns the gait foot position of a leg in the body frame.
func (c *Controller) FootTarget(leg int, t float64) Vec3 {
	p := c.legs[leg]
	hx, hy := hipPosition(leg)
	a := mountAngle(leg) + p.Offset
	nx, ny := hx+p.Radius*math.Cos(a), hy+p.Radius*math.Sin(a)
	z := -c.opts.BodyHeight

	if p.DutyFactor >= 1 {
		return Vec3{nx, ny, z}
	}

	stride := c.opts.Velocity * MaxStride
	phase := math.Mod(c.Phase(t)+p.Phase, 1)
	var u float64 // -0.5 at the rear of the stride, 0.5 at the front
	if phase < p.DutyFactor {
		u = 0.5 - phase/p.DutyFactor
	} else {
		s := (phase - p.DutyFactor) / (1 - p.DutyFactor)
		u = s - 0.5
		z += p.StepHeight * math.Sin(math.Pi*s)
	}
	return Vec3{nx + c.dirX*stride*u, ny + c.dirY*stride*u, z}
}

// GaitAngles solves the gait's foot targets at time t.
func (c *Controller) GaitAngles(t float64) ([NumJoints]float64, error) {
	var angles [NumJoints]float64
	for leg := 0; leg < NumLegs; leg++ {
		a, err := InverseKinematics(leg, c.FootTarget(leg, t))
		if err != nil {
			return angles, err
		}
		copy(angles[leg*3:], a[:])
	}
	return angles, nil
}

// JointTargets returns the commanded joint angles at time t given the
// measured ones. Angles are indexed leg*3 + joint.
func (c *Controller) JointTargets(t float64, measured [NumJoints]float64) ([NumJoints]float64, error) {
	targets, err := c.GaitAngles(t)
	if err != nil {
		return targets, err
	}
	if c.opts.ANN != nil {
		corr, err := c.correction(t, measured)
		if err != nil {
			return targets, err
		}
		for i := range targets {
			targets[i] += corr[i]
		}
	}
	if c.opts.PrintAngles {
		c.log.Info("joint targets", "t", t, "angles", targets)
	}
	return targets, nil
}

// correction feeds the measured angles laid out on the substrate grid,
// plus the gait phase, through the network.
func (c *Controller) correction(t float64, measured [NumJoints]float64) ([NumJoints]float64, error) {
	var corr [NumJoints]float64
	phase := 2 * math.Pi * c.Phase(t)

	inputs := make([]float64, 0, NumJoints+2)
	for joint := 0; joint < 3; joint++ {
		for leg := 0; leg < NumLegs; leg++ {
			inputs = append(inputs, measured[leg*3+joint]/math.Pi)
		}
		switch joint {
		case 0:
			inputs = append(inputs, math.Sin(phase))
		case 1:
			inputs = append(inputs, math.Cos(phase))
		}
	}

	var out []float64
	for i := 0; i < c.opts.Activations; i++ {
		var err error
		out, err = c.opts.ANN.Activate(inputs)
		if err != nil {
			return corr, fmt.Errorf("controller network: %w", err)
		}
	}
	if len(out) != NumJoints {
		return corr, fmt.Errorf("controller network returned %d outputs, want %d", len(out), NumJoints)
	}
	// Outputs are in grid order: joint row, then leg column.
	for joint := 0; joint < 3; joint++ {
		for leg := 0; leg < NumLegs; leg++ {
			corr[leg*3+joint] = (out[joint*NumLegs+leg] - 0.5) * 2 * MaxCorrection
		}
	}
	return corr, nil
}
