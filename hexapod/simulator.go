package hexapod

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// DefaultDt is the simulation step, s.
const DefaultDt = 1.0 / 240

// Collision thresholds, m.
const (
	MinBodyClearance = 0.02
	MinFootSpacing   = 0.03
	contactTolerance = 0.005
)

// Frame is one simulator state snapshot handed to a Visualiser.
type Frame struct {
	Time        float64
	BasePos     Vec3
	Yaw         float64
	JointAngles [NumJoints]float64
	// Feet are world positions, or base-relative when following.
	Feet [NumLegs]Vec3
}

// Visualiser receives a frame after every step.
type Visualiser interface {
	Frame(f Frame) error
}

// SimulatorOptions configure NewSimulator.
type SimulatorOptions struct {
	Dt             float64
	CollisionFatal bool
	FailedLegs     []int
	Follow         bool
	Visualiser     Visualiser
	Logger         *slog.Logger
}

// Simulator is a kinematic hexapod: joints track the controller's targets
// at a bounded rate and the body moves so that planted feet do not slip.
type Simulator struct {
	controller *Controller
	opts       SimulatorOptions
	failed     [NumLegs]bool
	log        *slog.Logger

	t          float64
	angles     [NumJoints]float64
	feet       [NumLegs]Vec3 // body frame
	base       Vec3
	yaw        float64
	terminated bool
}

// NewSimulator places the robot in the controller's initial pose. Failed
// legs are held folded at the zero pose and never touch the ground.
func NewSimulator(controller *Controller, opts SimulatorOptions) (*Simulator, error) {
	if controller == nil {
		return nil, fmt.Errorf("simulator needs a controller")
	}
	if opts.Dt <= 0 {
		opts.Dt = DefaultDt
	}
	s := &Simulator{controller: controller, opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = slog.Default()
	}
	for _, leg := range opts.FailedLegs {
		if leg < 0 || leg >= NumLegs {
			return nil, fmt.Errorf("failed leg %d out of range [0, %d)", leg, NumLegs)
		}
		s.failed[leg] = true
	}

	initial, err := controller.GaitAngles(0)
	if err != nil {
		return nil, fmt.Errorf("initial pose: %w", err)
	}
	s.setAngles(initial)
	s.base = Vec3{0, 0, s.bodyHeight()}
	return s, nil
}

func (s *Simulator) setAngles(a [NumJoints]float64) {
	for leg := 0; leg < NumLegs; leg++ {
		if s.failed[leg] {
			a[leg*3], a[leg*3+1], a[leg*3+2] = 0, 0, 0
		}
		s.feet[leg] = ForwardKinematics(leg, a[leg*3], a[leg*3+1], a[leg*3+2])
	}
	s.angles = a
}

// bodyHeight is the hip height when resting on the lowest working feet.
func (s *Simulator) bodyHeight() float64 {
	h := 0.0
	for leg, f := range s.feet {
		if !s.failed[leg] {
			h = math.Max(h, -f[2])
		}
	}
	return h
}

// Step advances the simulation by Dt.
func (s *Simulator) Step() error {
	if s.terminated {
		return ErrTerminated
	}
	targets, err := s.controller.JointTargets(s.t, s.angles)
	if err != nil {
		return fmt.Errorf("t=%.4f: %w", s.t, err)
	}

	maxDelta := MaxJointRate * s.opts.Dt
	next := s.angles
	for i := range next {
		next[i] += clamp(targets[i]-next[i], -maxDelta, maxDelta)
	}

	prevFeet, prevHeight := s.feet, s.base[2]
	s.setAngles(next)
	height := s.bodyHeight()
	s.moveBase(prevFeet, prevHeight, height)
	s.base[2] = height
	s.t += s.opts.Dt

	if s.opts.Visualiser != nil {
		if err := s.opts.Visualiser.Frame(s.frame()); err != nil {
			return fmt.Errorf("visualiser: %w", err)
		}
	}

	if cerr := s.checkCollision(); cerr != nil {
		if s.opts.CollisionFatal {
			return cerr
		}
		s.log.Debug("collision ignored", "error", cerr)
	}
	return nil
}

// moveBase shifts and turns the body opposite to the mean motion of feet
// in ground contact before and after the step.
func (s *Simulator) moveBase(prevFeet [NumLegs]Vec3, prevHeight, height float64) {
	var dx, dy, dyaw float64
	n := 0
	for leg := range s.feet {
		if s.failed[leg] {
			continue
		}
		before, after := prevFeet[leg], s.feet[leg]
		if prevHeight+before[2] > contactTolerance || height+after[2] > contactTolerance {
			continue
		}
		dx += after[0] - before[0]
		dy += after[1] - before[1]
		dyaw += wrapAngle(math.Atan2(after[1], after[0]) - math.Atan2(before[1], before[0]))
		n++
	}
	if n == 0 {
		return
	}
	dx, dy, dyaw = -dx/float64(n), -dy/float64(n), -dyaw/float64(n)
	cos, sin := math.Cos(s.yaw), math.Sin(s.yaw)
	s.base[0] += cos*dx - sin*dy
	s.base[1] += sin*dx + cos*dy
	s.yaw = wrapAngle(s.yaw + dyaw)
}

func (s *Simulator) checkCollision() *CollisionError {
	if s.base[2] < MinBodyClearance {
		return &CollisionError{Time: s.t, Kind: BodyGround}
	}
	for leg := 0; leg < NumLegs; leg++ {
		other := (leg + 1) % NumLegs
		if s.failed[leg] || s.failed[other] {
			continue
		}
		a, b := s.feet[leg], s.feet[other]
		if math.Hypot(a[0]-b[0], a[1]-b[1]) < MinFootSpacing {
			return &CollisionError{Time: s.t, Kind: LegLeg, Legs: []int{leg, other}}
		}
	}
	return nil
}

func (s *Simulator) frame() Frame {
	f := Frame{Time: s.t, BasePos: s.base, Yaw: s.yaw, JointAngles: s.angles}
	cos, sin := math.Cos(s.yaw), math.Sin(s.yaw)
	for leg, p := range s.feet {
		x, y := cos*p[0]-sin*p[1], sin*p[0]+cos*p[1]
		if s.opts.Follow {
			f.Feet[leg] = Vec3{x, y, p[2]}
		} else {
			f.Feet[leg] = Vec3{s.base[0] + x, s.base[1] + y, s.base[2] + p[2]}
		}
	}
	return f
}

// BasePos returns the body centre in world coordinates.
func (s *Simulator) BasePos() Vec3 {
	return s.base
}

// Yaw returns the body heading, rad.
func (s *Simulator) Yaw() float64 {
	return s.yaw
}

// Time returns the simulated time, s.
func (s *Simulator) Time() float64 {
	return s.t
}

// Dt returns the step length, s.
func (s *Simulator) Dt() float64 {
	return s.opts.Dt
}

// JointAngles returns the measured joint angles.
func (s *Simulator) JointAngles() [NumJoints]float64 {
	return s.angles
}

// FailedLegs returns the sorted failed leg indices.
func (s *Simulator) FailedLegs() []int {
	legs := slices.Clone(s.opts.FailedLegs)
	slices.Sort(legs)
	return legs
}

// Terminate stops the simulator; later steps return ErrTerminated.
func (s *Simulator) Terminate() {
	s.terminated = true
}
