package hexapod

import (
	"errors"
	"fmt"
)

var (
	// ErrCollision matches every *CollisionError.
	ErrCollision = errors.New("hexapod collision")
	// ErrTerminated is returned when stepping a terminated simulator.
	ErrTerminated = errors.New("simulator terminated")
	// ErrUnreachable is returned when a foot target is outside the leg's reach.
	ErrUnreachable = errors.New("foot target unreachable")
)

// CollisionKind tells what collided.
type CollisionKind string

const (
	BodyGround CollisionKind = "body-ground"
	LegLeg     CollisionKind = "leg-leg"
)

// CollisionError describes a collision detected during a step.
type CollisionError struct {
	Time float64
	Kind CollisionKind
	Legs []int
}

func (e *CollisionError) Error() string {
	if len(e.Legs) == 0 {
		return fmt.Sprintf("%s collision at t=%.4f", e.Kind, e.Time)
	}
	return fmt.Sprintf("%s collision at t=%.4f (legs %v)", e.Kind, e.Time, e.Legs)
}

func (e *CollisionError) Is(target error) bool {
	return target == ErrCollision
}
