package hexapod

import (
	"fmt"
	"math"
)

// NumLegs is the number of legs; legs are numbered counter-clockwise
// starting at the front right.
const NumLegs = 6

// LegParams are the gait parameters of one leg.
type LegParams struct {
	Radius     float64 // horizontal hip-to-foot distance at the neutral pose
	Offset     float64 // neutral foot angle relative to the leg mount, rad
	StepHeight float64
	Phase      float64 // phase offset in cycles, [0, 1)
	DutyFactor float64 // fraction of the cycle in stance; >= 1 keeps the foot planted
}

// TripodGait alternates legs {0,2,4} and {1,3,5}.
var TripodGait = []float64{
	0.12, 0, 0.04, 0.0, 0.5,
	0.12, 0, 0.04, 0.5, 0.5,
	0.12, 0, 0.04, 0.0, 0.5,
	0.12, 0, 0.04, 0.5, 0.5,
	0.12, 0, 0.04, 0.0, 0.5,
	0.12, 0, 0.04, 0.5, 0.5,
}

// StationaryGait keeps every foot planted at its neutral position.
var StationaryGait = []float64{
	0.12, 0, 0, 0, 1,
	0.12, 0, 0, 0, 1,
	0.12, 0, 0, 0, 1,
	0.12, 0, 0, 0, 1,
	0.12, 0, 0, 0, 1,
	0.12, 0, 0, 0, 1,
}

// GaitByName returns a copy of a named preset.
func GaitByName(name string) ([]float64, error) {
	switch name {
	case "tripod":
		return append([]float64(nil), TripodGait...), nil
	case "stationary":
		return append([]float64(nil), StationaryGait...), nil
	}
	return nil, fmt.Errorf("unknown gait %q (want tripod or stationary)", name)
}

// ReshapeLegParams turns a flat 30-value table into per-leg parameters.
func ReshapeLegParams(flat []float64) ([NumLegs]LegParams, error) {
	var legs [NumLegs]LegParams
	if len(flat) != NumLegs*5 {
		return legs, fmt.Errorf("leg parameter table has %d values, want %d", len(flat), NumLegs*5)
	}
	for i := range legs {
		row := flat[i*5 : i*5+5]
		legs[i] = LegParams{
			Radius:     row[0],
			Offset:     row[1],
			StepHeight: row[2],
			Phase:      row[3],
			DutyFactor: row[4],
		}
	}
	return legs, nil
}

func (p LegParams) validate(leg int) error {
	switch {
	case p.Radius <= CoxaLength:
		return fmt.Errorf("leg %d: radius %v must exceed coxa length %v", leg, p.Radius, CoxaLength)
	case p.StepHeight < 0:
		return fmt.Errorf("leg %d: negative step height %v", leg, p.StepHeight)
	case p.Phase < 0 || p.Phase >= 1:
		return fmt.Errorf("leg %d: phase %v out of range [0, 1)", leg, p.Phase)
	case p.DutyFactor <= 0:
		return fmt.Errorf("leg %d: duty factor %v must be positive", leg, p.DutyFactor)
	case math.IsNaN(p.Offset):
		return fmt.Errorf("leg %d: offset is NaN", leg)
	}
	return nil
}
