// Package hyperneat decodes a CPPN into a fixed-topology network laid out on
// a geometric substrate.
package hyperneat

import "fmt"

// Point is a substrate coordinate.
type Point struct {
	X, Y float64
}

// Substrate is the node geometry queried by the CPPN. Hidden holds one
// slice of points per hidden layer, in feed order.
type Substrate struct {
	Inputs  []Point
	Outputs []Point
	Hidden  [][]Point
}

// NewSubstrate validates and returns a substrate.
func NewSubstrate(inputs, outputs []Point, hidden ...[]Point) (*Substrate, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("substrate needs at least one input point")
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("substrate needs at least one output point")
	}
	for i, layer := range hidden {
		if len(layer) == 0 {
			return nil, fmt.Errorf("hidden layer %d is empty", i)
		}
	}
	return &Substrate{Inputs: inputs, Outputs: outputs, Hidden: hidden}, nil
}

// legGrid is the 3x6 joint layout: one row per joint (coxa, femur, tibia
// from top to bottom), one column per leg.
func legGrid() []Point {
	xs := []float64{-0.6, -0.4, -0.2, 0.2, 0.4, 0.6}
	ys := []float64{0.5, 0, -0.5}
	pts := make([]Point, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			pts = append(pts, Point{x, y})
		}
	}
	return pts
}

// HexapodSubstrate returns the hexapod controller geometry: 20 inputs
// (the joint grid plus two phase points between the rows), 18 outputs and
// one hidden layer matching the outputs.
func HexapodSubstrate() *Substrate {
	grid := legGrid()
	inputs := make([]Point, 0, len(grid)+2)
	inputs = append(inputs, grid[:6]...)
	inputs = append(inputs, Point{0, 0.25})
	inputs = append(inputs, grid[6:12]...)
	inputs = append(inputs, Point{0, -0.25})
	inputs = append(inputs, grid[12:]...)

	return &Substrate{
		Inputs:  inputs,
		Outputs: legGrid(),
		Hidden:  [][]Point{legGrid()},
	}
}

// Activations is the number of network steps needed for an input to reach
// the outputs.
func Activations(s *Substrate) int {
	return len(s.Hidden) + 2
}
