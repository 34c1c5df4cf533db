package hyperneat

import (
	"fmt"
	"math"

	"github.com/baldhumanity/hexneat/neat"
	"github.com/baldhumanity/hexneat/neat/nn"
)

// CPPN is the queried network. Its first output is the connection weight.
type CPPN interface {
	Activate(inputs []float64) ([]float64, error)
}

// Options controls substrate decoding.
type Options struct {
	// Activation names the function of every hidden and output node.
	Activation string
	// WeightThreshold drops weights whose magnitude does not exceed it.
	WeightThreshold float64
	// MaxWeight is the magnitude a CPPN output of 1 maps to.
	MaxWeight float64
}

// DefaultOptions returns sigmoid nodes, threshold 0.2 and max weight 5.
func DefaultOptions() Options {
	return Options{Activation: "sigmoid", WeightThreshold: 0.2, MaxWeight: 5.0}
}

// CreatePhenotypeNetwork queries the CPPN for every pair of nodes in
// consecutive substrate layers and returns the resulting network. Input
// nodes get keys 0..n-1, outputs follow, then hidden layers in order.
func CreatePhenotypeNetwork(cppn CPPN, substrate *Substrate, opts Options) (*nn.RecurrentNetwork, error) {
	if opts.Activation == "" {
		opts.Activation = "sigmoid"
	}
	if opts.WeightThreshold < 0 || opts.WeightThreshold >= 1 {
		return nil, fmt.Errorf("weight threshold %v out of range [0, 1)", opts.WeightThreshold)
	}
	act, err := neat.GetActivation(opts.Activation)
	if err != nil {
		return nil, err
	}

	inputKeys := keyRange(0, len(substrate.Inputs))
	outputKeys := keyRange(len(substrate.Inputs), len(substrate.Outputs))

	// Layers in feed order: inputs, hidden..., outputs.
	layerKeys := [][]int{inputKeys}
	layerPoints := [][]Point{substrate.Inputs}
	next := len(substrate.Inputs) + len(substrate.Outputs)
	for _, layer := range substrate.Hidden {
		layerKeys = append(layerKeys, keyRange(next, len(layer)))
		layerPoints = append(layerPoints, layer)
		next += len(layer)
	}
	layerKeys = append(layerKeys, outputKeys)
	layerPoints = append(layerPoints, substrate.Outputs)

	nodeEvals := make([]nn.NodeEval, 0, next-len(inputKeys))
	for l := 1; l < len(layerKeys); l++ {
		for j, to := range layerPoints[l] {
			var links []nn.Link
			for i, from := range layerPoints[l-1] {
				w, err := queryWeight(cppn, from, to, opts)
				if err != nil {
					return nil, err
				}
				if w != 0 {
					links = append(links, nn.Link{From: layerKeys[l-1][i], Weight: w})
				}
			}
			nodeEvals = append(nodeEvals, nn.NodeEval{
				Key:         layerKeys[l][j],
				Activation:  act,
				Aggregation: neat.AggregateSum,
				Bias:        0,
				Response:    1,
				Links:       links,
			})
		}
	}

	return nn.NewRecurrentNetwork(inputKeys, outputKeys, nodeEvals), nil
}

// queryWeight asks the CPPN for the weight of the connection from a to b.
func queryWeight(cppn CPPN, a, b Point, opts Options) (float64, error) {
	out, err := cppn.Activate([]float64{a.X, a.Y, b.X, b.Y, 1.0})
	if err != nil {
		return 0, fmt.Errorf("cppn query (%v,%v)->(%v,%v): %w", a.X, a.Y, b.X, b.Y, err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("cppn returned no outputs")
	}
	return ScaleWeight(out[0], opts.WeightThreshold, opts.MaxWeight), nil
}

// ScaleWeight maps a raw CPPN output to a connection weight. Magnitudes at
// or below threshold become 0; the rest are shifted toward zero by the
// threshold and scaled to maxWeight.
func ScaleWeight(w, threshold, maxWeight float64) float64 {
	if math.Abs(w) <= threshold {
		return 0
	}
	scaled := (math.Abs(w) - threshold) / (1 - threshold) * maxWeight
	return math.Copysign(scaled, w)
}

func keyRange(start, n int) []int {
	keys := make([]int, n)
	for i := range keys {
		keys[i] = start + i
	}
	return keys
}
