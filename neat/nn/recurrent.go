package nn

import (
	"fmt"
	"sort"

	"github.com/baldhumanity/hexneat/neat"
)

// RecurrentNetwork propagates values one step per Activate call. Node
// outputs are double-buffered, so a node sees the values its inputs had
// at the end of the previous step.
type RecurrentNetwork struct {
	InputKeys  []int
	OutputKeys []int
	NodeEvals  []NodeEval

	values [2]map[int]float64
	active int
}

// NewRecurrentNetwork creates a network from explicit node evaluations.
func NewRecurrentNetwork(inputs, outputs []int, evals []NodeEval) *RecurrentNetwork {
	net := &RecurrentNetwork{
		InputKeys:  inputs,
		OutputKeys: outputs,
		NodeEvals:  evals,
	}
	for i := range net.values {
		v := make(map[int]float64, len(inputs)+len(evals))
		for _, k := range inputs {
			v[k] = 0
		}
		for _, k := range outputs {
			v[k] = 0
		}
		for _, ne := range evals {
			v[ne.Key] = 0
			for _, l := range ne.Links {
				v[l.From] = 0
			}
		}
		net.values[i] = v
	}
	return net
}

// CreateRecurrentNetwork builds a recurrent network from any genome,
// including genomes with cycles. Only enabled connections are used.
func CreateRecurrentNetwork(g *neat.Genome) (*RecurrentNetwork, error) {
	links := enabledLinks(g)
	evals := make([]NodeEval, 0, len(g.Nodes))
	for _, key := range sortedNodeKeys(g) {
		eval, err := nodeEval(g.Nodes[key], links[key])
		if err != nil {
			return nil, fmt.Errorf("genome %d: %w", g.Key, err)
		}
		evals = append(evals, eval)
	}
	return NewRecurrentNetwork(g.Config.InputKeys, g.Config.OutputKeys, evals), nil
}

// Reset zeroes all node state.
func (net *RecurrentNetwork) Reset() {
	for _, v := range net.values {
		for k := range v {
			v[k] = 0
		}
	}
	net.active = 0
}

// Activate sets the inputs and performs one propagation step.
func (net *RecurrentNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.InputKeys) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(net.InputKeys), len(inputs))
	}

	ivalues := net.values[net.active]
	ovalues := net.values[1-net.active]
	net.active = 1 - net.active

	for i, k := range net.InputKeys {
		ivalues[k] = inputs[i]
		ovalues[k] = inputs[i]
	}

	var buf []float64
	for _, ne := range net.NodeEvals {
		buf = buf[:0]
		for _, l := range ne.Links {
			buf = append(buf, ivalues[l.From]*l.Weight)
		}
		s := ne.Aggregation(buf)
		ovalues[ne.Key] = ne.Activation(ne.Bias + ne.Response*s)
	}

	outputs := make([]float64, len(net.OutputKeys))
	for i, k := range net.OutputKeys {
		outputs[i] = ovalues[k]
	}
	return outputs, nil
}

func sortedNodeKeys(g *neat.Genome) []int {
	keys := make([]int, 0, len(g.Nodes))
	for k := range g.Nodes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
