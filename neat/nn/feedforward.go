package nn

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/baldhumanity/hexneat/neat"
)

// NodeEval describes how a single non-input node is computed: its
// functions, bias, response and weighted incoming links.
type NodeEval struct {
	Key         int
	Activation  neat.ActivationType
	Aggregation neat.AggregationType
	Bias        float64
	Response    float64
	Links       []Link
}

// Link is a weighted incoming connection.
type Link struct {
	From   int
	Weight float64
}

// FeedForwardNetwork is an acyclic phenotype evaluated in topological order.
type FeedForwardNetwork struct {
	InputKeys  []int
	OutputKeys []int
	NodeEvals  []NodeEval

	values map[int]float64
}

// CreateFeedForwardNetwork builds a feed-forward network from a genome
// configured with feed_forward = True. Only enabled connections are used.
func CreateFeedForwardNetwork(g *neat.Genome) (*FeedForwardNetwork, error) {
	if !g.Config.FeedForward {
		return nil, fmt.Errorf("genome %d is not configured as feed-forward", g.Key)
	}

	links := enabledLinks(g)
	order, err := evalOrder(g, links)
	if err != nil {
		return nil, fmt.Errorf("genome %d: %w", g.Key, err)
	}

	evals := make([]NodeEval, 0, len(order))
	for _, key := range order {
		ng, ok := g.Nodes[key]
		if !ok {
			continue // input node
		}
		eval, err := nodeEval(ng, links[key])
		if err != nil {
			return nil, err
		}
		evals = append(evals, eval)
	}

	return NewFeedForwardNetwork(g.Config.InputKeys, g.Config.OutputKeys, evals), nil
}

// NewFeedForwardNetwork assembles a network from node evaluations that are
// already in a valid evaluation order.
func NewFeedForwardNetwork(inputs, outputs []int, evals []NodeEval) *FeedForwardNetwork {
	values := make(map[int]float64, len(inputs)+len(evals))
	for _, k := range inputs {
		values[k] = 0
	}
	for _, k := range outputs {
		values[k] = 0
	}
	return &FeedForwardNetwork{
		InputKeys:  inputs,
		OutputKeys: outputs,
		NodeEvals:  evals,
		values:     values,
	}
}

// Activate computes the outputs for one input vector.
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.InputKeys) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(net.InputKeys), len(inputs))
	}
	for i, k := range net.InputKeys {
		net.values[k] = inputs[i]
	}

	var buf []float64
	for _, ne := range net.NodeEvals {
		buf = buf[:0]
		for _, l := range ne.Links {
			buf = append(buf, net.values[l.From]*l.Weight)
		}
		s := ne.Aggregation(buf)
		net.values[ne.Key] = ne.Activation(ne.Bias + ne.Response*s)
	}

	outputs := make([]float64, len(net.OutputKeys))
	for i, k := range net.OutputKeys {
		outputs[i] = net.values[k]
	}
	return outputs, nil
}

func enabledLinks(g *neat.Genome) map[int][]Link {
	keys := make([]neat.ConnectionKey, 0, len(g.Connections))
	for k, c := range g.Connections {
		if c.Enabled {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].OutNodeID != keys[j].OutNodeID {
			return keys[i].OutNodeID < keys[j].OutNodeID
		}
		return keys[i].InNodeID < keys[j].InNodeID
	})

	links := make(map[int][]Link)
	for _, k := range keys {
		links[k.OutNodeID] = append(links[k.OutNodeID], Link{From: k.InNodeID, Weight: g.Connections[k].Weight})
	}
	return links
}

// evalOrder returns every input and node key in a stable topological order.
// Keys are mapped to dense graph ids so negative input keys are allowed.
func evalOrder(g *neat.Genome, links map[int][]Link) ([]int, error) {
	keySet := make(map[int]struct{}, len(g.Config.InputKeys)+len(g.Nodes))
	for _, k := range g.Config.InputKeys {
		keySet[k] = struct{}{}
	}
	for k := range g.Nodes {
		keySet[k] = struct{}{}
	}
	for out, ls := range links {
		keySet[out] = struct{}{}
		for _, l := range ls {
			keySet[l.From] = struct{}{}
		}
	}
	keys := make([]int, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	ids := make(map[int]int64, len(keys))
	dg := simple.NewDirectedGraph()
	for i, k := range keys {
		ids[k] = int64(i)
		dg.AddNode(simple.Node(i))
	}
	for out, ls := range links {
		for _, l := range ls {
			if l.From == out {
				return nil, fmt.Errorf("self connection on node %d in feed-forward network", out)
			}
			dg.SetEdge(dg.NewEdge(dg.Node(ids[l.From]), dg.Node(ids[out])))
		}
	}

	sorted, err := topo.SortStabilized(dg, nil)
	if err != nil {
		return nil, fmt.Errorf("feed-forward network has a cycle: %w", err)
	}
	order := make([]int, len(sorted))
	for i, n := range sorted {
		order[i] = keys[n.ID()]
	}
	return order, nil
}

func nodeEval(ng *neat.NodeGene, links []Link) (NodeEval, error) {
	act, err := neat.GetActivation(ng.Activation)
	if err != nil {
		return NodeEval{}, fmt.Errorf("node %d: %w", ng.Key, err)
	}
	agg, err := neat.GetAggregation(ng.Aggregation)
	if err != nil {
		return NodeEval{}, fmt.Errorf("node %d: %w", ng.Key, err)
	}
	return NodeEval{
		Key:         ng.Key,
		Activation:  act,
		Aggregation: agg,
		Bias:        ng.Bias,
		Response:    ng.Response,
		Links:       links,
	}, nil
}
