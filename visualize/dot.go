// Package visualize renders networks as Graphviz DOT and run statistics as
// PNG plots.
package visualize

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/baldhumanity/hexneat/neat"
	"github.com/baldhumanity/hexneat/neat/nn"
)

// DrawOptions control DOT rendering.
type DrawOptions struct {
	// NodeNames maps node keys to labels, e.g. CPPN input names.
	NodeNames    map[int]string
	ShowDisabled bool
	// PruneUnused drops hidden nodes that cannot reach an output.
	PruneUnused bool
}

type dotNode struct {
	id    int64
	key   int
	attrs []encoding.Attribute
}

func (n dotNode) ID() int64                        { return n.id }
func (n dotNode) DOTID() string                    { return strconv.Itoa(n.key) }
func (n dotNode) Attributes() []encoding.Attribute { return n.attrs }

type dotEdge struct {
	from, to graph.Node
	attrs    []encoding.Attribute
}

func (e dotEdge) From() graph.Node                 { return e.from }
func (e dotEdge) To() graph.Node                   { return e.to }
func (e dotEdge) ReversedEdge() graph.Edge         { return dotEdge{from: e.to, to: e.from, attrs: e.attrs} }
func (e dotEdge) Attributes() []encoding.Attribute { return e.attrs }

type attrs []encoding.Attribute

func (a attrs) Attributes() []encoding.Attribute { return a }

// network is a directed graph carrying graph-wide DOT attributes.
type network struct {
	*simple.DirectedGraph
	ids map[int]int64
}

func (n *network) DOTAttributers() (g, node, edge encoding.Attributer) {
	return attrs{}, attrs{
		{Key: "shape", Value: "circle"},
		{Key: "fontsize", Value: "9"},
		{Key: "height", Value: "0.2"},
		{Key: "width", Value: "0.2"},
	}, attrs{}
}

func newNetwork() *network {
	return &network{DirectedGraph: simple.NewDirectedGraph(), ids: make(map[int]int64)}
}

func (n *network) addNode(key int, a ...encoding.Attribute) {
	if _, ok := n.ids[key]; ok {
		return
	}
	id := int64(len(n.ids))
	n.ids[key] = id
	n.AddNode(dotNode{id: id, key: key, attrs: a})
}

// addEdge adds a weighted edge. Self loops are not drawn.
func (n *network) addEdge(from, to int, weight float64, enabled bool) {
	if from == to {
		return
	}
	n.addNode(from)
	n.addNode(to)
	color := "green"
	if weight <= 0 {
		color = "red"
	}
	a := []encoding.Attribute{
		{Key: "color", Value: color},
		{Key: "penwidth", Value: strconv.FormatFloat(0.1+math.Abs(weight/5.0), 'f', 3, 64)},
	}
	if !enabled {
		a = append(a, encoding.Attribute{Key: "style", Value: "dotted"})
	}
	n.SetEdge(dotEdge{from: n.Node(n.ids[from]), to: n.Node(n.ids[to]), attrs: a})
}

func label(key int, names map[int]string) []encoding.Attribute {
	if name, ok := names[key]; ok {
		return []encoding.Attribute{{Key: "label", Value: strconv.Quote(name)}}
	}
	return nil
}

func inputAttrs(key int, names map[int]string) []encoding.Attribute {
	return append([]encoding.Attribute{
		{Key: "shape", Value: "box"},
		{Key: "style", Value: "filled"},
		{Key: "fillcolor", Value: "lightgray"},
	}, label(key, names)...)
}

func outputAttrs(key int, names map[int]string) []encoding.Attribute {
	return append([]encoding.Attribute{
		{Key: "style", Value: "filled"},
		{Key: "fillcolor", Value: "lightblue"},
	}, label(key, names)...)
}

// GenomeDOT renders a genome's nodes and connections.
func GenomeDOT(g *neat.Genome, name string, opts DrawOptions) ([]byte, error) {
	net := newNetwork()
	for _, k := range g.Config.InputKeys {
		net.addNode(k, inputAttrs(k, opts.NodeNames)...)
	}
	outputs := make(map[int]bool, len(g.Config.OutputKeys))
	for _, k := range g.Config.OutputKeys {
		outputs[k] = true
		net.addNode(k, outputAttrs(k, opts.NodeNames)...)
	}

	var conns []neat.ConnectionKey
	for k, c := range g.Connections {
		if c.Enabled || opts.ShowDisabled {
			conns = append(conns, k)
		}
	}
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].InNodeID != conns[j].InNodeID {
			return conns[i].InNodeID < conns[j].InNodeID
		}
		return conns[i].OutNodeID < conns[j].OutNodeID
	})

	used := usedNodes(g.Nodes, conns, outputs, opts.PruneUnused)
	for _, k := range sortedInts(g.Nodes) {
		if outputs[k] || !used[k] {
			continue
		}
		net.addNode(k, label(k, opts.NodeNames)...)
	}
	for _, k := range conns {
		if !used[k.InNodeID] || !used[k.OutNodeID] {
			continue
		}
		c := g.Connections[k]
		net.addEdge(k.InNodeID, k.OutNodeID, c.Weight, c.Enabled)
	}
	return marshal(net, name)
}

// usedNodes marks nodes that can reach an output; all nodes when not
// pruning.
func usedNodes(nodes map[int]*neat.NodeGene, conns []neat.ConnectionKey, outputs map[int]bool, prune bool) map[int]bool {
	used := make(map[int]bool, len(nodes))
	if !prune {
		for k := range nodes {
			used[k] = true
		}
		for _, c := range conns {
			used[c.InNodeID] = true
		}
		return used
	}
	pending := make([]int, 0, len(outputs))
	for k := range outputs {
		used[k] = true
		pending = append(pending, k)
	}
	for len(pending) > 0 {
		n := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for _, c := range conns {
			if c.OutNodeID == n && !used[c.InNodeID] {
				used[c.InNodeID] = true
				pending = append(pending, c.InNodeID)
			}
		}
	}
	return used
}

// NetworkDOT renders a decoded network from its node evaluations.
func NetworkDOT(net *nn.RecurrentNetwork, name string, opts DrawOptions) ([]byte, error) {
	g := newNetwork()
	for _, k := range net.InputKeys {
		g.addNode(k, inputAttrs(k, opts.NodeNames)...)
	}
	for _, k := range net.OutputKeys {
		g.addNode(k, outputAttrs(k, opts.NodeNames)...)
	}
	for _, ne := range net.NodeEvals {
		g.addNode(ne.Key, label(ne.Key, opts.NodeNames)...)
	}
	for _, ne := range net.NodeEvals {
		for _, l := range ne.Links {
			g.addEdge(l.From, ne.Key, l.Weight, true)
		}
	}
	return marshal(g, name)
}

func marshal(n *network, name string) ([]byte, error) {
	b, err := dot.Marshal(n, name, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	return append(b, '\n'), nil
}

// WriteDOT writes rendered DOT to path.
func WriteDOT(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func sortedInts[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
