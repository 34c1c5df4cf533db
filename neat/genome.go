package neat

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Genome represents an individual organism in the population.
type Genome struct {
	Key         int
	Nodes       map[int]*NodeGene
	Connections map[ConnectionKey]*ConnectionGene
	Fitness     float64
	Config      *GenomeConfig
}

// NewGenome creates an empty genome bound to config.
func NewGenome(key int, config *GenomeConfig) *Genome {
	return &Genome{
		Key:         key,
		Nodes:       make(map[int]*NodeGene),
		Connections: make(map[ConnectionKey]*ConnectionGene),
		Config:      config,
	}
}

// ConfigureNew creates output and hidden nodes and the initial
// connections named by initial_connection.
func (g *Genome) ConfigureNew() {
	for _, nodeKey := range g.Config.OutputKeys {
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, g.Config)
	}
	for i := 0; i < g.Config.NumHidden; i++ {
		nodeKey := g.Config.GetNewNodeKey()
		if _, exists := g.Nodes[nodeKey]; exists {
			panic(fmt.Sprintf("duplicate node key %d", nodeKey))
		}
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, g.Config)
	}

	switch g.Config.ConnectionType {
	case "unconnected":
	case "fs_neat_nohidden", "fs_neat":
		// One random input wired to every output.
		in := g.Config.InputKeys[rand.Intn(len(g.Config.InputKeys))]
		for _, out := range g.Config.OutputKeys {
			g.addConnection(in, out)
		}
	case "fs_neat_hidden":
		in := g.Config.InputKeys[rand.Intn(len(g.Config.InputKeys))]
		for _, out := range g.sortedNodeKeys() {
			g.addConnection(in, out)
		}
	case "full_nodirect", "full":
		g.connectFull(false, 1.0)
	case "full_direct":
		g.connectFull(true, 1.0)
	case "partial_nodirect", "partial":
		g.connectFull(false, g.Config.ConnectionFraction)
	case "partial_direct":
		g.connectFull(true, g.Config.ConnectionFraction)
	default:
		panic(fmt.Sprintf("invalid initial_connection type %q", g.Config.ConnectionType))
	}
}

// connectFull wires inputs to hidden nodes and hidden nodes to outputs.
// Direct input->output links are added when there are no hidden nodes or
// direct is set. Recurrent genomes also get self-connections. Each link is
// kept with probability fraction.
func (g *Genome) connectFull(direct bool, fraction float64) {
	hidden := g.hiddenKeys()
	outputs := g.Config.OutputKeys

	var links []ConnectionKey
	for _, in := range g.Config.InputKeys {
		for _, h := range hidden {
			links = append(links, ConnectionKey{in, h})
		}
		if direct || len(hidden) == 0 {
			for _, out := range outputs {
				links = append(links, ConnectionKey{in, out})
			}
		}
	}
	for _, h := range hidden {
		for _, out := range outputs {
			links = append(links, ConnectionKey{h, out})
		}
	}
	if !g.Config.FeedForward {
		for _, k := range g.sortedNodeKeys() {
			links = append(links, ConnectionKey{k, k})
		}
	}

	if fraction < 1.0 {
		rand.Shuffle(len(links), func(i, j int) { links[i], links[j] = links[j], links[i] })
		links = links[:int(float64(len(links))*fraction+0.5)]
	}
	for _, k := range links {
		g.addConnection(k.InNodeID, k.OutNodeID)
	}
}

func (g *Genome) addConnection(in, out int) *ConnectionGene {
	key := ConnectionKey{InNodeID: in, OutNodeID: out}
	conn := NewConnectionGene(key, g.Config)
	g.Connections[key] = conn
	return conn
}

func (g *Genome) isOutput(key int) bool {
	for _, k := range g.Config.OutputKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (g *Genome) sortedNodeKeys() []int {
	keys := make([]int, 0, len(g.Nodes))
	for k := range g.Nodes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func (g *Genome) hiddenKeys() []int {
	var hidden []int
	for _, k := range g.sortedNodeKeys() {
		if !g.isOutput(k) {
			hidden = append(hidden, k)
		}
	}
	return hidden
}

func (g *Genome) sortedConnectionKeys() []ConnectionKey {
	keys := make([]ConnectionKey, 0, len(g.Connections))
	for k := range g.Connections {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].InNodeID != keys[j].InNodeID {
			return keys[i].InNodeID < keys[j].InNodeID
		}
		return keys[i].OutNodeID < keys[j].OutNodeID
	})
	return keys
}

// ConfigureCrossover fills g from two parents. Homologous genes mix
// attributes; disjoint and excess genes come from the fitter parent.
func (g *Genome) ConfigureCrossover(parent1, parent2 *Genome) {
	if parent1.Fitness < parent2.Fitness {
		parent1, parent2 = parent2, parent1
	}
	g.Config = parent1.Config

	for key, conn1 := range parent1.Connections {
		if conn2, ok := parent2.Connections[key]; ok {
			g.Connections[key] = conn1.Crossover(conn2)
		} else {
			g.Connections[key] = conn1.Copy()
		}
	}
	for key, node1 := range parent1.Nodes {
		if node2, ok := parent2.Nodes[key]; ok {
			g.Nodes[key] = node1.Crossover(node2)
		} else {
			g.Nodes[key] = node1.Copy()
		}
	}
}

// Mutate applies structural mutations followed by attribute mutations.
func (g *Genome) Mutate() {
	cfg := g.Config
	if cfg.SingleStructuralMutation {
		div := cfg.NodeAddProb + cfg.NodeDeleteProb + cfg.ConnAddProb + cfg.ConnDeleteProb
		if div > 1.0 {
			div = 1.0
		}
		if div > 0 {
			r := rand.Float64()
			switch {
			case r < cfg.NodeAddProb/div:
				g.mutateAddNode()
			case r < (cfg.NodeAddProb+cfg.NodeDeleteProb)/div:
				g.mutateDeleteNode()
			case r < (cfg.NodeAddProb+cfg.NodeDeleteProb+cfg.ConnAddProb)/div:
				g.mutateAddConnection()
			case r < (cfg.NodeAddProb+cfg.NodeDeleteProb+cfg.ConnAddProb+cfg.ConnDeleteProb)/div:
				g.mutateDeleteConnection()
			}
		}
	} else {
		if rand.Float64() < cfg.NodeAddProb {
			g.mutateAddNode()
		}
		if rand.Float64() < cfg.NodeDeleteProb {
			g.mutateDeleteNode()
		}
		if rand.Float64() < cfg.ConnAddProb {
			g.mutateAddConnection()
		}
		if rand.Float64() < cfg.ConnDeleteProb {
			g.mutateDeleteConnection()
		}
	}

	for _, node := range g.Nodes {
		node.Mutate(cfg)
	}
	for _, conn := range g.Connections {
		conn.Mutate(cfg)
	}
}

// mutateAddNode splits a random connection. The incoming half gets weight
// 1 and the outgoing half keeps the original weight.
func (g *Genome) mutateAddNode() {
	if len(g.Connections) == 0 {
		if strings.EqualFold(g.Config.StructuralMutationSurer, "true") {
			g.mutateAddConnection()
		}
		return
	}
	keys := g.sortedConnectionKeys()
	split := g.Connections[keys[rand.Intn(len(keys))]]
	split.Enabled = false

	newKey := g.Config.GetNewNodeKey()
	g.Nodes[newKey] = NewNodeGene(newKey, g.Config)

	in := g.addConnection(split.Key.InNodeID, newKey)
	in.Weight = 1.0
	in.Enabled = true
	out := g.addConnection(newKey, split.Key.OutNodeID)
	out.Weight = split.Weight
	out.Enabled = true
}

// mutateDeleteNode removes a random hidden node and every connection
// touching it. Output nodes are never deleted.
func (g *Genome) mutateDeleteNode() {
	hidden := g.hiddenKeys()
	if len(hidden) == 0 {
		return
	}
	del := hidden[rand.Intn(len(hidden))]
	for key := range g.Connections {
		if key.InNodeID == del || key.OutNodeID == del {
			delete(g.Connections, key)
		}
	}
	delete(g.Nodes, del)
}

// mutateAddConnection links two previously unconnected nodes. Inputs are
// never targets; feed-forward genomes also reject output->output links and
// anything that would close a cycle.
func (g *Genome) mutateAddConnection() {
	outputs := g.sortedNodeKeys()
	if len(outputs) == 0 {
		return
	}
	inputs := append(append([]int(nil), g.Config.InputKeys...), outputs...)

	const maxAttempts = 20
	for i := 0; i < maxAttempts; i++ {
		in := inputs[rand.Intn(len(inputs))]
		out := outputs[rand.Intn(len(outputs))]
		key := ConnectionKey{InNodeID: in, OutNodeID: out}

		if existing, ok := g.Connections[key]; ok {
			if strings.EqualFold(g.Config.StructuralMutationSurer, "true") {
				existing.Enabled = true
			}
			return
		}
		if g.Config.FeedForward {
			if g.isOutput(in) && g.isOutput(out) {
				continue
			}
			if createsCycle(g, in, out) {
				continue
			}
		}
		g.addConnection(in, out)
		return
	}
}

// mutateDeleteConnection removes a random connection gene.
func (g *Genome) mutateDeleteConnection() {
	if len(g.Connections) == 0 {
		return
	}
	keys := g.sortedConnectionKeys()
	delete(g.Connections, keys[rand.Intn(len(keys))])
}

// Distance is the compatibility distance used for speciation: node and
// connection gene distances, each combining attribute differences of
// homologous genes with a disjoint count normalised by the larger genome.
func (g *Genome) Distance(other *Genome) float64 {
	cfg := g.Config

	nodeDistance := 0.0
	if len(g.Nodes) > 0 || len(other.Nodes) > 0 {
		disjoint := 0
		for k, n1 := range g.Nodes {
			if n2, ok := other.Nodes[k]; ok {
				nodeDistance += n1.Distance(n2, cfg)
			} else {
				disjoint++
			}
		}
		for k := range other.Nodes {
			if _, ok := g.Nodes[k]; !ok {
				disjoint++
			}
		}
		n := float64(max(len(g.Nodes), len(other.Nodes)))
		nodeDistance = (nodeDistance + cfg.CompatibilityDisjointCoefficient*float64(disjoint)) / n
	}

	connDistance := 0.0
	if len(g.Connections) > 0 || len(other.Connections) > 0 {
		disjoint := 0
		for k, c1 := range g.Connections {
			if c2, ok := other.Connections[k]; ok {
				connDistance += c1.Distance(c2, cfg)
			} else {
				disjoint++
			}
		}
		for k := range other.Connections {
			if _, ok := g.Connections[k]; !ok {
				disjoint++
			}
		}
		n := float64(max(len(g.Connections), len(other.Connections)))
		connDistance = (connDistance + cfg.CompatibilityDisjointCoefficient*float64(disjoint)) / n
	}

	return nodeDistance + connDistance
}

// Size returns the number of nodes and the number of enabled connections.
func (g *Genome) Size() (int, int) {
	enabled := 0
	for _, c := range g.Connections {
		if c.Enabled {
			enabled++
		}
	}
	return len(g.Nodes), enabled
}

// String renders the genome in the multi-line format neat-python prints
// for the best genome.
func (g *Genome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Key: %d\nFitness: %v\nNodes:", g.Key, g.Fitness)
	for _, k := range g.sortedNodeKeys() {
		fmt.Fprintf(&b, "\n\t%d %s", k, g.Nodes[k])
	}
	b.WriteString("\nConnections:")
	for _, k := range g.sortedConnectionKeys() {
		fmt.Fprintf(&b, "\n\t%s", g.Connections[k])
	}
	return b.String()
}

// createsCycle reports whether adding in->out closes a loop. Disabled
// connections count: node splits and crossover can enable them again.
func createsCycle(genome *Genome, in, out int) bool {
	if in == out {
		return true
	}
	adjacency := make(map[int][]int)
	for key := range genome.Connections {
		adjacency[key.InNodeID] = append(adjacency[key.InNodeID], key.OutNodeID)
	}
	visited := map[int]bool{out: true}
	queue := []int{out}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == in {
			return true
		}
		for _, next := range adjacency[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// Copy returns a deep copy sharing only the config pointer.
func (g *Genome) Copy() *Genome {
	c := NewGenome(g.Key, g.Config)
	c.Fitness = g.Fitness
	for k, n := range g.Nodes {
		c.Nodes[k] = n.Copy()
	}
	for k, conn := range g.Connections {
		c.Connections[k] = conn.Copy()
	}
	return c
}
