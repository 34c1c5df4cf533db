package visualize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/hexneat/neat"
	"github.com/baldhumanity/hexneat/neat/nn"
)

func testGenome(t *testing.T) *neat.Genome {
	t.Helper()
	config := &neat.GenomeConfig{
		NumInputs:  2,
		NumOutputs: 1,
		InputKeys:  []int{-1, -2},
		OutputKeys: []int{0},
	}
	g := neat.NewGenome(1, config)
	g.Nodes[0] = &neat.NodeGene{Key: 0, Activation: "sigmoid", Aggregation: "sum", Response: 1}
	g.Nodes[1] = &neat.NodeGene{Key: 1, Activation: "tanh", Aggregation: "sum", Response: 1}
	g.Nodes[2] = &neat.NodeGene{Key: 2, Activation: "tanh", Aggregation: "sum", Response: 1}
	connect := func(in, out int, w float64, enabled bool) {
		k := neat.ConnectionKey{InNodeID: in, OutNodeID: out}
		g.Connections[k] = &neat.ConnectionGene{Key: k, Weight: w, Enabled: enabled}
	}
	connect(-1, 1, 1.5, true)
	connect(1, 0, -2, true)
	connect(-2, 0, 0.5, false)
	// Node 2 is a dead end.
	connect(-2, 2, 1, true)
	return g
}

func TestGenomeDOT(t *testing.T) {
	g := testGenome(t)
	names := map[int]string{-1: "left", -2: "right", 0: "out"}

	out, err := GenomeDOT(g, "cppn", DrawOptions{NodeNames: names, ShowDisabled: true})
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, "digraph cppn {")
	for _, name := range []string{"left", "right", "out"} {
		assert.Contains(t, s, name)
	}
	assert.Contains(t, s, "lightgray")
	assert.Contains(t, s, "lightblue")
	assert.Contains(t, s, "dotted")
	assert.Contains(t, s, "red")
	assert.Contains(t, s, "green")
	assert.Equal(t, 4, strings.Count(s, "->"))
}

func TestGenomeDOTHidesDisabled(t *testing.T) {
	out, err := GenomeDOT(testGenome(t), "g", DrawOptions{})
	require.NoError(t, err)
	s := string(out)
	assert.NotContains(t, s, "dotted")
	assert.Equal(t, 3, strings.Count(s, "->"))
}

func TestGenomeDOTPrunesUnused(t *testing.T) {
	g := testGenome(t)

	full, err := GenomeDOT(g, "g", DrawOptions{})
	require.NoError(t, err)
	pruned, err := GenomeDOT(g, "g", DrawOptions{PruneUnused: true})
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(string(full), "->"))
	assert.Equal(t, 2, strings.Count(string(pruned), "->"))
}

func TestGenomeDOTSkipsSelfLoops(t *testing.T) {
	g := testGenome(t)
	k := neat.ConnectionKey{InNodeID: 1, OutNodeID: 1}
	g.Connections[k] = &neat.ConnectionGene{Key: k, Weight: 1, Enabled: true}

	out, err := GenomeDOT(g, "g", DrawOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(out), "->"))
}

func TestNetworkDOT(t *testing.T) {
	net := nn.NewRecurrentNetwork([]int{0, 1}, []int{3}, []nn.NodeEval{
		{Key: 2, Links: []nn.Link{{From: 0, Weight: 1}, {From: 1, Weight: -1}}},
		{Key: 3, Links: []nn.Link{{From: 2, Weight: 2}, {From: 3, Weight: 1}}},
	})

	out, err := NetworkDOT(net, "winner", DrawOptions{})
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "digraph winner {")
	// The 3 -> 3 self loop is not drawn.
	assert.Equal(t, 3, strings.Count(s, "->"))
}

func TestWriteDOT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.dot")
	require.NoError(t, WriteDOT(path, []byte("digraph {}\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "digraph {}\n", string(data))

	assert.Error(t, WriteDOT(filepath.Join(t.TempDir(), "missing", "g.dot"), nil))
}

func testStats() *neat.StatisticsReporter {
	stats := neat.NewStatisticsReporter()
	for gen := 0; gen < 3; gen++ {
		ss := neat.NewSpeciesSet(&neat.SpeciesSetConfig{})
		for sid := 1; sid <= 2; sid++ {
			s := neat.NewSpecies(sid, gen)
			for i := 0; i < 3; i++ {
				key := gen*10 + sid*3 + i
				s.Members[key] = &neat.Genome{Key: key, Fitness: float64(gen + sid + i)}
			}
			ss.Species[sid] = s
		}
		stats.PostEvaluate(nil, nil, ss, ss.Species[2].Members[gen*10+8])
	}
	return stats
}

func TestPlots(t *testing.T) {
	dir := t.TempDir()
	stats := testStats()

	fitness := filepath.Join(dir, "fitness.png")
	require.NoError(t, PlotStats(stats, fitness))
	species := filepath.Join(dir, "speciation.png")
	require.NoError(t, PlotSpecies(stats, species))

	for _, path := range []string{fitness, species} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestPlotsWithoutData(t *testing.T) {
	dir := t.TempDir()
	stats := neat.NewStatisticsReporter()

	assert.ErrorIs(t, PlotStats(stats, filepath.Join(dir, "f.png")), ErrNoData)
	assert.ErrorIs(t, PlotSpecies(stats, filepath.Join(dir, "s.png")), ErrNoData)
	_, err := os.Stat(filepath.Join(dir, "f.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
