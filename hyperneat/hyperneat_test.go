package hyperneat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/hexneat/neat"
	"github.com/baldhumanity/hexneat/neat/nn"
)

type cppnFunc func(in []float64) ([]float64, error)

func (f cppnFunc) Activate(in []float64) ([]float64, error) { return f(in) }

func constantCPPN(w float64) CPPN {
	return cppnFunc(func([]float64) ([]float64, error) { return []float64{w}, nil })
}

func TestHexapodSubstrate(t *testing.T) {
	s := HexapodSubstrate()
	require.Len(t, s.Inputs, 20)
	require.Len(t, s.Outputs, 18)
	require.Len(t, s.Hidden, 1)
	assert.Len(t, s.Hidden[0], 18)
	assert.Equal(t, 3, Activations(s))

	assert.Equal(t, Point{-0.6, 0.5}, s.Inputs[0])
	assert.Equal(t, Point{0, 0.25}, s.Inputs[6])
	assert.Equal(t, Point{-0.6, 0}, s.Inputs[7])
	assert.Equal(t, Point{0, -0.25}, s.Inputs[13])
	assert.Equal(t, Point{0.6, -0.5}, s.Inputs[19])
	assert.Equal(t, s.Outputs, s.Hidden[0])
}

func TestNewSubstrate(t *testing.T) {
	in := []Point{{0, 0}}
	out := []Point{{1, 1}}

	s, err := NewSubstrate(in, out)
	require.NoError(t, err)
	assert.Equal(t, 2, Activations(s))

	_, err = NewSubstrate(nil, out)
	require.Error(t, err)
	_, err = NewSubstrate(in, nil)
	require.Error(t, err)
	_, err = NewSubstrate(in, out, []Point{})
	require.Error(t, err)
}

func TestScaleWeight(t *testing.T) {
	assert.Zero(t, ScaleWeight(0.2, 0.2, 5))
	assert.Zero(t, ScaleWeight(-0.1, 0.2, 5))
	assert.InDelta(t, 5.0, ScaleWeight(1, 0.2, 5), 1e-12)
	assert.InDelta(t, -5.0, ScaleWeight(-1, 0.2, 5), 1e-12)
	assert.InDelta(t, 2.5, ScaleWeight(0.6, 0.2, 5), 1e-12)
}

func TestCreatePhenotypeNetworkLayers(t *testing.T) {
	s, err := NewSubstrate(
		[]Point{{-1, 0}, {1, 0}},
		[]Point{{0, 1}},
		[]Point{{-1, 0.5}, {1, 0.5}, {0, 0.5}},
	)
	require.NoError(t, err)

	opts := Options{Activation: "identity", WeightThreshold: 0.2, MaxWeight: 5}
	net, err := CreatePhenotypeNetwork(constantCPPN(0.6), s, opts)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, net.InputKeys)
	assert.Equal(t, []int{2}, net.OutputKeys)
	require.Len(t, net.NodeEvals, 4)
	for i, key := range []int{3, 4, 5} {
		ne := net.NodeEvals[i]
		assert.Equal(t, key, ne.Key)
		assert.Equal(t, []nn.Link{{From: 0, Weight: 2.5}, {From: 1, Weight: 2.5}}, ne.Links)
	}
	assert.Equal(t, 2, net.NodeEvals[3].Key)
	assert.Len(t, net.NodeEvals[3].Links, 3)

	// inputs -> hidden -> output takes Activations steps
	var out []float64
	for i := 0; i < Activations(s); i++ {
		out, err = net.Activate([]float64{1, 1})
		require.NoError(t, err)
	}
	assert.InDelta(t, 3*2.5*(2*2.5), out[0], 1e-9)
}

func TestCreatePhenotypeNetworkDropsSmallWeights(t *testing.T) {
	net, err := CreatePhenotypeNetwork(constantCPPN(0.1), HexapodSubstrate(), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, net.NodeEvals, 36)
	for _, ne := range net.NodeEvals {
		assert.Empty(t, ne.Links)
	}
}

func TestCreatePhenotypeNetworkQueriesCoordinates(t *testing.T) {
	s, err := NewSubstrate([]Point{{-1, -1}}, []Point{{0.5, 1}})
	require.NoError(t, err)

	var queries [][]float64
	cppn := cppnFunc(func(in []float64) ([]float64, error) {
		queries = append(queries, append([]float64(nil), in...))
		return []float64{1}, nil
	})
	_, err = CreatePhenotypeNetwork(cppn, s, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-1, -1, 0.5, 1, 1}}, queries)
}

func TestCreatePhenotypeNetworkErrors(t *testing.T) {
	s := HexapodSubstrate()

	_, err := CreatePhenotypeNetwork(constantCPPN(1), s, Options{Activation: "wobble"})
	require.Error(t, err)

	_, err = CreatePhenotypeNetwork(constantCPPN(1), s, Options{WeightThreshold: 1})
	require.Error(t, err)

	boom := errors.New("boom")
	failing := cppnFunc(func([]float64) ([]float64, error) { return nil, boom })
	_, err = CreatePhenotypeNetwork(failing, s, DefaultOptions())
	require.ErrorIs(t, err, boom)

	empty := cppnFunc(func([]float64) ([]float64, error) { return nil, nil })
	_, err = CreatePhenotypeNetwork(empty, s, DefaultOptions())
	require.Error(t, err)
}

func TestCreatePhenotypeFromGenome(t *testing.T) {
	cfg := &neat.GenomeConfig{
		NumInputs:   5,
		NumOutputs:  1,
		FeedForward: true,
		InputKeys:   []int{-1, -2, -3, -4, -5},
		OutputKeys:  []int{0},
	}
	g := neat.NewGenome(1, cfg)
	g.Nodes[0] = &neat.NodeGene{Key: 0, Response: 1, Activation: "identity", Aggregation: "sum"}
	// weight follows the bias input only
	key := neat.ConnectionKey{InNodeID: -5, OutNodeID: 0}
	g.Connections[key] = &neat.ConnectionGene{Key: key, Weight: 0.6, Enabled: true}

	cppn, err := nn.CreateFeedForwardNetwork(g)
	require.NoError(t, err)
	net, err := CreatePhenotypeNetwork(cppn, HexapodSubstrate(), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, net.InputKeys, 20)
	require.Len(t, net.OutputKeys, 18)
	for _, ne := range net.NodeEvals {
		require.NotEmpty(t, ne.Links)
		assert.InDelta(t, 2.5, ne.Links[0].Weight, 1e-12)
	}
}
