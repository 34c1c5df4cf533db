package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSpawnAmounts(t *testing.T) {
	t.Run("proportional to adjusted fitness", func(t *testing.T) {
		spawn := computeSpawnAmounts([]float64{1, 0}, []int{10, 10}, 20, 2)
		assert.Equal(t, []int{14, 6}, spawn)
	})

	t.Run("zero fitness falls back to minimum size", func(t *testing.T) {
		spawn := computeSpawnAmounts([]float64{0, 0}, []int{5, 5}, 10, 2)
		assert.Equal(t, []int{5, 5}, spawn)
	})

	t.Run("minimum species size is respected", func(t *testing.T) {
		spawn := computeSpawnAmounts([]float64{1, 0, 0}, []int{2, 2, 2}, 30, 3)
		for _, s := range spawn {
			assert.GreaterOrEqual(t, s, 3)
		}
	})
}

func TestCreateNewPopulation(t *testing.T) {
	config := testConfig(t)
	r := NewReproduction(&config.Reproduction, &ReporterSet{}, nil)

	population := r.CreateNewPopulation(&config.Genome, 5)
	require.Len(t, population, 5)
	for key := 1; key <= 5; key++ {
		g, ok := population[key]
		require.True(t, ok)
		assert.Equal(t, key, g.Key)
		assert.Contains(t, r.Ancestors, key)
	}
	assert.Equal(t, 6, r.NextGenomeKey)
}

func TestReproduceKeepsElites(t *testing.T) {
	config := testConfig(t)
	stagnation, err := NewStagnation(&config.Stagnation)
	require.NoError(t, err)
	r := NewReproduction(&config.Reproduction, &ReporterSet{}, stagnation)

	population := r.CreateNewPopulation(&config.Genome, config.Neat.PopSize)
	for k, g := range population {
		g.Fitness = float64(k)
	}
	ss := NewSpeciesSet(&config.SpeciesSet)
	require.NoError(t, ss.Speciate(config, population, 0))

	next, err := r.Reproduce(config, ss, config.Neat.PopSize, 1)
	require.NoError(t, err)
	require.NotEmpty(t, next)

	// The fittest genome is an elite of its species and survives unchanged.
	best := population[config.Neat.PopSize]
	survivor, ok := next[best.Key]
	require.True(t, ok)
	assert.Same(t, best, survivor)

	for key, g := range next {
		assert.Equal(t, key, g.Key)
		if key > config.Neat.PopSize {
			assert.Len(t, r.Ancestors[key], 2)
		}
	}
}
