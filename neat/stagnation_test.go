package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stagnationFixture() (*SpeciesSet, *Genome, *Genome) {
	flat := &Genome{Key: 1, Fitness: 1}
	rising := &Genome{Key: 2, Fitness: 1}
	ss := NewSpeciesSet(&SpeciesSetConfig{CompatibilityThreshold: 3})
	s1 := NewSpecies(1, 0)
	s1.Members[flat.Key] = flat
	s2 := NewSpecies(2, 0)
	s2.Members[rising.Key] = rising
	ss.Species[1] = s1
	ss.Species[2] = s2
	return ss, flat, rising
}

func TestStagnationMarksSpeciesWithoutImprovement(t *testing.T) {
	s, err := NewStagnation(&StagnationConfig{SpeciesFitnessFunc: "max", MaxStagnation: 2, SpeciesElitism: 1})
	require.NoError(t, err)
	ss, _, rising := stagnationFixture()

	var infos []StagnationInfo
	for gen := 0; gen <= 2; gen++ {
		rising.Fitness = float64(gen + 2)
		infos, err = s.Update(ss, gen)
		require.NoError(t, err)
	}

	require.Len(t, infos, 2)
	// ascending species fitness
	assert.Equal(t, 1, infos[0].SpeciesID)
	assert.True(t, infos[0].IsStagnant)
	assert.Equal(t, 2, infos[1].SpeciesID)
	assert.False(t, infos[1].IsStagnant)

	assert.Equal(t, 0, ss.Species[1].LastImproved)
	assert.Equal(t, 2, ss.Species[2].LastImproved)
	assert.Equal(t, []float64{1, 1, 1}, ss.Species[1].FitnessHistory)
}

func TestStagnationSpeciesElitismProtects(t *testing.T) {
	s, err := NewStagnation(&StagnationConfig{SpeciesFitnessFunc: "max", MaxStagnation: 1, SpeciesElitism: 2})
	require.NoError(t, err)
	ss, _, _ := stagnationFixture()

	var infos []StagnationInfo
	for gen := 0; gen <= 3; gen++ {
		infos, err = s.Update(ss, gen)
		require.NoError(t, err)
	}
	for _, info := range infos {
		assert.False(t, info.IsStagnant)
	}
}

func TestNewStagnationRejectsUnknownFunction(t *testing.T) {
	_, err := NewStagnation(&StagnationConfig{SpeciesFitnessFunc: "mode"})
	require.Error(t, err)
}
