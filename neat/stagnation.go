package neat

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Stagnation detects species that stopped improving.
type Stagnation struct {
	Config             *StagnationConfig
	SpeciesFitnessFunc func([]float64) float64
}

// NewStagnation creates a stagnation manager.
func NewStagnation(config *StagnationConfig) (*Stagnation, error) {
	fn, ok := StatFunctions[strings.ToLower(config.SpeciesFitnessFunc)]
	if !ok {
		return nil, fmt.Errorf("invalid species_fitness_func in config: %s", config.SpeciesFitnessFunc)
	}
	return &Stagnation{Config: config, SpeciesFitnessFunc: fn}, nil
}

// StagnationInfo is the verdict for a single species.
type StagnationInfo struct {
	SpeciesID  int
	Species    *Species
	IsStagnant bool
}

// Update recomputes species fitness, records history and marks stagnant
// species. Results are ordered by ascending species fitness. The
// species_elitism fittest species are never marked stagnant, and marking
// stops once only species_elitism species would remain.
func (s *Stagnation) Update(speciesSet *SpeciesSet, generation int) ([]StagnationInfo, error) {
	result := make([]StagnationInfo, 0, len(speciesSet.Species))

	for _, sid := range sortedKeys(speciesSet.Species) {
		sp := speciesSet.Species[sid]
		prevFitness := math.Inf(-1)
		if len(sp.FitnessHistory) > 0 {
			prevFitness = MaxFloat(sp.FitnessHistory)
		}

		if members := sp.GetFitnesses(); len(members) > 0 {
			sp.Fitness = s.SpeciesFitnessFunc(members)
		} else {
			sp.Fitness = math.Inf(-1)
		}
		sp.FitnessHistory = append(sp.FitnessHistory, sp.Fitness)
		sp.AdjustedFitness = 0
		if prevFitness == math.Inf(-1) || sp.Fitness > prevFitness {
			sp.LastImproved = generation
		}
		result = append(result, StagnationInfo{SpeciesID: sid, Species: sp})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Species.Fitness < result[j].Species.Fitness
	})

	numSpecies := len(result)
	numNonStagnant := numSpecies
	for i := range result {
		sp := result[i].Species
		stagnantTime := generation - sp.LastImproved
		isStagnant := false
		if numNonStagnant > s.Config.SpeciesElitism {
			isStagnant = stagnantTime >= s.Config.MaxStagnation
		}
		if numSpecies-i <= s.Config.SpeciesElitism {
			isStagnant = false
		}
		if isStagnant {
			numNonStagnant--
		}
		result[i].IsStagnant = isStagnant
	}
	return result, nil
}
