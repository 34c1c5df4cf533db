package neat

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Reproduction creates genomes from scratch or by crossover and mutation.
type Reproduction struct {
	Config        *ReproductionConfig
	NextGenomeKey int
	Ancestors     map[int][]int // genome key -> parent keys
	Stagnation    *Stagnation

	reporters *ReporterSet
}

// NewReproduction creates a reproduction manager; genome keys start at 1.
func NewReproduction(config *ReproductionConfig, reporters *ReporterSet, stagnation *Stagnation) *Reproduction {
	return &Reproduction{
		Config:        config,
		NextGenomeKey: 1,
		Ancestors:     make(map[int][]int),
		Stagnation:    stagnation,
		reporters:     reporters,
	}
}

func (r *Reproduction) getNextKey() int {
	key := r.NextGenomeKey
	r.NextGenomeKey++
	return key
}

// CreateNewPopulation creates popSize genomes from scratch.
func (r *Reproduction) CreateNewPopulation(genomeConfig *GenomeConfig, popSize int) map[int]*Genome {
	genomes := make(map[int]*Genome, popSize)
	for i := 0; i < popSize; i++ {
		key := r.getNextKey()
		g := NewGenome(key, genomeConfig)
		g.ConfigureNew()
		genomes[key] = g
		r.Ancestors[key] = nil
	}
	return genomes
}

// Reproduce builds the next generation from the current species. An empty
// result means every species went extinct.
func (r *Reproduction) Reproduce(config *Config, speciesSet *SpeciesSet, popSize int, generation int) (map[int]*Genome, error) {
	stagnationInfo, err := r.Stagnation.Update(speciesSet, generation)
	if err != nil {
		return nil, fmt.Errorf("failed to update stagnation: %w", err)
	}

	var allFitnesses []float64
	var remaining []*Species
	for _, info := range stagnationInfo {
		if info.IsStagnant {
			r.reporters.SpeciesStagnant(info.SpeciesID, info.Species)
			continue
		}
		fitnesses := info.Species.GetFitnesses()
		if len(fitnesses) == 0 {
			continue
		}
		allFitnesses = append(allFitnesses, fitnesses...)
		remaining = append(remaining, info.Species)
	}
	if len(remaining) == 0 {
		speciesSet.Species = make(map[int]*Species)
		return map[int]*Genome{}, nil
	}

	// Fitness sharing: species adjusted fitness is the mean member fitness
	// normalised over the population range.
	minFitness := MinFloat(allFitnesses)
	maxFitness := MaxFloat(allFitnesses)
	fitnessRange := math.Max(1.0, maxFitness-minFitness)
	adjusted := make([]float64, len(remaining))
	previousSizes := make([]int, len(remaining))
	for i, sp := range remaining {
		sp.AdjustedFitness = (Mean(sp.GetFitnesses()) - minFitness) / fitnessRange
		adjusted[i] = sp.AdjustedFitness
		previousSizes[i] = len(sp.Members)
	}
	logger().Debug("average adjusted fitness", "value", Mean(adjusted))

	minSpeciesSize := max(r.Config.MinSpeciesSize, r.Config.Elitism)
	spawnAmounts := computeSpawnAmounts(adjusted, previousSizes, popSize, minSpeciesSize)

	newPopulation := make(map[int]*Genome, popSize)
	newAncestors := make(map[int][]int, popSize)
	speciesSet.Species = make(map[int]*Species)

	for i, sp := range remaining {
		spawn := max(spawnAmounts[i], r.Config.Elitism)

		oldMembers := make([]*Genome, 0, len(sp.Members))
		for _, k := range sortedKeys(sp.Members) {
			oldMembers = append(oldMembers, sp.Members[k])
		}
		sort.SliceStable(oldMembers, func(a, b int) bool {
			return oldMembers[a].Fitness > oldMembers[b].Fitness
		})

		// The species survives into the next speciation pass with its
		// history; membership is rebuilt there.
		sp.Members = make(map[int]*Genome)
		speciesSet.Species[sp.Key] = sp

		for j := 0; j < r.Config.Elitism && j < len(oldMembers) && spawn > 0; j++ {
			elite := oldMembers[j]
			newPopulation[elite.Key] = elite
			newAncestors[elite.Key] = r.Ancestors[elite.Key]
			spawn--
		}
		if spawn <= 0 {
			continue
		}

		cutoff := int(math.Ceil(r.Config.SurvivalThreshold * float64(len(oldMembers))))
		cutoff = max(cutoff, 2)
		cutoff = min(cutoff, len(oldMembers))
		parents := oldMembers[:cutoff]

		for ; spawn > 0; spawn-- {
			parent1 := parents[rand.Intn(len(parents))]
			parent2 := parents[rand.Intn(len(parents))]

			childKey := r.getNextKey()
			child := NewGenome(childKey, &config.Genome)
			child.ConfigureCrossover(parent1, parent2)
			child.Mutate()
			newPopulation[childKey] = child
			newAncestors[childKey] = []int{parent1.Key, parent2.Key}
		}
	}
	r.Ancestors = newAncestors

	if len(newPopulation) != popSize {
		logger().Debug("population size differs from target", "size", len(newPopulation), "target", popSize)
	}
	return newPopulation, nil
}

// computeSpawnAmounts apportions popSize offspring between species in
// proportion to adjusted fitness, damped toward each species' previous
// size, with every species receiving at least minSpeciesSize.
func computeSpawnAmounts(adjustedFitnesses []float64, previousSizes []int, popSize, minSpeciesSize int) []int {
	afSum := Sum(adjustedFitnesses)
	spawnAmounts := make([]int, len(adjustedFitnesses))
	for i, af := range adjustedFitnesses {
		var s float64
		if afSum > 0 {
			s = math.Max(float64(minSpeciesSize), af/afSum*float64(popSize))
		} else {
			s = float64(minSpeciesSize)
		}

		ps := previousSizes[i]
		d := (s - float64(ps)) * 0.5
		c := int(math.Round(d))
		spawn := ps
		switch {
		case math.Abs(float64(c)) > 0:
			spawn += c
		case d > 0:
			spawn++
		case d < 0:
			spawn--
		}
		spawnAmounts[i] = spawn
	}

	total := 0
	for _, sa := range spawnAmounts {
		total += sa
	}
	if total <= 0 {
		for i := range spawnAmounts {
			spawnAmounts[i] = minSpeciesSize
		}
		return spawnAmounts
	}

	norm := float64(popSize) / float64(total)
	for i, sa := range spawnAmounts {
		spawnAmounts[i] = max(minSpeciesSize, int(math.Round(float64(sa)*norm)))
	}
	return spawnAmounts
}
