package neat

import (
	"math"
	"sort"
)

// Species represents a group of genetically similar genomes.
type Species struct {
	Key             int
	Created         int // generation of creation
	LastImproved    int
	Representative  *Genome
	Members         map[int]*Genome
	Fitness         float64 // species fitness from species_fitness_func
	AdjustedFitness float64
	FitnessHistory  []float64
}

// NewSpecies creates an empty species.
func NewSpecies(key, generation int) *Species {
	return &Species{
		Key:          key,
		Created:      generation,
		LastImproved: generation,
		Members:      make(map[int]*Genome),
	}
}

// Update replaces the representative and the member set.
func (s *Species) Update(representative *Genome, members map[int]*Genome) {
	s.Representative = representative
	s.Members = members
}

// GetFitnesses returns the member fitness values in genome key order.
func (s *Species) GetFitnesses() []float64 {
	keys := make([]int, 0, len(s.Members))
	for k := range s.Members {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fitnesses := make([]float64, 0, len(keys))
	for _, k := range keys {
		fitnesses = append(fitnesses, s.Members[k].Fitness)
	}
	return fitnesses
}

type genomePair struct{ a, b int }

// GenomeDistanceCache memoises pairwise genome distances for one speciation pass.
type GenomeDistanceCache struct {
	distances map[genomePair]float64
	Hits      int
	Misses    int
}

// NewGenomeDistanceCache creates an empty cache.
func NewGenomeDistanceCache() *GenomeDistanceCache {
	return &GenomeDistanceCache{distances: make(map[genomePair]float64)}
}

// Distance returns the (symmetric) distance between two genomes.
func (dc *GenomeDistanceCache) Distance(genome1, genome2 *Genome) float64 {
	key := genomePair{genome1.Key, genome2.Key}
	if key.a > key.b {
		key.a, key.b = key.b, key.a
	}
	if d, ok := dc.distances[key]; ok {
		dc.Hits++
		return d
	}
	dc.Misses++
	d := genome1.Distance(genome2)
	dc.distances[key] = d
	return d
}

// Values returns every cached distance.
func (dc *GenomeDistanceCache) Values() []float64 {
	out := make([]float64, 0, len(dc.distances))
	for _, d := range dc.distances {
		out = append(out, d)
	}
	return out
}

// SpeciesSet manages the collection of species within a population.
type SpeciesSet struct {
	Species         map[int]*Species
	GenomeToSpecies map[int]int
	Indexer         int
	Config          *SpeciesSetConfig
}

// NewSpeciesSet creates an empty species set; species keys start at 1.
func NewSpeciesSet(config *SpeciesSetConfig) *SpeciesSet {
	return &SpeciesSet{
		Species:         make(map[int]*Species),
		GenomeToSpecies: make(map[int]int),
		Indexer:         1,
		Config:          config,
	}
}

// Speciate partitions the population. Each existing species first claims
// the genome closest to its old representative as the new representative;
// remaining genomes join the closest compatible species or found a new one.
func (ss *SpeciesSet) Speciate(config *Config, population map[int]*Genome, generation int) error {
	if len(population) == 0 {
		ss.Species = make(map[int]*Species)
		ss.GenomeToSpecies = make(map[int]int)
		return nil
	}

	threshold := ss.Config.CompatibilityThreshold
	distances := NewGenomeDistanceCache()

	unspeciated := make(map[int]*Genome, len(population))
	for k, v := range population {
		unspeciated[k] = v
	}
	newRepresentatives := make(map[int]*Genome)
	newMembers := make(map[int][]int)

	speciesKeys := make([]int, 0, len(ss.Species))
	for sid := range ss.Species {
		speciesKeys = append(speciesKeys, sid)
	}
	sort.Ints(speciesKeys)

	for _, sid := range speciesKeys {
		s := ss.Species[sid]
		if len(unspeciated) == 0 {
			break
		}
		if s.Representative == nil {
			logger().Warn("species has no representative", "species", sid)
			continue
		}
		var best *Genome
		bestDist := math.Inf(1)
		for _, g := range sortedGenomes(unspeciated) {
			if d := distances.Distance(s.Representative, g); d < bestDist {
				best, bestDist = g, d
			}
		}
		newRepresentatives[sid] = best
		newMembers[sid] = []int{best.Key}
		delete(unspeciated, best.Key)
	}

	for _, g := range sortedGenomes(unspeciated) {
		bestSpecies := -1
		minDist := math.Inf(1)
		for _, sid := range sortedKeys(newRepresentatives) {
			d := distances.Distance(newRepresentatives[sid], g)
			if d < threshold && d < minDist {
				minDist = d
				bestSpecies = sid
			}
		}
		if bestSpecies != -1 {
			newMembers[bestSpecies] = append(newMembers[bestSpecies], g.Key)
			continue
		}
		sid := ss.Indexer
		ss.Indexer++
		newRepresentatives[sid] = g
		newMembers[sid] = []int{g.Key}
	}

	species := make(map[int]*Species)
	genomeToSpecies := make(map[int]int)
	for sid, representative := range newRepresentatives {
		s := ss.Species[sid]
		if s == nil {
			s = NewSpecies(sid, generation)
			logger().Debug("created species", "species", sid, "representative", representative.Key)
		}
		members := make(map[int]*Genome, len(newMembers[sid]))
		for _, gid := range newMembers[sid] {
			members[gid] = population[gid]
			genomeToSpecies[gid] = sid
		}
		s.Update(representative, members)
		species[sid] = s
	}
	ss.Species = species
	ss.GenomeToSpecies = genomeToSpecies

	if all := distances.Values(); len(all) > 0 {
		logger().Debug("genetic distance", "mean", Mean(all), "stdev", Stdev(all))
	}
	return nil
}

// GetSpeciesID returns the species key for a genome key.
func (ss *SpeciesSet) GetSpeciesID(genomeID int) (int, bool) {
	sid, ok := ss.GenomeToSpecies[genomeID]
	return sid, ok
}

// GetSpecies returns the species a genome belongs to.
func (ss *SpeciesSet) GetSpecies(genomeID int) (*Species, bool) {
	sid, ok := ss.GenomeToSpecies[genomeID]
	if !ok {
		return nil, false
	}
	s, ok := ss.Species[sid]
	return s, ok
}

func sortedGenomes(m map[int]*Genome) []*Genome {
	out := make([]*Genome, 0, len(m))
	for _, g := range m {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
