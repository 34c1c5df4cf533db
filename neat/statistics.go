package neat

import "sort"

// StatisticsReporter gathers per-generation fitness and species data for
// later analysis or plotting.
type StatisticsReporter struct {
	BaseReporter

	// MostFitGenomes holds a copy of the best genome of every generation.
	MostFitGenomes []*Genome
	// GenerationStatistics maps species key to member fitness, per generation.
	GenerationStatistics []map[int]map[int]float64
}

// NewStatisticsReporter creates an empty statistics collector.
func NewStatisticsReporter() *StatisticsReporter {
	return &StatisticsReporter{}
}

func (s *StatisticsReporter) PostEvaluate(config *Config, population map[int]*Genome, speciesSet *SpeciesSet, best *Genome) {
	if best != nil {
		s.MostFitGenomes = append(s.MostFitGenomes, best.Copy())
	}
	stats := make(map[int]map[int]float64)
	for sid, sp := range speciesSet.Species {
		members := make(map[int]float64, len(sp.Members))
		for gid, g := range sp.Members {
			members[gid] = g.Fitness
		}
		stats[sid] = members
	}
	s.GenerationStatistics = append(s.GenerationStatistics, stats)
}

// GetFitnessStat applies fn to every generation's fitness values.
func (s *StatisticsReporter) GetFitnessStat(fn func([]float64) float64) []float64 {
	out := make([]float64, 0, len(s.GenerationStatistics))
	for _, stats := range s.GenerationStatistics {
		var scores []float64
		for _, sid := range sortedKeys(stats) {
			members := stats[sid]
			for _, gid := range sortedKeys(members) {
				scores = append(scores, members[gid])
			}
		}
		out = append(out, fn(scores))
	}
	return out
}

// GetFitnessMean returns the mean fitness of each generation.
func (s *StatisticsReporter) GetFitnessMean() []float64 {
	return s.GetFitnessStat(Mean)
}

// GetFitnessStdev returns the fitness standard deviation of each generation.
func (s *StatisticsReporter) GetFitnessStdev() []float64 {
	return s.GetFitnessStat(Stdev)
}

// GetFitnessMedian returns the median fitness of each generation.
func (s *StatisticsReporter) GetFitnessMedian() []float64 {
	return s.GetFitnessStat(Median)
}

// BestFitnesses returns the best fitness of each generation.
func (s *StatisticsReporter) BestFitnesses() []float64 {
	out := make([]float64, len(s.MostFitGenomes))
	for i, g := range s.MostFitGenomes {
		out[i] = g.Fitness
	}
	return out
}

// BestUniqueGenomes returns up to n distinct genomes by descending fitness.
func (s *StatisticsReporter) BestUniqueGenomes(n int) []*Genome {
	seen := make(map[int]bool)
	var unique []*Genome
	for _, g := range s.MostFitGenomes {
		if !seen[g.Key] {
			seen[g.Key] = true
			unique = append(unique, g)
		}
	}
	sort.SliceStable(unique, func(i, j int) bool { return unique[i].Fitness > unique[j].Fitness })
	if len(unique) > n {
		unique = unique[:n]
	}
	return unique
}

// BestGenome returns the fittest genome seen, or nil.
func (s *StatisticsReporter) BestGenome() *Genome {
	best := s.BestUniqueGenomes(1)
	if len(best) == 0 {
		return nil
	}
	return best[0]
}

// GetSpeciesSizes returns, per generation, the size of every species ever
// seen (0 when absent), indexed by species key - 1.
func (s *StatisticsReporter) GetSpeciesSizes() [][]int {
	maxSpecies := 0
	for _, stats := range s.GenerationStatistics {
		for sid := range stats {
			maxSpecies = max(maxSpecies, sid)
		}
	}
	out := make([][]int, len(s.GenerationStatistics))
	for i, stats := range s.GenerationStatistics {
		row := make([]int, maxSpecies)
		for sid, members := range stats {
			row[sid-1] = len(members)
		}
		out[i] = row
	}
	return out
}
