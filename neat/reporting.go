package neat

import "time"

// Reporter receives notifications from the evolutionary loop. Embed
// BaseReporter to implement only the hooks you need.
type Reporter interface {
	StartGeneration(generation int)
	EndGeneration(config *Config, population map[int]*Genome, speciesSet *SpeciesSet)
	PostEvaluate(config *Config, population map[int]*Genome, speciesSet *SpeciesSet, best *Genome)
	PostReproduction(config *Config, population map[int]*Genome, speciesSet *SpeciesSet)
	CompleteExtinction()
	FoundSolution(config *Config, generation int, best *Genome)
	SpeciesStagnant(speciesID int, species *Species)
	Info(msg string)
}

// BaseReporter implements every Reporter hook as a no-op.
type BaseReporter struct{}

func (BaseReporter) StartGeneration(int) {}
func (BaseReporter) EndGeneration(*Config, map[int]*Genome, *SpeciesSet) {}
func (BaseReporter) PostEvaluate(*Config, map[int]*Genome, *SpeciesSet, *Genome) {}
func (BaseReporter) PostReproduction(*Config, map[int]*Genome, *SpeciesSet) {}
func (BaseReporter) CompleteExtinction() {}
func (BaseReporter) FoundSolution(*Config, int, *Genome) {}
func (BaseReporter) SpeciesStagnant(int, *Species) {}
func (BaseReporter) Info(string) {}

// ReporterSet fans notifications out to every registered reporter in
// registration order.
type ReporterSet struct {
	reporters []Reporter
}

// Add registers a reporter.
func (rs *ReporterSet) Add(r Reporter) {
	rs.reporters = append(rs.reporters, r)
}

// Remove unregisters a reporter previously added.
func (rs *ReporterSet) Remove(r Reporter) {
	for i, existing := range rs.reporters {
		if existing == r {
			rs.reporters = append(rs.reporters[:i], rs.reporters[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered reporters.
func (rs *ReporterSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.reporters)
}

func (rs *ReporterSet) each(fn func(Reporter)) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		fn(r)
	}
}

func (rs *ReporterSet) StartGeneration(generation int) {
	rs.each(func(r Reporter) { r.StartGeneration(generation) })
}

func (rs *ReporterSet) EndGeneration(config *Config, population map[int]*Genome, speciesSet *SpeciesSet) {
	rs.each(func(r Reporter) { r.EndGeneration(config, population, speciesSet) })
}

func (rs *ReporterSet) PostEvaluate(config *Config, population map[int]*Genome, speciesSet *SpeciesSet, best *Genome) {
	rs.each(func(r Reporter) { r.PostEvaluate(config, population, speciesSet, best) })
}

func (rs *ReporterSet) PostReproduction(config *Config, population map[int]*Genome, speciesSet *SpeciesSet) {
	rs.each(func(r Reporter) { r.PostReproduction(config, population, speciesSet) })
}

func (rs *ReporterSet) CompleteExtinction() {
	rs.each(func(r Reporter) { r.CompleteExtinction() })
}

func (rs *ReporterSet) FoundSolution(config *Config, generation int, best *Genome) {
	rs.each(func(r Reporter) { r.FoundSolution(config, generation, best) })
}

func (rs *ReporterSet) SpeciesStagnant(speciesID int, species *Species) {
	rs.each(func(r Reporter) { r.SpeciesStagnant(speciesID, species) })
}

func (rs *ReporterSet) Info(msg string) {
	rs.each(func(r Reporter) { r.Info(msg) })
}

// StdOutReporter logs generation progress through the package logger.
type StdOutReporter struct {
	BaseReporter
	ShowSpeciesDetail bool

	generation      int
	generationStart time.Time
	generationTimes []time.Duration
}

// NewStdOutReporter creates a progress reporter.
func NewStdOutReporter(showSpeciesDetail bool) *StdOutReporter {
	return &StdOutReporter{ShowSpeciesDetail: showSpeciesDetail}
}

func (r *StdOutReporter) StartGeneration(generation int) {
	r.generation = generation
	r.generationStart = time.Now()
	logger().Info("running generation", "generation", generation)
}

func (r *StdOutReporter) EndGeneration(config *Config, population map[int]*Genome, speciesSet *SpeciesSet) {
	logger().Info("population state",
		"generation", r.generation,
		"members", len(population),
		"species", len(speciesSet.Species))

	if r.ShowSpeciesDetail {
		for _, sid := range sortedKeys(speciesSet.Species) {
			s := speciesSet.Species[sid]
			logger().Info("species",
				"id", sid,
				"age", r.generation-s.Created,
				"size", len(s.Members),
				"fitness", s.Fitness,
				"adjusted_fitness", s.AdjustedFitness,
				"stagnation", r.generation-s.LastImproved)
		}
	}

	elapsed := time.Since(r.generationStart)
	r.generationTimes = append(r.generationTimes, elapsed)
	if len(r.generationTimes) > 10 {
		r.generationTimes = r.generationTimes[1:]
	}
	var total time.Duration
	for _, d := range r.generationTimes {
		total += d
	}
	logger().Info("generation time",
		"elapsed", elapsed,
		"average", total/time.Duration(len(r.generationTimes)))
}

func (r *StdOutReporter) PostEvaluate(config *Config, population map[int]*Genome, speciesSet *SpeciesSet, best *Genome) {
	fitnesses := make([]float64, 0, len(population))
	for _, k := range sortedKeys(population) {
		fitnesses = append(fitnesses, population[k].Fitness)
	}
	if best == nil {
		return
	}
	nodes, conns := best.Size()
	sid, _ := speciesSet.GetSpeciesID(best.Key)
	logger().Info("population fitness",
		"average", Mean(fitnesses),
		"stdev", Stdev(fitnesses))
	logger().Info("best fitness",
		"fitness", best.Fitness,
		"nodes", nodes,
		"connections", conns,
		"species", sid,
		"genome", best.Key)
}

func (r *StdOutReporter) CompleteExtinction() {
	logger().Warn("all species extinct")
}

func (r *StdOutReporter) FoundSolution(config *Config, generation int, best *Genome) {
	nodes, conns := best.Size()
	logger().Info("best individual meets fitness threshold",
		"generation", generation,
		"nodes", nodes,
		"connections", conns)
}

func (r *StdOutReporter) SpeciesStagnant(speciesID int, species *Species) {
	if r.ShowSpeciesDetail {
		logger().Info("species removed after stagnation", "species", speciesID, "size", len(species.Members))
	}
}

func (r *StdOutReporter) Info(msg string) {
	logger().Info(msg)
}
