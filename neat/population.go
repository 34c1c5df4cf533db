package neat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrExtinction is returned when every species dies out and
// reset_on_extinction is false.
var ErrExtinction = errors.New("population extinct")

// FitnessFunc evaluates a generation and must set Fitness on every genome.
type FitnessFunc func(ctx context.Context, genomes map[int]*Genome) error

// Population holds the state of the NEAT evolutionary process.
type Population struct {
	Config       *Config
	Population   map[int]*Genome
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Reporters    *ReporterSet
	Generation   int
	BestGenome   *Genome

	fitnessCriterion func([]float64) float64
}

// NewPopulation creates and speciates an initial generation.
func NewPopulation(config *Config) (*Population, error) {
	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, fmt.Errorf("failed to create stagnation manager: %w", err)
	}
	criterion, err := fitnessCriterion(config.Neat.FitnessCriterion)
	if err != nil {
		return nil, err
	}

	reporters := &ReporterSet{}
	reproduction := NewReproduction(&config.Reproduction, reporters, stagnation)
	p := &Population{
		Config:           config,
		Population:       reproduction.CreateNewPopulation(&config.Genome, config.Neat.PopSize),
		SpeciesSet:       NewSpeciesSet(&config.SpeciesSet),
		Reproduction:     reproduction,
		Stagnation:       stagnation,
		Reporters:        reporters,
		fitnessCriterion: criterion,
	}
	if err := p.SpeciesSet.Speciate(config, p.Population, p.Generation); err != nil {
		return nil, fmt.Errorf("initial speciation failed: %w", err)
	}
	return p, nil
}

func fitnessCriterion(name string) (func([]float64) float64, error) {
	switch strings.ToLower(name) {
	case "max":
		return MaxFloat, nil
	case "min":
		return MinFloat, nil
	case "mean":
		return Mean, nil
	}
	return nil, fmt.Errorf("unexpected fitness_criterion: %q", name)
}

// AddReporter registers a reporter for all subsequent generations.
func (p *Population) AddReporter(r Reporter) {
	p.Reporters.Add(r)
}

// RemoveReporter unregisters a reporter.
func (p *Population) RemoveReporter(r Reporter) {
	p.Reporters.Remove(r)
}

// Run evolves for at most n generations (n <= 0 means until a solution
// is found or ctx is done). It returns the best genome seen; the error is
// non-nil on evaluation failure, extinction or cancellation.
func (p *Population) Run(ctx context.Context, fitnessFunc FitnessFunc, n int) (*Genome, error) {
	if p.Config.Neat.NoFitnessTermination && n <= 0 {
		return nil, errors.New("cannot have no generational limit with no fitness termination")
	}
	for k := 0; n <= 0 || k < n; k++ {
		winner, err := p.RunGeneration(ctx, fitnessFunc)
		if err != nil {
			return p.BestGenome, err
		}
		if winner != nil {
			return winner, nil
		}
	}
	if p.Config.Neat.NoFitnessTermination && p.BestGenome != nil {
		p.Reporters.FoundSolution(p.Config, p.Generation, p.BestGenome)
	}
	return p.BestGenome, nil
}

// RunGeneration evaluates the current generation and, unless the fitness
// threshold is met, replaces it with the next one. It returns the winning
// genome when the threshold is met, nil otherwise.
func (p *Population) RunGeneration(ctx context.Context, fitnessFunc FitnessFunc) (*Genome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.Generation++
	p.Reporters.StartGeneration(p.Generation)

	if err := fitnessFunc(ctx, p.Population); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
	}

	best := p.findBestGenome()
	p.Reporters.PostEvaluate(p.Config, p.Population, p.SpeciesSet, best)
	if best != nil && (p.BestGenome == nil || best.Fitness > p.BestGenome.Fitness) {
		p.BestGenome = best.Copy()
	}

	if !p.Config.Neat.NoFitnessTermination {
		fitnesses := make([]float64, 0, len(p.Population))
		for _, k := range sortedKeys(p.Population) {
			fitnesses = append(fitnesses, p.Population[k].Fitness)
		}
		if len(fitnesses) > 0 && p.criterion()(fitnesses) >= p.Config.Neat.FitnessThreshold {
			p.Reporters.FoundSolution(p.Config, p.Generation, best)
			return p.BestGenome, nil
		}
	}

	next, err := p.Reproduction.Reproduce(p.Config, p.SpeciesSet, p.Config.Neat.PopSize, p.Generation)
	if err != nil {
		return nil, fmt.Errorf("reproduction failed in generation %d: %w", p.Generation, err)
	}
	p.Population = next

	if len(p.SpeciesSet.Species) == 0 || len(p.Population) == 0 {
		p.Reporters.CompleteExtinction()
		if !p.Config.Neat.ResetOnExtinction {
			return nil, fmt.Errorf("generation %d: %w", p.Generation, ErrExtinction)
		}
		p.Population = p.Reproduction.CreateNewPopulation(&p.Config.Genome, p.Config.Neat.PopSize)
		p.SpeciesSet = NewSpeciesSet(&p.Config.SpeciesSet)
	}
	p.Reporters.PostReproduction(p.Config, p.Population, p.SpeciesSet)

	if err := p.SpeciesSet.Speciate(p.Config, p.Population, p.Generation); err != nil {
		return nil, fmt.Errorf("speciation failed in generation %d: %w", p.Generation, err)
	}
	p.Reporters.EndGeneration(p.Config, p.Population, p.SpeciesSet)
	return nil, nil
}

func (p *Population) criterion() func([]float64) float64 {
	if p.fitnessCriterion == nil {
		p.fitnessCriterion, _ = fitnessCriterion(p.Config.Neat.FitnessCriterion)
	}
	return p.fitnessCriterion
}

// findBestGenome returns the fittest genome of the current generation,
// breaking ties by lowest key.
func (p *Population) findBestGenome() *Genome {
	var best *Genome
	maxFitness := math.Inf(-1)
	for _, k := range sortedKeys(p.Population) {
		g := p.Population[k]
		if best == nil || g.Fitness > maxFitness {
			maxFitness = g.Fitness
			best = g
		}
	}
	return best
}
