package experiment

import (
	"context"
	"log/slog"
	"time"

	"github.com/baldhumanity/hexneat/internal/store"
	"github.com/baldhumanity/hexneat/neat"
)

// RecordReporter writes a summary of every evaluated generation to the
// run database. Write failures are logged, not fatal.
type RecordReporter struct {
	neat.BaseReporter

	ctx     context.Context
	store   *store.Store
	runID   string
	logger  *slog.Logger
	gen     int
	started time.Time
}

// NewRecordReporter creates a reporter for one run.
func NewRecordReporter(ctx context.Context, st *store.Store, runID string, logger *slog.Logger) *RecordReporter {
	return &RecordReporter{ctx: ctx, store: st, runID: runID, logger: logger}
}

func (r *RecordReporter) StartGeneration(generation int) {
	r.gen = generation
	r.started = time.Now()
}

func (r *RecordReporter) PostEvaluate(_ *neat.Config, population map[int]*neat.Genome, speciesSet *neat.SpeciesSet, best *neat.Genome) {
	fitnesses := make([]float64, 0, len(population))
	for _, k := range genomeKeys(population) {
		fitnesses = append(fitnesses, population[k].Fitness)
	}
	rec := store.Generation{
		RunID:      r.runID,
		Generation: r.gen,
		Elapsed:    time.Since(r.started),
	}
	if len(fitnesses) > 0 {
		rec.MeanFitness = neat.Mean(fitnesses)
		rec.StdevFitness = neat.Stdev(fitnesses)
	}
	if best != nil {
		rec.BestFitness = best.Fitness
		rec.BestGenomeKey = best.Key
	}
	if speciesSet != nil {
		rec.Species = len(speciesSet.Species)
	}
	if err := r.store.RecordGeneration(r.ctx, rec); err != nil {
		r.logger.Warn("failed to record generation", "generation", r.gen, "error", err)
	}
}
