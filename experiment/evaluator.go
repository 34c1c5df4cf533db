package experiment

import (
	"context"
	"runtime"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/baldhumanity/hexneat/neat"
)

// GenomeFunc scores a single genome.
type GenomeFunc func(g *neat.Genome) float64

// SerialEvaluator scores genomes one at a time, in key order, in the
// caller's goroutine.
type SerialEvaluator struct {
	Eval GenomeFunc
}

// Evaluate implements neat.FitnessFunc.
func (e *SerialEvaluator) Evaluate(ctx context.Context, genomes map[int]*neat.Genome) error {
	for _, k := range genomeKeys(genomes) {
		if err := ctx.Err(); err != nil {
			return err
		}
		g := genomes[k]
		g.Fitness = e.Eval(g)
	}
	return nil
}

// ParallelEvaluator scores genomes on a bounded worker pool.
type ParallelEvaluator struct {
	Workers int
	Eval    GenomeFunc
}

// NewParallelEvaluator creates an evaluator; workers <= 0 means one per CPU.
func NewParallelEvaluator(workers int, eval GenomeFunc) *ParallelEvaluator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &ParallelEvaluator{Workers: workers, Eval: eval}
}

// Evaluate implements neat.FitnessFunc. Each task writes only its own
// genome's fitness. Genomes not yet started when ctx is cancelled are
// skipped and the context error is returned.
func (e *ParallelEvaluator) Evaluate(ctx context.Context, genomes map[int]*neat.Genome) error {
	p := pool.New().WithContext(ctx).WithMaxGoroutines(max(e.Workers, 1))
	for _, k := range genomeKeys(genomes) {
		g := genomes[k]
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			g.Fitness = e.Eval(g)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func genomeKeys(genomes map[int]*neat.Genome) []int {
	keys := make([]int, 0, len(genomes))
	for k := range genomes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
