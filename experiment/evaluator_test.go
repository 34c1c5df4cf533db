package experiment

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/hexneat/neat"
)

func genomes(n int) map[int]*neat.Genome {
	m := make(map[int]*neat.Genome, n)
	for k := 1; k <= n; k++ {
		m[k] = &neat.Genome{Key: k}
	}
	return m
}

func doubleKey(g *neat.Genome) float64 { return 2 * float64(g.Key) }

func TestSerialEvaluator(t *testing.T) {
	var order []int
	e := &SerialEvaluator{Eval: func(g *neat.Genome) float64 {
		order = append(order, g.Key)
		return doubleKey(g)
	}}

	gs := genomes(5)
	require.NoError(t, e.Evaluate(context.Background(), gs))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
	for k, g := range gs {
		assert.Equal(t, 2*float64(k), g.Fitness)
	}
}

func TestSerialEvaluatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	e := &SerialEvaluator{Eval: func(g *neat.Genome) float64 {
		calls++
		if calls == 2 {
			cancel()
		}
		return 1
	}}

	err := e.Evaluate(ctx, genomes(5))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestParallelEvaluator(t *testing.T) {
	var running, peak atomic.Int32
	e := NewParallelEvaluator(3, func(g *neat.Genome) float64 {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer running.Add(-1)
		return doubleKey(g)
	})

	gs := genomes(50)
	require.NoError(t, e.Evaluate(context.Background(), gs))
	for k, g := range gs {
		assert.Equal(t, 2*float64(k), g.Fitness)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestParallelEvaluatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	e := NewParallelEvaluator(2, func(g *neat.Genome) float64 {
		calls.Add(1)
		return 1
	})
	err := e.Evaluate(ctx, genomes(10))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestNewParallelEvaluatorDefaultsToCPUCount(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), NewParallelEvaluator(0, doubleKey).Workers)
	assert.Equal(t, 4, NewParallelEvaluator(4, doubleKey).Workers)
}
