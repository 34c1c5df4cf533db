package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.Error(t, err)
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	id := NewRunID()
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.CreateRun(ctx, Run{
		ID:         id,
		StartedAt:  started,
		ConfigPath: "configs/config-cppn",
		Settings:   "duration: 5\n",
	}))

	run, ok, err := st.GetRun(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusRunning, run.Status)
	assert.True(t, run.StartedAt.Equal(started))
	assert.True(t, run.FinishedAt.IsZero())

	finished := started.Add(time.Minute)
	require.NoError(t, st.FinishRun(ctx, id, StatusFinished, 1.25, finished))

	run, ok, err = st.GetRun(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusFinished, run.Status)
	assert.InDelta(t, 1.25, run.BestFitness, 1e-12)
	assert.True(t, run.FinishedAt.Equal(finished))
}

func TestFinishUnknownRun(t *testing.T) {
	st := openTestStore(t)
	err := st.FinishRun(context.Background(), "missing", StatusFailed, 0, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such run")
}

func TestGetRunMissing(t *testing.T) {
	st := openTestStore(t)
	_, ok, err := st.GetRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerationsOrderedAndUpserted(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	id := NewRunID()
	require.NoError(t, st.CreateRun(ctx, Run{ID: id, StartedAt: time.Now()}))

	for _, gen := range []int{3, 1, 2} {
		require.NoError(t, st.RecordGeneration(ctx, Generation{
			RunID:       id,
			Generation:  gen,
			BestFitness: float64(gen),
			Species:     gen,
			Elapsed:     time.Duration(gen) * time.Second,
		}))
	}
	require.NoError(t, st.RecordGeneration(ctx, Generation{RunID: id, Generation: 2, BestFitness: 9}))

	gens, err := st.Generations(ctx, id)
	require.NoError(t, err)
	require.Len(t, gens, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{gens[0].Generation, gens[1].Generation, gens[2].Generation})
	assert.InDelta(t, 9.0, gens[1].BestFitness, 1e-12)
	assert.Equal(t, 3*time.Second, gens[2].Elapsed)
}

func TestWinnerRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	id := NewRunID()
	require.NoError(t, st.CreateRun(ctx, Run{ID: id, StartedAt: time.Now()}))

	_, ok, err := st.GetWinner(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.SaveWinner(ctx, Winner{RunID: id, GenomeKey: 42, Fitness: 0.7, Payload: []byte{1, 2, 3}}))
	w, ok, err := st.GetWinner(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, w.GenomeKey)
	assert.Equal(t, []byte{1, 2, 3}, w.Payload)
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.CreateRun(ctx, Run{ID: "old", StartedAt: base}))
	require.NoError(t, st.CreateRun(ctx, Run{ID: "new", StartedAt: base.Add(time.Hour)}))

	runs, err := st.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "old", runs[1].ID)
}

func TestClosedStore(t *testing.T) {
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	_, err = st.Runs(context.Background())
	require.Error(t, err)
}
