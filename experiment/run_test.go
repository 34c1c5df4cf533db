package experiment

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/baldhumanity/hexneat/internal/store"
)

func runSettings(t *testing.T, dir string) Settings {
	t.Helper()
	s := DefaultSettings()
	s.NeatConfig = smallCPPNConfig(t, dir)
	s.OutputDir = filepath.Join(dir, "out")
	s.Generations = 2
	s.Workers = 2
	s.CheckpointInterval = 1
	s.Database = filepath.Join(dir, "runs.db")
	s.Evaluation.Duration = 0.05
	return s
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	settings := runSettings(t, dir)

	res, err := Run(context.Background(), settings, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, res.Winner)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Stats.BestFitnesses(), 2)

	for _, name := range []string{CPPNArchiveFile, CPPNDotFile, WinnerDotFile, FitnessPlotFile, SpeciesPlotFile} {
		path := filepath.Join(settings.OutputDir, name)
		assert.Contains(t, res.Files, path)
		assert.FileExists(t, path)
	}
	assert.FileExists(t, filepath.Join(settings.OutputDir, "neat-checkpoint-2.gz"))

	archived, err := LoadArchive(filepath.Join(settings.OutputDir, CPPNArchiveFile))
	require.NoError(t, err)
	assert.Equal(t, res.Winner.Key, archived.Key)
	assert.Equal(t, res.Winner.Fitness, archived.Fitness)

	ctx := context.Background()
	st, err := store.Open(ctx, settings.Database)
	require.NoError(t, err)
	defer st.Close()

	run, ok, err := st.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.StatusFinished, run.Status)
	assert.Equal(t, res.Winner.Fitness, run.BestFitness)
	assert.Contains(t, run.Settings, "generations: 2")

	gens, err := st.Generations(ctx, res.RunID)
	require.NoError(t, err)
	assert.Len(t, gens, 2)

	w, ok, err := st.GetWinner(ctx, res.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.Winner.Key, w.GenomeKey)
	assert.NotEmpty(t, w.Payload)
}

func TestRunMarksFailedWhenWinnerNotSaved(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	settings := runSettings(t, dir)
	settings.Generations = 1

	st, err := store.Open(ctx, settings.Database)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	db, err := sql.Open("sqlite", settings.Database)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TRIGGER reject_winner BEFORE INSERT ON winners
		BEGIN SELECT RAISE(ABORT, 'winner rejected'); END`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	res, err := Run(ctx, settings, discardLogger())
	require.ErrorContains(t, err, "winner rejected")
	require.NotNil(t, res)

	st, err = store.Open(ctx, settings.Database)
	require.NoError(t, err)
	defer st.Close()
	run, ok, err := st.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.StatusFailed, run.Status)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestRunSerialResume(t *testing.T) {
	dir := t.TempDir()
	settings := runSettings(t, dir)
	settings.Parallel = false
	settings.Database = ""

	first, err := Run(context.Background(), settings, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, first.Winner)

	settings.Resume = filepath.Join(settings.OutputDir, "neat-checkpoint-1.gz")
	settings.CheckpointInterval = 0
	settings.Generations = 1
	second, err := Run(context.Background(), settings, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, second.Winner)
	assert.Len(t, second.Stats.BestFitnesses(), 1)
}

func TestRunRejectsConfig(t *testing.T) {
	dir := t.TempDir()
	settings := runSettings(t, dir)
	valid := settings.NeatConfig

	settings.NeatConfig = filepath.Join(dir, "missing")
	_, err := Run(context.Background(), settings, discardLogger())
	assert.Error(t, err)

	// A CPPN must see two coordinate pairs and a bias.
	data, err := os.ReadFile(valid)
	require.NoError(t, err)
	twoInputs := strings.Replace(string(data), "num_inputs              = 5", "num_inputs              = 2", 1)
	require.NotEqual(t, string(data), twoInputs)
	wrong := filepath.Join(dir, "config-wrong")
	require.NoError(t, os.WriteFile(wrong, []byte(twoInputs), 0o644))
	settings.NeatConfig = wrong
	_, err = Run(context.Background(), settings, discardLogger())
	assert.ErrorContains(t, err, "CPPN config must have 5 inputs")

	settings.NeatConfig = valid
	settings.Evaluation.Gait = "gallop"
	_, err = Run(context.Background(), settings, discardLogger())
	assert.ErrorContains(t, err, "evaluation.gait")
}

func TestRunCancelled(t *testing.T) {
	settings := runSettings(t, t.TempDir())
	settings.Database = ""
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, settings, discardLogger())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Nil(t, res.Winner)
	assert.Empty(t, res.Stats.BestFitnesses())
}

func TestDrawNetworks(t *testing.T) {
	dir := t.TempDir()
	evaluator := NewGaitEvaluator(walkEpisode(), discardLogger())

	files, err := DrawNetworks(dir, evaluator, silentCPPN(t))
	require.NoError(t, err)
	require.Len(t, files, 2)

	cppn, err := os.ReadFile(filepath.Join(dir, CPPNDotFile))
	require.NoError(t, err)
	assert.Contains(t, string(cppn), "bias")
	assert.FileExists(t, filepath.Join(dir, WinnerDotFile))
}

func TestArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), CPPNArchiveFile)
	g := silentCPPN(t)
	g.Fitness = 1.25
	require.NoError(t, SaveArchive(path, g))

	got, err := LoadArchive(path)
	require.NoError(t, err)
	assert.Equal(t, g.Key, got.Key)
	assert.Equal(t, 1.25, got.Fitness)
	require.Contains(t, got.Nodes, 0)
	assert.Equal(t, "identity", got.Nodes[0].Activation)
	assert.Equal(t, g.Config.FeedForward, got.Config.FeedForward)
	assert.Equal(t, g.Config.InputKeys, got.Config.InputKeys)

	_, err = LoadArchive(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
