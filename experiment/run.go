package experiment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/baldhumanity/hexneat/internal/store"
	"github.com/baldhumanity/hexneat/neat"
	"github.com/baldhumanity/hexneat/visualize"
)

// Output file names.
const (
	CPPNArchiveFile = "hyperneat_cppn.gob.gz"
	CPPNDotFile     = "hyperneat_cppn.dot"
	WinnerDotFile   = "hyperneat_winner.dot"
	FitnessPlotFile = "fitness.png"
	SpeciesPlotFile = "speciation.png"
)

// CPPN input and output count expected by the substrate query.
const (
	cppnInputs  = 5
	cppnOutputs = 1
)

// CPPNNodeNames labels the CPPN inputs and output in drawings.
var CPPNNodeNames = map[int]string{-1: "x1", -2: "y1", -3: "x2", -4: "y2", -5: "bias", 0: "weight"}

// RunResult is the outcome of an evolution run.
type RunResult struct {
	RunID  string
	Winner *neat.Genome
	Stats  *neat.StatisticsReporter
	Files  []string
}

// Run evolves CPPN genomes for settings.Generations generations (or from
// a checkpoint when settings.Resume is set), then writes the winner
// archive, drawings and plots to settings.OutputDir.
func Run(ctx context.Context, settings Settings, logger *slog.Logger) (*RunResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	neat.SetLogger(logger)

	config, err := neat.LoadConfig(settings.NeatConfig)
	if err != nil {
		return nil, err
	}
	if config.Genome.NumInputs != cppnInputs || config.Genome.NumOutputs != cppnOutputs {
		return nil, fmt.Errorf("CPPN config must have %d inputs and %d output, got %d and %d",
			cppnInputs, cppnOutputs, config.Genome.NumInputs, config.Genome.NumOutputs)
	}

	var pop *neat.Population
	if settings.Resume != "" {
		pop, err = neat.RestoreCheckpoint(settings.Resume, config)
	} else {
		pop, err = neat.NewPopulation(config)
	}
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	result := &RunResult{RunID: store.NewRunID(), Stats: neat.NewStatisticsReporter()}
	logger = logger.With("run", result.RunID)
	pop.AddReporter(result.Stats)
	pop.AddReporter(neat.NewStdOutReporter(true))
	if settings.CheckpointInterval > 0 {
		prefix := filepath.Join(settings.OutputDir, settings.CheckpointPrefix)
		pop.AddReporter(neat.NewCheckpointer(pop, settings.CheckpointInterval, prefix))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if settings.MetricsAddr != "" {
		metrics := NewMetricsReporter()
		pop.AddReporter(metrics)
		go func() {
			if err := ServeMetrics(ctx, settings.MetricsAddr, metrics.Handler(), logger); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	var st *store.Store
	if settings.Database != "" {
		st, err = openRunRecord(ctx, settings)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		if err := st.CreateRun(ctx, store.Run{
			ID:         result.RunID,
			StartedAt:  time.Now(),
			ConfigPath: settings.NeatConfig,
			Settings:   settingsYAML(settings),
		}); err != nil {
			return nil, err
		}
		pop.AddReporter(NewRecordReporter(ctx, st, result.RunID, logger))
	}

	evaluator := NewGaitEvaluator(settings.Evaluation, logger)
	var fitness neat.FitnessFunc
	if settings.Parallel {
		pe := NewParallelEvaluator(settings.Workers, evaluator.EvaluateGenome)
		logger.Info("parallel evaluation", "workers", pe.Workers)
		fitness = pe.Evaluate
	} else {
		fitness = (&SerialEvaluator{Eval: evaluator.EvaluateGenome}).Evaluate
	}

	winner, err := pop.Run(ctx, fitness, settings.Generations)
	if err != nil {
		finishRecord(st, result.RunID, store.StatusFailed, winner, logger)
		return result, fmt.Errorf("evolution: %w", err)
	}
	if winner == nil {
		finishRecord(st, result.RunID, store.StatusFailed, nil, logger)
		return result, errors.New("evolution produced no genome")
	}
	result.Winner = winner
	logger.Info("best genome", "key", winner.Key, "fitness", winner.Fitness)
	logger.Debug("best genome detail", "genome", winner.String())

	files, err := writeOutputs(settings.OutputDir, evaluator, winner, result.Stats, logger)
	result.Files = files
	if err != nil {
		finishRecord(st, result.RunID, store.StatusFailed, winner, logger)
		return result, err
	}

	if st != nil {
		if err := saveWinner(context.WithoutCancel(ctx), st, result.RunID, winner); err != nil {
			finishRecord(st, result.RunID, store.StatusFailed, winner, logger)
			return result, err
		}
	}
	finishRecord(st, result.RunID, store.StatusFinished, winner, logger)
	return result, nil
}

func saveWinner(ctx context.Context, st *store.Store, runID string, winner *neat.Genome) error {
	var archive bytes.Buffer
	if err := neat.EncodeGenome(&archive, winner); err != nil {
		return err
	}
	return st.SaveWinner(ctx, store.Winner{
		RunID:     runID,
		GenomeKey: winner.Key,
		Fitness:   winner.Fitness,
		Payload:   archive.Bytes(),
	})
}

func openRunRecord(ctx context.Context, settings Settings) (*store.Store, error) {
	st, err := store.Open(ctx, settings.Database)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	return st, nil
}

func finishRecord(st *store.Store, runID, status string, winner *neat.Genome, logger *slog.Logger) {
	if st == nil {
		return
	}
	best := 0.0
	if winner != nil {
		best = winner.Fitness
	}
	if err := st.FinishRun(context.Background(), runID, status, best, time.Now()); err != nil {
		logger.Warn("failed to finish run record", "error", err)
	}
}

func settingsYAML(s Settings) string {
	out, err := s.Marshal()
	if err != nil {
		return ""
	}
	return out
}

// writeOutputs saves the winner archive, both network drawings and the
// statistics plots. Plots are skipped when there is no data.
func writeOutputs(dir string, evaluator *GaitEvaluator, winner *neat.Genome, stats *neat.StatisticsReporter, logger *slog.Logger) ([]string, error) {
	var files []string

	archivePath := filepath.Join(dir, CPPNArchiveFile)
	if err := SaveArchive(archivePath, winner); err != nil {
		return files, err
	}
	files = append(files, archivePath)

	drawn, err := DrawNetworks(dir, evaluator, winner)
	files = append(files, drawn...)
	if err != nil {
		return files, err
	}

	plots := []struct {
		name string
		draw func(*neat.StatisticsReporter, string) error
	}{
		{FitnessPlotFile, visualize.PlotStats},
		{SpeciesPlotFile, visualize.PlotSpecies},
	}
	for _, p := range plots {
		path := filepath.Join(dir, p.name)
		if err := p.draw(stats, path); err != nil {
			if errors.Is(err, visualize.ErrNoData) {
				logger.Warn("plot skipped", "file", path, "error", err)
				continue
			}
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

// SaveArchive writes a genome archive file.
func SaveArchive(path string, g *neat.Genome) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	if err := neat.EncodeGenome(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadArchive reads a genome archive file.
func LoadArchive(path string) (*neat.Genome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return neat.DecodeGenome(f)
}

// DrawNetworks writes the CPPN and decoded winner DOT files into dir.
func DrawNetworks(dir string, evaluator *GaitEvaluator, g *neat.Genome) ([]string, error) {
	_, net, err := evaluator.BuildNetworks(g)
	if err != nil {
		return nil, fmt.Errorf("build winner network: %w", err)
	}

	cppnDOT, err := visualize.GenomeDOT(g, "cppn", visualize.DrawOptions{NodeNames: CPPNNodeNames, ShowDisabled: true})
	if err != nil {
		return nil, err
	}
	cppnPath := filepath.Join(dir, CPPNDotFile)
	if err := visualize.WriteDOT(cppnPath, cppnDOT); err != nil {
		return nil, err
	}

	winnerDOT, err := visualize.NetworkDOT(net, "winner", visualize.DrawOptions{})
	if err != nil {
		return []string{cppnPath}, err
	}
	winnerPath := filepath.Join(dir, WinnerDotFile)
	if err := visualize.WriteDOT(winnerPath, winnerDOT); err != nil {
		return []string{cppnPath}, err
	}
	return []string{cppnPath, winnerPath}, nil
}
