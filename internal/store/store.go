// Package store records evolution runs in SQLite: one row per run, one per
// generation, and the winning genome archive.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Run status values.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// Run is one evolution run.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time // zero while running
	Status      string
	ConfigPath  string
	Settings    string // YAML snapshot
	BestFitness float64
}

// Generation is the summary of one evaluated generation.
type Generation struct {
	RunID         string
	Generation    int
	BestFitness   float64
	MeanFitness   float64
	StdevFitness  float64
	Species       int
	BestGenomeKey int
	Elapsed       time.Duration
}

// Winner is a persisted winning genome archive.
type Winner struct {
	RunID     string
	GenomeKey int
	Fitness   float64
	Payload   []byte
}

// Store is a SQLite run database safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			config_path TEXT NOT NULL,
			settings TEXT NOT NULL,
			best_fitness REAL NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL REFERENCES runs(id),
			generation INTEGER NOT NULL,
			best_fitness REAL NOT NULL,
			mean_fitness REAL NOT NULL,
			stdev_fitness REAL NOT NULL,
			species INTEGER NOT NULL,
			best_genome_key INTEGER NOT NULL,
			elapsed_ns INTEGER NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
		CREATE TABLE IF NOT EXISTS winners (
			run_id TEXT PRIMARY KEY REFERENCES runs(id),
			genome_key INTEGER NOT NULL,
			fitness REAL NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}

func (s *Store) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("store is closed")
	}
	return s.db, nil
}

// CreateRun inserts a run in the running state.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status, config_path, settings)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UnixNano(), run.Status, run.ConfigPath, run.Settings)
	if err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun sets the final status and best fitness of a run.
func (s *Store) FinishRun(ctx context.Context, id, status string, bestFitness float64, at time.Time) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE runs SET status = ?, best_fitness = ?, finished_at = ? WHERE id = ?
	`, status, bestFitness, at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: no such run", id)
	}
	return nil
}

// RecordGeneration inserts or replaces a generation summary.
func (s *Store) RecordGeneration(ctx context.Context, g Generation) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, best_fitness, mean_fitness, stdev_fitness, species, best_genome_key, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			best_fitness = excluded.best_fitness,
			mean_fitness = excluded.mean_fitness,
			stdev_fitness = excluded.stdev_fitness,
			species = excluded.species,
			best_genome_key = excluded.best_genome_key,
			elapsed_ns = excluded.elapsed_ns
	`, g.RunID, g.Generation, g.BestFitness, g.MeanFitness, g.StdevFitness, g.Species, g.BestGenomeKey, int64(g.Elapsed))
	if err != nil {
		return fmt.Errorf("record generation %d of run %s: %w", g.Generation, g.RunID, err)
	}
	return nil
}

// SaveWinner stores the winning genome archive of a run.
func (s *Store) SaveWinner(ctx context.Context, w Winner) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO winners (run_id, genome_key, fitness, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			genome_key = excluded.genome_key,
			fitness = excluded.fitness,
			payload = excluded.payload
	`, w.RunID, w.GenomeKey, w.Fitness, w.Payload)
	if err != nil {
		return fmt.Errorf("save winner of run %s: %w", w.RunID, err)
	}
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}
	row := db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, config_path, settings, best_fitness
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, true, nil
}

// Runs returns every run, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, status, config_path, settings, best_fitness
		FROM runs ORDER BY started_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run               Run
		started, finished int64
	)
	if err := sc.Scan(&run.ID, &started, &finished, &run.Status, &run.ConfigPath, &run.Settings, &run.BestFitness); err != nil {
		return Run{}, err
	}
	run.StartedAt = time.Unix(0, started).UTC()
	if finished != 0 {
		run.FinishedAt = time.Unix(0, finished).UTC()
	}
	return run, nil
}

// Generations returns a run's generation summaries in order.
func (s *Store) Generations(ctx context.Context, runID string) ([]Generation, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, generation, best_fitness, mean_fitness, stdev_fitness, species, best_genome_key, elapsed_ns
		FROM generations WHERE run_id = ? ORDER BY generation
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list generations of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var (
			g       Generation
			elapsed int64
		)
		if err := rows.Scan(&g.RunID, &g.Generation, &g.BestFitness, &g.MeanFitness, &g.StdevFitness, &g.Species, &g.BestGenomeKey, &elapsed); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		g.Elapsed = time.Duration(elapsed)
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetWinner returns the winner archive of a run.
func (s *Store) GetWinner(ctx context.Context, runID string) (Winner, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Winner{}, false, err
	}
	w := Winner{RunID: runID}
	err = db.QueryRowContext(ctx, `
		SELECT genome_key, fitness, payload FROM winners WHERE run_id = ?
	`, runID).Scan(&w.GenomeKey, &w.Fitness, &w.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Winner{}, false, nil
	}
	if err != nil {
		return Winner{}, false, fmt.Errorf("get winner of run %s: %w", runID, err)
	}
	return w, true, nil
}

// Close closes the database; later calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
