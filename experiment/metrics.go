package experiment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baldhumanity/hexneat/neat"
)

// MetricsReporter exports evolution progress as Prometheus metrics on its
// own registry.
type MetricsReporter struct {
	neat.BaseReporter

	registry          *prometheus.Registry
	generation        prometheus.Gauge
	bestFitness       prometheus.Gauge
	meanFitness       prometheus.Gauge
	species           prometheus.Gauge
	genomesEvaluated  prometheus.Counter
	stagnantSpecies   prometheus.Counter
	extinctions       prometheus.Counter
	generationSeconds prometheus.Histogram

	started time.Time
}

// NewMetricsReporter creates and registers the evolution metrics.
func NewMetricsReporter() *MetricsReporter {
	m := &MetricsReporter{
		registry:         prometheus.NewRegistry(),
		generation:       prometheus.NewGauge(prometheus.GaugeOpts{Name: "hexneat_generation", Help: "Current generation."}),
		bestFitness:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "hexneat_best_fitness", Help: "Best fitness of the last evaluated generation."}),
		meanFitness:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "hexneat_mean_fitness", Help: "Mean fitness of the last evaluated generation."}),
		species:          prometheus.NewGauge(prometheus.GaugeOpts{Name: "hexneat_species", Help: "Number of species."}),
		genomesEvaluated: prometheus.NewCounter(prometheus.CounterOpts{Name: "hexneat_genomes_evaluated_total", Help: "Genomes evaluated."}),
		stagnantSpecies:  prometheus.NewCounter(prometheus.CounterOpts{Name: "hexneat_stagnant_species_total", Help: "Species removed for stagnation."}),
		extinctions:      prometheus.NewCounter(prometheus.CounterOpts{Name: "hexneat_extinctions_total", Help: "Complete extinctions."}),
		generationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hexneat_generation_duration_seconds",
			Help:    "Wall time per generation.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	m.registry.MustRegister(
		m.generation, m.bestFitness, m.meanFitness, m.species,
		m.genomesEvaluated, m.stagnantSpecies, m.extinctions, m.generationSeconds,
	)
	return m
}

// Registry returns the registry holding the metrics.
func (m *MetricsReporter) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *MetricsReporter) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsReporter) StartGeneration(generation int) {
	m.generation.Set(float64(generation))
	m.started = time.Now()
}

func (m *MetricsReporter) PostEvaluate(_ *neat.Config, population map[int]*neat.Genome, speciesSet *neat.SpeciesSet, best *neat.Genome) {
	m.genomesEvaluated.Add(float64(len(population)))
	fitnesses := make([]float64, 0, len(population))
	for _, g := range population {
		fitnesses = append(fitnesses, g.Fitness)
	}
	if len(fitnesses) > 0 {
		m.meanFitness.Set(neat.Mean(fitnesses))
	}
	if best != nil {
		m.bestFitness.Set(best.Fitness)
	}
	if speciesSet != nil {
		m.species.Set(float64(len(speciesSet.Species)))
	}
}

func (m *MetricsReporter) EndGeneration(_ *neat.Config, _ map[int]*neat.Genome, speciesSet *neat.SpeciesSet) {
	if speciesSet != nil {
		m.species.Set(float64(len(speciesSet.Species)))
	}
	if !m.started.IsZero() {
		m.generationSeconds.Observe(time.Since(m.started).Seconds())
	}
}

func (m *MetricsReporter) CompleteExtinction() {
	m.extinctions.Inc()
}

func (m *MetricsReporter) SpeciesStagnant(int, *neat.Species) {
	m.stagnantSpecies.Inc()
}

// ServeMetrics serves handler on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	logger.Info("serving metrics", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
