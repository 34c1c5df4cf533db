package experiment

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/hexneat/neat"
)

const cppnConfigPath = "../configs/config-cppn"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cppnConfig(t *testing.T) *neat.Config {
	t.Helper()
	config, err := neat.LoadConfig(cppnConfigPath)
	require.NoError(t, err)
	return config
}

// smallCPPNConfig writes the CPPN config with a smaller population.
func smallCPPNConfig(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(cppnConfigPath)
	require.NoError(t, err)
	small := strings.Replace(string(data), "pop_size              = 300", "pop_size              = 8", 1)
	require.NotEqual(t, string(data), small)
	path := filepath.Join(dir, "config-cppn")
	require.NoError(t, os.WriteFile(path, []byte(small), 0o644))
	return path
}

// silentCPPN returns a genome whose CPPN outputs 0 everywhere, so the
// decoded controller adds no correction to the gait.
func silentCPPN(t *testing.T) *neat.Genome {
	t.Helper()
	config := cppnConfig(t)
	g := neat.NewGenome(1, &config.Genome)
	g.Nodes[0] = &neat.NodeGene{Key: 0, Response: 1, Activation: "identity", Aggregation: "sum"}
	return g
}

func walkEpisode() Episode {
	return Episode{
		Duration:       2,
		Gait:           "tripod",
		BodyHeight:     0.15,
		Velocity:       0.5,
		Period:         1,
		CollisionFatal: true,
	}
}
