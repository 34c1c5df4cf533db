package neat_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/hexneat/neat"
	"github.com/baldhumanity/hexneat/neat/nn"
)

// TestEvolutionStaysFeedForward evolves with heavy structural mutation and
// enable toggling, and checks that every genome of every generation still
// builds as a feed-forward network.
func TestEvolutionStaysFeedForward(t *testing.T) {
	data := strings.NewReplacer(
		"fitness_threshold      = 3.9", "fitness_threshold      = 100",
		"pop_size               = 150", "pop_size               = 60",
		"enabled_mutate_rate     = 0.01", "enabled_mutate_rate     = 0.3",
		"node_add_prob           = 0.2", "node_add_prob           = 0.5",
		"conn_add_prob           = 0.5", "conn_add_prob           = 0.8",
	).Replace(xorConfig)
	require.NotEqual(t, xorConfig, data)

	config, err := neat.ParseConfig([]byte(data))
	require.NoError(t, err)
	p, err := neat.NewPopulation(config)
	require.NoError(t, err)

	var cyclic []string
	evaluated := 0
	eval := func(ctx context.Context, genomes map[int]*neat.Genome) error {
		for key, g := range genomes {
			evaluated++
			if _, err := nn.CreateFeedForwardNetwork(g); err != nil {
				cyclic = append(cyclic, fmt.Sprintf("genome %d: %v", key, err))
			}
		}
		return evalXOR(ctx, genomes)
	}

	_, err = p.Run(context.Background(), eval, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, p.Generation)
	assert.Greater(t, evaluated, 60*30)
	assert.Empty(t, cyclic)
}
