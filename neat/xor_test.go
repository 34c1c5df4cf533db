package neat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/hexneat/neat"
	"github.com/baldhumanity/hexneat/neat/nn"
)

const xorConfig = `
[NEAT]
fitness_criterion      = max
fitness_threshold      = 3.9
pop_size               = 150
reset_on_extinction    = False

[DefaultGenome]
activation_default      = sigmoid
activation_mutate_rate  = 0.0
activation_options      = sigmoid
aggregation_default     = sum
aggregation_mutate_rate = 0.0
aggregation_options     = sum
bias_init_mean          = 0.0
bias_init_stdev         = 1.0
bias_max_value          = 30.0
bias_min_value          = -30.0
bias_mutate_power       = 0.5
bias_mutate_rate        = 0.7
bias_replace_rate       = 0.1
compatibility_disjoint_coefficient = 1.0
compatibility_weight_coefficient   = 0.5
conn_add_prob           = 0.5
conn_delete_prob        = 0.5
enabled_default         = True
enabled_mutate_rate     = 0.01
feed_forward            = True
initial_connection      = full
node_add_prob           = 0.2
node_delete_prob        = 0.2
num_hidden              = 0
num_inputs              = 2
num_outputs             = 1
response_init_mean      = 1.0
response_init_stdev     = 0.0
response_max_value      = 30.0
response_min_value      = -30.0
response_mutate_power   = 0.0
response_mutate_rate    = 0.0
response_replace_rate   = 0.0
weight_init_mean        = 0.0
weight_init_stdev       = 1.0
weight_max_value        = 30
weight_min_value        = -30
weight_mutate_power     = 0.5
weight_mutate_rate      = 0.8
weight_replace_rate     = 0.1

[DefaultSpeciesSet]
compatibility_threshold = 3.0

[DefaultStagnation]
species_fitness_func = max
max_stagnation       = 20
species_elitism      = 2

[DefaultReproduction]
elitism            = 2
survival_threshold = 0.2
min_species_size   = 2
`

var (
	xorInputs  = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	xorOutputs = []float64{0, 1, 1, 0}
)

func evalXOR(_ context.Context, genomes map[int]*neat.Genome) error {
	for _, g := range genomes {
		net, err := nn.CreateFeedForwardNetwork(g)
		if err != nil {
			g.Fitness = 0
			continue
		}
		g.Fitness = 4.0
		for i, in := range xorInputs {
			out, err := net.Activate(in)
			if err != nil {
				return err
			}
			d := out[0] - xorOutputs[i]
			g.Fitness -= d * d
		}
	}
	return nil
}

func TestEvolveXOR(t *testing.T) {
	config, err := neat.ParseConfig([]byte(xorConfig))
	require.NoError(t, err)
	p, err := neat.NewPopulation(config)
	require.NoError(t, err)
	stats := neat.NewStatisticsReporter()
	p.AddReporter(stats)

	winner, err := p.Run(context.Background(), evalXOR, 20)
	require.NoError(t, err)
	require.NotNil(t, winner)

	best := stats.BestFitnesses()
	require.NotEmpty(t, best)
	assert.LessOrEqual(t, len(best), 20)
	assert.GreaterOrEqual(t, winner.Fitness, best[0])
	assert.LessOrEqual(t, winner.Fitness, 4.0)

	net, err := nn.CreateFeedForwardNetwork(winner)
	require.NoError(t, err)
	for _, in := range xorInputs {
		out, err := net.Activate(in)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.True(t, out[0] >= 0 && out[0] <= 1)
	}
}
