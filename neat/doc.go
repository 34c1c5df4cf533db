// Package neat implements NeuroEvolution of Augmenting Topologies (NEAT),
// following the neat-python design: INI configuration, genomes of node and
// connection genes, speciation by compatibility distance, stagnation,
// fitness-shared reproduction, reporters and checkpoints.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("configs/config-cppn")
//	if err != nil {
//		return err
//	}
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		return err
//	}
//	pop.AddReporter(neat.NewStdOutReporter(true))
//
//	winner, err := pop.Run(ctx, func(ctx context.Context, genomes map[int]*neat.Genome) error {
//		for _, g := range genomes {
//			g.Fitness = evaluate(g)
//		}
//		return nil
//	}, 100)
//
// Phenotypes are built by the nn subpackage.
package neat
