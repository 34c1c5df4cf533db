package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// PopulationSaveData is the persisted part of a Population. The Config is
// not saved; it is reloaded from the original file.
type PopulationSaveData struct {
	Population    map[int]*Genome
	SpeciesSet    *SpeciesSet
	NextGenomeKey int
	Ancestors     map[int][]int
	Generation    int
	BestGenome    *Genome
	NodeKeyIndex  int
}

// SaveCheckpoint writes the population state to a gzip-compressed gob file.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	saveData := PopulationSaveData{
		Population:    p.Population,
		SpeciesSet:    p.SpeciesSet,
		NextGenomeKey: p.Reproduction.NextGenomeKey,
		Ancestors:     p.Reproduction.Ancestors,
		Generation:    p.Generation,
		BestGenome:    p.BestGenome,
		NodeKeyIndex:  p.Config.Genome.NodeKeyIndex,
	}
	if err := gob.NewEncoder(gz).Encode(saveData); err != nil {
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint: %w", err)
	}
	return file.Close()
}

// LoadCheckpoint restores a population; the config is read from configPath.
func LoadCheckpoint(checkpointPath string, configPath string) (*Population, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s' for checkpoint: %w", configPath, err)
	}
	return RestoreCheckpoint(checkpointPath, config)
}

// RestoreCheckpoint restores a population using an already loaded config.
func RestoreCheckpoint(checkpointPath string, config *Config) (*Population, error) {
	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gz.Close()

	var saveData PopulationSaveData
	if err := gob.NewDecoder(gz).Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}

	p, err := NewPopulation(config)
	if err != nil {
		return nil, err
	}
	p.Population = saveData.Population
	p.Generation = saveData.Generation
	p.BestGenome = saveData.BestGenome
	p.Reproduction.NextGenomeKey = saveData.NextGenomeKey
	p.Reproduction.Ancestors = saveData.Ancestors
	if p.Reproduction.Ancestors == nil {
		p.Reproduction.Ancestors = make(map[int][]int)
	}

	// Pointers are not shared across a gob round trip: re-link genomes to
	// the live config and species members to the population genomes.
	maxNodeKey := saveData.NodeKeyIndex - 1
	for _, g := range p.Population {
		relinkGenome(g, &config.Genome)
		for k := range g.Nodes {
			maxNodeKey = max(maxNodeKey, k)
		}
	}
	if p.BestGenome != nil {
		relinkGenome(p.BestGenome, &config.Genome)
	}
	config.Genome.NodeKeyIndex = max(config.Genome.NodeKeyIndex, maxNodeKey+1)

	if ss := saveData.SpeciesSet; ss != nil {
		ss.Config = &config.SpeciesSet
		if ss.Species == nil {
			ss.Species = make(map[int]*Species)
		}
		if ss.GenomeToSpecies == nil {
			ss.GenomeToSpecies = make(map[int]int)
		}
		for _, s := range ss.Species {
			if s.Representative != nil {
				relinkGenome(s.Representative, &config.Genome)
			}
			if s.Members == nil {
				s.Members = make(map[int]*Genome)
			}
			for k := range s.Members {
				if g, ok := p.Population[k]; ok {
					s.Members[k] = g
				} else {
					delete(s.Members, k)
				}
			}
		}
		p.SpeciesSet = ss
	}

	logger().Info("checkpoint loaded", "path", checkpointPath, "generation", p.Generation)
	return p, nil
}

// relinkGenome points g at the live config. Gob drops empty maps, so they
// are recreated.
func relinkGenome(g *Genome, config *GenomeConfig) {
	g.Config = config
	if g.Nodes == nil {
		g.Nodes = make(map[int]*NodeGene)
	}
	if g.Connections == nil {
		g.Connections = make(map[ConnectionKey]*ConnectionGene)
	}
}

// Checkpointer saves the population every GenerationInterval generations.
type Checkpointer struct {
	BaseReporter
	Population         *Population
	GenerationInterval int
	FilenamePrefix     string

	current int
}

// NewCheckpointer creates a reporter writing "<prefix><generation>.gz".
func NewCheckpointer(p *Population, interval int, prefix string) *Checkpointer {
	return &Checkpointer{Population: p, GenerationInterval: interval, FilenamePrefix: prefix}
}

func (c *Checkpointer) StartGeneration(generation int) {
	c.current = generation
}

func (c *Checkpointer) EndGeneration(*Config, map[int]*Genome, *SpeciesSet) {
	if c.GenerationInterval <= 0 || c.current%c.GenerationInterval != 0 {
		return
	}
	path := c.Filename(c.current)
	if err := c.Population.SaveCheckpoint(path); err != nil {
		logger().Warn("failed to save checkpoint", "path", path, "error", err)
		return
	}
	logger().Info("checkpoint saved", "path", path)
}

// Filename returns the checkpoint path for a generation.
func (c *Checkpointer) Filename(generation int) string {
	return fmt.Sprintf("%s%d.gz", c.FilenamePrefix, generation)
}

// EncodeGenome writes a genome together with its genome config, so the
// phenotype can be rebuilt without the original INI file.
func EncodeGenome(w io.Writer, g *Genome) error {
	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(g); err != nil {
		return fmt.Errorf("failed to encode genome %d: %w", g.Key, err)
	}
	return gz.Close()
}

// DecodeGenome reads a genome written by EncodeGenome.
func DecodeGenome(r io.Reader) (*Genome, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open genome archive: %w", err)
	}
	defer gz.Close()

	var g Genome
	if err := gob.NewDecoder(gz).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode genome: %w", err)
	}
	if g.Config == nil {
		return nil, fmt.Errorf("genome %d archive has no genome config", g.Key)
	}
	relinkGenome(&g, g.Config)
	return &g, nil
}
