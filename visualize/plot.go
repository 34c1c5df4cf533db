package visualize

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/baldhumanity/hexneat/neat"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no generations to plot")

// PlotStats saves best, average and +-1 sd fitness per generation as PNG.
func PlotStats(stats *neat.StatisticsReporter, path string) error {
	best := stats.BestFitnesses()
	mean := stats.GetFitnessMean()
	stdev := stats.GetFitnessStdev()
	if len(best) == 0 || len(mean) == 0 {
		return ErrNoData
	}
	n := min(len(best), len(mean), len(stdev))

	series := map[string]plotter.XYs{
		"best":    make(plotter.XYs, n),
		"average": make(plotter.XYs, n),
		"-1 sd":   make(plotter.XYs, n),
		"+1 sd":   make(plotter.XYs, n),
	}
	for i := 0; i < n; i++ {
		x := float64(i)
		series["best"][i] = plotter.XY{X: x, Y: best[i]}
		series["average"][i] = plotter.XY{X: x, Y: mean[i]}
		series["-1 sd"][i] = plotter.XY{X: x, Y: mean[i] - stdev[i]}
		series["+1 sd"][i] = plotter.XY{X: x, Y: mean[i] + stdev[i]}
	}

	p := plot.New()
	p.Title.Text = "Population's average and best fitness"
	p.X.Label.Text = "Generations"
	p.Y.Label.Text = "Fitness"

	colors := []color.Color{
		color.RGBA{R: 200, A: 255},
		color.RGBA{B: 200, A: 255},
		color.RGBA{G: 160, A: 255},
		color.RGBA{G: 160, A: 255},
	}
	for i, name := range []string{"best", "average", "-1 sd", "+1 sd"} {
		line, err := plotter.NewLine(series[name])
		if err != nil {
			return fmt.Errorf("%s line: %w", name, err)
		}
		line.Color = colors[i]
		if i >= 2 {
			line.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		}
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// PlotSpecies saves the size of every species per generation as a stacked
// area chart PNG.
func PlotSpecies(stats *neat.StatisticsReporter, path string) error {
	sizes := stats.GetSpeciesSizes()
	if len(sizes) == 0 || len(sizes[0]) == 0 {
		return ErrNoData
	}
	numSpecies := len(sizes[0])

	// cum[s][g] is the total size of species 0..s in generation g.
	cum := make([]plotter.XYs, numSpecies)
	for s := range cum {
		cum[s] = make(plotter.XYs, len(sizes))
		for g, row := range sizes {
			below := 0.0
			if s > 0 {
				below = cum[s-1][g].Y
			}
			cum[s][g] = plotter.XY{X: float64(g), Y: below + float64(row[s])}
		}
	}

	p := plot.New()
	p.Title.Text = "Speciation"
	p.X.Label.Text = "Generations"
	p.Y.Label.Text = "Size per Species"

	// Draw the tallest band first so lower bands paint over it.
	for s := numSpecies - 1; s >= 0; s-- {
		line, err := plotter.NewLine(cum[s])
		if err != nil {
			return fmt.Errorf("species %d band: %w", s+1, err)
		}
		line.FillColor = plotutil.Color(s)
		line.Color = color.Black
		line.Width = vg.Points(0.3)
		p.Add(line)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
