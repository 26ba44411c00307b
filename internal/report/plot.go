package report

import (
	"fmt"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/geocovid/geocovid/internal/sim"
)

// RenderDeaths plots cumulative deaths and new infections per tick and saves
// the figure to path; the format follows the extension.
func RenderDeaths(path string, rows []sim.Row) error {
	if len(rows) == 0 {
		return ErrNoRows
	}
	p := plot.New()
	p.Title.Text = "Deaths and new infections"
	p.X.Label.Text = "Tick"
	p.Y.Label.Text = "Agents"

	// one mark per simulated day
	p.X.Tick.Marker = plot.TickerFunc(func(min, max float64) []plot.Tick {
		step := float64(sim.StepsPerDay)
		for max/step > 20 {
			step *= 2
		}
		var ticks []plot.Tick
		for v := 0.0; v <= max; v += step {
			ticks = append(ticks, plot.Tick{Value: v, Label: strconv.Itoa(int(v))})
		}
		return ticks
	})

	deaths := make(plotter.XYs, len(rows))
	infections := make(plotter.XYs, len(rows))
	for i, row := range rows {
		deaths[i].X = float64(row.Tick)
		deaths[i].Y = float64(row.Dead)
		infections[i].X = float64(row.Tick)
		infections[i].Y = float64(row.NewInfections)
	}
	if err := plotutil.AddLinePoints(p, "Dead", deaths, "New infections", infections); err != nil {
		return fmt.Errorf("add plot points: %w", err)
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
