package report

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/geocovid/geocovid/internal/sim"
)

// Curve colors follow the heat map: infected red, susceptible green,
// recovered blue.
var (
	colorSusceptible = chart.ColorGreen
	colorInfected    = chart.ColorRed
	colorRecovered   = chart.ColorBlue
	colorDead        = drawing.Color{R: 64, G: 64, B: 64, A: 255}
)

// dayTicks labels the x axis once per simulated day, or in hours for runs
// shorter than a day. go-chart takes the x range from the ticks, so there are
// always at least two and the last one sits at maxTick.
func dayTicks(maxTick float64) []chart.Tick {
	maxTick = max(maxTick, 1)
	interval := float64(sim.StepsPerDay)
	label := func(v float64) string { return fmt.Sprintf("%d", int(v)/sim.StepsPerDay) }
	if maxTick < interval {
		interval = 1
		label = func(v float64) string { return fmt.Sprintf("%dh", int(v)) }
	}
	for maxTick/interval > 20 {
		interval *= 2
	}
	var ticks []chart.Tick
	for v := 0.0; v <= maxTick; v += interval {
		ticks = append(ticks, chart.Tick{Value: v, Label: label(v)})
	}
	if last := ticks[len(ticks)-1].Value; last < maxTick {
		ticks = append(ticks, chart.Tick{Value: maxTick})
	}
	return ticks
}

// RenderCurves draws the S, I, R and D curves as a PNG.
func RenderCurves(w io.Writer, rows []sim.Row, width, height int) error {
	if len(rows) == 0 {
		return ErrNoRows
	}
	n := len(rows)
	x := make([]float64, n)
	s := make([]float64, n)
	i := make([]float64, n)
	r := make([]float64, n)
	d := make([]float64, n)
	yMax := 1.0
	for k, row := range rows {
		x[k] = float64(row.Tick)
		s[k] = float64(row.Susceptible)
		i[k] = float64(row.Infected)
		r[k] = float64(row.Recovered)
		d[k] = float64(row.Dead)
		yMax = max(yMax, s[k], i[k], r[k], d[k])
	}
	xMax := max(x[n-1], 1)

	series := func(name string, y []float64, c drawing.Color) chart.Series {
		return chart.ContinuousSeries{
			Name:    name,
			XValues: x,
			YValues: y,
			Style: chart.Style{
				StrokeColor: c,
				StrokeWidth: 3.0,
			},
		}
	}
	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "day",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: xMax},
			Ticks: dayTicks(xMax),
		},
		YAxis: chart.YAxis{
			Name:  "agents",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: yMax * 1.05},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		Series: []chart.Series{
			series("Susceptible", s, colorSusceptible),
			series("Infected", i, colorInfected),
			series("Recovered", r, colorRecovered),
			series("Dead", d, colorDead),
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render curves: %w", err)
	}
	return nil
}
