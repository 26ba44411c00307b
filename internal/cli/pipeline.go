package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/geocovid/geocovid/internal/config"
	"github.com/geocovid/geocovid/internal/ingest"
	"github.com/geocovid/geocovid/internal/render"
	"github.com/geocovid/geocovid/internal/report"
	"github.com/geocovid/geocovid/internal/sim"
	"github.com/geocovid/geocovid/internal/spatial"
	"github.com/geocovid/geocovid/internal/store"
)

// Size of the epidemic curve chart.
const (
	chartWidth  = 1024
	chartHeight = 400
)

// Result describes a finished run.
type Result struct {
	RunID   uuid.UUID
	Summary report.Summary
	Seeded  int
	Frames  int
	Dropped int
	// Files lists every output written, database excluded.
	Files []string
}

// closeInto closes c and keeps its error in *err unless one is already set.
func closeInto(err *error, c io.Closer, what string) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("close %s: %w", what, cerr)
	}
}

// simulate reads the configured input, runs the model over every hourly frame
// and writes the configured outputs. It stops between ticks when ctx is done.
func simulate(ctx context.Context, cfg config.Config, logger *slog.Logger, now func() time.Time) (res Result, err error) {
	started := now()

	paths := cfg.Input.Files
	if len(paths) == 0 {
		if paths, err = ingest.Discover(cfg.Input.Dir); err != nil {
			return res, err
		}
	}
	var projector *spatial.Projector
	if cfg.Input.Projection != "" {
		if projector, err = spatial.NewProjector(cfg.Input.Projection); err != nil {
			return res, err
		}
	}
	frames, stats, err := ingest.Load(paths, projector, logger)
	if err != nil {
		return res, err
	}
	res.Frames = len(frames)
	res.Dropped = stats.Dropped

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}
	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return res, err
	}
	defer db.Close()

	params := cfg.Params()
	run, err := db.CreateRun(params, started)
	if err != nil {
		return res, err
	}
	res.RunID = run.ID
	logger = logger.With("run", run.ID.String())

	stamp := started.Format("2006_01_02-15_04")
	outPath := func(name string) string {
		p := filepath.Join(cfg.Output.Dir, name)
		res.Files = append(res.Files, p)
		return p
	}

	opts := []sim.Option{
		sim.WithLogger(logger),
		sim.WithAgentSampling(cfg.Simulation.SampleEvery),
		sim.WithObserver(db.Recorder(run.ID)),
	}
	if cfg.Output.CSV {
		var f *os.File
		if f, err = os.Create(outPath(fmt.Sprintf("results_metrics_%s.csv", stamp))); err != nil {
			return res, err
		}
		defer closeInto(&err, f, "metrics csv")
		var m *report.MetricsCSV
		if m, err = report.NewMetricsCSV(f); err != nil {
			return res, err
		}
		opts = append(opts, sim.WithObserver(m))
	}
	var agentLog *report.AgentLog
	if cfg.Output.JSON {
		agentLog = &report.AgentLog{}
		opts = append(opts, sim.WithObserver(agentLog))
	}
	if cfg.Output.Video {
		canvas := render.NewCanvas(cfg.Output.Width, cfg.Output.Height, cfg.MapExtent())
		var v *render.Video
		if v, err = render.NewVideo(outPath(fmt.Sprintf("heatmap_%s.avi", stamp)), canvas, cfg.Output.FPS); err != nil {
			return res, err
		}
		defer closeInto(&err, v, "heat map video")
		opts = append(opts, sim.WithObserver(v))
	}

	model, err := sim.New(params, opts...)
	if err != nil {
		return res, err
	}
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("stopped at tick %d: %w", i, err)
		}
		row, err := model.Step(f.Batch)
		if err != nil {
			return res, fmt.Errorf("hour %s: %w", f.Hour.Format(time.RFC3339), err)
		}
		if row.Tick%sim.StepsPerDay == 0 {
			logger.Info("simulated day",
				"day", row.Tick/sim.StepsPerDay,
				"hour", f.Hour.Format(time.RFC3339),
				"population", model.Population(),
				"S", row.Susceptible, "I", row.Infected, "R", row.Recovered, "D", row.Dead,
			)
		}
	}
	res.Seeded = len(model.Seeded())

	rows := model.Metrics()
	if res.Summary, err = report.Summarize(rows, model.Created(), res.Seeded); err != nil {
		return res, err
	}

	finished := now()
	if cfg.Output.JSON {
		modelPath, agentsPath, err := report.ExportJSON(cfg.Output.Dir, finished, rows, agentLog.Records())
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, modelPath, agentsPath)
	}
	if cfg.Output.Charts {
		f, err := os.Create(outPath(fmt.Sprintf("curves_%s.png", stamp)))
		if err != nil {
			return res, err
		}
		err = report.RenderCurves(f, rows, chartWidth, chartHeight)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return res, err
		}
		if err := report.RenderDeaths(outPath(fmt.Sprintf("deaths_%s.png", stamp)), rows); err != nil {
			return res, err
		}
	}
	logger.Info("run finished", "ticks", len(rows), "deaths", model.Deaths(), "elapsed", finished.Sub(started))
	return res, nil
}
