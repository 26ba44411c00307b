package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/geocovid/geocovid/internal/config"
	"github.com/geocovid/geocovid/internal/render"
	"github.com/geocovid/geocovid/internal/report"
	"github.com/geocovid/geocovid/internal/sim"
	"github.com/geocovid/geocovid/internal/store"
)

type heatmapOptions struct {
	runID    string
	jsonPath string
	latest   bool
	out      string
	frames   []int
}

func newHeatmapCmd(g *globals) *cobra.Command {
	o := &heatmapOptions{}
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Render the agent snapshots of a run as a heat map video",
		Long: `Render stored agent snapshots as an MJPEG heat map: infected agents in red,
susceptible in green, recovered in blue.

Snapshots come from the database (the latest run unless --run is given), from
an agents JSON file with --json, or from the newest results_agents_*.json in the
output directory with --latest-json.

Examples:
  geocovid heatmap
  geocovid heatmap --run 2b1e... --frames 0,240,480
  geocovid heatmap --json outputs/results_agents_2020_04_30-10_00.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("fps") {
				fps, _ := cmd.Flags().GetInt("fps")
				cfg.Output.FPS = fps
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, err := g.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			records, name, err := o.records(cfg)
			if err != nil {
				return err
			}
			out := o.out
			if out == "" {
				out = filepath.Join(cfg.Output.Dir, fmt.Sprintf("heatmap_%s.avi", name))
			}
			frames, err := renderHeatmap(cfg, records, out, o.frames)
			if err != nil {
				return err
			}
			logger.Info("heat map written", "file", out, "frames", frames)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&o.runID, "run", "", "Run id in the database")
	fl.StringVar(&o.jsonPath, "json", "", "Agents JSON file")
	fl.BoolVar(&o.latest, "latest-json", false, "Use the newest agents JSON in the output directory")
	fl.StringVar(&o.out, "out", "", "Output video path")
	fl.IntSliceVar(&o.frames, "frames", nil, "Ticks to also save side by side as a PNG")
	fl.Int("fps", config.DefaultFPS, "Video frame rate")
	cmd.MarkFlagsMutuallyExclusive("run", "json", "latest-json")
	return cmd
}

// records loads the snapshots to draw and a name for the output file.
func (o *heatmapOptions) records(cfg config.Config) ([]sim.AgentRecord, string, error) {
	path := o.jsonPath
	if o.latest {
		var err error
		if path, err = report.Latest(cfg.Output.Dir, report.KindAgents); err != nil {
			return nil, "", err
		}
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		records, err := report.ReadAgentsJSON(f)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		name := filepath.Base(path)
		return records, name[:len(name)-len(filepath.Ext(name))], nil
	}

	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, "", err
	}
	defer db.Close()
	var run store.Run
	if o.runID != "" {
		id, err := uuid.Parse(o.runID)
		if err != nil {
			return nil, "", fmt.Errorf("run id: %w", err)
		}
		run.ID = id
	} else if run, err = db.LatestRun(); err != nil {
		return nil, "", err
	}
	records, err := db.AgentStates(run.ID)
	if err != nil {
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", fmt.Errorf("%w: run %s has no agent snapshots", store.ErrRunNotFound, run.ID)
	}
	return records, run.ID.String(), nil
}

// renderHeatmap writes one video frame per snapshot tick and, when keep names
// ticks, a PNG of those frames side by side next to the video.
func renderHeatmap(cfg config.Config, records []sim.AgentRecord, out string, keep []int) (int, error) {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return 0, err
	}
	canvas := render.NewCanvas(cfg.Output.Width, cfg.Output.Height, cfg.MapExtent())
	if canvas.Extent == nil {
		canvas.Extent = render.ExtentOf(records)
	}
	v, err := render.NewVideo(out, canvas, cfg.Output.FPS)
	if err != nil {
		return 0, err
	}
	v.Keep(keep...)

	for start := 0; start < len(records); {
		tick := records[start].Tick
		end := start
		for end < len(records) && records[end].Tick == tick {
			end++
		}
		if err := v.Observe(sim.Row{Tick: tick}, records[start:end]); err != nil {
			v.Close()
			return v.Frames(), err
		}
		start = end
	}
	if err := v.Close(); err != nil {
		return v.Frames(), err
	}

	if kept := v.Kept(); len(kept) > 0 {
		png := out[:len(out)-len(filepath.Ext(out))] + "_frames.png"
		if err := render.SavePNG(render.CombineHorizontally(kept), png); err != nil {
			return v.Frames(), err
		}
	}
	return v.Frames(), nil
}
