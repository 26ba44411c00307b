package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/geocovid/geocovid/internal/config"
)

func newRunCmd(g *globals) *cobra.Command {
	// flags are parsed into f and copied onto the loaded config only when set
	f := config.Default()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation over a directory of ping files",
		Long: `Run the simulation over hourly device positions.

Input files (.csv, .csv.gz, .tar.gz) are read in name order, pings are grouped
by UTC hour and device, and each hour becomes one tick of the model.

Examples:
  # Run with defaults over ./data
  geocovid run

  # Ten day treatment, explicit initial cohort, positions in metres
  geocovid run --input /data/pings --treatment-period 10d \
    --initial-ids dev-1,dev-2 --projection "+proj=merc +a=6378137 +b=6378137 +units=m" \
    --exposure-distance 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, &cfg, f)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, err := g.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := simulate(cmd.Context(), cfg, logger, time.Now)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderResult(res))
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.Input.Dir, "input", "i", f.Input.Dir, "Directory of ping files")
	fl.StringSliceVar(&f.Input.Files, "files", nil, "Explicit input files, in order (overrides --input)")
	fl.StringVar(&f.Input.Projection, "projection", "", "PROJ.4 target projection for positions")

	fl.Float64Var(&f.Simulation.InfectionProb, "infection-prob", f.Simulation.InfectionProb, "Probability of infection per contact per tick")
	fl.Float64Var(&f.Simulation.DeathProb, "death-prob", f.Simulation.DeathProb, "Probability of death per tick once eligible")
	fl.Var(&f.Simulation.TreatmentPeriod, "treatment-period", "Infection length before recovery (ticks, Nh or Nd)")
	fl.Var(&f.Simulation.MinDeathPeriod, "min-death-period", "Infection length before death is possible (ticks, Nh or Nd)")
	fl.Float64Var(&f.Simulation.ExposureDistance, "exposure-distance", f.Simulation.ExposureDistance, "Contact radius in position units")
	fl.IntVar(&f.Simulation.InitialInfected, "initial-infected", f.Simulation.InitialInfected, "Size of the random initial cohort")
	fl.StringSliceVar(&f.Simulation.InitialInfectedIDs, "initial-ids", nil, "Explicit initial cohort")
	fl.Int64Var(&f.Simulation.Seed, "seed", f.Simulation.Seed, "Random seed")
	fl.IntVar(&f.Simulation.SampleEvery, "sample-every", f.Simulation.SampleEvery, "Agent snapshot interval in ticks")

	fl.StringVarP(&f.Output.Dir, "output", "o", f.Output.Dir, "Output directory")
	fl.StringVar(&f.Output.Database, "db", f.Output.Database, "SQLite database, relative to the output directory")
	fl.BoolVar(&f.Output.CSV, "csv", f.Output.CSV, "Write the per tick metrics CSV")
	fl.BoolVar(&f.Output.JSON, "json", f.Output.JSON, "Write the JSON result tables")
	fl.BoolVar(&f.Output.Charts, "charts", f.Output.Charts, "Render epidemic curve charts")
	fl.BoolVar(&f.Output.Video, "video", f.Output.Video, "Render the heat map video")
	fl.IntVar(&f.Output.FPS, "fps", f.Output.FPS, "Heat map video frame rate")
	cmd.MarkFlagsMutuallyExclusive("initial-infected", "initial-ids")
	return cmd
}

// applyRunFlags copies every flag set on the command line from f onto cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, f config.Config) {
	overrides := map[string]func(){
		"input":             func() { cfg.Input.Dir = f.Input.Dir },
		"files":             func() { cfg.Input.Files = f.Input.Files },
		"projection":        func() { cfg.Input.Projection = f.Input.Projection },
		"infection-prob":    func() { cfg.Simulation.InfectionProb = f.Simulation.InfectionProb },
		"death-prob":        func() { cfg.Simulation.DeathProb = f.Simulation.DeathProb },
		"treatment-period":  func() { cfg.Simulation.TreatmentPeriod = f.Simulation.TreatmentPeriod },
		"min-death-period":  func() { cfg.Simulation.MinDeathPeriod = f.Simulation.MinDeathPeriod },
		"exposure-distance": func() { cfg.Simulation.ExposureDistance = f.Simulation.ExposureDistance },
		"initial-infected":  func() { cfg.Simulation.InitialInfected = f.Simulation.InitialInfected },
		"initial-ids":       func() { cfg.Simulation.InitialInfectedIDs = f.Simulation.InitialInfectedIDs },
		"seed":              func() { cfg.Simulation.Seed = f.Simulation.Seed },
		"sample-every":      func() { cfg.Simulation.SampleEvery = f.Simulation.SampleEvery },
		"output":            func() { cfg.Output.Dir = f.Output.Dir },
		"db":                func() { cfg.Output.Database = f.Output.Database },
		"csv":               func() { cfg.Output.CSV = f.Output.CSV },
		"json":              func() { cfg.Output.JSON = f.Output.JSON },
		"charts":            func() { cfg.Output.Charts = f.Output.Charts },
		"video":             func() { cfg.Output.Video = f.Output.Video },
		"fps":               func() { cfg.Output.FPS = f.Output.FPS },
	}
	for name, apply := range overrides {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	// a cohort size given on the command line replaces an id list from the file
	if cmd.Flags().Changed("initial-infected") && !cmd.Flags().Changed("initial-ids") {
		cfg.Simulation.InitialInfectedIDs = nil
	}
}
