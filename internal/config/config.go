// Package config holds the run configuration: defaults, the YAML file and
// validation. Command line flags are applied on top by the cli package.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"gopkg.in/yaml.v3"

	"github.com/geocovid/geocovid/internal/sim"
)

// Defaults outside the simulation parameters.
const (
	DefaultInputDir    = "data"
	DefaultOutputDir   = "outputs"
	DefaultDatabase    = "geocovid.db"
	DefaultSampleEvery = sim.StepsPerDay
	DefaultWidth       = 800
	DefaultHeight      = 600
	DefaultFPS         = 5
	DefaultLogLevel    = "info"
)

// Config is the whole run configuration.
type Config struct {
	Input      Input      `yaml:"input"`
	Simulation Simulation `yaml:"simulation"`
	Output     Output     `yaml:"output"`
	LogLevel   string     `yaml:"log_level"`
}

// Input selects the ping files.
type Input struct {
	// Dir is scanned when Files is empty.
	Dir   string   `yaml:"dir"`
	Files []string `yaml:"files,omitempty"`
	// Projection is a PROJ.4 target for positions; empty keeps lon/lat
	// degrees.
	Projection string `yaml:"projection,omitempty"`
}

// Simulation mirrors sim.Params with periods in ticks, hours or days.
type Simulation struct {
	InfectionProb      float64  `yaml:"infection_prob"`
	DeathProb          float64  `yaml:"death_prob"`
	TreatmentPeriod    Period   `yaml:"treatment_period"`
	MinDeathPeriod     Period   `yaml:"min_death_period"`
	ExposureDistance   float64  `yaml:"exposure_distance"`
	InitialInfected    int      `yaml:"initial_infected"`
	InitialInfectedIDs []string `yaml:"initial_infected_ids,omitempty"`
	Seed               int64    `yaml:"seed"`
	// SampleEvery is the agent snapshot interval in ticks.
	SampleEvery int `yaml:"sample_every"`
}

// Output selects what a run writes.
type Output struct {
	Dir string `yaml:"dir"`
	// Database is relative to Dir unless absolute.
	Database string `yaml:"database"`
	CSV      bool   `yaml:"csv"`
	JSON     bool   `yaml:"json"`
	Charts   bool   `yaml:"charts"`
	Video    bool   `yaml:"video"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	FPS      int    `yaml:"fps"`
	// Extent is [min x, min y, max x, max y] of the heat map. Empty means
	// the extent of the first snapshot.
	Extent []float64 `yaml:"extent,omitempty"`
}

// Default returns the configuration used when no file or flag overrides it.
func Default() Config {
	p := sim.DefaultParams()
	return Config{
		Input: Input{Dir: DefaultInputDir},
		Simulation: Simulation{
			InfectionProb:    p.InfectionProb,
			DeathProb:        p.DeathProb,
			TreatmentPeriod:  Period(p.TreatmentPeriod),
			MinDeathPeriod:   Period(p.MinDeathPeriod),
			ExposureDistance: p.ExposureDistance,
			InitialInfected:  p.InitialInfected,
			Seed:             p.Seed,
			SampleEvery:      DefaultSampleEvery,
		},
		Output: Output{
			Dir:      DefaultOutputDir,
			Database: DefaultDatabase,
			CSV:      true,
			JSON:     true,
			Charts:   true,
			Video:    true,
			Width:    DefaultWidth,
			Height:   DefaultHeight,
			FPS:      DefaultFPS,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load overlays the YAML file at path on Default. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Params converts the simulation section. An explicit id list replaces the
// random cohort size.
func (c Config) Params() sim.Params {
	s := c.Simulation
	if len(s.InitialInfectedIDs) > 0 {
		s.InitialInfected = 0
	}
	return sim.Params{
		InfectionProb:      s.InfectionProb,
		DeathProb:          s.DeathProb,
		TreatmentPeriod:    s.TreatmentPeriod.Ticks(),
		MinDeathPeriod:     s.MinDeathPeriod.Ticks(),
		ExposureDistance:   s.ExposureDistance,
		InitialInfected:    s.InitialInfected,
		InitialInfectedIDs: s.InitialInfectedIDs,
		Seed:               s.Seed,
	}
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return l, nil
}

// MapExtent returns the configured heat map extent, or nil.
func (c Config) MapExtent() *geom.Bounds {
	e := c.Output.Extent
	if len(e) != 4 {
		return nil
	}
	return &geom.Bounds{Min: geom.Point{X: e[0], Y: e[1]}, Max: geom.Point{X: e[2], Y: e[3]}}
}

// DatabasePath resolves Output.Database against Output.Dir.
func (c Config) DatabasePath() string {
	if filepath.IsAbs(c.Output.Database) {
		return c.Output.Database
	}
	return filepath.Join(c.Output.Dir, c.Output.Database)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.Simulation.SampleEvery <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampling, c.Simulation.SampleEvery)
	}
	if c.Output.Video && (c.Output.Width <= 0 || c.Output.Height <= 0 || c.Output.FPS <= 0) {
		return fmt.Errorf("%w: %dx%d at %d fps", ErrInvalidFrame, c.Output.Width, c.Output.Height, c.Output.FPS)
	}
	if e := c.Output.Extent; len(e) > 0 {
		if len(e) != 4 || !(e[0] < e[2]) || !(e[1] < e[3]) {
			return fmt.Errorf("%w: %v", ErrInvalidExtent, e)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}
