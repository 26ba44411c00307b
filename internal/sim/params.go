package sim

import (
	"fmt"
	"math"
)

// StepsPerDay is the number of ticks in one day; one tick is one hour of pings.
const StepsPerDay = 24

// Default parameter values.
const (
	DefaultInfectionProb    = 0.0005
	DefaultDeathProb        = 0.005
	DefaultTreatmentPeriod  = 10 * StepsPerDay
	DefaultMinDeathPeriod   = 7 * StepsPerDay
	DefaultExposureDistance = 0.0001 // degrees, roughly 11 m at the equator
	DefaultInitialInfected  = 100
	DefaultSeed             = 42
)

// Params are the disease constants of a run. They are fixed at construction.
type Params struct {
	// InfectionProb is the chance that one infected agent infects one
	// susceptible neighbor during one tick.
	InfectionProb float64 `json:"infection_prob"`
	// DeathProb is the per-tick chance of death once an infection is older
	// than MinDeathPeriod.
	DeathProb float64 `json:"death_prob"`
	// TreatmentPeriod is the number of ticks after infection at which an
	// agent recovers.
	TreatmentPeriod int `json:"treatment_period"`
	// MinDeathPeriod is the number of ticks after infection before death
	// draws start.
	MinDeathPeriod int `json:"min_death_period"`
	// ExposureDistance is the contact radius in position units.
	ExposureDistance float64 `json:"exposure_distance"`
	// InitialInfected is the size of the cohort infected on the first tick.
	InitialInfected int `json:"initial_infected"`
	// InitialInfectedIDs names the cohort explicitly instead.
	InitialInfectedIDs []string `json:"initial_infected_ids,omitempty"`
	// Seed drives every random draw of the run.
	Seed int64 `json:"seed"`
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		InfectionProb:    DefaultInfectionProb,
		DeathProb:        DefaultDeathProb,
		TreatmentPeriod:  DefaultTreatmentPeriod,
		MinDeathPeriod:   DefaultMinDeathPeriod,
		ExposureDistance: DefaultExposureDistance,
		InitialInfected:  DefaultInitialInfected,
		Seed:             DefaultSeed,
	}
}

// Validate checks that the parameters describe a runnable model.
func (p Params) Validate() error {
	if !validProb(p.InfectionProb) {
		return fmt.Errorf("%w: infection probability %v", ErrInvalidProbability, p.InfectionProb)
	}
	if !validProb(p.DeathProb) {
		return fmt.Errorf("%w: death probability %v", ErrInvalidProbability, p.DeathProb)
	}
	if p.TreatmentPeriod < 0 {
		return fmt.Errorf("%w: treatment period %d", ErrNegativePeriod, p.TreatmentPeriod)
	}
	if p.MinDeathPeriod < 0 {
		return fmt.Errorf("%w: minimum death period %d", ErrNegativePeriod, p.MinDeathPeriod)
	}
	if math.IsNaN(p.ExposureDistance) || math.IsInf(p.ExposureDistance, 0) || p.ExposureDistance < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidExposure, p.ExposureDistance)
	}
	if p.InitialInfected < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeCohort, p.InitialInfected)
	}
	if p.InitialInfected > 0 && len(p.InitialInfectedIDs) > 0 {
		return ErrAmbiguousCohort
	}
	return nil
}

func validProb(p float64) bool { return p >= 0.0 && p <= 1.0 }
