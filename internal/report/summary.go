package report

import (
	"gonum.org/v1/gonum/floats"

	"github.com/geocovid/geocovid/internal/sim"
)

// Summary condenses a run's metrics.
type Summary struct {
	Ticks        int
	Final        sim.Row
	PeakInfected int
	PeakTick     int
	Deaths       int
	// Infections counts every agent ever infected, the initial cohort included.
	Infections int
	// AttackRate is Infections over the number of agents ever admitted.
	AttackRate float64
}

// Summarize computes the summary of rows. created is the number of agents ever
// admitted and seeded the size of the initial cohort.
func Summarize(rows []sim.Row, created, seeded int) (Summary, error) {
	if len(rows) == 0 {
		return Summary{}, ErrNoRows
	}
	infected := make([]float64, len(rows))
	fresh := make([]float64, len(rows))
	for i, r := range rows {
		infected[i] = float64(r.Infected)
		fresh[i] = float64(r.NewInfections)
	}
	peak := floats.MaxIdx(infected)
	last := rows[len(rows)-1]

	s := Summary{
		Ticks:        len(rows),
		Final:        last,
		PeakInfected: rows[peak].Infected,
		PeakTick:     rows[peak].Tick,
		Deaths:       last.Dead,
		Infections:   seeded + int(floats.Sum(fresh)),
	}
	if created > 0 {
		s.AttackRate = float64(s.Infections) / float64(created)
	}
	return s, nil
}
