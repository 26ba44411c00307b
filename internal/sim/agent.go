// Package sim is the agent state machine, the proximity infection rule and the
// scheduler that advances a geolocated population one tick at a time.
package sim

import (
	"math/rand"

	"github.com/ctessum/geom"
)

// AgentID identifies a device across the whole run.
type AgentID string

// Status is the disease state of an agent. The numeric values match the
// exported results of earlier runs.
type Status int

const (
	Susceptible Status = 0
	Infected    Status = -1
	Recovered   Status = 1
	Dead        Status = -2
)

func (s Status) String() string {
	switch s {
	case Susceptible:
		return "susceptible"
	case Infected:
		return "infected"
	case Recovered:
		return "recovered"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// Host is what an agent sees of the simulation while it acts.
type Host interface {
	// Now is the current scheduler tick.
	Now() int
	// Rand is the run's only random source.
	Rand() *rand.Rand
	Params() Params
	// Contacts returns the live agents within exposure distance of a,
	// excluding a, in ascending id order.
	Contacts(a *Agent) []*Agent

	recordDeath(a *Agent)
	recordInfection(a *Agent)
}

// Agent is one tracked device.
type Agent struct {
	ID         AgentID
	Status     Status
	Position   geom.Point
	InfectedAt int
}

// NewAgent returns a susceptible agent at pos.
func NewAgent(id AgentID, pos geom.Point) *Agent {
	return &Agent{ID: id, Status: Susceptible, Position: pos}
}

// Advance runs one tick of the agent: disease progression, then infection of
// neighbors, then movement to pos when reported is true. It returns true when
// the agent died and must leave the live registry.
func (a *Agent) Advance(h Host, pos geom.Point, reported bool) bool {
	if a.check(h) {
		return true
	}
	a.interact(h)
	a.move(pos, reported)
	return false
}

// check progresses an infection. Death is drawn before recovery is considered.
func (a *Agent) check(h Host) bool {
	if a.Status != Infected {
		return false
	}
	p := h.Params()
	elapsed := h.Now() - a.InfectedAt

	if elapsed >= p.MinDeathPeriod && bernoulli(h.Rand(), p.DeathProb) {
		a.Status = Dead
		h.recordDeath(a)
		return true
	}
	if elapsed >= p.TreatmentPeriod {
		a.Status = Recovered
	}
	return false
}

func (a *Agent) interact(h Host) {
	if a.Status != Infected {
		return
	}
	p := h.Params()
	for _, c := range h.Contacts(a) {
		if c.Status != Susceptible {
			continue
		}
		if bernoulli(h.Rand(), p.InfectionProb) {
			c.Status = Infected
			c.InfectedAt = h.Now()
			h.recordInfection(c)
		}
	}
}

func (a *Agent) move(pos geom.Point, reported bool) {
	if reported {
		a.Position = pos
	}
}

// bernoulli draws true with probability p. p == 0 never fires and p == 1
// always fires.
func bernoulli(rng *rand.Rand, p float64) bool {
	return rng.Float64() < p
}
