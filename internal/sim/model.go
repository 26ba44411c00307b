package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/ctessum/geom"

	"github.com/geocovid/geocovid/internal/spatial"
)

// Index answers radius queries over the live positions. It is rebuilt after
// every tick and only read while agents act.
type Index interface {
	Rebuild(points map[string]geom.Point) error
	Insert(id string, p geom.Point) error
	Within(center geom.Point, radius float64) []string
}

// Model advances a population one position batch at a time and keeps the
// per-tick metrics.
type Model struct {
	params   Params
	rng      *rand.Rand
	schedule *Scheduler
	index    Index
	logger   *slog.Logger

	observers   []Observer
	sampleEvery int

	metrics        []Row
	seeded         []AgentID
	created        int
	deaths         int
	infectionsStep int
	steps          int
}

// Option configures a Model.
type Option func(*Model)

// WithIndex replaces the default R-tree index.
func WithIndex(idx Index) Option {
	return func(m *Model) { m.index = idx }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithObserver adds an observer notified after every tick.
func WithObserver(o Observer) Option {
	return func(m *Model) { m.observers = append(m.observers, o) }
}

// WithAgentSampling hands agent records to observers every n ticks
// (StepsPerDay gives one snapshot per day). The default is every tick.
func WithAgentSampling(n int) Option {
	return func(m *Model) { m.sampleEvery = n }
}

// New validates params and builds a model with an empty population. The
// random source is seeded once from params.Seed.
func New(params Params, opts ...Option) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	rng := rand.New(rand.NewSource(params.Seed))
	m := &Model{
		params:      params,
		rng:         rng,
		schedule:    NewScheduler(rng),
		index:       spatial.NewTree(),
		logger:      slog.Default(),
		sampleEvery: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sampleEvery <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampling, m.sampleEvery)
	}
	return m, nil
}

// Step runs one tick over batch and returns the metrics row it appended.
// A malformed position aborts the tick before any agent acts. An index or
// observer failure is returned after the tick has been recorded.
func (m *Model) Step(batch Batch) (Row, error) {
	if err := batch.Validate(); err != nil {
		return Row{}, fmt.Errorf("step %d: %w", m.steps, err)
	}
	admitted, err := m.admit(batch)
	if err != nil {
		return Row{}, fmt.Errorf("step %d: %w", m.steps, err)
	}
	if m.schedule.Time() == 0 {
		m.seedCohort()
	}

	m.schedule.Tick(m, batch)

	// Once the agents have acted the tick counts, so Steps and Now agree
	// even when the index or an observer fails.
	if err := m.rebuildIndex(); err != nil {
		row := m.collect()
		m.infectionsStep = 0
		m.steps++
		return row, fmt.Errorf("step %d: %w", row.Tick, err)
	}

	row := m.collect()
	m.logger.Debug("step",
		"tick", row.Tick,
		"admitted", admitted,
		"reported", len(batch),
		"S", row.Susceptible, "I", row.Infected, "R", row.Recovered, "D", row.Dead,
		"new", row.NewInfections,
	)
	err = m.notify(row)
	m.infectionsStep = 0
	m.steps++
	if err != nil {
		return row, fmt.Errorf("step %d: %w", row.Tick, err)
	}
	return row, nil
}

// admit creates agents for ids never seen before.
func (m *Model) admit(batch Batch) (int, error) {
	n := 0
	for _, id := range batch.IDs() {
		if m.schedule.Known(id) {
			continue
		}
		a := NewAgent(id, batch[id])
		if err := m.index.Insert(string(id), a.Position); err != nil {
			return n, fmt.Errorf("admit agent %s: %w", id, err)
		}
		m.schedule.Add(a)
		n++
	}
	m.created += n
	return n, nil
}

// seedCohort infects the initial cohort at tick 0.
func (m *Model) seedCohort() {
	var chosen []AgentID
	if len(m.params.InitialInfectedIDs) > 0 {
		requested := make(map[AgentID]struct{}, len(m.params.InitialInfectedIDs))
		for _, raw := range m.params.InitialInfectedIDs {
			requested[AgentID(raw)] = struct{}{}
		}
		for _, id := range m.schedule.IDs() {
			if _, ok := requested[id]; ok {
				chosen = append(chosen, id)
			}
		}
		m.logger.Info("seeded initial cohort from id list",
			"requested", len(requested),
			"selected", len(chosen),
			"fraction", float64(len(chosen))/float64(len(requested)),
		)
	} else {
		live := m.schedule.IDs()
		k := min(m.params.InitialInfected, len(live))
		for _, i := range m.rng.Perm(len(live))[:k] {
			chosen = append(chosen, live[i])
		}
		m.logger.Info("seeded initial cohort",
			"requested", m.params.InitialInfected,
			"selected", k,
			"population", len(live),
		)
	}

	for _, id := range chosen {
		a, _ := m.schedule.Get(id)
		a.Status = Infected
		a.InfectedAt = 0
	}
	m.seeded = chosen
}

func (m *Model) rebuildIndex() error {
	points := make(map[string]geom.Point, m.schedule.Len())
	for id, a := range m.schedule.agents {
		points[string(id)] = a.Position
	}
	return m.index.Rebuild(points)
}

func (m *Model) collect() Row {
	row := Row{
		Tick:          m.steps,
		Dead:          m.deaths,
		NewInfections: m.infectionsStep,
	}
	for _, a := range m.schedule.agents {
		switch a.Status {
		case Susceptible:
			row.Susceptible++
		case Infected:
			row.Infected++
		case Recovered:
			row.Recovered++
		}
	}
	m.metrics = append(m.metrics, row)
	return row
}

func (m *Model) notify(row Row) error {
	if len(m.observers) == 0 {
		return nil
	}
	var records []AgentRecord
	if row.Tick%m.sampleEvery == 0 {
		records = m.Snapshot()
	}
	for _, o := range m.observers {
		if err := o.Observe(row, records); err != nil {
			return fmt.Errorf("observe tick %d: %w", row.Tick, err)
		}
	}
	return nil
}

// Snapshot returns the current record of every live agent in id order.
func (m *Model) Snapshot() []AgentRecord {
	agents := m.schedule.Agents()
	out := make([]AgentRecord, len(agents))
	for i, a := range agents {
		out[i] = AgentRecord{
			Tick:     m.steps,
			ID:       a.ID,
			Status:   a.Status,
			Position: a.Position,
		}
	}
	return out
}

// Metrics returns a copy of the metrics table.
func (m *Model) Metrics() []Row {
	out := make([]Row, len(m.metrics))
	copy(out, m.metrics)
	return out
}

// Agent returns the live agent with the given id.
func (m *Model) Agent(id AgentID) (*Agent, bool) { return m.schedule.Get(id) }

// Population is the number of live agents.
func (m *Model) Population() int { return m.schedule.Len() }

// Created is the number of agents ever admitted.
func (m *Model) Created() int { return m.created }

// Deaths is the cumulative number of deaths.
func (m *Model) Deaths() int { return m.deaths }

// Steps is the number of completed steps.
func (m *Model) Steps() int { return m.steps }

// Seeded returns the ids infected at tick 0.
func (m *Model) Seeded() []AgentID {
	out := make([]AgentID, len(m.seeded))
	copy(out, m.seeded)
	return out
}

// Params returns the run parameters.
func (m *Model) Params() Params { return m.params }

// Now implements Host.
func (m *Model) Now() int { return m.schedule.Time() }

// Rand implements Host.
func (m *Model) Rand() *rand.Rand { return m.rng }

// Contacts implements Host.
func (m *Model) Contacts(a *Agent) []*Agent {
	ids := m.index.Within(a.Position, m.params.ExposureDistance)
	out := make([]*Agent, 0, len(ids))
	for _, raw := range ids {
		id := AgentID(raw)
		if id == a.ID {
			continue
		}
		if c, ok := m.schedule.Get(id); ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Model) recordDeath(*Agent) { m.deaths++ }

func (m *Model) recordInfection(*Agent) { m.infectionsStep++ }
