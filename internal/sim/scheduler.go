package sim

import (
	"math/rand"
	"sort"
)

// Scheduler owns the live agents and activates them once per tick in random
// order.
type Scheduler struct {
	rng     *rand.Rand
	agents  map[AgentID]*Agent
	retired map[AgentID]struct{}
	time    int
}

// NewScheduler returns an empty scheduler drawing its orderings from rng.
func NewScheduler(rng *rand.Rand) *Scheduler {
	return &Scheduler{
		rng:     rng,
		agents:  make(map[AgentID]*Agent),
		retired: make(map[AgentID]struct{}),
	}
}

// Add registers a. It returns false when the id is already live or has died.
func (s *Scheduler) Add(a *Agent) bool {
	if s.Known(a.ID) {
		return false
	}
	s.agents[a.ID] = a
	return true
}

// Remove takes id out of the live registry for good.
func (s *Scheduler) Remove(id AgentID) {
	if _, ok := s.agents[id]; !ok {
		return
	}
	delete(s.agents, id)
	s.retired[id] = struct{}{}
}

// Get returns the live agent with the given id.
func (s *Scheduler) Get(id AgentID) (*Agent, bool) {
	a, ok := s.agents[id]
	return a, ok
}

// Has reports whether id is live.
func (s *Scheduler) Has(id AgentID) bool {
	_, ok := s.agents[id]
	return ok
}

// Known reports whether id is live or has died.
func (s *Scheduler) Known(id AgentID) bool {
	if s.Has(id) {
		return true
	}
	_, ok := s.retired[id]
	return ok
}

// Len is the number of live agents.
func (s *Scheduler) Len() int {
	return len(s.agents)
}

// Time is the number of completed ticks.
func (s *Scheduler) Time() int {
	return s.time
}

// IDs returns the live ids in ascending order.
func (s *Scheduler) IDs() []AgentID {
	ids := make([]AgentID, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Agents returns the live agents in ascending id order.
func (s *Scheduler) Agents() []*Agent {
	ids := s.IDs()
	out := make([]*Agent, len(ids))
	for i, id := range ids {
		out[i] = s.agents[id]
	}
	return out
}

// Tick advances every live agent once. The id set is captured before the
// first agent acts and shuffled; an id that leaves the registry before its
// turn is skipped. Positions come from batch; a missing entry leaves the
// agent where it is.
func (s *Scheduler) Tick(h Host, batch Batch) {
	// Start from a sorted snapshot so the shuffle alone decides the order.
	order := s.IDs()
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	for _, id := range order {
		a, ok := s.agents[id]
		if !ok {
			continue
		}
		pos, reported := batch.Lookup(id)
		if a.Advance(h, pos, reported) {
			s.Remove(id)
		}
	}
	s.time++
}
