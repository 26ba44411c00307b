package sim

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AddRemove(t *testing.T) {
	s := NewScheduler(rand.New(rand.NewSource(1)))

	require.True(t, s.Add(NewAgent("b", geom.Point{})))
	require.True(t, s.Add(NewAgent("a", geom.Point{})))
	assert.False(t, s.Add(NewAgent("a", geom.Point{X: 1})), "duplicate id")

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []AgentID{"a", "b"}, s.IDs())

	s.Remove("a")
	assert.False(t, s.Has("a"))
	assert.True(t, s.Known("a"))
	assert.False(t, s.Add(NewAgent("a", geom.Point{})), "dead ids are not reused")

	// removing an unknown id is a no-op
	s.Remove("zzz")
	assert.False(t, s.Known("zzz"))
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_TickMovesAndAdvancesTime(t *testing.T) {
	s := NewScheduler(rand.New(rand.NewSource(1)))
	s.Add(NewAgent("a", geom.Point{X: 0, Y: 0}))
	s.Add(NewAgent("b", geom.Point{X: 1, Y: 1}))
	h := newStubHost(testParams())

	s.Tick(h, Batch{"a": {X: 5, Y: 5}})

	a, _ := s.Get("a")
	b, _ := s.Get("b")
	assert.Equal(t, geom.Point{X: 5, Y: 5}, a.Position)
	assert.Equal(t, geom.Point{X: 1, Y: 1}, b.Position, "missing batch entry keeps position")
	assert.Equal(t, 1, s.Time())
	assert.Equal(t, 2, s.Len())
}

func TestScheduler_TickRemovesDeadAgents(t *testing.T) {
	s := NewScheduler(rand.New(rand.NewSource(1)))
	s.Add(&Agent{ID: "sick", Status: Infected})
	s.Add(NewAgent("well", geom.Point{}))

	p := testParams()
	p.DeathProb = 1
	p.MinDeathPeriod = 0
	h := newStubHost(p)

	s.Tick(h, nil)

	assert.False(t, s.Has("sick"))
	assert.True(t, s.Has("well"))
	assert.Equal(t, 1, h.deaths)
}

// activationOrder returns the order in which infected agents queried contacts.
func activationOrder(seed int64, n int) []AgentID {
	s := NewScheduler(rand.New(rand.NewSource(seed)))
	for i := 0; i < n; i++ {
		s.Add(&Agent{ID: AgentID(fmt.Sprintf("agent-%03d", i)), Status: Infected})
	}
	p := testParams()
	p.TreatmentPeriod = 1000
	p.MinDeathPeriod = 1000
	h := newStubHost(p)
	s.Tick(h, nil)
	return h.asked
}

func TestScheduler_ShuffledOrderIsReproducible(t *testing.T) {
	first := activationOrder(7, 50)
	again := activationOrder(7, 50)
	other := activationOrder(8, 50)

	require.Len(t, first, 50)
	assert.Equal(t, first, again)
	assert.ElementsMatch(t, first, other)
	assert.NotEqual(t, first, other)

	sorted := make([]AgentID, 50)
	for i := range sorted {
		sorted[i] = AgentID(fmt.Sprintf("agent-%03d", i))
	}
	assert.NotEqual(t, sorted, first, "order should not be the registry order")
}
