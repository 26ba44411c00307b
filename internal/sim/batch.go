package sim

import (
	"fmt"
	"sort"

	"github.com/ctessum/geom"

	"github.com/geocovid/geocovid/internal/spatial"
)

// Batch holds the reported position of each agent seen during one tick.
// Agents missing from a batch simply did not report.
type Batch map[AgentID]geom.Point

// Lookup returns the position reported for id, if any.
func (b Batch) Lookup(id AgentID) (geom.Point, bool) {
	p, ok := b[id]
	return p, ok
}

// IDs returns the agent ids of the batch in ascending order.
func (b Batch) IDs() []AgentID {
	ids := make([]AgentID, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate reports the first malformed position in the batch.
func (b Batch) Validate() error {
	for _, id := range b.IDs() {
		if err := spatial.Validate(b[id]); err != nil {
			return fmt.Errorf("agent %s: %w", id, err)
		}
	}
	return nil
}
