package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ctessum/geom"

	"github.com/geocovid/geocovid/internal/sim"
)

// Export kinds, used in result file names.
const (
	KindModel  = "model"
	KindAgents = "agents"
)

const stampLayout = "2006_01_02-15_04"

// FileName returns results_<kind>_<stamp>.json for a run finished at t.
func FileName(kind string, t time.Time) string {
	return fmt.Sprintf("results_%s_%s.json", kind, t.Format(stampLayout))
}

// Latest returns the newest results file of kind in dir. Stamps sort
// chronologically so the last name wins.
func Latest(dir, kind string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("results_%s_*.json", kind)))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no %s results in %s", ErrNoResults, kind, dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// The exports use a table layout: a schema listing the fields and the
// primary key, followed by one object per row.
type field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type schema struct {
	Fields     []field  `json:"fields"`
	PrimaryKey []string `json:"primaryKey"`
}

type metricsTable struct {
	Schema schema    `json:"schema"`
	Data   []sim.Row `json:"data"`
}

type agentRow struct {
	Step    int         `json:"Step"`
	AgentID sim.AgentID `json:"AgentID"`
	Status  sim.Status  `json:"Status"`
	Lon     float64     `json:"lon"`
	Lat     float64     `json:"lat"`
}

type agentsTable struct {
	Schema schema     `json:"schema"`
	Data   []agentRow `json:"data"`
}

var metricsSchema = schema{
	Fields: []field{
		{"tick", "integer"},
		{"S", "integer"},
		{"I", "integer"},
		{"R", "integer"},
		{"D", "integer"},
		{"new_infections", "integer"},
	},
	PrimaryKey: []string{"tick"},
}

var agentsSchema = schema{
	Fields: []field{
		{"Step", "integer"},
		{"AgentID", "string"},
		{"Status", "integer"},
		{"lon", "number"},
		{"lat", "number"},
	},
	PrimaryKey: []string{"Step", "AgentID"},
}

// WriteMetricsJSON writes the metrics table.
func WriteMetricsJSON(w io.Writer, rows []sim.Row) error {
	if rows == nil {
		rows = []sim.Row{}
	}
	return json.NewEncoder(w).Encode(metricsTable{Schema: metricsSchema, Data: rows})
}

// WriteAgentsJSON writes sampled agent records keyed by (Step, AgentID).
func WriteAgentsJSON(w io.Writer, records []sim.AgentRecord) error {
	data := make([]agentRow, len(records))
	for i, r := range records {
		data[i] = agentRow{
			Step:    r.Tick,
			AgentID: r.ID,
			Status:  r.Status,
			Lon:     r.Position.X,
			Lat:     r.Position.Y,
		}
	}
	return json.NewEncoder(w).Encode(agentsTable{Schema: agentsSchema, Data: data})
}

// ReadAgentsJSON reads a file written by WriteAgentsJSON.
func ReadAgentsJSON(r io.Reader) ([]sim.AgentRecord, error) {
	var t agentsTable
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode agents: %w", err)
	}
	out := make([]sim.AgentRecord, len(t.Data))
	for i, d := range t.Data {
		out[i] = sim.AgentRecord{
			Tick:     d.Step,
			ID:       d.AgentID,
			Status:   d.Status,
			Position: geom.Point{X: d.Lon, Y: d.Lat},
		}
	}
	return out, nil
}

// ExportJSON writes both result files into dir and returns their paths.
func ExportJSON(dir string, finished time.Time, rows []sim.Row, records []sim.AgentRecord) (model, agents string, err error) {
	model = filepath.Join(dir, FileName(KindModel, finished))
	if err = writeFile(model, func(w io.Writer) error { return WriteMetricsJSON(w, rows) }); err != nil {
		return "", "", err
	}
	agents = filepath.Join(dir, FileName(KindAgents, finished))
	if err = writeFile(agents, func(w io.Writer) error { return WriteAgentsJSON(w, records) }); err != nil {
		return "", "", err
	}
	return model, agents, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
