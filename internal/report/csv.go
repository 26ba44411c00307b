// Package report records simulation output: per-tick CSV, sampled agent
// states, JSON exports, charts and a run summary.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/geocovid/geocovid/internal/sim"
)

var metricsHeader = []string{"tick", "S", "I", "R", "D", "new_infections"}

// MetricsCSV writes one CSV line per tick and flushes after each line, so a
// run that is interrupted still leaves every completed tick on disk.
type MetricsCSV struct {
	w *csv.Writer
}

// NewMetricsCSV writes the header to w.
func NewMetricsCSV(w io.Writer) (*MetricsCSV, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(metricsHeader); err != nil {
		return nil, fmt.Errorf("write metrics header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("write metrics header: %w", err)
	}
	return &MetricsCSV{w: cw}, nil
}

func (m *MetricsCSV) Observe(row sim.Row, _ []sim.AgentRecord) error {
	record := []string{
		strconv.Itoa(row.Tick),
		strconv.Itoa(row.Susceptible),
		strconv.Itoa(row.Infected),
		strconv.Itoa(row.Recovered),
		strconv.Itoa(row.Dead),
		strconv.Itoa(row.NewInfections),
	}
	if err := m.w.Write(record); err != nil {
		return fmt.Errorf("write metrics tick %d: %w", row.Tick, err)
	}
	m.w.Flush()
	return m.w.Error()
}

// AgentLog keeps the agent records of every sampled tick in memory.
type AgentLog struct {
	records []sim.AgentRecord
	ticks   int
}

func (l *AgentLog) Observe(_ sim.Row, agents []sim.AgentRecord) error {
	if agents == nil {
		return nil
	}
	l.records = append(l.records, agents...)
	l.ticks++
	return nil
}

// Records returns every collected record ordered by tick then id.
func (l *AgentLog) Records() []sim.AgentRecord { return l.records }

// Ticks is the number of sampled ticks collected.
func (l *AgentLog) Ticks() int { return l.ticks }
