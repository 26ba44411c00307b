// Package store persists runs, their metrics and sampled agent states in
// SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ctessum/geom"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/geocovid/geocovid/internal/sim"
)

var ErrRunNotFound = errors.New("run not found")

// timeLayout has a fixed width so started_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// a single writer keeps per-tick transactions ordered
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		params_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metrics (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		susceptible INTEGER NOT NULL,
		infected INTEGER NOT NULL,
		recovered INTEGER NOT NULL,
		dead INTEGER NOT NULL,
		new_infections INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS agent_states (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		agent_id TEXT NOT NULL,
		status INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		PRIMARY KEY (run_id, tick, agent_id)
	);

	CREATE INDEX IF NOT EXISTS idx_agent_states_status ON agent_states(run_id, tick, status);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one stored simulation run.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
	Params    sim.Params
}

// CreateRun records a new run and returns it.
func (db *DB) CreateRun(params sim.Params, started time.Time) (Run, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Run{}, fmt.Errorf("encode params: %w", err)
	}
	run := Run{ID: uuid.New(), StartedAt: started.UTC(), Params: params}
	_, err = db.conn.Exec(
		`INSERT INTO runs (id, started_at, params_json) VALUES (?, ?, ?)`,
		run.ID.String(), run.StartedAt.Format(timeLayout), string(raw),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

type runRow struct {
	ID         string `db:"id"`
	StartedAt  string `db:"started_at"`
	ParamsJSON string `db:"params_json"`
}

func (r runRow) decode() (Run, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return Run{}, fmt.Errorf("run id %q: %w", r.ID, err)
	}
	started, err := time.Parse(timeLayout, r.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s started_at: %w", r.ID, err)
	}
	run := Run{ID: id, StartedAt: started}
	if err := json.Unmarshal([]byte(r.ParamsJSON), &run.Params); err != nil {
		return Run{}, fmt.Errorf("run %s params: %w", r.ID, err)
	}
	return run, nil
}

// Runs lists every run, newest first.
func (db *DB) Runs() ([]Run, error) {
	var rows []runRow
	if err := db.conn.Select(&rows, `SELECT id, started_at, params_json FROM runs ORDER BY started_at DESC, id`); err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		run, err := r.decode()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// LatestRun returns the most recently started run.
func (db *DB) LatestRun() (Run, error) {
	var r runRow
	err := db.conn.Get(&r, `SELECT id, started_at, params_json FROM runs ORDER BY started_at DESC, id LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	} else if err != nil {
		return Run{}, fmt.Errorf("select latest run: %w", err)
	}
	return r.decode()
}

type metricsRow struct {
	Tick          int `db:"tick"`
	Susceptible   int `db:"susceptible"`
	Infected      int `db:"infected"`
	Recovered     int `db:"recovered"`
	Dead          int `db:"dead"`
	NewInfections int `db:"new_infections"`
}

// Metrics returns the metrics rows of a run in tick order.
func (db *DB) Metrics(runID uuid.UUID) ([]sim.Row, error) {
	var rows []metricsRow
	err := db.conn.Select(&rows, `
		SELECT tick, susceptible, infected, recovered, dead, new_infections
		FROM metrics WHERE run_id = ? ORDER BY tick`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("select metrics: %w", err)
	}
	out := make([]sim.Row, len(rows))
	for i, r := range rows {
		out[i] = sim.Row(r)
	}
	return out, nil
}

type agentStateRow struct {
	Tick    int     `db:"tick"`
	AgentID string  `db:"agent_id"`
	Status  int     `db:"status"`
	X       float64 `db:"x"`
	Y       float64 `db:"y"`
}

// AgentStates returns the sampled agent records of a run ordered by tick then
// agent id.
func (db *DB) AgentStates(runID uuid.UUID) ([]sim.AgentRecord, error) {
	var rows []agentStateRow
	err := db.conn.Select(&rows, `
		SELECT tick, agent_id, status, x, y
		FROM agent_states WHERE run_id = ? ORDER BY tick, agent_id`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("select agent states: %w", err)
	}
	out := make([]sim.AgentRecord, len(rows))
	for i, r := range rows {
		out[i] = sim.AgentRecord{
			Tick:     r.Tick,
			ID:       sim.AgentID(r.AgentID),
			Status:   sim.Status(r.Status),
			Position: geom.Point{X: r.X, Y: r.Y},
		}
	}
	return out, nil
}

// Recorder is an observer that writes each tick of a run in one transaction.
type Recorder struct {
	db  *DB
	run uuid.UUID
}

// Recorder returns an observer storing ticks under run.
func (db *DB) Recorder(run uuid.UUID) *Recorder {
	return &Recorder{db: db, run: run}
}

func (r *Recorder) Observe(row sim.Row, agents []sim.AgentRecord) error {
	tx, err := r.db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin tick %d: %w", row.Tick, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO metrics
		(run_id, tick, susceptible, infected, recovered, dead, new_infections)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.run.String(), row.Tick, row.Susceptible, row.Infected, row.Recovered, row.Dead, row.NewInfections)
	if err != nil {
		return fmt.Errorf("insert metrics tick %d: %w", row.Tick, err)
	}

	if len(agents) > 0 {
		stmt, err := tx.Preparex(`INSERT INTO agent_states
			(run_id, tick, agent_id, status, x, y) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare agent states: %w", err)
		}
		defer stmt.Close()
		for _, a := range agents {
			if _, err := stmt.Exec(r.run.String(), a.Tick, string(a.ID), int(a.Status), a.Position.X, a.Position.Y); err != nil {
				return fmt.Errorf("insert agent %s tick %d: %w", a.ID, a.Tick, err)
			}
		}
	}
	return tx.Commit()
}
