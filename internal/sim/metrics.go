package sim

import "github.com/ctessum/geom"

// Row is the aggregate state of the population after one tick.
type Row struct {
	Tick          int `json:"tick"`
	Susceptible   int `json:"S"`
	Infected      int `json:"I"`
	Recovered     int `json:"R"`
	Dead          int `json:"D"`
	NewInfections int `json:"new_infections"`
}

// AgentRecord is the state of one live agent after one tick.
type AgentRecord struct {
	Tick     int
	ID       AgentID
	Status   Status
	Position geom.Point
}

// Observer receives every metrics row. agents is non-nil only on ticks
// selected by the model's agent sampling interval.
type Observer interface {
	Observe(row Row, agents []AgentRecord) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(row Row, agents []AgentRecord) error

func (f ObserverFunc) Observe(row Row, agents []AgentRecord) error {
	return f(row, agents)
}
