package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/geocovid/geocovid/internal/sim"
)

// Period is a duration in simulation ticks. In files and flags it is written
// either as a bare tick count ("240"), in hours ("36h", one tick per hour) or
// in days ("10d").
type Period int

// ParsePeriod parses the textual period forms.
func ParsePeriod(in string) (Period, error) {
	s := strings.TrimSpace(strings.ToLower(in))
	unit := 1.0
	switch {
	case strings.HasSuffix(s, "d"):
		unit = sim.StepsPerDay
		s = strings.TrimSuffix(s, "d")
	case strings.HasSuffix(s, "h"):
		s = strings.TrimSuffix(s, "h")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, in)
	}
	ticks := v * unit
	if ticks != float64(int(ticks)) {
		return 0, fmt.Errorf("%w: %q is not a whole number of ticks", ErrInvalidPeriod, in)
	}
	return Period(ticks), nil
}

// Ticks returns the period in ticks.
func (p Period) Ticks() int { return int(p) }

// String renders whole days as "Nd" and anything else as a tick count.
func (p Period) String() string {
	if p > 0 && int(p)%sim.StepsPerDay == 0 {
		return fmt.Sprintf("%dd", int(p)/sim.StepsPerDay)
	}
	return strconv.Itoa(int(p))
}

// Set implements pflag.Value.
func (p *Period) Set(s string) error {
	v, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Type implements pflag.Value.
func (p *Period) Type() string { return "period" }

func (p *Period) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar", ErrInvalidPeriod, node.Line)
	}
	return p.Set(node.Value)
}

func (p Period) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}
