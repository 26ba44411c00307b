package ingest

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ctessum/geom"

	"github.com/geocovid/geocovid/internal/sim"
	"github.com/geocovid/geocovid/internal/spatial"
)

// Frame is the input of one simulation tick: the position of every device that
// reported during one UTC hour.
type Frame struct {
	Hour  time.Time
	Batch sim.Batch
	// Pings is the number of raw pings folded into Batch.
	Pings int
}

// Aggregate groups pings by UTC hour and device and places each device at the
// centroid of its pings for that hour. With a non-nil projector pings are
// projected before averaging. Frames are returned in hour order; hours with no
// pings produce no frame.
func Aggregate(pings []Ping, projector *spatial.Projector) ([]Frame, error) {
	type acc struct {
		sum geom.Point
		n   int
	}
	hours := map[time.Time]map[string]*acc{}
	for _, p := range pings {
		pt := geom.Point{X: p.Lon, Y: p.Lat}
		if projector != nil {
			var err error
			if pt, err = projector.Project(pt); err != nil {
				return nil, fmt.Errorf("project ping of %s: %w", p.ID, err)
			}
		}
		h := p.Time.UTC().Truncate(time.Hour)
		devices, ok := hours[h]
		if !ok {
			devices = map[string]*acc{}
			hours[h] = devices
		}
		a, ok := devices[p.ID]
		if !ok {
			a = &acc{}
			devices[p.ID] = a
		}
		a.sum.X += pt.X
		a.sum.Y += pt.Y
		a.n++
	}

	frames := make([]Frame, 0, len(hours))
	for h, devices := range hours {
		f := Frame{Hour: h, Batch: make(sim.Batch, len(devices))}
		for id, a := range devices {
			f.Batch[sim.AgentID(id)] = geom.Point{X: a.sum.X / float64(a.n), Y: a.sum.Y / float64(a.n)}
			f.Pings += a.n
		}
		frames = append(frames, f)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Hour.Before(frames[j].Hour) })
	return frames, nil
}

// Load reads every path in order and aggregates all pings into hourly frames.
func Load(paths []string, projector *spatial.Projector, logger *slog.Logger) ([]Frame, Stats, error) {
	if len(paths) == 0 {
		return nil, Stats{}, ErrNoInput
	}
	var (
		all   []Ping
		total Stats
	)
	for _, path := range paths {
		pings, stats, err := ReadFile(path)
		total.add(stats)
		if err != nil {
			return nil, total, err
		}
		logger.Info("read input", "file", path, "rows", stats.Rows, "dropped", stats.Dropped)
		all = append(all, pings...)
	}
	frames, err := Aggregate(all, projector)
	if err != nil {
		return nil, total, err
	}
	if total.Dropped > 0 {
		logger.Warn("dropped malformed rows", "dropped", total.Dropped, "rows", total.Rows)
	}
	logger.Info("aggregated pings", "pings", len(all), "hours", len(frames))
	return frames, total, nil
}
