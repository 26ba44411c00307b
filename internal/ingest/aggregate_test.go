package ingest

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocovid/geocovid/internal/sim"
	"github.com/geocovid/geocovid/internal/spatial"
)

func at(h, m int) time.Time {
	return time.Date(2020, 4, 3, h, m, 0, 0, time.UTC)
}

func TestAggregate_CentroidPerHour(t *testing.T) {
	pings := []Ping{
		{ID: "b", Time: at(11, 5), Lat: 4, Lon: 2},
		{ID: "a", Time: at(10, 0), Lat: 0, Lon: 0},
		{ID: "a", Time: at(10, 59), Lat: 2, Lon: 4},
		{ID: "a", Time: at(11, 30), Lat: 1, Lon: 1},
	}
	frames, err := Aggregate(pings, nil)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, at(10, 0), frames[0].Hour)
	assert.Equal(t, sim.Batch{"a": {X: 2, Y: 1}}, frames[0].Batch)
	assert.Equal(t, 2, frames[0].Pings)

	assert.Equal(t, at(11, 0), frames[1].Hour)
	assert.Equal(t, sim.Batch{"a": {X: 1, Y: 1}, "b": {X: 2, Y: 4}}, frames[1].Batch)
	assert.Equal(t, 2, frames[1].Pings)
}

func TestAggregate_SeparatesDays(t *testing.T) {
	pings := []Ping{
		{ID: "a", Time: at(10, 0)},
		{ID: "a", Time: at(10, 0).Add(24 * time.Hour)},
	}
	frames, err := Aggregate(pings, nil)
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestAggregate_Projected(t *testing.T) {
	proj, err := spatial.NewProjector(spatial.WebMercator)
	require.NoError(t, err)

	frames, err := Aggregate([]Ping{{ID: "a", Time: at(0, 0), Lat: 0, Lon: 1}}, proj)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	p := frames[0].Batch["a"]
	assert.InDelta(t, 111319.49, p.X, 1)
	assert.InDelta(t, 0, p.Y, 1e-6)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	data := "id,timestamp,latitude,longitude\n" +
		"a,1585908000,1,1\n" +
		"b,1585908000,3,3\n" +
		"c,bad,3,3\n" +
		"a,1585911600,2,2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.csv"), []byte(data), 0o644))
	paths, err := Discover(dir)
	require.NoError(t, err)

	frames, stats, err := Load(paths, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: 4, Dropped: 1}, stats)
	require.Len(t, frames, 2)
	assert.Equal(t, sim.Batch{"a": geom.Point{X: 1, Y: 1}, "b": geom.Point{X: 3, Y: 3}}, frames[0].Batch)
	assert.Equal(t, sim.Batch{"a": geom.Point{X: 2, Y: 2}}, frames[1].Batch)

	_, _, err = Load(nil, nil, slog.Default())
	require.ErrorIs(t, err, ErrNoInput)
}
