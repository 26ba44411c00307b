package report

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocovid/geocovid/internal/sim"
)

func sampleRows() []sim.Row {
	return []sim.Row{
		{Tick: 0, Susceptible: 8, Infected: 2, NewInfections: 1},
		{Tick: 1, Susceptible: 5, Infected: 5, NewInfections: 3},
		{Tick: 2, Susceptible: 4, Infected: 4, Recovered: 1, Dead: 1, NewInfections: 1},
		{Tick: 3, Susceptible: 4, Infected: 1, Recovered: 4, Dead: 1},
	}
}

func sampleRecords() []sim.AgentRecord {
	return []sim.AgentRecord{
		{Tick: 0, ID: "a", Status: sim.Infected, Position: geom.Point{X: -56.16, Y: -34.9}},
		{Tick: 0, ID: "b", Status: sim.Susceptible, Position: geom.Point{X: -56.17, Y: -34.8}},
		{Tick: 24, ID: "a", Status: sim.Recovered, Position: geom.Point{X: -56.15, Y: -34.9}},
	}
}

func TestMetricsCSV(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewMetricsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, "tick,S,I,R,D,new_infections\n", buf.String())

	for _, row := range sampleRows()[:2] {
		require.NoError(t, m.Observe(row, nil))
	}
	assert.Equal(t, "tick,S,I,R,D,new_infections\n0,8,2,0,0,1\n1,5,5,0,0,3\n", buf.String())
}

func TestAgentLog_KeepsSampledTicksOnly(t *testing.T) {
	var l AgentLog
	recs := sampleRecords()
	require.NoError(t, l.Observe(sim.Row{Tick: 0}, recs[:2]))
	require.NoError(t, l.Observe(sim.Row{Tick: 1}, nil))
	require.NoError(t, l.Observe(sim.Row{Tick: 24}, recs[2:]))

	assert.Equal(t, 2, l.Ticks())
	assert.Equal(t, recs, l.Records())
}

func TestAgentsJSON_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAgentsJSON(&buf, sampleRecords()))
	assert.Contains(t, buf.String(), `"primaryKey":["Step","AgentID"]`)
	assert.Contains(t, buf.String(), `{"Step":0,"AgentID":"a","Status":-1,"lon":-56.16,"lat":-34.9}`)

	got, err := ReadAgentsJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestWriteMetricsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMetricsJSON(&buf, sampleRows()[:1]))
	assert.Contains(t, buf.String(), `"data":[{"tick":0,"S":8,"I":2,"R":0,"D":0,"new_infections":1}]`)

	buf.Reset()
	require.NoError(t, WriteMetricsJSON(&buf, nil))
	assert.Contains(t, buf.String(), `"data":[]`)
}

func TestExportJSONAndLatest(t *testing.T) {
	dir := t.TempDir()
	older := time.Date(2020, 4, 3, 9, 5, 0, 0, time.UTC)
	newer := time.Date(2020, 4, 3, 21, 5, 0, 0, time.UTC)

	_, _, err := ExportJSON(dir, older, sampleRows(), nil)
	require.NoError(t, err)
	model, agents, err := ExportJSON(dir, newer, sampleRows(), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "results_model_2020_04_03-21_05.json"), model)
	assert.Equal(t, filepath.Join(dir, "results_agents_2020_04_03-21_05.json"), agents)

	latest, err := Latest(dir, KindAgents)
	require.NoError(t, err)
	assert.Equal(t, agents, latest)

	f, err := os.Open(latest)
	require.NoError(t, err)
	defer f.Close()
	got, err := ReadAgentsJSON(f)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = Latest(t.TempDir(), KindAgents)
	require.ErrorIs(t, err, ErrNoResults)
}

func TestRenderCurves(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCurves(&buf, sampleRows(), 640, 320))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 320, img.Bounds().Dy())

	require.ErrorIs(t, RenderCurves(&buf, nil, 640, 320), ErrNoRows)
}

func TestRenderCurvesLength(t *testing.T) {
	for _, n := range []int{1, 2, 24, 25, 240} {
		t.Run(fmt.Sprintf("%d rows", n), func(t *testing.T) {
			rows := make([]sim.Row, n)
			for i := range rows {
				rows[i] = sim.Row{Tick: i, Susceptible: n - i, Infected: i}
			}
			var buf bytes.Buffer
			require.NoError(t, RenderCurves(&buf, rows, 1024, 400))
		})
	}
}

func TestDayTicksSpan(t *testing.T) {
	cases := []struct {
		max   float64
		first string
		last  float64
	}{
		{0, "0h", 1},
		{3, "0h", 3},
		{23, "0h", 23},
		{24, "0", 24},
		{30, "0", 30},
		{239, "0", 239},
	}
	for _, c := range cases {
		ticks := dayTicks(c.max)
		require.GreaterOrEqual(t, len(ticks), 2, "max %v", c.max)
		assert.Equal(t, c.first, ticks[0].Label, "max %v", c.max)
		assert.Equal(t, c.last, ticks[len(ticks)-1].Value, "max %v", c.max)
	}
}

func TestRenderDeaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deaths.png")
	require.NoError(t, RenderDeaths(path, sampleRows()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	require.NoError(t, err)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(sampleRows(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Ticks)
	assert.Equal(t, 5, s.PeakInfected)
	assert.Equal(t, 1, s.PeakTick)
	assert.Equal(t, 1, s.Deaths)
	assert.Equal(t, 6, s.Infections)
	assert.InDelta(t, 0.6, s.AttackRate, 1e-12)
	assert.Equal(t, sampleRows()[3], s.Final)

	_, err = Summarize(nil, 0, 0)
	require.ErrorIs(t, err, ErrNoRows)
}

func TestDayTicks(t *testing.T) {
	ticks := dayTicks(72)
	labels := make([]string, len(ticks))
	for i, tk := range ticks {
		labels[i] = tk.Label
	}
	assert.Equal(t, "0,1,2,3", strings.Join(labels, ","))
}
