package ingest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `latitude,id,longitude,timestamp,extra
-34.90,dev-a,-56.16,1585908000,x
-34.91,dev-b,-56.17,1585908060,x
not-a-number,dev-c,-56.17,1585908060,x
95,dev-d,-56.17,1585908060,x
-34.91,dev-e,-190,1585908060,x
-34.91,,-56.17,1585908060,x
-34.92,dev-a,-56.18,1585911600.5,x
`

func TestReadCSV(t *testing.T) {
	pings, stats, err := ReadCSV(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, Stats{Rows: 7, Dropped: 4}, stats)
	require.Len(t, pings, 3)
	assert.Equal(t, Ping{ID: "dev-a", Time: time.Unix(1585908000, 0).UTC(), Lat: -34.90, Lon: -56.16}, pings[0])
	assert.Equal(t, "dev-b", pings[1].ID)
	assert.Equal(t, time.Unix(1585911600, 5e8).UTC(), pings[2].Time)
}

func TestReadCSV_DropsBadTimestamps(t *testing.T) {
	data := "id,timestamp,latitude,longitude\n" +
		"a,NaN,1,2\n" +
		"b,Inf,1,2\n" +
		"c,-Inf,1,2\n" +
		"d,1e300,1,2\n" +
		"e,-60,1,2\n" +
		"f,1585908000,1,2\n"
	pings, stats, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: 6, Dropped: 5}, stats)
	require.Len(t, pings, 1)
	assert.Equal(t, "f", pings[0].ID)
	assert.Equal(t, time.Unix(1585908000, 0).UTC(), pings[0].Time)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("id,timestamp,latitude\na,1,2\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "longitude")
}

func TestReadCSV_Empty(t *testing.T) {
	pings, stats, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, pings)
	assert.Zero(t, stats.Rows)
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	g := gzip.NewWriter(&buf)
	_, err := g.Write(data)
	require.NoError(t, err)
	require.NoError(t, g.Close())
	return buf.Bytes()
}

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return gzipBytes(t, buf.Bytes())
}

func TestReadFile_Formats(t *testing.T) {
	dir := t.TempDir()
	plain := "id,timestamp,latitude,longitude\na,0,1,2\n"

	csvPath := filepath.Join(dir, "day1.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(plain), 0o644))

	gzPath := filepath.Join(dir, "day2.csv.gz")
	require.NoError(t, os.WriteFile(gzPath, gzipBytes(t, []byte(plain)), 0o644))

	tarPath := filepath.Join(dir, "day3.tar.gz")
	require.NoError(t, os.WriteFile(tarPath, tarGz(t, map[string]string{
		"b.csv":      "id,timestamp,latitude,longitude\nb,0,1,2\n",
		"a.csv":      plain,
		"readme.txt": "ignored",
	}), 0o644))

	for _, path := range []string{csvPath, gzPath} {
		pings, _, err := ReadFile(path)
		require.NoError(t, err, path)
		require.Len(t, pings, 1)
		assert.Equal(t, "a", pings[0].ID)
	}

	pings, stats, err := ReadFile(tarPath)
	require.NoError(t, err)
	require.Len(t, pings, 2)
	assert.Equal(t, "a", pings[0].ID, "members are read in name order")
	assert.Equal(t, "b", pings[1].ID)
	assert.Equal(t, 2, stats.Rows)

	other := filepath.Join(dir, "notes.parquet")
	require.NoError(t, os.WriteFile(other, nil, 0o644))
	_, _, err = ReadFile(other)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv.gz", "a.csv", "c.tgz", "notes.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	paths, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "b.csv.gz"),
		filepath.Join(dir, "c.tgz"),
	}, paths)

	_, err = Discover(t.TempDir())
	require.ErrorIs(t, err, ErrNoInput)
}
