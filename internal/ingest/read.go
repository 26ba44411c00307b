// Package ingest turns raw device pings into hourly position batches.
package ingest

import (
	"archive/tar"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Input columns. Any other column is ignored.
const (
	ColumnID        = "id"
	ColumnTimestamp = "timestamp"
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
)

// maxTimestamp bounds unix seconds to what time.Time keeps in nanoseconds.
const maxTimestamp = math.MaxInt64 / 1e9

var requiredColumns = []string{ColumnID, ColumnTimestamp, ColumnLatitude, ColumnLongitude}

// Ping is one reported device location.
type Ping struct {
	ID   string
	Time time.Time
	Lat  float64
	Lon  float64
}

// Stats counts the rows read and the rows discarded as malformed or out of range.
type Stats struct {
	Rows    int
	Dropped int
}

func (s *Stats) add(o Stats) {
	s.Rows += o.Rows
	s.Dropped += o.Dropped
}

// ReadCSV reads pings from a headed CSV stream.
func ReadCSV(r io.Reader) ([]Ping, Stats, error) {
	var stats Stats
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, stats, nil
	} else if err != nil {
		return nil, stats, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idx := make([]int, len(requiredColumns))
	for i, name := range requiredColumns {
		c, ok := columns[name]
		if !ok {
			return nil, stats, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[i] = c
	}

	var pings []Ping
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return pings, stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++
		p, ok := parsePing(row, idx)
		if !ok {
			stats.Dropped++
			continue
		}
		pings = append(pings, p)
	}
	return pings, stats, nil
}

func parsePing(row []string, idx []int) (Ping, bool) {
	for _, i := range idx {
		if i >= len(row) {
			return Ping{}, false
		}
	}
	id := strings.TrimSpace(row[idx[0]])
	if id == "" {
		return Ping{}, false
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(row[idx[1]]), 64)
	if err != nil || !(ts >= 0 && ts <= maxTimestamp) {
		return Ping{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(row[idx[2]]), 64)
	if err != nil || !(lat >= -90 && lat <= 90) {
		return Ping{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(row[idx[3]]), 64)
	if err != nil || !(lon >= -180 && lon <= 180) {
		return Ping{}, false
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return Ping{ID: id, Time: time.Unix(sec, nsec).UTC(), Lat: lat, Lon: lon}, true
}

// ReadTarGz reads every .csv member of a gzipped tar archive, in member
// name order.
func ReadTarGz(r io.Reader) ([]Ping, Stats, error) {
	var stats Stats
	g, err := gzip.NewReader(r)
	if err != nil {
		return nil, stats, err
	}
	defer g.Close()

	members := map[string][]Ping{}
	tr := tar.NewReader(g)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, stats, fmt.Errorf("read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.EqualFold(filepath.Ext(hdr.Name), ".csv") {
			continue
		}
		pings, s, err := ReadCSV(tr)
		stats.add(s)
		if err != nil {
			return nil, stats, fmt.Errorf("member %s: %w", hdr.Name, err)
		}
		members[hdr.Name] = pings
	}

	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []Ping
	for _, name := range names {
		out = append(out, members[name]...)
	}
	return out, stats, nil
}

// ReadFile reads a .csv, .csv.gz, .tar.gz or .tgz file.
func ReadFile(path string) ([]Ping, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()

	var (
		pings []Ping
		stats Stats
	)
	switch kind(path) {
	case kindCSV:
		pings, stats, err = ReadCSV(f)
	case kindCSVGz:
		var g *gzip.Reader
		g, err = gzip.NewReader(f)
		if err != nil {
			break
		}
		defer g.Close()
		pings, stats, err = ReadCSV(g)
	case kindTarGz:
		pings, stats, err = ReadTarGz(f)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return pings, stats, fmt.Errorf("%s: %w", path, err)
	}
	return pings, stats, nil
}

type fileKind int

const (
	kindUnknown fileKind = iota
	kindCSV
	kindCSVGz
	kindTarGz
)

func kind(path string) fileKind {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return kindTarGz
	case strings.HasSuffix(name, ".csv.gz"):
		return kindCSVGz
	case strings.HasSuffix(name, ".csv"):
		return kindCSV
	default:
		return kindUnknown
	}
}

// Discover lists the readable input files directly under dir in name order.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || kind(e.Name()) == kindUnknown {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInput, dir)
	}
	return paths, nil
}
