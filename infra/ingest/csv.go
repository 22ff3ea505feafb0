// Package ingest provides the concrete sample sources: CSV traces,
// synthetic profiles and live MQTT feeds.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/microgrid-lab/mgsim/core/model"
)

// CSVConfig locates a trace file on disk.
type CSVConfig struct {
	Path string `json:"path"`
}

// CSVSource replays a recorded trace. The file needs pv_kw and load_kw
// columns; timestamp (RFC 3339) and alpha are optional.
type CSVSource struct {
	f       *os.File
	r       *csv.Reader
	columns map[string]int
}

// NewCSVSource opens the trace and reads its header.
func NewCSVSource(cfg CSVConfig) (*CSVSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("csv source: path required")
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("csv source: %w", err)
	}
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csv source: reading header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"pv_kw", "load_kw"} {
		if _, ok := columns[required]; !ok {
			f.Close()
			return nil, fmt.Errorf("csv source: missing column %s", required)
		}
	}
	return &CSVSource{f: f, r: r, columns: columns}, nil
}

// Next reads one trace row. It returns io.EOF at the end of the file.
func (s *CSVSource) Next(ctx context.Context) (model.PowerSample, error) {
	if err := ctx.Err(); err != nil {
		return model.PowerSample{}, err
	}
	rec, err := s.r.Read()
	if err == io.EOF {
		return model.PowerSample{}, io.EOF
	}
	if err != nil {
		return model.PowerSample{}, fmt.Errorf("csv source: %w", err)
	}
	sample := model.PowerSample{Alpha: 1}
	if sample.PVKW, err = s.field(rec, "pv_kw"); err != nil {
		return model.PowerSample{}, err
	}
	if sample.LoadKW, err = s.field(rec, "load_kw"); err != nil {
		return model.PowerSample{}, err
	}
	if idx, ok := s.columns["alpha"]; ok && idx < len(rec) && strings.TrimSpace(rec[idx]) != "" {
		if sample.Alpha, err = s.field(rec, "alpha"); err != nil {
			return model.PowerSample{}, err
		}
	}
	if idx, ok := s.columns["timestamp"]; ok && idx < len(rec) && strings.TrimSpace(rec[idx]) != "" {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[idx]))
		if err != nil {
			return model.PowerSample{}, fmt.Errorf("csv source: bad timestamp %q: %w", rec[idx], err)
		}
		sample.Timestamp = ts
	}
	return sample, nil
}

func (s *CSVSource) field(rec []string, name string) (float64, error) {
	idx := s.columns[name]
	if idx >= len(rec) {
		return 0, fmt.Errorf("csv source: row too short for %s", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("csv source: parsing %s: %w", name, err)
	}
	return v, nil
}

// Close releases the underlying file.
func (s *CSVSource) Close() error { return s.f.Close() }
