// Package ledger persists dispatched step results for later analysis. The
// backends share one interface: an in-memory slice, a plain JSONL file, a
// size-rotated JSONL file and a SQLite database.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/microgrid-lab/mgsim/core/dispatch"
)

// Record captures one dispatched step and when it was simulated.
type Record struct {
	RunID     string          `json:"run_id"`
	Timestamp time.Time       `json:"timestamp"`
	Result    dispatch.Result `json:"result"`
}

// Query defines filters for retrieving records. Zero values match
// everything.
type Query struct {
	Start time.Time
	End   time.Time
	RunID string
	Case  dispatch.Case
}

func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Case != "" && r.Result.Case != q.Case {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and parameterizes a Store backend.
type Config struct {
	// Kind is one of "", "nop", "memory", "jsonl", "rotating" or "sqlite".
	// Empty disables persistence.
	Kind string `json:"kind"`
	// Path is the JSONL file or SQLite database location.
	Path string `json:"path"`
	// Rotation options, used by the rotating backend only.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// Validate checks that the configured backend exists and has what it
// needs to open.
func (c Config) Validate() error {
	switch c.Kind {
	case "", "nop", "memory":
		return nil
	case "jsonl", "rotating", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("ledger: path required for %s store", c.Kind)
		}
		return nil
	default:
		return fmt.Errorf("ledger: unknown store kind %q", c.Kind)
	}
}

// New builds the Store the configuration selects.
func New(cfg Config) (Store, error) {
	switch cfg.Kind {
	case "", "nop":
		return NopStore{}, nil
	case "memory":
		return NewMemoryStore(), nil
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("ledger: unknown store kind %q", cfg.Kind)
	}
}

// NopStore discards every record. It backs runs that do not persist steps.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error { return nil }

func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }

func (NopStore) Close() error { return nil }
