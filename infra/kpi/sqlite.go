package kpi

import (
	"database/sql"
	"time"

	eco "github.com/microgrid-lab/mgsim/core/metrics/eco"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists daily grid-exchange records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS eco_kpi (
        run_id TEXT,
        day INTEGER,
        injected REAL,
        consumed REAL,
        shared REAL,
        PRIMARY KEY(run_id, day)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Add folds the record into the run's daily aggregate.
func (s *SQLiteStore) Add(r eco.Record) error {
	d := eco.Day(r.Date)
	_, err := s.db.Exec(`INSERT INTO eco_kpi (run_id, day, injected, consumed, shared)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(run_id, day) DO UPDATE SET
            injected = injected + excluded.injected,
            consumed = consumed + excluded.consumed,
            shared = shared + excluded.shared`,
		r.RunID, d.Unix(), r.InjectedKWh, r.ConsumedKWh, r.SharedKWh)
	return err
}

// Query returns the run's daily records in the range [start,end].
func (s *SQLiteStore) Query(runID string, start, end time.Time) ([]eco.Record, error) {
	start = eco.Day(start)
	end = eco.Day(end)
	rows, err := s.db.Query(`SELECT run_id, day, injected, consumed, shared
        FROM eco_kpi WHERE run_id = ? AND day >= ? AND day <= ? ORDER BY day`,
		runID, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []eco.Record
	for rows.Next() {
		var id string
		var ts int64
		var inj, cons, shared float64
		if err := rows.Scan(&id, &ts, &inj, &cons, &shared); err != nil {
			return nil, err
		}
		res = append(res, eco.Record{
			RunID:       id,
			Date:        time.Unix(ts, 0).UTC(),
			InjectedKWh: inj,
			ConsumedKWh: cons,
			SharedKWh:   shared,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
