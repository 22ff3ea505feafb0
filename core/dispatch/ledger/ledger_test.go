package ledger

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/microgrid-lab/mgsim/core/dispatch"
)

func stepRecord(step int, c dispatch.Case, ts time.Time) Record {
	return Record{
		RunID:     "run-1",
		Timestamp: ts,
		Result: dispatch.Result{
			Step:   step,
			PGLKw:  8,
			PGLSKw: 7.6,
			Case:   c,
		},
	}
}

func TestRecord_JSON(t *testing.T) {
	rec := stepRecord(3, dispatch.CaseChargeDirect, time.Unix(0, 0))
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"run_id", "timestamp", "result"} {
		if _, ok := m[k]; !ok {
			t.Errorf("missing key %s", k)
		}
	}
	res, ok := m["result"].(map[string]any)
	if !ok {
		t.Fatalf("result is %T, want object", m["result"])
	}
	for _, k := range []string{"step", "p_gl", "p_gl_s", "case"} {
		if _, ok := res[k]; !ok {
			t.Errorf("missing result key %s", k)
		}
	}
}

func TestMemoryStore_AppendQuery(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for step, c := range []dispatch.Case{dispatch.CaseChargeDirect, dispatch.CaseEquilibrium, dispatch.CaseChargeDirect} {
		if err := store.Append(ctx, stepRecord(step, c, base.Add(time.Duration(step)*time.Hour))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	out, err := store.Query(ctx, Query{Case: dispatch.CaseChargeDirect})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 charge records, got %d", len(out))
	}
	out, err = store.Query(ctx, Query{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].Result.Step != 1 {
		t.Fatalf("time window returned %d records", len(out))
	}
	if out, _ := store.Query(ctx, Query{RunID: "other"}); len(out) != 0 {
		t.Fatalf("expected no records for unknown run, got %d", len(out))
	}
}

func TestJSONLStore_AppendQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	recs := []Record{
		stepRecord(0, dispatch.CaseChargeDirect, base),
		stepRecord(1, dispatch.CaseEquilibrium, base.Add(time.Hour)),
		stepRecord(2, dispatch.CaseChargeDirect, base.Add(2*time.Hour)),
	}
	for _, r := range recs {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	out, err := store.Query(ctx, Query{Case: dispatch.CaseChargeDirect})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 charge records, got %d", len(out))
	}
	out, err = store.Query(ctx, Query{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].Result.Step != 1 {
		t.Fatalf("time window returned %d records", len(out))
	}
	out, err = store.Query(ctx, Query{RunID: "other"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no records for unknown run, got %d", len(out))
	}
}

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:ledgertest.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for step, c := range []dispatch.Case{dispatch.CaseChargeDirect, dispatch.CaseDischargeDirect} {
		if err := store.Append(ctx, stepRecord(step, c, base.Add(time.Duration(step)*time.Hour))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	out, err := store.Query(ctx, Query{Case: dispatch.CaseDischargeDirect})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].Result.Step != 1 {
		t.Errorf("step = %d, want 1", out[0].Result.Step)
	}
	out, err = store.Query(ctx, Query{RunID: "run-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records for run, got %d", len(out))
	}
}

func TestRotatingStore_RotationAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	store, err := NewRotatingStore(path, 1, 3, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	ctx := context.Background()
	rec := stepRecord(0, dispatch.CaseChargeDirect, time.Now())
	rec.RunID = strings.Repeat("x", 16<<10)
	for i := 0; i < 100; i++ {
		rec.Result.Step = i
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	files, _ := filepath.Glob(path + "*")
	if len(files) < 2 {
		t.Fatalf("expected rotated files, got %v", files)
	}
	out, err := store.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 100 {
		t.Fatalf("expected 100 records across rotated files, got %d", len(out))
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	store, err := New(Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := store.(NopStore); !ok {
		t.Errorf("empty kind gave %T, want NopStore", store)
	}
	store, err = New(Config{Kind: "memory"})
	if err != nil {
		t.Fatalf("new memory: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("memory kind gave %T", store)
	}
	store, err = New(Config{Kind: "jsonl", Path: filepath.Join(t.TempDir(), "l.jsonl")})
	if err != nil {
		t.Fatalf("new jsonl: %v", err)
	}
	if _, ok := store.(*JSONLStore); !ok {
		t.Errorf("jsonl kind gave %T", store)
	}
	_ = store.Close()
	if _, err := New(Config{Kind: "parquet"}); err == nil {
		t.Error("unknown kind accepted")
	}
}
