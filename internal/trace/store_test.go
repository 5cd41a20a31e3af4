package trace

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yonatangross/hookwarden/internal/dispatch"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trace", "trace.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func row(id, session, verdict string, codes []string, ts time.Time) dispatch.TraceRow {
	return dispatch.TraceRow{
		EventID:     id,
		SessionID:   session,
		Tool:        "Write",
		Path:        "src/app.py",
		Verdict:     verdict,
		ReasonCodes: codes,
		LatencyMs:   1.5,
		Timestamp:   ts,
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	s.Record(ctx, row("ev-1", "sess-a", "allow", nil, base))
	s.Record(ctx, row("ev-2", "sess-a", "block", []string{"DATABASE_IN_ROUTER"}, base.Add(time.Second)))
	s.Record(ctx, row("ev-3", "sess-b", "allow", nil, base.Add(2*time.Second)))

	rows, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// Newest first.
	if rows[0].EventID != "ev-3" || rows[2].EventID != "ev-1" {
		t.Errorf("unexpected order: %q, %q, %q", rows[0].EventID, rows[1].EventID, rows[2].EventID)
	}
	if got := rows[1].ReasonCodes; len(got) != 1 || got[0] != "DATABASE_IN_ROUTER" {
		t.Errorf("reason codes = %v", got)
	}
	if !rows[2].Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", rows[2].Timestamp, base)
	}
}

func TestStore_RecentFiltersBySession(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	s.Record(ctx, row("ev-1", "sess-a", "allow", nil, base))
	s.Record(ctx, row("ev-2", "sess-b", "allow", nil, base.Add(time.Second)))

	rows, err := s.Recent(ctx, "sess-b", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 1 || rows[0].EventID != "ev-2" {
		t.Errorf("rows = %+v, want only ev-2", rows)
	}
}

func TestStore_RecentLimit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		s.Record(ctx, row(string(rune('a'+i)), "sess", "allow", nil, base.Add(time.Duration(i)*time.Second)))
	}
	rows, err := s.Recent(ctx, "sess", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows, want 2", len(rows))
	}
}

func TestStore_RecordReplacesSameEvent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	s.Record(ctx, row("ev-1", "sess", "allow", nil, time.Now().UTC()))
	s.Record(ctx, row("ev-1", "sess", "block", []string{"MERGE_CONFLICT_RISK"}, time.Now().UTC()))

	rows, err := s.Recent(ctx, "sess", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Verdict != "block" {
		t.Errorf("verdict = %q, want block", rows[0].Verdict)
	}
}
