package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yonatangross/hookwarden/internal/analyzer"
	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/event"
	"github.com/yonatangross/hookwarden/internal/sink"
)

// stubAnalyzer returns a fixed result, optionally after a delay, and can
// error or panic on demand.
type stubAnalyzer struct {
	name   string
	tools  analyzer.Matcher
	res    *analyzer.Result
	err    error
	panics bool
	delay  time.Duration
}

func (s *stubAnalyzer) Name() string { return s.name }

func (s *stubAnalyzer) Match(tool string) bool { return s.tools.Match(tool) }

func (s *stubAnalyzer) Analyze(ctx context.Context, _ *event.Event, _ *config.Snapshot) (*analyzer.Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.panics {
		panic("analyzer exploded")
	}
	return s.res, s.err
}

func blockStub(name, reason, msg string) *stubAnalyzer {
	return &stubAnalyzer{
		name:  name,
		tools: analyzer.MatchAll(),
		res:   &analyzer.Result{Verdict: analyzer.Block, ReasonCode: reason, Message: msg},
	}
}

func warnStub(name, reason, msg string) *stubAnalyzer {
	return &stubAnalyzer{
		name:  name,
		tools: analyzer.MatchAll(),
		res:   &analyzer.Result{Verdict: analyzer.Warn, ReasonCode: reason, Message: msg},
	}
}

func newTestDispatcher(t *testing.T, analyzers []analyzer.Analyzer, effects *sink.Runner) *Dispatcher {
	t.Helper()
	cfg, err := config.Load("", zap.NewNop())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return New(analyzers, cfg, effects, nil, zap.NewNop())
}

// captureStore collects appended records for assertions.
type captureStore struct {
	mu   sync.Mutex
	recs []sink.Record
}

func (c *captureStore) Append(rec sink.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
	return nil
}

const writePayload = `{"tool_name": "Write", "tool_input": {"file_path": "a.go", "content": "x"}}`

func TestDispatch_NoMatchingAnalyzer(t *testing.T) {
	d := newTestDispatcher(t, []analyzer.Analyzer{
		&stubAnalyzer{
			name:  "bash_only",
			tools: analyzer.MatchTools("Bash"),
			res:   &analyzer.Result{Verdict: analyzer.Block, ReasonCode: "X", Message: "no"},
		},
	}, nil)

	dec := d.Dispatch(context.Background(), []byte(writePayload))
	if !dec.Continue {
		t.Fatal("expected allow when no analyzer matches")
	}
	if dec.Advisory != "" || len(dec.ReasonCodes) != 0 {
		t.Errorf("expected empty advisory and reasons, got %q %v", dec.Advisory, dec.ReasonCodes)
	}
}

func TestDispatch_MalformedPayloadAllows(t *testing.T) {
	d := newTestDispatcher(t, DefaultAnalyzers(), nil)

	for _, payload := range [][]byte{nil, []byte("garbage"), []byte(`{}`)} {
		dec := d.Dispatch(context.Background(), payload)
		if !dec.Continue {
			t.Errorf("payload %q: expected allow", payload)
		}
	}
}

// Ties between blocking analyzers are broken by registration order, not by
// which goroutine finishes first. The slower analyzer is registered first
// to force the race the wrong way.
func TestDispatch_FirstRegisteredBlockWins(t *testing.T) {
	first := blockStub("first", "REASON_A", "blocked by first")
	first.delay = 20 * time.Millisecond
	second := blockStub("second", "REASON_B", "blocked by second")

	d := newTestDispatcher(t, []analyzer.Analyzer{first, second}, nil)

	for i := 0; i < 5; i++ {
		dec := d.Dispatch(context.Background(), []byte(writePayload))
		if dec.Continue {
			t.Fatal("expected block")
		}
		if dec.Reason != "blocked by first" {
			t.Fatalf("surfaced reason = %q, want the first-registered analyzer's", dec.Reason)
		}
	}
}

func TestDispatch_WarningsNeverBlock(t *testing.T) {
	d := newTestDispatcher(t, []analyzer.Analyzer{
		warnStub("w1", "R1", "first warning"),
		warnStub("w2", "R2", "second warning"),
	}, nil)

	dec := d.Dispatch(context.Background(), []byte(writePayload))
	if !dec.Continue {
		t.Fatal("warnings must not block")
	}
	if dec.Advisory != "first warning\nsecond warning" {
		t.Errorf("advisory = %q", dec.Advisory)
	}
	if len(dec.ReasonCodes) != 2 {
		t.Errorf("reason codes = %v", dec.ReasonCodes)
	}
}

// A crashing or erroring analyzer contributes no verdict and must not
// block an otherwise-valid operation.
func TestDispatch_FaultIsolation(t *testing.T) {
	store := &captureStore{}
	runner := sink.NewRunner(store, zap.NewNop())

	d := newTestDispatcher(t, []analyzer.Analyzer{
		&stubAnalyzer{name: "panicky", tools: analyzer.MatchAll(), panics: true},
		&stubAnalyzer{name: "broken", tools: analyzer.MatchAll(), err: errors.New("boom")},
		warnStub("healthy", "R_OK", "still advising"),
	}, runner)

	dec := d.Dispatch(context.Background(), []byte(writePayload))
	runner.Close()

	if !dec.Continue {
		t.Fatal("analyzer faults must not block")
	}
	if dec.Advisory != "still advising" {
		t.Errorf("advisory = %q, healthy analyzer lost", dec.Advisory)
	}

	faults := 0
	for _, rec := range store.recs {
		if rec.RecordKind() == "fault" {
			faults++
		}
	}
	if faults != 2 {
		t.Errorf("fault records = %d, want 2", faults)
	}
}

func TestDispatch_BlockStillEmitsEffects(t *testing.T) {
	store := &captureStore{}
	runner := sink.NewRunner(store, zap.NewNop())

	blocking := blockStub("policy", "R_BLOCK", "nope")
	blocking.res.Effects = []sink.Record{sink.ViolationRecord{Reason: "R_BLOCK"}}

	d := newTestDispatcher(t, []analyzer.Analyzer{blocking}, runner)
	dec := d.Dispatch(context.Background(), []byte(writePayload))
	runner.Close()

	if dec.Continue {
		t.Fatal("expected block")
	}
	if len(store.recs) != 1 {
		t.Fatalf("records = %d, want the violation persisted", len(store.recs))
	}
}

// Re-running the same event produces the same verdict and reason codes.
func TestDispatch_Idempotent(t *testing.T) {
	d := newTestDispatcher(t, []analyzer.Analyzer{
		blockStub("b", "R_B", "blocked"),
		warnStub("w", "R_W", "warned"),
	}, nil)

	a := d.Dispatch(context.Background(), []byte(writePayload))
	b := d.Dispatch(context.Background(), []byte(writePayload))

	if a.Continue != b.Continue || a.Reason != b.Reason {
		t.Errorf("verdicts differ: %+v vs %+v", a, b)
	}
	if len(a.ReasonCodes) != len(b.ReasonCodes) {
		t.Fatalf("reason codes differ: %v vs %v", a.ReasonCodes, b.ReasonCodes)
	}
	for i := range a.ReasonCodes {
		if a.ReasonCodes[i] != b.ReasonCodes[i] {
			t.Errorf("reason codes differ at %d: %v vs %v", i, a.ReasonCodes, b.ReasonCodes)
		}
	}
}

func TestDispatch_SlowAnalyzerIsDropped(t *testing.T) {
	slow := blockStub("slow", "R_SLOW", "too late")
	slow.delay = 10 * time.Second

	d := newTestDispatcher(t, []analyzer.Analyzer{slow}, nil)

	start := time.Now()
	dec := d.Dispatch(context.Background(), []byte(writePayload))
	if !dec.Continue {
		t.Fatal("a timed-out analyzer must contribute no verdict")
	}
	if time.Since(start) > 8*time.Second {
		t.Error("dispatch did not respect the analyzer timeout")
	}
}
