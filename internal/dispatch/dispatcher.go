// Package dispatch routes one normalized event to every registered
// analyzer whose matcher accepts it, isolates per-analyzer faults, and
// reduces the results to the single decision the host observes.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yonatangross/hookwarden/internal/analyzer"
	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/event"
	"github.com/yonatangross/hookwarden/internal/sink"
)

// Decision is the only contract the host observes: continue or not, with a
// reason when blocked and advisory text when healthy analyzers warned.
type Decision struct {
	EventID     string   `json:"event_id"`
	Continue    bool     `json:"continue"`
	Reason      string   `json:"reason,omitempty"`
	Advisory    string   `json:"advisory,omitempty"`
	ReasonCodes []string `json:"reason_codes,omitempty"`
}

// Tracer records one row per dispatch for later retrieval. Implementations
// must be best-effort; the dispatcher ignores their failures.
type Tracer interface {
	Record(ctx context.Context, row TraceRow)
}

// TraceRow is the structured trace of one dispatch.
type TraceRow struct {
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Tool        string    `json:"tool,omitempty"`
	Path        string    `json:"path,omitempty"`
	Verdict     string    `json:"verdict"`
	ReasonCodes []string  `json:"reason_codes,omitempty"`
	LatencyMs   float64   `json:"latency_ms"`
	Timestamp   time.Time `json:"ts"`
}

// Dispatcher holds the static analyzer registration table. Registration
// order is the tie-break order: when several analyzers block, the first
// registered one surfaces.
type Dispatcher struct {
	analyzers []analyzer.Analyzer
	cfg       *config.Provider
	effects   *sink.Runner
	tracer    Tracer
	logger    *zap.Logger
}

// New builds a dispatcher over an ordered analyzer table. tracer may be
// nil when no trace store is configured.
func New(analyzers []analyzer.Analyzer, cfg *config.Provider, effects *sink.Runner, tracer Tracer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		analyzers: analyzers,
		cfg:       cfg,
		effects:   effects,
		tracer:    tracer,
		logger:    logger,
	}
}

// output pairs one analyzer's result with its registration index so the
// reduction can apply the insertion-order tie-break regardless of the
// order goroutines finish in.
type output struct {
	index int
	name  string
	res   *analyzer.Result
	err   error
}

// Dispatch normalizes the raw payload, fans out to matching analyzers in
// parallel, and reduces their results. It never returns an error and never
// blocks on anything but the bounded fan-out: any internal failure
// produces an allow.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte) *Decision {
	start := time.Now()
	ev := event.Normalize(uuid.New().String(), payload)
	snap := d.cfg.Snapshot()

	timeout := time.Duration(snap.Thresholds.AnalyzerTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Slots are positional: collecting by registration index lets the
	// reduction apply the insertion-order tie-break no matter the order
	// goroutines finish in.
	slots := make([]*output, len(d.analyzers))
	ch := make(chan output, len(d.analyzers))
	inFlight := 0

	for i, a := range d.analyzers {
		if !a.Match(ev.ToolName) {
			continue
		}
		inFlight++
		go func(idx int, a analyzer.Analyzer) {
			ch <- d.run(ctx, idx, a, ev, snap)
		}(i, a)
	}

	// Collect until every matched analyzer reports or the deadline fires.
	// Late finishers write into the buffered channel and are never read.
	for inFlight > 0 {
		select {
		case out := <-ch:
			slots[out.index] = &out
			inFlight--
		case <-ctx.Done():
			d.logger.Warn("analyzer timeout exceeded, reducing partial results",
				zap.Duration("timeout", timeout),
				zap.Int("outstanding", inFlight),
			)
			inFlight = 0
		}
	}

	dec := d.reduce(ev, slots)

	if d.tracer != nil {
		d.tracer.Record(ctx, TraceRow{
			EventID:     ev.ID,
			SessionID:   ev.SessionID,
			Tool:        ev.ToolName,
			Path:        ev.FilePath,
			Verdict:     verdictOf(dec),
			ReasonCodes: dec.ReasonCodes,
			LatencyMs:   float64(time.Since(start)) / float64(time.Millisecond),
			Timestamp:   ev.Timestamp,
		})
	}
	return dec
}

// run invokes one analyzer behind the isolation boundary: a panic or error
// is caught here and degraded to "no opinion".
func (d *Dispatcher) run(ctx context.Context, idx int, a analyzer.Analyzer, ev *event.Event, snap *config.Snapshot) (out output) {
	out = output{index: idx, name: a.Name()}
	defer func() {
		if r := recover(); r != nil {
			out.res = nil
			out.err = fmt.Errorf("analyzer panic: %v", r)
		}
	}()
	out.res, out.err = a.Analyze(ctx, ev, snap)
	return out
}

// reduce applies the verdict policy: the first-registered Block wins and
// its message is the surfaced reason; otherwise allow, with every Warn
// concatenated into advisory context. Faulted analyzers contribute no
// verdict but are logged and persisted as fault records.
func (d *Dispatcher) reduce(ev *event.Event, slots []*output) *Decision {
	dec := &Decision{EventID: ev.ID, Continue: true}
	var advisories []string

	for _, out := range slots {
		if out == nil { // skipped or timed out: no opinion
			continue
		}
		if out.err != nil {
			d.logger.Warn("analyzer fault, no opinion",
				zap.String("analyzer", out.name),
				zap.String("event_id", ev.ID),
				zap.Error(out.err),
			)
			d.emit(sink.FaultRecord{
				Timestamp: ev.Timestamp,
				Analyzer:  out.name,
				Error:     out.err.Error(),
			})
			continue
		}
		if out.res == nil {
			continue
		}
		d.emit(out.res.Effects...)

		switch out.res.Verdict {
		case analyzer.Block:
			if dec.Continue {
				dec.Continue = false
				dec.Reason = out.res.Message
			}
			dec.ReasonCodes = append(dec.ReasonCodes, out.res.ReasonCode)
		case analyzer.Warn:
			advisories = append(advisories, out.res.Message)
			dec.ReasonCodes = append(dec.ReasonCodes, out.res.ReasonCode)
		}
	}

	if dec.Continue && len(advisories) > 0 {
		dec.Advisory = strings.Join(advisories, "\n")
	}
	return dec
}

func (d *Dispatcher) emit(records ...sink.Record) {
	if d.effects != nil && len(records) > 0 {
		d.effects.Emit(records...)
	}
}

func verdictOf(dec *Decision) string {
	switch {
	case !dec.Continue:
		return "block"
	case dec.Advisory != "":
		return "warn"
	default:
		return "allow"
	}
}
