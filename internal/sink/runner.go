package sink

import (
	"time"

	"go.uber.org/zap"
)

const (
	bufferSize   = 4_096
	drainTimeout = 2 * time.Second
)

// Appender is the minimal write surface a Runner drains into.
type Appender interface {
	Append(Record) error
}

// Runner applies side-effect records asynchronously. Emit is non-blocking:
// records are buffered and written by a background goroutine, and a full
// buffer drops the record rather than stalling the dispatch turn.
type Runner struct {
	store   Appender
	buffer  chan Record
	done    chan struct{}
	flushed chan struct{} // closed by writeLoop when it returns
	logger  *zap.Logger
}

// NewRunner starts the background write loop over the given store.
func NewRunner(store Appender, logger *zap.Logger) *Runner {
	r := &Runner{
		store:   store,
		buffer:  make(chan Record, bufferSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		logger:  logger,
	}
	go r.writeLoop()
	return r
}

// Emit queues records for append. Fire-and-forget: no completion is waited
// on and failures surface only in logs.
func (r *Runner) Emit(records ...Record) {
	for _, rec := range records {
		select {
		case r.buffer <- rec:
		default:
			r.logger.Warn("sink buffer full, dropping record",
				zap.String("record_kind", rec.RecordKind()),
			)
		}
	}
}

// Close drains buffered records (up to drainTimeout) and stops the write
// loop. Safe to call once.
func (r *Runner) Close() {
	close(r.done)
	<-r.flushed
}

func (r *Runner) writeLoop() {
	defer close(r.flushed)

	for {
		select {
		case rec := <-r.buffer:
			r.write(rec)
		case <-r.done:
			deadline := time.After(drainTimeout)
			for {
				select {
				case rec := <-r.buffer:
					r.write(rec)
				case <-deadline:
					return
				default:
					return
				}
			}
		}
	}
}

func (r *Runner) write(rec Record) {
	if err := r.store.Append(rec); err != nil {
		r.logger.Warn("sink append failed",
			zap.String("record_kind", rec.RecordKind()),
			zap.Error(err),
		)
	}
}
