package main

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yonatangross/hookwarden/internal/api"
	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/dispatch"
	"github.com/yonatangross/hookwarden/internal/sink"
	"github.com/yonatangross/hookwarden/internal/trace"
)

// engine bundles everything a command needs, with a single Close.
type engine struct {
	cfg        *config.Provider
	logger     *zap.Logger
	effects    *sink.Runner
	traceStore *trace.Store
	dispatcher *dispatch.Dispatcher
}

// buildEngine wires the full stack: config, logger, sinks, trace store and
// dispatcher. The trace store is optional; an open failure is logged and
// the engine runs without it.
func buildEngine(cfgPath string) (*engine, error) {
	// Bootstrap logger for config loading; replaced once the level is known.
	bootLogger := mustBuildLogger("info")

	cfg, err := config.Load(cfgPath, bootLogger)
	if err != nil {
		return nil, err
	}
	snap := cfg.Snapshot()

	logger := mustBuildLogger(snap.LogLevel)
	effects := sink.NewRunner(sink.NewJSONLStore(snap.LogDir), logger)

	var traceStore *trace.Store
	var tracer dispatch.Tracer
	if snap.TraceDB != "" {
		traceStore, err = trace.Open(snap.TraceDB, logger)
		if err != nil {
			logger.Warn("trace store unavailable, continuing without it",
				zap.String("path", snap.TraceDB),
				zap.Error(err),
			)
		} else {
			tracer = traceStore
		}
	}

	d := dispatch.New(dispatch.DefaultAnalyzers(), cfg, effects, tracer, logger)
	return &engine{
		cfg:        cfg,
		logger:     logger,
		effects:    effects,
		traceStore: traceStore,
		dispatcher: d,
	}, nil
}

func (e *engine) close() {
	e.effects.Close()
	if e.traceStore != nil {
		_ = e.traceStore.Close()
	}
	_ = e.logger.Sync()
}

// mustBuildLogger builds a JSON logger on stderr. Stdout stays clean: in
// check mode it carries the decision the host parses.
func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

// newDeps builds the HTTP dependencies for serve mode.
func (e *engine) newDeps() *api.Dependencies {
	return &api.Dependencies{
		Dispatcher: e.dispatcher,
		Trace:      e.traceStore,
		Logger:     e.logger,
	}
}
