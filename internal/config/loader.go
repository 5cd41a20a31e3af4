package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
)

// fileSchema constrains the shape of a config file. Validation runs before
// the file is merged so a malformed catalog cannot poison the defaults.
const fileSchema = `{
	"type": "object",
	"properties": {
		"log_level": {"type": "string"},
		"log_dir": {"type": "string"},
		"trace_db": {"type": "string"},
		"thresholds": {
			"type": "object",
			"additionalProperties": {"type": "integer", "minimum": 0}
		},
		"layers": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["scope", "pattern", "reason"],
				"properties": {
					"scope": {"type": "string", "minLength": 1},
					"pattern": {"type": "string", "minLength": 1},
					"reason": {"type": "string", "minLength": 1},
					"message": {"type": "string"}
				}
			}
		},
		"structure": {"type": "object"},
		"categories": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "keywords"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"keywords": {"type": "array", "items": {"type": "string"}}
				}
			}
		},
		"importance": {"type": "object"}
	}
}`

// Provider owns the current compiled Snapshot and swaps it atomically on
// reload. Dispatches call Snapshot() once per event, so a reload between
// events is picked up without restarting the engine.
type Provider struct {
	path   string
	logger *zap.Logger
	cur    atomic.Pointer[Snapshot]
	fp     *file.File
}

// Load builds a provider from the built-in defaults plus an optional YAML
// file at path plus HOOKWARDEN_* environment overrides. A missing or
// invalid file is logged and skipped; Load itself only fails on a broken
// environment, which has no fail-open fallback worth pretending about.
func Load(path string, logger *zap.Logger) (*Provider, error) {
	p := &Provider{path: path, logger: logger}
	snap, err := p.build()
	if err != nil {
		logger.Warn("config file rejected, running on defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		snap, err = p.buildWithoutFile()
		if err != nil {
			return nil, err
		}
	}
	p.cur.Store(snap)
	return p, nil
}

// Snapshot returns the current compiled configuration. The returned value
// is immutable; holders must not retain it across dispatches if they want
// reloads to apply.
func (p *Provider) Snapshot() *Snapshot {
	return p.cur.Load()
}

// Watch re-reads the file whenever it changes, keeping the last known good
// snapshot when the new contents fail validation.
func (p *Provider) Watch() error {
	if p.path == "" {
		return nil
	}
	p.fp = file.Provider(p.path)
	return p.fp.Watch(func(_ interface{}, err error) {
		if err != nil {
			p.logger.Warn("config watch error", zap.Error(err))
			return
		}
		snap, err := p.build()
		if err != nil {
			p.logger.Warn("config reload rejected, keeping previous snapshot",
				zap.Error(err),
			)
			return
		}
		p.cur.Store(snap)
		p.logger.Info("config reloaded", zap.String("path", p.path))
	})
}

// Unwatch stops the file watcher if one is running.
func (p *Provider) Unwatch() {
	if p.fp != nil {
		_ = p.fp.Unwatch()
	}
}

func (p *Provider) build() (*Snapshot, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, err
	}

	if p.path != "" {
		raw, err := file.Provider(p.path).ReadBytes()
		if err == nil { // absent file: defaults only
			parsed, perr := kyaml.Parser().Unmarshal(raw)
			if perr != nil {
				return nil, fmt.Errorf("parse %s: %w", p.path, perr)
			}
			if verr := validateFile(parsed); verr != nil {
				return nil, fmt.Errorf("validate %s: %w", p.path, verr)
			}
			if merr := k.Load(confmap.Provider(parsed, "."), nil); merr != nil {
				return nil, merr
			}
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}

	var fc FileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return nil, err
	}
	return compile(fc), nil
}

func (p *Provider) buildWithoutFile() (*Snapshot, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, err
	}
	if err := loadEnv(k); err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return nil, err
	}
	return compile(fc), nil
}

// DefaultSnapshot compiles the built-in catalog with no file or
// environment overrides applied.
func DefaultSnapshot() (*Snapshot, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return nil, err
	}
	return compile(fc), nil
}

// loadEnv merges HOOKWARDEN_* variables; HOOKWARDEN_LOG_LEVEL=debug maps to
// log_level. Only scalar settings are practical through the environment.
func loadEnv(k *koanf.Koanf) error {
	return k.Load(env.Provider("HOOKWARDEN_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "HOOKWARDEN_"))
	}), nil)
}

// validateFile checks the parsed YAML against fileSchema. The parsed map is
// round-tripped through encoding/json first so the validator sees JSON
// value types regardless of what the YAML parser produced.
func validateFile(parsed map[string]any) error {
	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(fileSchema))
	if err != nil {
		return err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.schema.json", schemaDoc); err != nil {
		return err
	}
	sch, err := c.Compile("config.schema.json")
	if err != nil {
		return err
	}

	b, err := json.Marshal(parsed)
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(b, &instance); err != nil {
		return err
	}
	return sch.Validate(instance)
}
