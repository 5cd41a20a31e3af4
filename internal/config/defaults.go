package config

// defaultsMap is the built-in catalog, loaded under any file or env
// overrides. Kept as a nested map so it goes through the same koanf merge
// path as a config file.
func defaultsMap() map[string]any {
	return map[string]any{
		"log_level": "info",
		"log_dir":   ".hookwarden/logs",
		"trace_db":  ".hookwarden/trace.db",
		"thresholds": map[string]any{
			"min_result_length":   80,
			"max_decisions":       10,
			"conflict_line_delta": 20,
			"behind_commits":      10,
			"git_timeout_ms":      2000,
			"analyzer_timeout_ms": 3000,
		},
		"layers": []any{
			map[string]any{
				"scope":   "routers",
				"pattern": `\b(?:db|session|cursor|conn)\.(?:execute|query|commit|add|delete)\s*\(`,
				"reason":  "DATABASE_IN_ROUTER",
				"message": "router layer must not call the database directly; move the call into a service",
			},
			map[string]any{
				"scope":   "routers",
				"pattern": `(?:from|import)\s+(?:sqlalchemy|prisma|typeorm|sequelize)\b|from\s+\w+\.(?:models|repositories)\s+import`,
				"reason":  "IMPORT_VIOLATION",
				"message": "router layer must not import ORM or repository modules",
			},
			map[string]any{
				"scope":   "services",
				"pattern": `\bHTTPException\b|\braise\s+HTTP|(?:from|import)\s+(?:fastapi|flask|starlette)\b`,
				"reason":  "HTTP_IN_SERVICE",
				"message": "service layer must stay HTTP-free; raise domain errors and translate them in the router",
			},
			map[string]any{
				"scope":   "services",
				"pattern": `\b(?:Request|Response)\s*=\s*|:\s*(?:Request|Response)\b`,
				"reason":  "HTTP_IN_SERVICE",
				"message": "service layer must not depend on HTTP request/response types",
			},
			map[string]any{
				"scope":   "repositories",
				"pattern": `from\s+\w+\.(?:services|routers)\s+import|import\s+\w*(?:Service|Router)\b`,
				"reason":  "IMPORT_VIOLATION",
				"message": "repository layer must not import from the service or router layer",
			},
		},
		"structure": map[string]any{
			"roots":          []any{"src"},
			"max_depth":      4,
			"barrel_allowed": []any{"dist", "build", "routes", "app"},
			"component_dirs": []any{"components"},
			"hook_dirs":      []any{"hooks"},
		},
		// Ordered: specific domains before the generic decision fallback.
		"categories": []any{
			map[string]any{"name": "security", "keywords": []any{
				"vulnerability", "security", "auth", "authentication", "encryption",
				"cve", "xss", "csrf", "injection", "secret",
			}},
			map[string]any{"name": "database", "keywords": []any{
				"database", "postgres", "postgresql", "sqlite", "sql", "migration",
				"schema", "redis", "index", "orm",
			}},
			map[string]any{"name": "api", "keywords": []any{
				"api", "endpoint", "rest", "graphql", "grpc", "webhook", "route",
			}},
			map[string]any{"name": "testing", "keywords": []any{
				"test", "testing", "coverage", "pytest", "jest", "mock", "fixture",
			}},
			map[string]any{"name": "deployment", "keywords": []any{
				"deploy", "deployment", "docker", "kubernetes", "pipeline",
				"terraform", "rollout", "release",
			}},
			map[string]any{"name": "observability", "keywords": []any{
				"logging", "metrics", "tracing", "monitoring", "alert", "dashboard",
			}},
			map[string]any{"name": "frontend", "keywords": []any{
				"react", "component", "css", "frontend", "browser", "accessibility",
			}},
			map[string]any{"name": "ai-ml", "keywords": []any{
				"llm", "embedding", "prompt", "rag", "inference", "fine-tuning", "agent",
			}},
			map[string]any{"name": "architecture", "keywords": []any{
				"architecture", "layer", "microservice", "monolith", "boundary", "pattern",
			}},
			map[string]any{"name": "decision", "keywords": []any{
				"decided", "chose", "selected", "decision",
			}},
		},
		"importance": map[string]any{
			"high": []any{
				"critical", "security", "vulnerability", "breaking", "production",
				"data loss", "outage", "auth",
			},
			"medium": []any{
				"refactor", "optimize", "performance", "migration", "upgrade", "deprecate",
			},
		},
	}
}
