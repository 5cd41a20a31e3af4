package extract

import (
	"regexp"
	"strings"
)

// Known technology, pattern and agent-name tokens harvested into entity
// lists. A flat alternation compiled once; word boundaries keep "go" from
// matching inside "going".
var knownEntities = []string{
	"postgres", "postgresql", "sqlite", "mysql", "redis", "clickhouse",
	"kafka", "rabbitmq", "nats",
	"react", "vue", "svelte", "next.js", "tailwind",
	"fastapi", "flask", "django", "express", "chi",
	"grpc", "graphql", "rest", "websocket",
	"docker", "kubernetes", "terraform", "nginx",
	"typescript", "javascript", "python", "golang", "rust",
	"pydantic", "zod", "sqlalchemy", "prisma",
	"repository pattern", "event sourcing", "cqrs", "circuit breaker",
	"dependency injection", "feature flag",
	"code-reviewer", "test-runner", "doc-writer", "backend-architect",
}

var entityRe = func() *regexp.Regexp {
	quoted := make([]string, len(knownEntities))
	for i, e := range knownEntities {
		quoted[i] = regexp.QuoteMeta(e)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}()

// scanEntities returns the known tokens mentioned in text, lowercased and
// deduplicated, in first-mention order.
func scanEntities(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range entityRe.FindAllString(text, -1) {
		e := strings.ToLower(m)
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
