package policy

import (
	"context"
	"strings"
	"testing"

	"github.com/yonatangross/hookwarden/internal/analyzer"
)

func TestStructureAnalyzer_NestingDepth(t *testing.T) {
	a := NewStructureAnalyzer()
	snap := defaultSnapshot(t)

	tests := []struct {
		name      string
		path      string
		wantBlock bool
	}{
		{"five segments below src", "src/a/b/c/d/file.ts", true},
		{"four segments below src", "src/a/b/c/file.ts", false},
		{"deep but no designated root", "vendor/a/b/c/d/e/file.ts", false},
		{"nested repo path", "repo/src/a/b/c/d/file.ts", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Analyze(context.Background(), writeEvent(tt.path, "x"), snap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantBlock {
				if res.Verdict != analyzer.Block {
					t.Fatalf("verdict = %v, want block", res.Verdict)
				}
				if !strings.Contains(res.ReasonCode, "NESTING") {
					t.Errorf("reason = %q, want NESTING", res.ReasonCode)
				}
			} else if res.Verdict != analyzer.Allow {
				t.Errorf("verdict = %v, want allow", res.Verdict)
			}
		})
	}
}

func TestStructureAnalyzer_BarrelFiles(t *testing.T) {
	a := NewStructureAnalyzer()
	snap := defaultSnapshot(t)

	tests := []struct {
		name      string
		path      string
		wantBlock bool
	}{
		{"barrel in components", "src/components/index.ts", true},
		{"barrel in allowed routes dir", "src/routes/index.tsx", false},
		{"barrel in build output", "dist/index.js", false},
		{"index python file is not a barrel", "src/pkg/index.py", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Analyze(context.Background(), writeEvent(tt.path, "export * from './a'"), snap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			gotBlock := res.Verdict == analyzer.Block
			if gotBlock != tt.wantBlock {
				t.Errorf("block = %v, want %v (reason %q)", gotBlock, tt.wantBlock, res.ReasonCode)
			}
			if tt.wantBlock && res.ReasonCode != analyzer.ReasonBarrelViolation {
				t.Errorf("reason = %q, want %q", res.ReasonCode, analyzer.ReasonBarrelViolation)
			}
		})
	}
}

func TestStructureAnalyzer_ComponentLocation(t *testing.T) {
	a := NewStructureAnalyzer()
	snap := defaultSnapshot(t)

	res, err := a.Analyze(context.Background(), writeEvent("src/utils/UserCard.tsx", "export {}"), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict != analyzer.Block || res.ReasonCode != analyzer.ReasonComponentLocation {
		t.Errorf("got %v/%q, want block/%q", res.Verdict, res.ReasonCode, analyzer.ReasonComponentLocation)
	}

	res, err = a.Analyze(context.Background(), writeEvent("src/components/UserCard.tsx", "export {}"), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict != analyzer.Allow {
		t.Errorf("verdict = %v, want allow inside components/", res.Verdict)
	}
}

func TestStructureAnalyzer_HookLocation(t *testing.T) {
	a := NewStructureAnalyzer()
	snap := defaultSnapshot(t)

	res, err := a.Analyze(context.Background(), writeEvent("src/utils/useCart.ts", "export {}"), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict != analyzer.Block || res.ReasonCode != analyzer.ReasonHookLocation {
		t.Errorf("got %v/%q, want block/%q", res.Verdict, res.ReasonCode, analyzer.ReasonHookLocation)
	}

	for _, path := range []string{"src/hooks/useCart.ts", "src/utils/user.ts", "src/utils/useful.ts"} {
		res, err = a.Analyze(context.Background(), writeEvent(path, "export {}"), snap)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Verdict != analyzer.Allow {
			t.Errorf("%s: verdict = %v, want allow", path, res.Verdict)
		}
	}
}

// Nesting is checked before barrel placement, so a deeply nested barrel
// file surfaces the nesting reason.
func TestStructureAnalyzer_CheckOrder(t *testing.T) {
	a := NewStructureAnalyzer()
	snap := defaultSnapshot(t)

	res, err := a.Analyze(context.Background(), writeEvent("src/a/b/c/d/index.ts", "export {}"), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ReasonCode != analyzer.ReasonNestingViolation {
		t.Errorf("reason = %q, want %q first", res.ReasonCode, analyzer.ReasonNestingViolation)
	}
}
