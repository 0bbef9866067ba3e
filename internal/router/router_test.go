package router

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		top    Category
	}{
		{"debugging", "fix this crashing function", CategoryDebugging},
		{"code generation", "implement a new function to scaffold the project", CategoryCodeGeneration},
		{"research", "explain how does a bloom filter work", CategoryResearch},
		{"refactoring", "refactor and simplify this module", CategoryRefactoring},
		{"creative", "brainstorm name ideas and a tagline", CategoryCreative},
		{"code review", "audit this module for code quality", CategoryCodeReview},
		{"general fallback", "hello there", CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := Classify(tt.prompt)
			if len(ranked) == 0 {
				t.Fatal("no classification returned")
			}
			if ranked[0].Category != tt.top {
				t.Errorf("top category = %s, want %s (full: %v)", ranked[0].Category, tt.top, ranked)
			}
		})
	}
}

func TestClassifyGeneralConfidence(t *testing.T) {
	ranked := Classify("good morning")
	if len(ranked) != 1 || ranked[0].Category != CategoryGeneral || ranked[0].Confidence != 1.0 {
		t.Errorf("got %v, want general at 1.0", ranked)
	}
}

func TestClassifySortedDescending(t *testing.T) {
	// Hits both debugging (fix, bug) and review (review) signals.
	ranked := Classify("review this bug fix")
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Confidence < ranked[i].Confidence {
			t.Errorf("results not sorted: %v", ranked)
		}
	}
	if ranked[0].Confidence != 1.0 {
		t.Errorf("top confidence = %v, want 1.0", ranked[0].Confidence)
	}
}

func TestClassifyWordBoundary(t *testing.T) {
	// "prefix" must not hit the "fix" keyword.
	ranked := Classify("what a nice prefix")
	for _, s := range ranked {
		if s.Category == CategoryDebugging {
			t.Errorf("substring matched across a word boundary: %v", ranked)
		}
	}
}

func TestRoute(t *testing.T) {
	r := New("fallback/model", nil)

	t.Run("debugging routes to sonnet", func(t *testing.T) {
		d := r.Route("fix this crashing function")
		if d.Model != "anthropic/claude-sonnet-4.5" {
			t.Errorf("model = %q", d.Model)
		}
		if d.Category != CategoryDebugging {
			t.Errorf("category = %s", d.Category)
		}
		if !strings.Contains(d.Reasoning, "debugging") {
			t.Errorf("reasoning = %q", d.Reasoning)
		}
	})

	t.Run("general falls back to default model", func(t *testing.T) {
		d := r.Route("hello")
		if d.Model != "fallback/model" {
			t.Errorf("model = %q, want fallback", d.Model)
		}
		if d.Confidence != 1.0 {
			t.Errorf("confidence = %v", d.Confidence)
		}
	})

	t.Run("research routes to deepseek", func(t *testing.T) {
		d := r.Route("explain what is a goroutine")
		if d.Model != "deepseek/deepseek-r1" {
			t.Errorf("model = %q", d.Model)
		}
	})
}

func TestRouteOverrides(t *testing.T) {
	r := New("fallback/model", map[string]string{
		"debugging": "custom/debug-model",
	})

	d := r.Route("fix this broken test")
	if d.Model != "custom/debug-model" {
		t.Errorf("model = %q, want override", d.Model)
	}

	// Other categories keep their defaults.
	d = r.Route("explain what is a channel")
	if d.Model != "deepseek/deepseek-r1" {
		t.Errorf("model = %q, want built-in route", d.Model)
	}
}

func TestRouteSuggestCrew(t *testing.T) {
	t.Run("multiple strong signals suggest a crew", func(t *testing.T) {
		// Debugging (fix, bug) and refactoring (refactor, clean up) both
		// score well above the suggestion threshold.
		d := New("m", nil).Route("fix the bug then refactor and clean up the module")
		if !d.SuggestCrew {
			t.Error("expected a crew suggestion for a multi-category prompt")
		}
	})

	t.Run("single signal does not", func(t *testing.T) {
		d := New("m", nil).Route("fix the crash")
		if d.SuggestCrew {
			t.Error("single-category prompt should not suggest a crew")
		}
	})
}

func TestRouteTable(t *testing.T) {
	r := New("fallback/model", map[string]string{"creative": "x/y"})
	table := r.RouteTable()

	if len(table) != len(Categories) {
		t.Fatalf("table has %d entries, want %d", len(table), len(Categories))
	}
	if table[CategoryGeneral] != "fallback/model" {
		t.Errorf("general = %q, want fallback", table[CategoryGeneral])
	}
	if table[CategoryCreative] != "x/y" {
		t.Errorf("creative = %q, want override", table[CategoryCreative])
	}
	if table[CategoryCodeReview] != "google/gemini-2.5-pro" {
		t.Errorf("code_review = %q", table[CategoryCodeReview])
	}
}
