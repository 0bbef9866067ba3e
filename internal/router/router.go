// Package router classifies user prompts by task type and routes them to
// the best model. Classification is lightweight keyword matching with no
// network calls.
package router

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Category is a high-level kind of task a user might request.
type Category string

const (
	CategoryCodeGeneration Category = "code_generation"
	CategoryCodeReview     Category = "code_review"
	CategoryDebugging      Category = "debugging"
	CategoryResearch       Category = "research"
	CategoryRefactoring    Category = "refactoring"
	CategoryCreative       Category = "creative"
	CategoryGeneral        Category = "general"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryCodeGeneration,
	CategoryCodeReview,
	CategoryDebugging,
	CategoryResearch,
	CategoryRefactoring,
	CategoryCreative,
	CategoryGeneral,
}

// keywordSignals maps each category to the phrases that signal it.
var keywordSignals = map[Category][]string{
	CategoryCodeGeneration: {
		"write", "create", "implement", "build", "add feature",
		"generate", "scaffold", "make a", "new function", "new class",
	},
	CategoryCodeReview: {
		"review", "check", "audit", "analyze code", "find bugs",
		"look at this", "what's wrong", "code quality",
	},
	CategoryDebugging: {
		"fix", "debug", "error", "broken", "failing", "crash",
		"not working", "bug", "traceback", "exception",
	},
	CategoryResearch: {
		"explain", "how does", "what is", "compare", "research",
		"learn about", "tell me about", "difference between",
	},
	CategoryRefactoring: {
		"refactor", "improve", "optimize", "clean up", "simplify",
		"restructure", "reorganize", "rename",
	},
	CategoryCreative: {
		"write a story", "poem", "brainstorm", "marketing",
		"name ideas", "tagline", "creative", "slogan",
	},
}

// keywordPatterns holds the compiled, word-anchored form of keywordSignals.
var keywordPatterns = compileSignals()

func compileSignals() map[Category][]*regexp.Regexp {
	out := make(map[Category][]*regexp.Regexp, len(keywordSignals))
	for cat, keywords := range keywordSignals {
		patterns := make([]*regexp.Regexp, 0, len(keywords))
		for _, kw := range keywords {
			patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)))
		}
		out[cat] = patterns
	}
	return out
}

// DefaultRoutes maps categories to their built-in OpenRouter model IDs.
// An empty value means "use the configured default model".
var DefaultRoutes = map[Category]string{
	CategoryCodeGeneration: "anthropic/claude-sonnet-4.5",
	CategoryCodeReview:     "google/gemini-2.5-pro",
	CategoryDebugging:      "anthropic/claude-sonnet-4.5",
	CategoryResearch:       "deepseek/deepseek-r1",
	CategoryRefactoring:    "anthropic/claude-sonnet-4.5",
	CategoryCreative:       "openai/gpt-4.1",
	CategoryGeneral:        "",
}

const (
	// relevanceThreshold is the minimum confidence for a category to be
	// included in classification results.
	relevanceThreshold = 0.1
	// crewSuggestThreshold: when 2+ categories exceed this, a crew run
	// is suggested instead of a single model.
	crewSuggestThreshold = 0.3
)

// Score is one classified category with its confidence.
type Score struct {
	Category   Category
	Confidence float64
}

// Classify scores prompt against the keyword signal table.
//
// Returns scores sorted by confidence descending; only categories at or
// above the relevance threshold are included. Confidence is keyword hit
// count relative to the best-matching category. A prompt matching nothing
// classifies as general with confidence 1.0.
func Classify(prompt string) []Score {
	text := strings.ToLower(prompt)

	hits := make(map[Category]int)
	maxHits := 0
	for cat, patterns := range keywordPatterns {
		n := 0
		for _, p := range patterns {
			if p.MatchString(text) {
				n++
			}
		}
		if n > 0 {
			hits[cat] = n
			if n > maxHits {
				maxHits = n
			}
		}
	}

	if len(hits) == 0 {
		return []Score{{Category: CategoryGeneral, Confidence: 1.0}}
	}

	var results []Score
	for cat, n := range hits {
		confidence := math.Round(float64(n)/float64(maxHits)*100) / 100
		if confidence >= relevanceThreshold {
			results = append(results, Score{Category: cat, Confidence: confidence})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Category < results[j].Category
	})
	return results
}

// Decision is the outcome of routing a prompt.
type Decision struct {
	Model      string
	Category   Category
	Confidence float64
	Reasoning  string
	// SuggestCrew is set when multiple strong task signals are present
	// and a multi-agent crew run would fit better than a single model.
	SuggestCrew bool
}

// categoryLabels gives human-friendly names for the reasoning string.
var categoryLabels = map[Category]string{
	CategoryCodeGeneration: "code generation",
	CategoryCodeReview:     "code review",
	CategoryDebugging:      "debugging",
	CategoryResearch:       "research",
	CategoryRefactoring:    "refactoring",
	CategoryCreative:       "creative writing",
	CategoryGeneral:        "general",
}

// modelShortNames gives display names for the reasoning string.
var modelShortNames = map[string]string{
	"anthropic/claude-sonnet-4.5": "Claude Sonnet 4.5",
	"google/gemini-2.5-pro":       "Gemini 2.5 Pro",
	"deepseek/deepseek-r1":        "DeepSeek R1",
	"openai/gpt-4.1":              "GPT-4.1",
}

// Router routes prompts to models based on task classification.
type Router struct {
	defaultModel string
	overrides    map[string]string
}

// New creates a router. defaultModel is the fallback when no category
// matches; overrides maps category names to model IDs and takes precedence
// over DefaultRoutes.
func New(defaultModel string, overrides map[string]string) *Router {
	if overrides == nil {
		overrides = map[string]string{}
	}
	return &Router{defaultModel: defaultModel, overrides: overrides}
}

// Route classifies prompt and returns the routing decision.
func (r *Router) Route(prompt string) Decision {
	ranked := Classify(prompt)
	top := ranked[0]

	model := r.resolveModel(top.Category)

	strong := 0
	for _, s := range ranked {
		if s.Confidence >= crewSuggestThreshold {
			strong++
		}
	}

	label := categoryLabels[top.Category]
	short, ok := modelShortNames[model]
	if !ok {
		parts := strings.Split(model, "/")
		short = parts[len(parts)-1]
	}

	return Decision{
		Model:       model,
		Category:    top.Category,
		Confidence:  top.Confidence,
		Reasoning:   fmt.Sprintf("Detected %s task -> routing to %s", label, short),
		SuggestCrew: strong >= 2,
	}
}

// RouteTable returns the effective category-to-model table, defaults merged
// with overrides. Used to display the current routing config.
func (r *Router) RouteTable() map[Category]string {
	table := make(map[Category]string, len(Categories))
	for _, cat := range Categories {
		table[cat] = r.resolveModel(cat)
	}
	return table
}

// resolveModel picks the model for a category.
// Resolution order: user overrides, then DefaultRoutes, then defaultModel.
func (r *Router) resolveModel(cat Category) string {
	if override := r.overrides[string(cat)]; override != "" {
		return override
	}
	if route := DefaultRoutes[cat]; route != "" {
		return route
	}
	return r.defaultModel
}
