// Package tools implements the built-in tool framework: a registry of
// shell, file, test and lint tools the model can invoke from its responses,
// plus the permission-gated executor loop that runs them.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Permission controls whether a tool execution requires user approval.
type Permission string

const (
	// PermissionAuto executes without asking.
	PermissionAuto Permission = "auto"
	// PermissionAsk prompts the user before executing.
	PermissionAsk Permission = "ask"
	// PermissionDeny never executes.
	PermissionDeny Permission = "deny"
)

// Result is the outcome of a single tool invocation.
type Result struct {
	Success bool
	Output  string
	Error   string
}

// errorf builds a failed Result with a formatted error message.
func errorf(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Tool is a built-in capability the model can invoke.
type Tool interface {
	// Name is the identifier the model uses in tool_call blocks.
	Name() string
	// Description documents the tool and its arguments for the system prompt.
	Description() string
	// Permission is the tool's declared approval level.
	Permission() Permission
	// Execute runs the tool with the given arguments inside cwd.
	Execute(ctx context.Context, args map[string]any, cwd string) Result
}

// Registry maps tool names to Tool implementations.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a registry with every built-in tool registered.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range []Tool{
		&ShellTool{},
		&ReadFileTool{},
		&WriteFileTool{},
		&RunTestsTool{},
		&LintTool{},
	} {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get looks up a tool by name, returning nil if not found.
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// All returns every registered tool, sorted by name.
func (r *Registry) All() []Tool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Descriptions formats the tool list for inclusion in system prompts.
func (r *Registry) Descriptions() string {
	var b strings.Builder
	b.WriteString("Available tools:")
	for _, t := range r.All() {
		fmt.Fprintf(&b, "\n  - %s [%s]: %s", t.Name(), t.Permission(), t.Description())
	}
	return b.String()
}

// stringArg extracts a string argument by key, empty if missing or wrong type.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg extracts an integer argument by key. JSON numbers decode as float64.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// truncate caps s at max characters.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
