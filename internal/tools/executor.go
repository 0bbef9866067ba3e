package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codeswap/codeswap/internal/api"
)

// defaultMaxRounds caps tool-use round-trips per user turn.
const defaultMaxRounds = 5

// StreamFunc calls the model with the conversation so far and returns the
// assistant's reply text.
type StreamFunc func(ctx context.Context, messages []api.Message) (string, error)

// ConfirmFunc asks the user whether an ask-level tool may run. It receives
// the tool name and pretty-printed arguments.
type ConfirmFunc func(toolName, argsJSON string) bool

// Executor manages tool execution with permission prompts and multi-round
// loops: parse tool calls from a response, check permission, execute, inject
// results, call the model again, and repeat until the model replies without
// tool calls or the round limit is hit.
type Executor struct {
	registry  *Registry
	yolo      bool
	maxRounds int
	cwd       string

	// Confirm handles ask-level permission prompts. When nil, ask-level
	// tools are denied.
	Confirm ConfirmFunc
	// Notify receives progress lines for display. May be nil.
	Notify func(format string, args ...any)
}

// NewExecutor creates an executor over registry, running tools in cwd.
func NewExecutor(registry *Registry, cwd string, yolo bool) *Executor {
	return &Executor{
		registry:  registry,
		yolo:      yolo,
		maxRounds: defaultMaxRounds,
		cwd:       cwd,
	}
}

// SetYolo toggles yolo mode, which runs every tool without asking.
func (e *Executor) SetYolo(v bool) { e.yolo = v }

// Yolo reports whether tools execute without user confirmation.
func (e *Executor) Yolo() bool { return e.yolo }

// SetCwd changes the working directory passed to tools.
func (e *Executor) SetCwd(cwd string) { e.cwd = cwd }

// SetMaxRounds overrides the tool-loop round limit. Values below 1 are
// ignored.
func (e *Executor) SetMaxRounds(n int) {
	if n >= 1 {
		e.maxRounds = n
	}
}

// SystemPrompt returns the tool-use fragment to append to the model's
// system prompt.
func (e *Executor) SystemPrompt() string {
	return SystemPrompt(e.registry)
}

// notify emits a progress line if a Notify handler is set.
func (e *Executor) notify(format string, args ...any) {
	if e.Notify != nil {
		e.Notify(format, args...)
	}
}

// ProcessResponse processes a model response, executing any embedded tool
// calls. messages is the conversation so far; tool results and follow-up
// assistant replies are appended to it. Returns the model's final reply that
// contained no tool calls, with the updated history.
//
// Hitting the round limit is reported through Notify, not as an error.
func (e *Executor) ProcessResponse(ctx context.Context, responseText string, messages []api.Message, stream StreamFunc) (string, []api.Message, error) {
	current := responseText

	rounds := 0
	for rounds < e.maxRounds {
		calls := ParseToolCalls(current)
		if len(calls) == 0 {
			break
		}
		rounds++

		plural := ""
		if len(calls) != 1 {
			plural = "s"
		}
		e.notify("Tool round %d/%d (%d call%s)", rounds, e.maxRounds, len(calls), plural)

		results := make([]string, 0, len(calls))
		for _, call := range calls {
			results = append(results, e.handleCall(ctx, call))
		}

		messages = append(messages,
			api.Message{Role: "assistant", Content: current},
			api.Message{Role: "user", Content: strings.Join(results, "\n\n")},
		)

		next, err := stream(ctx, messages)
		if err != nil {
			return current, messages, fmt.Errorf("tool follow-up call: %w", err)
		}
		current = next
	}

	if rounds >= e.maxRounds {
		e.notify("Tool loop hit the %d-round limit; the model may still want to use tools", e.maxRounds)
	}
	return current, messages, nil
}

// handleCall looks up, permission-checks, executes, and formats one call.
func (e *Executor) handleCall(ctx context.Context, call ToolCall) string {
	tool := e.registry.Get(call.Tool)
	if tool == nil {
		e.notify("Unknown tool: %s", call.Tool)
		return FormatToolResult(call.Tool, errorf("Unknown tool: %s", call.Tool))
	}

	if !e.allowed(tool, call.Arguments) {
		e.notify("Skipped %s", call.Tool)
		return FormatToolResult(call.Tool, errorf("Tool '%s' was denied by the user", call.Tool))
	}

	result := tool.Execute(ctx, call.Arguments, e.cwd)
	if result.Success {
		e.notify("%s succeeded", call.Tool)
	} else {
		e.notify("%s failed: %s", call.Tool, truncate(result.Error, 200))
	}
	return FormatToolResult(call.Tool, result)
}

// allowed decides whether a tool invocation may run.
//
// Deny-level tools are always blocked. Auto-level tools and yolo mode always
// run. Ask-level tools go through Confirm.
func (e *Executor) allowed(tool Tool, args map[string]any) bool {
	switch tool.Permission() {
	case PermissionDeny:
		e.notify("Tool '%s' is denied and will not execute", tool.Name())
		return false
	case PermissionAuto:
		return true
	}
	if e.yolo {
		return true
	}
	if e.Confirm == nil {
		return false
	}

	pretty, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		pretty = []byte(fmt.Sprintf("%v", args))
	}
	return e.Confirm(tool.Name(), string(pretty))
}
