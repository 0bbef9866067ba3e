package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/codeswap/codeswap/internal/api"
)

// fakeTool records invocations and returns a canned result.
type fakeTool struct {
	name    string
	perm    Permission
	result  Result
	invoked int
}

func (f *fakeTool) Name() string           { return f.name }
func (f *fakeTool) Description() string    { return "test tool" }
func (f *fakeTool) Permission() Permission { return f.perm }

func (f *fakeTool) Execute(ctx context.Context, args map[string]any, cwd string) Result {
	f.invoked++
	return f.result
}

func testRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func callBlock(name string) string {
	return `<tool_call>{"tool": "` + name + `", "arguments": {}}</tool_call>`
}

func TestProcessResponseNoToolCalls(t *testing.T) {
	ex := NewExecutor(testRegistry(), t.TempDir(), false)

	final, messages, err := ex.ProcessResponse(context.Background(), "plain answer", nil,
		func(ctx context.Context, m []api.Message) (string, error) {
			t.Fatal("stream should not be called without tool calls")
			return "", nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if final != "plain answer" {
		t.Errorf("final = %q", final)
	}
	if len(messages) != 0 {
		t.Errorf("messages should be untouched, got %d", len(messages))
	}
}

func TestProcessResponseSingleRound(t *testing.T) {
	tool := &fakeTool{name: "probe", perm: PermissionAuto, result: Result{Success: true, Output: "probed"}}
	ex := NewExecutor(testRegistry(tool), t.TempDir(), false)

	response := "checking " + callBlock("probe")
	final, messages, err := ex.ProcessResponse(context.Background(), response, nil,
		func(ctx context.Context, m []api.Message) (string, error) {
			return "all done", nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if final != "all done" {
		t.Errorf("final = %q, want all done", final)
	}
	if tool.invoked != 1 {
		t.Errorf("tool invoked %d times, want 1", tool.invoked)
	}

	// One round appends the assistant message and one user message with results.
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Role != "assistant" || messages[0].Content != response {
		t.Errorf("first appended message = %+v", messages[0])
	}
	if messages[1].Role != "user" || !strings.Contains(messages[1].Content, "probed") {
		t.Errorf("second appended message = %+v", messages[1])
	}
}

func TestProcessResponseAggregatesCallsPerRound(t *testing.T) {
	a := &fakeTool{name: "alpha", perm: PermissionAuto, result: Result{Success: true, Output: "A"}}
	b := &fakeTool{name: "beta", perm: PermissionAuto, result: Result{Success: true, Output: "B"}}
	ex := NewExecutor(testRegistry(a, b), t.TempDir(), false)

	response := callBlock("alpha") + "\n" + callBlock("beta")
	_, messages, err := ex.ProcessResponse(context.Background(), response, nil,
		func(ctx context.Context, m []api.Message) (string, error) {
			return "done", nil
		})
	if err != nil {
		t.Fatal(err)
	}

	// Two calls in one response still produce exactly two appended messages:
	// both results land in a single user message.
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	results := messages[1].Content
	if !strings.Contains(results, `tool="alpha"`) || !strings.Contains(results, `tool="beta"`) {
		t.Errorf("aggregated results missing a tool: %q", results)
	}
}

func TestProcessResponseRoundLimit(t *testing.T) {
	tool := &fakeTool{name: "loop", perm: PermissionAuto, result: Result{Success: true, Output: "again"}}
	ex := NewExecutor(testRegistry(tool), t.TempDir(), false)

	var warned bool
	ex.Notify = func(format string, args ...any) {
		if strings.Contains(format, "round limit") {
			warned = true
		}
	}

	// The model keeps asking for tools forever.
	_, _, err := ex.ProcessResponse(context.Background(), callBlock("loop"), nil,
		func(ctx context.Context, m []api.Message) (string, error) {
			return callBlock("loop"), nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if tool.invoked != defaultMaxRounds {
		t.Errorf("tool invoked %d times, want %d", tool.invoked, defaultMaxRounds)
	}
	if !warned {
		t.Error("expected a round-limit warning through Notify")
	}
}

func TestProcessResponseCustomRoundLimit(t *testing.T) {
	tool := &fakeTool{name: "loop", perm: PermissionAuto, result: Result{Success: true, Output: "again"}}
	ex := NewExecutor(testRegistry(tool), t.TempDir(), false)
	ex.SetMaxRounds(2)

	_, _, err := ex.ProcessResponse(context.Background(), callBlock("loop"), nil,
		func(ctx context.Context, m []api.Message) (string, error) {
			return callBlock("loop"), nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if tool.invoked != 2 {
		t.Errorf("tool invoked %d times, want the configured limit of 2", tool.invoked)
	}

	// Nonsense limits leave the previous value in place.
	ex.SetMaxRounds(0)
	if ex.maxRounds != 2 {
		t.Errorf("maxRounds = %d after SetMaxRounds(0), want 2", ex.maxRounds)
	}
}

func TestProcessResponseUnknownTool(t *testing.T) {
	ex := NewExecutor(testRegistry(), t.TempDir(), false)

	_, messages, err := ex.ProcessResponse(context.Background(), callBlock("ghost"), nil,
		func(ctx context.Context, m []api.Message) (string, error) {
			return "recovered", nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(messages[1].Content, "Unknown tool: ghost") {
		t.Errorf("result should report the unknown tool: %q", messages[1].Content)
	}
}

func TestPermissionGate(t *testing.T) {
	ctx := context.Background()

	t.Run("deny always blocked even in yolo", func(t *testing.T) {
		tool := &fakeTool{name: "nope", perm: PermissionDeny, result: Result{Success: true}}
		ex := NewExecutor(testRegistry(tool), t.TempDir(), true)

		_, messages, err := ex.ProcessResponse(ctx, callBlock("nope"), nil,
			func(ctx context.Context, m []api.Message) (string, error) { return "x", nil })
		if err != nil {
			t.Fatal(err)
		}
		if tool.invoked != 0 {
			t.Error("deny-level tool must never execute")
		}
		if !strings.Contains(messages[1].Content, "denied") {
			t.Errorf("result should report the denial: %q", messages[1].Content)
		}
	})

	t.Run("ask without confirm handler is denied", func(t *testing.T) {
		tool := &fakeTool{name: "careful", perm: PermissionAsk, result: Result{Success: true}}
		ex := NewExecutor(testRegistry(tool), t.TempDir(), false)

		_, _, err := ex.ProcessResponse(ctx, callBlock("careful"), nil,
			func(ctx context.Context, m []api.Message) (string, error) { return "x", nil })
		if err != nil {
			t.Fatal(err)
		}
		if tool.invoked != 0 {
			t.Error("ask-level tool ran without confirmation")
		}
	})

	t.Run("ask runs when confirmed", func(t *testing.T) {
		tool := &fakeTool{name: "careful", perm: PermissionAsk, result: Result{Success: true, Output: "ok"}}
		ex := NewExecutor(testRegistry(tool), t.TempDir(), false)
		ex.Confirm = func(name, argsJSON string) bool { return name == "careful" }

		_, _, err := ex.ProcessResponse(ctx, callBlock("careful"), nil,
			func(ctx context.Context, m []api.Message) (string, error) { return "x", nil })
		if err != nil {
			t.Fatal(err)
		}
		if tool.invoked != 1 {
			t.Error("confirmed ask-level tool should run")
		}
	})

	t.Run("yolo skips confirmation", func(t *testing.T) {
		tool := &fakeTool{name: "careful", perm: PermissionAsk, result: Result{Success: true}}
		ex := NewExecutor(testRegistry(tool), t.TempDir(), true)

		_, _, err := ex.ProcessResponse(ctx, callBlock("careful"), nil,
			func(ctx context.Context, m []api.Message) (string, error) { return "x", nil })
		if err != nil {
			t.Fatal(err)
		}
		if tool.invoked != 1 {
			t.Error("yolo mode should run ask-level tools without prompting")
		}
	})
}
