package crew

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/codeswap/codeswap/internal/api"
	"github.com/codeswap/codeswap/internal/config"
	"github.com/codeswap/codeswap/internal/tools"
	"github.com/codeswap/codeswap/pkg/models"
)

// maxParallelAgents bounds how many model calls overlap during execution.
const maxParallelAgents = 3

// eventBuffer sizes the progress event channel.
const eventBuffer = 256

// CompletionClient is the transport the engine calls models through.
type CompletionClient interface {
	Complete(ctx context.Context, model string, messages []api.Message, maxTokens int) (string, api.Usage, error)
	Stream(ctx context.Context, model string, messages []api.Message, maxTokens int, onDelta func(string)) (string, api.Usage, error)
}

// Engine orchestrates one crew run through the plan, execute, and
// synthesize phases. An Engine is single-use: create one per run, consume
// Events() until it closes.
type Engine struct {
	client CompletionClient
	crew   *models.CrewConfig
	tools  *tools.Executor
	events chan Event

	mu        sync.Mutex
	totalCost float64
}

// NewEngine creates an engine for one run of the given crew.
func NewEngine(client CompletionClient, cfg *models.CrewConfig) *Engine {
	return &Engine{
		client: client,
		crew:   cfg,
		events: make(chan Event, eventBuffer),
	}
}

// WithTools lets agent responses go through the tool-use loop. The
// executor's own permission gating applies to every call.
func (e *Engine) WithTools(ex *tools.Executor) *Engine {
	e.tools = ex
	return e
}

// Events returns the progress stream. It is closed after the terminal
// event (crew_done or error) is delivered.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// TotalCost returns the accumulated USD spend so far.
func (e *Engine) TotalCost() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalCost
}

// addCost records spend from one completed model call.
func (e *Engine) addCost(c float64) {
	e.mu.Lock()
	e.totalCost += c
	e.mu.Unlock()
}

// overBudget reports whether cumulative spend has reached the crew budget.
// The check and a later spend are not atomic: two subtasks can both pass
// the check before either records cost, so the budget is a best-effort
// ceiling rather than a hard cap.
func (e *Engine) overBudget() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalCost >= e.crew.BudgetLimitUSD
}

// emit delivers a state-transition event. These are never dropped.
func (e *Engine) emit(ev Event) {
	e.events <- ev
}

// emitDelta delivers a streamed text fragment, dropping it if the consumer
// is behind. Deltas are cosmetic; state events carry the real progress.
func (e *Engine) emitDelta(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}

// Execute runs the full plan -> execute -> synthesize pipeline for one
// user task. It always delivers a terminal event and then closes the event
// channel. The returned error is non-nil exactly when the run status is
// failed; the run itself is returned either way.
func (e *Engine) Execute(ctx context.Context, userTask string) (*models.CrewRun, error) {
	defer close(e.events)

	run := &models.CrewRun{
		RunID:     strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Crew:      e.crew,
		UserTask:  userTask,
		Status:    models.RunPlanning,
		StartTime: time.Now(),
	}

	e.emit(Event{Type: EventCrewStart, RunID: run.RunID, Agents: e.crew.AgentNames()})

	orchestrator := e.crew.Agents[e.crew.Orchestrator]

	// Phase 1: planning.
	subtasks, err := e.plan(ctx, orchestrator, userTask)
	if err != nil {
		return e.fail(run, err)
	}
	run.Subtasks = subtasks

	planned := make([]PlannedSubtask, 0, len(subtasks))
	for _, st := range subtasks {
		planned = append(planned, PlannedSubtask{ID: st.ID, Description: st.Description, AssignedTo: st.AssignedTo})
	}
	e.emit(Event{Type: EventPlan, RunID: run.RunID, Subtasks: planned})

	// Phase 2: bounded-parallel execution.
	run.Status = models.RunExecuting
	sem := semaphore.NewWeighted(maxParallelAgents)
	var wg sync.WaitGroup
	for _, st := range subtasks {
		wg.Add(1)
		go func(st *models.Subtask) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				st.Status = models.SubtaskFailed
				st.Result = err.Error()
				return
			}
			defer sem.Release(1)
			e.executeSubtask(ctx, st)
		}(st)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return e.fail(run, ctx.Err())
	}

	// Phase 3: synthesis.
	run.Status = models.RunSynthesizing
	final, err := e.synthesize(ctx, orchestrator, run)
	if err != nil {
		return e.fail(run, err)
	}
	run.FinalResult = final
	run.Status = models.RunDone

	e.emit(Event{Type: EventCrewDone, RunID: run.RunID, TotalCost: e.TotalCost()})
	return run, nil
}

// fail marks the run failed, emits the terminal error event, and returns
// the run alongside the error.
func (e *Engine) fail(run *models.CrewRun, err error) (*models.CrewRun, error) {
	run.Status = models.RunFailed
	run.FinalResult = fmt.Sprintf("Crew execution failed: %v", err)
	e.emit(Event{Type: EventError, RunID: run.RunID, Message: err.Error()})
	return run, err
}

// plan asks the orchestrator to decompose the task into subtasks.
func (e *Engine) plan(ctx context.Context, orchestrator models.AgentDef, userTask string) ([]*models.Subtask, error) {
	specialists := e.crew.SpecialistNames()

	messages := []api.Message{
		{Role: "system", Content: orchestrator.SystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Break this task into subtasks and assign each to one of these agents: %s\n\n"+
				"Task: %s\n\n"+
				`Respond with JSON only: {"subtasks": [{"id": "1", "description": "...", "assign_to": "agent_name"}]}`,
			strings.Join(specialists, ", "), userTask)},
	}

	text, usage, err := e.client.Complete(ctx, orchestrator.Model, messages, orchestrator.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("planning call: %w", err)
	}
	e.addCost(config.EstimateCost(orchestrator.Model, usage.InputTokens, usage.OutputTokens))

	return parsePlan(e.crew, text, userTask), nil
}

// executeSubtask runs one subtask with its assigned agent, retrying once
// on error. Failures are recorded on the subtask, never propagated.
func (e *Engine) executeSubtask(ctx context.Context, st *models.Subtask) {
	agent, ok := e.crew.Agents[st.AssignedTo]
	if !ok {
		st.Status = models.SubtaskFailed
		st.Result = fmt.Sprintf("Agent '%s' not found", st.AssignedTo)
		return
	}

	st.Status = models.SubtaskRunning
	e.emit(Event{Type: EventAgentStart, Agent: st.AssignedTo, SubtaskID: st.ID, Model: agent.Model})

	if e.overBudget() {
		st.Status = models.SubtaskFailed
		st.Result = "Budget limit exceeded"
		e.emit(Event{Type: EventAgentDone, Agent: st.AssignedTo, SubtaskID: st.ID})
		return
	}

	messages := []api.Message{
		{Role: "system", Content: agent.SystemPrompt},
		{Role: "user", Content: st.Description},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		text, usage, err := e.runAgentTurn(ctx, agent, st, messages)
		if err != nil {
			lastErr = err
			continue
		}
		st.Result = text
		st.InputTokens = usage.InputTokens
		st.OutputTokens = usage.OutputTokens
		st.CostUSD = config.EstimateCost(agent.Model, usage.InputTokens, usage.OutputTokens)
		e.addCost(st.CostUSD)
		st.Status = models.SubtaskDone
		lastErr = nil
		break
	}

	if lastErr != nil {
		st.Status = models.SubtaskFailed
		st.Result = fmt.Sprintf("Failed after retry: %v", lastErr)
	}

	e.emit(Event{
		Type:         EventAgentDone,
		Agent:        st.AssignedTo,
		SubtaskID:    st.ID,
		InputTokens:  st.InputTokens,
		OutputTokens: st.OutputTokens,
		CostUSD:      st.CostUSD,
	})
}

// runAgentTurn streams one agent call and, when a tool executor is wired,
// drives the tool-use loop over the response. Returns the final text with
// the accumulated usage across the initial call and any follow-ups.
func (e *Engine) runAgentTurn(ctx context.Context, agent models.AgentDef, st *models.Subtask, messages []api.Message) (string, api.Usage, error) {
	text, usage, err := e.client.Stream(ctx, agent.Model, messages, agent.MaxTokens, func(delta string) {
		e.emitDelta(Event{Type: EventAgentDelta, Agent: st.AssignedTo, SubtaskID: st.ID, Text: delta})
	})
	if err != nil {
		return "", api.Usage{}, err
	}

	if e.tools == nil {
		return text, usage, nil
	}

	followUp := func(ctx context.Context, msgs []api.Message) (string, error) {
		t, u, err := e.client.Complete(ctx, agent.Model, msgs, agent.MaxTokens)
		if err != nil {
			return "", err
		}
		usage.InputTokens += u.InputTokens
		usage.OutputTokens += u.OutputTokens
		return t, nil
	}

	final, _, err := e.tools.ProcessResponse(ctx, text, messages, followUp)
	if err != nil {
		return "", api.Usage{}, err
	}
	return final, usage, nil
}

// synthesize merges all subtask results into one final answer. When the
// budget is already spent, synthesis is skipped and the caller gets an
// explanatory result instead.
func (e *Engine) synthesize(ctx context.Context, orchestrator models.AgentDef, run *models.CrewRun) (string, error) {
	if e.overBudget() {
		return "Budget limit reached before synthesis. " +
			"Raw agent results are available in the subtask list.", nil
	}

	var summary strings.Builder
	for i, st := range run.Subtasks {
		if i > 0 {
			summary.WriteString("\n\n")
		}
		fmt.Fprintf(&summary, "## Agent: %s (Task: %s)\nStatus: %s\nResult:\n%s",
			st.AssignedTo, st.Description, st.Status, st.Result)
	}

	messages := []api.Message{
		{Role: "system", Content: orchestrator.SystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Original task: %s\n\nHere are the results from each agent:\n\n%s\n\n"+
				"Synthesize these into a coherent, complete final response.",
			run.UserTask, summary.String())},
	}

	text, usage, err := e.client.Stream(ctx, orchestrator.Model, messages, orchestrator.MaxTokens, func(delta string) {
		e.emitDelta(Event{Type: EventSynthesisDelta, Text: delta})
	})
	if err != nil {
		return "", fmt.Errorf("synthesis call: %w", err)
	}
	e.addCost(config.EstimateCost(orchestrator.Model, usage.InputTokens, usage.OutputTokens))
	return text, nil
}
