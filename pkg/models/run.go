package models

import "time"

// SubtaskStatus represents the lifecycle state of a planned subtask.
type SubtaskStatus string

const (
	// SubtaskPending indicates the subtask has been planned but not dispatched.
	SubtaskPending SubtaskStatus = "pending"
	// SubtaskRunning indicates the subtask is executing against a model.
	SubtaskRunning SubtaskStatus = "running"
	// SubtaskDone indicates the subtask completed successfully.
	SubtaskDone SubtaskStatus = "done"
	// SubtaskFailed indicates the subtask failed after its retry.
	SubtaskFailed SubtaskStatus = "failed"
)

// RunStatus represents the phase of a crew run.
type RunStatus string

const (
	// RunPlanning is the orchestrator decomposition phase.
	RunPlanning RunStatus = "planning"
	// RunExecuting is the bounded-parallel subtask phase.
	RunExecuting RunStatus = "executing"
	// RunSynthesizing is the final merge phase.
	RunSynthesizing RunStatus = "synthesizing"
	// RunDone indicates the run completed.
	RunDone RunStatus = "done"
	// RunFailed indicates the pipeline itself failed.
	RunFailed RunStatus = "failed"
)

// Subtask is a single unit of work produced by the planning phase.
// A subtask is mutated only by the goroutine executing it.
type Subtask struct {
	// ID is the plan-assigned identifier (usually "1", "2", ...).
	ID string `json:"id"`
	// Description is what the assigned agent is asked to do.
	Description string `json:"description"`
	// AssignedTo is the name of the agent executing this subtask.
	AssignedTo string `json:"assigned_to"`
	// Status tracks the subtask lifecycle.
	Status SubtaskStatus `json:"status"`
	// Result holds the agent's answer, or a failure reason.
	Result string `json:"result,omitempty"`
	// InputTokens is the prompt token count reported for this subtask.
	InputTokens int `json:"input_tokens"`
	// OutputTokens is the completion token count reported for this subtask.
	OutputTokens int `json:"output_tokens"`
	// CostUSD is the estimated spend for this subtask.
	CostUSD float64 `json:"cost_usd"`
}

// CrewRun tracks the state of one complete crew execution.
// A run is created per Execute call and never reused.
type CrewRun struct {
	// RunID is a short unique identifier for this run.
	RunID string `json:"run_id"`
	// Crew is the configuration this run executed under.
	Crew *CrewConfig `json:"crew"`
	// UserTask is the original task string supplied by the caller.
	UserTask string `json:"user_task"`
	// Subtasks is the planned work, in plan order.
	Subtasks []*Subtask `json:"subtasks"`
	// Status is the current pipeline phase.
	Status RunStatus `json:"status"`
	// FinalResult is the synthesized answer, or the failure description.
	FinalResult string `json:"final_result,omitempty"`
	// StartTime is when the run began.
	StartTime time.Time `json:"start_time"`
}
