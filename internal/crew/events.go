// Package crew implements multi-agent crew orchestration: YAML crew
// configuration, the plan -> execute -> synthesize pipeline, and the
// progress event stream consumed by the display layer.
package crew

// EventType discriminates progress events.
type EventType string

const (
	// EventCrewStart opens a run and carries the agent roster.
	EventCrewStart EventType = "crew_start"
	// EventPlan carries the planned subtasks.
	EventPlan EventType = "plan"
	// EventAgentStart marks one subtask being dispatched to its agent.
	EventAgentStart EventType = "agent_start"
	// EventAgentDelta carries one streamed text fragment from an agent.
	EventAgentDelta EventType = "agent_delta"
	// EventAgentDone marks a subtask finished, with its usage and cost.
	EventAgentDone EventType = "agent_done"
	// EventSynthesisDelta carries one streamed fragment of the final answer.
	EventSynthesisDelta EventType = "synthesis_delta"
	// EventCrewDone is the terminal success event, with the total cost.
	EventCrewDone EventType = "crew_done"
	// EventError is the terminal failure event.
	EventError EventType = "error"
)

// PlannedSubtask is the plan-event view of one subtask.
type PlannedSubtask struct {
	ID          string
	Description string
	AssignedTo  string
}

// Event is one progress update pushed from the engine to the display loop.
// The stream ends with exactly one terminal event: crew_done or error.
type Event struct {
	Type  EventType
	RunID string

	// crew_start
	Agents []string
	// plan
	Subtasks []PlannedSubtask

	// agent_start / agent_delta / agent_done
	Agent     string
	SubtaskID string
	Model     string

	// agent_delta / synthesis_delta
	Text string

	// agent_done
	InputTokens  int
	OutputTokens int
	CostUSD      float64

	// crew_done
	TotalCost float64

	// error
	Message string
}

// Terminal reports whether this event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventCrewDone || e.Type == EventError
}
