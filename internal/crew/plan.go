package crew

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/codeswap/codeswap/pkg/models"
)

// rawPlan is the JSON shape the orchestrator is asked to produce.
type rawPlan struct {
	Subtasks []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		AssignTo    string `json:"assign_to"`
	} `json:"subtasks"`
}

// stripFences removes a markdown code fence around the JSON payload, if any.
func stripFences(text string) string {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	return text
}

// parsePlan turns the orchestrator's reply into subtasks. It tolerates
// markdown fencing and assignments to unknown agents; anything unparseable
// falls back to a single subtask carrying the whole user task. Planning
// never hard-fails.
func parsePlan(cfg *models.CrewConfig, text, userTask string) []*models.Subtask {
	specialists := cfg.SpecialistNames()
	fallbackAgent := cfg.Orchestrator
	if len(specialists) > 0 {
		fallbackAgent = specialists[0]
	}

	var plan rawPlan
	if err := json.Unmarshal([]byte(strings.TrimSpace(stripFences(text))), &plan); err == nil {
		var subtasks []*models.Subtask
		for _, st := range plan.Subtasks {
			agent := st.AssignTo
			if _, ok := cfg.Agents[agent]; !ok {
				agent = fallbackAgent
			}
			id := st.ID
			if id == "" {
				id = strconv.Itoa(len(subtasks) + 1)
			}
			subtasks = append(subtasks, &models.Subtask{
				ID:          id,
				Description: st.Description,
				AssignedTo:  agent,
				Status:      models.SubtaskPending,
			})
		}
		if len(subtasks) > 0 {
			return subtasks
		}
	}

	return []*models.Subtask{{
		ID:          "1",
		Description: userTask,
		AssignedTo:  fallbackAgent,
		Status:      models.SubtaskPending,
	}}
}
