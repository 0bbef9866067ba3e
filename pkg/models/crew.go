// Package models defines the core data types shared across codeswap.
package models

import (
	"fmt"
	"sort"
)

// AgentRole distinguishes the planning agent from executing agents.
type AgentRole string

const (
	// RoleOrchestrator plans subtasks and synthesizes the final answer.
	RoleOrchestrator AgentRole = "orchestrator"
	// RoleSpecialist executes subtasks assigned to it.
	RoleSpecialist AgentRole = "specialist"
)

// Valid returns true if the role is a known value.
func (r AgentRole) Valid() bool {
	return r == RoleOrchestrator || r == RoleSpecialist
}

// AgentDef is the definition of a single agent in a crew.
// Definitions are immutable once a crew is loaded.
type AgentDef struct {
	// Name is the agent's key within the crew.
	Name string `json:"name" yaml:"-"`
	// Model is the model slug this agent calls (e.g. "anthropic/claude-sonnet-4.5").
	Model string `json:"model" yaml:"model"`
	// Role is either orchestrator or specialist.
	Role AgentRole `json:"role" yaml:"role"`
	// SystemPrompt is prepended to every call made by this agent.
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
	// MaxTokens caps the response length for this agent's calls.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// CrewConfig is a complete crew configuration: a named set of agents
// collaborating on one task under a shared budget.
type CrewConfig struct {
	// Name identifies the crew.
	Name string `json:"name" yaml:"name"`
	// Description explains what the crew is for.
	Description string `json:"description" yaml:"description"`
	// Orchestrator is the name of the agent with the orchestrator role.
	Orchestrator string `json:"orchestrator" yaml:"orchestrator"`
	// Agents maps agent names to their definitions.
	Agents map[string]AgentDef `json:"agents" yaml:"agents"`
	// BudgetLimitUSD is the spend ceiling for one crew run.
	BudgetLimitUSD float64 `json:"budget_limit_usd" yaml:"budget_limit_usd"`
}

// Validate checks the structural invariants of a crew configuration:
// at least one agent, and an orchestrator key that exists in the agent map.
func (c *CrewConfig) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("crew %q: agents must be a non-empty mapping", c.Name)
	}
	if _, ok := c.Agents[c.Orchestrator]; !ok {
		return fmt.Errorf("crew %q: orchestrator %q is not listed in agents (available: %v)",
			c.Name, c.Orchestrator, c.AgentNames())
	}
	return nil
}

// AgentNames returns the names of all agents in the crew, sorted.
func (c *CrewConfig) AgentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SpecialistNames returns the names of all specialist agents, sorted.
// Map iteration order is not stable, so planning prompts sort the list
// to keep them deterministic.
func (c *CrewConfig) SpecialistNames() []string {
	var names []string
	for name, agent := range c.Agents {
		if agent.Role == RoleSpecialist {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
