package crew

// crewTemplates are the starter crew configs written by EnsureDefaultCrews.
var crewTemplates = map[string]string{
	"default":     templateDefault,
	"full-stack":  templateFullStack,
	"code-review": templateCodeReview,
	"research":    templateResearch,
}

const templateDefault = `name: default
description: "General-purpose coding crew"
budget_limit_usd: 2.00
orchestrator: planner
agents:
  planner:
    model: anthropic/claude-sonnet-4.5
    role: orchestrator
    system_prompt: |
      You are a task planner. Break the user's request into subtasks.
      Output JSON: {"subtasks": [{"id": "1", "description": "...", "assign_to": "agent_name"}]}
      Available agents: coder, reviewer
    max_tokens: 4096
  coder:
    model: anthropic/claude-sonnet-4.5
    role: specialist
    system_prompt: |
      You are a coding specialist. Implement the task you are given.
      Write clean, well-structured code with appropriate error handling.
      Include brief inline comments only where the logic is non-obvious.
    max_tokens: 8192
  reviewer:
    model: openai/gpt-4.1
    role: specialist
    system_prompt: |
      You are a code reviewer. Examine the code for bugs, security issues,
      performance problems, and readability. Provide actionable suggestions
      with specific line references.
    max_tokens: 4096
`

const templateFullStack = `name: full-stack
description: "Full-stack development crew with research capabilities"
budget_limit_usd: 5.00
orchestrator: planner
agents:
  planner:
    model: openai/gpt-4.1
    role: orchestrator
    system_prompt: |
      You are a full-stack project planner. Decompose the user's request into
      concrete subtasks covering frontend, backend, and research as needed.
      Output JSON: {"subtasks": [{"id": "1", "description": "...", "assign_to": "agent_name"}]}
      Available agents: coder, reviewer, researcher
      Assign research tasks first when the request involves unfamiliar APIs or libraries.
    max_tokens: 4096
  coder:
    model: anthropic/claude-sonnet-4.5
    role: specialist
    system_prompt: |
      You are an expert full-stack developer. You handle frontend (React, Vue,
      HTML/CSS) and backend (Python, Node.js, SQL) equally well. Implement the
      task with production-quality code. Follow the project's existing patterns
      and conventions.
    max_tokens: 8192
  reviewer:
    model: google/gemini-2.5-pro
    role: specialist
    system_prompt: |
      You are a thorough code reviewer specializing in full-stack applications.
      Check for correctness, security vulnerabilities (OWASP top 10), proper
      error handling, and consistency between frontend and backend contracts.
      Flag any mismatched API interfaces or missing validations.
    max_tokens: 4096
  researcher:
    model: deepseek/deepseek-r1
    role: specialist
    system_prompt: |
      You are a technical researcher. When given a topic, API, or library,
      provide a concise summary of the relevant documentation, best practices,
      and common pitfalls. Include code snippets for the most relevant patterns.
      Cite sources where possible.
    max_tokens: 8192
`

const templateCodeReview = `name: code-review
description: "Comprehensive code review crew"
budget_limit_usd: 3.00
orchestrator: analyzer
agents:
  analyzer:
    model: anthropic/claude-sonnet-4.5
    role: orchestrator
    system_prompt: |
      You are a code review coordinator. When given code to review, dispatch
      it to specialist reviewers and synthesize their feedback into a single
      cohesive report.
      Output JSON: {"subtasks": [{"id": "1", "description": "...", "assign_to": "agent_name"}]}
      Available agents: security, style
      Always dispatch to both agents, then compile results.
    max_tokens: 4096
  security:
    model: openai/gpt-4.1
    role: specialist
    system_prompt: |
      You are a security-focused code reviewer. Analyze the code for
      vulnerabilities including injection flaws, authentication weaknesses,
      data exposure, CSRF, XSS, insecure deserialization, and dependency
      risks. Rate each finding by severity (critical / high / medium / low)
      and provide remediation steps.
    max_tokens: 4096
  style:
    model: google/gemini-2.5-pro
    role: specialist
    system_prompt: |
      You are a code style and quality reviewer. Evaluate the code for
      readability, maintainability, naming conventions, DRY violations,
      complexity, and adherence to language-specific idioms. Suggest concrete
      refactoring improvements with before/after examples.
    max_tokens: 4096
`

const templateResearch = `name: research
description: "Deep research and synthesis crew"
budget_limit_usd: 4.00
orchestrator: coordinator
agents:
  coordinator:
    model: openai/gpt-4.1
    role: orchestrator
    system_prompt: |
      You are a research coordinator. Break the user's question into focused
      research subtasks that can be investigated independently, then have
      the synthesizer compile the results.
      Output JSON: {"subtasks": [{"id": "1", "description": "...", "assign_to": "agent_name"}]}
      Available agents: deep-thinker, synthesizer
      Send complex reasoning or analysis tasks to deep-thinker.
      Send compilation and summary tasks to synthesizer.
    max_tokens: 4096
  deep-thinker:
    model: deepseek/deepseek-r1
    role: specialist
    system_prompt: |
      You are a deep reasoning specialist. Think through problems step by
      step, consider edge cases, and explore multiple angles. Provide
      thorough analysis with explicit reasoning chains. When uncertain,
      state your confidence level and list assumptions.
    max_tokens: 8192
  synthesizer:
    model: anthropic/claude-sonnet-4.5
    role: specialist
    system_prompt: |
      You are a research synthesizer. Take findings from multiple sources
      or analyses and compile them into a clear, well-organized summary.
      Highlight areas of agreement, contradiction, and open questions.
      Use structured formatting with headers and bullet points for clarity.
    max_tokens: 8192
`
