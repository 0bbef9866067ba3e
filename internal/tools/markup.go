package tools

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// toolCallPattern extracts the JSON payload from <tool_call> blocks.
var toolCallPattern = regexp.MustCompile(`(?s)<tool_call>\s*(\{.*?\})\s*</tool_call>`)

// ToolCall is one parsed tool invocation from a model response.
type ToolCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// ParseToolCalls extracts tool calls from <tool_call> blocks in text.
//
// Expected format:
//
//	<tool_call>{"tool": "shell", "arguments": {"command": "ls"}}</tool_call>
//
// Malformed JSON blocks are silently skipped.
func ParseToolCalls(text string) []ToolCall {
	matches := toolCallPattern.FindAllStringSubmatch(text, -1)
	var calls []ToolCall
	for _, m := range matches {
		var call ToolCall
		if err := json.Unmarshal([]byte(m[1]), &call); err != nil {
			continue
		}
		calls = append(calls, call)
	}
	return calls
}

// FormatToolResult renders a Result as a <tool_result> block. The block is
// injected into the conversation as a user message so the model can see the
// outcome of its call.
func FormatToolResult(toolName string, result Result) string {
	success := "false"
	content := result.Error
	if result.Success {
		success = "true"
		content = result.Output
	}
	if content == "" {
		content = "Unknown error"
	}
	return fmt.Sprintf("<tool_result tool=%q success=%q>\n%s\n</tool_result>", toolName, success, content)
}

// SystemPrompt returns a system-prompt fragment describing the registry's
// tools, how to invoke them, and the expected markup format.
func SystemPrompt(registry *Registry) string {
	return "\n\nYou have access to the following tools. " +
		"To use a tool, output a tool_call block:\n" +
		"<tool_call>\n" +
		`{"tool": "tool_name", "arguments": {"arg1": "value1"}}` + "\n" +
		"</tool_call>\n\n" +
		registry.Descriptions() + "\n\n" +
		"After a tool executes, you will receive the result in a " +
		"<tool_result> block. You can then use additional tools or " +
		"provide your final response. " +
		"Only use tools when the user's request requires file " +
		"operations or command execution."
}
