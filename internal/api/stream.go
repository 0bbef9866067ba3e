package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// doneSentinel is the literal frame payload that terminates an SSE stream.
const doneSentinel = "[DONE]"

// maxFrameSize bounds a single SSE line; frames beyond this fail the read.
const maxFrameSize = 1 << 20

// streamFrame is one decoded server-sent-event payload. A frame carries a
// content delta, a terminal usage record, or neither (keep-alives).
type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *usagePayload `json:"usage"`
}

// Stream makes a streaming completion call. Each content delta is forwarded
// to onDelta as it arrives; the full text and token usage are returned once
// the stream ends. onDelta may be nil.
//
// Malformed frames are skipped rather than failing the call. If the upstream
// never reports usage, the output token count is estimated from the text.
func (c *Client) Stream(ctx context.Context, model string, messages []Message, maxTokens int, onDelta func(string)) (string, Usage, error) {
	body := chatRequest{
		Model:         model,
		Messages:      messages,
		MaxTokens:     maxTokens,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	var (
		text  strings.Builder
		usage Usage
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == doneSentinel {
			break
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			// Partial or garbled frame; skip it and keep reading.
			continue
		}

		if len(frame.Choices) > 0 {
			if delta := frame.Choices[0].Delta.Content; delta != "" {
				text.WriteString(delta)
				if onDelta != nil {
					onDelta(delta)
				}
			}
		}

		// Usage typically arrives on the final frame and is authoritative.
		if frame.Usage != nil {
			usage.InputTokens = frame.Usage.PromptTokens
			usage.OutputTokens = frame.Usage.CompletionTokens
		}
	}
	if err := scanner.Err(); err != nil {
		return text.String(), usage, fmt.Errorf("reading stream: %w", err)
	}

	full := text.String()
	if usage.OutputTokens == 0 {
		usage.OutputTokens = estimateOutputTokens(full)
	}

	c.tracker.Add(usage.InputTokens, usage.OutputTokens)
	return full, usage, nil
}
