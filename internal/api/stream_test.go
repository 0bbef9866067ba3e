package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// sseServer returns a test server that writes the given raw SSE lines,
// each followed by a blank line, and records the decoded request body.
func sseServer(t *testing.T, lines []string, lastBody *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lastBody != nil {
			if err := json.NewDecoder(r.Body).Decode(lastBody); err != nil {
				t.Errorf("decoding request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			w.Write([]byte(line + "\n\n"))
		}
	}))
}

func TestStream(t *testing.T) {
	var body chatRequest
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`data: {"choices":[{"delta":{}}]}`,
		`data: {"usage":{"prompt_tokens":9,"completion_tokens":3}}`,
		`data: [DONE]`,
	}, &body)
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))

	var deltas []string
	text, usage, err := c.Stream(context.Background(), "m",
		[]Message{{Role: "user", Content: "hi"}}, 128,
		func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	if text != "Hello" {
		t.Errorf("text = %q, want %q", text, "Hello")
	}
	if usage.InputTokens != 9 || usage.OutputTokens != 3 {
		t.Errorf("usage = %+v, want {9 3}", usage)
	}
	if len(deltas) != 2 || deltas[0] != "Hel" || deltas[1] != "lo" {
		t.Errorf("deltas = %v, want [Hel lo]", deltas)
	}

	if !body.Stream {
		t.Error("request should set stream: true")
	}
	if body.StreamOptions == nil || !body.StreamOptions.IncludeUsage {
		t.Error("request should ask for usage in the stream")
	}
}

func TestStreamSkipsMalformedFrames(t *testing.T) {
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"ok"}}]}`,
		`data: {this is not json`,
		`: keep-alive comment`,
		`data: {"choices":[{"delta":{"content":"!"}}]}`,
		`data: [DONE]`,
	}, nil)
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	text, _, err := c.Stream(context.Background(), "m", nil, 0, nil)
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	if text != "ok!" {
		t.Errorf("text = %q, want %q (malformed frames skipped)", text, "ok!")
	}
}

func TestStreamEstimatesUsageWhenOmitted(t *testing.T) {
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"twelve chars"}}]}`,
		`data: [DONE]`,
	}, nil)
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	text, usage, err := c.Stream(context.Background(), "m", nil, 0, nil)
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	if text != "twelve chars" {
		t.Errorf("text = %q", text)
	}
	// len("twelve chars") == 12, 12/4 == 3.
	if usage.OutputTokens != 3 {
		t.Errorf("estimated output tokens = %d, want 3", usage.OutputTokens)
	}
}

func TestStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, _, err := c.Stream(context.Background(), "m", nil, 0, nil)
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestStreamStopsAtDoneSentinel(t *testing.T) {
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"before"}}]}`,
		`data: [DONE]`,
		`data: {"choices":[{"delta":{"content":"after"}}]}`,
	}, nil)
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	text, _, err := c.Stream(context.Background(), "m", nil, 0, nil)
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	if text != "before" {
		t.Errorf("text = %q, want %q (nothing read past [DONE])", text, "before")
	}
}
