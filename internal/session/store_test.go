package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Save([]Message{
		{Role: "system", Content: "you are helpful"},
		{Role: "user", Content: "write me a parser"},
		{Role: "assistant", Content: "sure, here it is"},
	}, "system prompt text", "anthropic/claude-sonnet-4.5", "", 120, 0.004)
	if err != nil {
		t.Fatal(err)
	}
	if len(id) != 32 {
		t.Errorf("session id = %q, want 32 hex chars", id)
	}

	sess, err := s.Load(id)
	if err != nil {
		t.Fatal(err)
	}

	// System-role messages are excluded from the stored transcript.
	if len(sess.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(sess.Messages))
	}
	if sess.Messages[0].Role != "user" || sess.Messages[0].Content != "write me a parser" {
		t.Errorf("first message = %+v", sess.Messages[0])
	}
	if sess.SystemPrompt != "system prompt text" {
		t.Errorf("system prompt = %q", sess.SystemPrompt)
	}
	if sess.Meta.Model != "anthropic/claude-sonnet-4.5" {
		t.Errorf("model = %q", sess.Meta.Model)
	}
	if sess.Meta.TotalTokens != 120 {
		t.Errorf("total tokens = %d", sess.Meta.TotalTokens)
	}
	// Auto-named from the first user message.
	if sess.Meta.Name != "write me a parser" {
		t.Errorf("name = %q", sess.Meta.Name)
	}
}

func TestAutoName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"short prompt", "short prompt"},
		{"  padded  ", "padded"},
		{"line\nbreaks\nhere", "line breaks here"},
		{"", "untitled"},
		{strings.Repeat("a", 60), strings.Repeat("a", 40) + "..."},
	}

	for _, tt := range tests {
		if got := autoName(tt.in); got != tt.want {
			t.Errorf("autoName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAppend(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Save([]Message{{Role: "user", Content: "hi"}}, "", "m", "chat", 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Append(id, Message{Role: "assistant", Content: "hello", InputTokens: 10, OutputTokens: 5}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(id, Message{Role: "user", Content: "bye", InputTokens: 3}); err != nil {
		t.Fatal(err)
	}

	sess, err := s.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(sess.Messages))
	}
	if sess.Messages[2].Content != "bye" {
		t.Errorf("last message = %+v", sess.Messages[2])
	}

	// Index counts refresh on append.
	metas, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if metas[0].MessageCount != 3 {
		t.Errorf("indexed message count = %d, want 3", metas[0].MessageCount)
	}
	if metas[0].TotalTokens != 18 {
		t.Errorf("indexed total tokens = %d, want 18", metas[0].TotalTokens)
	}
}

func TestAppendMissingSession(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append("doesnotexist", Message{Role: "user", Content: "x"}); err == nil {
		t.Error("expected error appending to a missing session")
	}
}

func TestLoadSkipsCorruptLines(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Save([]Message{{Role: "user", Content: "hi"}}, "", "m", "n", 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-append: a truncated trailing line.
	f, err := os.OpenFile(s.sessionPath(id), os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"type": "message", "role": "assist`)
	f.Close()

	sess, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load() should tolerate the corrupt line: %v", err)
	}
	if len(sess.Messages) != 1 {
		t.Errorf("got %d messages, want 1", len(sess.Messages))
	}
}

func TestLoadMissingHeader(t *testing.T) {
	s := newTestStore(t)

	path := filepath.Join(s.dir, "broken.jsonl")
	if err := os.WriteFile(path, []byte(`{"type": "message", "role": "user", "content": "x"}`+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load("broken"); err == nil {
		t.Error("expected error for a file with no header")
	}
}

func TestListAndLatest(t *testing.T) {
	s := newTestStore(t)

	id1, _ := s.Save([]Message{{Role: "user", Content: "first"}}, "", "m", "older", 0, 0)
	id2, _ := s.Save([]Message{{Role: "user", Content: "second"}}, "", "m", "newer", 0, 0)

	// Touch the second session so its updated_at is strictly later.
	if err := s.Append(id2, Message{Role: "assistant", Content: "reply", Timestamp: "2999-01-01T00:00:00Z"}); err != nil {
		t.Fatal(err)
	}
	// Force distinct updated_at values regardless of clock resolution.
	index, _ := s.loadIndex()
	for i := range index {
		if index[i].SessionID == id1 {
			index[i].UpdatedAt = "2020-01-01T00:00:00Z"
		}
	}
	if err := s.writeIndex(index); err != nil {
		t.Fatal(err)
	}

	metas, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d sessions, want 2", len(metas))
	}
	if metas[0].SessionID != id2 {
		t.Errorf("newest first: got %q, want %q", metas[0].SessionID, id2)
	}

	latest, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.SessionID != id2 {
		t.Errorf("Latest() = %+v, want %q", latest, id2)
	}
}

func TestLatestEmpty(t *testing.T) {
	s := newTestStore(t)
	latest, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Errorf("Latest() on empty store = %+v, want nil", latest)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	id, _ := s.Save([]Message{{Role: "user", Content: "hi"}}, "", "m", "n", 0, 0)

	ok, err := s.Delete(id)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Delete() should report true for an existing session")
	}
	if _, err := s.Load(id); err == nil {
		t.Error("session should be gone after delete")
	}
	metas, _ := s.List()
	if len(metas) != 0 {
		t.Errorf("index still has %d entries", len(metas))
	}

	ok, err = s.Delete(id)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Delete() should report false for a missing session")
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)

	// Two auto-named sessions (name empty -> derived ending who knows, force
	// long prompts so the names end with "...") and one explicitly named.
	long := strings.Repeat("describe the architecture ", 5)
	id1, _ := s.Save([]Message{{Role: "user", Content: long}}, "", "m", "", 0, 0)
	id2, _ := s.Save([]Message{{Role: "user", Content: long}}, "", "m", "", 0, 0)
	id3, _ := s.Save([]Message{{Role: "user", Content: "keep"}}, "", "m", "important work", 0, 0)

	// Make ordering deterministic: id1 oldest, id3 newest.
	index, _ := s.loadIndex()
	stamps := map[string]string{
		id1: "2020-01-01T00:00:00Z",
		id2: "2021-01-01T00:00:00Z",
		id3: "2022-01-01T00:00:00Z",
	}
	for i := range index {
		index[i].UpdatedAt = stamps[index[i].SessionID]
	}
	if err := s.writeIndex(index); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.Prune(2)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("pruned %d sessions, want 1", deleted)
	}

	// The oldest auto-named session goes; the named one survives.
	if _, err := s.Load(id1); err == nil {
		t.Error("oldest auto-named session should be pruned")
	}
	if _, err := s.Load(id2); err != nil {
		t.Error("newer auto-named session should survive")
	}
	if _, err := s.Load(id3); err != nil {
		t.Error("explicitly named session must never be pruned")
	}
}

func TestPruneUnderLimit(t *testing.T) {
	s := newTestStore(t)
	s.Save([]Message{{Role: "user", Content: "hi"}}, "", "m", "", 0, 0)

	deleted, err := s.Prune(50)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("pruned %d, want 0", deleted)
	}
}

func TestReindex(t *testing.T) {
	s := newTestStore(t)

	id, _ := s.Save([]Message{{Role: "user", Content: "hi"}}, "", "m", "rebuild me", 0, 0)

	// Corrupt the index entirely.
	if err := os.WriteFile(s.indexPath(), []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	metas, _ := s.List()
	if len(metas) != 0 {
		t.Fatalf("corrupt index should read as empty, got %d", len(metas))
	}

	if err := s.Reindex(); err != nil {
		t.Fatal(err)
	}
	metas, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 || metas[0].SessionID != id {
		t.Errorf("reindexed metas = %+v", metas)
	}
	if metas[0].Name != "rebuild me" {
		t.Errorf("name = %q", metas[0].Name)
	}
}
