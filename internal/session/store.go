// Package session implements persistent JSONL-based conversation storage.
//
// Each session is one {session_id}.jsonl file in the sessions directory.
// Line 1 is a header record with metadata and the system prompt; every
// following line is a message record. An index.json beside the files keeps
// lightweight metadata so listing sessions never reads every JSONL file.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// autoNameLimit caps auto-generated session names.
const autoNameLimit = 40

// Meta is the lightweight per-session metadata kept in the index.
type Meta struct {
	SessionID    string  `json:"session_id"`
	Name         string  `json:"name"`
	Model        string  `json:"model"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	MessageCount int     `json:"message_count"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCost    float64 `json:"total_cost"`
}

// Message is one stored conversation message.
type Message struct {
	Role         string `json:"role"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Session is a fully loaded session file.
type Session struct {
	Meta         Meta
	SystemPrompt string
	Messages     []Message
}

// headerRecord is the first JSONL line of a session file.
type headerRecord struct {
	Type         string `json:"type"`
	Meta         Meta   `json:"meta"`
	SystemPrompt string `json:"system_prompt"`
}

// messageRecord is every subsequent JSONL line.
type messageRecord struct {
	Type string `json:"type"`
	Message
}

// Store is a JSONL-backed session store rooted at one directory.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) a session store at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, "index.json")
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// autoName derives a short session name from the first user message.
func autoName(firstUserContent string) string {
	name := strings.ReplaceAll(strings.TrimSpace(firstUserContent), "\n", " ")
	if len(name) > autoNameLimit {
		name = strings.TrimRight(name[:autoNameLimit], " ") + "..."
	}
	if name == "" {
		return "untitled"
	}
	return name
}

// Save writes a full session to a new JSONL file and returns its id.
// System-role messages are excluded. When name is empty it is derived from
// the first user message.
func (s *Store) Save(messages []Message, systemPrompt, model, name string, totalTokens int, totalCost float64) (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	now := nowISO()

	var kept []Message
	firstUser := ""
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		if firstUser == "" && m.Role == "user" {
			firstUser = m.Content
		}
		kept = append(kept, m)
	}
	if name == "" {
		name = autoName(firstUser)
	}

	meta := Meta{
		SessionID:    id,
		Name:         name,
		Model:        model,
		CreatedAt:    now,
		UpdatedAt:    now,
		MessageCount: len(kept),
		TotalTokens:  totalTokens,
		TotalCost:    totalCost,
	}

	f, err := os.OpenFile(s.sessionPath(id), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("creating session file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(headerRecord{Type: "header", Meta: meta, SystemPrompt: systemPrompt}); err != nil {
		return "", fmt.Errorf("writing session header: %w", err)
	}
	for _, m := range kept {
		if m.Timestamp == "" {
			m.Timestamp = now
		}
		if err := enc.Encode(messageRecord{Type: "message", Message: m}); err != nil {
			return "", fmt.Errorf("writing session message: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing session file: %w", err)
	}

	if err := s.updateIndex(meta); err != nil {
		return "", err
	}
	return id, nil
}

// Append adds one message line to an existing session file and refreshes the
// index. This is the crash-safe incremental path: if the process dies
// mid-write the worst case is one truncated trailing line which Load skips.
func (s *Store) Append(id string, msg Message) error {
	path := s.sessionPath(id)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("session not found: %s", id)
	}

	if msg.Timestamp == "" {
		msg.Timestamp = nowISO()
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("opening session for append: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(messageRecord{Type: "message", Message: msg}); err != nil {
		return fmt.Errorf("appending session message: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing session file: %w", err)
	}

	return s.refreshMeta(id)
}

// Load reads a session file. Corrupt lines are skipped; a missing header
// is an error.
func (s *Store) Load(id string) (*Session, error) {
	f, err := os.Open(s.sessionPath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		sess      Session
		gotHeader bool
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			// Corrupt or truncated line; skip it.
			continue
		}

		switch probe.Type {
		case "header":
			var h headerRecord
			if err := json.Unmarshal([]byte(line), &h); err != nil {
				continue
			}
			sess.Meta = h.Meta
			sess.SystemPrompt = h.SystemPrompt
			gotHeader = true
		case "message":
			var m messageRecord
			if err := json.Unmarshal([]byte(line), &m); err != nil {
				continue
			}
			sess.Messages = append(sess.Messages, m.Message)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	if !gotHeader {
		return nil, fmt.Errorf("session file missing header: %s", id)
	}
	return &sess, nil
}

// List returns all indexed sessions sorted by updated_at descending.
func (s *Store) List() ([]Meta, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	sort.Slice(index, func(i, j int) bool {
		return index[i].UpdatedAt > index[j].UpdatedAt
	})
	return index, nil
}

// Latest returns the most recently updated session, or nil.
func (s *Store) Latest() (*Meta, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// Delete removes a session file and its index entry. Returns true if the
// file existed and was deleted.
func (s *Store) Delete(id string) (bool, error) {
	deleted := false
	if err := os.Remove(s.sessionPath(id)); err == nil {
		deleted = true
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("deleting session file: %w", err)
	}

	index, err := s.loadIndex()
	if err != nil {
		return deleted, err
	}
	kept := index[:0]
	for _, m := range index {
		if m.SessionID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) != len(index) {
		if err := s.writeIndex(kept); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// Prune deletes the oldest auto-named sessions beyond maxSessions and
// returns how many were removed. A session counts as auto-named when its
// name ends with "..." or equals "untitled"; explicitly named sessions are
// never pruned.
func (s *Store) Prune(maxSessions int) (int, error) {
	sessions, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(sessions) <= maxSessions {
		return 0, nil
	}

	toDelete := len(sessions) - maxSessions
	deleted := 0
	// Oldest first.
	for i := len(sessions) - 1; i >= 0 && deleted < toDelete; i-- {
		m := sessions[i]
		if !strings.HasSuffix(m.Name, "...") && m.Name != "untitled" {
			continue
		}
		ok, err := s.Delete(m.SessionID)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

// Reindex rebuilds index.json by scanning every session file in the
// directory. Recovers the index after corruption or manual edits.
func (s *Store) Reindex() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading sessions directory: %w", err)
	}

	var index []Meta
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".jsonl")
		sess, err := s.Load(id)
		if err != nil {
			continue
		}
		index = append(index, sess.Meta)
	}
	return s.writeIndex(index)
}

// updateIndex adds or replaces one entry in index.json.
func (s *Store) updateIndex(meta Meta) error {
	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	kept := index[:0]
	for _, m := range index {
		if m.SessionID != meta.SessionID {
			kept = append(kept, m)
		}
	}
	kept = append(kept, meta)
	return s.writeIndex(kept)
}

// loadIndex reads index.json, returning an empty list when the file is
// missing or corrupt.
func (s *Store) loadIndex() ([]Meta, error) {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session index: %w", err)
	}

	var index []Meta
	if err := json.Unmarshal(data, &index); err != nil {
		// Corrupt index resets to empty; Reindex can rebuild it.
		return nil, nil
	}
	return index, nil
}

// writeIndex atomically overwrites index.json via a temp file rename.
func (s *Store) writeIndex(index []Meta) error {
	if index == nil {
		index = []Meta{}
	}
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encoding session index: %w", err)
	}

	tmp := s.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing session index: %w", err)
	}
	if err := os.Rename(tmp, s.indexPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing session index: %w", err)
	}
	return nil
}

// refreshMeta re-reads a session file and updates the index with fresh
// message and token counts.
func (s *Store) refreshMeta(id string) error {
	sess, err := s.Load(id)
	if err != nil {
		return nil
	}

	totalIn, totalOut := 0, 0
	for _, m := range sess.Messages {
		totalIn += m.InputTokens
		totalOut += m.OutputTokens
	}

	meta := sess.Meta
	meta.MessageCount = len(sess.Messages)
	meta.TotalTokens = totalIn + totalOut
	meta.UpdatedAt = nowISO()
	return s.updateIndex(meta)
}
