package convo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dotsetgreg/dotchat/pkg/logger"
)

const autoNameMaxRunes = 50

// Store is the conversation log. The in-memory map is authoritative
// for the process lifetime; SQLite is the durable mirror. A failed
// SQLite write degrades the call to in-memory only, with a warning.
type Store struct {
	db            *sql.DB
	conversations map[string]*Conversation
	projects      map[string]*Project
	mu            sync.RWMutex
}

// NewStore opens (or creates) the conversation database at path and
// loads existing conversations into memory. An empty path yields a
// purely in-memory store.
func NewStore(path string) (*Store, error) {
	s := &Store{
		conversations: make(map[string]*Conversation),
		projects:      make(map[string]*Project),
	}

	if path == "" {
		logger.WarnC("convo", "No storage path configured, conversations are in-memory only")
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create conversation db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process store. One shared connection avoids writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s.db = db
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.loadAll(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			project_id TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS conversations_updated_idx ON conversations(updated_at_ms DESC);`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_calls_json TEXT NOT NULL DEFAULT '[]',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS turns_conversation_idx ON turns(conversation_id, seq);`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			context_json TEXT NOT NULL DEFAULT '{}',
			created_at_ms INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema failed on %q: %w", trimSQL(stmt), err)
		}
	}
	return nil
}

func trimSQL(stmt string) string {
	line := strings.TrimSpace(stmt)
	if len(line) > 96 {
		return line[:96] + "..."
	}
	return line
}

func (s *Store) loadAll() error {
	rows, err := s.db.Query(`
SELECT id, name, project_id, created_at_ms, updated_at_ms
FROM conversations`)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var conv Conversation
		var createdMS, updatedMS int64
		if err := rows.Scan(&conv.ID, &conv.Name, &conv.ProjectID, &createdMS, &updatedMS); err != nil {
			return fmt.Errorf("scan conversation: %w", err)
		}
		conv.CreatedAt = time.UnixMilli(createdMS)
		conv.UpdatedAt = time.UnixMilli(updatedMS)
		s.conversations[conv.ID] = &conv
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate conversations: %w", err)
	}

	for id, conv := range s.conversations {
		turns, err := s.loadTurns(id)
		if err != nil {
			return err
		}
		conv.Turns = turns
	}

	prows, err := s.db.Query(`
SELECT id, name, context_json, created_at_ms, updated_at_ms
FROM projects`)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var p Project
		var contextRaw string
		var createdMS, updatedMS int64
		if err := prows.Scan(&p.ID, &p.Name, &contextRaw, &createdMS, &updatedMS); err != nil {
			return fmt.Errorf("scan project: %w", err)
		}
		p.Context = decodeMap(contextRaw)
		p.CreatedAt = time.UnixMilli(createdMS)
		p.UpdatedAt = time.UnixMilli(updatedMS)
		s.projects[p.ID] = &p
	}
	if err := prows.Err(); err != nil {
		return fmt.Errorf("iterate projects: %w", err)
	}

	logger.InfoCF("convo", "Conversation store loaded", map[string]interface{}{
		"conversations": len(s.conversations),
		"projects":      len(s.projects),
	})
	return nil
}

func (s *Store) loadTurns(conversationID string) ([]Turn, error) {
	rows, err := s.db.Query(`
SELECT id, role, content, tool_calls_json, created_at_ms
FROM turns
WHERE conversation_id = ?
ORDER BY seq ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var toolCallsRaw string
		var createdMS int64
		if err := rows.Scan(&t.ID, &t.Role, &t.Content, &toolCallsRaw, &createdMS); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.ToolCalls = decodeToolCalls(toolCallsRaw)
		t.CreatedAt = time.UnixMilli(createdMS)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

func decodeMap(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	out := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]string{}
	}
	return out
}

func encodeMap(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodeToolCalls(raw string) []ToolCall {
	if raw == "" || raw == "[]" {
		return nil
	}
	var out []ToolCall
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func encodeToolCalls(calls []ToolCall) string {
	if len(calls) == 0 {
		return "[]"
	}
	b, err := json.Marshal(calls)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// GetOrCreate returns the conversation with the given id, loading it
// from memory first, then creating it. An empty id allocates a fresh
// conversation with a new uuid.
func (s *Store) GetOrCreate(ctx context.Context, id, projectID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if conv, ok := s.conversations[id]; ok {
			return cloneConversation(conv), nil
		}
	} else {
		id = uuid.NewString()
	}

	now := time.Now()
	conv := &Conversation{
		ID:        id,
		ProjectID: projectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[id] = conv

	if s.db != nil {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO conversations(id, name, project_id, created_at_ms, updated_at_ms)
VALUES(?, '', ?, ?, ?)
ON CONFLICT(id) DO NOTHING`, id, projectID, now.UnixMilli(), now.UnixMilli())
		if err != nil {
			logger.WarnCF("convo", "Conversation not persisted, continuing in memory", map[string]interface{}{
				"conversation_id": id,
				"error":           err.Error(),
			})
		}
	}

	return cloneConversation(conv), nil
}

// Append adds a turn to an existing conversation. Unlike GetOrCreate,
// this is strict: appending to an unknown id is an error.
func (s *Store) Append(ctx context.Context, conversationID string, turn Turn) (Turn, error) {
	if strings.TrimSpace(turn.Role) == "" {
		return Turn{}, ErrEmptyRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return Turn{}, fmt.Errorf("append to %q: %w", conversationID, ErrConversationNotFound)
	}

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	seq := len(conv.Turns)
	conv.Turns = append(conv.Turns, turn)
	conv.UpdatedAt = turn.CreatedAt

	// First user message becomes the display name until renamed.
	if conv.Name == "" && turn.Role == RoleUser {
		conv.Name = autoName(turn.Content)
	}

	if s.db != nil {
		if err := s.persistTurn(ctx, conv, turn, seq); err != nil {
			logger.WarnCF("convo", "Turn not persisted, continuing in memory", map[string]interface{}{
				"conversation_id": conversationID,
				"error":           err.Error(),
			})
		}
	}

	return turn, nil
}

func (s *Store) persistTurn(ctx context.Context, conv *Conversation, turn Turn, seq int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append turn begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO turns(id, conversation_id, seq, role, content, tool_calls_json, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, conv.ID, seq, turn.Role, turn.Content, encodeToolCalls(turn.ToolCalls), turn.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("append turn insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE conversations
SET name = ?, updated_at_ms = ?
WHERE id = ?`, conv.Name, conv.UpdatedAt.UnixMilli(), conv.ID); err != nil {
		return fmt.Errorf("append turn update conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append turn commit: %w", err)
	}
	return nil
}

func autoName(content string) string {
	name := strings.TrimSpace(content)
	runes := []rune(name)
	if len(runes) > autoNameMaxRunes {
		name = string(runes[:autoNameMaxRunes])
	}
	return name
}

// Get returns the conversation by id, or ErrConversationNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrConversationNotFound)
	}
	return cloneConversation(conv), nil
}

// History returns the most recent limit turns, in chronological
// order. limit <= 0 returns everything.
func (s *Store) History(ctx context.Context, id string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("history of %q: %w", id, ErrConversationNotFound)
	}

	turns := conv.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Rename sets the conversation display name.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("rename %q: %w", id, ErrConversationNotFound)
	}
	conv.Name = strings.TrimSpace(name)
	conv.UpdatedAt = time.Now()

	if s.db != nil {
		_, err := s.db.ExecContext(ctx, `
UPDATE conversations SET name = ?, updated_at_ms = ? WHERE id = ?`,
			conv.Name, conv.UpdatedAt.UnixMilli(), id)
		if err != nil {
			logger.WarnCF("convo", "Rename not persisted", map[string]interface{}{
				"conversation_id": id,
				"error":           err.Error(),
			})
		}
	}
	return nil
}

// Delete removes a conversation and its turns.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return fmt.Errorf("delete %q: %w", id, ErrConversationNotFound)
	}
	delete(s.conversations, id)

	if s.db != nil {
		if err := s.deleteRows(ctx, id); err != nil {
			logger.WarnCF("convo", "Delete not persisted", map[string]interface{}{
				"conversation_id": id,
				"error":           err.Error(),
			})
		}
	}
	return nil
}

func (s *Store) deleteRows(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return tx.Commit()
}

// DeleteAll wipes every conversation.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]*Conversation)

	if s.db != nil {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM turns`); err != nil {
			return fmt.Errorf("delete all turns: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
			return fmt.Errorf("delete all conversations: %w", err)
		}
	}
	return nil
}

// List returns conversation summaries sorted by UpdatedAt descending.
// projectID filters when non-empty; limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, projectID string, limit int) ([]ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if projectID != "" && conv.ProjectID != projectID {
			continue
		}
		out = append(out, ConversationSummary{
			ID:        conv.ID,
			Name:      conv.Name,
			ProjectID: conv.ProjectID,
			TurnCount: len(conv.Turns),
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PruneOlderThan deletes conversations not updated since the cutoff.
// Returns the number removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, conv := range s.conversations {
		if conv.UpdatedAt.Before(cutoff) {
			delete(s.conversations, id)
			removed++
			if s.db != nil {
				if err := s.deleteRows(ctx, id); err != nil {
					logger.WarnCF("convo", "Prune not persisted", map[string]interface{}{
						"conversation_id": id,
						"error":           err.Error(),
					})
				}
			}
		}
	}
	return removed, nil
}

// CreateProject registers a new project container.
func (s *Store) CreateProject(ctx context.Context, name string, context map[string]string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p := &Project{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Context:   context,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.projects[p.ID] = p

	if s.db != nil {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO projects(id, name, context_json, created_at_ms, updated_at_ms)
VALUES(?, ?, ?, ?, ?)`, p.ID, p.Name, encodeMap(p.Context), now.UnixMilli(), now.UnixMilli())
		if err != nil {
			logger.WarnCF("convo", "Project not persisted", map[string]interface{}{
				"project_id": p.ID,
				"error":      err.Error(),
			})
		}
	}
	return cloneProject(p), nil
}

// GetProject returns the project by id, or ErrProjectNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("get project %q: %w", id, ErrProjectNotFound)
	}
	return cloneProject(p), nil
}

// ListProjects returns all projects sorted by UpdatedAt descending.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, *cloneProject(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// DeleteProject removes the project. Conversations keep their
// project_id; they just point at a gone container.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("delete project %q: %w", id, ErrProjectNotFound)
	}
	delete(s.projects, id)

	if s.db != nil {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
			logger.WarnCF("convo", "Project delete not persisted", map[string]interface{}{
				"project_id": id,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

func cloneConversation(conv *Conversation) *Conversation {
	out := *conv
	out.Turns = make([]Turn, len(conv.Turns))
	copy(out.Turns, conv.Turns)
	return &out
}

func cloneProject(p *Project) *Project {
	out := *p
	if p.Context != nil {
		out.Context = make(map[string]string, len(p.Context))
		for k, v := range p.Context {
			out.Context[k] = v
		}
	}
	return &out
}

// IsNotFound reports whether err is one of the store's not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConversationNotFound) || errors.Is(err, ErrProjectNotFound)
}
