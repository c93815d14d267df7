package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/gridmind/internal/plan"
)

// Store persists conversations and their messages, including each
// assistant message's plan and reversal log, so an undo request can be
// honoured across restarts.
type Store struct {
	DB *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			channel TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT,
			role TEXT,
			content TEXT,
			plan_json TEXT,
			undo_json TEXT,
			undone INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// EnsureConversation creates the conversation row if it is new.
func (s *Store) EnsureConversation(id uuid.UUID, channel string) error {
	query := `INSERT OR IGNORE INTO conversations (id, channel) VALUES (?, ?)`
	_, err := s.DB.Exec(query, id.String(), channel)
	return err
}

func (s *Store) AddUserMessage(conversationID uuid.UUID, content string) error {
	query := `INSERT INTO messages (id, conversation_id, role, content) VALUES (?, ?, ?, ?)`
	_, err := s.DB.Exec(query, uuid.New().String(), conversationID.String(), "human", content)
	return err
}

// SaveAssistantMessage writes the message with its plan and undo log.
// Called after the run finishes, so step statuses and results land in
// plan_json too.
func (s *Store) SaveAssistantMessage(m *plan.Message) error {
	var planJSON, undoJSON []byte
	var err error
	if m.Plan != nil {
		planJSON, err = json.Marshal(m.Plan)
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
	}
	if m.Undo != nil {
		undoJSON, err = json.Marshal(m.Undo)
		if err != nil {
			return fmt.Errorf("failed to encode undo log: %w", err)
		}
	}

	undone := 0
	if m.Undone() {
		undone = 1
	}
	query := `INSERT OR REPLACE INTO messages (id, conversation_id, role, content, plan_json, undo_json, undone)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.DB.Exec(query, m.ID.String(), m.ConversationID.String(), "ai", m.Content,
		nullable(planJSON), nullable(undoJSON), undone)
	return err
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// MarkUndone flips the persistent latch after a successful reversal.
func (s *Store) MarkUndone(messageID uuid.UUID) error {
	query := `UPDATE messages SET undone = 1 WHERE id = ?`
	_, err := s.DB.Exec(query, messageID.String())
	return err
}

// GetMessage loads an assistant message with its plan and undo log. The
// undone latch is restored so a replayed undo request is still rejected.
func (s *Store) GetMessage(messageID uuid.UUID) (*plan.Message, error) {
	query := `SELECT id, conversation_id, content, plan_json, undo_json, undone, created_at
		FROM messages WHERE id = ? AND role = 'ai'`
	row := s.DB.QueryRow(query, messageID.String())

	var id, convID, content string
	var planJSON, undoJSON sql.NullString
	var undone int
	m := &plan.Message{}
	if err := row.Scan(&id, &convID, &content, &planJSON, &undoJSON, &undone, &m.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("corrupt message id %q: %w", id, err)
	}
	if m.ConversationID, err = uuid.Parse(convID); err != nil {
		return nil, fmt.Errorf("corrupt conversation id %q: %w", convID, err)
	}
	m.Role = "assistant"
	m.Content = content

	if planJSON.Valid {
		p, err := plan.Parse([]byte(planJSON.String))
		if err != nil {
			return nil, fmt.Errorf("corrupt plan for message %s: %w", id, err)
		}
		m.Plan = p
	}
	if undoJSON.Valid {
		var u plan.UndoInfo
		if err := json.Unmarshal([]byte(undoJSON.String), &u); err != nil {
			return nil, fmt.Errorf("corrupt undo log for message %s: %w", id, err)
		}
		m.Undo = &u
	}
	if undone == 1 {
		m.RestoreUndone()
	}
	return m, nil
}

// LatestUndoable returns the most recent assistant message in the
// conversation that still has a live, unused undo log.
func (s *Store) LatestUndoable(conversationID uuid.UUID) (*plan.Message, error) {
	query := `SELECT id FROM messages
		WHERE conversation_id = ? AND role = 'ai' AND undone = 0 AND undo_json IS NOT NULL
		ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := s.DB.Query(query, conversationID.String(), 20)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		messageID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt message id %q: %w", id, err)
		}
		m, err := s.GetMessage(messageID)
		if err != nil {
			return nil, err
		}
		if m.Undo != nil && !m.Undo.Empty() {
			return m, nil
		}
	}
	return nil, sql.ErrNoRows
}

// GetHistory returns the conversation transcript in the shape the LLM
// client consumes, oldest first.
func (s *Store) GetHistory(conversationID uuid.UUID, limit int) ([]llms.MessageContent, error) {
	query := `SELECT role, content FROM messages WHERE conversation_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := s.DB.Query(query, conversationID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []llms.MessageContent
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}

		var msgRole llms.ChatMessageType
		switch role {
		case "human":
			msgRole = llms.ChatMessageTypeHuman
		case "ai":
			msgRole = llms.ChatMessageTypeAI
		case "system":
			msgRole = llms.ChatMessageTypeSystem
		default:
			msgRole = llms.ChatMessageTypeHuman
		}

		history = append(history, llms.MessageContent{
			Role: msgRole,
			Parts: []llms.ContentPart{
				llms.TextPart(content),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	return history, nil
}
