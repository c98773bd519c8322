package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/creatorpilot/internal/domain"
)

// ConversationStore keeps raw conversation logs for the reference backend.
type ConversationStore interface {
	// Create starts an empty conversation with a fresh id.
	Create() (domain.Conversation, error)

	// Get returns a conversation with all of its messages.
	Get(id string) (domain.Conversation, error)

	// Append adds messages to the end of a conversation's log.
	Append(id string, msgs ...domain.RawMessage) error

	// Delete removes a conversation and its messages.
	Delete(id string) error

	// List returns conversation ids, most recently updated first.
	List() ([]string, error)
}

// SQLiteConversationStore implements ConversationStore backed by SQLite.
type SQLiteConversationStore struct {
	db *DB
}

// NewSQLiteConversationStore creates a conversation store using the given database.
func NewSQLiteConversationStore(db *DB) *SQLiteConversationStore {
	return &SQLiteConversationStore{db: db}
}

func (s *SQLiteConversationStore) Create() (domain.Conversation, error) {
	now := time.Now().UTC().Truncate(time.Second)
	conv := domain.Conversation{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.sql.Exec(
		`INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)`,
		conv.ID, now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLiteConversationStore) Get(id string) (domain.Conversation, error) {
	var conv domain.Conversation
	var createdAt, updatedAt string

	err := s.db.sql.QueryRow(
		`SELECT id, created_at, updated_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conversation{}, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("loading conversation %s: %w", id, err)
	}

	conv.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	conv.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)

	msgs, err := s.loadMessages(id)
	if err != nil {
		return domain.Conversation{}, err
	}
	conv.Messages = msgs
	return conv, nil
}

func (s *SQLiteConversationStore) Append(id string, msgs ...domain.RawMessage) error {
	tx, err := s.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.DateTime)
	res, err := tx.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("touching conversation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}

	for _, msg := range msgs {
		var toolCallsJSON sql.NullString
		if len(msg.ToolCalls) > 0 {
			data, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("encoding tool calls: %w", err)
			}
			toolCallsJSON = sql.NullString{String: string(data), Valid: true}
		}

		if _, err := tx.Exec(
			`INSERT INTO messages (conversation_id, role, content, tool_call_id, tool_calls, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, string(msg.Role), msg.Content, msg.ToolCallID, toolCallsJSON, now,
		); err != nil {
			return fmt.Errorf("appending message to %s: %w", id, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteConversationStore) Delete(id string) error {
	res, err := s.db.sql.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteConversationStore) List() ([]string, error) {
	rows, err := s.db.sql.Query(`SELECT id FROM conversations ORDER BY updated_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
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
	return ids, rows.Err()
}

func (s *SQLiteConversationStore) loadMessages(id string) ([]domain.RawMessage, error) {
	rows, err := s.db.sql.Query(
		`SELECT role, content, tool_call_id, tool_calls
		 FROM messages WHERE conversation_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("loading messages for %s: %w", id, err)
	}
	defer rows.Close()

	var msgs []domain.RawMessage
	for rows.Next() {
		var msg domain.RawMessage
		var role string
		var toolCallsJSON sql.NullString

		if err := rows.Scan(&role, &msg.Content, &msg.ToolCallID, &toolCallsJSON); err != nil {
			return nil, err
		}
		msg.Role = domain.Role(role)

		if toolCallsJSON.Valid && toolCallsJSON.String != "" {
			if err := json.Unmarshal([]byte(toolCallsJSON.String), &msg.ToolCalls); err != nil {
				s.db.log.Warn().Err(err).Str("conversation", id).Msg("dropping undecodable tool calls")
			}
		}

		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
