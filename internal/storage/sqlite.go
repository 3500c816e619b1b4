package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/storage"
	"github.com/jwebster45206/chronicle/pkg/story"
)

//go:embed schema.sql
var schema string

// SQLiteStorage implements the Store interface on an embedded SQLite
// database, with stories and templates read from the filesystem.
type SQLiteStorage struct {
	db      *sql.DB
	content *Content
	logger  *slog.Logger
}

var _ storage.Store = (*SQLiteStorage)(nil)

// OpenSQLite opens the database at path and applies the schema.
func OpenSQLite(path string, content *Content, logger *slog.Logger) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStorage{db: db, content: content, logger: logger}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.Session, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM sessions WHERE id = ?`, id.String()).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var sess state.Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// SaveSession inserts a new session or updates one whose stored version
// still matches.
func (s *SQLiteStorage) SaveSession(ctx context.Context, sess *state.Session) error {
	if sess == nil {
		return errors.New("session cannot be nil")
	}
	doc := *sess
	doc.Version = sess.Version + 1
	doc.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if sess.Version == 0 {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO sessions (id, version, doc, updated_at) VALUES (?, ?, ?, ?)`,
			sess.ID.String(), doc.Version, string(data), doc.UpdatedAt.UnixMilli())
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrVersionConflict
			}
			return fmt.Errorf("failed to insert session: %w", err)
		}
	} else {
		res, err := s.db.ExecContext(ctx,
			`UPDATE sessions SET version = ?, doc = ?, updated_at = ? WHERE id = ? AND version = ?`,
			doc.Version, string(data), doc.UpdatedAt.UnixMilli(), sess.ID.String(), sess.Version)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if n == 0 {
			s.logger.Warn("Session version conflict", "session_id", sess.ID, "version", sess.Version)
			return storage.ErrVersionConflict
		}
	}

	sess.Version = doc.Version
	sess.UpdatedAt = doc.UpdatedAt
	return nil
}

func (s *SQLiteStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_memory WHERE session_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete session memory: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStorage) SaveMemory(ctx context.Context, id uuid.UUID, m *state.Memory) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_memory (session_id, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		id.String(), string(data), time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadMemory(ctx context.Context, id uuid.UUID) (*state.Memory, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM session_memory WHERE session_id = ?`, id.String()).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	var m state.Memory
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory: %w", err)
	}
	return &m, nil
}

func (s *SQLiteStorage) LoadCharacter(ctx context.Context, id string) (*actor.Character, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM characters WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.content.CharacterTemplate(ctx, id)
		}
		return nil, fmt.Errorf("failed to load character: %w", err)
	}
	var c actor.Character
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStorage) SaveCharacter(ctx context.Context, c *actor.Character) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal character: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO characters (id, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		c.ID, string(data), time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save character: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetStory(ctx context.Context, id string) (*story.Story, error) {
	return s.content.GetStory(ctx, id)
}

func (s *SQLiteStorage) ListStories(ctx context.Context) (map[string]string, error) {
	return s.content.ListStories(ctx)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
