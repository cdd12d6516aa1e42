// Package state persists per-task conversation state in SQLite. Each
// (task, agent) pair owns at most one record; the payload is an opaque
// JSON blob the store never inspects.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"trialmatch/internal/domain"
)

// SQLiteStateStore implements domain.StateStore using SQLite.
type SQLiteStateStore struct {
	db *sql.DB
}

// NewSQLiteStateStore opens (or creates) a SQLite database at dbPath
// and runs the schema migration. ":memory:" gives an ephemeral store.
func NewSQLiteStateStore(dbPath string) (*SQLiteStateStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if dbPath == ":memory:" {
		// The in-memory database must stay on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		// WAL mode for better concurrent reads.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state db: %w", err)
	}
	return &SQLiteStateStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS task_states (
			id         TEXT PRIMARY KEY,
			task_id    TEXT NOT NULL,
			agent_id   TEXT NOT NULL,
			state      TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(task_id, agent_id)
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStateStore) Close() error {
	return s.db.Close()
}

// Get implements domain.StateStore.
func (s *SQLiteStateStore) Get(ctx context.Context, taskID, agentID string) (*domain.TaskState, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, task_id, agent_id, state, created_at, updated_at FROM task_states WHERE task_id = ? AND agent_id = ?",
		taskID, agentID,
	)
	ts, err := scanTaskState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewDomainError("SQLiteStateStore.Get", domain.ErrStateNotFound,
			fmt.Sprintf("task=%s agent=%s", taskID, agentID))
	}
	return ts, err
}

// Create implements domain.StateStore.
func (s *SQLiteStateStore) Create(ctx context.Context, taskID, agentID string, state json.RawMessage) (*domain.TaskState, error) {
	if len(state) == 0 {
		state = json.RawMessage("{}")
	}
	now := time.Now().UTC()
	ts := &domain.TaskState{
		ID:        generateULID(now),
		TaskID:    taskID,
		AgentID:   agentID,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO task_states (id, task_id, agent_id, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		ts.ID, taskID, agentID, string(state),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.NewDomainError("SQLiteStateStore.Create", domain.ErrStateDuplicate,
				fmt.Sprintf("task=%s agent=%s", taskID, agentID))
		}
		return nil, fmt.Errorf("insert task state: %w", err)
	}
	return ts, nil
}

// Update implements domain.StateStore.
func (s *SQLiteStateStore) Update(ctx context.Context, stateID string, state json.RawMessage) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"UPDATE task_states SET state = ?, updated_at = ? WHERE id = ?",
		string(state), now.Format(time.RFC3339Nano), stateID,
	)
	if err != nil {
		return fmt.Errorf("update task state: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewDomainError("SQLiteStateStore.Update", domain.ErrStateNotFound, stateID)
	}
	return nil
}

func scanTaskState(row *sql.Row) (*domain.TaskState, error) {
	var (
		ts                   domain.TaskState
		stateStr             string
		createdAt, updatedAt string
	)
	if err := row.Scan(&ts.ID, &ts.TaskID, &ts.AgentID, &stateStr, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	ts.State = json.RawMessage(stateStr)

	var err error
	if ts.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if ts.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &ts, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. The pure-Go driver exposes it only through the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// One process-wide entropy source: per-call seeding off the clock
// repeats ids when two calls land on the same clock reading.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func generateULID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

var _ domain.StateStore = (*SQLiteStateStore)(nil)
