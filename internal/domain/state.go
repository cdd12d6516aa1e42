package domain

import (
	"context"
	"encoding/json"
	"time"
)

// TaskState is a conversation-state record scoped to one (task, agent)
// pair. The State payload is opaque to the store; callers typically keep
// a message history and turn counter in it.
type TaskState struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	AgentID   string          `json:"agent_id"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StateStore persists conversation state across turns.
type StateStore interface {
	// Get returns the state for a (task, agent) pair, or ErrStateNotFound.
	Get(ctx context.Context, taskID, agentID string) (*TaskState, error)
	// Create stores a new state record and returns it with a generated id.
	// Returns ErrStateDuplicate if the pair already has a record.
	Create(ctx context.Context, taskID, agentID string, state json.RawMessage) (*TaskState, error)
	// Update replaces the payload of an existing record by state id.
	Update(ctx context.Context, stateID string, state json.RawMessage) error
}
