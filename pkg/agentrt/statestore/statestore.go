// Package statestore serializes agent state and cycle history as versioned
// records. Two backends satisfy the same Store contract: a VFS-backed
// implementation (the spec's default, one file per agent and no registry
// file) and a SQL-backed alternative for hosts that already run a database.
package statestore

import (
	"errors"
	"time"

	"github.com/kandev/agentgate/pkg/agentrt"
)

var (
	// ErrNotFound is returned when no record exists for the requested agent.
	ErrNotFound = errors.New("statestore: not found")
	// ErrUnknownVersion is returned when a record's schema version is newer
	// than this build understands.
	ErrUnknownVersion = errors.New("statestore: unknown schema version")
)

// Envelope is the versioned record persisted per agent:
// {version, agent_id, state, events, saved_at}.
type Envelope struct {
	Version int                  `json:"version"`
	AgentID agentrt.AgentID      `json:"agent_id"`
	State   agentrt.AgentState   `json:"state"`
	Events  []agentrt.CycleResult `json:"events"`
	SavedAt time.Time            `json:"saved_at"`
}

// Store persists and restores agent envelopes. Every Save is a full-record
// replacement, atomic from the caller's perspective.
type Store interface {
	Save(id agentrt.AgentID, state agentrt.AgentState, events []agentrt.CycleResult) error
	Load(id agentrt.AgentID) (Envelope, error)
	Delete(id agentrt.AgentID) error
	List() ([]agentrt.AgentID, error)
}
