package statestore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kandev/agentgate/internal/db/dialect"
	"github.com/kandev/agentgate/pkg/agentrt"
)

// SQLStore is the alternative Store backend for hosts that already run a
// database rather than the in-memory VFS. It satisfies the same Store
// contract as VFSStore. Queries are written with `?` placeholders and
// rebound per-driver through sqlx, so the same store works unchanged against
// both sqlite3 and pgx connections opened by internal/db.
type SQLStore struct {
	db    *sqlx.DB
	clock agentrt.Clock
}

// NewSQLStore wraps an existing *sql.DB (see internal/persistence.Provide)
// and ensures the backing table exists. driverName must be one of
// dialect.SQLite3 or dialect.PGX.
func NewSQLStore(conn *sql.DB, driverName string, clock agentrt.Clock) (*SQLStore, error) {
	if clock == nil {
		clock = agentrt.SystemClock{}
	}
	s := &SQLStore{db: sqlx.NewDb(conn, driverName), clock: clock}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema() error {
	timestampType := "TIMESTAMP"
	if dialect.IsPostgres(s.db.DriverName()) {
		timestampType = "TIMESTAMPTZ"
	}
	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS agent_states (
			agent_id TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			state_json TEXT NOT NULL,
			events_json TEXT NOT NULL,
			saved_at %s NOT NULL
		)
	`, timestampType))
	if err != nil {
		return fmt.Errorf("statestore: ensure schema: %w", err)
	}
	return nil
}

func (s *SQLStore) Save(id agentrt.AgentID, state agentrt.AgentState, events []agentrt.CycleResult) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("statestore: marshal state: %w", err)
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("statestore: marshal events: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statestore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// A single upsert is the SQL analogue of the VFS's
	// write-to-temp-then-rename: the row is atomically swapped, never left
	// half-written.
	_, err = tx.Exec(s.db.Rebind(`
		INSERT INTO agent_states (agent_id, version, state_json, events_json, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			version = excluded.version,
			state_json = excluded.state_json,
			events_json = excluded.events_json,
			saved_at = excluded.saved_at
	`), string(id), agentrt.StateSchemaVersion, string(stateJSON), string(eventsJSON), s.clock.Now())
	if err != nil {
		return fmt.Errorf("statestore: save: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) Load(id agentrt.AgentID) (Envelope, error) {
	row := s.db.QueryRow(s.db.Rebind(`
		SELECT version, state_json, events_json, saved_at
		FROM agent_states WHERE agent_id = ?
	`), string(id))

	var (
		version             int
		stateJSON, eventsJSON string
		savedAt             []byte
	)
	if err := row.Scan(&version, &stateJSON, &eventsJSON, &savedAt); err != nil {
		if err == sql.ErrNoRows {
			return Envelope{}, ErrNotFound
		}
		return Envelope{}, fmt.Errorf("statestore: load: %w", err)
	}
	if version > agentrt.StateSchemaVersion {
		return Envelope{}, ErrUnknownVersion
	}

	var env Envelope
	env.Version = version
	env.AgentID = id
	if err := json.Unmarshal([]byte(stateJSON), &env.State); err != nil {
		return Envelope{}, fmt.Errorf("statestore: unmarshal state: %w", err)
	}
	if err := json.Unmarshal([]byte(eventsJSON), &env.Events); err != nil {
		return Envelope{}, fmt.Errorf("statestore: unmarshal events: %w", err)
	}
	return env, nil
}

func (s *SQLStore) Delete(id agentrt.AgentID) error {
	_, err := s.db.Exec(s.db.Rebind(`DELETE FROM agent_states WHERE agent_id = ?`), string(id))
	if err != nil {
		return fmt.Errorf("statestore: delete: %w", err)
	}
	return nil
}

func (s *SQLStore) List() ([]agentrt.AgentID, error) {
	rows, err := s.db.Query(`SELECT agent_id FROM agent_states ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("statestore: list: %w", err)
	}
	defer rows.Close()

	var ids []agentrt.AgentID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("statestore: scan: %w", err)
		}
		ids = append(ids, agentrt.AgentID(id))
	}
	return ids, rows.Err()
}
