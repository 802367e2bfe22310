package statestore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kandev/agentgate/pkg/agentrt"
	"github.com/kandev/agentgate/pkg/agentrt/vfs"
)

// VFSStore is the default Store: one JSON file per agent under root, named
// "<agent_id>.json".
type VFSStore struct {
	fs    vfs.FS
	root  string
	clock agentrt.Clock
}

// NewVFSStore returns a VFSStore rooted at root, creating the directory if
// it does not already exist.
func NewVFSStore(fs vfs.FS, root string, clock agentrt.Clock) (*VFSStore, error) {
	if root == "" {
		root = "/state"
	}
	if !fs.Exists(root) {
		if err := fs.Mkdir(root); err != nil {
			return nil, fmt.Errorf("statestore: create root: %w", err)
		}
	}
	if clock == nil {
		clock = agentrt.SystemClock{}
	}
	return &VFSStore{fs: fs, root: root, clock: clock}, nil
}

func (s *VFSStore) pathFor(id agentrt.AgentID) string {
	return s.root + "/" + string(id) + ".json"
}

func (s *VFSStore) Save(id agentrt.AgentID, state agentrt.AgentState, events []agentrt.CycleResult) error {
	env := Envelope{
		Version: agentrt.StateSchemaVersion,
		AgentID: id,
		State:   state,
		Events:  events,
		SavedAt: s.clock.Now(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("statestore: marshal: %w", err)
	}
	// Store.Write replaces the whole node under its own lock, which is the
	// VFS's equivalent of a write-to-temp-then-rename: callers never observe
	// a partially written file.
	if err := s.fs.Write(s.pathFor(id), data); err != nil {
		return fmt.Errorf("statestore: write: %w", err)
	}
	return nil
}

func (s *VFSStore) Load(id agentrt.AgentID) (Envelope, error) {
	data, err := s.fs.Read(s.pathFor(id))
	if err != nil {
		if err == vfs.ErrNotFound {
			return Envelope{}, ErrNotFound
		}
		return Envelope{}, fmt.Errorf("statestore: read: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("statestore: unmarshal: %w", err)
	}
	if env.Version > agentrt.StateSchemaVersion {
		return Envelope{}, ErrUnknownVersion
	}
	return env, nil
}

func (s *VFSStore) Delete(id agentrt.AgentID) error {
	err := s.fs.Remove(s.pathFor(id))
	if err != nil && err != vfs.ErrNotFound {
		return fmt.Errorf("statestore: remove: %w", err)
	}
	return nil
}

func (s *VFSStore) List() ([]agentrt.AgentID, error) {
	names, err := s.fs.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("statestore: readdir: %w", err)
	}
	ids := make([]agentrt.AgentID, 0, len(names))
	for _, n := range names {
		if !strings.HasSuffix(n, ".json") {
			continue
		}
		ids = append(ids, agentrt.AgentID(strings.TrimSuffix(n, ".json")))
	}
	return ids, nil
}
