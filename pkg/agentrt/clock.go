package agentrt

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall time so runner and cycle tests can inject a fake.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator mints globally unique agent and session identifiers.
type IDGenerator interface {
	NewAgentID() AgentID
	NewToken() string
}

// UUIDGenerator is the production IDGenerator backed by google/uuid.
type UUIDGenerator struct{}

func (UUIDGenerator) NewAgentID() AgentID { return AgentID(uuid.New().String()) }
func (UUIDGenerator) NewToken() string    { return uuid.New().String() }
