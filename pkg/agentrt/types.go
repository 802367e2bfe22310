// Package agentrt defines the shared entity types used across the agent
// runtime: configuration, mutable per-agent state, cycle results, and the
// command/event vocabulary exchanged between the runner and its agents.
package agentrt

import (
	"context"
	"time"
)

// AgentID uniquely identifies an agent within a single runtime process.
// Never reused once assigned.
type AgentID string

// WalletBackend is the agent's opaque view of its economic balance.
type WalletBackend interface {
	Balance(ctx context.Context) (float64, error)
}

// MarketplaceBackend is the agent's opaque view of available work.
type MarketplaceBackend interface {
	// AvailableTasks reports how many tasks could be claimed this cycle.
	// Zero capacity is a valid, non-error response.
	AvailableTasks(ctx context.Context) (int, error)
	// CompleteTask claims and finishes one unit of work, returning the
	// earnings from it.
	CompleteTask(ctx context.Context) (earnings float64, err error)
}

// ComputeBackend is the agent's opaque view of available compute.
type ComputeBackend interface {
	Capacity(ctx context.Context) (hours float64, err error)
}

// Backends bundles the opaque handles an agent cycle reads from. All three
// are optional; a nil backend behaves as zero-capacity.
type Backends struct {
	Wallet      WalletBackend
	Marketplace MarketplaceBackend
	Compute     ComputeBackend
}

// AgentConfig is the immutable input consumed once at spawn.
type AgentConfig struct {
	Name            string
	MaxCycles       *int // nil means unbounded
	Backends        Backends
	InitialBalance  float64
	MaxTasksPerCycle int
	CycleDelay      time.Duration
}

// AgentState is the mutable per-agent record. It is owned exclusively by the
// agent's cycle task; the runner never mutates it directly.
type AgentState struct {
	Balance             float64
	ComputeHours        float64
	IsActive            bool
	HasCompany          bool
	CompanyID           *string
	TasksCompleted      int
	TasksFailed         int
	CurrentCycle        int
	TotalEarnings       float64
	TotalExpenses       float64
	Reputation          float64
	ConsecutiveFailures int
	CurrentTaskID       *string
	LastUpdated         time.Time

	// SchemaVersion and Metadata are expansion fields carried with the state;
	// no package reads them. The stores take the persisted envelope's version
	// from StateSchemaVersion, not from this field.
	SchemaVersion int
	Metadata      map[string]string
}

// NewAgentState returns the initial state for a freshly spawned agent.
func NewAgentState(cfg AgentConfig, now time.Time) AgentState {
	return AgentState{
		Balance:       cfg.InitialBalance,
		IsActive:      true,
		LastUpdated:   now,
		SchemaVersion: StateSchemaVersion,
		Metadata:      map[string]string{},
	}
}

// CanSurvive reports whether the agent's state permits another cycle. An
// agent that has gone inactive, or whose balance has fallen negative outside
// a terminal-failure path, cannot survive.
func (s AgentState) CanSurvive() bool {
	if !s.IsActive {
		return false
	}
	if s.Balance < 0 {
		return false
	}
	return true
}

// Outcome classifies how a cycle's action resolved.
type Outcome int

const (
	OutcomeNeutral Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "neutral"
	}
}

// Deltas captures the adjustments one cycle's execution phase produced.
type Deltas struct {
	Earnings     float64
	Expenses     float64
	TasksDone    int
	TasksFailed  int
	ComputeHours float64
	Reputation   float64
}

// CycleResult is the per-tick record produced exactly once per successful
// cycle. Decision is an opaque, caller-defined structure describing what the
// cycle chose to do; at the state store boundary it is serialized as JSON.
type CycleResult struct {
	Cycle     int
	Timestamp time.Time
	Decision  any
	Outcome   Outcome
	Deltas    Deltas
	// Terminal is set when the cycle emitted a survival-check failure
	// instead of running the decide/act pipeline; state is left unchanged.
	Terminal bool
}

// ReplySlot is a single-shot return channel: at most one value is ever sent,
// and only the original caller reads it.
type ReplySlot[T any] chan T

// NewReplySlot returns a buffered, single-shot reply channel.
func NewReplySlot[T any]() ReplySlot[T] {
	return make(ReplySlot[T], 1)
}

// CommandKind identifies which of the three recognized commands a Command
// carries.
type CommandKind int

const (
	CommandStop CommandKind = iota
	CommandGetStatus
	CommandGetCycles
)

// StatusReply is the payload returned by GetStatus.
type StatusReply struct {
	State AgentState
}

// CyclesReply is the payload returned by GetCycles.
type CyclesReply struct {
	Results []CycleResult
}

// Command is a message sent to exactly one agent's mailbox. Ordering within
// a single agent's queue is FIFO; commands for different agents are
// independent.
type Command struct {
	Kind CommandKind

	// StatusReply is populated (non-nil) for CommandGetStatus.
	StatusReply ReplySlot[StatusReply]
	// CyclesReply and CyclesCount are populated for CommandGetCycles;
	// CyclesCount caps how many of the most recent results are returned
	// (0 means all buffered results).
	CyclesReply ReplySlot[CyclesReply]
	CyclesCount int
}

// StopCommand builds a Stop command.
func StopCommand() Command {
	return Command{Kind: CommandStop}
}

// GetStatusCommand builds a GetStatus command with a fresh reply slot.
func GetStatusCommand() (Command, ReplySlot[StatusReply]) {
	slot := NewReplySlot[StatusReply]()
	return Command{Kind: CommandGetStatus, StatusReply: slot}, slot
}

// GetCyclesCommand builds a GetCycles command with a fresh reply slot.
// count == 0 requests every buffered result.
func GetCyclesCommand(count int) (Command, ReplySlot[CyclesReply]) {
	slot := NewReplySlot[CyclesReply]()
	return Command{Kind: CommandGetCycles, CyclesReply: slot, CyclesCount: count}, slot
}

// EventKind identifies which of the four recognized events an Event
// carries.
type EventKind int

const (
	EventStarted EventKind = iota
	EventCycleCompleted
	EventStopped
	EventError
)

// Event is published on the agent's broadcast channel. Delivery is
// at-least-once within a bounded buffer: if the buffer is full, the oldest
// pending event for that agent is dropped.
type Event struct {
	Kind    EventKind
	AgentID AgentID
	Cycle   int    // set for EventCycleCompleted
	Reason  string // set for EventStopped
	Err     error  // set for EventError
}

// AgentHandle is the runner's record for a registered agent. It is
// exclusively owned by the runner's registry; handles are looked up by id
// but never cloned out to external callers.
type AgentHandle struct {
	ID       AgentID
	Commands chan<- Command
	Events   <-chan Event
	Done     <-chan struct{}
}

// RunnerConfig holds the options recognized by the Agent Runner.
type RunnerConfig struct {
	// MaxCycles is a process-wide cap; 0 means unbounded. It overrides a
	// per-agent AgentConfig.MaxCycles when lower.
	MaxCycles int
	// CycleDelay is the minimum wall delay between ticks; may be zero.
	CycleDelay time.Duration
	// EventBufferSize and CommandBufferSize must each be >= 1.
	EventBufferSize   int
	CommandBufferSize int
	// MaxConsecutiveFailures stops an agent (Stopped, reason "Cannot
	// survive") after this many consecutive cycle failures. 0 disables the
	// check.
	MaxConsecutiveFailures int
}

// StateSchemaVersion is the current AgentState persistence schema version.
// Bump this whenever a field is added or reinterpreted at the store
// boundary; statestore.Load rejects records from a newer version.
const StateSchemaVersion = 1
