// Package events defines the event subjects published on the runtime's event bus.
package events

// Subjects published by the agent runner for a given agent id. Hosts that
// attach an external bus (internal/events/bus) subscribe to these rather
// than touching agent state directly.
const (
	AgentStarted        = "agent.started"
	AgentCycleCompleted = "agent.cycle_completed"
	AgentStopped        = "agent.stopped"
	AgentError          = "agent.error"
)

// Subjects for trigger gate outcomes. No package in this module publishes
// on them; the trigger gate returns its results to the caller instead.
const (
	GateDispatched = "gate.dispatched"
	GateRejected   = "gate.rejected"
)

// BuildAgentSubject returns the subject for a specific agent's events.
func BuildAgentSubject(base, agentID string) string {
	return base + "." + agentID
}

// BuildAgentWildcardSubject returns a subject pattern matching every agent's
// events for the given base subject.
func BuildAgentWildcardSubject(base string) string {
	return base + ".*"
}
