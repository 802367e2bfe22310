// Package triggergate implements Core B: parsing action triggers from
// free-text comments, resolving the authorized actor, enforcing per-user
// rate limits, and emitting an authorized dispatch record the agent runtime
// can consume.
package triggergate

import "time"

// TriggerInfo is a parsed, not-yet-authorized directive.
type TriggerInfo struct {
	Action   string // lowercase
	Agent    *string
	Username string
}

// DispatchEnvelope is the gate's output: an authorized command ready to be
// enqueued into the runner.
type DispatchEnvelope struct {
	AgentID    string
	Action     string
	Originator string
	Repository string
	IssuedAt   time.Time
	// CommentID identifies the triggering comment, when the source is a
	// GitHub comment rather than an item body. Empty for body-fallback
	// triggers.
	CommentID string
}
