// Package dispatch turns an authorized trigger into a DispatchEnvelope the
// agent runtime can consume. It owns the one piece of vocabulary glue the
// rest of Core B does not: combining the Trigger Parser's bare action
// keyword (e.g. "approved") with the originating item's kind (issue or pull
// request) into the prefixed action string SecurityConfig.AllowedActions
// expects (e.g. "issue_approved").
package dispatch

import (
	"errors"
	"fmt"

	"github.com/kandev/agentgate/pkg/agentrt"
	"github.com/kandev/agentgate/pkg/triggergate"
)

// ErrUnrouted is returned when a trigger names no agent and the resolver
// cannot find one either.
var ErrUnrouted = errors.New("unrouted: no agent available for trigger")

// ItemKind is the originating item's type, used to qualify the action.
type ItemKind string

const (
	ItemIssue ItemKind = "issue"
	ItemPR    ItemKind = "pr"
)

// AgentResolver finds an agent to run when a trigger comment doesn't name
// one explicitly (the "[Action]" form without a following "[agent]").
type AgentResolver func(repository string, kind ItemKind) (agentrt.AgentID, bool)

// QualifiedAction renders the prefixed action string an authorized
// TriggerInfo maps to, e.g. ("approved", ItemIssue) -> "issue_approved".
func QualifiedAction(action string, kind ItemKind) string {
	return fmt.Sprintf("%s_%s", kind, action)
}

// Adapter resolves authorized triggers into dispatch envelopes.
type Adapter struct {
	resolveAgent AgentResolver
	clock        agentrt.Clock
}

// New returns an Adapter. clock may be nil to use the system clock.
func New(resolveAgent AgentResolver, clock agentrt.Clock) *Adapter {
	if clock == nil {
		clock = agentrt.SystemClock{}
	}
	return &Adapter{resolveAgent: resolveAgent, clock: clock}
}

// Resolve builds a DispatchEnvelope from an already-authorized trigger. The
// caller must have already run the trigger through the Security Manager
// using QualifiedAction(info.Action, kind) as the action argument.
func (a *Adapter) Resolve(info triggergate.TriggerInfo, kind ItemKind, repository, commentID string) (triggergate.DispatchEnvelope, error) {
	agentID := ""
	if info.Agent != nil && *info.Agent != "" {
		agentID = *info.Agent
	} else if a.resolveAgent != nil {
		if id, ok := a.resolveAgent(repository, kind); ok {
			agentID = string(id)
		}
	}
	if agentID == "" {
		return triggergate.DispatchEnvelope{}, ErrUnrouted
	}

	return triggergate.DispatchEnvelope{
		AgentID:    agentID,
		Action:     QualifiedAction(info.Action, kind),
		Originator: info.Username,
		Repository: repository,
		IssuedAt:   a.clock.Now(),
		CommentID:  commentID,
	}, nil
}
