package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/kandev/agentgate/pkg/agentrt"
	"github.com/kandev/agentgate/pkg/triggergate"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

func TestQualifiedAction(t *testing.T) {
	if got := QualifiedAction("approved", ItemIssue); got != "issue_approved" {
		t.Fatalf("got %q", got)
	}
	if got := QualifiedAction("review", ItemPR); got != "pr_review" {
		t.Fatalf("got %q", got)
	}
}

func TestResolve_UsesAgentNamedInTrigger(t *testing.T) {
	a := New(nil, fixedClock{now: time.Unix(100, 0)})
	agent := "triage-bot"
	info := triggergate.TriggerInfo{Action: "review", Agent: &agent, Username: "bob"}

	env, err := a.Resolve(info, ItemIssue, "acme/widgets", "comment-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if env.AgentID != "triage-bot" || env.Action != "issue_review" || env.Originator != "bob" {
		t.Fatalf("env = %+v", env)
	}
	if env.Repository != "acme/widgets" || env.CommentID != "comment-1" {
		t.Fatalf("env = %+v", env)
	}
	if !env.IssuedAt.Equal(time.Unix(100, 0)) {
		t.Fatalf("issued at = %v", env.IssuedAt)
	}
}

func TestResolve_FallsBackToResolver(t *testing.T) {
	resolver := func(repository string, kind ItemKind) (agentrt.AgentID, bool) {
		if repository == "acme/widgets" && kind == ItemPR {
			return "default-agent", true
		}
		return "", false
	}
	a := New(resolver, nil)
	info := triggergate.TriggerInfo{Action: "close", Username: "alice"}

	env, err := a.Resolve(info, ItemPR, "acme/widgets", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if env.AgentID != "default-agent" {
		t.Fatalf("agent id = %q", env.AgentID)
	}
}

func TestResolve_UnroutedWhenNoAgentFound(t *testing.T) {
	a := New(nil, nil)
	info := triggergate.TriggerInfo{Action: "close", Username: "alice"}

	_, err := a.Resolve(info, ItemIssue, "acme/widgets", "")
	if !errors.Is(err, ErrUnrouted) {
		t.Fatalf("err = %v, want ErrUnrouted", err)
	}
}
