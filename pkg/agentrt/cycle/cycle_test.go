package cycle

import (
	"context"
	"testing"
	"time"

	"github.com/kandev/agentgate/pkg/agentrt"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

type fakeMarketplace struct {
	available int
	earnings  float64
	failNext  bool
}

func (m *fakeMarketplace) AvailableTasks(ctx context.Context) (int, error) {
	return m.available, nil
}

func (m *fakeMarketplace) CompleteTask(ctx context.Context) (float64, error) {
	if m.failNext {
		return 0, errTaskFailed
	}
	return m.earnings, nil
}

var errTaskFailed = &stepError{"task failed"}

type stepError struct{ msg string }

func (e *stepError) Error() string { return e.msg }

func TestStep_TerminatesOnSurvivalFailure(t *testing.T) {
	state := agentrt.AgentState{IsActive: false}
	result, next := Step(context.Background(), Policy{}, state, agentrt.Backends{}, fixedClock{})
	if !result.Terminal {
		t.Fatalf("expected terminal result")
	}
	if next.CurrentCycle != state.CurrentCycle {
		t.Fatalf("state must be unchanged on terminal result")
	}
}

func TestStep_ZeroCapacityBackendsYieldNeutral(t *testing.T) {
	state := agentrt.AgentState{IsActive: true, Balance: 10}
	result, next := Step(context.Background(), Policy{MaxTasksPerCycle: 1}, state, agentrt.Backends{}, fixedClock{t: time.Unix(100, 0)})
	if result.Outcome != agentrt.OutcomeNeutral {
		t.Fatalf("outcome = %v, want neutral", result.Outcome)
	}
	if next.CurrentCycle != 1 {
		t.Fatalf("current cycle = %d, want 1", next.CurrentCycle)
	}
}

func TestStep_ClaimsTaskWhenAvailable(t *testing.T) {
	state := agentrt.AgentState{IsActive: true, Balance: 0}
	backends := agentrt.Backends{Marketplace: &fakeMarketplace{available: 3, earnings: 12.345}}
	result, next := Step(context.Background(), Policy{MaxTasksPerCycle: 1}, state, backends, fixedClock{t: time.Unix(0, 0)})

	if result.Outcome != agentrt.OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", result.Outcome)
	}
	if next.Balance != 12.35 {
		t.Fatalf("balance = %v, want rounded 12.35", next.Balance)
	}
	if next.TasksCompleted != 1 {
		t.Fatalf("tasks completed = %d, want 1", next.TasksCompleted)
	}
}

func TestStep_RespectsMaxTasksPerCycle(t *testing.T) {
	state := agentrt.AgentState{IsActive: true, TasksCompleted: 1}
	backends := agentrt.Backends{Marketplace: &fakeMarketplace{available: 5, earnings: 1}}
	result, _ := Step(context.Background(), Policy{MaxTasksPerCycle: 1}, state, backends, fixedClock{})
	if result.Outcome != agentrt.OutcomeNeutral {
		t.Fatalf("outcome = %v, want neutral once per-cycle limit reached", result.Outcome)
	}
}

func TestStep_FailedTaskIncrementsConsecutiveFailures(t *testing.T) {
	state := agentrt.AgentState{IsActive: true}
	backends := agentrt.Backends{Marketplace: &fakeMarketplace{available: 1, failNext: true}}
	result, next := Step(context.Background(), Policy{MaxTasksPerCycle: 1}, state, backends, fixedClock{})

	if result.Outcome != agentrt.OutcomeFailure {
		t.Fatalf("outcome = %v, want failure", result.Outcome)
	}
	if next.ConsecutiveFailures != 1 {
		t.Fatalf("consecutive failures = %d, want 1", next.ConsecutiveFailures)
	}

	// A subsequent successful cycle resets the streak.
	backends.Marketplace.(*fakeMarketplace).failNext = false
	_, next = Step(context.Background(), Policy{MaxTasksPerCycle: 1}, next, backends, fixedClock{})
	if next.ConsecutiveFailures != 0 {
		t.Fatalf("consecutive failures = %d, want reset to 0", next.ConsecutiveFailures)
	}
}
