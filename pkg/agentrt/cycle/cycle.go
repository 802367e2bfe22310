// Package cycle implements the pure per-tick step of a single agent:
// survival check, decision, execution against backend interfaces, state
// update, and result emission. Nothing here spawns goroutines or touches
// the VFS directly; pkg/agentrt/runner drives it.
package cycle

import (
	"context"
	"math"

	"github.com/kandev/agentgate/pkg/agentrt"
)

// Policy is the immutable input consulted every tick.
type Policy struct {
	MaxTasksPerCycle int
}

// Action is the decision a cycle reaches for the current tick.
type Action int

const (
	// ActionIdle is chosen when no task is available or the per-cycle task
	// limit has already been reached. Declared first so it is the tie-break
	// winner when priorities are otherwise equal.
	ActionIdle Action = iota
	ActionClaimTask
)

// Decision is the opaque value recorded on CycleResult.Decision.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// Oracle is a point-in-time snapshot of backend state, taken once per cycle
// so the decision phase is deterministic given the same snapshot.
type Oracle struct {
	AvailableTasks int
	Balance        float64
	ComputeHours   float64
}

// Snapshot queries backends once to build an Oracle for this tick. A nil
// backend contributes zero capacity rather than an error.
func Snapshot(ctx context.Context, backends agentrt.Backends) Oracle {
	var o Oracle
	if backends.Marketplace != nil {
		if n, err := backends.Marketplace.AvailableTasks(ctx); err == nil {
			o.AvailableTasks = n
		}
	}
	if backends.Wallet != nil {
		if b, err := backends.Wallet.Balance(ctx); err == nil {
			o.Balance = b
		}
	}
	if backends.Compute != nil {
		if h, err := backends.Compute.Capacity(ctx); err == nil {
			o.ComputeHours = h
		}
	}
	return o
}

// decide picks an action from the current state, policy, and oracle
// snapshot. Deterministic: the same three inputs always yield the same
// decision.
// The task counters are lifetime totals, so the per-cycle limit is applied
// cumulatively: at most limit tasks for each cycle run so far, this one
// included.
func decide(policy Policy, state agentrt.AgentState, oracle Oracle) Decision {
	tasksSoFar := state.TasksCompleted + state.TasksFailed
	limit := policy.MaxTasksPerCycle
	if limit <= 0 {
		limit = 1
	}
	if oracle.AvailableTasks > 0 && tasksSoFar < (state.CurrentCycle+1)*limit {
		return Decision{Action: ActionClaimTask, Reason: "task available within per-cycle limit"}
	}
	return Decision{Action: ActionIdle, Reason: "no task available or per-cycle limit reached"}
}

// execute applies decision against live backends and collects the
// resulting deltas. A zero-capacity marketplace yields a neutral outcome,
// never an error.
func execute(ctx context.Context, decision Decision, backends agentrt.Backends) (agentrt.Outcome, agentrt.Deltas, error) {
	if decision.Action != ActionClaimTask {
		return agentrt.OutcomeNeutral, agentrt.Deltas{}, nil
	}
	if backends.Marketplace == nil {
		return agentrt.OutcomeNeutral, agentrt.Deltas{}, nil
	}

	earnings, err := backends.Marketplace.CompleteTask(ctx)
	if err != nil {
		return agentrt.OutcomeFailure, agentrt.Deltas{TasksFailed: 1}, nil
	}
	return agentrt.OutcomeSuccess, agentrt.Deltas{Earnings: round2(earnings), TasksDone: 1}, nil
}

// Step runs one full cycle: survival check, decision, execution, state
// update, and emission. It never mutates the state passed in; it returns
// the next state.
func Step(ctx context.Context, policy Policy, state agentrt.AgentState, backends agentrt.Backends, clock agentrt.Clock) (agentrt.CycleResult, agentrt.AgentState) {
	now := clock.Now()

	if !state.CanSurvive() {
		return agentrt.CycleResult{
			Cycle:     state.CurrentCycle,
			Timestamp: now,
			Outcome:   agentrt.OutcomeFailure,
			Terminal:  true,
		}, state
	}

	oracle := Snapshot(ctx, backends)
	decision := decide(policy, state, oracle)
	outcome, deltas, _ := execute(ctx, decision, backends)

	next := state
	next.Balance = round2(next.Balance + deltas.Earnings - deltas.Expenses)
	next.TotalEarnings = round2(next.TotalEarnings + deltas.Earnings)
	next.TotalExpenses = round2(next.TotalExpenses + deltas.Expenses)
	next.TasksCompleted += deltas.TasksDone
	next.TasksFailed += deltas.TasksFailed
	next.ComputeHours += deltas.ComputeHours
	next.Reputation += deltas.Reputation
	next.CurrentCycle++
	next.LastUpdated = now

	if outcome == agentrt.OutcomeFailure {
		next.ConsecutiveFailures++
	} else {
		next.ConsecutiveFailures = 0
	}

	result := agentrt.CycleResult{
		Cycle:     next.CurrentCycle,
		Timestamp: now,
		Decision:  decision,
		Outcome:   outcome,
		Deltas:    deltas,
	}
	return result, next
}

// round2 rounds to 2 fractional places, the precision required at
// persistence boundaries for monetary counters.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
