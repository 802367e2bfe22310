// Package runner implements the Agent Runner: the cooperative scheduler
// that spawns agents, delivers commands, runs each agent's cycle loop, and
// emits lifecycle events. Cycle work and command handling for a single
// agent never run concurrently with each other; multiple agents run
// concurrently with no lock protecting cross-agent invariants.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kandev/agentgate/internal/common/logger"
	"github.com/kandev/agentgate/internal/events"
	"github.com/kandev/agentgate/internal/events/bus"
	"github.com/kandev/agentgate/pkg/agentrt"
	"github.com/kandev/agentgate/pkg/agentrt/cycle"
)

// maxResultBuffer bounds the in-memory ring of CycleResults kept per agent
// for GetCycles queries.
const maxResultBuffer = 256

// Runner is the cooperative, single-process supervisor for every spawned
// agent.
type Runner struct {
	cfg    agentrt.RunnerConfig
	clock  agentrt.Clock
	ids    agentrt.IDGenerator
	logger *logger.Logger
	bus    bus.EventBus // optional; nil disables cross-process event publication

	mu     sync.RWMutex
	agents map[agentrt.AgentID]*agentTask
}

type agentTask struct {
	id       agentrt.AgentID
	commands chan agentrt.Command
	events   chan agentrt.Event
	done     chan struct{}

	// finalState and finalResults are written exactly once, right before
	// done is closed. The close(done) establishes a happens-before edge, so
	// readers that have observed done closed may read these fields without
	// additional synchronization.
	finalState   agentrt.AgentState
	finalResults []agentrt.CycleResult
}

// New returns a Runner. eventBus may be nil.
func New(cfg agentrt.RunnerConfig, clock agentrt.Clock, ids agentrt.IDGenerator, log *logger.Logger, eventBus bus.EventBus) *Runner {
	if clock == nil {
		clock = agentrt.SystemClock{}
	}
	if ids == nil {
		ids = agentrt.UUIDGenerator{}
	}
	return &Runner{
		cfg:    cfg,
		clock:  clock,
		ids:    ids,
		logger: log,
		bus:    eventBus,
		agents: make(map[agentrt.AgentID]*agentTask),
	}
}

// Spawn registers and starts a new agent. If initial is non-nil the agent
// resumes from that state (a restored snapshot); otherwise a fresh state is
// created from cfg. Spawn fails only for a duplicate id; the failure
// surfaces to the caller and the agent is never registered.
func (r *Runner) Spawn(ctx context.Context, id agentrt.AgentID, cfg agentrt.AgentConfig, policy cycle.Policy, initial *agentrt.AgentState) (agentrt.AgentHandle, error) {
	if id == "" {
		id = r.ids.NewAgentID()
	}

	r.mu.Lock()
	if _, exists := r.agents[id]; exists {
		r.mu.Unlock()
		return agentrt.AgentHandle{}, fmt.Errorf("runner: agent %q already registered", id)
	}

	cmdBuf := r.cfg.CommandBufferSize
	if cmdBuf < 1 {
		cmdBuf = 1
	}
	evtBuf := r.cfg.EventBufferSize
	if evtBuf < 1 {
		evtBuf = 1
	}

	task := &agentTask{
		id:       id,
		commands: make(chan agentrt.Command, cmdBuf),
		events:   make(chan agentrt.Event, evtBuf),
		done:     make(chan struct{}),
	}
	r.agents[id] = task
	r.mu.Unlock()

	state := agentrt.NewAgentState(cfg, r.clock.Now())
	if initial != nil {
		state = *initial
	}

	go r.runAgent(ctx, task, cfg, policy, state)

	return agentrt.AgentHandle{
		ID:       id,
		Commands: task.commands,
		Events:   task.events,
		Done:     task.done,
	}, nil
}

// Lookup returns the handle for a registered agent.
func (r *Runner) Lookup(id agentrt.AgentID) (agentrt.AgentHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.agents[id]
	if !ok {
		return agentrt.AgentHandle{}, false
	}
	return agentrt.AgentHandle{ID: task.id, Commands: task.commands, Events: task.events, Done: task.done}, true
}

// List returns every currently registered agent id.
func (r *Runner) List() []agentrt.AgentID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]agentrt.AgentID, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	return ids
}

// Remove deregisters an agent once its task has reached Stopped. Callers
// should wait on AgentHandle.Done before calling this.
func (r *Runner) Remove(id agentrt.AgentID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

// FinalState returns the state and cycle history an agent held at the
// moment it stopped. Only valid after AgentHandle.Done has been observed
// closed; returns ok=false otherwise.
func (r *Runner) FinalState(id agentrt.AgentID) (agentrt.AgentState, []agentrt.CycleResult, bool) {
	r.mu.RLock()
	task, ok := r.agents[id]
	r.mu.RUnlock()
	if !ok {
		return agentrt.AgentState{}, nil, false
	}
	select {
	case <-task.done:
	default:
		return agentrt.AgentState{}, nil, false
	}
	return task.finalState, task.finalResults, true
}

func effectiveMaxCycles(runnerMax int, agentMax *int) int {
	switch {
	case runnerMax > 0 && agentMax != nil && *agentMax > 0:
		if runnerMax < *agentMax {
			return runnerMax
		}
		return *agentMax
	case runnerMax > 0:
		return runnerMax
	case agentMax != nil:
		return *agentMax
	default:
		return 0
	}
}

func trySend[T any](slot agentrt.ReplySlot[T], value T) {
	if slot == nil {
		return
	}
	select {
	case slot <- value:
	default:
		// caller already gave up on its reply slot; drop silently.
	}
}

func lastN(results []agentrt.CycleResult, count int) []agentrt.CycleResult {
	if count <= 0 || count >= len(results) {
		out := make([]agentrt.CycleResult, len(results))
		copy(out, results)
		return out
	}
	out := make([]agentrt.CycleResult, count)
	copy(out, results[len(results)-count:])
	return out
}

func appendBounded(results []agentrt.CycleResult, r agentrt.CycleResult, max int) []agentrt.CycleResult {
	results = append(results, r)
	if len(results) > max {
		results = results[len(results)-max:]
	}
	return results
}

// runAgent is the per-agent loop: the central state machine described for
// the Agent Runner. It owns `state` exclusively; nothing outside this
// goroutine ever mutates it.
func (r *Runner) runAgent(ctx context.Context, task *agentTask, cfg agentrt.AgentConfig, policy cycle.Policy, initial agentrt.AgentState) {
	defer close(task.done)

	state := initial
	var results []agentrt.CycleResult
	cycles := 0
	maxCycles := effectiveMaxCycles(r.cfg.MaxCycles, cfg.MaxCycles)
	shouldStop := false

	r.emit(task, agentrt.Event{Kind: agentrt.EventStarted, AgentID: task.id})

	reason := ""
runLoop:
	for {
		// Non-blocking drain: process every pending command in FIFO order
		// without suspending.
		for drained := false; !drained; {
			select {
			case cmd := <-task.commands:
				r.handleCommand(task, cmd, &state, &results, &shouldStop)
			default:
				drained = true
			}
		}

		if shouldStop {
			reason = "Stopped by command"
			break runLoop
		}
		if !state.IsActive {
			reason = "Deactivated"
			break runLoop
		}
		if !state.CanSurvive() {
			reason = "Cannot survive"
			break runLoop
		}
		if maxCycles > 0 && cycles >= maxCycles {
			reason = "Max cycles reached"
			break runLoop
		}

		result, next := cycle.Step(ctx, policy, state, cfg.Backends, r.clock)
		state = next

		if !result.Terminal {
			cycles++
			results = appendBounded(results, result, maxResultBuffer)
			if result.Outcome == agentrt.OutcomeFailure {
				r.emit(task, agentrt.Event{Kind: agentrt.EventError, AgentID: task.id,
					Err: fmt.Errorf("cycle %d failed", result.Cycle)})
			} else {
				r.emit(task, agentrt.Event{Kind: agentrt.EventCycleCompleted, AgentID: task.id, Cycle: result.Cycle})
			}
		}

		if r.cfg.MaxConsecutiveFailures > 0 && state.ConsecutiveFailures >= r.cfg.MaxConsecutiveFailures {
			reason = "Cannot survive"
			break runLoop
		}

		if r.cfg.CycleDelay > 0 {
			if r.sleep(task, r.cfg.CycleDelay, &state, &results, &shouldStop) {
				reason = "Stopped by command"
				break runLoop
			}
		}
	}

	task.finalState = state
	task.finalResults = results
	r.emit(task, agentrt.Event{Kind: agentrt.EventStopped, AgentID: task.id, Reason: reason})
}

// sleep waits for delay, servicing any commands that arrive in the
// meantime. It returns true if a Stop command cancelled the sleep early.
func (r *Runner) sleep(task *agentTask, delay time.Duration, state *agentrt.AgentState, results *[]agentrt.CycleResult, shouldStop *bool) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return false
		case cmd := <-task.commands:
			r.handleCommand(task, cmd, state, results, shouldStop)
			if *shouldStop {
				return true
			}
		}
	}
}

func (r *Runner) handleCommand(task *agentTask, cmd agentrt.Command, state *agentrt.AgentState, results *[]agentrt.CycleResult, shouldStop *bool) {
	switch cmd.Kind {
	case agentrt.CommandStop:
		*shouldStop = true
	case agentrt.CommandGetStatus:
		trySend(cmd.StatusReply, agentrt.StatusReply{State: *state})
	case agentrt.CommandGetCycles:
		trySend(cmd.CyclesReply, agentrt.CyclesReply{Results: lastN(*results, cmd.CyclesCount)})
	}
}

// emit delivers e on the agent's local event channel (dropping the oldest
// pending event if full) and, if a bus is configured, republishes it for
// cross-process consumers.
func (r *Runner) emit(task *agentTask, e agentrt.Event) {
	select {
	case task.events <- e:
	default:
		select {
		case <-task.events:
		default:
		}
		select {
		case task.events <- e:
		default:
		}
	}

	if r.logger != nil {
		r.logger.Debug("agent event", zap.String("agent_id", string(task.id)), zap.Int("kind", int(e.Kind)))
	}

	if r.bus == nil {
		return
	}
	subject := events.BuildAgentSubject(subjectForKind(e.Kind), string(task.id))
	data := map[string]any{"agent_id": string(task.id)}
	if e.Cycle != 0 {
		data["cycle"] = e.Cycle
	}
	if e.Reason != "" {
		data["reason"] = e.Reason
	}
	if e.Err != nil {
		data["error"] = e.Err.Error()
	}
	busEvent := bus.NewEvent(subjectForKind(e.Kind), "agent-runner", data)
	_ = r.bus.Publish(context.Background(), subject, busEvent)
}

func subjectForKind(kind agentrt.EventKind) string {
	switch kind {
	case agentrt.EventStarted:
		return events.AgentStarted
	case agentrt.EventCycleCompleted:
		return events.AgentCycleCompleted
	case agentrt.EventStopped:
		return events.AgentStopped
	default:
		return events.AgentError
	}
}
