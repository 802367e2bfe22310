// Package persistence implements the Persistence Coordinator: on-demand and
// shutdown snapshots of running agents, taken without pausing their cycle
// loops.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kandev/agentgate/pkg/agentrt"
	"github.com/kandev/agentgate/pkg/agentrt/runner"
	"github.com/kandev/agentgate/pkg/agentrt/statestore"
)

// defaultReplyTimeout bounds how long a snapshot waits for a running
// agent's reply before giving up.
const defaultReplyTimeout = 5 * time.Second

// Coordinator snapshots agents on demand or at shutdown.
type Coordinator struct {
	runner       *runner.Runner
	store        statestore.Store
	replyTimeout time.Duration
}

// New returns a Coordinator. replyTimeout <= 0 uses defaultReplyTimeout.
func New(r *runner.Runner, store statestore.Store, replyTimeout time.Duration) *Coordinator {
	if replyTimeout <= 0 {
		replyTimeout = defaultReplyTimeout
	}
	return &Coordinator{runner: r, store: store, replyTimeout: replyTimeout}
}

// Snapshot takes a consistent snapshot of a running agent without pausing
// it: it sends GetStatus/GetCycles to the agent's mailbox and pairs the
// replies, which are answered synchronously by the owning cycle task
// during its next non-blocking drain.
func (c *Coordinator) Snapshot(ctx context.Context, id agentrt.AgentID) error {
	handle, ok := c.runner.Lookup(id)
	if !ok {
		return fmt.Errorf("persistence: agent %q not found", id)
	}

	statusCmd, statusSlot := agentrt.GetStatusCommand()
	cyclesCmd, cyclesSlot := agentrt.GetCyclesCommand(0)

	if err := c.send(ctx, handle, statusCmd); err != nil {
		return err
	}
	if err := c.send(ctx, handle, cyclesCmd); err != nil {
		return err
	}

	status, err := c.awaitStatus(ctx, statusSlot)
	if err != nil {
		return err
	}
	cycles, err := c.awaitCycles(ctx, cyclesSlot)
	if err != nil {
		return err
	}

	return c.store.Save(id, status.State, cycles.Results)
}

func (c *Coordinator) send(ctx context.Context, handle agentrt.AgentHandle, cmd agentrt.Command) error {
	select {
	case handle.Commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.replyTimeout):
		return fmt.Errorf("persistence: timed out delivering command to %q", handle.ID)
	}
}

func (c *Coordinator) awaitStatus(ctx context.Context, slot agentrt.ReplySlot[agentrt.StatusReply]) (agentrt.StatusReply, error) {
	select {
	case reply := <-slot:
		return reply, nil
	case <-ctx.Done():
		return agentrt.StatusReply{}, ctx.Err()
	case <-time.After(c.replyTimeout):
		return agentrt.StatusReply{}, errors.New("persistence: timed out waiting for status reply")
	}
}

func (c *Coordinator) awaitCycles(ctx context.Context, slot agentrt.ReplySlot[agentrt.CyclesReply]) (agentrt.CyclesReply, error) {
	select {
	case reply := <-slot:
		return reply, nil
	case <-ctx.Done():
		return agentrt.CyclesReply{}, ctx.Err()
	case <-time.After(c.replyTimeout):
		return agentrt.CyclesReply{}, errors.New("persistence: timed out waiting for cycles reply")
	}
}

// SnapshotAll snapshots every currently registered agent concurrently,
// fanning out one goroutine per agent, and returns a combined error for any
// that failed. Each agent's snapshot only touches that agent's own mailbox,
// so the fan-out carries no cross-agent invariant to protect.
func (c *Coordinator) SnapshotAll(ctx context.Context) error {
	ids := c.runner.List()
	errs := make([]error, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			errs[i] = c.Snapshot(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// ShutdownAll issues Stop to every agent, awaits Stopped, then writes the
// final snapshots using each agent's state as it was at the moment it
// terminated.
func (c *Coordinator) ShutdownAll(ctx context.Context) error {
	ids := c.runner.List()
	handles := make(map[agentrt.AgentID]agentrt.AgentHandle, len(ids))
	for _, id := range ids {
		handle, ok := c.runner.Lookup(id)
		if !ok {
			continue
		}
		handles[id] = handle
		select {
		case handle.Commands <- agentrt.StopCommand():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for id, handle := range handles {
		select {
		case <-handle.Done:
		case <-ctx.Done():
			return ctx.Err()
		}
		state, results, ok := c.runner.FinalState(id)
		if !ok {
			continue
		}
		if err := c.store.Save(id, state, results); err != nil {
			return fmt.Errorf("persistence: save final snapshot for %q: %w", id, err)
		}
		c.runner.Remove(id)
	}
	return nil
}
