package main

import (
	"context"
	"sync"
)

// demoMarketplace is a deterministic, in-memory MarketplaceBackend used by
// the demo host: each cycle restocks a fixed number of tasks, each worth a
// fixed payout. Real hosts wire agentrt.Backends to their own economic
// systems; the core never inspects these types.
type demoMarketplace struct {
	mu           sync.Mutex
	restockPer   int
	payout       float64
	availableNow int
}

func newDemoMarketplace(restockPer int, payout float64) *demoMarketplace {
	return &demoMarketplace{restockPer: restockPer, payout: payout, availableNow: restockPer}
}

func (m *demoMarketplace) AvailableTasks(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.availableNow <= 0 {
		m.availableNow = m.restockPer
	}
	return m.availableNow, nil
}

func (m *demoMarketplace) CompleteTask(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.availableNow > 0 {
		m.availableNow--
	}
	return m.payout, nil
}

// demoWallet reports a wallet balance derived from the agent's own state at
// spawn time; it never changes independently of the cycle's own deltas.
type demoWallet struct {
	balance float64
}

func (w *demoWallet) Balance(ctx context.Context) (float64, error) {
	return w.balance, nil
}

// demoCompute reports a fixed compute capacity.
type demoCompute struct {
	hours float64
}

func (c *demoCompute) Capacity(ctx context.Context) (float64, error) {
	return c.hours, nil
}
