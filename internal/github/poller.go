package github

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kandev/agentgate/internal/common/logger"
)

const defaultPollInterval = 1 * time.Minute

// OnComment is invoked for every new comment the poller observes, whether
// or not it matches a trigger directive.
type OnComment func(Comment)

// Poller periodically lists comments for configured repositories and hands
// each new one to an OnComment callback. It tracks the newest comment
// timestamp seen per repository so restarts don't replay old comments
// indefinitely, but keeps no other state.
type Poller struct {
	client       Client
	repositories []string
	interval     time.Duration
	logger       *logger.Logger
	onComment    OnComment
	limiter      *rate.Limiter

	mu       sync.Mutex
	lastSeen map[string]time.Time

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewPoller creates a Poller. interval <= 0 uses defaultPollInterval.
// requestsPerSecond <= 0 leaves outbound GitHub API calls unlimited; a
// positive value smooths bursts across the polled repositories with a
// token bucket, distinct from the Security Manager's hand-rolled exact
// sliding window over user actions.
func NewPoller(client Client, repositories []string, interval time.Duration, requestsPerSecond float64, log *logger.Logger, onComment OnComment) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Poller{
		client:       client,
		repositories: repositories,
		interval:     interval,
		logger:       log,
		onComment:    onComment,
		limiter:      limiter,
		lastSeen:     make(map[string]time.Time),
	}
}

// Start begins the background polling loop. Calling Start more than once
// without Stop is a no-op.
func (p *Poller) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.loop(ctx)

	p.logger.Info("github comment poller started", zap.Int("repositories", len(p.repositories)))
}

// Stop cancels the polling loop and waits for it to finish.
func (p *Poller) Stop() {
	if !p.started {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.started = false
	p.logger.Info("github comment poller stopped")
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	p.pollAll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) {
	for _, repo := range p.repositories {
		p.pollRepository(ctx, repo)
	}
}

func (p *Poller) pollRepository(ctx context.Context, repository string) {
	owner, name, err := repoSplit(repository)
	if err != nil {
		p.logger.Error("skipping malformed repository", zap.String("repository", repository), zap.Error(err))
		return
	}

	p.mu.Lock()
	since, ok := p.lastSeen[repository]
	p.mu.Unlock()
	var sincePtr *time.Time
	if ok {
		sincePtr = &since
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
	}

	comments, err := p.client.ListRepositoryComments(ctx, owner, name, sincePtr)
	if err != nil {
		p.logger.Debug("failed to list repository comments", zap.String("repository", repository), zap.Error(err))
		return
	}
	if len(comments) == 0 {
		return
	}

	newest := since
	for _, c := range comments {
		if c.UpdatedAt.After(newest) {
			newest = c.UpdatedAt
		}
		if p.onComment != nil {
			p.onComment(c)
		}
	}
	p.mu.Lock()
	p.lastSeen[repository] = newest
	p.mu.Unlock()
}
