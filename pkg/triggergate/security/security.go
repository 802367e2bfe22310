// Package security implements the Security Manager: authorization of
// (user, action, repository) tuples and sliding-window rate limiting.
//
// The rate limiter is intentionally hand-rolled rather than built on
// golang.org/x/time/rate: the spec's testable properties require an exact
// sliding window over recorded timestamps (drop entries older than
// now-window, then reject if at capacity), which a token bucket cannot
// reproduce bit-for-bit.
package security

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kandev/agentgate/internal/common/config"
	"github.com/kandev/agentgate/pkg/triggergate"
	"github.com/kandev/agentgate/pkg/triggergate/trigger"
)

// Clock abstracts wall time for deterministic rate-limit tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type rateLimitKey struct {
	user   string
	action string
}

// Manager enforces the gate's authorization policies. The rate-limit table
// is process-wide shared mutable state guarded by a single mutex.
type Manager struct {
	cfg   config.SecurityConfig
	clock Clock

	mu         sync.Mutex
	rateLimits map[rateLimitKey][]time.Time
}

// New returns a Manager. clock may be nil to use the system clock.
func New(cfg config.SecurityConfig, clock Clock) *Manager {
	if clock == nil {
		clock = systemClock{}
	}
	return &Manager{
		cfg:        cfg,
		clock:      clock,
		rateLimits: make(map[rateLimitKey][]time.Time),
	}
}

// Environment inputs consulted by the Security Manager, per spec §6:
// AI_AGENT_ALLOWED_USERS supplies an additional comma-separated admin list;
// GITHUB_REPOSITORY's owner (the part before "/") is merged into the same
// allow set.
const (
	allowedUsersEnvVar = "AI_AGENT_ALLOWED_USERS"
	repositoryEnvVar   = "GITHUB_REPOSITORY"
)

func (m *Manager) allAdmins() []string {
	admins := append([]string{}, m.cfg.AgentAdmins...)
	if env := os.Getenv(allowedUsersEnvVar); env != "" {
		admins = append(admins, strings.Split(env, ",")...)
	}
	if repo := os.Getenv(repositoryEnvVar); repo != "" {
		if owner := repositoryOwner(repo); owner != "" {
			admins = append(admins, owner)
		}
	}
	return admins
}

// IsUserAllowed reports whether user is a recognized admin or the
// repository's owner. All comparisons are lowercase.
func (m *Manager) IsUserAllowed(user, repositoryOwner string) bool {
	if !m.cfg.Enabled {
		return true
	}
	user = strings.ToLower(strings.TrimSpace(user))
	if repositoryOwner != "" && strings.ToLower(repositoryOwner) == user {
		return true
	}
	for _, admin := range m.allAdmins() {
		if strings.ToLower(strings.TrimSpace(admin)) == user {
			return true
		}
	}
	return false
}

// IsActionAllowed reports whether action is a member of the closed
// allowed-actions set. Arbitrary strings are rejected even if otherwise
// well-formed.
func (m *Manager) IsActionAllowed(action string) bool {
	if !m.cfg.Enabled {
		return true
	}
	for _, a := range m.cfg.AllowedActions {
		if a == action {
			return true
		}
	}
	return false
}

// IsRepositoryAllowed reports whether repository (in "owner/name" form) is
// permitted. An empty allow-list permits every repository.
func (m *Manager) IsRepositoryAllowed(repository string) bool {
	if !m.cfg.Enabled {
		return true
	}
	if len(m.cfg.AllowedRepositories) == 0 {
		return true
	}
	for _, r := range m.cfg.AllowedRepositories {
		if r == repository {
			return true
		}
	}
	return false
}

// CheckRateLimit applies the sliding window for (user, action): timestamps
// older than now-window are dropped, then the request is rejected if the
// remaining count is already at the configured maximum; otherwise now is
// recorded and the request is allowed.
func (m *Manager) CheckRateLimit(user, action string) bool {
	if !m.cfg.Enabled {
		return true
	}
	key := rateLimitKey{user: strings.ToLower(user), action: action}
	now := m.clock.Now()
	window := m.cfg.RateLimitWindow()
	cutoff := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]time.Time, 0, len(m.rateLimits[key]))
	for _, t := range m.rateLimits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= m.cfg.RateLimitMaxRequests {
		m.rateLimits[key] = kept
		return false
	}
	m.rateLimits[key] = append(kept, now)
	return true
}

// CheckTriggerComment parses a candidate directive out of body/comments.
// It never authorizes the result; callers must still run it through
// PerformFullSecurityCheck.
func (m *Manager) CheckTriggerComment(body, author string, comments []trigger.Comment) (triggergate.TriggerInfo, bool) {
	return trigger.Parse(trigger.Item{Body: body, Author: author}, comments)
}

// rejectUser renders the configured reject-message template with the
// offending username, or falls back to a plain sentence if no template was
// configured. Only the user-not-allowed case uses this template; the other
// rejection categories each carry their own, non-configurable message.
func (m *Manager) rejectUser(user string) string {
	if m.cfg.RejectMessage == "" {
		return fmt.Sprintf("User '%s' is not authorized", user)
	}
	return fmt.Sprintf(m.cfg.RejectMessage, user)
}

// PerformFullSecurityCheck runs every policy in sequence and returns the
// first rejection reason, or (true, "") if every check passes. action is
// expected in the prefixed form used by SecurityConfig.AllowedActions
// (e.g. "issue_approved"), not the Trigger Parser's bare action keyword;
// combining the two is the Dispatch Adapter's job.
func (m *Manager) PerformFullSecurityCheck(user, action, repository string) (bool, string) {
	if !m.cfg.Enabled {
		return true, ""
	}
	owner := repositoryOwner(repository)
	if !m.IsUserAllowed(user, owner) {
		return false, m.rejectUser(user)
	}
	if !m.IsActionAllowed(action) {
		return false, fmt.Sprintf("Action '%s' is not an allowed action", action)
	}
	if !m.IsRepositoryAllowed(repository) {
		return false, fmt.Sprintf("Repository '%s' is not authorized", repository)
	}
	if !m.CheckRateLimit(user, action) {
		return false, "Rate limit exceeded"
	}
	return true, ""
}

func repositoryOwner(repository string) string {
	parts := strings.SplitN(repository, "/", 2)
	if len(parts) == 2 {
		return parts[0]
	}
	return ""
}
