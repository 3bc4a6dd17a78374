package streaming

import (
	"context"
	"errors"
	"sync"
	"time"

	"brandgen-go/internal/constants"
	"brandgen-go/internal/monitoring"

	log "github.com/sirupsen/logrus"
)

// Outcome is the final state of a session handed to a Committer.
type Outcome struct {
	SessionID  string
	UserID     string
	Model      string
	Content    string
	State      State
	ClientGone bool
	Err        error
	StartedAt  time.Time
	EndedAt    time.Time
}

// ErrNothingToCommit lets a Committer decline an outcome it has no record for.
// The Hook logs it and does not count it as a failure.
var ErrNothingToCommit = errors.New("nothing to commit")

// Committer writes a finished session to the history store.
type Committer interface {
	Commit(ctx context.Context, o Outcome) error
}

// CommitFunc adapts a function to Committer.
type CommitFunc func(ctx context.Context, o Outcome) error

func (f CommitFunc) Commit(ctx context.Context, o Outcome) error { return f(ctx, o) }

// Guard admits a key once. Acquire returns false when the key was seen before.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
}

// MemoryGuard is an in-process Guard with expiring entries.
type MemoryGuard struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = constants.PersistGuardTTL
	}
	return &MemoryGuard{seen: make(map[string]time.Time), ttl: ttl}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	if now.Sub(g.lastSweep) > time.Minute {
		for k, exp := range g.seen {
			if now.After(exp) {
				delete(g.seen, k)
			}
		}
		g.lastSweep = now
	}
	if exp, ok := g.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.seen[key] = now.Add(g.ttl)
	return true, nil
}

// Hook commits each session at most once, detached from request cancellation.
type Hook struct {
	kind      string
	committer Committer
	guard     Guard
	timeout   time.Duration
}

func NewHook(kind string, committer Committer, guard Guard, timeout time.Duration) *Hook {
	if guard == nil {
		guard = NewMemoryGuard(0)
	}
	if timeout <= 0 {
		timeout = constants.PersistTimeout
	}
	return &Hook{kind: kind, committer: committer, guard: guard, timeout: timeout}
}

// Run persists o unless its session id was already committed or it has no
// content. Errors are logged and counted, never retried.
func (h *Hook) Run(parent context.Context, o Outcome) (bool, error) {
	entry := log.WithFields(log.Fields{
		"session_id":  o.SessionID,
		"kind":        h.kind,
		"model":       o.Model,
		"content_len": len(o.Content),
	})
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), h.timeout)
	defer cancel()

	ok, err := h.guard.Acquire(ctx, h.kind+":"+o.SessionID)
	if err != nil {
		// fall through: a session calls Run once
		entry.WithError(err).Warn("persist guard unavailable, committing without it")
	} else if !ok {
		monitoring.PersistTotal.WithLabelValues(h.kind, "duplicate").Inc()
		entry.Debug("session already persisted")
		return false, nil
	}

	if o.Content == "" {
		monitoring.PersistTotal.WithLabelValues(h.kind, "empty").Inc()
		entry.Info("nothing accumulated, skipping persistence")
		return false, nil
	}

	if err := h.committer.Commit(ctx, o); err != nil {
		if errors.Is(err, ErrNothingToCommit) {
			monitoring.PersistTotal.WithLabelValues(h.kind, "empty").Inc()
			entry.WithField("reason", err.Error()).Warn("committer skipped session")
			return false, nil
		}
		monitoring.PersistTotal.WithLabelValues(h.kind, "error").Inc()
		entry.WithError(err).Error("failed to persist session")
		return false, err
	}
	monitoring.PersistTotal.WithLabelValues(h.kind, "ok").Inc()
	entry.Info("session persisted")
	return true, nil
}
