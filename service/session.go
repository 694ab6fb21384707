package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many open sessions")
)

// Session is one operator's workspace.
type Session struct {
	ID        string
	CreatedAt time.Time
	Workflow  *Workflow
}

// SessionRegistry owns every live session. Sessions are never persisted;
// closing one releases its previews.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	analyzer    Analyzer
	previews    PreviewStore
	idleTimeout time.Duration
	maxSessions int
}

func NewSessionRegistry(cfg *config.SessionConfig, analyzer Analyzer, previews PreviewStore) *SessionRegistry {
	return &SessionRegistry{
		sessions:    make(map[string]*Session),
		analyzer:    analyzer,
		previews:    previews,
		idleTimeout: cfg.IdleTimeout,
		maxSessions: cfg.MaxSessions,
	}
}

// Create opens a new session in the idle state.
func (r *SessionRegistry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		return nil, ErrTooManySessions
	}

	id := utils.NewSessionID()
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		Workflow:  NewWorkflow(id, r.analyzer, r.previews),
	}
	r.sessions[id] = s

	utils.Logger.Info("session opened", zap.String("session", id))
	return s, nil
}

// Get returns a live session and marks it active.
func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Workflow.Touch()
	return s, nil
}

// Close tears a session down.
func (r *SessionRegistry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	utils.Logger.Info("session closed", zap.String("session", id))
	return s.Workflow.Close(ctx)
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle since before now-idleTimeout. Sessions with a
// request in flight are kept. It returns how many were closed.
func (r *SessionRegistry) Sweep(ctx context.Context, now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}

	var expired []string
	r.mu.RLock()
	for id, s := range r.sessions {
		if s.Workflow.Submitting() {
			continue
		}
		if now.Sub(s.Workflow.IdleSince()) > r.idleTimeout {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	closed := 0
	for _, id := range expired {
		if err := r.Close(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			utils.Logger.Warn("failed to close idle session", zap.String("session", id), zap.Error(err))
		}
		closed++
	}
	if closed > 0 {
		utils.Logger.Info("idle sessions swept", zap.Int("closed", closed))
	}
	return closed
}

// Run sweeps idle sessions every interval until ctx ends, then closes the rest.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case now := <-ticker.C:
				r.Sweep(ctx, now)
			}
		}
	} else {
		<-ctx.Done()
	}
	r.CloseAll()
}

// CloseAll tears down every session.
func (r *SessionRegistry) CloseAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, id := range ids {
		_ = r.Close(ctx, id)
	}
}
