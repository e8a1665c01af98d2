package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/theSolTrain/nse-policy-generator/answers"
	"github.com/theSolTrain/nse-policy-generator/storage"
)

// Manager tracks live sessions and restores them from drafts.
type Manager struct {
	drafts *storage.DraftStore
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. A nil drafts store keeps sessions in
// memory only.
func NewManager(drafts *storage.DraftStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if drafts == nil {
		drafts = storage.NewDraftStore(nil, logger)
	}
	return &Manager{
		drafts:   drafts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session from default answers.
func (m *Manager) Create(ctx context.Context) *Session {
	s := newSession(uuid.New().String(), answers.Default(), 0, m.drafts, m.logger)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	s.mu.Lock()
	s.saveAnswers(ctx)
	s.mu.Unlock()
	m.logger.Debug("Created session", "session", s.id)
	return s
}

// Get returns a live session, restoring it from its draft when needed.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	// Storage I/O happens without holding mu.
	draft := m.drafts.Load(ctx, id)
	if !draft.Found {
		return nil, ErrNotFound
	}
	restored := newSession(id, draft.Answers, draft.Step, m.drafts, m.logger)

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	m.sessions[id] = restored
	m.logger.Info("Restored session from draft", "session", id, "step", draft.Step)
	return restored, nil
}

// Delete forgets a session and clears its draft.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	m.mu.Lock()
	_, live := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !live && !m.drafts.Load(ctx, id).Found {
		return ErrNotFound
	}
	if err := m.drafts.Clear(ctx, id); err != nil {
		m.logger.Warn("Failed to clear draft", "session", id, "error", err)
	}
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
