// Package session owns the state of one questionnaire pass: the Answer Set,
// the clause ordering and the current step. All transitions go through
// Session methods, and a single in-flight flag keeps generation exclusive.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/theSolTrain/nse-policy-generator/answers"
	"github.com/theSolTrain/nse-policy-generator/clause"
	"github.com/theSolTrain/nse-policy-generator/generate"
	"github.com/theSolTrain/nse-policy-generator/storage"
)

var (
	// ErrGenerationInFlight rejects a second generation while one runs.
	ErrGenerationInFlight = errors.New("generation already in progress")

	// ErrBusy rejects edits and navigation while a generation runs.
	ErrBusy = errors.New("session is busy generating")

	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")
)

// Generator renders a request. *generate.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (*generate.Result, error)
}

// Attachments are encoded image references supplied at generation time.
type Attachments struct {
	SchoolLogo   string
	CatchmentMap string
}

// Snapshot is a copy of a session's state.
type Snapshot struct {
	ID         string           `json:"id"`
	Answers    *answers.Answers `json:"answers"`
	Active     []clause.ID      `json:"active"`
	Ordering   clause.Ordering  `json:"ordering"`
	Step       int              `json:"step"`
	StepID     string           `json:"stepId"`
	Generating bool             `json:"generating"`
}

// Session is one composition session.
type Session struct {
	id     string
	drafts *storage.DraftStore
	logger *slog.Logger

	mu       sync.Mutex
	answers  *answers.Answers
	active   []clause.ID
	ordering clause.Ordering
	step     int
	inFlight bool
}

// New creates a standalone session that keeps no draft.
func New(id string, a *answers.Answers, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if a == nil {
		a = answers.Default()
	}
	return newSession(id, a, 0, storage.NewDraftStore(nil, logger), logger)
}

func newSession(id string, a *answers.Answers, step int, drafts *storage.DraftStore, logger *slog.Logger) *Session {
	s := &Session{
		id:     id,
		drafts: drafts,
		logger: logger.With("session", id),
		step:   answers.ClampStep(step),
	}
	s.apply(a, clause.OrderingFromStrings(a.GroupOrder))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// apply installs a and reconciles the ordering. Callers hold mu.
func (s *Session) apply(a *answers.Answers, prev clause.Ordering) {
	a = a.StripAttachments()
	s.active = clause.ResolveActive(a)
	s.ordering = clause.Reconcile(prev, s.active)
	a.GroupOrder = s.ordering.Strings()
	s.answers = a
}

// SetAnswers replaces the Answer Set. A non-empty group order in a is the
// caller's arrangement and replaces the session's; otherwise the current
// ordering survives as far as the new active set allows.
func (s *Session) SetAnswers(ctx context.Context, a *answers.Answers) (Snapshot, error) {
	if a == nil {
		a = answers.Default()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return s.snapshotLocked(), ErrBusy
	}

	prev := s.ordering
	if len(a.GroupOrder) > 0 {
		prev = clause.OrderingFromStrings(a.GroupOrder)
	}
	s.apply(a, prev)
	s.saveAnswers(ctx)
	return s.snapshotLocked(), nil
}

// Move shifts the clause at index one place in dir.
func (s *Session) Move(ctx context.Context, index int, dir clause.Direction) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return s.snapshotLocked(), ErrBusy
	}

	next, err := clause.Move(s.ordering, index, dir)
	if err != nil {
		return s.snapshotLocked(), err
	}
	s.ordering = next
	s.answers.GroupOrder = next.Strings()
	s.saveAnswers(ctx)
	return s.snapshotLocked(), nil
}

// SetStep moves to a questionnaire step, clamped to the valid range. Going
// back is always allowed. Going forward requires every step being left to
// validate; otherwise the *answers.ValidationError of the first failing
// step is returned and the step is unchanged.
func (s *Session) SetStep(ctx context.Context, step int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return s.snapshotLocked(), ErrBusy
	}

	step = answers.ClampStep(step)
	steps := answers.Steps()
	for i := s.step; i < step; i++ {
		if err := answers.ValidateStep(s.answers, steps[i].ID); err != nil {
			return s.snapshotLocked(), err
		}
	}

	s.step = step
	if err := s.drafts.SaveStep(ctx, s.id, s.step); err != nil {
		s.logger.Warn("Failed to save draft step", "error", err)
	}
	return s.snapshotLocked(), nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	steps := answers.Steps()
	return Snapshot{
		ID:         s.id,
		Answers:    s.answers.Clone(),
		Active:     append([]clause.ID(nil), s.active...),
		Ordering:   append(clause.Ordering(nil), s.ordering...),
		Step:       s.step,
		StepID:     steps[s.step].ID,
		Generating: s.inFlight,
	}
}

// Generate renders the session's answers in its current ordering. Only one
// generation runs at a time; a concurrent call fails with
// ErrGenerationInFlight rather than waiting. Once started, a generation is
// not cancelled with ctx and ends only by finishing or by the renderer
// timeout.
func (s *Session) Generate(ctx context.Context, gen Generator, att Attachments) (*generate.Result, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	s.inFlight = true
	a := s.answers.Clone()
	ordering := append(clause.Ordering(nil), s.ordering...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	a.SchoolLogo = att.SchoolLogo
	a.CatchmentMap = att.CatchmentMap
	return gen.Generate(context.WithoutCancel(ctx), generate.Request{SessionID: s.id, Answers: a, Ordering: ordering})
}

// saveAnswers persists the draft. Failures are logged and never surfaced.
func (s *Session) saveAnswers(ctx context.Context) {
	if err := s.drafts.SaveAnswers(ctx, s.id, s.answers); err != nil {
		s.logger.Warn("Failed to save draft answers", "error", err)
	}
}
