package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/theSolTrain/nse-policy-generator/answers"
)

// Draft key suffixes. The full key is "<session>:<suffix>".
const (
	answersSuffix = "answers"
	stepSuffix    = "step"
)

// AnswersKey returns the key holding a session's serialized answers.
func AnswersKey(session string) string { return session + ":" + answersSuffix }

// StepKey returns the key holding a session's step index.
func StepKey(session string) string { return session + ":" + stepSuffix }

// Draft is the persisted state of one questionnaire session.
type Draft struct {
	Answers *answers.Answers
	Step    int
	// Found is false when neither key existed.
	Found bool
}

// DraftStore saves and restores questionnaire drafts. Loading never fails:
// a missing or corrupt value yields the default.
type DraftStore struct {
	kv     KV
	logger *slog.Logger
}

// NewDraftStore wraps kv. A nil kv gives a store that keeps nothing.
func NewDraftStore(kv KV, logger *slog.Logger) *DraftStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DraftStore{kv: kv, logger: logger}
}

// SaveAnswers writes a's serialized form without attachments.
func (s *DraftStore) SaveAnswers(ctx context.Context, session string, a *answers.Answers) error {
	if s.kv == nil {
		return nil
	}
	data, err := answers.Encode(a.StripAttachments())
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, AnswersKey(session), data); err != nil {
		return fmt.Errorf("save draft answers: %w", err)
	}
	return nil
}

// SaveStep writes the step index as a decimal string.
func (s *DraftStore) SaveStep(ctx context.Context, session string, step int) error {
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Put(ctx, StepKey(session), []byte(strconv.Itoa(step))); err != nil {
		return fmt.Errorf("save draft step: %w", err)
	}
	return nil
}

// Load restores a session's draft.
func (s *DraftStore) Load(ctx context.Context, session string) Draft {
	d := Draft{Answers: answers.Default()}
	if s.kv == nil {
		return d
	}

	if data, err := s.kv.Get(ctx, AnswersKey(session)); err == nil {
		d.Found = true
		a, decodeErr := answers.Decode(data)
		if decodeErr != nil {
			s.logger.Warn("Discarding corrupt draft answers", "session", session, "error", decodeErr)
		} else {
			d.Answers = a
		}
	} else if !isNotFound(err) {
		s.logger.Warn("Failed to load draft answers", "session", session, "error", err)
	}

	if data, err := s.kv.Get(ctx, StepKey(session)); err == nil {
		d.Found = true
		step, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if convErr != nil {
			s.logger.Warn("Discarding corrupt draft step", "session", session, "value", string(data))
		} else {
			d.Step = answers.ClampStep(step)
		}
	} else if !isNotFound(err) {
		s.logger.Warn("Failed to load draft step", "session", session, "error", err)
	}
	return d
}

// Clear removes both draft keys.
func (s *DraftStore) Clear(ctx context.Context, session string) error {
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Delete(ctx, AnswersKey(session)); err != nil {
		return fmt.Errorf("clear draft answers: %w", err)
	}
	if err := s.kv.Delete(ctx, StepKey(session)); err != nil {
		return fmt.Errorf("clear draft step: %w", err)
	}
	return nil
}
