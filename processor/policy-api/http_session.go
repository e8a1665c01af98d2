package policyapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/theSolTrain/nse-policy-generator/answers"
	"github.com/theSolTrain/nse-policy-generator/clause"
	"github.com/theSolTrain/nse-policy-generator/session"
)

// MoveRequest is the body of POST /api/sessions/{id}/move.
type MoveRequest struct {
	Index     int              `json:"index"`
	Direction clause.Direction `json:"direction"`
}

// StepRequest is the body of PUT /api/sessions/{id}/step.
type StepRequest struct {
	Step *int `json:"step"`
}

func (c *Component) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := c.sessions.Create(r.Context())
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (c *Component) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := c.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (c *Component) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := c.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		c.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetAnswers replaces the session's Answer Set and returns the
// reconciled state.
func (c *Component) handleSetAnswers(w http.ResponseWriter, r *http.Request) {
	s, ok := c.lookupSession(w, r)
	if !ok {
		return
	}
	a, ok := readAnswersBody(w, r)
	if !ok {
		return
	}
	snap, err := s.SetAnswers(r.Context(), a)
	if err != nil {
		c.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (c *Component) handleMove(w http.ResponseWriter, r *http.Request) {
	s, ok := c.lookupSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Direction = clause.Direction(strings.ToLower(string(req.Direction)))

	snap, err := s.Move(r.Context(), req.Index, req.Direction)
	if err != nil {
		c.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (c *Component) handleSetStep(w http.ResponseWriter, r *http.Request) {
	s, ok := c.lookupSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Step == nil {
		writeError(w, http.StatusBadRequest, "step is required")
		return
	}

	snap, err := s.SetStep(r.Context(), *req.Step)
	if err != nil {
		c.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleSessionGenerate renders the session's answers in its current
// ordering. The body is optional; when multipart it may carry attachments.
func (c *Component) handleSessionGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := c.lookupSession(w, r)
	if !ok {
		return
	}

	var att session.Attachments
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if !c.parseUpload(w, r) {
			c.metrics.observeGeneration(outcomeInvalid, 0)
			return
		}
		defer r.MultipartForm.RemoveAll()

		var err error
		if att, err = c.readAttachments(r); err != nil {
			c.finishGeneration(w, nil, err, start)
			return
		}
	}

	res, err := s.Generate(r.Context(), c.generator, att)
	c.finishGeneration(w, res, err, start)
}

func (c *Component) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := c.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		c.writeSessionError(w, err)
		return nil, false
	}
	return s, true
}

func (c *Component) writeSessionError(w http.ResponseWriter, err error) {
	var verr *answers.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrGenerationInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, clause.ErrMoveRejected):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		c.logger.Error("Session operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
