package policyapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/theSolTrain/nse-policy-generator/answers"
	"github.com/theSolTrain/nse-policy-generator/attachment"
	"github.com/theSolTrain/nse-policy-generator/clause"
	"github.com/theSolTrain/nse-policy-generator/document"
	"github.com/theSolTrain/nse-policy-generator/generate"
	"github.com/theSolTrain/nse-policy-generator/render"
	"github.com/theSolTrain/nse-policy-generator/session"
)

// maxRequestBodySize limits JSON bodies to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// answersPart is the multipart field carrying the JSON Answer Set.
const answersPart = "answers"

// RegisterHTTPHandlers registers the API under prefix (e.g. "/api"):
//
//	POST   <prefix>/generate-pdf
//	POST   <prefix>/preview
//	GET    <prefix>/clauses
//	POST   <prefix>/sessions
//	GET    <prefix>/sessions/{id}
//	DELETE <prefix>/sessions/{id}
//	PUT    <prefix>/sessions/{id}/answers
//	POST   <prefix>/sessions/{id}/move
//	PUT    <prefix>/sessions/{id}/step
//	POST   <prefix>/sessions/{id}/generate
func (c *Component) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	prefix = strings.TrimSuffix(prefix, "/")

	mux.HandleFunc("POST "+prefix+"/generate-pdf", c.handleGeneratePDF)
	mux.HandleFunc("POST "+prefix+"/preview", c.handlePreview)
	mux.HandleFunc("GET "+prefix+"/clauses", c.handleClauses)

	mux.HandleFunc("POST "+prefix+"/sessions", c.handleCreateSession)
	mux.HandleFunc("GET "+prefix+"/sessions/{id}", c.handleGetSession)
	mux.HandleFunc("DELETE "+prefix+"/sessions/{id}", c.handleDeleteSession)
	mux.HandleFunc("PUT "+prefix+"/sessions/{id}/answers", c.handleSetAnswers)
	mux.HandleFunc("POST "+prefix+"/sessions/{id}/move", c.handleMove)
	mux.HandleFunc("PUT "+prefix+"/sessions/{id}/step", c.handleSetStep)
	mux.HandleFunc("POST "+prefix+"/sessions/{id}/generate", c.handleSessionGenerate)
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields answers.FieldErrors `json:"fields,omitempty"`
}

// ----------------------------------------------------------------------------
// POST /api/generate-pdf
// ----------------------------------------------------------------------------

// handleGeneratePDF renders a policy from a multipart request holding the
// Answer Set and optional image attachments. Each request gets its own
// throwaway session.
func (c *Component) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !c.parseUpload(w, r) {
		c.metrics.observeGeneration(outcomeInvalid, 0)
		return
	}
	defer r.MultipartForm.RemoveAll()

	a, err := decodeAnswersPart(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		c.metrics.observeGeneration(outcomeInvalid, 0)
		return
	}

	att, err := c.readAttachments(r)
	if err != nil {
		c.finishGeneration(w, nil, err, start)
		return
	}

	sess := session.New(uuid.New().String(), a, c.logger)
	res, err := sess.Generate(r.Context(), c.generator, att)
	c.finishGeneration(w, res, err, start)
}

// parseUpload bounds and parses a multipart body. It writes a 400 and
// returns false on failure.
func (c *Component) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, c.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(c.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("request exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return false
	}
	return true
}

func decodeAnswersPart(r *http.Request) (*answers.Answers, error) {
	values := r.MultipartForm.Value[answersPart]
	if len(values) == 0 {
		return nil, fmt.Errorf("missing %q part", answersPart)
	}
	a, err := answers.Decode([]byte(values[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid answers JSON: %w", err)
	}
	return a, nil
}

// readAttachments validates and encodes the optional image parts.
func (c *Component) readAttachments(r *http.Request) (session.Attachments, error) {
	var att session.Attachments
	if r.MultipartForm == nil {
		return att, nil
	}
	fields := []struct {
		name string
		dst  *string
	}{
		{attachment.FieldSchoolLogo, &att.SchoolLogo},
		{attachment.FieldCatchmentMap, &att.CatchmentMap},
	}
	for _, f := range fields {
		headers := r.MultipartForm.File[f.name]
		if len(headers) == 0 {
			continue
		}
		encoded, err := c.attachments.FromFileHeader(f.name, headers[0])
		if err != nil {
			return session.Attachments{}, err
		}
		*f.dst = encoded
	}
	return att, nil
}

// finishGeneration writes the PDF or the mapped error and records metrics.
func (c *Component) finishGeneration(w http.ResponseWriter, res *generate.Result, err error, start time.Time) {
	if err != nil {
		outcome := c.writeGenerationError(w, err)
		c.metrics.observeGeneration(outcome, time.Since(start).Seconds())
		return
	}
	c.metrics.observeGeneration(outcomeOK, time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PDF)))
	w.Header().Set("X-Document-Id", res.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.PDF); err != nil {
		c.logger.Debug("Client disconnected during PDF write", "id", res.ID, "error", err)
	}
}

// writeGenerationError maps a generation failure to a status code and
// returns the metrics outcome.
func (c *Component) writeGenerationError(w http.ResponseWriter, err error) string {
	var verr *answers.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
		return outcomeInvalid
	case attachment.IsAttachment(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return outcomeInvalid
	case errors.Is(err, session.ErrGenerationInFlight), errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
		return outcomeConflict
	case clause.IsComposition(err):
		writeError(w, http.StatusInternalServerError, err.Error())
		return outcomeError
	case render.IsRender(err):
		c.logger.Error("PDF rendering failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return outcomeError
	default:
		c.logger.Error("Generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "generation failed: "+err.Error())
		return outcomeError
	}
}

// ----------------------------------------------------------------------------
// POST /api/preview
// ----------------------------------------------------------------------------

// PreviewResponse is the JSON body of POST /api/preview.
type PreviewResponse struct {
	Active   []clause.ID         `json:"active"`
	Ordering clause.Ordering     `json:"ordering"`
	Document *document.Document  `json:"document"`
	Errors   answers.FieldErrors `json:"errors,omitempty"`
}

// handlePreview composes a document without rendering it. Incomplete
// answers are allowed; their field errors are reported alongside.
// Query parameters:
//   - format: json (default), markdown or html
func (c *Component) handlePreview(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	switch format {
	case "", "json", "markdown", "html":
	default:
		writeError(w, http.StatusBadRequest, "invalid format: must be json, markdown or html")
		return
	}

	a, ok := readAnswersBody(w, r)
	if !ok {
		return
	}

	comp, err := generate.Compose(a, nil)
	if err != nil {
		c.logger.Error("Preview composition failed", "error", err)
		c.writeGenerationError(w, err)
		return
	}

	switch format {
	case "markdown":
		out, err := document.Markdown(comp.Document)
		if err != nil {
			c.writeGenerationError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, out)
	case "html":
		out, err := document.HTML(comp.Document)
		if err != nil {
			c.writeGenerationError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(out)
	default:
		resp := PreviewResponse{Active: comp.Active, Ordering: comp.Ordering, Document: comp.Document}
		var verr *answers.ValidationError
		if errors.As(answers.Validate(a), &verr) {
			resp.Errors = verr.Fields
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// readAnswersBody decodes a bounded JSON Answer Set body. It writes a 400
// and returns false on failure.
func readAnswersBody(w http.ResponseWriter, r *http.Request) (*answers.Answers, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	a, err := answers.Decode(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid answers JSON: "+err.Error())
		return nil, false
	}
	return a, true
}

// ----------------------------------------------------------------------------
// GET /api/clauses
// ----------------------------------------------------------------------------

// ClausesResponse describes the clause registry and upload limits.
type ClausesResponse struct {
	Clauses         []clause.Descriptor `json:"clauses"`
	Steps           []answers.Step      `json:"steps"`
	AttachmentTypes []string            `json:"attachment_types"`
	AttachmentBytes int64               `json:"attachment_max_bytes"`
}

func (c *Component) handleClauses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ClausesResponse{
		Clauses:         clause.All(),
		Steps:           answers.Steps(),
		AttachmentTypes: c.attachments.Types(),
		AttachmentBytes: c.attachments.MaxSize(),
	})
}

// ----------------------------------------------------------------------------
// GET /healthz
// ----------------------------------------------------------------------------

func (c *Component) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := c.Health()
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// writeJSON marshals v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Response is already partially written on failure.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
