package policyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theSolTrain/nse-policy-generator/answers"
	"github.com/theSolTrain/nse-policy-generator/attachment"
	"github.com/theSolTrain/nse-policy-generator/clause"
	"github.com/theSolTrain/nse-policy-generator/generate"
	"github.com/theSolTrain/nse-policy-generator/render/rendertest"
	"github.com/theSolTrain/nse-policy-generator/session"
	"github.com/theSolTrain/nse-policy-generator/storage"
)

// setupTestServer wires a Component to a recording renderer and returns a
// running test server.
func setupTestServer(t *testing.T, rec *rendertest.Recorder) (*Component, *httptest.Server) {
	t.Helper()
	drafts := storage.NewDraftStore(storage.NewMemoryKV(), nil)
	c, err := NewComponent(DefaultConfig(), Deps{
		Generator: generate.New(rec, nil),
		Sessions:  session.NewManager(drafts, nil),
	})
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))

	srv := httptest.NewServer(c.Handler())
	t.Cleanup(srv.Close)
	return c, srv
}

type filePart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, answersJSON string, files ...filePart) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if answersJSON != "" {
		require.NoError(t, w.WriteField("answers", answersJSON))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.filename))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func encode(t *testing.T, a *answers.Answers) string {
	t.Helper()
	data, err := answers.Encode(a)
	require.NoError(t, err)
	return string(data)
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func do(t *testing.T, method, url string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func doJSON(t *testing.T, method, url string, v any) *http.Response {
	t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return do(t, method, url, body, "application/json")
}

func threeCriteria() *answers.Answers {
	a := answers.Sample()
	a.IncludePupilPremium = true
	a.PupilPremiumTypes.PupilPremium = true
	a.IncludeSiblings = true
	a.SiblingsTiming = answers.SiblingsAtAdmission
	return a
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func TestGeneratePDF(t *testing.T) {
	rec := rendertest.NewRecorder()
	_, srv := setupTestServer(t, rec)

	body, ct := multipartBody(t, encode(t, answers.Sample()),
		filePart{attachment.FieldSchoolLogo, "logo.png", "image/png", pngBytes})
	resp := do(t, http.MethodPost, srv.URL+"/api/generate-pdf", body, ct)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t,
		`attachment; filename="St_Mary_s_CE_Primary_2026-27_Admission_Arrangements.pdf"`,
		resp.Header.Get("Content-Disposition"))
	assert.NotEmpty(t, resp.Header.Get("X-Document-Id"))

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, rec.PDF, got)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, string(calls[0]), "data:image/png;base64,")
}

func TestGeneratePDFRejections(t *testing.T) {
	invalid := answers.Sample()
	invalid.SchoolName = ""

	tests := []struct {
		name      string
		body      func(t *testing.T) (io.Reader, string)
		wantError string
		wantField string
	}{
		{
			name: "not multipart",
			body: func(t *testing.T) (io.Reader, string) {
				return strings.NewReader(`{}`), "application/json"
			},
			wantError: "invalid multipart request",
		},
		{
			name: "missing answers part",
			body: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, "")
			},
			wantError: `missing "answers" part`,
		},
		{
			name: "malformed answers",
			body: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, "{not json")
			},
			wantError: "invalid answers JSON",
		},
		{
			name: "validation failure",
			body: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, encode(t, invalid))
			},
			wantError: "validation failed",
			wantField: "schoolName",
		},
		{
			name: "unsupported logo type",
			body: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, encode(t, answers.Sample()),
					filePart{attachment.FieldSchoolLogo, "logo.gif", "image/gif", []byte("GIF89a")})
			},
			wantError: "schoolLogo",
		},
		{
			name: "oversized catchment map",
			body: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, encode(t, answers.Sample()),
					filePart{attachment.FieldCatchmentMap, "map.png", "image/png", make([]byte, attachment.MaxSize+1)})
			},
			wantError: "catchmentMap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := rendertest.NewRecorder()
			_, srv := setupTestServer(t, rec)

			body, ct := tt.body(t)
			resp := do(t, http.MethodPost, srv.URL+"/api/generate-pdf", body, ct)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			er := decodeBody[ErrorResponse](t, resp)
			assert.Contains(t, er.Error, tt.wantError)
			if tt.wantField != "" {
				assert.Contains(t, er.Fields, tt.wantField)
			}
			assert.Empty(t, rec.Calls(), "nothing is rendered for a rejected request")
		})
	}
}

func TestGeneratePDFRenderFailure(t *testing.T) {
	rec := rendertest.NewRecorder()
	rec.Err = errors.New("browser crashed")
	_, srv := setupTestServer(t, rec)

	body, ct := multipartBody(t, encode(t, answers.Sample()))
	resp := do(t, http.MethodPost, srv.URL+"/api/generate-pdf", body, ct)

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, decodeBody[ErrorResponse](t, resp).Error, "browser crashed")
}

func TestPreview(t *testing.T) {
	_, srv := setupTestServer(t, rendertest.NewRecorder())
	a := threeCriteria()
	a.GroupOrder = []string{"looked_after", "siblings", "pupil_premium", "any_other_children"}

	t.Run("json", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/preview", a)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		pr := decodeBody[PreviewResponse](t, resp)
		assert.Equal(t,
			clause.Ordering{clause.LookedAfter, clause.Siblings, clause.PupilPremium, clause.AnyOtherChildren},
			pr.Ordering)
		require.Len(t, pr.Document.Criteria, 4)
		assert.Equal(t, 2, pr.Document.Criteria[1].Number)
		assert.Empty(t, pr.Errors)
	})

	t.Run("incomplete answers report errors", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/preview", answers.Default())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		pr := decodeBody[PreviewResponse](t, resp)
		assert.Contains(t, pr.Errors, "schoolName")
		assert.Equal(t, clause.Ordering{clause.LookedAfter, clause.AnyOtherChildren}, pr.Ordering)
	})

	t.Run("markdown", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/preview?format=markdown", a)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/markdown"))
		out, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(out), "St Mary's CE Primary")
	})

	t.Run("bad format", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/preview?format=docx", a)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad body", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/api/preview", strings.NewReader("nope"), "application/json")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestClauses(t *testing.T) {
	_, srv := setupTestServer(t, rendertest.NewRecorder())
	resp := do(t, http.MethodGet, srv.URL+"/api/clauses", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cr := decodeBody[ClausesResponse](t, resp)
	require.Len(t, cr.Clauses, len(clause.AllIDs()))
	assert.Equal(t, clause.LookedAfter, cr.Clauses[0].ID)
	assert.Equal(t, clause.PinnedFirst, cr.Clauses[0].Fixed)
	assert.Len(t, cr.Steps, len(answers.Steps()))
	assert.Contains(t, cr.AttachmentTypes, "image/png")
	assert.Equal(t, int64(attachment.MaxSize), cr.AttachmentBytes)
}

func TestSessionLifecycle(t *testing.T) {
	rec := rendertest.NewRecorder()
	c, srv := setupTestServer(t, rec)
	base := srv.URL + "/api/sessions"

	resp := doJSON(t, http.MethodPost, base, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	snap := decodeBody[session.Snapshot](t, resp)
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, 1, c.sessions.Len())
	url := base + "/" + snap.ID

	resp = doJSON(t, http.MethodPut, url+"/answers", threeCriteria())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeBody[session.Snapshot](t, resp)
	assert.Equal(t,
		clause.Ordering{clause.LookedAfter, clause.PupilPremium, clause.Siblings, clause.AnyOtherChildren},
		snap.Ordering)

	resp = doJSON(t, http.MethodPost, url+"/move", MoveRequest{Index: 2, Direction: clause.Up})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeBody[session.Snapshot](t, resp)
	assert.Equal(t, clause.Siblings, snap.Ordering[1])

	resp = doJSON(t, http.MethodPost, url+"/move", MoveRequest{Index: 0, Direction: clause.Down})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, url+"/step", map[string]int{"step": 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "finalising", decodeBody[session.Snapshot](t, resp).StepID)

	resp = doJSON(t, http.MethodPut, url+"/step", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, url, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeBody[session.Snapshot](t, resp)
	assert.Equal(t, 4, snap.Step)
	assert.Equal(t, clause.Siblings, snap.Ordering[1])

	resp = do(t, http.MethodPost, url+"/generate", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	html := string(rec.Calls()[0])
	assert.Less(t, strings.Index(html, "Siblings"), strings.Index(html, "Pupil Premium"))

	resp = do(t, http.MethodDelete, url, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, url, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionStepNavigation(t *testing.T) {
	c, srv := setupTestServer(t, rendertest.NewRecorder())
	s := c.sessions.Create(context.Background())
	url := srv.URL + "/api/sessions/" + s.ID()

	resp := doJSON(t, http.MethodPut, url+"/step", map[string]int{"step": 4})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	er := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "validation failed", er.Error)
	assert.Contains(t, er.Fields, "disclaimerAccepted")
	assert.Equal(t, 0, s.Snapshot().Step)

	resp = doJSON(t, http.MethodPut, url+"/answers", answers.Sample())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, http.MethodPut, url+"/step", map[string]int{"step": 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "finalising", decodeBody[session.Snapshot](t, resp).StepID)

	// Going back needs no valid answers.
	resp = doJSON(t, http.MethodPut, url+"/answers", answers.Default())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, http.MethodPut, url+"/step", map[string]int{"step": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pan", decodeBody[session.Snapshot](t, resp).StepID)
}

func TestSessionGenerateWithAttachments(t *testing.T) {
	rec := rendertest.NewRecorder()
	c, srv := setupTestServer(t, rec)
	s := c.sessions.Create(context.Background())
	a := answers.Sample()
	a.IncludeCatchmentArea = true
	_, err := s.SetAnswers(context.Background(), a)
	require.NoError(t, err)

	body, ct := multipartBody(t, "",
		filePart{attachment.FieldCatchmentMap, "map.png", "image/png", pngBytes})
	resp := do(t, http.MethodPost, srv.URL+"/api/sessions/"+s.ID()+"/generate", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(rec.Calls()[0]), "Catchment Area Map")
}

func TestSessionGenerateInFlight(t *testing.T) {
	rec := rendertest.NewRecorder()
	rec.Block = make(chan struct{})
	c, srv := setupTestServer(t, rec)

	s := c.sessions.Create(context.Background())
	_, err := s.SetAnswers(context.Background(), answers.Sample())
	require.NoError(t, err)
	url := srv.URL + "/api/sessions/" + s.ID()

	first := make(chan int, 1)
	go func() {
		resp, err := http.Post(url+"/generate", "application/json", nil)
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()
	require.Eventually(t, func() bool { return len(rec.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)

	resp := do(t, http.MethodPost, url+"/generate", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = doJSON(t, http.MethodPut, url+"/answers", threeCriteria())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = doJSON(t, http.MethodPut, url+"/step", map[string]int{"step": 2})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(rec.Block)
	assert.Equal(t, http.StatusOK, <-first)
	assert.Len(t, rec.Calls(), 1)
}

func TestSessionNotFound(t *testing.T) {
	_, srv := setupTestServer(t, rendertest.NewRecorder())
	for _, id := range []string{"nope", "6f1e2d3c-0000-4000-8000-000000000000"} {
		resp := do(t, http.MethodGet, srv.URL+"/api/sessions/"+id, nil, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, id)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	c, srv := setupTestServer(t, rendertest.NewRecorder())

	resp := do(t, http.MethodGet, srv.URL+"/healthz", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeBody[HealthStatus](t, resp)
	assert.True(t, health.Healthy)
	assert.Equal(t, "running", health.Status)

	body, ct := multipartBody(t, encode(t, answers.Sample()))
	resp = do(t, http.MethodPost, srv.URL+"/api/generate-pdf", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/metrics", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(out), `nsepolicy_generations_total{outcome="ok"} 1`)
	assert.Contains(t, string(out), "nsepolicy_sessions 0")

	require.NoError(t, c.Stop(time.Second))
	resp = do(t, http.MethodGet, srv.URL+"/healthz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNewComponentValidation(t *testing.T) {
	_, err := NewComponent(DefaultConfig(), Deps{})
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.MaxUploadBytes = 0
	_, err = NewComponent(cfg, Deps{Generator: generate.New(rendertest.NewRecorder(), nil)})
	assert.Error(t, err)
}

func TestLifecycle(t *testing.T) {
	c, err := NewComponent(DefaultConfig(), Deps{Generator: generate.New(rendertest.NewRecorder(), nil)})
	require.NoError(t, err)

	assert.Equal(t, "stopped", c.Health().Status)
	require.NoError(t, c.Start(context.Background()))
	assert.Error(t, c.Start(context.Background()))
	require.NoError(t, c.Stop(time.Second))
	require.NoError(t, c.Stop(time.Second))
}
