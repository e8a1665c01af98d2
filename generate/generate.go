// Package generate runs the full composition pipeline: validate the
// answers, resolve and order the clauses, assemble the document, render it
// to PDF and announce the result.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/theSolTrain/nse-policy-generator/answers"
	"github.com/theSolTrain/nse-policy-generator/clause"
	"github.com/theSolTrain/nse-policy-generator/document"
	"github.com/theSolTrain/nse-policy-generator/events"
	"github.com/theSolTrain/nse-policy-generator/render"
)

// Composition is the result of the pure part of the pipeline.
type Composition struct {
	Active   []clause.ID        `json:"active"`
	Ordering clause.Ordering    `json:"ordering"`
	Document *document.Document `json:"document"`
}

// Compose resolves the active clauses of a, reconciles them with prev (or
// with a's persisted group order when prev is nil) and assembles the
// document. It does not validate.
func Compose(a *answers.Answers, prev clause.Ordering) (*Composition, error) {
	if prev == nil {
		prev = clause.OrderingFromStrings(a.GroupOrder)
	}
	active := clause.ResolveActive(a)
	ordering := clause.Reconcile(prev, active)
	doc, err := document.Assemble(a, ordering)
	if err != nil {
		return nil, err
	}
	return &Composition{Active: active, Ordering: ordering, Document: doc}, nil
}

// Request is one generation.
type Request struct {
	SessionID string
	Answers   *answers.Answers
	// Ordering overrides the answers' persisted group order.
	Ordering clause.Ordering
}

// Result is a rendered policy.
type Result struct {
	ID          string
	PDF         []byte
	Filename    string
	Pages       int
	Composition *Composition
}

// Generator runs the pipeline against a renderer.
type Generator struct {
	renderer  render.Renderer
	publisher events.Publisher
	verify    bool
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithPublisher announces every generated document.
func WithPublisher(p events.Publisher) Option {
	return func(g *Generator) { g.publisher = p }
}

// WithVerify toggles parsing the rendered PDF before returning it.
func WithVerify(v bool) Option {
	return func(g *Generator) { g.verify = v }
}

// New creates a Generator. Rendered output is verified by default.
func New(renderer render.Renderer, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		renderer:  renderer,
		publisher: events.NoopPublisher{},
		verify:    true,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate validates, composes and renders. Validation failures return
// *answers.ValidationError; an inconsistent ordering returns
// *clause.CompositionError; renderer failures return *render.Error.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	a := req.Answers
	if a == nil {
		a = answers.Default()
	}
	if err := answers.Validate(a); err != nil {
		return nil, err
	}

	comp, err := Compose(a, req.Ordering)
	if err != nil {
		if clause.IsComposition(err) {
			g.logger.Error("Clause ordering is inconsistent with the catalog",
				"session", req.SessionID, "error", err)
		}
		return nil, fmt.Errorf("compose document: %w", err)
	}

	html, err := document.HTML(comp.Document)
	if err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	start := time.Now()
	pdf, err := g.renderer.Render(ctx, html)
	if err != nil {
		if !render.IsRender(err) {
			err = render.NewError("render", err)
		}
		return nil, err
	}

	pages := 0
	if g.verify {
		if pages, err = render.Verify(pdf); err != nil {
			return nil, err
		}
	}

	res := &Result{
		ID:          uuid.New().String(),
		PDF:         pdf,
		Filename:    Filename(a.SchoolName, a.AdmissionYear),
		Pages:       pages,
		Composition: comp,
	}

	g.logger.Info("Generated policy document",
		"id", res.ID,
		"session", req.SessionID,
		"criteria", len(comp.Document.Criteria),
		"pages", pages,
		"bytes", len(pdf),
		"duration", time.Since(start))

	ev := events.DocumentGenerated{
		ID:            res.ID,
		SessionID:     req.SessionID,
		SchoolName:    a.SchoolName,
		AdmissionYear: a.AdmissionYear,
		Filename:      res.Filename,
		Clauses:       comp.Ordering.Strings(),
		Pages:         pages,
		Bytes:         len(pdf),
		GeneratedAt:   time.Now().UTC(),
	}
	if err := g.publisher.PublishGenerated(ctx, ev); err != nil {
		g.logger.Warn("Failed to publish document event", "id", res.ID, "error", err)
	}
	return res, nil
}
