package generate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theSolTrain/nse-policy-generator/answers"
	"github.com/theSolTrain/nse-policy-generator/clause"
	"github.com/theSolTrain/nse-policy-generator/events"
	"github.com/theSolTrain/nse-policy-generator/render"
	"github.com/theSolTrain/nse-policy-generator/render/rendertest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DocumentGenerated
	err    error
}

func (p *recordingPublisher) PublishGenerated(_ context.Context, ev events.DocumentGenerated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name   string
		school string
		year   string
		want   string
	}{
		{"typical", "St Mary's CE Primary", "2026/27", "St_Mary_s_CE_Primary_2026-27_Admission_Arrangements.pdf"},
		{"fallbacks", "", "  ", "School_Year_Admission_Arrangements.pdf"},
		{"unicode replaced", "École Sainte-Anne", "2026", "_cole_Sainte_Anne_2026_Admission_Arrangements.pdf"},
		{"hyphen year kept", "Oak", "2026-27", "Oak_2026-27_Admission_Arrangements.pdf"},
		{"quotes in year", "Oak", `2026"27`, "Oak_2026_27_Admission_Arrangements.pdf"},
		{
			"truncated to fifty",
			strings.Repeat("abcdefghij", 6),
			"2026",
			strings.Repeat("abcdefghij", 5) + "_2026_Admission_Arrangements.pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.school, tt.year))
		})
	}
}

func TestCompose(t *testing.T) {
	a := answers.Default()
	a.IncludeSiblings = true
	a.SiblingsTiming = answers.SiblingsAtAdmission
	a.IncludePupilPremium = true
	a.PupilPremiumTypes.PupilPremium = true
	a.GroupOrder = []string{"looked_after", "siblings", "pupil_premium", "any_other_children"}

	comp, err := Compose(a, nil)
	require.NoError(t, err)
	assert.Equal(t, []clause.ID{clause.LookedAfter, clause.PupilPremium, clause.Siblings, clause.AnyOtherChildren}, comp.Active)
	assert.Equal(t, clause.Ordering{clause.LookedAfter, clause.Siblings, clause.PupilPremium, clause.AnyOtherChildren}, comp.Ordering)
	require.Len(t, comp.Document.Criteria, 4)
	assert.Equal(t, clause.Siblings, comp.Document.Criteria[1].ID)

	// An explicit ordering wins over the persisted one.
	comp, err = Compose(a, clause.Ordering{clause.LookedAfter, clause.PupilPremium, clause.Siblings, clause.AnyOtherChildren})
	require.NoError(t, err)
	assert.Equal(t, clause.PupilPremium, comp.Ordering[1])
}

func TestGenerate(t *testing.T) {
	rec := rendertest.NewRecorder()
	pub := &recordingPublisher{}
	g := New(rec, nil, WithPublisher(pub))

	a := answers.Sample()
	a.IncludeSiblings = true
	a.SiblingsTiming = answers.SiblingsAtApplication

	res, err := g.Generate(context.Background(), Request{SessionID: "s1", Answers: a})
	require.NoError(t, err)

	assert.Equal(t, rec.PDF, res.PDF)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "St_Mary_s_CE_Primary_2026-27_Admission_Arrangements.pdf", res.Filename)
	assert.NotEmpty(t, res.ID)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, string(calls[0]), "at the time of application")

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, res.ID, ev.ID)
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, []string{"looked_after", "siblings", "any_other_children"}, ev.Clauses)
}

func TestGenerateValidationFailure(t *testing.T) {
	rec := rendertest.NewRecorder()
	g := New(rec, nil)

	a := answers.Sample()
	a.SchoolName = ""
	_, err := g.Generate(context.Background(), Request{Answers: a})

	var verr *answers.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "schoolName")
	assert.Empty(t, rec.Calls(), "nothing is rendered for invalid answers")
}

func TestGenerateRenderFailure(t *testing.T) {
	rec := rendertest.NewRecorder()
	rec.Err = errors.New("browser crashed")
	pub := &recordingPublisher{}
	g := New(rec, nil, WithPublisher(pub))

	_, err := g.Generate(context.Background(), Request{Answers: answers.Sample()})
	require.Error(t, err)
	assert.True(t, render.IsRender(err))
	assert.Contains(t, err.Error(), "browser crashed")
	assert.Empty(t, pub.events)
}

func TestGenerateRejectsNonPDFOutput(t *testing.T) {
	rec := rendertest.NewRecorder()
	rec.PDF = []byte("<html>oops</html>")

	_, err := New(rec, nil).Generate(context.Background(), Request{Answers: answers.Sample()})
	assert.ErrorIs(t, err, render.ErrNotPDF)

	res, err := New(rec, nil, WithVerify(false)).Generate(context.Background(), Request{Answers: answers.Sample()})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Pages)
}

func TestGeneratePublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	_, err := New(rendertest.NewRecorder(), nil, WithPublisher(pub)).
		Generate(context.Background(), Request{Answers: answers.Sample()})
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}
