// Package document assembles an Answer Set and a clause ordering into the
// numbered admission arrangements document, and writes it out as HTML for
// rendering or as markdown for preview.
package document

import (
	"fmt"
	"strings"

	"github.com/theSolTrain/nse-policy-generator/answers"
	"github.com/theSolTrain/nse-policy-generator/clause"
)

// Fixed section numbers. Trailing sections are numbered after these.
const (
	SchoolDetailsSection = 1
	PANSection           = 2
	CriteriaSection      = 3
)

// Row is a labelled value in a details block or table.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Criterion is one numbered oversubscription criterion.
type Criterion struct {
	Number int         `json:"number"`
	ID     clause.ID   `json:"id"`
	Title  string      `json:"title"`
	Body   clause.Body `json:"body"`
}

// Tiebreaker describes how ties on the final place are broken.
type Tiebreaker struct {
	Number  int                       `json:"number"`
	Measure answers.TiebreakerMeasure `json:"measure"`
	Text    string                    `json:"text"`
}

// SupportDocuments lists named supporting links.
type SupportDocuments struct {
	Number int                       `json:"number"`
	Items  []answers.SupportDocument `json:"items"`
}

// Contact holds the contact details section.
type Contact struct {
	Number int    `json:"number"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// Document is the assembled policy. Optional trailing sections are nil when
// their source data is absent.
type Document struct {
	SchoolName    string `json:"schoolName"`
	AdmissionYear string `json:"admissionYear"`
	Logo          string `json:"-"`

	Details      []Row  `json:"details"`
	Vision       string `json:"vision,omitempty"`
	PreviousYear []Row  `json:"previousYear"`

	PAN      []Row `json:"pan"`
	KeyDates []Row `json:"keyDates"`

	Criteria []Criterion `json:"criteria"`

	Tiebreaker       *Tiebreaker       `json:"tiebreaker,omitempty"`
	SupportDocuments *SupportDocuments `json:"supportDocuments,omitempty"`
	Contact          *Contact          `json:"contact,omitempty"`

	GeneratedOn string `json:"generatedOn"`
}

const notAvailable = "N/A"

// EHCPStatement introduces the oversubscription criteria.
const EHCPStatement = "All children whose Education, Health and Care Plan (EHCP) names the school must be admitted. " +
	"This is not an oversubscription criterion, but the children count against the PAN. If the number of applications " +
	"received is less than the PAN, all applicants will be offered places. If, after the admission of any children with " +
	"an EHCP naming the school, the number of applications exceeds the number of places remaining available, the " +
	"school's oversubscription criteria will be used to determine the allocation of places."

const tieOnDistanceText = "If two or more applicants for the final place live the same distance from the school, " +
	"random allocation will be used as a final tie-breaker, and will be supervised by someone independent of the school."

var tiebreakerText = map[answers.TiebreakerMeasure]string{
	answers.TiebreakerStraightLine: "We will measure the distance by a straight line. All straight-line distances are " +
		"calculated electronically using a geographical information system and with the support of the Local Authority where required",
	answers.TiebreakerWalkingGIS: "This will be measured by the shortest walking distance by road or maintained footpath " +
		"or other public rights of way from the pupil's home, to the main entrance point of the school using a GIS computerised mapping system",
}

// TieOnDistance is the closing sentence of the tiebreaker section.
func TieOnDistance() string { return tieOnDistanceText }

// Assemble expands every clause in ordering, drops the empty ones and
// numbers the rest from 1. Trailing sections are attached only when their
// data is present and are numbered by presence after the fixed sections.
//
// An id unknown to the clause catalog fails the whole assembly.
func Assemble(a *answers.Answers, ordering clause.Ordering) (*Document, error) {
	if a == nil {
		a = answers.Default()
	}

	criteria := make([]Criterion, 0, len(ordering))
	for _, id := range ordering {
		body, err := clause.Expand(id, a)
		if err != nil {
			return nil, fmt.Errorf("expand clause: %w", err)
		}
		if body.IsEmpty() {
			continue
		}
		criteria = append(criteria, Criterion{
			Number: len(criteria) + 1,
			ID:     id,
			Title:  clause.Describe(id).Title,
			Body:   body,
		})
	}

	doc := &Document{
		SchoolName:    a.SchoolName,
		AdmissionYear: a.AdmissionYear,
		Logo:          a.SchoolLogo,
		Details:       schoolDetails(a),
		Vision:        SanitizeRichText(a.VisionStatement),
		PreviousYear:  previousYear(a),
		PAN:           panRows(a),
		KeyDates:      keyDates(a),
		Criteria:      criteria,
		GeneratedOn:   FormatLongDate(timeNow()),
	}

	next := CriteriaSection + 1
	if text, ok := tiebreakerText[a.TiebreakerMeasure]; ok {
		doc.Tiebreaker = &Tiebreaker{Number: next, Measure: a.TiebreakerMeasure, Text: text}
		next++
	}
	if docs := supportDocuments(a.SupportDocuments); len(docs) > 0 {
		doc.SupportDocuments = &SupportDocuments{Number: next, Items: docs}
		next++
	}
	email, phone := strings.TrimSpace(a.ContactEmail), strings.TrimSpace(a.ContactPhone)
	if email != "" || phone != "" {
		doc.Contact = &Contact{Number: next, Email: email, Phone: phone}
	}
	return doc, nil
}

// SectionCount returns the number of top-level sections in the document.
func (d *Document) SectionCount() int {
	n := CriteriaSection
	if d.Tiebreaker != nil {
		n++
	}
	if d.SupportDocuments != nil {
		n++
	}
	if d.Contact != nil {
		n++
	}
	return n
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func yesNo(v answers.YesNo) string {
	if v == answers.Yes {
		return "Yes"
	}
	return "No"
}

func schoolDetails(a *answers.Answers) []Row {
	rows := []Row{
		{"School Name", orNA(a.SchoolName)},
		{"School Address", orNA(a.SchoolAddress)},
	}
	if strings.TrimSpace(a.SchoolWebsite) != "" {
		rows = append(rows, Row{"Website", a.SchoolWebsite})
	}
	return append(rows,
		Row{"School Type", orNA(a.SchoolType)},
		Row{"School Phase", orNA(a.SchoolPhase)},
		Row{"Age Range", orNA(a.AgeRange)},
		Row{"Number on Roll", orNA(a.NumberOnRoll)},
		Row{"Diocese", orNA(a.Diocese)},
		Row{"Admissions Authority", orNA(a.AdmissionsAuthority)},
		Row{"Local Authority", orNA(a.LocalAuthority)},
		Row{"Local Authority Address", orNA(a.LocalAuthorityAddress)},
		Row{"Named Contact", orNA(a.NamedContact)},
	)
}

func previousYear(a *answers.Answers) []Row {
	rows := []Row{
		{"Oversubscribed Last Year", yesNo(a.WasOversubscribedLastYear)},
		{"Had Faith-Based Criteria", yesNo(a.HadFaithBasedCriteriaLastYear)},
	}
	if a.HadFaithBasedCriteriaLastYear == answers.Yes {
		rows = append(rows, Row{"Faith Admissions Last Year", orNA(a.FaithAdmissionsLastYear)})
	}
	return append(rows, Row{"Appeal Days", orNA(a.AppealDays) + " days"})
}

func panRows(a *answers.Answers) []Row {
	return []Row{
		{"PAN", orNA(a.PAN)},
		{"Year Groups", orNA(strings.Join(a.YearGroups.Labels(), ", "))},
		{"Year of Last Consultation", orNA(a.YearOfLastConsultation)},
	}
}

func keyDates(a *answers.Answers) []Row {
	return []Row{
		{"Scheduled Review Meeting", FormatDate(a.ScheduledReviewMeetingDate)},
		{"Consultation Deadline", FormatDate(a.ConsultationDeadline)},
		{"Date Issued for Consultation", FormatDate(a.DateIssuedForConsultation)},
		{"Date Determined by Governing Body", FormatDate(a.DateDeterminedByGovBody)},
		{"Date Forwarded to LA and DBE", FormatDate(a.DateForwardedToLAandDBE)},
	}
}

// supportDocuments keeps entries with a name, trimming both fields.
func supportDocuments(in []answers.SupportDocument) []answers.SupportDocument {
	var out []answers.SupportDocument
	for _, d := range in {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			continue
		}
		out = append(out, answers.SupportDocument{Name: name, URL: strings.TrimSpace(d.URL)})
	}
	return out
}
