package clause

import (
	"fmt"
	"strings"

	"github.com/theSolTrain/nse-policy-generator/answers"
)

// Field is a labelled line inside a clause body.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Image is an embedded picture inside a clause body.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Body is the expanded text of one clause. Paragraphs are plain text; the
// renderer escapes them.
type Body struct {
	Paragraphs []string `json:"paragraphs,omitempty"`
	Fields     []Field  `json:"fields,omitempty"`
	Image      *Image   `json:"image,omitempty"`
}

// IsEmpty reports whether the body contributes nothing to the document.
func (b Body) IsEmpty() bool {
	return len(b.Paragraphs) == 0 && len(b.Fields) == 0 && b.Image == nil
}

// Text flattens the body into plain text, one block per line.
func (b Body) Text() string {
	var lines []string
	lines = append(lines, b.Paragraphs...)
	for _, f := range b.Fields {
		lines = append(lines, f.Label+": "+f.Value)
	}
	if b.Image != nil {
		lines = append(lines, "["+b.Image.Alt+"]")
	}
	return strings.Join(lines, "\n")
}

const (
	lookedAfterText = "Children who are looked after or were previously looked after, including those children " +
		"who appear to have been in state care outside of England and ceased to be in state care as a result of being adopted."

	socialMedicalText = "Children with a particular medical or social need that can only be met at this school. " +
		"Supporting evidence in the form of a letter from a doctor or social worker or other relevant qualified, " +
		"independent professional would be required."

	anyOtherChildrenText = "Any other children."

	siblingDefinition = "('Sibling' means a brother or sister, a half brother or sister, a legally adopted brother or sister " +
		"or half-brother or sister, a step brother or sister, or other child living in the same household who, in any of " +
		"these cases, will be living with them at the same address at the date of their entry to the academy)."

	evangelicalAllianceText = "A Christian Church means any church which is designated under the Ecumenical Relations " +
		"Measure nationally by the Archbishops of Canterbury and York or locally by the diocesan bishop; or is a member of " +
		"Churches Together in England; or of the Evangelical Alliance; or a Partner church of Affinity"
)

var attendancePhrases = map[answers.AttendanceFrequency]string{
	answers.FrequencyLess8:  "Eight times in the twelve months immediately prior to the date of application",
	answers.FrequencyLess16: "Sixteen times in the twenty-four months immediately prior to the closing date for application",
}

var siblingsPhrases = map[answers.SiblingsTiming]string{
	answers.SiblingsAtApplication:          "at the time of application",
	answers.SiblingsAtAdmission:            "at the time of admission",
	answers.SiblingsInCatchmentParish:      "at the time of application who live within the catchment area/parish",
	answers.SiblingsOutsideCatchmentParish: "at the time of application who live outside the catchment area/parish",
}

var staffPhrases = map[answers.StaffType]string{
	answers.StaffTeaching:    "teaching staff",
	answers.StaffNonTeaching: "non-teaching staff",
	answers.StaffAll:         "all staff",
}

// expanders holds the body builder for every catalog entry.
var expanders = map[ID]func(a *answers.Answers) Body{
	LookedAfter:        func(*answers.Answers) Body { return paragraphs(lookedAfterText) },
	SocialMedical:      func(*answers.Answers) Body { return paragraphs(socialMedicalText) },
	PupilPremium:       expandPupilPremium,
	FaithBased:         expandFaithBased,
	ChildrenOfStaff:    expandChildrenOfStaff,
	Siblings:           expandSiblings,
	NamedFeederSchool:  expandNamedFeederSchool,
	DistanceFromSchool: expandDistance,
	CatchmentArea:      expandCatchmentArea,
	AnyOtherChildren:   func(*answers.Answers) Body { return paragraphs(anyOtherChildrenText) },
}

func init() {
	for _, d := range catalog {
		if _, ok := expanders[d.ID]; !ok {
			panic(fmt.Sprintf("clause: %q has no expander", d.ID))
		}
	}
}

// Expand builds the body text of clause id from a. The body is empty when
// the clause's include flag is off or its sub-answers are entirely unset.
// An id outside the catalog returns a *CompositionError.
func Expand(id ID, a *answers.Answers) (Body, error) {
	expand, ok := expanders[id]
	if !ok {
		return Body{}, &CompositionError{ID: id, err: ErrUnknownClause}
	}
	if a == nil {
		a = answers.Default()
	}
	if !Included(id, a) {
		return Body{}, nil
	}
	return expand(a), nil
}

func paragraphs(p ...string) Body {
	return Body{Paragraphs: p}
}

func expandPupilPremium(a *answers.Answers) Body {
	var kinds []string
	if a.PupilPremiumTypes.PupilPremium {
		kinds = append(kinds, "pupil premium")
	}
	if a.PupilPremiumTypes.EarlyYearsPupilPremium {
		kinds = append(kinds, "early years pupil premium")
	}
	if a.PupilPremiumTypes.ServicePremium {
		kinds = append(kinds, "service premium")
	}
	if len(kinds) == 0 {
		return Body{}
	}

	text := "Children eligible for " + joinNatural(kinds)
	if pct := strings.TrimSpace(a.PupilPremiumMaxPercentage); pct != "" {
		text += fmt.Sprintf(" (up to %s%% of places)", pct)
	}
	body := paragraphs(text)

	nursery := strings.TrimSpace(a.PupilPremiumNurseryName)
	if nursery == "" {
		return body
	}
	var nurseryKinds []string
	if a.PupilPremiumNurseryTypes.PupilPremium {
		nurseryKinds = append(nurseryKinds, "pupil premium")
	}
	if a.PupilPremiumNurseryTypes.EarlyYearsPupilPremium {
		nurseryKinds = append(nurseryKinds, "early years pupil premium")
	}
	if a.PupilPremiumNurseryTypes.ServicePremium {
		nurseryKinds = append(nurseryKinds, "service premium")
	}
	if len(nurseryKinds) > 0 {
		body.Paragraphs = append(body.Paragraphs, fmt.Sprintf(
			"Children eligible for %s who are in a nursery class at %s", joinNatural(nurseryKinds), nursery))
	}
	return body
}

func expandFaithBased(a *answers.Answers) Body {
	var body Body
	opts := a.FaithBasedOptions
	if opts.CatchmentAreaOrParish {
		text := "Residence in the Parish or in the catchment area and attendance at public worship in a Church of England church"
		if church := strings.TrimSpace(a.FaithBasedChurchName); church != "" {
			text += " (" + church + ")"
		}
		body.Paragraphs = append(body.Paragraphs, text)
	}
	if opts.PublicWorshipCoFE {
		body.Paragraphs = append(body.Paragraphs, "Attendance at public worship in any Church of England church")
	}
	if opts.EvangelicalAlliance {
		body.Paragraphs = append(body.Paragraphs, evangelicalAllianceText)
	}
	if opts.OtherFaiths {
		body.Paragraphs = append(body.Paragraphs, "Attendance at public worship or its equivalent by members of other faiths")
	}
	if phrase, ok := attendancePhrases[a.FaithBasedAttendanceFrequency]; ok {
		body.Fields = append(body.Fields, Field{Label: "Frequency requirement", Value: phrase})
	}
	return body
}

func expandChildrenOfStaff(a *answers.Answers) Body {
	var body Body
	if a.ChildrenOfStaffCategories.StaffRecruited {
		body.Paragraphs = append(body.Paragraphs,
			"Children of staff recruited to fill a vacant post for which there is a demonstrable skill shortage")
	}
	if a.ChildrenOfStaffCategories.StaffEmployed {
		staff, ok := staffPhrases[a.ChildrenOfStaffType]
		if !ok {
			staff = "staff"
		}
		body.Paragraphs = append(body.Paragraphs, fmt.Sprintf(
			"Children of %s who have been employed at the school for two or more years at the time at which application for admission is made",
			staff))
	}
	return body
}

func expandSiblings(a *answers.Answers) Body {
	phrase, ok := siblingsPhrases[a.SiblingsTiming]
	if !ok {
		return Body{}
	}
	return paragraphs(fmt.Sprintf("Children with a sibling attending the school %s. %s", phrase, siblingDefinition))
}

func expandNamedFeederSchool(a *answers.Answers) Body {
	name := strings.TrimSpace(a.NamedFeederSchool)
	if name == "" {
		return Body{}
	}
	return paragraphs(fmt.Sprintf("Children attending %s.", name))
}

func expandDistance(a *answers.Answers) Body {
	var body Body
	if v := strings.TrimSpace(a.DistanceSchoolCalculated); v != "" {
		body.Fields = append(body.Fields, Field{Label: "How distance is calculated", Value: v})
	}
	if v := strings.TrimSpace(a.HowIsHomeAddressDetermined); v != "" {
		body.Fields = append(body.Fields, Field{Label: "How home address is determined", Value: v})
	}
	return body
}

func expandCatchmentArea(a *answers.Answers) Body {
	if a.CatchmentMap != "" {
		return Body{Image: &Image{Src: a.CatchmentMap, Alt: "Catchment Area Map"}}
	}
	return paragraphs("Catchment area applies (map not provided).")
}

// joinNatural joins items as "a", "a and b", or "a, b and c".
func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
