package answers

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fourDigitYearRe = regexp.MustCompile(`^\d{4}$`)

// MinAppealDays is the statutory minimum appeal window.
const MinAppealDays = 20

// FieldErrors maps a questionnaire key to a human-readable message.
type FieldErrors map[string]string

// ValidationError is returned when an Answer Set fails field validation.
// It is surfaced to the input surface and never fatal to the process.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid answers: " + strings.Join(parts, "; ")
}

// rule checks one questionnaire key and returns a message, or "" when valid.
type rule struct {
	Field string
	Check func(a *Answers) string
}

func required(field, msg string, get func(a *Answers) string) rule {
	return rule{Field: field, Check: func(a *Answers) string {
		if strings.TrimSpace(get(a)) == "" {
			return msg
		}
		return ""
	}}
}

// rules mirrors the questionnaire schema, in questionnaire order.
var rules = []rule{
	{Field: "disclaimerAccepted", Check: func(a *Answers) string {
		if !a.DisclaimerAccepted {
			return "You must accept the disclaimer to proceed"
		}
		return ""
	}},

	required("schoolName", "School name is required", func(a *Answers) string { return a.SchoolName }),
	required("schoolURN", "School URN is required", func(a *Answers) string { return a.SchoolURN }),
	required("schoolAddress", "School address is required", func(a *Answers) string { return a.SchoolAddress }),
	{Field: "schoolWebsite", Check: func(a *Answers) string {
		if a.SchoolWebsite != "" && !isHTTPURL(a.SchoolWebsite) {
			return "Please enter a valid URL"
		}
		return ""
	}},
	required("schoolType", "School type is required", func(a *Answers) string { return a.SchoolType }),
	required("schoolPhase", "School phase is required", func(a *Answers) string { return a.SchoolPhase }),
	required("visionStatement", "Vision statement is required", func(a *Answers) string { return a.VisionStatement }),
	required("diocese", "Diocese is required", func(a *Answers) string { return a.Diocese }),
	required("admissionsAuthority", "Admissions authority is required", func(a *Answers) string { return a.AdmissionsAuthority }),
	required("namedContact", "Named contact is required", func(a *Answers) string { return a.NamedContact }),
	required("localAuthority", "Local authority is required", func(a *Answers) string { return a.LocalAuthority }),
	required("localAuthorityAddress", "Local authority address is required", func(a *Answers) string { return a.LocalAuthorityAddress }),
	required("ageRange", "Age range is required", func(a *Answers) string { return a.AgeRange }),
	required("numberOnRoll", "Number on roll is required", func(a *Answers) string { return a.NumberOnRoll }),
	{Field: "wasOversubscribedLastYear", Check: func(a *Answers) string { return checkYesNo(a.WasOversubscribedLastYear) }},
	{Field: "hadFaithBasedCriteriaLastYear", Check: func(a *Answers) string { return checkYesNo(a.HadFaithBasedCriteriaLastYear) }},
	{Field: "faithAdmissionsLastYear", Check: func(a *Answers) string {
		if a.FaithAdmissionsLastYear != "" && !isNumber(a.FaithAdmissionsLastYear) {
			return "Must be a number"
		}
		return ""
	}},
	{Field: "appealDays", Check: func(a *Answers) string {
		v := strings.TrimSpace(a.AppealDays)
		if v == "" {
			return fmt.Sprintf("Please enter a number (must be at least %d)", MinAppealDays)
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "Must be a number"
		}
		if n < MinAppealDays {
			return fmt.Sprintf("Must be at least %d", MinAppealDays)
		}
		return ""
	}},
	required("admissionYear", "Admission year is required", func(a *Answers) string { return a.AdmissionYear }),

	required("pan", "PAN is required", func(a *Answers) string { return a.PAN }),
	{Field: "yearGroups", Check: func(a *Answers) string {
		if !a.YearGroups.Any() {
			return "Please select at least one year group"
		}
		return ""
	}},
	{Field: "yearOfLastConsultation", Check: func(a *Answers) string {
		if !fourDigitYearRe.MatchString(a.YearOfLastConsultation) {
			return "Enter a 4-digit year"
		}
		return ""
	}},
	required("scheduledReviewMeetingDate", "Meeting date is required", func(a *Answers) string { return a.ScheduledReviewMeetingDate }),
	required("consultationDeadline", "Consultation deadline is required", func(a *Answers) string { return a.ConsultationDeadline }),
	required("dateIssuedForConsultation", "Date to be issued for consultation is required", func(a *Answers) string { return a.DateIssuedForConsultation }),
	required("dateDeterminedByGovBody", "Determination date is required", func(a *Answers) string { return a.DateDeterminedByGovBody }),
	required("dateForwardedToLAandDBE", "Forwarded date is required", func(a *Answers) string { return a.DateForwardedToLAandDBE }),

	{Field: "faithBasedAttendanceFrequency", Check: func(a *Answers) string {
		switch a.FaithBasedAttendanceFrequency {
		case "", FrequencyLess8, FrequencyLess16:
			return ""
		}
		return "Invalid attendance frequency"
	}},
	{Field: "childrenOfStaffType", Check: func(a *Answers) string {
		switch a.ChildrenOfStaffType {
		case "", StaffTeaching, StaffNonTeaching, StaffAll:
			return ""
		}
		return "Invalid staff type"
	}},
	{Field: "siblingsTiming", Check: func(a *Answers) string {
		switch a.SiblingsTiming {
		case "", SiblingsAtApplication, SiblingsAtAdmission, SiblingsInCatchmentParish, SiblingsOutsideCatchmentParish:
			return ""
		}
		return "Invalid siblings timing"
	}},
	{Field: "tiebreakerMeasure", Check: func(a *Answers) string {
		switch a.TiebreakerMeasure {
		case "", TiebreakerStraightLine, TiebreakerWalkingGIS:
			return ""
		}
		return "Invalid tiebreaker measure"
	}},

	{Field: "supportDocuments", Check: func(a *Answers) string {
		for i, doc := range a.SupportDocuments {
			if strings.TrimSpace(doc.Name) == "" {
				return fmt.Sprintf("Document %d: document name is required", i+1)
			}
			if doc.URL != "" && !isHTTPURL(doc.URL) {
				return fmt.Sprintf("Document %d: please enter a valid URL", i+1)
			}
		}
		return ""
	}},
	{Field: "contactEmail", Check: func(a *Answers) string {
		if a.ContactEmail == "" {
			return ""
		}
		if addr, err := mail.ParseAddress(a.ContactEmail); err != nil || addr.Address != a.ContactEmail {
			return "Please enter a valid email address"
		}
		return ""
	}},
}

// Validate checks the whole Answer Set. It returns nil or a *ValidationError.
func Validate(a *Answers) error {
	return validateFields(a, nil)
}

// ValidateStep checks only the keys owned by one questionnaire step.
func ValidateStep(a *Answers, stepID string) error {
	step, ok := StepByID(stepID)
	if !ok {
		return fmt.Errorf("unknown step %q", stepID)
	}
	owned := make(map[string]bool, len(step.Fields))
	for _, f := range step.Fields {
		owned[f] = true
	}
	return validateFields(a, owned)
}

func validateFields(a *Answers, only map[string]bool) error {
	if a == nil {
		a = Default()
	}
	errs := FieldErrors{}
	for _, r := range rules {
		if only != nil && !only[r.Field] {
			continue
		}
		if msg := r.Check(a); msg != "" {
			errs[r.Field] = msg
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

func checkYesNo(v YesNo) string {
	if v != Yes && v != No {
		return "Please choose yes or no"
	}
	return ""
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func isHTTPURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
