package answers

// Step is one page of the questionnaire and the keys it owns.
type Step struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Fields []string `json:"fields"`
}

var steps = []Step{
	{ID: "disclaimer", Title: "Disclaimer", Fields: []string{"disclaimerAccepted"}},
	{
		ID:    "schoolDetails",
		Title: "School Details",
		Fields: []string{
			"schoolName", "schoolURN", "schoolAddress", "schoolWebsite", "schoolType",
			"schoolPhase", "schoolLogo", "visionStatement", "diocese", "admissionsAuthority",
			"namedContact", "localAuthority", "localAuthorityAddress", "ageRange",
			"numberOnRoll", "wasOversubscribedLastYear", "hadFaithBasedCriteriaLastYear",
			"faithAdmissionsLastYear", "appealDays", "admissionYear",
		},
	},
	{
		ID:    "pan",
		Title: "Published Admission Number",
		Fields: []string{
			"pan", "yearGroups", "yearOfLastConsultation", "scheduledReviewMeetingDate",
			"consultationDeadline", "dateIssuedForConsultation", "dateDeterminedByGovBody",
			"dateForwardedToLAandDBE",
		},
	},
	{
		ID:    "arrangements",
		Title: "School Admission Arrangements",
		Fields: []string{
			"faithBasedAttendanceFrequency", "childrenOfStaffType", "siblingsTiming",
			"tiebreakerMeasure", "catchmentMap",
		},
	},
	{
		ID:     "finalising",
		Title:  "Finalising the Text",
		Fields: []string{"groupOrder", "supportDocuments", "contactEmail", "contactPhone"},
	},
	{ID: "complete", Title: "Complete / Download"},
}

// Steps returns the questionnaire steps in navigation order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// StepByID looks up a step by its identifier.
func StepByID(id string) (Step, bool) {
	for _, s := range steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// ClampStep bounds a step index to the valid range.
func ClampStep(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(steps) {
		return len(steps) - 1
	}
	return i
}
