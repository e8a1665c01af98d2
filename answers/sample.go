package answers

// Sample returns a complete Answer Set that passes Validate. It seeds new
// answer files written by the CLI and doubles as a test fixture.
func Sample() *Answers {
	a := Default()
	a.DisclaimerAccepted = true
	a.SchoolName = "St Mary's CE Primary"
	a.SchoolURN = "123456"
	a.SchoolAddress = "1 Church Lane"
	a.SchoolType = "Voluntary Aided"
	a.SchoolPhase = "Primary"
	a.VisionStatement = "<p>Life in all its fullness</p>"
	a.Diocese = "Oxford"
	a.AdmissionsAuthority = "Governing Body"
	a.NamedContact = "J. Smith"
	a.LocalAuthority = "Oxfordshire"
	a.LocalAuthorityAddress = "County Hall"
	a.AgeRange = "4-11"
	a.NumberOnRoll = "210"
	a.AdmissionYear = "2026/27"
	a.PAN = "30"
	a.YearGroups.Reception = true
	a.YearOfLastConsultation = "2024"
	a.ScheduledReviewMeetingDate = "2025-09-01"
	a.ConsultationDeadline = "2025-10-01"
	a.DateIssuedForConsultation = "2025-11-01"
	a.DateDeterminedByGovBody = "2026-02-01"
	a.DateForwardedToLAandDBE = "2026-02-15"
	return a
}
