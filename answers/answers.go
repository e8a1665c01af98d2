// Package answers defines the Answer Set collected by the admissions
// questionnaire, together with its JSON codec and field validation.
//
// The engine treats an Answer Set as immutable for the duration of one
// composition pass. Every include flag is a plain bool, so an absent flag
// decodes to false.
package answers

// YesNo is the enumerated answer used for the previous-year questions.
type YesNo string

const (
	Yes YesNo = "yes"
	No  YesNo = "no"
)

// AttendanceFrequency selects one of the two legally defined worship
// attendance phrasings.
type AttendanceFrequency string

const (
	FrequencyLess8  AttendanceFrequency = "less_8"
	FrequencyLess16 AttendanceFrequency = "less_16"
)

// StaffType narrows the children-of-staff clause.
type StaffType string

const (
	StaffTeaching    StaffType = "teaching_staff"
	StaffNonTeaching StaffType = "non_teaching_staff"
	StaffAll         StaffType = "all_staff"
)

// SiblingsTiming selects when sibling attendance is assessed.
type SiblingsTiming string

const (
	SiblingsAtApplication          SiblingsTiming = "time_application"
	SiblingsAtAdmission            SiblingsTiming = "time_admission"
	SiblingsInCatchmentParish      SiblingsTiming = "catchment_parish"
	SiblingsOutsideCatchmentParish SiblingsTiming = "outside_catchment_parish"
)

// TiebreakerMeasure selects how home-to-school distance is measured.
type TiebreakerMeasure string

const (
	TiebreakerStraightLine TiebreakerMeasure = "crow_files"
	TiebreakerWalkingGIS   TiebreakerMeasure = "gis"
)

// YearGroups records the intake year groups covered by the PAN.
type YearGroups struct {
	Reception bool `json:"reception"`
	Year3     bool `json:"year3"`
	Year7     bool `json:"year7"`
	Year12    bool `json:"year12"`
}

// Any reports whether at least one year group is selected.
func (y YearGroups) Any() bool {
	return y.Reception || y.Year3 || y.Year7 || y.Year12
}

// Labels returns display names of the selected year groups in intake order.
func (y YearGroups) Labels() []string {
	var out []string
	if y.Reception {
		out = append(out, "Reception")
	}
	if y.Year3 {
		out = append(out, "Year 3")
	}
	if y.Year7 {
		out = append(out, "Year 7")
	}
	if y.Year12 {
		out = append(out, "Year 12")
	}
	return out
}

// PupilPremiumTypes are the premium categories named by the pupil premium clause.
type PupilPremiumTypes struct {
	PupilPremium           bool `json:"pupilPremium"`
	EarlyYearsPupilPremium bool `json:"earlyYearsPupilPremium"`
	ServicePremium         bool `json:"servicePremium"`
}

// NurseryPremiumTypes are the premium categories for children in a named nursery.
type NurseryPremiumTypes struct {
	PupilPremium           bool `json:"nurseryVersionPupilPremium"`
	EarlyYearsPupilPremium bool `json:"nurseryVersionEarlyYearsPupilPremium"`
	ServicePremium         bool `json:"nurseryVersionServicePremium"`
}

// FaithBasedOptions are the selectable faith criteria.
type FaithBasedOptions struct {
	CatchmentAreaOrParish bool `json:"catchmentAreaOrParish"`
	PublicWorshipCoFE     bool `json:"publicWorshipCoFE"`
	EvangelicalAlliance   bool `json:"evangelicalAlliance"`
	OtherFaiths           bool `json:"otherFaiths"`
}

// StaffCategories are the two children-of-staff categories.
type StaffCategories struct {
	StaffRecruited bool `json:"staffRecruited"`
	StaffEmployed  bool `json:"staffEmployed"`
}

// SupportDocument is a named link listed in the support documents section.
type SupportDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Answers is the complete structured input for one policy document.
//
// SchoolLogo and CatchmentMap hold embeddable references (data URIs)
// produced by attachment encoding. They are never serialized, which is how
// drafts and round trips strip binary attachments.
type Answers struct {
	// Disclaimer
	DisclaimerAccepted bool `json:"disclaimerAccepted"`

	// School details
	SchoolName                    string `json:"schoolName"`
	SchoolURN                     string `json:"schoolURN"`
	SchoolAddress                 string `json:"schoolAddress"`
	SchoolWebsite                 string `json:"schoolWebsite,omitempty"`
	SchoolType                    string `json:"schoolType"`
	SchoolPhase                   string `json:"schoolPhase"`
	VisionStatement               string `json:"visionStatement"`
	Diocese                       string `json:"diocese"`
	AdmissionsAuthority           string `json:"admissionsAuthority"`
	NamedContact                  string `json:"namedContact"`
	LocalAuthority                string `json:"localAuthority"`
	LocalAuthorityAddress         string `json:"localAuthorityAddress"`
	AgeRange                      string `json:"ageRange"`
	NumberOnRoll                  string `json:"numberOnRoll"`
	WasOversubscribedLastYear     YesNo  `json:"wasOversubscribedLastYear"`
	HadFaithBasedCriteriaLastYear YesNo  `json:"hadFaithBasedCriteriaLastYear"`
	FaithAdmissionsLastYear       string `json:"faithAdmissionsLastYear,omitempty"`
	AppealDays                    string `json:"appealDays"`
	AdmissionYear                 string `json:"admissionYear"`

	// Published admission number
	PAN                        string     `json:"pan"`
	YearGroups                 YearGroups `json:"yearGroups"`
	YearOfLastConsultation     string     `json:"yearOfLastConsultation"`
	ScheduledReviewMeetingDate string     `json:"scheduledReviewMeetingDate"`
	ConsultationDeadline       string     `json:"consultationDeadline"`
	DateIssuedForConsultation  string     `json:"dateIssuedForConsultation"`
	DateDeterminedByGovBody    string     `json:"dateDeterminedByGovBody"`
	DateForwardedToLAandDBE    string     `json:"dateForwardedToLAandDBE"`

	// Admission arrangements
	IncludeSocialAndMedicalNeed bool `json:"includeSocialAndMedicalNeed"`

	IncludePupilPremium       bool                `json:"includePupilPremium"`
	PupilPremiumMaxPercentage string              `json:"pupilPremiumMaxPercentage,omitempty"`
	PupilPremiumTypes         PupilPremiumTypes   `json:"pupilPremiumTypes"`
	PupilPremiumNurseryName   string              `json:"pupilPremiumNurseryName,omitempty"`
	PupilPremiumNurseryTypes  NurseryPremiumTypes `json:"pupilPremiumNurseryTypes"`

	IncludeFaithBased             bool                `json:"includeFaithBased"`
	FaithBasedOptions             FaithBasedOptions   `json:"faithBasedOptions"`
	FaithBasedChurchName          string              `json:"faithBasedChurchName,omitempty"`
	FaithBasedAttendanceFrequency AttendanceFrequency `json:"faithBasedAttendanceFrequency,omitempty"`

	IncludeChildrenOfStaff    bool            `json:"includeChildrenOfStaff"`
	ChildrenOfStaffCategories StaffCategories `json:"childrenOfStaffCategories"`
	ChildrenOfStaffType       StaffType       `json:"childrenOfStaffType,omitempty"`

	IncludeSiblings bool           `json:"includeSiblings"`
	SiblingsTiming  SiblingsTiming `json:"siblingsTiming,omitempty"`

	IncludeNamedFeederSchool bool   `json:"includeNamedFeederSchool"`
	NamedFeederSchool        string `json:"namedFeederSchool,omitempty"`

	IncludeDistanceFromSchool  bool   `json:"includeDistanceFromSchool"`
	DistanceSchoolCalculated   string `json:"distanceSchoolCalculated,omitempty"`
	HowIsHomeAddressDetermined string `json:"howIsHomeAddressDetermined,omitempty"`

	IncludeCatchmentArea bool `json:"includeCatchmentArea"`

	TiebreakerMeasure TiebreakerMeasure `json:"tiebreakerMeasure,omitempty"`

	// Finalising
	GroupOrder       []string          `json:"groupOrder,omitempty"`
	SupportDocuments []SupportDocument `json:"supportDocuments,omitempty"`
	ContactEmail     string            `json:"contactEmail,omitempty"`
	ContactPhone     string            `json:"contactPhone,omitempty"`

	// Attachment references, never serialized.
	SchoolLogo   string `json:"-"`
	CatchmentMap string `json:"-"`
}

// Default returns the Answer Set a new questionnaire session starts from.
func Default() *Answers {
	return &Answers{
		WasOversubscribedLastYear:     No,
		HadFaithBasedCriteriaLastYear: No,
		AppealDays:                    "20",
	}
}

// Clone returns a deep copy, including attachment references.
func (a *Answers) Clone() *Answers {
	if a == nil {
		return nil
	}
	c := *a
	if a.GroupOrder != nil {
		c.GroupOrder = append([]string(nil), a.GroupOrder...)
	}
	if a.SupportDocuments != nil {
		c.SupportDocuments = append([]SupportDocument(nil), a.SupportDocuments...)
	}
	return &c
}

// StripAttachments returns a copy without attachment references.
func (a *Answers) StripAttachments() *Answers {
	c := a.Clone()
	if c != nil {
		c.SchoolLogo = ""
		c.CatchmentMap = ""
	}
	return c
}
