package generate

import "strings"

const maxSchoolNameLen = 50

// Filename derives the download name for a school's policy, for example
// "St_Mary_s_2026-27_Admission_Arrangements.pdf".
func Filename(schoolName, admissionYear string) string {
	school := sanitize(strings.TrimSpace(schoolName), nil)
	if len(school) > maxSchoolNameLen {
		school = school[:maxSchoolNameLen]
	}
	if school == "" {
		school = "School"
	}

	year := sanitize(strings.TrimSpace(admissionYear), map[rune]rune{'/': '-', '-': '-'})
	if year == "" {
		year = "Year"
	}
	return school + "_" + year + "_Admission_Arrangements.pdf"
}

// sanitize replaces every rune that is not an ASCII letter or digit with an
// underscore, unless keep maps it to a replacement.
func sanitize(s string, keep map[rune]rune) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			if repl, ok := keep[r]; ok {
				b.WriteRune(repl)
			} else {
				b.WriteByte('_')
			}
		}
	}
	return b.String()
}
