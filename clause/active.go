package clause

import (
	"fmt"

	"github.com/theSolTrain/nse-policy-generator/answers"
)

// includeFlags maps every optional clause to the answer that switches it on.
var includeFlags = map[ID]func(a *answers.Answers) bool{
	SocialMedical:      func(a *answers.Answers) bool { return a.IncludeSocialAndMedicalNeed },
	PupilPremium:       func(a *answers.Answers) bool { return a.IncludePupilPremium },
	FaithBased:         func(a *answers.Answers) bool { return a.IncludeFaithBased },
	ChildrenOfStaff:    func(a *answers.Answers) bool { return a.IncludeChildrenOfStaff },
	Siblings:           func(a *answers.Answers) bool { return a.IncludeSiblings },
	NamedFeederSchool:  func(a *answers.Answers) bool { return a.IncludeNamedFeederSchool },
	DistanceFromSchool: func(a *answers.Answers) bool { return a.IncludeDistanceFromSchool },
	CatchmentArea:      func(a *answers.Answers) bool { return a.IncludeCatchmentArea },
}

func init() {
	for _, d := range catalog {
		_, has := includeFlags[d.ID]
		if d.Fixed == Unpinned && !has {
			panic(fmt.Sprintf("clause: optional clause %q has no include flag", d.ID))
		}
	}
}

// Included reports whether the include flag for id is set. Fixed clauses
// are always included.
func Included(id ID, a *answers.Answers) bool {
	if IsFixed(id) {
		return true
	}
	if a == nil {
		return false
	}
	flag, ok := includeFlags[id]
	return ok && flag(a)
}

// ResolveActive returns the clauses that apply to a, in declaration order,
// with the pinned clauses at both ends. It depends on a alone.
//
// A clause whose include flag is set stays active even when it will expand
// to no text; the assembler decides emptiness.
func ResolveActive(a *answers.Answers) []ID {
	active := make([]ID, 0, len(catalog))
	active = append(active, firstID)
	for _, d := range catalog {
		if d.Fixed != Unpinned {
			continue
		}
		if Included(d.ID, a) {
			active = append(active, d.ID)
		}
	}
	return append(active, lastID)
}
