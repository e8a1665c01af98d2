// Package clause is the composition engine for oversubscription criteria.
//
// It holds the static clause catalog, derives the active clause set from an
// Answer Set, reconciles that set with the user's manual ordering, and
// expands each clause into document text.
package clause

import "fmt"

// ID identifies a clause in the catalog.
type ID string

// Catalog identifiers, in declaration order.
const (
	LookedAfter        ID = "looked_after"
	SocialMedical      ID = "social_medical"
	PupilPremium       ID = "pupil_premium"
	FaithBased         ID = "faith_based"
	ChildrenOfStaff    ID = "children_of_staff"
	Siblings           ID = "siblings"
	NamedFeederSchool  ID = "named_feeder_school"
	DistanceFromSchool ID = "distance_from_school"
	CatchmentArea      ID = "catchment_area"
	AnyOtherChildren   ID = "any_other_children"
)

// Position pins a clause to one end of every ordering.
type Position string

const (
	Unpinned    Position = ""
	PinnedFirst Position = "first"
	PinnedLast  Position = "last"
)

// Descriptor is the static description of one clause.
type Descriptor struct {
	ID    ID       `json:"id"`
	Title string   `json:"title"`
	Fixed Position `json:"fixed,omitempty"`
}

// catalog is the closed clause registry. Exactly one entry is PinnedFirst
// and exactly one is PinnedLast.
var catalog = []Descriptor{
	{ID: LookedAfter, Title: "Looked After Children and Previously Looked After Children", Fixed: PinnedFirst},
	{ID: SocialMedical, Title: "Social and Medical Need"},
	{ID: PupilPremium, Title: "Pupil Premium"},
	{ID: FaithBased, Title: "Faith Based"},
	{ID: ChildrenOfStaff, Title: "Children of Staff"},
	{ID: Siblings, Title: "Siblings"},
	{ID: NamedFeederSchool, Title: "Named Feeder School"},
	{ID: DistanceFromSchool, Title: "Distance from School"},
	{ID: CatchmentArea, Title: "Catchment Area"},
	{ID: AnyOtherChildren, Title: "Any Other Children", Fixed: PinnedLast},
}

var (
	byID    map[ID]Descriptor
	firstID ID
	lastID  ID
)

func init() {
	byID = make(map[ID]Descriptor, len(catalog))
	for _, d := range catalog {
		if _, dup := byID[d.ID]; dup {
			panic(fmt.Sprintf("clause: duplicate id %q", d.ID))
		}
		byID[d.ID] = d
		switch d.Fixed {
		case PinnedFirst:
			if firstID != "" {
				panic("clause: more than one clause pinned first")
			}
			firstID = d.ID
		case PinnedLast:
			if lastID != "" {
				panic("clause: more than one clause pinned last")
			}
			lastID = d.ID
		}
	}
	if firstID == "" || lastID == "" {
		panic("clause: catalog must pin one clause first and one last")
	}
}

// Describe returns the descriptor for id. An unknown id is a programming
// error and panics; use Lookup for ids that crossed a trust boundary.
func Describe(id ID) Descriptor {
	d, ok := byID[id]
	if !ok {
		panic(fmt.Sprintf("clause: unknown id %q", id))
	}
	return d
}

// Lookup returns the descriptor for id and whether it exists.
func Lookup(id ID) (Descriptor, bool) {
	d, ok := byID[id]
	return d, ok
}

// AllIDs returns every clause id in declaration order.
func AllIDs() []ID {
	ids := make([]ID, len(catalog))
	for i, d := range catalog {
		ids[i] = d.ID
	}
	return ids
}

// All returns a copy of the catalog in declaration order.
func All() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// First returns the id pinned to the head of every ordering.
func First() ID { return firstID }

// Last returns the id pinned to the tail of every ordering.
func Last() ID { return lastID }

// IsFixed reports whether id is pinned to either end.
func IsFixed(id ID) bool {
	return id == firstID || id == lastID
}
