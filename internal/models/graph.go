package models

import "fmt"

// PathEdge is one hop of a RelationshipPath.
type PathEdge struct {
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Class     EdgeClass `json:"edge_class"`
	Qualifier Qualifier `json:"qualifier,omitempty"`
}

// RelationshipPath is an ordered sequence of hops connecting two people.
type RelationshipPath []PathEdge

// SpouseHops counts the spouse edges in the path.
func (p RelationshipPath) SpouseHops() int {
	n := 0

	for _, e := range p {
		if e.Class == EdgeSpouse {
			n++
		}
	}

	return n
}

// Reverse returns the path walked from its end back to its start.
func (p RelationshipPath) Reverse() RelationshipPath {
	out := make(RelationshipPath, len(p))

	for i, e := range p {
		out[len(p)-1-i] = PathEdge{
			FromID:    e.ToID,
			ToID:      e.FromID,
			Class:     e.Class.Inverse(),
			Qualifier: e.Qualifier,
		}
	}

	return out
}

// Inverse returns the class of the same edge walked in the opposite direction.
func (c EdgeClass) Inverse() EdgeClass {
	switch c {
	case EdgeParent:
		return EdgeChild
	case EdgeChild:
		return EdgeParent
	case EdgeSibling, EdgeSpouse:
		return c
	}

	return c
}

// CommonAncestor is a person found in the ancestry of both people of a pair.
type CommonAncestor struct {
	AncestorID    string `json:"ancestor_id"`
	DistanceFromA int    `json:"distance_from_a"`
	DistanceFromB int    `json:"distance_from_b"`
}

// RelationType classifies a computed relationship.
type RelationType int

// Relation types. Parent and child cover one generation, ancestor and descendant two or more.
const (
	RelationUnrelated RelationType = iota
	RelationParent
	RelationChild
	RelationAncestor
	RelationDescendant
	RelationSibling
	RelationAuntUncle
	RelationNibling
	RelationCousin
	RelationSpouse
	RelationInLaw
)

var relationTypeNames = [...]string{
	RelationUnrelated:  "unrelated",
	RelationParent:     "parent",
	RelationChild:      "child",
	RelationAncestor:   "ancestor",
	RelationDescendant: "descendant",
	RelationSibling:    "sibling",
	RelationAuntUncle:  "aunt-uncle",
	RelationNibling:    "nibling",
	RelationCousin:     "cousin",
	RelationSpouse:     "spouse",
	RelationInLaw:      "in-law",
}

// String returns the hyphenated type name.
func (t RelationType) String() string {
	if t >= 0 && int(t) < len(relationTypeNames) {
		return relationTypeNames[t]
	}

	return fmt.Sprintf("relationtype(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t RelationType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Inverse returns the type seen from the other person of the pair.
func (t RelationType) Inverse() RelationType {
	switch t {
	case RelationParent:
		return RelationChild
	case RelationChild:
		return RelationParent
	case RelationAncestor:
		return RelationDescendant
	case RelationDescendant:
		return RelationAncestor
	case RelationAuntUncle:
		return RelationNibling
	case RelationNibling:
		return RelationAuntUncle
	case RelationUnrelated, RelationSibling, RelationCousin, RelationSpouse, RelationInLaw:
		return t
	}

	return t
}

// ComputedRelationship describes what person A is to person B.
type ComputedRelationship struct {
	PersonAID       string           `json:"person_a_id"`
	PersonBID       string           `json:"person_b_id"`
	RelationType    RelationType     `json:"relation_type"`
	Degree          int              `json:"degree"`
	Removed         int              `json:"removed"`
	Consanguinity   int              `json:"consanguinity"`
	ViaMarriage     bool             `json:"via_marriage"`
	HalfBlood       bool             `json:"half_blood,omitempty"`
	Qualifier       Qualifier        `json:"qualifier,omitempty"`
	DisplayName     string           `json:"display_name"`
	ShortestPath    RelationshipPath `json:"shortest_path,omitempty"`
	CommonAncestors []CommonAncestor `json:"common_ancestors,omitempty"`
	Approximate     bool             `json:"approximate,omitempty"`
	GraphVersion    string           `json:"graph_version"`
}
