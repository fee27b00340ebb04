package models

import (
	"fmt"
	"strings"
)

// RelationshipType is the closed set of foundational relationships recorded by the store.
// The type names the role of PersonFromID relative to PersonToID.
type RelationshipType int

// Stored relationship types.
const (
	RelParent RelationshipType = iota + 1
	RelChild
	RelSpouse
	RelSibling
	RelAdoptiveParent
	RelAdoptiveChild
	RelStepParent
	RelStepChild
	RelFosterParent
	RelFosterChild
	RelGuardian
	RelWard
)

var relationshipTypeNames = map[RelationshipType]string{
	RelParent:         "PARENT",
	RelChild:          "CHILD",
	RelSpouse:         "SPOUSE",
	RelSibling:        "SIBLING",
	RelAdoptiveParent: "ADOPTIVE_PARENT",
	RelAdoptiveChild:  "ADOPTIVE_CHILD",
	RelStepParent:     "STEP_PARENT",
	RelStepChild:      "STEP_CHILD",
	RelFosterParent:   "FOSTER_PARENT",
	RelFosterChild:    "FOSTER_CHILD",
	RelGuardian:       "GUARDIAN",
	RelWard:           "WARD",
}

// String returns the stored name, e.g. "ADOPTIVE_PARENT".
func (t RelationshipType) String() string {
	if s, ok := relationshipTypeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("RelationshipType(%d)", int(t))
}

// ParseRelationshipType parses a stored relationship type name. Matching is
// case-insensitive and accepts '-' or ' ' in place of '_'.
func ParseRelationshipType(s string) (RelationshipType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)

	for t, name := range relationshipTypeNames {
		if name == norm {
			return t, nil
		}
	}

	return 0, fmt.Errorf("unknown relationship type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t RelationshipType) MarshalText() ([]byte, error) {
	if _, ok := relationshipTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown relationship type %d", int(t))
	}

	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *RelationshipType) UnmarshalText(b []byte) error {
	parsed, err := ParseRelationshipType(string(b))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// Qualifier annotates a parent/child edge that is not a biological link.
type Qualifier int

// Qualifier values. QualifierNone marks a biological (or unqualified) edge.
const (
	QualifierNone Qualifier = iota
	QualifierAdoptive
	QualifierStep
	QualifierFoster
	QualifierGuardian
)

// String returns the lowercase qualifier name, or "" for QualifierNone.
func (q Qualifier) String() string {
	switch q {
	case QualifierNone:
		return ""
	case QualifierAdoptive:
		return "adoptive"
	case QualifierStep:
		return "step"
	case QualifierFoster:
		return "foster"
	case QualifierGuardian:
		return "guardian"
	}

	return fmt.Sprintf("qualifier(%d)", int(q))
}

// MarshalText implements encoding.TextMarshaler.
func (q Qualifier) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// EdgeClass is one of the four normalized adjacency classes of the family graph.
type EdgeClass int

// Edge classes. EdgeParent points from a person to one of their parents.
const (
	EdgeParent EdgeClass = iota + 1
	EdgeChild
	EdgeSibling
	EdgeSpouse
)

// String returns the lowercase class name.
func (c EdgeClass) String() string {
	switch c {
	case EdgeParent:
		return "parent"
	case EdgeChild:
		return "child"
	case EdgeSibling:
		return "sibling"
	case EdgeSpouse:
		return "spouse"
	}

	return fmt.Sprintf("edgeclass(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c EdgeClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Normalize maps a stored type onto the edge class seen from PersonFromID and
// the qualifier carried as edge metadata. Every RelationshipType is handled.
func (t RelationshipType) Normalize() (EdgeClass, Qualifier, error) {
	switch t {
	case RelParent:
		return EdgeChild, QualifierNone, nil
	case RelChild:
		return EdgeParent, QualifierNone, nil
	case RelAdoptiveParent:
		return EdgeChild, QualifierAdoptive, nil
	case RelAdoptiveChild:
		return EdgeParent, QualifierAdoptive, nil
	case RelStepParent:
		return EdgeChild, QualifierStep, nil
	case RelStepChild:
		return EdgeParent, QualifierStep, nil
	case RelFosterParent:
		return EdgeChild, QualifierFoster, nil
	case RelFosterChild:
		return EdgeParent, QualifierFoster, nil
	case RelGuardian:
		return EdgeChild, QualifierGuardian, nil
	case RelWard:
		return EdgeParent, QualifierGuardian, nil
	case RelSpouse:
		return EdgeSpouse, QualifierNone, nil
	case RelSibling:
		return EdgeSibling, QualifierNone, nil
	}

	return 0, QualifierNone, fmt.Errorf("unknown relationship type %d", int(t))
}

// StoredRelationship is a foundational edge as recorded by the external store.
type StoredRelationship struct {
	PersonFromID string           `json:"person_from_id" yaml:"from"`
	PersonToID   string           `json:"person_to_id" yaml:"to"`
	Type         RelationshipType `json:"type" yaml:"type"`
}

// Validate checks that required fields are present.
func (r *StoredRelationship) Validate() error {
	if r.PersonFromID == "" {
		return ErrMissingFrom
	}

	if r.PersonToID == "" {
		return ErrMissingTo
	}

	if _, ok := relationshipTypeNames[r.Type]; !ok {
		return ErrMissingType
	}

	return nil
}
