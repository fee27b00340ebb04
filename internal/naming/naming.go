// Package naming turns the generational shape of a relationship into a kinship label.
// It never touches the graph: input is a Descriptor, output is a Label.
package naming

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/persistorai/kinship/internal/models"
)

// Marriage marks where spouse hops sit around the blood segment of a path.
type Marriage int

// Marriage positions.
const (
	// MarriageNone is a pure blood relationship.
	MarriageNone Marriage = iota
	// MarriageSpouse is a direct spouse link with no blood segment.
	MarriageSpouse
	// MarriageAtA means A is the spouse of someone blood-related to B.
	MarriageAtA
	// MarriageAtB means A is blood-related to B's spouse.
	MarriageAtB
	// MarriageBoth means A's spouse is blood-related to B's spouse.
	MarriageBoth
	// MarriageStep means a spouse hop sits inside the blood segment: A and B
	// are blood relatives of two married people, one on each side.
	MarriageStep
)

// Invert returns the marriage position seen from the other end of the path.
func (m Marriage) Invert() Marriage {
	switch m {
	case MarriageAtA:
		return MarriageAtB
	case MarriageAtB:
		return MarriageAtA
	case MarriageNone, MarriageSpouse, MarriageBoth, MarriageStep:
		return m
	}

	return m
}

// Descriptor is the normalized shape of a relationship from A to B.
// GenerationsUp counts steps from A up to the common ancestor of the blood
// segment; GenerationsDown counts steps from there down to B.
type Descriptor struct {
	GenerationsUp   int
	GenerationsDown int
	Marriage        Marriage
	Qualifiers      []models.Qualifier
	Gender          models.Gender
	HalfBlood       bool
}

// ViaMarriage reports whether any hop of the relationship is a spouse link.
func (d Descriptor) ViaMarriage() bool { return d.Marriage != MarriageNone }

// Invert returns the descriptor of the same relationship seen from B, whose gender is given.
func (d Descriptor) Invert(gender models.Gender) Descriptor {
	quals := make([]models.Qualifier, len(d.Qualifiers))
	for i, q := range d.Qualifiers {
		quals[len(quals)-1-i] = q
	}

	return Descriptor{
		GenerationsUp:   d.GenerationsDown,
		GenerationsDown: d.GenerationsUp,
		Marriage:        d.Marriage.Invert(),
		Qualifiers:      quals,
		Gender:          gender,
		HalfBlood:       d.HalfBlood,
	}
}

// Label is the namer's verdict.
type Label struct {
	Type        models.RelationType
	Degree      int
	Removed     int
	Qualifier   models.Qualifier
	HalfBlood   bool
	DisplayName string
}

// Name maps a descriptor to a kinship label.
func Name(d Descriptor) (Label, error) { //nolint:gocyclo,cyclop // one branch per kinship shape.
	up, down := d.GenerationsUp, d.GenerationsDown
	if up < 0 || down < 0 {
		return Label{}, &models.InvalidRelationshipError{Reason: fmt.Sprintf("negative generation count (%d, %d)", up, down)}
	}

	if d.Marriage == MarriageSpouse {
		if up != 0 || down != 0 {
			return Label{}, &models.InvalidRelationshipError{Reason: "spouse link with a blood segment"}
		}

		return Label{Type: models.RelationSpouse, DisplayName: gendered(d.Gender, "husband", "wife", "spouse")}, nil
	}

	if up == 0 && down == 0 {
		return Label{}, &models.InvalidRelationshipError{Reason: "a person is not related to themselves"}
	}

	l, err := blood(up, down, d.Gender)
	if err != nil {
		return Label{}, err
	}

	l.Qualifier = firstQualifier(d.Qualifiers)

	if d.HalfBlood && l.Type == models.RelationSibling && l.Qualifier == models.QualifierNone {
		l.HalfBlood = true
		l.DisplayName = "half-" + l.DisplayName
	}

	switch d.Marriage {
	case MarriageAtA:
		// A married a blood relative of B; the spouse of B's ancestor is a step-ancestor.
		if up == 0 {
			l.Qualifier = models.QualifierStep
			l.DisplayName = "step-" + l.DisplayName

			return l, nil
		}

		l = inLaw(l)
	case MarriageAtB:
		// A is a blood relative of B's spouse; a spouse's own descendant is a step-descendant.
		if down == 0 {
			l.Qualifier = models.QualifierStep
			l.DisplayName = "step-" + l.DisplayName

			return l, nil
		}

		l = inLaw(l)
	case MarriageBoth:
		l = inLaw(l)
	case MarriageStep:
		// my parent's spouse's child is a step-sibling, my step-parent's sister a step-aunt.
		l.Qualifier = models.QualifierStep
		l.HalfBlood = false
		l.DisplayName = "step-" + l.DisplayName

		return l, nil
	case MarriageNone, MarriageSpouse:
	}

	l.DisplayName = applyQualifier(l, up, down)

	return l, nil
}

// blood names the consanguine relationship for the given shape.
func blood(up, down int, gender models.Gender) (Label, error) {
	switch {
	case up == 0:
		t := models.RelationParent
		if down > 1 {
			t = models.RelationAncestor
		}

		return Label{Type: t, Degree: down, DisplayName: lineal(down, gendered(gender, "father", "mother", "parent"))}, nil
	case down == 0:
		t := models.RelationChild
		if up > 1 {
			t = models.RelationDescendant
		}

		return Label{Type: t, Degree: up, DisplayName: lineal(up, gendered(gender, "son", "daughter", "child"))}, nil
	case up == 1 && down == 1:
		return Label{Type: models.RelationSibling, Degree: 1, DisplayName: gendered(gender, "brother", "sister", "sibling")}, nil
	case up == 1:
		gap := down - 1

		return Label{Type: models.RelationAuntUncle, Degree: gap, DisplayName: greats(gap-1) + gendered(gender, "uncle", "aunt", "aunt/uncle")}, nil
	case down == 1:
		gap := up - 1

		return Label{Type: models.RelationNibling, Degree: gap, DisplayName: greats(gap-1) + gendered(gender, "nephew", "niece", "niece/nephew")}, nil
	case up >= 2 && down >= 2:
		degree := min(up, down) - 1
		removed := up - down
		if removed < 0 {
			removed = -removed
		}

		name := Ordinal(degree) + " cousin"
		if removed > 0 {
			name += " " + RemovedPhrase(removed)
		}

		return Label{Type: models.RelationCousin, Degree: degree, Removed: removed, DisplayName: name}, nil
	}

	return Label{}, &models.InvalidRelationshipError{Reason: fmt.Sprintf("unreachable generation pair (%d, %d)", up, down)}
}

// lineal names a direct-line relative n generations away: parent, grandparent, great-grandparent...
func lineal(n int, word string) string {
	if n == 1 {
		return word
	}

	return greats(n-2) + "grand" + word
}

func greats(n int) string {
	if n <= 0 {
		return ""
	}

	return strings.Repeat("great-", n)
}

func gendered(g models.Gender, male, female, neutral string) string {
	switch g {
	case models.GenderMale:
		return male
	case models.GenderFemale:
		return female
	case models.GenderUnknown:
		return neutral
	}

	return neutral
}

// inLaw relabels a blood label as a relationship by marriage.
func inLaw(l Label) Label {
	l.Type = models.RelationInLaw
	l.DisplayName += "-in-law"

	return l
}

// firstQualifier returns the first non-biological qualifier of the chain.
func firstQualifier(chain []models.Qualifier) models.Qualifier {
	for _, q := range chain {
		if q != models.QualifierNone {
			return q
		}
	}

	return models.QualifierNone
}

// applyQualifier prefixes the label with its qualifier. A guardian link of a
// single generation has its own words.
func applyQualifier(l Label, up, down int) string {
	switch l.Qualifier {
	case models.QualifierNone:
		return l.DisplayName
	case models.QualifierGuardian:
		if l.Type == models.RelationParent && up == 0 && down == 1 {
			return "guardian"
		}

		if l.Type == models.RelationChild && up == 1 && down == 0 {
			return "ward"
		}

		return "guardian-" + l.DisplayName
	case models.QualifierStep:
		if strings.HasPrefix(l.DisplayName, "step-") {
			return l.DisplayName
		}

		return "step-" + l.DisplayName
	case models.QualifierAdoptive:
		return "adoptive " + l.DisplayName
	case models.QualifierFoster:
		return "foster " + l.DisplayName
	}

	return l.DisplayName
}

// Ordinal renders n with its English ordinal suffix: 1st, 2nd, 3rd, 4th, 11th, 21st...
func Ordinal(n int) string {
	suffix := "th"

	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}

	return strconv.Itoa(n) + suffix
}

var removedWords = []string{"", "once", "twice", "three times", "four times", "five times",
	"six times", "seven times", "eight times", "nine times", "ten times"}

// RemovedPhrase renders a cousin removal: "once removed", "twice removed", "12 times removed".
func RemovedPhrase(n int) string {
	if n > 0 && n < len(removedWords) {
		return removedWords[n] + " removed"
	}

	return strconv.Itoa(n) + " times removed"
}
