package service

import (
	"github.com/persistorai/kinship/internal/models"
	"github.com/persistorai/kinship/internal/naming"
)

// Marriage paths are read as [spouse] parent* sibling* child* [spouse], with
// two extensions:
//
//   - one spouse hop may sit inside the blood segment instead of at an end
//     (parent, spouse, child is a step-sibling). After it the path may keep
//     climbing only if nothing but parent hops came before it.
//   - a stored sibling link next to a child hop before it or a parent hop
//     after it shares that parent, so it adds no generations.
type phase int

const (
	phaseStart phase = iota
	phaseUp
	phaseSibling
	phaseDown
)

// shape is the result of reading a path left to right.
type shape struct {
	ups, downs int
	sibling    bool
	leading    bool
	middle     bool
	trailing   bool
	quals      []models.Qualifier
}

// readShape walks path and reports whether it is a nameable shape. Every
// prefix of a nameable path is itself nameable, so the same reading serves
// the search filter and the final description.
func readShape(path models.RelationshipPath) (shape, bool) { //nolint:gocyclo,cyclop // one branch per edge class.
	var (
		s  shape
		ph = phaseStart
	)

	for i, e := range path {
		var next models.EdgeClass

		hasNext := i+1 < len(path)
		if hasNext {
			next = path[i+1].Class
		}

		switch e.Class {
		case models.EdgeSpouse:
			switch {
			case i == 0:
				s.leading = true
			case path[i-1].Class == models.EdgeSpouse:
				return shape{}, false
			case !hasNext:
				if s.middle {
					return shape{}, false
				}

				s.trailing = true
			default:
				if s.leading || s.middle {
					return shape{}, false
				}

				if ph != phaseUp && next != models.EdgeChild {
					return shape{}, false
				}

				s.middle = true
			}

			continue
		case models.EdgeParent:
			if ph != phaseStart && ph != phaseUp {
				return shape{}, false
			}

			s.ups++
			ph = phaseUp
		case models.EdgeSibling:
			switch {
			case ph == phaseDown && path[i-1].Class == models.EdgeChild:
				// the parent just descended from.
			case hasNext && next == models.EdgeParent && (ph == phaseStart || ph == phaseUp):
				// the parent about to be climbed to.
			case ph == phaseStart || ph == phaseUp || ph == phaseSibling:
				s.sibling = true
				ph = phaseSibling
			default:
				return shape{}, false
			}

			continue
		case models.EdgeChild:
			s.downs++
			ph = phaseDown
		}

		s.quals = append(s.quals, e.Qualifier)
	}

	// A lone sibling link stands in for a shared parent one generation up.
	if s.sibling {
		s.ups++
		s.downs++
	}

	if s.ups == 0 && s.downs == 0 {
		// Only a single spouse hop is nameable without a blood segment.
		return s, len(path) == 1 && s.leading
	}

	return s, true
}

// nameablePrefix is a graph.PathFilter that keeps only prefixes of nameable shapes.
func nameablePrefix(prefix models.RelationshipPath, next models.PathEdge) bool {
	path := make(models.RelationshipPath, 0, len(prefix)+1)
	path = append(path, prefix...)
	path = append(path, next)

	_, ok := readShape(path)

	return ok
}

// describePath reads a complete path from A to B as a naming descriptor.
// ok is false when the path is not of a nameable shape.
func describePath(path models.RelationshipPath, gender models.Gender) (naming.Descriptor, bool) {
	if len(path) == 0 {
		return naming.Descriptor{}, false
	}

	if len(path) == 1 && path[0].Class == models.EdgeSpouse {
		return naming.Descriptor{Marriage: naming.MarriageSpouse, Gender: gender}, true
	}

	s, ok := readShape(path)
	if !ok {
		return naming.Descriptor{}, false
	}

	d := naming.Descriptor{
		GenerationsUp:   s.ups,
		GenerationsDown: s.downs,
		Qualifiers:      s.quals,
		Gender:          gender,
	}

	switch {
	case s.middle:
		d.Marriage = naming.MarriageStep
	case s.leading && s.trailing:
		d.Marriage = naming.MarriageBoth
	case s.leading:
		d.Marriage = naming.MarriageAtA
	case s.trailing:
		d.Marriage = naming.MarriageAtB
	}

	return d, true
}
