// Package ancestry resolves the common ancestors of two people and measures
// how closely they are related.
package ancestry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/persistorai/kinship/internal/graph"
	"github.com/persistorai/kinship/internal/models"
)

// Convention selects how the degree of consanguinity is counted and which
// common ancestor counts as nearest.
type Convention int

// Degree conventions.
const (
	// Civil counts both branches: degree = distanceFromA + distanceFromB.
	Civil Convention = iota
	// Canonical counts the longer branch: degree = max(distanceFromA, distanceFromB).
	Canonical
)

// String returns the lowercase convention name.
func (c Convention) String() string {
	switch c {
	case Civil:
		return "civil"
	case Canonical:
		return "canonical"
	}

	return fmt.Sprintf("convention(%d)", int(c))
}

// ParseConvention parses "civil" or "canonical".
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "civil":
		return Civil, nil
	case "canonical", "canon":
		return Canonical, nil
	}

	return Civil, fmt.Errorf("unknown degree convention %q (want civil or canonical)", s)
}

// Degree counts the degree of consanguinity under the convention.
func (c Convention) Degree(distanceFromA, distanceFromB int) int {
	if c == Canonical {
		return CanonicalDegree(distanceFromA, distanceFromB)
	}

	return CivilDegree(distanceFromA, distanceFromB)
}

// CanonicalDegree is the canon-law degree: the longer of the two branches.
func CanonicalDegree(distanceFromA, distanceFromB int) int {
	return max(distanceFromA, distanceFromB)
}

// CivilDegree is the civil-law degree: the sum of both branches.
func CivilDegree(distanceFromA, distanceFromB int) int {
	return distanceFromA + distanceFromB
}

// CalculateConsanguinity returns the canonical degree of consanguinity.
func CalculateConsanguinity(distanceFromA, distanceFromB int) int {
	return CanonicalDegree(distanceFromA, distanceFromB)
}

// FindCommonAncestors returns every person in the ancestry of both a and b
// within maxDepth generations. Either person counts as their own ancestor at
// distance 0, so a direct line yields the elder of the two. No shared
// ancestor is an empty result, not an error.
func FindCommonAncestors(g *graph.FamilyGraph, a, b string, maxDepth int) ([]models.CommonAncestor, error) {
	la, err := graph.Ancestors(g, a, maxDepth)
	if err != nil {
		return nil, err
	}

	lb, err := graph.Ancestors(g, b, maxDepth)
	if err != nil {
		return nil, err
	}

	return Intersect(la, lb), nil
}

// Intersect joins two ancestor walks into their common ancestors, ordered by
// combined distance, then longer branch, then id.
func Intersect(la, lb *graph.Lineage) []models.CommonAncestor {
	var out []models.CommonAncestor

	visit := func(id string) {
		da, okA := la.DistanceTo(id)
		db, okB := lb.DistanceTo(id)

		if okA && okB {
			out = append(out, models.CommonAncestor{AncestorID: id, DistanceFromA: da, DistanceFromB: db})
		}
	}

	visit(la.Root)

	if lb.Root != la.Root {
		visit(lb.Root)
	}

	// Iterate the smaller map.
	small, other := la, lb
	if len(lb.Distance) < len(la.Distance) {
		small, other = lb, la
	}

	for id := range small.Distance {
		if id == other.Root {
			continue
		}

		if _, ok := other.Distance[id]; ok {
			visit(id)
		}
	}

	Sort(out, Civil)

	return out
}

// GetMRCA returns the most recent common ancestor under the convention.
// Civil minimizes the combined distance and breaks ties on the longer branch;
// canonical does the reverse. Remaining ties go to the lowest id.
func GetMRCA(ancestors []models.CommonAncestor, c Convention) (models.CommonAncestor, bool) {
	all := GetAllMRCAs(ancestors, c)
	if len(all) == 0 {
		return models.CommonAncestor{}, false
	}

	return all[0], true
}

// GetAllMRCAs returns every common ancestor tied for nearest under the
// convention, e.g. both parents shared by full siblings.
func GetAllMRCAs(ancestors []models.CommonAncestor, c Convention) []models.CommonAncestor {
	if len(ancestors) == 0 {
		return nil
	}

	sorted := make([]models.CommonAncestor, len(ancestors))
	copy(sorted, ancestors)
	Sort(sorted, c)

	best := rank(sorted[0], c)
	n := 1

	for n < len(sorted) && rank(sorted[n], c) == best {
		n++
	}

	return sorted[:n]
}

// rank is the ordering key of an ancestor under the convention.
func rank(a models.CommonAncestor, c Convention) [2]int {
	sum := CivilDegree(a.DistanceFromA, a.DistanceFromB)
	longer := CanonicalDegree(a.DistanceFromA, a.DistanceFromB)

	if c == Canonical {
		return [2]int{longer, sum}
	}

	return [2]int{sum, longer}
}

// Sort orders common ancestors nearest first under the convention, then by id.
func Sort(list []models.CommonAncestor, c Convention) {
	sort.Slice(list, func(i, j int) bool {
		ri, rj := rank(list[i], c), rank(list[j], c)
		if ri != rj {
			if ri[0] != rj[0] {
				return ri[0] < rj[0]
			}

			return ri[1] < rj[1]
		}

		return list[i].AncestorID < list[j].AncestorID
	})
}
