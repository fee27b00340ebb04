package graph

import (
	"sort"

	"github.com/persistorai/kinship/internal/models"
)

// Traversal safety limits.
const (
	DefaultMaxDepth = 24 // default generations walked by Ancestors/Descendants
	MaxDepthLimit   = 64 // hard cap regardless of what the caller asks for
)

// link records that a person was reached from prev over an edge carrying qualifier.
type link struct {
	prev      string
	qualifier models.Qualifier
}

// Lineage is the result of a breadth-first ancestry or descent walk from Root.
// Distance holds the minimal generation distance of every reached person; the
// root itself is not included.
type Lineage struct {
	Root      string
	Class     models.EdgeClass
	Distance  map[string]int
	Truncated bool

	via map[string][]link
}

// Alternates returns how many distinct minimal-distance predecessors reached id.
// A value above one means several equally short lines lead there.
func (l *Lineage) Alternates(id string) int {
	return len(l.via[id])
}

// DistanceTo returns the distance from the root to id, treating the root as 0.
func (l *Lineage) DistanceTo(id string) (int, bool) {
	if id == l.Root {
		return 0, true
	}

	d, ok := l.Distance[id]

	return d, ok
}

// PathTo reconstructs one minimal path from the root to target, preferring
// biological links and then lower ids at every step. It returns nil when
// target was not reached and an empty path when target is the root.
func (l *Lineage) PathTo(target string) models.RelationshipPath {
	if target == l.Root {
		return models.RelationshipPath{}
	}

	if _, ok := l.Distance[target]; !ok {
		return nil
	}

	trail := make(models.RelationshipPath, 0, l.Distance[target])

	for current := target; current != l.Root; {
		links := l.via[current]
		if len(links) == 0 {
			return nil
		}

		best := links[0]
		trail = append(trail, models.PathEdge{FromID: best.prev, ToID: current, Class: l.Class, Qualifier: best.qualifier})
		current = best.prev
	}

	// Reverse trail to get root -> target order.
	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}

	return trail
}

// Ancestors walks parent edges breadth-first from id up to maxDepth generations.
func Ancestors(g *FamilyGraph, id string, maxDepth int) (*Lineage, error) {
	return walk(g, id, maxDepth, models.EdgeParent)
}

// Descendants walks child edges breadth-first from id up to maxDepth generations.
func Descendants(g *FamilyGraph, id string, maxDepth int) (*Lineage, error) {
	return walk(g, id, maxDepth, models.EdgeChild)
}

// AncestorsWithDistance maps every ancestor of id to its minimal generation distance.
func AncestorsWithDistance(g *FamilyGraph, id string, maxDepth int) (map[string]int, error) {
	l, err := Ancestors(g, id, maxDepth)
	if err != nil {
		return nil, err
	}

	return l.Distance, nil
}

// DescendantsWithDistance maps every descendant of id to its minimal generation distance.
func DescendantsWithDistance(g *FamilyGraph, id string, maxDepth int) (map[string]int, error) {
	l, err := Descendants(g, id, maxDepth)
	if err != nil {
		return nil, err
	}

	return l.Distance, nil
}

// GetPathToAncestor returns one minimal path from personID up to ancestorID,
// or nil if ancestorID is not an ancestor within maxDepth generations.
func GetPathToAncestor(g *FamilyGraph, personID, ancestorID string, maxDepth int) (models.RelationshipPath, error) {
	if err := g.Require(ancestorID); err != nil {
		return nil, err
	}

	l, err := Ancestors(g, personID, maxDepth)
	if err != nil {
		return nil, err
	}

	return l.PathTo(ancestorID), nil
}

// GetPathToDescendant returns one minimal path from personID down to descendantID,
// or nil if descendantID is not a descendant within maxDepth generations.
func GetPathToDescendant(g *FamilyGraph, personID, descendantID string, maxDepth int) (models.RelationshipPath, error) {
	if err := g.Require(descendantID); err != nil {
		return nil, err
	}

	l, err := Descendants(g, personID, maxDepth)
	if err != nil {
		return nil, err
	}

	return l.PathTo(descendantID), nil
}

// ClampDepth applies the default and the hard cap to a requested depth.
func ClampDepth(maxDepth int) int {
	if maxDepth <= 0 {
		return DefaultMaxDepth
	}

	if maxDepth > MaxDepthLimit {
		return MaxDepthLimit
	}

	return maxDepth
}

// walk is an iterative BFS with a global visited set, so cycles in the stored
// data (pedigree collapse, bad records) cannot make it loop.
func walk(g *FamilyGraph, root string, maxDepth int, class models.EdgeClass) (*Lineage, error) {
	if err := g.Require(root); err != nil {
		return nil, err
	}

	maxDepth = ClampDepth(maxDepth)

	l := &Lineage{
		Root:     root,
		Class:    class,
		Distance: make(map[string]int),
		via:      make(map[string][]link),
	}

	frontier := []string{root}

	for depth := 1; len(frontier) > 0; depth++ {
		if depth > maxDepth {
			for _, id := range frontier {
				if len(g.adjacent(id, class)) > 0 {
					l.Truncated = true
					break
				}
			}

			break
		}

		var next []string

		for _, id := range frontier {
			for _, e := range g.adjacent(id, class) {
				if e.To == root {
					continue
				}

				d, seen := l.Distance[e.To]
				switch {
				case !seen:
					l.Distance[e.To] = depth
					l.via[e.To] = []link{{prev: id, qualifier: e.Qualifier}}
					next = append(next, e.To)
				case d == depth:
					l.via[e.To] = append(l.via[e.To], link{prev: id, qualifier: e.Qualifier})
				}
			}
		}

		sort.Strings(next)
		frontier = next
	}

	for _, links := range l.via {
		if len(links) > 1 {
			sortLinks(links)
		}
	}

	return l, nil
}

// sortLinks orders biological links first, then by predecessor id.
func sortLinks(links []link) {
	sort.Slice(links, func(i, j int) bool {
		if (links[i].qualifier == models.QualifierNone) != (links[j].qualifier == models.QualifierNone) {
			return links[i].qualifier == models.QualifierNone
		}

		return links[i].prev < links[j].prev
	})
}
