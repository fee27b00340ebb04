// Package graph builds the in-memory family graph and walks it.
//
// A FamilyGraph is immutable once Build returns, so any number of goroutines
// may traverse the same snapshot without locking.
package graph

import (
	"slices"
	"sort"

	"github.com/persistorai/kinship/internal/models"
)

// Edge is one adjacency entry: the neighbor and the qualifier carried by the stored relationship.
type Edge struct {
	To        string
	Qualifier models.Qualifier
}

type node struct {
	person   models.PersonNode
	parents  []Edge
	children []Edge
	siblings []Edge
	spouses  []Edge
}

// FamilyGraph is a read-only snapshot of persons and their normalized relationships.
type FamilyGraph struct {
	version string
	nodes   map[string]*node
	ids     []string
}

// Version returns the token identifying the relationship set this graph was built from.
func (g *FamilyGraph) Version() string { return g.version }

// Len returns the number of persons in the graph.
func (g *FamilyGraph) Len() int { return len(g.nodes) }

// Has reports whether id is a person in the graph.
func (g *FamilyGraph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// IDs returns all person ids in ascending order.
func (g *FamilyGraph) IDs() []string { return slices.Clone(g.ids) }

// Person returns the person record for id.
func (g *FamilyGraph) Person(id string) (models.PersonNode, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return models.PersonNode{}, false
	}

	return n.person, true
}

// Parents returns the parent edges of id, biological first.
func (g *FamilyGraph) Parents(id string) []Edge { return slices.Clone(g.adjacent(id, models.EdgeParent)) }

// Children returns the child edges of id, biological first.
func (g *FamilyGraph) Children(id string) []Edge { return slices.Clone(g.adjacent(id, models.EdgeChild)) }

// Siblings returns the explicitly stored sibling edges of id.
func (g *FamilyGraph) Siblings(id string) []Edge { return slices.Clone(g.adjacent(id, models.EdgeSibling)) }

// Spouses returns the spouse edges of id.
func (g *FamilyGraph) Spouses(id string) []Edge { return slices.Clone(g.adjacent(id, models.EdgeSpouse)) }

// Require returns a PersonNotFoundError for the first id absent from the graph.
func (g *FamilyGraph) Require(ids ...string) error {
	for _, id := range ids {
		if !g.Has(id) {
			return &models.PersonNotFoundError{ID: id}
		}
	}

	return nil
}

// adjacent returns the internal slice; callers must not modify it.
func (g *FamilyGraph) adjacent(id string, class models.EdgeClass) []Edge {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}

	switch class {
	case models.EdgeParent:
		return n.parents
	case models.EdgeChild:
		return n.children
	case models.EdgeSibling:
		return n.siblings
	case models.EdgeSpouse:
		return n.spouses
	}

	return nil
}

// hops lists every outgoing edge of id across all classes in a stable order.
func (g *FamilyGraph) hops(id string) []models.PathEdge {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}

	out := make([]models.PathEdge, 0, len(n.parents)+len(n.children)+len(n.siblings)+len(n.spouses))

	for _, class := range []models.EdgeClass{models.EdgeParent, models.EdgeChild, models.EdgeSibling, models.EdgeSpouse} {
		for _, e := range g.adjacent(id, class) {
			out = append(out, models.PathEdge{FromID: id, ToID: e.To, Class: class, Qualifier: e.Qualifier})
		}
	}

	return out
}

// sortEdges orders biological edges first, then by neighbor id.
func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if (edges[i].Qualifier == models.QualifierNone) != (edges[j].Qualifier == models.QualifierNone) {
			return edges[i].Qualifier == models.QualifierNone
		}

		return edges[i].To < edges[j].To
	})
}
