package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/persistorai/kinship/internal/models"
)

type buildOptions struct {
	version string
}

// BuildOption customizes Build.
type BuildOption func(*buildOptions)

// WithVersion sets the graph version token instead of deriving one from the records.
func WithVersion(version string) BuildOption {
	return func(o *buildOptions) { o.version = version }
}

type pairKey struct {
	a, b string
}

// unordered returns the key with its ids in ascending order.
func unordered(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}

	return pairKey{a, b}
}

// Build normalizes persons and stored relationships into a FamilyGraph. Every
// parent link is recorded on both people, so the parent/child pairing holds by
// construction. Unknown ids, self links, mutual parenthood and conflicting
// qualifiers for the same parent/child pair fail with a MalformedGraphError.
func Build(persons []models.PersonNode, relationships []models.StoredRelationship, opts ...BuildOption) (*FamilyGraph, error) { //nolint:gocognit,gocyclo,cyclop,funlen // one pass per record kind.
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	g := &FamilyGraph{nodes: make(map[string]*node, len(persons))}

	for i := range persons {
		p := persons[i]
		if err := p.Validate(); err != nil {
			return nil, &models.MalformedGraphError{Reason: fmt.Sprintf("person %d: %v", i, err)}
		}

		if _, dup := g.nodes[p.ID]; dup {
			return nil, &models.MalformedGraphError{Reason: fmt.Sprintf("duplicate person %q", p.ID)}
		}

		g.nodes[p.ID] = &node{person: p}
		g.ids = append(g.ids, p.ID)
	}

	sort.Strings(g.ids)

	// parentOf maps {parent, child} to the qualifier of that link.
	parentOf := make(map[pairKey]models.Qualifier)
	siblings := make(map[pairKey]struct{})
	spouses := make(map[pairKey]struct{})

	for i := range relationships {
		r := relationships[i]
		if err := r.Validate(); err != nil {
			return nil, &models.MalformedGraphError{Reason: fmt.Sprintf("relationship %d: %v", i, err)}
		}

		for _, id := range []string{r.PersonFromID, r.PersonToID} {
			if !g.Has(id) {
				return nil, &models.MalformedGraphError{
					Reason: fmt.Sprintf("relationship %d (%s) references unknown person %q", i, r.Type, id),
				}
			}
		}

		if r.PersonFromID == r.PersonToID {
			return nil, &models.MalformedGraphError{Reason: fmt.Sprintf("relationship %d (%s) links %q to itself", i, r.Type, r.PersonFromID)}
		}

		class, qualifier, err := r.Type.Normalize()
		if err != nil {
			return nil, &models.MalformedGraphError{Reason: fmt.Sprintf("relationship %d: %v", i, err)}
		}

		switch class {
		case models.EdgeChild, models.EdgeParent:
			parent, child := r.PersonFromID, r.PersonToID
			if class == models.EdgeParent {
				parent, child = child, parent
			}

			if _, mutual := parentOf[pairKey{child, parent}]; mutual {
				return nil, &models.MalformedGraphError{
					Reason: fmt.Sprintf("%q and %q are each recorded as the other's parent", parent, child),
				}
			}

			key := pairKey{parent, child}
			if existing, seen := parentOf[key]; seen {
				if existing != qualifier {
					return nil, &models.MalformedGraphError{
						Reason: fmt.Sprintf("conflicting types for parent %q of %q: %q vs %q", parent, child, qualifierName(existing), qualifierName(qualifier)),
					}
				}

				continue
			}

			parentOf[key] = qualifier
		case models.EdgeSibling:
			siblings[unordered(r.PersonFromID, r.PersonToID)] = struct{}{}
		case models.EdgeSpouse:
			spouses[unordered(r.PersonFromID, r.PersonToID)] = struct{}{}
		}
	}

	for k, q := range parentOf {
		g.nodes[k.b].parents = append(g.nodes[k.b].parents, Edge{To: k.a, Qualifier: q})
		g.nodes[k.a].children = append(g.nodes[k.a].children, Edge{To: k.b, Qualifier: q})
	}

	for k := range siblings {
		g.nodes[k.a].siblings = append(g.nodes[k.a].siblings, Edge{To: k.b})
		g.nodes[k.b].siblings = append(g.nodes[k.b].siblings, Edge{To: k.a})
	}

	for k := range spouses {
		g.nodes[k.a].spouses = append(g.nodes[k.a].spouses, Edge{To: k.b})
		g.nodes[k.b].spouses = append(g.nodes[k.b].spouses, Edge{To: k.a})
	}

	for _, n := range g.nodes {
		sortEdges(n.parents)
		sortEdges(n.children)
		sortEdges(n.siblings)
		sortEdges(n.spouses)
	}

	g.version = o.version
	if g.version == "" {
		g.version = contentVersion(g)
	}

	return g, nil
}

func qualifierName(q models.Qualifier) string {
	if q == models.QualifierNone {
		return "biological"
	}

	return q.String()
}

// contentVersion hashes the canonical form of the normalized graph, so equal
// relationship sets always share a version and any change produces a new one.
// Ids are length-prefixed; they may contain any byte.
func contentVersion(g *FamilyGraph) string {
	h := sha256.New()

	var b strings.Builder

	field := func(s string) {
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}

	for _, id := range g.ids {
		n := g.nodes[id]

		b.Reset()
		b.WriteByte('p')
		field(id)
		field(n.person.Gender.String())
		field(strconv.FormatBool(n.person.IsLiving))

		for _, e := range n.parents {
			b.WriteByte('c')
			field(e.To)
			field(strconv.Itoa(int(e.Qualifier)))
		}

		for _, e := range n.siblings {
			b.WriteByte('s')
			field(e.To)
		}

		for _, e := range n.spouses {
			b.WriteByte('m')
			field(e.To)
		}

		h.Write([]byte(b.String())) //nolint:errcheck // hash.Hash writes never fail.
	}

	sum := h.Sum(nil)

	return hex.EncodeToString(sum[:16])
}
