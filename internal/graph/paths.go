package graph

import (
	"sort"
	"strings"

	"github.com/persistorai/kinship/internal/models"
)

// Path search safety limits.
const (
	DefaultPathMaxDepth      = 8     // max hops per path
	DefaultPathMaxResults    = 64    // max paths collected
	DefaultPathMaxExpansions = 50000 // max edges examined per search
	maxPathDepthLimit        = 16    // hard cap on hops per path
)

// PathLimits bounds FindAllPaths. Zero fields take the defaults.
type PathLimits struct {
	MaxDepth      int
	MaxResults    int
	MaxExpansions int
}

// DefaultPathLimits returns the default search bounds.
func DefaultPathLimits() PathLimits {
	return PathLimits{
		MaxDepth:      DefaultPathMaxDepth,
		MaxResults:    DefaultPathMaxResults,
		MaxExpansions: DefaultPathMaxExpansions,
	}
}

func (l PathLimits) normalized() PathLimits {
	d := DefaultPathLimits()

	if l.MaxDepth > 0 {
		d.MaxDepth = min(l.MaxDepth, maxPathDepthLimit)
	}

	if l.MaxResults > 0 {
		d.MaxResults = l.MaxResults
	}

	if l.MaxExpansions > 0 {
		d.MaxExpansions = l.MaxExpansions
	}

	return d
}

// PathFilter decides whether a partial path may be extended by next. It lets
// callers prune shapes they can never use before the search fans out.
type PathFilter func(prefix models.RelationshipPath, next models.PathEdge) bool

// FindAllPaths enumerates simple paths from a to b across every edge class,
// at most limits.MaxDepth hops long. Paths are ordered by spouse hops, then
// length, then the ids they visit.
//
// When the result or expansion budget runs out before the search space is
// covered, or a branch that could continue is cut at the depth limit, the
// paths found so far are returned together with a
// *models.PathSearchExhaustedError; they are an approximate answer.
func FindAllPaths(g *FamilyGraph, a, b string, limits PathLimits, filter PathFilter) ([]models.RelationshipPath, error) { //nolint:gocognit,cyclop // explicit-stack DFS.
	if err := g.Require(a, b); err != nil {
		return nil, err
	}

	if a == b {
		return nil, &models.InvalidRelationshipError{Reason: "path search from a person to themselves"}
	}

	limits = limits.normalized()

	type frame struct {
		id   string
		hops []models.PathEdge
		next int
	}

	var (
		found      []models.RelationshipPath
		expansions int
		exhausted  *models.PathSearchExhaustedError
		truncated  bool
	)

	stack := []frame{{id: a, hops: g.hops(a)}}
	onPath := map[string]bool{a: true}
	path := make(models.RelationshipPath, 0, limits.MaxDepth)

search:
	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.next >= len(top.hops) {
			delete(onPath, top.id)
			stack = stack[:len(stack)-1]

			if len(path) > 0 {
				path = path[:len(path)-1]
			}

			continue
		}

		e := top.hops[top.next]
		top.next++

		if onPath[e.ToID] {
			continue
		}

		if filter != nil && !filter(path, e) {
			continue
		}

		expansions++
		if expansions > limits.MaxExpansions {
			exhausted = &models.PathSearchExhaustedError{Limit: "expansion", PathsFound: len(found)}
			break search
		}

		if e.ToID == b {
			p := make(models.RelationshipPath, len(path)+1)
			copy(p, path)
			p[len(path)] = e
			found = append(found, p)

			if len(found) >= limits.MaxResults {
				exhausted = &models.PathSearchExhaustedError{Limit: "result", PathsFound: len(found)}
				break search
			}

			continue
		}

		if len(path)+1 >= limits.MaxDepth {
			if !truncated {
				truncated = g.extendable(path, e, onPath, filter)
			}

			continue
		}

		onPath[e.ToID] = true
		path = append(path, e)
		stack = append(stack, frame{id: e.ToID, hops: g.hops(e.ToID)})
	}

	SortPaths(found)

	if exhausted == nil && truncated {
		exhausted = &models.PathSearchExhaustedError{Limit: "depth", PathsFound: len(found)}
	}

	if exhausted != nil {
		return found, exhausted
	}

	return found, nil
}

// extendable reports whether the search could have continued past e had the
// depth limit allowed it.
func (g *FamilyGraph) extendable(path models.RelationshipPath, e models.PathEdge, onPath map[string]bool, filter PathFilter) bool {
	prefix := make(models.RelationshipPath, len(path)+1)
	copy(prefix, path)
	prefix[len(path)] = e

	for _, h := range g.hops(e.ToID) {
		if onPath[h.ToID] || h.ToID == e.ToID {
			continue
		}

		if filter == nil || filter(prefix, h) {
			return true
		}
	}

	return false
}

// SortPaths orders paths by spouse hops, then length, then visited ids.
func SortPaths(paths []models.RelationshipPath) {
	sort.SliceStable(paths, func(i, j int) bool {
		si, sj := paths[i].SpouseHops(), paths[j].SpouseHops()
		if si != sj {
			return si < sj
		}

		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}

		return pathKey(paths[i]) < pathKey(paths[j])
	})
}

func pathKey(p models.RelationshipPath) string {
	var b strings.Builder

	for _, e := range p {
		b.WriteString(e.ToID)
		b.WriteByte(0)
	}

	return b.String()
}
