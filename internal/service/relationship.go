// Package service orchestrates relationship computation over family graph snapshots.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/kinship/internal/ancestry"
	"github.com/persistorai/kinship/internal/cache"
	"github.com/persistorai/kinship/internal/graph"
	"github.com/persistorai/kinship/internal/metrics"
	"github.com/persistorai/kinship/internal/models"
	"github.com/persistorai/kinship/internal/naming"
)

// DefaultMatrixMaxPersons caps ComputeRelationshipMatrix when Options leave it unset.
const DefaultMatrixMaxPersons = 200

// Options configures RelationshipService.
type Options struct {
	MaxDepth         int
	PathLimits       graph.PathLimits
	Convention       ancestry.Convention
	MatrixMaxPersons int
	Workers          int
}

// DefaultOptions returns the default orchestration settings.
func DefaultOptions() Options {
	return Options{
		MaxDepth:         graph.DefaultMaxDepth,
		PathLimits:       graph.DefaultPathLimits(),
		Convention:       ancestry.Civil,
		MatrixMaxPersons: DefaultMatrixMaxPersons,
		Workers:          runtime.GOMAXPROCS(0),
	}
}

// RelationshipService computes, names and caches relationships between people.
// The graph passed to each call is read-only, so one service may serve many
// goroutines and many graph versions at once.
type RelationshipService struct {
	cache *cache.RelationshipCache
	log   *logrus.Logger
	opts  Options
}

// NewRelationshipService creates a RelationshipService. A nil cache computes every request.
func NewRelationshipService(c *cache.RelationshipCache, log *logrus.Logger, opts Options) *RelationshipService {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = graph.DefaultMaxDepth
	}

	if opts.MatrixMaxPersons <= 0 {
		opts.MatrixMaxPersons = DefaultMatrixMaxPersons
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	return &RelationshipService{cache: c, log: log, opts: opts}
}

// ComputeRelationship returns what person a is to person b.
func (s *RelationshipService) ComputeRelationship(ctx context.Context, g *graph.FamilyGraph, a, b string) (*models.ComputedRelationship, error) {
	defer observe("single", time.Now())

	s.log.WithFields(logrus.Fields{
		"graph_version": g.Version(),
		"person_a":      a,
		"person_b":      b,
	}).Debug("relationship.compute")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.checkPair(g, a, b); err != nil {
		return nil, err
	}

	key, pair, err := s.relatePair(g, newLineageSet(g, s.opts.MaxDepth), a, b)
	if err != nil {
		return nil, err
	}

	return clone(pair.Oriented(key, a)), nil
}

// ComputeRelationshipsBatch relates rootID to each target, keyed by target id.
// The root's ancestry is walked once for the whole batch. The root itself and
// repeated targets are skipped.
func (s *RelationshipService) ComputeRelationshipsBatch(
	ctx context.Context,
	g *graph.FamilyGraph,
	rootID string,
	targetIDs []string,
) (map[string]*models.ComputedRelationship, error) {
	defer observe("batch", time.Now())

	s.log.WithFields(logrus.Fields{
		"graph_version": g.Version(),
		"root":          rootID,
		"targets":       len(targetIDs),
	}).Debug("relationship.batch")

	if err := g.Require(rootID); err != nil {
		countError(err)
		return nil, err
	}

	if err := g.Require(targetIDs...); err != nil {
		countError(err)
		return nil, err
	}

	lineages := newLineageSet(g, s.opts.MaxDepth)
	if _, err := lineages.get(rootID); err != nil {
		return nil, err
	}

	out := make(map[string]*models.ComputedRelationship, len(targetIDs))

	for _, target := range targetIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if target == rootID {
			continue
		}

		if _, done := out[target]; done {
			continue
		}

		key, pair, err := s.relatePair(g, lineages, rootID, target)
		if err != nil {
			return nil, fmt.Errorf("relating %q to %q: %w", rootID, target, err)
		}

		out[target] = clone(pair.Oriented(key, rootID))
	}

	return out, nil
}

// ComputeRelationshipMatrix relates every pair of the given people:
// result[a][b] is what a is to b. Duplicate ids are collapsed and the diagonal
// is omitted. More than Options.MatrixMaxPersons distinct ids fail with
// ErrMatrixTooLarge.
func (s *RelationshipService) ComputeRelationshipMatrix( //nolint:funlen // fan-out plus assembly.
	ctx context.Context,
	g *graph.FamilyGraph,
	personIDs []string,
) (map[string]map[string]*models.ComputedRelationship, error) {
	defer observe("matrix", time.Now())

	ids := dedupe(personIDs)

	s.log.WithFields(logrus.Fields{
		"graph_version": g.Version(),
		"persons":       len(ids),
	}).Debug("relationship.matrix")

	if len(ids) > s.opts.MatrixMaxPersons {
		metrics.ErrorsTotal.WithLabelValues("matrix_too_large").Inc()
		return nil, fmt.Errorf("%w: %d persons requested, limit is %d", models.ErrMatrixTooLarge, len(ids), s.opts.MatrixMaxPersons)
	}

	if err := g.Require(ids...); err != nil {
		countError(err)
		return nil, err
	}

	lineages := newLineageSet(g, s.opts.MaxDepth)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.opts.Workers)

	for _, id := range ids {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			_, err := lineages.get(id)

			return err
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("walking ancestries: %w", err)
	}

	// rows[i][j] (j > i) holds the pair of ids[i] and ids[j].
	rows := make([][]cache.Pair, len(ids))
	keys := make([][]cache.Key, len(ids))

	eg, egCtx = errgroup.WithContext(ctx)
	eg.SetLimit(s.opts.Workers)

	for i := range ids {
		rows[i] = make([]cache.Pair, len(ids))
		keys[i] = make([]cache.Key, len(ids))

		eg.Go(func() error {
			for j := i + 1; j < len(ids); j++ {
				if err := egCtx.Err(); err != nil {
					return err
				}

				key, pair, err := s.relatePair(g, lineages, ids[i], ids[j])
				if err != nil {
					return fmt.Errorf("relating %q to %q: %w", ids[i], ids[j], err)
				}

				rows[i][j], keys[i][j] = pair, key
			}

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]map[string]*models.ComputedRelationship, len(ids))
	for _, id := range ids {
		out[id] = make(map[string]*models.ComputedRelationship, len(ids)-1)
	}

	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			out[a][b] = clone(rows[i][j].Oriented(keys[i][j], a))
			out[b][a] = clone(rows[i][j].Oriented(keys[i][j], b))
		}
	}

	return out, nil
}

// CommonAncestors lists the shared ancestors of a and b, nearest first under
// the configured convention.
func (s *RelationshipService) CommonAncestors(ctx context.Context, g *graph.FamilyGraph, a, b string) ([]models.CommonAncestor, error) {
	defer observe("common_ancestors", time.Now())

	s.log.WithFields(logrus.Fields{
		"graph_version": g.Version(),
		"person_a":      a,
		"person_b":      b,
	}).Debug("relationship.common_ancestors")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.checkPair(g, a, b); err != nil {
		return nil, err
	}

	list, err := ancestry.FindCommonAncestors(g, a, b, s.opts.MaxDepth)
	if err != nil {
		return nil, err
	}

	ancestry.Sort(list, s.opts.Convention)

	return list, nil
}

func (s *RelationshipService) checkPair(g *graph.FamilyGraph, a, b string) error {
	if err := g.Require(a, b); err != nil {
		countError(err)
		return err
	}

	if a == b {
		err := &models.InvalidRelationshipError{Reason: fmt.Sprintf("%q compared with themselves", a)}
		countError(err)

		return err
	}

	return nil
}

// relatePair returns both directions of the a/b relationship, from the cache when possible.
func (s *RelationshipService) relatePair(g *graph.FamilyGraph, lineages *lineageSet, a, b string) (cache.Key, cache.Pair, error) {
	key := cache.NewKey(g.Version(), a, b)

	compute := func() (cache.Pair, error) {
		return s.computePair(g, lineages, key.Low, key.High)
	}

	if s.cache == nil {
		pair, err := compute()
		return key, pair, err
	}

	pair, err := s.cache.GetOrCompute(key, compute)

	return key, pair, err
}

// computePair runs the resolver and, failing a shared ancestor, the bounded
// marriage-path search. low and high are the key's ordered ids.
func (s *RelationshipService) computePair(g *graph.FamilyGraph, lineages *lineageSet, low, high string) (cache.Pair, error) {
	la, err := lineages.get(low)
	if err != nil {
		return cache.Pair{}, err
	}

	lb, err := lineages.get(high)
	if err != nil {
		return cache.Pair{}, err
	}

	if common := ancestry.Intersect(la, lb); len(common) > 0 {
		return s.bloodPair(g, la, lb, common)
	}

	return s.marriagePair(g, low, high)
}

func (s *RelationshipService) bloodPair(g *graph.FamilyGraph, la, lb *graph.Lineage, common []models.CommonAncestor) (cache.Pair, error) {
	low, high := la.Root, lb.Root

	mrcas := ancestry.GetAllMRCAs(common, s.opts.Convention)
	nearest := mrcas[0]
	da, db := nearest.DistanceFromA, nearest.DistanceFromB

	shared := 0
	for _, m := range mrcas {
		if m.DistanceFromA == da && m.DistanceFromB == db {
			shared++
		}
	}

	up := la.PathTo(nearest.AncestorID)
	down := lb.PathTo(nearest.AncestorID).Reverse()
	path := append(slices.Clone(up), down...)

	quals := make([]models.Qualifier, 0, len(path))
	for _, e := range path {
		quals = append(quals, e.Qualifier)
	}

	half := da == 1 && db == 1 && shared == 1 &&
		(len(g.Parents(low)) > 1 || len(g.Parents(high)) > 1)

	fwd := naming.Descriptor{
		GenerationsUp:   da,
		GenerationsDown: db,
		Qualifiers:      quals,
		Gender:          gender(g, low),
		HalfBlood:       half,
	}

	pair, err := s.namePair(g, fwd, path, low, high)
	if err != nil {
		return cache.Pair{}, err
	}

	degree := s.opts.Convention.Degree(da, db)
	pair.Forward.Consanguinity = degree
	pair.Reverse.Consanguinity = degree
	pair.Forward.CommonAncestors = mrcas
	pair.Reverse.CommonAncestors = swapDistances(mrcas)

	return pair, nil
}

func (s *RelationshipService) marriagePair(g *graph.FamilyGraph, low, high string) (cache.Pair, error) {
	paths, err := graph.FindAllPaths(g, low, high, s.opts.PathLimits, nameablePrefix)

	approximate := false
	if err != nil {
		if !errors.Is(err, models.ErrPathSearchExhausted) {
			return cache.Pair{}, err
		}

		approximate = true
		metrics.PathSearchExhausted.Inc()
		s.log.WithError(err).WithFields(logrus.Fields{
			"graph_version": g.Version(),
			"person_a":      low,
			"person_b":      high,
			"paths":         len(paths),
		}).Warn("relationship.path_search_exhausted")
	}

	for _, p := range paths {
		fwd, ok := describePath(p, gender(g, low))
		if !ok {
			continue
		}

		pair, err := s.namePair(g, fwd, p, low, high)
		if err != nil {
			return cache.Pair{}, err
		}

		if !fwd.ViaMarriage() {
			degree := s.opts.Convention.Degree(fwd.GenerationsUp, fwd.GenerationsDown)
			pair.Forward.Consanguinity = degree
			pair.Reverse.Consanguinity = degree
		}

		pair.Forward.Approximate = approximate
		pair.Reverse.Approximate = approximate

		return pair, nil
	}

	return cache.Pair{
		Forward: unrelated(g, low, high, approximate),
		Reverse: unrelated(g, high, low, approximate),
	}, nil
}

// namePair names fwd (low to high) and its inverse.
func (s *RelationshipService) namePair(g *graph.FamilyGraph, fwd naming.Descriptor, path models.RelationshipPath, low, high string) (cache.Pair, error) {
	rev := fwd.Invert(gender(g, high))

	fl, err := naming.Name(fwd)
	if err != nil {
		countError(err)
		return cache.Pair{}, fmt.Errorf("naming %q to %q: %w", low, high, err)
	}

	rl, err := naming.Name(rev)
	if err != nil {
		countError(err)
		return cache.Pair{}, fmt.Errorf("naming %q to %q: %w", high, low, err)
	}

	return cache.Pair{
		Forward: fromLabel(g, low, high, fl, fwd.ViaMarriage(), path),
		Reverse: fromLabel(g, high, low, rl, rev.ViaMarriage(), path.Reverse()),
	}, nil
}

func fromLabel(g *graph.FamilyGraph, a, b string, l naming.Label, viaMarriage bool, path models.RelationshipPath) *models.ComputedRelationship {
	return &models.ComputedRelationship{
		PersonAID:    a,
		PersonBID:    b,
		RelationType: l.Type,
		Degree:       l.Degree,
		Removed:      l.Removed,
		ViaMarriage:  viaMarriage,
		HalfBlood:    l.HalfBlood,
		Qualifier:    l.Qualifier,
		DisplayName:  l.DisplayName,
		ShortestPath: path,
		GraphVersion: g.Version(),
	}
}

func unrelated(g *graph.FamilyGraph, a, b string, approximate bool) *models.ComputedRelationship {
	return &models.ComputedRelationship{
		PersonAID:    a,
		PersonBID:    b,
		RelationType: models.RelationUnrelated,
		DisplayName:  models.RelationUnrelated.String(),
		Approximate:  approximate,
		GraphVersion: g.Version(),
	}
}

func gender(g *graph.FamilyGraph, id string) models.Gender {
	p, _ := g.Person(id)
	return p.Gender
}

func swapDistances(list []models.CommonAncestor) []models.CommonAncestor {
	out := make([]models.CommonAncestor, len(list))
	for i, ca := range list {
		out[i] = models.CommonAncestor{AncestorID: ca.AncestorID, DistanceFromA: ca.DistanceFromB, DistanceFromB: ca.DistanceFromA}
	}

	return out
}

// clone copies a cached relationship so callers cannot mutate the cache.
func clone(r *models.ComputedRelationship) *models.ComputedRelationship {
	if r == nil {
		return nil
	}

	out := *r
	out.ShortestPath = slices.Clone(r.ShortestPath)
	out.CommonAncestors = slices.Clone(r.CommonAncestors)

	return &out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	return out
}

func observe(operation string, start time.Time) {
	metrics.ComputeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func countError(err error) {
	switch {
	case errors.Is(err, models.ErrPersonNotFound):
		metrics.ErrorsTotal.WithLabelValues("person_not_found").Inc()
	case errors.Is(err, models.ErrInvalidRelationship):
		metrics.ErrorsTotal.WithLabelValues("invalid_relationship").Inc()
	case errors.Is(err, models.ErrMalformedGraph):
		metrics.ErrorsTotal.WithLabelValues("malformed_graph").Inc()
	default:
		metrics.ErrorsTotal.WithLabelValues("other").Inc()
	}
}

// lineageSet memoizes ancestor walks per root for the duration of one call,
// so batch and matrix requests walk each person's ancestry once.
type lineageSet struct {
	g        *graph.FamilyGraph
	maxDepth int

	mu sync.Mutex
	m  map[string]*graph.Lineage
}

func newLineageSet(g *graph.FamilyGraph, maxDepth int) *lineageSet {
	return &lineageSet{g: g, maxDepth: maxDepth, m: make(map[string]*graph.Lineage)}
}

func (ls *lineageSet) get(id string) (*graph.Lineage, error) {
	ls.mu.Lock()
	l, ok := ls.m[id]
	ls.mu.Unlock()

	if ok {
		return l, nil
	}

	l, err := graph.Ancestors(ls.g, id, ls.maxDepth)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	ls.m[id] = l
	ls.mu.Unlock()

	return l, nil
}
