package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/persistorai/kinship/internal/graph"
	"github.com/persistorai/kinship/internal/metrics"
	"github.com/persistorai/kinship/internal/models"
)

// TreeLoader reads the records of one family tree from an external store.
type TreeLoader interface {
	LoadTree(ctx context.Context, treeID string) (*models.TreeData, error)
}

// TreeService keeps one built FamilyGraph per tree and rebuilds it after Invalidate.
type TreeService struct {
	loader TreeLoader
	log    *logrus.Logger

	mu       sync.RWMutex
	sessions map[string]*graph.FamilyGraph
	gens     map[string]uint64
	flight   singleflight.Group
}

// NewTreeService creates a TreeService backed by loader.
func NewTreeService(loader TreeLoader, log *logrus.Logger) *TreeService {
	return &TreeService{
		loader:   loader,
		log:      log,
		sessions: make(map[string]*graph.FamilyGraph),
		gens:     make(map[string]uint64),
	}
}

// Graph returns the current graph for treeID, loading and building it on first use.
// Concurrent callers for the same tree share one load.
func (s *TreeService) Graph(ctx context.Context, treeID string) (*graph.FamilyGraph, error) {
	s.mu.RLock()
	cached, ok := s.sessions[treeID]
	s.mu.RUnlock()

	if ok {
		return cached, nil
	}

	v, err, _ := s.flight.Do(treeID, func() (any, error) {
		return s.build(ctx, treeID)
	})
	if err != nil {
		return nil, err
	}

	g, ok := v.(*graph.FamilyGraph)
	if !ok {
		return nil, fmt.Errorf("unexpected tree session type %T", v)
	}

	return g, nil
}

func (s *TreeService) build(ctx context.Context, treeID string) (*graph.FamilyGraph, error) {
	s.mu.RLock()
	gen := s.gens[treeID]
	s.mu.RUnlock()

	data, err := s.loader.LoadTree(ctx, treeID)
	if err != nil {
		return nil, fmt.Errorf("loading tree %s: %w", treeID, err)
	}

	var opts []graph.BuildOption
	if data.Version != "" {
		opts = append(opts, graph.WithVersion(data.Version))
	}

	g, err := graph.Build(data.Persons, data.Relationships, opts...)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("malformed_graph").Inc()
		return nil, fmt.Errorf("building tree %s: %w", treeID, err)
	}

	metrics.GraphBuilds.Inc()
	metrics.GraphPersons.Set(float64(g.Len()))

	s.log.WithFields(logrus.Fields{
		"tree_id":       treeID,
		"graph_version": g.Version(),
		"persons":       g.Len(),
		"relationships": len(data.Relationships),
	}).Debug("tree.load")

	s.mu.Lock()
	// An Invalidate during the load makes this snapshot stale; hand it to
	// the waiting callers but do not keep it.
	if s.gens[treeID] == gen {
		s.sessions[treeID] = g
	}
	s.mu.Unlock()

	return g, nil
}

// Invalidate drops the cached graph for treeID so the next Graph call reloads it.
// Relationship cache entries keyed by the old version stop being hit and age out.
func (s *TreeService) Invalidate(treeID string) {
	s.mu.Lock()
	s.gens[treeID]++
	delete(s.sessions, treeID)
	s.mu.Unlock()

	s.flight.Forget(treeID)

	s.log.WithField("tree_id", treeID).Debug("tree.invalidate")
}

// Loaded returns the ids of trees with a built graph.
func (s *TreeService) Loaded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}

	return out
}
