package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/kinship/internal/graph"
)

// GraphSource hands out the current graph of a tree.
type GraphSource interface {
	Graph(ctx context.Context, treeID string) (*graph.FamilyGraph, error)
}

// WarmJob asks for the relationships of RootIDs to everyone in TreeID to be
// computed ahead of demand.
type WarmJob struct {
	TreeID  string
	RootIDs []string
}

// WarmWorker refills the relationship cache after a tree changes, one job at a time.
type WarmWorker struct {
	graphs    GraphSource
	relations *RelationshipService
	log       *logrus.Logger
	jobs      chan *WarmJob
}

// NewWarmWorker creates a WarmWorker with the given queue capacity.
func NewWarmWorker(graphs GraphSource, relations *RelationshipService, log *logrus.Logger, queueSize int) *WarmWorker {
	if queueSize <= 0 {
		queueSize = 64
	}

	return &WarmWorker{
		graphs:    graphs,
		relations: relations,
		log:       log,
		jobs:      make(chan *WarmJob, queueSize),
	}
}

// Enqueue adds a warm-up job. Non-blocking; drops the job if the queue is full.
func (w *WarmWorker) Enqueue(job *WarmJob) {
	select {
	case w.jobs <- job:
	default:
		w.log.WithField("tree_id", job.TreeID).Warn("warm.queue_full")
	}
}

// Run processes jobs until ctx is cancelled, then drains what is queued.
func (w *WarmWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case job := <-w.jobs:
			w.process(ctx, job)
		}
	}
}

func (w *WarmWorker) drain() {
	for {
		select {
		case job := <-w.jobs:
			w.process(context.Background(), job)
		default:
			return
		}
	}
}

func (w *WarmWorker) process(ctx context.Context, job *WarmJob) {
	g, err := w.graphs.Graph(ctx, job.TreeID)
	if err != nil {
		w.log.WithError(err).WithField("tree_id", job.TreeID).Warn("warm.load_failed")
		return
	}

	ids := g.IDs()
	warmed := 0

	for _, root := range job.RootIDs {
		if !g.Has(root) {
			w.log.WithFields(logrus.Fields{"tree_id": job.TreeID, "root": root}).Warn("warm.unknown_root")
			continue
		}

		out, err := w.relations.ComputeRelationshipsBatch(ctx, g, root, ids)
		if err != nil {
			w.log.WithError(err).WithFields(logrus.Fields{"tree_id": job.TreeID, "root": root}).Warn("warm.batch_failed")
			continue
		}

		warmed += len(out)
	}

	w.log.WithFields(logrus.Fields{
		"tree_id":       job.TreeID,
		"graph_version": g.Version(),
		"pairs":         warmed,
	}).Debug("warm.done")
}
