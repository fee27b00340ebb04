// Package store loads family trees from the external datastores the engine
// reads from: the PostgreSQL read model, a local SQLite file and YAML tree
// files.
//
// Stores only hand back flat records; building and validating the graph is
// the graph package's job.
package store

import (
	"context"
	"time"
)

const defaultQueryTimeout = 30 * time.Second

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}
