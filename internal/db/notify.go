package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/kinship/internal/dbpool"
)

// validChannel matches safe PostgreSQL LISTEN channel names.
var validChannel = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	// ChangeChannel is notified by the family_tree_changed trigger.
	ChangeChannel = "family_changes"

	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffMultiplier = 2
)

// Invalidator drops whatever is cached for a tree.
type Invalidator interface {
	Invalidate(treeID string)
}

// ChangeListener subscribes to family_changes and invalidates the affected
// tree for each notification.
type ChangeListener struct {
	log         *logrus.Logger
	pool        *dbpool.Pool
	invalidator Invalidator
	onChange    func(treeID string)
}

// NewChangeListener creates a ChangeListener. onChange, when set, runs after
// each invalidation.
func NewChangeListener(log *logrus.Logger, pool *dbpool.Pool, invalidator Invalidator, onChange func(treeID string)) *ChangeListener {
	return &ChangeListener{
		log:         log,
		pool:        pool,
		invalidator: invalidator,
		onChange:    onChange,
	}
}

// Start verifies the database is reachable and launches the LISTEN loop in
// the background. The loop reconnects with backoff until ctx is cancelled.
func (l *ChangeListener) Start(ctx context.Context) error {
	if !validChannel.MatchString(ChangeChannel) {
		return fmt.Errorf("change listener: invalid channel name %q", ChangeChannel)
	}

	if err := l.pool.Ping(ctx); err != nil {
		return fmt.Errorf("change listener: database not reachable: %w", err)
	}

	go l.listen(ctx)

	return nil
}

func (l *ChangeListener) listen(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		err := l.subscribe(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		l.log.WithError(err).WithField("retry_in", backoff).
			Warn("change listener connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}
}

// subscribe holds one connection in LISTEN until it fails or ctx ends.
func (l *ChangeListener) subscribe(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	channel := pgx.Identifier{ChangeChannel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	l.log.WithField("channel", ChangeChannel).Info("change listener listening")

	for {
		// Wake periodically so a cancelled ctx is noticed on an idle connection.
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(2 * time.Minute)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("waiting for notification: %w", err)
		}

		l.handleNotification(notification)
	}
}

// handleNotification invalidates the tree named in the payload.
func (l *ChangeListener) handleNotification(n *pgconn.Notification) {
	var payload struct {
		TreeID string `json:"tree_id"`
		Table  string `json:"table,omitempty"`
		Op     string `json:"op,omitempty"`
	}

	if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil || payload.TreeID == "" {
		l.log.WithField("channel", n.Channel).Warn("dropping notification without tree_id")
		return
	}

	if _, err := uuid.Parse(payload.TreeID); err != nil {
		l.log.WithField("tree_id", payload.TreeID).Warn("dropping notification with invalid tree_id")
		return
	}

	l.log.WithFields(logrus.Fields{
		"tree_id": payload.TreeID,
		"table":   payload.Table,
		"op":      payload.Op,
		"pid":     n.PID,
	}).Debug("tree.changed")

	l.invalidator.Invalidate(payload.TreeID)

	if l.onChange != nil {
		l.onChange(payload.TreeID)
	}
}

// nextBackoff doubles the current backoff with ±25% jitter, capped at maxBackoff.
func nextBackoff(current time.Duration) time.Duration {
	next := current * backoffMultiplier
	if next > maxBackoff {
		next = maxBackoff
	}

	jitter := float64(next) * (0.75 + rand.Float64()*0.5) //nolint:gosec // jitter doesn't need crypto rand.

	return time.Duration(jitter)
}
