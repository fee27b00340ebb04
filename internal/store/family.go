package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/kinship/internal/dbpool"
	"github.com/persistorai/kinship/internal/models"
)

// FamilyStore reads family trees from the PostgreSQL read model.
type FamilyStore struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

// NewFamilyStore creates a FamilyStore over pool.
func NewFamilyStore(pool *dbpool.Pool, log *logrus.Logger) *FamilyStore {
	return &FamilyStore{pool: pool, log: log}
}

func parseTreeID(treeID string) (uuid.UUID, error) {
	id, err := uuid.Parse(treeID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tree ID format: %w", err)
	}

	return id, nil
}

// treeVersion scopes a row version to its tree so graph versions never
// collide across trees that share person ids.
func treeVersion(treeID uuid.UUID, version int64) string {
	return treeID.String() + "@" + strconv.FormatInt(version, 10)
}

// LoadTree reads every person and relationship of treeID in one consistent
// snapshot. The returned version changes whenever the tree's rows change.
func (s *FamilyStore) LoadTree(ctx context.Context, treeID string) (*models.TreeData, error) { //nolint:funlen // three queries in one snapshot.
	id, err := parseTreeID(treeID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // read-only, nothing to keep.

	var version int64
	if err := tx.QueryRow(ctx, `SELECT version FROM family_trees WHERE id = $1`, id).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrTreeNotFound, treeID)
		}

		return nil, fmt.Errorf("reading tree version: %w", err)
	}

	data := &models.TreeData{TreeID: id.String(), Version: treeVersion(id, version)}

	rows, err := tx.Query(ctx, `SELECT id, gender, is_living FROM family_persons WHERE tree_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying persons: %w", err)
	}

	for rows.Next() {
		var (
			p      models.PersonNode
			gender string
		)

		if err := rows.Scan(&p.ID, &gender, &p.IsLiving); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning person: %w", err)
		}

		p.Gender = models.ParseGender(gender)
		data.Persons = append(data.Persons, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating persons: %w", err)
	}

	rows, err = tx.Query(ctx, `SELECT person_from_id, person_to_id, type FROM family_relationships
		WHERE tree_id = $1 ORDER BY person_from_id, person_to_id, type`, id)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}

	for rows.Next() {
		var (
			r   models.StoredRelationship
			typ string
		)

		if err := rows.Scan(&r.PersonFromID, &r.PersonToID, &typ); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}

		r.Type, err = models.ParseRelationshipType(typ)
		if err != nil {
			rows.Close()
			return nil, &models.MalformedGraphError{Reason: fmt.Sprintf("relationship %s -> %s: %v", r.PersonFromID, r.PersonToID, err)}
		}

		data.Relationships = append(data.Relationships, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relationships: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"tree_id":       treeID,
		"version":       data.Version,
		"persons":       len(data.Persons),
		"relationships": len(data.Relationships),
	}).Debug("store.load_tree")

	return data, nil
}

// ImportTree replaces the contents of data.TreeID with data's records in one
// transaction, creating the tree when it does not exist. The change trigger
// bumps the tree version and notifies listeners on commit.
func (s *FamilyStore) ImportTree(ctx context.Context, data *models.TreeData, name string) error {
	id, err := parseTreeID(data.TreeID)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit.

	if _, err := tx.Exec(ctx, `INSERT INTO family_trees (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()`, id, name); err != nil {
		return fmt.Errorf("upserting tree: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM family_persons WHERE tree_id = $1`, id); err != nil {
		return fmt.Errorf("clearing tree: %w", err)
	}

	personRows := make([][]any, 0, len(data.Persons))
	for _, p := range data.Persons {
		personRows = append(personRows, []any{id, p.ID, p.Gender.String(), p.IsLiving})
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"family_persons"},
		[]string{"tree_id", "id", "gender", "is_living"}, pgx.CopyFromRows(personRows)); err != nil {
		return fmt.Errorf("copying persons: %w", err)
	}

	relRows := make([][]any, 0, len(data.Relationships))
	for _, r := range data.Relationships {
		relRows = append(relRows, []any{id, r.PersonFromID, r.PersonToID, r.Type.String()})
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"family_relationships"},
		[]string{"tree_id", "person_from_id", "person_to_id", "type"}, pgx.CopyFromRows(relRows)); err != nil {
		return fmt.Errorf("copying relationships: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"tree_id":       data.TreeID,
		"persons":       len(data.Persons),
		"relationships": len(data.Relationships),
	}).Info("tree imported")

	return nil
}
