package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // registers the "sqlite" driver.

	"github.com/persistorai/kinship/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS family_trees (
    id       TEXT PRIMARY KEY,
    name     TEXT NOT NULL DEFAULT '',
    version  INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS family_persons (
    tree_id    TEXT NOT NULL REFERENCES family_trees (id) ON DELETE CASCADE,
    id         TEXT NOT NULL,
    gender     TEXT NOT NULL DEFAULT 'unknown',
    is_living  INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (tree_id, id)
);
CREATE TABLE IF NOT EXISTS family_relationships (
    tree_id         TEXT NOT NULL REFERENCES family_trees (id) ON DELETE CASCADE,
    person_from_id  TEXT NOT NULL,
    person_to_id    TEXT NOT NULL,
    type            TEXT NOT NULL,
    PRIMARY KEY (tree_id, person_from_id, person_to_id, type)
);`

// SQLiteStore keeps family trees in a single SQLite file, for offline use
// where no PostgreSQL server is available. The layout mirrors the
// PostgreSQL read model without triggers; ImportTree bumps the version itself.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// OpenSQLite opens (or creates) the SQLite database at path and ensures the schema exists.
func OpenSQLite(ctx context.Context, path string, log *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close() //nolint:errcheck // already failing.
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, log: log}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadTree reads every person and relationship of treeID.
func (s *SQLiteStore) LoadTree(ctx context.Context, treeID string) (*models.TreeData, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // read-only, nothing to keep.

	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM family_trees WHERE id = ?`, treeID).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrTreeNotFound, treeID)
		}

		return nil, fmt.Errorf("reading tree version: %w", err)
	}

	data := &models.TreeData{TreeID: treeID, Version: treeID + "@" + strconv.FormatInt(version, 10)}

	if data.Persons, err = readPersons(ctx, tx, treeID); err != nil {
		return nil, err
	}

	if data.Relationships, err = readRelationships(ctx, tx, treeID); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"tree_id":       treeID,
		"version":       data.Version,
		"persons":       len(data.Persons),
		"relationships": len(data.Relationships),
	}).Debug("store.load_tree")

	return data, nil
}

func readPersons(ctx context.Context, tx *sql.Tx, treeID string) ([]models.PersonNode, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, gender, is_living FROM family_persons WHERE tree_id = ? ORDER BY id`, treeID)
	if err != nil {
		return nil, fmt.Errorf("querying persons: %w", err)
	}
	defer rows.Close()

	var persons []models.PersonNode

	for rows.Next() {
		var (
			p      models.PersonNode
			gender string
		)

		if err := rows.Scan(&p.ID, &gender, &p.IsLiving); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}

		p.Gender = models.ParseGender(gender)
		persons = append(persons, p)
	}

	return persons, rows.Err()
}

func readRelationships(ctx context.Context, tx *sql.Tx, treeID string) ([]models.StoredRelationship, error) {
	rows, err := tx.QueryContext(ctx, `SELECT person_from_id, person_to_id, type FROM family_relationships
		WHERE tree_id = ? ORDER BY person_from_id, person_to_id, type`, treeID)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	var rels []models.StoredRelationship

	for rows.Next() {
		var (
			r   models.StoredRelationship
			typ string
		)

		if err := rows.Scan(&r.PersonFromID, &r.PersonToID, &typ); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}

		r.Type, err = models.ParseRelationshipType(typ)
		if err != nil {
			return nil, &models.MalformedGraphError{Reason: fmt.Sprintf("relationship %s -> %s: %v", r.PersonFromID, r.PersonToID, err)}
		}

		rels = append(rels, r)
	}

	return rels, rows.Err()
}

// ImportTree replaces the contents of data.TreeID and bumps its version.
func (s *SQLiteStore) ImportTree(ctx context.Context, data *models.TreeData, name string) error {
	if data.TreeID == "" {
		return fmt.Errorf("tree ID is required")
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // no-op after commit.

	if _, err := tx.ExecContext(ctx, `INSERT INTO family_trees (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, version = version + 1`, data.TreeID, name); err != nil {
		return fmt.Errorf("upserting tree: %w", err)
	}

	for _, table := range []string{"family_relationships", "family_persons"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE tree_id = ?`, data.TreeID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, p := range data.Persons {
		if _, err := tx.ExecContext(ctx, `INSERT INTO family_persons (tree_id, id, gender, is_living) VALUES (?, ?, ?, ?)`,
			data.TreeID, p.ID, p.Gender.String(), p.IsLiving); err != nil {
			return fmt.Errorf("inserting person %s: %w", p.ID, err)
		}
	}

	for _, r := range data.Relationships {
		if _, err := tx.ExecContext(ctx, `INSERT INTO family_relationships (tree_id, person_from_id, person_to_id, type)
			VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
			data.TreeID, r.PersonFromID, r.PersonToID, r.Type.String()); err != nil {
			return fmt.Errorf("inserting relationship %s -> %s: %w", r.PersonFromID, r.PersonToID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"tree_id":       data.TreeID,
		"persons":       len(data.Persons),
		"relationships": len(data.Relationships),
	}).Info("tree imported")

	return nil
}
