package store_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/kinship/internal/db"
	"github.com/persistorai/kinship/internal/dbpool"
	"github.com/persistorai/kinship/internal/models"
	"github.com/persistorai/kinship/internal/store"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL, dbpool.Options{})
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if err := db.RunMigrations(ctx, pool, log, nil); err != nil {
		t.Fatalf("migrating test DB: %v", err)
	}

	sharedEnv = &testEnv{pool: pool, log: log}

	return sharedEnv
}

// setupTree imports data under a fresh tree id, removed after the test.
func setupTree(t *testing.T, fs *store.FamilyStore, env *testEnv, data *models.TreeData) string {
	t.Helper()

	data.TreeID = uuid.New().String()
	if err := fs.ImportTree(context.Background(), data, "test"); err != nil {
		t.Fatalf("importing tree: %v", err)
	}

	t.Cleanup(func() {
		env.pool.Exec(context.Background(), "DELETE FROM family_trees WHERE id = $1", data.TreeID) //nolint:errcheck // best-effort cleanup
	})

	return data.TreeID
}

func TestFamilyStore_LoadTree(t *testing.T) {
	env := getTestEnv(t)
	fs := store.NewFamilyStore(env.pool, env.log)
	ctx := context.Background()

	treeID := setupTree(t, fs, env, &models.TreeData{
		Persons: []models.PersonNode{
			{ID: "john", Gender: models.GenderMale},
			{ID: "mary", Gender: models.GenderFemale, IsLiving: true},
			{ID: "ann"},
		},
		Relationships: []models.StoredRelationship{
			{PersonFromID: "john", PersonToID: "mary", Type: models.RelSpouse},
			{PersonFromID: "john", PersonToID: "ann", Type: models.RelParent},
			{PersonFromID: "mary", PersonToID: "ann", Type: models.RelStepParent},
		},
	})

	data, err := fs.LoadTree(ctx, treeID)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}

	if len(data.Persons) != 3 || len(data.Relationships) != 3 {
		t.Fatalf("loaded %+v", data)
	}
	if data.Persons[0].ID != "ann" || data.Persons[0].Gender != models.GenderUnknown {
		t.Errorf("first person = %+v", data.Persons[0])
	}
	if data.Version == "" {
		t.Error("empty version")
	}

	// Any write bumps the version.
	if _, err := env.pool.Exec(ctx,
		"INSERT INTO family_persons (tree_id, id, gender) VALUES ($1, 'zoe', 'female')", treeID); err != nil {
		t.Fatalf("inserting person: %v", err)
	}

	again, err := fs.LoadTree(ctx, treeID)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if again.Version == data.Version {
		t.Errorf("version %q unchanged after insert", again.Version)
	}
	if len(again.Persons) != 4 {
		t.Errorf("persons = %d, want 4", len(again.Persons))
	}
}

func TestFamilyStore_LoadTreeErrors(t *testing.T) {
	env := getTestEnv(t)
	fs := store.NewFamilyStore(env.pool, env.log)

	if _, err := fs.LoadTree(context.Background(), uuid.New().String()); !errors.Is(err, models.ErrTreeNotFound) {
		t.Errorf("missing tree: err = %v, want ErrTreeNotFound", err)
	}
	if _, err := fs.LoadTree(context.Background(), "smith"); err == nil {
		t.Error("expected error for a non-UUID tree id")
	}
}

func TestFamilyStore_ImportReplaces(t *testing.T) {
	env := getTestEnv(t)
	fs := store.NewFamilyStore(env.pool, env.log)
	ctx := context.Background()

	data := &models.TreeData{Persons: []models.PersonNode{{ID: "a"}, {ID: "b"}}}
	treeID := setupTree(t, fs, env, data)

	data.Persons = []models.PersonNode{{ID: "c"}}
	if err := fs.ImportTree(ctx, data, "test"); err != nil {
		t.Fatalf("reimport: %v", err)
	}

	got, err := fs.LoadTree(ctx, treeID)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if len(got.Persons) != 1 || got.Persons[0].ID != "c" {
		t.Errorf("persons = %+v, want [c]", got.Persons)
	}
}
