package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/persistorai/kinship/internal/models"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "trees.db"), testLogger())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	data, err := DecodeTree(strings.NewReader(smithYAML))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if err := s.ImportTree(ctx, data, "Smith family"); err != nil {
		t.Fatalf("ImportTree: %v", err)
	}

	got, err := s.LoadTree(ctx, "smith")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}

	if got.Version != "smith@1" {
		t.Errorf("version = %q, want smith@1", got.Version)
	}
	if len(got.Persons) != 3 || len(got.Relationships) != 3 {
		t.Fatalf("loaded %d persons, %d relationships", len(got.Persons), len(got.Relationships))
	}

	// Persons come back ordered by id.
	if got.Persons[0].ID != "ann" || got.Persons[1].ID != "john" {
		t.Errorf("persons order = %v, %v", got.Persons[0].ID, got.Persons[1].ID)
	}
	if got.Persons[1].Gender != models.GenderMale || got.Persons[1].IsLiving {
		t.Errorf("john = %+v", got.Persons[1])
	}

	var sawAdoptive bool
	for _, r := range got.Relationships {
		if r.Type == models.RelAdoptiveChild && r.PersonFromID == "ann" && r.PersonToID == "mary" {
			sawAdoptive = true
		}
	}
	if !sawAdoptive {
		t.Errorf("adoptive relationship lost: %+v", got.Relationships)
	}
}

func TestSQLiteStore_ImportBumpsVersion(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	data := &models.TreeData{
		TreeID:  "t",
		Persons: []models.PersonNode{{ID: "a"}, {ID: "b"}},
	}

	if err := s.ImportTree(ctx, data, "first"); err != nil {
		t.Fatalf("first import: %v", err)
	}

	data.Persons = data.Persons[:1]
	if err := s.ImportTree(ctx, data, "second"); err != nil {
		t.Fatalf("second import: %v", err)
	}

	got, err := s.LoadTree(ctx, "t")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}

	if got.Version != "t@2" {
		t.Errorf("version = %q, want t@2", got.Version)
	}
	if len(got.Persons) != 1 {
		t.Errorf("import should replace persons, got %d", len(got.Persons))
	}
}

func TestSQLiteStore_Errors(t *testing.T) {
	s := openTestSQLite(t)

	if _, err := s.LoadTree(context.Background(), "missing"); !errors.Is(err, models.ErrTreeNotFound) {
		t.Errorf("missing tree: got %v, want ErrTreeNotFound", err)
	}

	if err := s.ImportTree(context.Background(), &models.TreeData{}, ""); err == nil {
		t.Error("expected error for empty tree ID")
	}
}
