package service

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/kinship/internal/cache"
	"github.com/persistorai/kinship/internal/graph"
	"github.com/persistorai/kinship/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

// mockTreeLoader records calls and returns configured responses.
type mockTreeLoader struct {
	mu    sync.Mutex
	calls []string

	loadTree func(ctx context.Context, treeID string) (*models.TreeData, error)
}

func (m *mockTreeLoader) LoadTree(ctx context.Context, treeID string) (*models.TreeData, error) {
	m.mu.Lock()
	m.calls = append(m.calls, treeID)
	m.mu.Unlock()

	return m.loadTree(ctx, treeID)
}

func (m *mockTreeLoader) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

func person(id string, g models.Gender) models.PersonNode {
	return models.PersonNode{ID: id, Gender: g, IsLiving: true}
}

func rel(from string, t models.RelationshipType, to string) models.StoredRelationship {
	return models.StoredRelationship{PersonFromID: from, PersonToID: to, Type: t}
}

// familyRecords is a three-generation family:
//
//	gp + gm
//	├── dad + mom      dad + ex
//	│   ├── me         └── half
//	│   └── sis
//	└── aunt + uil
//	    ├── cousin ── ckid
//	    └── adoptee (adopted)
//
// stranger has no links.
func familyRecords() ([]models.PersonNode, []models.StoredRelationship) {
	persons := []models.PersonNode{
		person("gp", models.GenderMale),
		person("gm", models.GenderFemale),
		person("dad", models.GenderMale),
		person("mom", models.GenderFemale),
		person("ex", models.GenderFemale),
		person("aunt", models.GenderFemale),
		person("uil", models.GenderMale),
		person("me", models.GenderMale),
		person("sis", models.GenderFemale),
		person("half", models.GenderMale),
		person("cousin", models.GenderFemale),
		person("ckid", models.GenderMale),
		person("adoptee", models.GenderFemale),
		person("stranger", models.GenderUnknown),
	}

	relationships := []models.StoredRelationship{
		rel("gp", models.RelSpouse, "gm"),
		rel("gp", models.RelParent, "dad"),
		rel("gm", models.RelParent, "dad"),
		rel("gp", models.RelParent, "aunt"),
		rel("gm", models.RelParent, "aunt"),
		rel("dad", models.RelSpouse, "mom"),
		rel("dad", models.RelSpouse, "ex"),
		rel("aunt", models.RelSpouse, "uil"),
		rel("dad", models.RelParent, "me"),
		rel("mom", models.RelParent, "me"),
		rel("sis", models.RelChild, "dad"),
		rel("sis", models.RelChild, "mom"),
		rel("dad", models.RelParent, "half"),
		rel("ex", models.RelParent, "half"),
		rel("aunt", models.RelParent, "cousin"),
		rel("cousin", models.RelParent, "ckid"),
		rel("aunt", models.RelAdoptiveParent, "adoptee"),
	}

	return persons, relationships
}

func familyGraph(t *testing.T) *graph.FamilyGraph {
	t.Helper()

	persons, relationships := familyRecords()

	g, err := graph.Build(persons, relationships)
	if err != nil {
		t.Fatalf("building family graph: %v", err)
	}

	return g
}

func newTestService(opts Options) (*RelationshipService, *cache.RelationshipCache) {
	c := cache.New(cache.Options{MaxSize: 1000, TTL: -1, TrackStats: true}, testLogger())
	return NewRelationshipService(c, testLogger(), opts), c
}
