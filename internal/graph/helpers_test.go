package graph

import (
	"testing"

	"github.com/persistorai/kinship/internal/models"
)

func p(id string) models.PersonNode { return models.PersonNode{ID: id} }

func r(from string, t models.RelationshipType, to string) models.StoredRelationship {
	return models.StoredRelationship{PersonFromID: from, PersonToID: to, Type: t}
}

// pedigree builds a four-generation line with a second branch:
//
//	g1 + g2
//	├── p1 ── c1 ── d1
//	└── p2 ── c2
func pedigree(t *testing.T) *FamilyGraph {
	t.Helper()

	g, err := Build(
		[]models.PersonNode{p("g1"), p("g2"), p("p1"), p("p2"), p("c1"), p("c2"), p("d1")},
		[]models.StoredRelationship{
			r("g1", models.RelSpouse, "g2"),
			r("g1", models.RelParent, "p1"),
			r("g2", models.RelParent, "p1"),
			r("g1", models.RelParent, "p2"),
			r("g2", models.RelParent, "p2"),
			r("p1", models.RelParent, "c1"),
			r("p2", models.RelParent, "c2"),
			r("c1", models.RelParent, "d1"),
		},
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	return g
}
