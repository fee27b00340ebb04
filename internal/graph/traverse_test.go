package graph

import (
	"errors"
	"maps"
	"testing"

	"github.com/persistorai/kinship/internal/models"
)

func TestAncestorsWithDistance(t *testing.T) {
	g := pedigree(t)

	tests := []struct {
		name     string
		id       string
		maxDepth int
		want     map[string]int
	}{
		{name: "full line", id: "d1", maxDepth: 0, want: map[string]int{"c1": 1, "p1": 2, "g1": 3, "g2": 3}},
		{name: "depth capped", id: "d1", maxDepth: 2, want: map[string]int{"c1": 1, "p1": 2}},
		{name: "root of tree", id: "g1", want: map[string]int{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AncestorsWithDistance(g, tc.id, tc.maxDepth)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !maps.Equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}

	if _, err := AncestorsWithDistance(g, "nobody", 0); !errors.Is(err, models.ErrPersonNotFound) {
		t.Errorf("err = %v, want ErrPersonNotFound", err)
	}
}

func TestDescendantsWithDistance(t *testing.T) {
	g := pedigree(t)

	got, err := DescendantsWithDistance(g, "g2", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]int{"p1": 1, "p2": 1, "c1": 2, "c2": 2, "d1": 3}
	if !maps.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLineage_Truncated(t *testing.T) {
	g := pedigree(t)

	l, err := Ancestors(g, "d1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Truncated {
		t.Error("expected the walk to report truncation")
	}

	l, err = Ancestors(g, "d1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Truncated {
		t.Error("complete walk reported truncation")
	}
	if l.Alternates("g1") != 1 || l.Alternates("p1") != 1 {
		t.Errorf("alternates g1=%d p1=%d", l.Alternates("g1"), l.Alternates("p1"))
	}
	if d, ok := l.DistanceTo("d1"); !ok || d != 0 {
		t.Errorf("DistanceTo(root) = %d, %v", d, ok)
	}
}

func TestGetPathToAncestor(t *testing.T) {
	g := pedigree(t)

	path, err := GetPathToAncestor(g, "d1", "g2", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"c1", "p1", "g2"}
	if len(path) != len(want) {
		t.Fatalf("path = %+v", path)
	}
	for i, e := range path {
		if e.ToID != want[i] || e.Class != models.EdgeParent {
			t.Errorf("hop %d = %+v, want parent hop to %s", i, e, want[i])
		}
	}

	missing, err := GetPathToAncestor(g, "d1", "c2", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil path to a non-ancestor, got %+v", missing)
	}

	down, err := GetPathToDescendant(g, "g1", "d1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(down) != 3 || down[2].ToID != "d1" || down[0].Class != models.EdgeChild {
		t.Errorf("descendant path = %+v", down)
	}
}

func TestAncestors_PedigreeCollapse(t *testing.T) {
	// x descends from a through both parents.
	g, err := Build(
		[]models.PersonNode{p("a"), p("m"), p("f"), p("x")},
		[]models.StoredRelationship{
			r("a", models.RelParent, "m"),
			r("a", models.RelParent, "f"),
			r("m", models.RelParent, "x"),
			r("f", models.RelParent, "x"),
		},
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	l, err := Ancestors(g, "x", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Distance["a"] != 2 {
		t.Errorf("distance to a = %d, want 2", l.Distance["a"])
	}
	if l.Alternates("a") != 2 {
		t.Errorf("alternates = %d, want 2", l.Alternates("a"))
	}
	if path := l.PathTo("a"); len(path) != 2 || path[0].ToID != "f" {
		t.Errorf("path = %+v, want the lower-id branch through f", path)
	}
}

func TestAncestors_Cycle(t *testing.T) {
	g, err := Build(
		[]models.PersonNode{p("a"), p("b"), p("c")},
		[]models.StoredRelationship{
			r("a", models.RelParent, "b"),
			r("b", models.RelParent, "c"),
			r("c", models.RelParent, "a"),
		},
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := AncestorsWithDistance(g, "a", MaxDepthLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]int{"c": 1, "b": 2}
	if !maps.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestClampDepth(t *testing.T) {
	tests := map[int]int{0: DefaultMaxDepth, -3: DefaultMaxDepth, 5: 5, 1000: MaxDepthLimit}
	for in, want := range tests {
		if got := ClampDepth(in); got != want {
			t.Errorf("ClampDepth(%d) = %d, want %d", in, got, want)
		}
	}
}
