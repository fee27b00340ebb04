package graph

import (
	"errors"
	"testing"

	"github.com/persistorai/kinship/internal/models"
)

func TestFindAllPaths(t *testing.T) {
	g := pedigree(t)

	paths, err := FindAllPaths(g, "c1", "c2", DefaultPathLimits(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Through g1, through g2, and through each grandparent plus their marriage.
	if len(paths) != 4 {
		t.Fatalf("got %d paths, want 4: %+v", len(paths), paths)
	}
	if paths[0].SpouseHops() != 0 || len(paths[0]) != 4 {
		t.Errorf("first path = %+v, want a 4-hop blood path", paths[0])
	}
	if paths[len(paths)-1].SpouseHops() != 1 {
		t.Errorf("last path should cross the marriage: %+v", paths[len(paths)-1])
	}

	for _, path := range paths {
		seen := map[string]bool{"c1": true}
		for _, e := range path {
			if seen[e.ToID] {
				t.Fatalf("path revisits %s: %+v", e.ToID, path)
			}
			seen[e.ToID] = true
		}
		if path[len(path)-1].ToID != "c2" {
			t.Errorf("path ends at %s", path[len(path)-1].ToID)
		}
	}
}

func TestFindAllPaths_Filter(t *testing.T) {
	g := pedigree(t)

	noSpouse := func(_ models.RelationshipPath, next models.PathEdge) bool {
		return next.Class != models.EdgeSpouse
	}

	paths, err := FindAllPaths(g, "c1", "c2", DefaultPathLimits(), noSpouse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("got %d paths, want 2", len(paths))
	}
}

func TestFindAllPaths_Limits(t *testing.T) {
	g := pedigree(t)

	tests := []struct {
		name      string
		limits    PathLimits
		wantPaths int
		wantLimit string
	}{
		{name: "depth", limits: PathLimits{MaxDepth: 3}, wantPaths: 0, wantLimit: "depth"},
		{name: "results", limits: PathLimits{MaxResults: 1}, wantPaths: 1, wantLimit: "result"},
		{name: "expansions", limits: PathLimits{MaxExpansions: 2}, wantPaths: 0, wantLimit: "expansion"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			paths, err := FindAllPaths(g, "c1", "c2", tc.limits, nil)
			if len(paths) != tc.wantPaths {
				t.Errorf("got %d paths, want %d", len(paths), tc.wantPaths)
			}

			if tc.wantLimit == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			var ex *models.PathSearchExhaustedError
			if !errors.As(err, &ex) || ex.Limit != tc.wantLimit {
				t.Fatalf("err = %v, want %s exhaustion", err, tc.wantLimit)
			}
			if !errors.Is(err, models.ErrPathSearchExhausted) {
				t.Error("exhaustion does not match its sentinel")
			}
		})
	}
}

func TestFindAllPaths_Invalid(t *testing.T) {
	g := pedigree(t)

	if _, err := FindAllPaths(g, "c1", "c1", DefaultPathLimits(), nil); !errors.Is(err, models.ErrInvalidRelationship) {
		t.Errorf("self: err = %v", err)
	}
	if _, err := FindAllPaths(g, "c1", "nobody", DefaultPathLimits(), nil); !errors.Is(err, models.ErrPersonNotFound) {
		t.Errorf("unknown: err = %v", err)
	}
}

func TestFindAllPaths_Unreachable(t *testing.T) {
	g, err := Build([]models.PersonNode{p("a"), p("b")}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	paths, err := FindAllPaths(g, "a", "b", DefaultPathLimits(), nil)
	if err != nil || len(paths) != 0 {
		t.Errorf("got %v, %v; want no paths and no error", paths, err)
	}
}

func TestFindAllPaths_DepthCut(t *testing.T) {
	// x1 ── x2 ── x3 ── x4, and y on its own.
	g, err := Build(
		[]models.PersonNode{p("x1"), p("x2"), p("x3"), p("x4"), p("y")},
		[]models.StoredRelationship{
			r("x1", models.RelParent, "x2"),
			r("x2", models.RelParent, "x3"),
			r("x3", models.RelParent, "x4"),
		},
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	downOnly := func(_ models.RelationshipPath, next models.PathEdge) bool {
		return next.Class == models.EdgeChild
	}

	tests := []struct {
		name      string
		maxDepth  int
		filter    PathFilter
		wantLimit string
	}{
		{name: "branch continues past the cut", maxDepth: 2, wantLimit: "depth"},
		{name: "cut lands on a leaf", maxDepth: 3},
		{name: "filter rejects every continuation", maxDepth: 2, filter: func(prefix models.RelationshipPath, next models.PathEdge) bool {
			return downOnly(prefix, next) && len(prefix) < 2
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			paths, err := FindAllPaths(g, "x1", "y", PathLimits{MaxDepth: tc.maxDepth}, tc.filter)
			if len(paths) != 0 {
				t.Errorf("got %d paths, want none", len(paths))
			}

			if tc.wantLimit == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			var ex *models.PathSearchExhaustedError
			if !errors.As(err, &ex) || ex.Limit != tc.wantLimit {
				t.Fatalf("err = %v, want %s exhaustion", err, tc.wantLimit)
			}
		})
	}
}

func TestFindAllPaths_DepthCutKeepsFound(t *testing.T) {
	g := pedigree(t)

	// c1 ── p1 ── g1 ── p2 ── c2 fits; the detours through g2 do not.
	paths, err := FindAllPaths(g, "c1", "c2", PathLimits{MaxDepth: 4}, nil)
	if !errors.Is(err, models.ErrPathSearchExhausted) {
		t.Fatalf("err = %v, want exhaustion", err)
	}
	if len(paths) != 2 {
		t.Errorf("got %d paths, want the 2 four-hop paths", len(paths))
	}
}
