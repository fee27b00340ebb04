package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseRelationshipType(t *testing.T) {
	tests := []struct {
		in      string
		want    RelationshipType
		wantErr bool
	}{
		{in: "PARENT", want: RelParent},
		{in: "adoptive_parent", want: RelAdoptiveParent},
		{in: "step-child", want: RelStepChild},
		{in: " Foster Parent ", want: RelFosterParent},
		{in: "ward", want: RelWard},
		{in: "cousin", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRelationshipType(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRelationshipType_Normalize(t *testing.T) {
	tests := []struct {
		typ       RelationshipType
		wantClass EdgeClass
		wantQual  Qualifier
	}{
		{RelParent, EdgeChild, QualifierNone},
		{RelChild, EdgeParent, QualifierNone},
		{RelSpouse, EdgeSpouse, QualifierNone},
		{RelSibling, EdgeSibling, QualifierNone},
		{RelAdoptiveParent, EdgeChild, QualifierAdoptive},
		{RelAdoptiveChild, EdgeParent, QualifierAdoptive},
		{RelStepParent, EdgeChild, QualifierStep},
		{RelStepChild, EdgeParent, QualifierStep},
		{RelFosterParent, EdgeChild, QualifierFoster},
		{RelFosterChild, EdgeParent, QualifierFoster},
		{RelGuardian, EdgeChild, QualifierGuardian},
		{RelWard, EdgeParent, QualifierGuardian},
	}

	for _, tc := range tests {
		t.Run(tc.typ.String(), func(t *testing.T) {
			class, qual, err := tc.typ.Normalize()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if class != tc.wantClass || qual != tc.wantQual {
				t.Errorf("got (%s, %q), want (%s, %q)", class, qual, tc.wantClass, tc.wantQual)
			}
		})
	}

	if _, _, err := RelationshipType(99).Normalize(); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestStoredRelationship_JSON(t *testing.T) {
	var r StoredRelationship
	if err := json.Unmarshal([]byte(`{"person_from_id":"a","person_to_id":"b","type":"adoptive-parent"}`), &r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Type != RelAdoptiveParent {
		t.Errorf("type = %s, want ADOPTIVE_PARENT", r.Type)
	}

	if err := json.Unmarshal([]byte(`{"person_from_id":"a","person_to_id":"b","type":"friend"}`), &r); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestStoredRelationship_Validate(t *testing.T) {
	tests := []struct {
		name string
		rel  StoredRelationship
		want error
	}{
		{name: "valid", rel: StoredRelationship{PersonFromID: "a", PersonToID: "b", Type: RelSpouse}},
		{name: "missing from", rel: StoredRelationship{PersonToID: "b", Type: RelSpouse}, want: ErrMissingFrom},
		{name: "missing to", rel: StoredRelationship{PersonFromID: "a", Type: RelSpouse}, want: ErrMissingTo},
		{name: "missing type", rel: StoredRelationship{PersonFromID: "a", PersonToID: "b"}, want: ErrMissingType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rel.Validate()
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPersonNode_Validate(t *testing.T) {
	if err := (&PersonNode{ID: " "}).Validate(); !errors.Is(err, ErrMissingID) {
		t.Errorf("blank id: err = %v", err)
	}
	if err := (&PersonNode{ID: strings.Repeat("x", 256)}).Validate(); err == nil {
		t.Error("expected error for long id")
	}
	if err := (&PersonNode{ID: "p1"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseGender(t *testing.T) {
	tests := map[string]Gender{
		"male": GenderMale, "F": GenderFemale, " Woman ": GenderFemale, "": GenderUnknown, "other": GenderUnknown,
	}

	for in, want := range tests {
		if got := ParseGender(in); got != want {
			t.Errorf("ParseGender(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRelationType_Inverse(t *testing.T) {
	pairs := [][2]RelationType{
		{RelationParent, RelationChild},
		{RelationAncestor, RelationDescendant},
		{RelationAuntUncle, RelationNibling},
	}
	for _, p := range pairs {
		if p[0].Inverse() != p[1] || p[1].Inverse() != p[0] {
			t.Errorf("%s and %s are not inverses", p[0], p[1])
		}
	}

	for _, self := range []RelationType{RelationSibling, RelationCousin, RelationSpouse, RelationInLaw, RelationUnrelated} {
		if self.Inverse() != self {
			t.Errorf("%s.Inverse() = %s", self, self.Inverse())
		}
	}
}

func TestRelationshipPath_Reverse(t *testing.T) {
	p := RelationshipPath{
		{FromID: "a", ToID: "b", Class: EdgeParent},
		{FromID: "b", ToID: "c", Class: EdgeChild, Qualifier: QualifierAdoptive},
		{FromID: "c", ToID: "d", Class: EdgeSpouse},
	}

	r := p.Reverse()
	want := RelationshipPath{
		{FromID: "d", ToID: "c", Class: EdgeSpouse},
		{FromID: "c", ToID: "b", Class: EdgeParent, Qualifier: QualifierAdoptive},
		{FromID: "b", ToID: "a", Class: EdgeChild},
	}

	for i := range want {
		if r[i] != want[i] {
			t.Errorf("hop %d = %+v, want %+v", i, r[i], want[i])
		}
	}
	if p.SpouseHops() != 1 {
		t.Errorf("spouse hops = %d, want 1", p.SpouseHops())
	}
}

func TestTypedErrors(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{&MalformedGraphError{Reason: "x"}, ErrMalformedGraph},
		{&PersonNotFoundError{ID: "x"}, ErrPersonNotFound},
		{&PathSearchExhaustedError{Limit: "result", PathsFound: 3}, ErrPathSearchExhausted},
		{&InvalidRelationshipError{Reason: "x"}, ErrInvalidRelationship},
	}

	for _, tc := range tests {
		if !errors.Is(tc.err, tc.want) {
			t.Errorf("%T does not match %v", tc.err, tc.want)
		}
		if errors.Is(tc.err, ErrMatrixTooLarge) {
			t.Errorf("%T matches an unrelated sentinel", tc.err)
		}
	}
}
