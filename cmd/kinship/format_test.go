package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/persistorai/kinship/internal/db"
	"github.com/persistorai/kinship/internal/models"
)

func sampleRelationship() *models.ComputedRelationship {
	return &models.ComputedRelationship{
		PersonAID:     "me",
		PersonBID:     "half",
		RelationType:  models.RelationSibling,
		Degree:        1,
		Consanguinity: 2,
		HalfBlood:     true,
		DisplayName:   "half-brother",
		GraphVersion:  "v1",
	}
}

func TestNewPrinter_RejectsUnknownFormat(t *testing.T) {
	if _, err := newPrinter(&bytes.Buffer{}, "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}

	for _, f := range formats {
		if _, err := newPrinter(&bytes.Buffer{}, f); err != nil {
			t.Errorf("format %q: unexpected error %v", f, err)
		}
	}
}

func TestPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, format: "json"}

	if err := p.emit(sampleRelationship(), nil, nil); err != nil {
		t.Fatalf("emit: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	if out["display_name"] != "half-brother" || out["relation_type"] != "sibling" {
		t.Errorf("unexpected JSON: %v", out)
	}

	if !strings.Contains(buf.String(), "\n  \"") {
		t.Errorf("expected indented JSON, got: %s", buf.String())
	}
}

func TestPrinter_YAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, format: "yaml"}

	if err := p.emit(sampleRelationship(), nil, nil); err != nil {
		t.Fatalf("emit: %v", err)
	}

	got := buf.String()
	if strings.Contains(got, "{") {
		t.Errorf("expected block style YAML, got:\n%s", got)
	}

	if !strings.HasPrefix(got, "person_a_id: me\n") {
		t.Errorf("expected field order preserved, got:\n%s", got)
	}

	var out map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}

	if out["half_blood"] != true || out["consanguinity"] != 2 {
		t.Errorf("unexpected YAML values: %v", out)
	}
}

func TestPrinter_Table(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, format: "table"}

	r := sampleRelationship()
	if err := p.emit(r, relationshipHeaders, [][]string{relationshipRow(r)}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, separator and one row, got %d lines:\n%s", len(lines), buf.String())
	}

	if !strings.HasPrefix(lines[0], "PERSON A") || !strings.HasPrefix(lines[1], "--------") {
		t.Errorf("unexpected header block:\n%s", buf.String())
	}

	// Columns line up under their headers.
	col := strings.Index(lines[0], "RELATIONSHIP")
	if !strings.HasPrefix(lines[2][col:], "half-brother") {
		t.Errorf("misaligned row:\n%s", buf.String())
	}
}

func TestRelationshipRow_Notes(t *testing.T) {
	r := sampleRelationship()
	r.ViaMarriage = true
	r.Approximate = true

	row := relationshipRow(r)
	if got := row[len(row)-1]; got != "half,marriage,approximate" {
		t.Errorf("notes = %q", got)
	}

	if got := relationshipRow(&models.ComputedRelationship{})[len(row)-1]; got != "" {
		t.Errorf("expected empty notes, got %q", got)
	}
}

func TestMatrixGrid(t *testing.T) {
	result := map[string]map[string]*models.ComputedRelationship{
		"dad": {"me": {DisplayName: "father"}},
		"me":  {"dad": {DisplayName: "son"}},
	}

	headers, rows := matrixGrid([]string{"dad", "me"}, result)

	if strings.Join(headers, ",") != ",dad,me" {
		t.Errorf("headers = %v", headers)
	}

	want := [][]string{{"dad", "-", "father"}, {"me", "son", "-"}}
	for i := range want {
		if strings.Join(rows[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestBatchRows_SortedByTarget(t *testing.T) {
	rows := batchRows(map[string]*models.ComputedRelationship{
		"zed": {PersonBID: "zed"},
		"amy": {PersonBID: "amy"},
	})

	if rows[0][1] != "amy" || rows[1][1] != "zed" {
		t.Errorf("rows not sorted: %v", rows)
	}
}

func TestMigrationRows(t *testing.T) {
	applied := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := migrationRows([]db.MigrationState{
		{Version: 1, File: "001_family_tree.sql", Applied: true, AppliedAt: applied},
		{Version: 2, File: "002_next.sql"},
	})

	if strings.Join(rows[0], "|") != "1|001_family_tree.sql|applied|2026-01-02T03:04:05Z" {
		t.Errorf("applied row = %v", rows[0])
	}

	if strings.Join(rows[1], "|") != "2|002_next.sql|pending|" {
		t.Errorf("pending row = %v", rows[1])
	}
}
