package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/persistorai/kinship/internal/db"
	"github.com/persistorai/kinship/internal/models"
)

var formats = []string{"table", "json", "yaml"}

// printer renders command results in the selected output format.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	if !slices.Contains(formats, format) {
		return nil, fmt.Errorf("unknown format %q (want %s)", format, strings.Join(formats, "|"))
	}

	return &printer{w: w, format: format}, nil
}

// emit writes v as JSON or YAML, or headers and rows as a table.
func (p *printer) emit(v any, headers []string, rows [][]string) error {
	switch p.format {
	case "json":
		return p.json(v)
	case "yaml":
		return p.yaml(v)
	default:
		p.table(headers, rows)
		return nil
	}
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// yaml goes through JSON so field names and text marshalers match the JSON
// output; decoding into a yaml.Node keeps the field order.
func (p *printer) yaml(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	blockStyle(&node)

	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)

	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func (p *printer) table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}

			parts[i] = fmt.Sprintf("%-*s", w, cell)
		}

		fmt.Fprintln(p.w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	printRow(headers)

	seps := make([]string, len(headers))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}

	printRow(seps)

	for _, row := range rows {
		printRow(row)
	}
}

var relationshipHeaders = []string{"PERSON A", "PERSON B", "RELATIONSHIP", "TYPE", "DEGREE", "REMOVED", "CONSANGUINITY", "NOTES"}

func relationshipRow(r *models.ComputedRelationship) []string {
	var notes []string
	if r.HalfBlood {
		notes = append(notes, "half")
	}

	if r.ViaMarriage {
		notes = append(notes, "marriage")
	}

	if r.Approximate {
		notes = append(notes, "approximate")
	}

	return []string{
		r.PersonAID,
		r.PersonBID,
		r.DisplayName,
		r.RelationType.String(),
		strconv.Itoa(r.Degree),
		strconv.Itoa(r.Removed),
		strconv.Itoa(r.Consanguinity),
		strings.Join(notes, ","),
	}
}

// batchRows lists batch results ordered by target id.
func batchRows(results map[string]*models.ComputedRelationship) [][]string {
	targets := make([]string, 0, len(results))
	for id := range results {
		targets = append(targets, id)
	}

	slices.Sort(targets)

	rows := make([][]string, 0, len(targets))
	for _, id := range targets {
		rows = append(rows, relationshipRow(results[id]))
	}

	return rows
}

// matrixGrid renders result[a][b] as a grid with a in rows and b in columns.
func matrixGrid(ids []string, result map[string]map[string]*models.ComputedRelationship) ([]string, [][]string) {
	headers := append([]string{""}, ids...)
	rows := make([][]string, 0, len(ids))

	for _, a := range ids {
		row := []string{a}

		for _, b := range ids {
			if r, ok := result[a][b]; ok {
				row = append(row, r.DisplayName)
			} else {
				row = append(row, "-")
			}
		}

		rows = append(rows, row)
	}

	return headers, rows
}

var ancestorHeaders = []string{"ANCESTOR", "FROM A", "FROM B"}

func ancestorRows(list []models.CommonAncestor) [][]string {
	rows := make([][]string, 0, len(list))
	for _, ca := range list {
		rows = append(rows, []string{ca.AncestorID, strconv.Itoa(ca.DistanceFromA), strconv.Itoa(ca.DistanceFromB)})
	}

	return rows
}

var migrationHeaders = []string{"VERSION", "FILE", "STATE", "APPLIED AT"}

func migrationRows(states []db.MigrationState) [][]string {
	rows := make([][]string, 0, len(states))
	for _, st := range states {
		state, at := "pending", ""
		if st.Applied {
			state, at = "applied", st.AppliedAt.Format(time.RFC3339)
		}

		rows = append(rows, []string{strconv.FormatInt(st.Version, 10), st.File, state, at})
	}

	return rows
}
