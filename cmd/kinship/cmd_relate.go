package main

import (
	"github.com/spf13/cobra"

	"github.com/persistorai/kinship/internal/graph"
)

// runGraph wires the app, loads the selected tree and hands both to fn.
func runGraph(cmd *cobra.Command, flags *globalFlags, fn func(a *app, g *graph.FamilyGraph) error) error {
	a, err := newApp(cmd, flags)
	if err != nil {
		return err
	}
	defer a.close()

	g, err := a.graph(cmd.Context(), flags)
	if err != nil {
		return err
	}

	return fn(a, g)
}

func newRelateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "relate <person-a> <person-b>",
		Short: "Name what person A is to person B",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, flags, func(a *app, g *graph.FamilyGraph) error {
				rel, err := a.relations.ComputeRelationship(cmd.Context(), g, args[0], args[1])
				if err != nil {
					return err
				}

				return a.printer.emit(rel, relationshipHeaders, [][]string{relationshipRow(rel)})
			})
		},
	}
}

func newBatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <root> [target...]",
		Short: "Relate one person to many (every person when no targets are given)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, flags, func(a *app, g *graph.FamilyGraph) error {
				targets := args[1:]
				if len(targets) == 0 {
					targets = g.IDs()
				}

				results, err := a.relations.ComputeRelationshipsBatch(cmd.Context(), g, args[0], targets)
				if err != nil {
					return err
				}

				return a.printer.emit(results, relationshipHeaders, batchRows(results))
			})
		},
	}
}

func newMatrixCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "matrix [person...]",
		Short: "Relate every pair of the given people (everyone when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, flags, func(a *app, g *graph.FamilyGraph) error {
				ids := uniqueArgs(args)
				if len(ids) == 0 {
					ids = g.IDs()
				}

				result, err := a.relations.ComputeRelationshipMatrix(cmd.Context(), g, ids)
				if err != nil {
					return err
				}

				headers, rows := matrixGrid(ids, result)

				return a.printer.emit(result, headers, rows)
			})
		},
	}
}

func newAncestorsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ancestors <person-a> <person-b>",
		Short: "List the common ancestors of two people, nearest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, flags, func(a *app, g *graph.FamilyGraph) error {
				list, err := a.relations.CommonAncestors(cmd.Context(), g, args[0], args[1])
				if err != nil {
					return err
				}

				return a.printer.emit(list, ancestorHeaders, ancestorRows(list))
			})
		},
	}
}

// uniqueArgs drops repeated ids, keeping first occurrences in order.
func uniqueArgs(args []string) []string {
	seen := make(map[string]bool, len(args))
	out := make([]string, 0, len(args))

	for _, id := range args {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	return out
}
