// SPDX-License-Identifier: Apache-2.0

// Package sql2sparqlpg is a debug-only, reverse-direction helper: given the
// SQL text the engine is about to execute, parse and classify it purely
// for logging and the CLI's --diagnostic explain output. It never changes
// what gets executed, exactly as the teacher's sql2pgroll.Convert never
// executes anything itself -- it only ever turns SQL into a description of
// SQL. Dispatch follows convert.go's type switch on the parsed node.
package sql2sparqlpg

import (
	"fmt"

	pgq "github.com/pganalyze/pg_query_go/v6"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
)

// Kind classifies a single parsed SQL statement by the operation it
// performs.
type Kind string

const (
	KindSelect  Kind = "SELECT"
	KindInsert  Kind = "INSERT"
	KindUpdate  Kind = "UPDATE"
	KindDelete  Kind = "DELETE"
	KindDDL     Kind = "DDL"
	KindUnknown Kind = "UNKNOWN"
)

// Classification is the result of classifying one generated SQL statement.
type Classification struct {
	Kind        Kind
	Tables      []string // relation names referenced, best-effort, deduplicated
	Normalized  string   // pg_query_go's deparsed/normalized form, for pretty-printing
}

// Classify parses sql locally and returns its shape. A statement that does
// not parse yields a TranslationError carrying the parser's message; the
// engine only logs such a failure and still sends the SQL to Postgres.
func Classify(sql string) (*Classification, error) {
	tree, err := pgq.Parse(sql)
	if err != nil {
		return nil, &pgerr.TranslationError{Node: "SQL", Reason: fmt.Sprintf("generated SQL failed to parse: %v", err)}
	}

	stmts := tree.GetStmts()
	if len(stmts) != 1 {
		return nil, &pgerr.TranslationError{Node: "SQL", Reason: fmt.Sprintf("expected exactly one statement, got %d", len(stmts))}
	}

	normalized, err := pgq.Deparse(tree)
	if err != nil {
		normalized = sql
	}

	node := stmts[0].GetStmt().GetNode()
	c := &Classification{Normalized: normalized}

	switch n := node.(type) {
	case *pgq.Node_SelectStmt:
		c.Kind = KindSelect
		c.Tables = collectRangeVars(n.SelectStmt.GetFromClause())
	case *pgq.Node_InsertStmt:
		c.Kind = KindInsert
		if rel := n.InsertStmt.GetRelation(); rel != nil {
			c.Tables = []string{rel.GetRelname()}
		}
	case *pgq.Node_UpdateStmt:
		c.Kind = KindUpdate
		if rel := n.UpdateStmt.GetRelation(); rel != nil {
			c.Tables = []string{rel.GetRelname()}
		}
	case *pgq.Node_DeleteStmt:
		c.Kind = KindDelete
		if rel := n.DeleteStmt.GetRelation(); rel != nil {
			c.Tables = []string{rel.GetRelname()}
		}
	case *pgq.Node_CreateStmt, *pgq.Node_DropStmt, *pgq.Node_IndexStmt, *pgq.Node_AlterTableStmt:
		c.Kind = KindDDL
	default:
		c.Kind = KindUnknown
	}

	return c, nil
}

func collectRangeVars(nodes []*pgq.Node) []string {
	var tables []string
	for _, n := range nodes {
		walkRangeVars(n, &tables)
	}
	return dedupe(tables)
}

func walkRangeVars(n *pgq.Node, out *[]string) {
	if n == nil {
		return
	}
	switch v := n.GetNode().(type) {
	case *pgq.Node_RangeVar:
		*out = append(*out, v.RangeVar.GetRelname())
	case *pgq.Node_JoinExpr:
		walkRangeVars(v.JoinExpr.GetLarg(), out)
		walkRangeVars(v.JoinExpr.GetRarg(), out)
	case *pgq.Node_RangeSubselect:
		// Subquery in FROM: no single relation name to report, and the
		// tables inside it are not collected.
	}
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
