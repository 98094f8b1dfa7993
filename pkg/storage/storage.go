// SPDX-License-Identifier: Apache-2.0

// Package storage owns the per-space schema: table naming, DDL bootstrap,
// indexing, and post-load clustering. The embedded multi-statement SQL
// template and %[1]s-style placeholder substitution are grounded on the
// teacher migration tool's pkg/state/state.go schema bootstrap.
package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/pgstore"
)

// ReservedDefaultGraph is the implicit context assigned to quads inserted
// without an explicit graph.
const ReservedDefaultGraph = "urn:___GLOBAL"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidatePrefix checks that prefix is alphanumeric-and-underscore, with no
// leading digit, as required of any deployment-wide table prefix.
func ValidatePrefix(prefix string) error {
	if !identRe.MatchString(prefix) {
		return &pgerr.InvalidSpaceIDError{SpaceID: prefix}
	}
	return nil
}

// ValidateSpaceID checks a space id against the same identifier rule as a
// table prefix, since it is interpolated into table names the same way.
func ValidateSpaceID(spaceID string) error {
	if !identRe.MatchString(spaceID) {
		return &pgerr.InvalidSpaceIDError{SpaceID: spaceID}
	}
	return nil
}

// Names holds the four physical table names for one space, each composed
// as <prefix>__<space_id>__<base>.
type Names struct {
	Term      string
	Quad      string
	Namespace string
	Graph     string
}

// NewNames computes the table names for (prefix, spaceID), validating both
// components first.
func NewNames(prefix, spaceID string) (Names, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return Names{}, err
	}
	if err := ValidateSpaceID(spaceID); err != nil {
		return Names{}, err
	}
	base := fmt.Sprintf("%s__%s", prefix, spaceID)
	return Names{
		Term:      base + "__term",
		Quad:      base + "__rdf_quad",
		Namespace: base + "__namespace",
		Graph:     base + "__graph",
	}, nil
}

// CreateOptions controls schema bootstrap for one space.
type CreateOptions struct {
	// Unlogged declares all four tables UNLOGGED, trading crash safety for
	// ingest throughput.
	Unlogged bool
}

const ddlTemplate = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE %[5]s TABLE IF NOT EXISTS %[1]s (
	term_uuid    UUID PRIMARY KEY,
	term_text    TEXT NOT NULL,
	term_type    TEXT NOT NULL,
	lang         TEXT,
	datatype_id  UUID,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS %[1]s_text_idx ON %[1]s USING btree (term_text);
CREATE INDEX IF NOT EXISTS %[1]s_type_idx ON %[1]s USING btree (term_type);
CREATE INDEX IF NOT EXISTS %[1]s_trgm_idx ON %[1]s USING gin (term_text gin_trgm_ops);

CREATE %[5]s TABLE IF NOT EXISTS %[2]s (
	quad_uuid      UUID NOT NULL,
	subject_uuid   UUID NOT NULL,
	predicate_uuid UUID NOT NULL,
	object_uuid    UUID NOT NULL,
	context_uuid   UUID NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (quad_uuid, subject_uuid, predicate_uuid, object_uuid, context_uuid)
);

CREATE INDEX IF NOT EXISTS %[2]s_s_idx ON %[2]s USING btree (subject_uuid);
CREATE INDEX IF NOT EXISTS %[2]s_p_idx ON %[2]s USING btree (predicate_uuid);
CREATE INDEX IF NOT EXISTS %[2]s_o_idx ON %[2]s USING btree (object_uuid);
CREATE INDEX IF NOT EXISTS %[2]s_c_idx ON %[2]s USING btree (context_uuid);
CREATE INDEX IF NOT EXISTS %[2]s_spoc_idx ON %[2]s USING btree (subject_uuid, predicate_uuid, object_uuid, context_uuid);

CREATE %[5]s TABLE IF NOT EXISTS %[3]s (
	prefix NAME NOT NULL PRIMARY KEY,
	uri    TEXT NOT NULL
);

CREATE %[5]s TABLE IF NOT EXISTS %[4]s (
	graph_uuid    UUID PRIMARY KEY,
	graph_uri     TEXT NOT NULL,
	display_name  TEXT,
	triple_count  BIGINT NOT NULL DEFAULT 0
);
`

// Create bootstraps the four tables and their indexes for a space.
func Create(ctx context.Context, db pgstore.DB, names Names, opts CreateOptions) error {
	unlogged := ""
	if opts.Unlogged {
		unlogged = "UNLOGGED"
	}
	stmt := fmt.Sprintf(ddlTemplate, names.Term, names.Quad, names.Namespace, names.Graph, unlogged)
	_, err := db.ExecContext(ctx, stmt)
	if err != nil {
		return &pgerr.DatabaseError{SQL: stmt, Err: err}
	}
	return nil
}

// Drop removes all four tables for a space. Irreversible; callers decide
// whether to gate this behind confirmation.
func Drop(ctx context.Context, db pgstore.DB, names Names) error {
	stmt := fmt.Sprintf(
		"DROP TABLE IF EXISTS %s, %s, %s, %s",
		names.Quad, names.Term, names.Namespace, names.Graph,
	)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return &pgerr.DatabaseError{SQL: stmt, Err: err}
	}
	return nil
}

// ClusterAfterLoad physically reorders the term table by UUID and the quad
// table by subject UUID, improving join and subject-scan locality after a
// bulk load. This is a maintenance operation, not part of normal ingest,
// and takes an exclusive lock on each table for its duration.
func ClusterAfterLoad(ctx context.Context, db pgstore.DB, names Names) error {
	stmts := []string{
		fmt.Sprintf("CLUSTER %s USING %s_pkey", names.Term, names.Term),
		fmt.Sprintf("CLUSTER %s USING %s_s_idx", names.Quad, names.Quad),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return &pgerr.DatabaseError{SQL: stmt, Err: err}
		}
	}
	return nil
}
