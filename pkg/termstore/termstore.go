// SPDX-License-Identifier: Apache-2.0

// Package termstore implements the term dictionary: add/lookup/delete of
// individual terms plus the bulk-ingest-side batch existence probe and
// batch insert. The batch algorithm (probe missing set, insert only what's
// missing, single multi-row statement) is grounded on the reference
// implementation's batch ingest pipeline; the INSERT ... ON CONFLICT DO
// NOTHING idempotent-insert shape is grounded on cayley's Postgres node
// upsert (other_examples/*cayleygraph-cayley*postgres.go).
package termstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/pgstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
	"github.com/vital-ai/vital-graph-sub011/pkg/term"
	"github.com/vital-ai/vital-graph-sub011/pkg/termcache"
)

// Store is the term dictionary for one space's term table.
type Store struct {
	db    pgstore.DB
	table string
	cache *termcache.Cache // nil disables caching
}

// New constructs a Store. cache may be nil.
func New(db pgstore.DB, names storage.Names, cache *termcache.Cache) *Store {
	return &Store{db: db, table: names.Term, cache: cache}
}

// AddTerm is idempotent: if the term's deterministic UUID already has a
// row, that row's UUID is returned unchanged; otherwise a row is inserted.
// Duplicate-key races from concurrent inserters are swallowed by
// ON CONFLICT DO NOTHING, not surfaced as errors.
func (s *Store) AddTerm(ctx context.Context, t term.Term) (uuid.UUID, error) {
	if s.cache != nil {
		if id, ok := s.cache.Get(t.KeyOf()); ok {
			return id, nil
		}
	}

	stmt := fmt.Sprintf(
		`INSERT INTO %s (term_uuid, term_text, term_type, lang, datatype_id)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		 ON CONFLICT (term_uuid) DO NOTHING`,
		s.table,
	)
	if _, err := s.db.ExecContext(ctx, stmt, t.UUID, t.Text, string(t.Type), t.Lang, t.DatatypeID); err != nil {
		return uuid.Nil, &pgerr.DatabaseError{SQL: stmt, Err: err}
	}

	if s.cache != nil {
		s.cache.Put(t.KeyOf(), t.UUID)
	}
	return t.UUID, nil
}

// GetTermUUID computes and returns the deterministic UUID for a term
// description without requiring the row to already exist; AddTerm must
// still be called (or have been called by someone) for the UUID to be
// resolvable back to a row.
func (s *Store) GetTermUUID(text string, typ term.Type, lang string, datatype *uuid.UUID) uuid.UUID {
	return term.DeriveUUID(text, typ, lang, datatype)
}

// GetTermUUIDBatch computes UUIDs for many terms at once, consulting the
// cache for each before falling back to the pure derivation -- this never
// touches the database, since the UUID is a pure function of its inputs.
func (s *Store) GetTermUUIDBatch(terms []term.Term) []uuid.UUID {
	ids := make([]uuid.UUID, len(terms))
	for i, t := range terms {
		if s.cache != nil {
			if id, ok := s.cache.Get(t.KeyOf()); ok {
				ids[i] = id
				continue
			}
		}
		ids[i] = t.UUID
	}
	return ids
}

// DeleteTerm removes a term row, refusing if quadTable still references
// the UUID in any of the four positions.
func (s *Store) DeleteTerm(ctx context.Context, quadTable string, id uuid.UUID) error {
	checkStmt := fmt.Sprintf(
		`SELECT 1 FROM %s WHERE subject_uuid = $1 OR predicate_uuid = $1 OR object_uuid = $1 OR context_uuid = $1 LIMIT 1`,
		quadTable,
	)
	rows, err := s.db.QueryContext(ctx, checkStmt, id)
	if err != nil {
		return &pgerr.DatabaseError{SQL: checkStmt, Err: err}
	}
	defer rows.Close()
	if rows.Next() {
		return &pgerr.ReferentialError{TermUUID: id.String(), Reason: "term is still referenced by one or more quads"}
	}
	if err := rows.Err(); err != nil {
		return &pgerr.DatabaseError{SQL: checkStmt, Err: err}
	}

	delStmt := fmt.Sprintf(`DELETE FROM %s WHERE term_uuid = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, delStmt, id); err != nil {
		return &pgerr.DatabaseError{SQL: delStmt, Err: err}
	}
	return nil
}

// MissingUUIDs probes the term table for which of candidates have no
// existing row, returning the subset that must still be inserted. This is
// step 3 of the batch ingest pipeline: one round trip regardless of batch
// size.
func (s *Store) MissingUUIDs(ctx context.Context, candidates []uuid.UUID) ([]uuid.UUID, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	stmt := fmt.Sprintf(`SELECT term_uuid FROM %s WHERE term_uuid = ANY($1)`, s.table)
	rows, err := s.db.QueryContext(ctx, stmt, pq.Array(candidates))
	if err != nil {
		return nil, &pgerr.DatabaseError{SQL: stmt, Err: err}
	}
	defer rows.Close()

	existing := make(map[uuid.UUID]struct{}, len(candidates))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, &pgerr.DatabaseError{SQL: stmt, Err: err}
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, &pgerr.DatabaseError{SQL: stmt, Err: err}
	}

	missing := make([]uuid.UUID, 0, len(candidates)-len(existing))
	for _, id := range candidates {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// InsertMissing inserts exactly the given terms in a single multi-row
// INSERT, step 4 of the batch ingest pipeline. Callers are expected to
// have already filtered to the missing set via MissingUUIDs.
func (s *Store) InsertMissing(ctx context.Context, terms []term.Term) error {
	if len(terms) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (term_uuid, term_text, term_type, lang, datatype_id) VALUES ", s.table)
	args := make([]any, 0, len(terms)*5)
	for i, t := range terms {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&b, "($%d, $%d, $%d, NULLIF($%d, ''), $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, t.UUID, t.Text, string(t.Type), t.Lang, t.DatatypeID)
	}
	b.WriteString(" ON CONFLICT (term_uuid) DO NOTHING")

	stmt := b.String()
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return &pgerr.DatabaseError{SQL: stmt, Err: err}
	}

	if s.cache != nil {
		for _, t := range terms {
			s.cache.Put(t.KeyOf(), t.UUID)
		}
	}
	return nil
}
