// SPDX-License-Identifier: Apache-2.0

// Package quadstore implements quad batch ingest, batch removal, and the
// pattern-matched quad iterator. The duplicate-grouping removal algorithm
// and the term-before-quad batch insert ordering are grounded on the
// reference implementation's batch pipeline (spec'd from
// original_source/vitalgraph); the server-side cursor iterator is grounded
// on the teacher's DBAction composition idiom, applied here over
// pgstore.Cursor instead of a single Exec.
package quadstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/pgstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
	"github.com/vital-ai/vital-graph-sub011/pkg/term"
	"github.com/vital-ai/vital-graph-sub011/pkg/termstore"
)

// Quad is one asserted statement, identified by its own quad UUID plus the
// four term UUIDs of its positions.
type Quad struct {
	QuadUUID      uuid.UUID
	SubjectUUID   uuid.UUID
	PredicateUUID uuid.UUID
	ObjectUUID    uuid.UUID
	ContextUUID   uuid.UUID
}

// Store is the quad table for one space.
type Store struct {
	db    pgstore.DB
	names storage.Names
	terms *termstore.Store
}

// New constructs a Store bound to names.Quad, delegating term resolution
// to terms.
func New(db pgstore.DB, names storage.Names, terms *termstore.Store) *Store {
	return &Store{db: db, names: names, terms: terms}
}

// InputQuad is a single caller-supplied statement prior to term
// resolution: context is optional and defaults to the reserved global
// graph when empty.
type InputQuad struct {
	Subject   term.Term
	Predicate term.Term
	Object    term.Term
	Context   term.Term // zero value (empty Text) means unbound -> global graph
}

var globalGraphTerm = term.New(storage.ReservedDefaultGraph, term.TypeGraph, "", nil)

// AddBatch implements the five-step batch ingest pipeline: rewrite unbound
// graphs, collect the unique term set, probe for missing terms, insert
// only what's missing, then insert all quads in one statement. N quads
// cost two bulk statements plus one probe, independent of duplicate
// structure within the batch.
func (s *Store) AddBatch(ctx context.Context, inputs []InputQuad) error {
	if len(inputs) == 0 {
		return nil
	}

	resolved := make([]InputQuad, len(inputs))
	uniqueTerms := make(map[uuid.UUID]term.Term)
	for i, q := range inputs {
		ctxTerm := q.Context
		if ctxTerm.Text == "" {
			ctxTerm = globalGraphTerm
		}
		resolved[i] = InputQuad{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object, Context: ctxTerm}
		for _, t := range []term.Term{q.Subject, q.Predicate, q.Object, ctxTerm} {
			uniqueTerms[t.UUID] = t
		}
	}

	candidates := make([]uuid.UUID, 0, len(uniqueTerms))
	for id := range uniqueTerms {
		candidates = append(candidates, id)
	}
	missingIDs, err := s.terms.MissingUUIDs(ctx, candidates)
	if err != nil {
		return err
	}
	if len(missingIDs) > 0 {
		missingTerms := make([]term.Term, 0, len(missingIDs))
		for _, id := range missingIDs {
			missingTerms = append(missingTerms, uniqueTerms[id])
		}
		if err := s.terms.InsertMissing(ctx, missingTerms); err != nil {
			return err
		}
	}

	quads := make([]Quad, len(resolved))
	for i, q := range resolved {
		quads[i] = Quad{
			QuadUUID:      uuid.New(),
			SubjectUUID:   q.Subject.UUID,
			PredicateUUID: q.Predicate.UUID,
			ObjectUUID:    q.Object.UUID,
			ContextUUID:   q.Context.UUID,
		}
	}
	return s.insertQuads(ctx, quads)
}

func (s *Store) insertQuads(ctx context.Context, quads []Quad) error {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (quad_uuid, subject_uuid, predicate_uuid, object_uuid, context_uuid) VALUES ", s.names.Quad)
	args := make([]any, 0, len(quads)*5)
	for i, q := range quads {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, q.QuadUUID, q.SubjectUUID, q.PredicateUUID, q.ObjectUUID, q.ContextUUID)
	}

	stmt := b.String()
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return &pgerr.DatabaseError{SQL: stmt, Err: err}
	}
	return nil
}

// Tuple identifies a quad by its four term positions, without the
// per-instance quad_uuid -- the shape duplicate-input removal groups by.
type Tuple struct {
	SubjectUUID   uuid.UUID
	PredicateUUID uuid.UUID
	ObjectUUID    uuid.UUID
	ContextUUID   uuid.UUID
}

// RemoveBatch groups identical 4-tuples in inputs, counting occurrences,
// and deletes exactly that many physical rows per group using a subquery
// on ctid with LIMIT <count>. Removing one duplicate never removes all
// copies, matching RDF-store convention.
func (s *Store) RemoveBatch(ctx context.Context, tuples []Tuple) error {
	counts := make(map[Tuple]int, len(tuples))
	for _, t := range tuples {
		counts[t]++
	}

	for t, n := range counts {
		stmt := fmt.Sprintf(
			`DELETE FROM %s WHERE ctid IN (
				SELECT ctid FROM %s
				WHERE subject_uuid = $1 AND predicate_uuid = $2 AND object_uuid = $3 AND context_uuid = $4
				LIMIT $5
			)`,
			s.names.Quad, s.names.Quad,
		)
		if _, err := s.db.ExecContext(ctx, stmt, t.SubjectUUID, t.PredicateUUID, t.ObjectUUID, t.ContextUUID, n); err != nil {
			return &pgerr.DatabaseError{SQL: stmt, Err: err}
		}
	}
	return nil
}

// RemoveBySubjectURI deletes every quad whose subject term's text matches
// subjectURI exactly, across all graphs. Used by the bulk subject-URI
// removal path.
func (s *Store) RemoveBySubjectURI(ctx context.Context, subjectURI string) error {
	stmt := fmt.Sprintf(
		`DELETE FROM %s WHERE subject_uuid IN (SELECT term_uuid FROM %s WHERE term_text = $1 AND term_type = $2)`,
		s.names.Quad, s.names.Term,
	)
	if _, err := s.db.ExecContext(ctx, stmt, subjectURI, string(term.TypeURI)); err != nil {
		return &pgerr.DatabaseError{SQL: stmt, Err: err}
	}
	return nil
}

// PositionPattern describes a single quad-position constraint for pattern
// enumeration.
type PositionPattern struct {
	Bound     bool
	Text      string
	Type      term.Type
	Regex     string // if non-empty, overrides Bound: term_text ~ Regex
	CaseFold  bool   // case-insensitive regex (~*)
	Unbound   bool
}

// Pattern is a four-position quad pattern; zero-value positions are
// unbound.
type Pattern struct {
	Subject   PositionPattern
	Predicate PositionPattern
	Object    PositionPattern
	Context   PositionPattern
}

// Match streams quads matching pattern via a server-side cursor, yielding
// pages of rows to visit. The QueryPool, not Store's own DB handle, is
// used here because streaming wants pgx's cursor protocol; ingest and
// streaming intentionally use separate pools.
func (s *Store) Match(ctx context.Context, pool *pgstore.QueryPool, pattern Pattern, pageSize int) (*MatchIterator, error) {
	query, args := s.buildMatchQuery(pattern)
	cursor, err := pool.DeclareCursor(ctx, "quad_match", query, pageSize, args...)
	if err != nil {
		return nil, err
	}
	return &MatchIterator{cursor: cursor}, nil
}

func (s *Store) buildMatchQuery(p Pattern) (string, []any) {
	var where []string
	var args []any
	argN := 0
	nextArg := func(v any) string {
		argN++
		args = append(args, v)
		return fmt.Sprintf("$%d", argN)
	}

	// Every position not marked Unbound joins its term row; a bound
	// position then filters on that row's term_text and term_type, and a
	// regex position filters term_text with ~ (or ~* when CaseFold is set).
	positions := []struct {
		uuidCol string
		termCol string
		pp      PositionPattern
	}{
		{"subject_uuid", "s", p.Subject},
		{"predicate_uuid", "p", p.Predicate},
		{"object_uuid", "o", p.Object},
		{"context_uuid", "c", p.Context},
	}

	joins := ""
	for _, pos := range positions {
		if pos.pp.Unbound {
			continue
		}
		alias := pos.termCol
		joins += fmt.Sprintf(" JOIN %s %s ON q.%s = %s.term_uuid", s.names.Term, alias, pos.uuidCol, alias)
		if pos.pp.Regex != "" {
			op := "~"
			if pos.pp.CaseFold {
				op = "~*"
			}
			where = append(where, fmt.Sprintf("%s.term_text %s %s", alias, op, nextArg(pos.pp.Regex)))
		} else if pos.pp.Bound {
			where = append(where, fmt.Sprintf("%s.term_text = %s AND %s.term_type = %s", alias, nextArg(pos.pp.Text), alias, nextArg(string(pos.pp.Type))))
		}
	}

	query := fmt.Sprintf("SELECT q.quad_uuid, q.subject_uuid, q.predicate_uuid, q.object_uuid, q.context_uuid FROM %s q%s", s.names.Quad, joins)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query, args
}

// MatchIterator yields pages of matched quads, backed by a server-side
// cursor. Close must be called on normal completion, error, or consumer
// abandonment.
type MatchIterator struct {
	cursor *pgstore.Cursor
}

// NextPage fetches the next page of rows. An empty, non-error result means
// exhaustion.
func (it *MatchIterator) NextPage(ctx context.Context) ([]Quad, error) {
	rows, err := it.cursor.FetchPage(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quad
	for rows.Next() {
		var q Quad
		if err := rows.Scan(&q.QuadUUID, &q.SubjectUUID, &q.PredicateUUID, &q.ObjectUUID, &q.ContextUUID); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Close releases the iterator's cursor.
func (it *MatchIterator) Close(ctx context.Context) error {
	return it.cursor.Close(ctx)
}
