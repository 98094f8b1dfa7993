// SPDX-License-Identifier: Apache-2.0

// Package namespace manages the prefix-to-URI mapping table for one space.
// Row shape and the upsert idiom follow pkg/termstore's Store; the YAML
// bulk loader recovers the "common prefixes" convenience the reference
// implementation's HTTP layer used to provide, as a storage-layer helper
// rather than an HTTP endpoint (see SPEC_FULL.md §3).
package namespace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/pgstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
)

// Store is the prefix/URI table for one space.
type Store struct {
	db    pgstore.DB
	table string
}

// New constructs a Store over names.Namespace.
func New(db pgstore.DB, names storage.Names) *Store {
	return &Store{db: db, table: names.Namespace}
}

// Set inserts or updates a single prefix mapping.
func (s *Store) Set(ctx context.Context, prefix, uri string) error {
	stmt := fmt.Sprintf(
		`INSERT INTO %s (prefix, uri) VALUES ($1, $2)
		 ON CONFLICT (prefix) DO UPDATE SET uri = EXCLUDED.uri`,
		s.table,
	)
	if _, err := s.db.ExecContext(ctx, stmt, prefix, uri); err != nil {
		return &pgerr.DatabaseError{SQL: stmt, Err: err}
	}
	return nil
}

// Lookup resolves a single prefix to its URI. ok is false if no row exists.
func (s *Store) Lookup(ctx context.Context, prefix string) (uri string, ok bool, err error) {
	stmt := fmt.Sprintf(`SELECT uri FROM %s WHERE prefix = $1`, s.table)
	row := s.db.QueryRowContext(ctx, stmt, prefix)
	if scanErr := row.Scan(&uri); scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, &pgerr.DatabaseError{SQL: stmt, Err: scanErr}
	}
	return uri, true, nil
}

// All returns every registered prefix->URI mapping.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	stmt := fmt.Sprintf(`SELECT prefix, uri FROM %s`, s.table)
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, &pgerr.DatabaseError{SQL: stmt, Err: err}
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var prefix, uri string
		if err := rows.Scan(&prefix, &uri); err != nil {
			return nil, &pgerr.DatabaseError{SQL: stmt, Err: err}
		}
		out[prefix] = uri
	}
	if err := rows.Err(); err != nil {
		return nil, &pgerr.DatabaseError{SQL: stmt, Err: err}
	}
	return out, nil
}

// Remove deletes a single prefix mapping. Removing a mapping that does not
// exist is not an error.
func (s *Store) Remove(ctx context.Context, prefix string) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE prefix = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, prefix); err != nil {
		return &pgerr.DatabaseError{SQL: stmt, Err: err}
	}
	return nil
}

// LoadAll upserts every entry of m, one Set call per entry. Prefixes
// already in the table that m does not mention are left as they are. Callers wrap this in a transaction-backed DB when an
// all-or-nothing load is required; Store itself has no transaction of its
// own since pgstore.DB is the shared per-space handle.
func (s *Store) LoadAll(ctx context.Context, m map[string]string) error {
	for prefix, uri := range m {
		if err := s.Set(ctx, prefix, uri); err != nil {
			return err
		}
	}
	return nil
}
