// SPDX-License-Identifier: Apache-2.0

package pgstore

import (
	"context"
	"database/sql"
)

// FakeDB is a no-op DB, used by compiler-only unit tests that construct an
// engine without ever touching Postgres. Grounded on the teacher's
// pkg/db/fake.go.
type FakeDB struct{}

func (db *FakeDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (db *FakeDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (db *FakeDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (db *FakeDB) WithRetryableTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	return nil
}

func (db *FakeDB) Close() error {
	return nil
}
