// SPDX-License-Identifier: Apache-2.0

package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryPool is the dictionary-row pool result shaping runs against. It is
// kept separate from the ingest RDB because query execution wants pgx's
// binary protocol and FieldDescriptions() for column typing, while ingest
// wants lib/pq's simpler tuple-at-a-time Exec/Query surface.
type QueryPool struct {
	pool *pgxpool.Pool
}

// NewQueryPool opens a pgxpool against connString.
func NewQueryPool(ctx context.Context, connString string) (*QueryPool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing query pool dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening query pool: %w", err)
	}
	return &QueryPool{pool: pool}, nil
}

func (p *QueryPool) Close() {
	p.pool.Close()
}

// Cursor wraps a single server-side DECLARE ... CURSOR, fetched forward in
// pages. A Cursor owns its own pgx.Tx: the cursor only lives for the
// lifetime of that transaction, and the transaction is always rolled back
// (never committed) on Close, since the cursor's declaring transaction
// does no writes and has nothing to persist.
type Cursor struct {
	tx       pgx.Tx
	name     string
	pageSize int
	closed   bool
}

// DefaultCursorPageSize is the number of rows FETCH FORWARD pulls per
// round trip when the caller does not override it.
const DefaultCursorPageSize = 1000

// DeclareCursor opens a transaction on pool, declares a read-only,
// NO SCROLL, server-side cursor over query, and returns it ready for
// repeated FetchPage calls. name must be unique within the transaction.
func (p *QueryPool) DeclareCursor(ctx context.Context, name, query string, pageSize int, args ...any) (*Cursor, error) {
	if pageSize <= 0 {
		pageSize = DefaultCursorPageSize
	}
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning cursor transaction: %w", err)
	}
	declare := fmt.Sprintf("DECLARE %s NO SCROLL CURSOR FOR %s", pgx.Identifier{name}.Sanitize(), query)
	if _, err := tx.Exec(ctx, declare, args...); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("declaring cursor: %w", err)
	}
	return &Cursor{tx: tx, name: name, pageSize: pageSize}, nil
}

// FetchPage pulls up to the cursor's page size of rows. The caller must
// fully consume (or Close) the returned rows before calling FetchPage
// again. An empty, non-error result means the cursor is exhausted.
func (c *Cursor) FetchPage(ctx context.Context) (pgx.Rows, error) {
	if c.closed {
		return nil, fmt.Errorf("fetching from closed cursor %q", c.name)
	}
	fetch := fmt.Sprintf("FETCH FORWARD %d FROM %s", c.pageSize, pgx.Identifier{c.name}.Sanitize())
	return c.tx.Query(ctx, fetch)
}

// Close releases the cursor by rolling back its owning transaction.
func (c *Cursor) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.tx.Rollback(ctx)
}
