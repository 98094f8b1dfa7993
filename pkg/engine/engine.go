// SPDX-License-Identifier: Apache-2.0

// Package engine is the public entry point: it wires pgstore, storage,
// termstore, quadstore, the SPARQL parser and translator, assemble,
// sparqlupdate, and resultshape into the three operations a caller
// actually needs (run a query, run an update, run raw SQL), plus space
// lifecycle management. Grounded on pkg/roll/roll.go's own role as the
// teacher's single wiring point over pkg/db, pkg/migrations, and pkg/state.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vital-ai/vital-graph-sub011/pkg/assemble"
	"github.com/vital-ai/vital-graph-sub011/pkg/namespace"
	"github.com/vital-ai/vital-graph-sub011/pkg/pgerr"
	"github.com/vital-ai/vital-graph-sub011/pkg/pgstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/quadstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/resultshape"
	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/ast"
	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/parser"
	"github.com/vital-ai/vital-graph-sub011/pkg/sparqlupdate"
	"github.com/vital-ai/vital-graph-sub011/pkg/sql2sparqlpg"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
	"github.com/vital-ai/vital-graph-sub011/pkg/termcache"
	"github.com/vital-ai/vital-graph-sub011/pkg/termstore"
	"github.com/vital-ai/vital-graph-sub011/pkg/xlog"
)

// Engine is a single space's entry point: one ingest connection, one query
// pool, and the stores layered over them.
type Engine struct {
	db    pgstore.DB
	pool  *pgstore.QueryPool
	names storage.Names

	terms *termstore.Store
	quads *quadstore.Store
	ns    *namespace.Store
	cache *termcache.Cache

	spaceID    string
	diagnostic bool
	unlogged   bool
	log        xlog.Logger
}

// New opens an Engine for (prefix, spaceID) against pgURL. The space's
// tables must already exist (see CreateSpace) before queries against it
// will succeed.
func New(ctx context.Context, pgURL, prefix, spaceID string, opts ...Option) (*Engine, error) {
	names, err := storage.NewNames(prefix, spaceID)
	if err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	conn, err := sql.Open("postgres", pgURL)
	if err != nil {
		return nil, fmt.Errorf("opening ingest connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	db := &pgstore.RDB{DB: conn}

	pool, err := pgstore.NewQueryPool(ctx, pgURL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening query pool: %w", err)
	}

	var cache *termcache.Cache
	if o.termCacheCapacity >= 0 {
		cache, err = termcache.New(o.termCacheCapacity)
		if err != nil {
			return nil, fmt.Errorf("constructing term cache: %w", err)
		}
	}

	terms := termstore.New(db, names, cache)
	quads := quadstore.New(db, names, terms)
	ns := namespace.New(db, names)

	return &Engine{
		db:         db,
		pool:       pool,
		names:      names,
		terms:      terms,
		quads:      quads,
		ns:         ns,
		cache:      cache,
		spaceID:    spaceID,
		diagnostic: o.diagnostic,
		unlogged:   o.unlogged,
		log:        xlog.New(),
	}, nil
}

// Close releases the ingest connection and the query pool.
func (e *Engine) Close() error {
	e.pool.Close()
	return e.db.Close()
}

// Names returns the four physical table names backing this space.
func (e *Engine) Names() storage.Names {
	return e.names
}

// Terms returns the term dictionary store for direct use by callers that
// need term-level operations outside a SPARQL query or update (bulk
// ingest pipelines, administrative tooling).
func (e *Engine) Terms() *termstore.Store {
	return e.terms
}

// Quads returns the quad store for direct use the same way Terms does.
func (e *Engine) Quads() *quadstore.Store {
	return e.quads
}

// Namespaces returns the prefix/URI table for this space.
func (e *Engine) Namespaces() *namespace.Store {
	return e.ns
}

// CreateSpace bootstraps the four tables this Engine's names point at. The
// tables are UNLOGGED when unlogged is true or the Engine was built with
// WithUnloggedTables.
func (e *Engine) CreateSpace(ctx context.Context, unlogged bool) error {
	return storage.Create(ctx, e.db, e.names, storage.CreateOptions{Unlogged: unlogged || e.unlogged})
}

// DropSpace removes all four tables. Irreversible.
func (e *Engine) DropSpace(ctx context.Context) error {
	if e.cache != nil {
		e.cache.Purge()
	}
	return storage.Drop(ctx, e.db, e.names)
}

// LoadPrefixFile bulk-loads a prefixes.yaml document into the namespace
// table.
func (e *Engine) LoadPrefixFile(ctx context.Context, data []byte) error {
	m, err := namespace.ParsePrefixFile(data)
	if err != nil {
		return err
	}
	return e.ns.LoadAll(ctx, m)
}

// QueryResult is the shaped result of ExecuteSPARQLQuery, exactly one of
// whose fields is populated depending on the query's form.
type QueryResult struct {
	Form      ast.QueryForm
	Select    *resultshape.SelectResult
	Construct *resultshape.ConstructResult
	Ask       *resultshape.AskResult
}

// ExecuteSPARQLQuery parses, translates, assembles, and executes a SPARQL
// 1.1 query, returning its result shaped per the query's form.
func (e *Engine) ExecuteSPARQLQuery(ctx context.Context, sparqlText string, limits resultshape.Limits) (*QueryResult, error) {
	q, err := parser.Parse(sparqlText)
	if err != nil {
		return nil, err
	}

	a, err := assemble.Assemble(e.names, q)
	if err != nil {
		return nil, err
	}
	e.classify(a.SQL)

	e.log.LogQueryStart(e.spaceID, string(q.Form))

	result := &QueryResult{Form: q.Form}
	switch q.Form {
	case ast.FormSelect:
		sel, err := resultshape.ExecuteSelect(ctx, e.pool, a, limits)
		if err != nil {
			return nil, err
		}
		result.Select = sel
		e.log.LogQueryComplete(e.spaceID, string(q.Form), len(sel.Bindings), sel.Truncated)
	case ast.FormAsk:
		ask, err := resultshape.ExecuteAsk(ctx, e.pool, a)
		if err != nil {
			return nil, err
		}
		result.Ask = ask
		e.log.LogQueryComplete(e.spaceID, string(q.Form), 1, false)
	case ast.FormConstruct, ast.FormDescribe:
		con, err := resultshape.ExecuteConstruct(ctx, e.pool, a, limits)
		if err != nil {
			return nil, err
		}
		result.Construct = con
		e.log.LogQueryComplete(e.spaceID, string(q.Form), len(con.Triples), con.Truncated)
	default:
		return nil, &pgerr.TranslationError{Node: string(q.Form), Reason: "unsupported query form"}
	}
	return result, nil
}

// ExecuteSPARQLUpdate parses and runs a SPARQL 1.1 Update request.
func (e *Engine) ExecuteSPARQLUpdate(ctx context.Context, updateText string) error {
	req, err := parser.ParseUpdate(updateText)
	if err != nil {
		return err
	}
	e.log.LogUpdateStart(e.spaceID, "UPDATE")
	ex := sparqlupdate.New(e.db, e.names, e.quads, e.terms)
	if err := ex.Execute(ctx, req); err != nil {
		return err
	}
	e.log.LogUpdateComplete(e.spaceID, "UPDATE")
	return nil
}

// ExecuteSQLQuery is the escape hatch spec.md §7 asks for: run raw SQL
// directly against this space's tables, bypassing the SPARQL compiler
// entirely. Results are shaped the same way a SELECT query's rows are,
// without a case map, since there is no SPARQL variable to recover.
func (e *Engine) ExecuteSQLQuery(ctx context.Context, sqlText string, limits resultshape.Limits) (*resultshape.SelectResult, error) {
	e.classify(sqlText)
	return resultshape.ExecuteSelect(ctx, e.pool, &assemble.Assembled{SQL: sqlText}, limits)
}

// classify runs sqlText through pkg/sql2sparqlpg for diagnostic logging
// only, when diagnostic mode is enabled. A classification failure is
// logged, never returned: it must not block execution of SQL the
// translator itself already produced.
func (e *Engine) classify(sqlText string) {
	if !e.diagnostic {
		return
	}
	c, err := sql2sparqlpg.Classify(sqlText)
	if err != nil {
		e.log.Error("diagnostic: failed to classify generated SQL", "error", err)
		return
	}
	e.log.Info("diagnostic: generated SQL", "kind", string(c.Kind), "tables", c.Tables)
}
