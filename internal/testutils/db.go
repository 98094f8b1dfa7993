// SPDX-License-Identifier: Apache-2.0

// Package testutils starts one shared Postgres container for a test binary
// and hands each test a freshly created database and a ready-to-use engine,
// the same shared-container-plus-per-test-database pattern the teacher
// migration tool uses for its own integration suite.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vital-ai/vital-graph-sub011/pkg/engine"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
)

const defaultPostgresVersion = "15.3"

var tConnStr string

// SharedTestMain starts a Postgres container shared by every test in the
// calling package. Each test connects to the container and creates its own
// database, so spaces never collide across tests.
func SharedTestMain(m *testing.M) {
	ctx := context.Background()

	waitForLogs := wait.
		ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(5 * time.Second)

	pgVersion := os.Getenv("POSTGRES_VERSION")
	if pgVersion == "" {
		pgVersion = defaultPostgresVersion
	}

	ctr, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:"+pgVersion),
		testcontainers.WithWaitStrategy(waitForLogs),
	)
	if err != nil {
		os.Exit(1)
	}

	tConnStr, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		os.Exit(1)
	}

	exitCode := m.Run()

	if err := ctr.Terminate(ctx); err != nil {
		log.Printf("failed to terminate postgres container: %v", err)
	}

	os.Exit(exitCode)
}

func randomDBName() string {
	const length = 15
	const charset = "abcdefghijklmnopqrstuvwxyz"

	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))] // #nosec G404
	}

	return "testdb_" + string(b)
}

// setupTestDatabase creates a fresh database inside the shared container and
// returns a connection string scoped to it.
func setupTestDatabase(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	adminDB, err := sql.Open("postgres", tConnStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := adminDB.Close(); err != nil {
			t.Fatalf("failed to close admin connection: %v", err)
		}
	})

	dbName := randomDBName()
	_, err = adminDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName)))
	if err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(tConnStr)
	if err != nil {
		t.Fatal(err)
	}
	u.Path = "/" + dbName
	return u.String()
}

// WithEngine creates a fresh database, opens an engine against it with
// prefix "vg" and the given space id, creates the space's tables, and hands
// both to fn. The engine is closed automatically.
func WithEngine(t *testing.T, spaceID string, opts []engine.Option, fn func(e *engine.Engine)) {
	t.Helper()
	ctx := context.Background()

	connStr := setupTestDatabase(t)

	e, err := engine.New(ctx, connStr, "vg", spaceID, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := e.Close(); err != nil {
			t.Fatalf("failed to close engine: %v", err)
		}
	})

	if err := e.CreateSpace(ctx, false); err != nil {
		t.Fatal(err)
	}

	fn(e)
}

// WithConnection creates a fresh database and hands its connection string
// and computed table Names to fn, for tests that exercise pkg/pgstore,
// pkg/termstore, or pkg/quadstore directly without the engine facade.
func WithConnection(t *testing.T, spaceID string, fn func(connStr string, names storage.Names)) {
	t.Helper()

	connStr := setupTestDatabase(t)
	names, err := storage.NewNames("vg", spaceID)
	if err != nil {
		t.Fatal(err)
	}

	fn(connStr, names)
}
