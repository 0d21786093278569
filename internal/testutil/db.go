// Package testutil holds helpers for integration tests. They skip when
// TEST_DATABASE_URL is not set so unit tests run without a database.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

const DatabaseURLEnv = "TEST_DATABASE_URL"

// NewPool connects to TEST_DATABASE_URL and closes the pool when the test
// finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(DatabaseURLEnv)
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// MustOpenPool is NewPool for TestMain, where no *testing.T exists.
// Callers close the pool.
func MustOpenPool(dsn string) *pgxpool.Pool {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		panic("testutil.MustOpenPool: open: " + err.Error())
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		panic("testutil.MustOpenPool: ping: " + err.Error())
	}
	return pool
}
