package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests for database operations. They run against a local
// PostgreSQL and skip when none is reachable.

func setupTestDB(t *testing.T) (*Database, context.Context) {
	ctx := context.Background()

	cfg := Config{
		Host:     envOr("TEST_DATABASE_HOST", "localhost"),
		Port:     envOr("TEST_DATABASE_PORT", "5432"),
		Database: envOr("TEST_DATABASE_NAME", "nba_forecasting_test"),
		User:     envOr("TEST_DATABASE_USER", "nba_user"),
		Password: envOr("TEST_DATABASE_PASSWORD", "nba_password"),
		SSLMode:  "disable",
	}

	db, err := NewDatabase(ctx, cfg)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	require.NoError(t, db.EnsureSchema(ctx), "Failed to ensure schema")

	// Each test starts from an empty store
	_, err = db.Pool.Exec(ctx, "TRUNCATE boxscores, games")
	require.NoError(t, err)

	return db, ctx
}

func teardownTestDB(t *testing.T, db *Database) {
	db.Close()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestDatabaseConnection(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	err := db.Health(ctx)
	assert.NoError(t, err, "Database health check should pass")

	stats := db.PoolStats()
	assert.NotNil(t, stats, "Should return connection pool stats")
	assert.GreaterOrEqual(t, stats["max_conns"].(int32), int32(1), "Should have at least 1 max connection")
}

func TestDatabasePing(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := db.Pool.Ping(ctx)
	assert.NoError(t, err, "Should successfully ping database")
}
