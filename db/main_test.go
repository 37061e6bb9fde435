package db_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"Gin_postgres_redis_library/config"
	"Gin_postgres_redis_library/db"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	// Start PostgreSQL container once for all tests
	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("biblioteca"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Postgres container unavailable, integration tests will skip: %v\n", err)
		return m.Run()
	}
	defer func() {
		if err := pg.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to terminate postgres container: %v\n", err)
		}
	}()

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		return 1
	}

	cfg := &config.Config{
		DatabaseURL:       dsn,
		DBMaxOpenConns:    10,
		DBMinIdleConns:    2,
		DBConnMaxLifetime: 30 * time.Minute,
		DBConnMaxIdleTime: 10 * time.Minute,
		DBConnectTimeout:  30 * time.Second,
	}
	testDB, err = db.Connect(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to test database: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close(testDB) }()

	if err := db.Migrate(testDB); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run migrations: %v\n", err)
		return 1
	}

	return m.Run()
}

// setupTestDB skips without a database and empties all tables after the test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if testDB == nil {
		t.Skip("Skipping integration test, no database")
	}

	t.Cleanup(func() {
		if err := testDB.Exec("TRUNCATE usuarios, libros, prestamos RESTART IDENTITY").Error; err != nil {
			t.Logf("Failed to truncate tables: %v", err)
		}
	})
	return testDB
}
