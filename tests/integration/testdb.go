// Package integration provides integration testing utilities for the
// delivery integration service. A single PostgreSQL container is shared
// by every test in the package; each test gets its own freshly migrated
// database inside it, so tests stay isolated without paying container
// startup per test.
package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	pgOnce     sync.Once
	pgMu       sync.Mutex
	pgInstance testcontainers.Container
	pgAdminDSN string
	pgStartErr error
	dbSeq      atomic.Int64
)

// TestDB is a per-test database inside the shared PostgreSQL container.
type TestDB struct {
	DB    *gorm.DB
	sqlDB *sql.DB
	t     *testing.T
}

// NewTestDB returns a connection to a fresh, fully migrated database.
// The backing container is started on first use and torn down by
// StopPostgres from TestMain.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()
	adminDSN := startPostgres(t, ctx)

	name := fmt.Sprintf("moby_test_%d", dbSeq.Add(1))
	createDatabase(t, ctx, adminDSN, name)

	db, sqlDB := openGorm(t, databaseDSN(adminDSN, name))
	runMigrations(t, sqlDB)

	testDB := &TestDB{DB: db, sqlDB: sqlDB, t: t}
	t.Cleanup(func() {
		testDB.sqlDB.Close()
	})
	return testDB
}

// startPostgres launches the shared container on first call and returns
// the DSN of its admin database.
func startPostgres(t *testing.T, ctx context.Context) string {
	t.Helper()

	pgOnce.Do(func() {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("postgres"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("admin123"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			pgStartErr = fmt.Errorf("start postgres container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			pgStartErr = fmt.Errorf("resolve connection string: %w", err)
			return
		}

		pgMu.Lock()
		pgInstance = container
		pgAdminDSN = dsn
		pgMu.Unlock()
	})
	require.NoError(t, pgStartErr)
	return pgAdminDSN
}

// createDatabase provisions an empty database for a single test.
func createDatabase(t *testing.T, ctx context.Context, adminDSN, name string) {
	t.Helper()

	admin, err := sql.Open("postgres", adminDSN)
	require.NoError(t, err, "Failed to open admin connection")
	defer admin.Close()

	_, err = admin.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", name))
	require.NoError(t, err, "Failed to create test database")
}

// databaseDSN rewrites the admin DSN to point at the given database.
func databaseDSN(adminDSN, name string) string {
	return strings.Replace(adminDSN, "/postgres?", "/"+name+"?", 1)
}

// openGorm connects GORM to the database with logging suited for tests.
// Set TEST_DB_DEBUG to see the SQL a failing test actually ran.
func openGorm(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")

	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

// runMigrations applies every migration to the test database.
func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	migrationsPath := findMigrationsPath()
	require.NotEmpty(t, migrationsPath, "Could not find migrations directory")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err, "Failed to create migration driver")

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	require.NoError(t, err, "Failed to create migrate instance")

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err, "Failed to run migrations")
	}
}

// findMigrationsPath walks up from this file to the repository root and
// returns its migrations directory.
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}

	dir := filepath.Dir(filename)
	for range 5 {
		candidate := filepath.Join(dir, "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return ""
}

// CleanTables truncates every table except schema_migrations, resetting
// sequences so repeated subtests see deterministic IDs.
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	if len(tables) == 0 {
		return
	}

	stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	require.NoError(tdb.t, tdb.DB.Exec(stmt).Error, "Failed to truncate tables")
}

// StopPostgres terminates the shared container. Call it from TestMain
// after m.Run.
func StopPostgres() {
	pgMu.Lock()
	defer pgMu.Unlock()

	if pgInstance != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pgInstance.Terminate(ctx)
		pgInstance = nil
		pgAdminDSN = ""
	}
}

// CreateTestIntegration inserts a minimal integration row. Tables holding
// platform payloads reference integrations, so most tests need one.
func (tdb *TestDB) CreateTestIntegration(id, costCenterID uuid.UUID, provider, status string) {
	tdb.t.Helper()

	err := tdb.DB.Exec(`
		INSERT INTO integrations
			(id, provider, type, name, credentials, sandbox, status,
			 sync_interval_minutes, cost_center_id, created_at, updated_at)
		VALUES (?, ?, 'SALES', ?, 'sealed', true, ?, 5, ?, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
	`, id, provider, fmt.Sprintf("Test %s integration", provider), status, costCenterID).Error
	require.NoError(tdb.t, err, "Failed to create test integration")
}
