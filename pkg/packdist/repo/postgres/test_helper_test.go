package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packdist/pkg/packdist"
	"github.com/packforge/packdist/pkg/packdist/repo/postgres"
)

// TestDB represents a test database connection
type TestDB struct {
	Pool *pgxpool.Pool
}

// NewTestDB creates a new test database connection. The DSN comes from
// TEST_DATABASE_URL; without it the caller is expected to have skipped.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")

	err = pool.Ping(ctx)
	require.NoError(t, err, "Failed to ping test database")

	return &TestDB{
		Pool: pool,
	}
}

// Setup applies the embedded schema migrations to the test database.
func (db *TestDB) Setup(t *testing.T) {
	t.Helper()

	err := postgres.RunMigrations(context.Background(), os.Getenv("TEST_DATABASE_URL"))
	require.NoError(t, err, "Failed to migrate test database")
}

// Cleanup removes all test data from the database
func (db *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	// Clean up tables in reverse order of dependencies
	_, err := db.Pool.Exec(ctx, "TRUNCATE individual_file CASCADE")
	require.NoError(t, err, "Failed to truncate individual_file table")

	_, err = db.Pool.Exec(ctx, "TRUNCATE category_file CASCADE")
	require.NoError(t, err, "Failed to truncate category_file table")

	_, err = db.Pool.Exec(ctx, "TRUNCATE modpack_version CASCADE")
	require.NoError(t, err, "Failed to truncate modpack_version table")
}

// Close closes the database connection
func (db *TestDB) Close(t *testing.T) {
	t.Helper()
	db.Pool.Close()
}

// RunTest runs a test with database setup and cleanup
func RunTest(t *testing.T, testFunc func(t *testing.T, db *TestDB)) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database test")
	}

	db := NewTestDB(t)
	defer db.Close(t)

	db.Setup(t)

	t.Run("", func(t *testing.T) {
		// Clean up before the test
		db.Cleanup(t)

		testFunc(t, db)
	})
}

// seedVersion inserts a version row directly; version lifecycle is owned
// outside the repository, so there is no write method to go through.
func seedVersion(t *testing.T, db *TestDB, modpackID uuid.UUID, name string, releasedAt *time.Time) *packdist.Version {
	t.Helper()

	state := packdist.VersionStateDraft
	if releasedAt != nil {
		state = packdist.VersionStatePublished
	}
	version := &packdist.Version{
		ID:         uuid.New(),
		ModpackID:  modpackID,
		Name:       name,
		McVersion:  "1.20.1",
		State:      state,
		ReleasedAt: releasedAt,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := db.Pool.Exec(context.Background(), `
        INSERT INTO modpack_version (id, modpack_id, name, mc_version, forge_version, state, released_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		version.ID, version.ModpackID, version.Name, version.McVersion,
		version.ForgeVersion, version.State, version.ReleasedAt, version.CreatedAt)
	require.NoError(t, err, "Failed to seed modpack version")

	return version
}

func newCategoryFile(versionID, modpackID uuid.UUID, category packdist.Category, hash string) (*packdist.CategoryFile, []packdist.IndividualFile) {
	cf := &packdist.CategoryFile{
		ID:              uuid.New(),
		VersionID:       versionID,
		ModpackID:       modpackID,
		Category:        category,
		ArchiveHash:     hash,
		FileCount:       2,
		TotalSize:       30,
		OriginVersionID: versionID,
		CreatedAt:       time.Now().UTC(),
	}
	files := []packdist.IndividualFile{
		{ID: uuid.New(), CategoryFileID: cf.ID, RelativePath: "a.jar", ContentHash: "h-a-" + hash, Size: 10},
		{ID: uuid.New(), CategoryFileID: cf.ID, RelativePath: "b.jar", ContentHash: "h-b-" + hash, Size: 20},
	}
	return cf, files
}
