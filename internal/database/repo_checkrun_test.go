package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) func() {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "failed to create test database")

	require.NoError(t, db.AutoMigrate(&CheckRun{}), "failed to migrate test database")

	DB = db

	return func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		DB = nil
	}
}

func seedRuns(t *testing.T, repo *CheckRunRepo) {
	t.Helper()
	runs := []CheckRun{
		{RunID: "r1", Instance: "https://a.service-now.com", CheckName: "connect", Success: true, Source: "rest"},
		{RunID: "r2", Instance: "https://a.service-now.com", CheckName: "cors_rule", Success: false, Source: "mcp"},
		{RunID: "r3", Instance: "https://b.service-now.com", CheckName: "connect", Success: true, Source: "mcp"},
	}
	for i := range runs {
		require.NoError(t, repo.Create(&runs[i]))
	}
}

func TestCheckRunRepo_Create(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCheckRunRepo()
	run := &CheckRun{
		RunID:      "run-1",
		Instance:   "https://example.service-now.com",
		CheckName:  "report",
		Success:    true,
		DurationMs: 120,
		Detail:     `{"success":true}`,
		Source:     "rest",
	}
	require.NoError(t, repo.Create(run))
	assert.NotZero(t, run.ID)
	assert.NotZero(t, run.CreatedAt)
}

func TestCheckRunRepo_ListAll(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCheckRunRepo()
	seedRuns(t, repo)

	runs, total, err := repo.List(CheckRunFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, runs, 3)
}

func TestCheckRunRepo_ListFilters(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCheckRunRepo()
	seedRuns(t, repo)

	runs, total, err := repo.List(CheckRunFilter{CheckName: "connect"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, run := range runs {
		assert.Equal(t, "connect", run.CheckName)
	}

	runs, total, err = repo.List(CheckRunFilter{Instance: "https://b.service-now.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "r3", runs[0].RunID)

	_, total, err = repo.List(CheckRunFilter{Source: "mcp"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestCheckRunRepo_ListSortWhitelist(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCheckRunRepo()
	seedRuns(t, repo)

	runs, _, err := repo.List(CheckRunFilter{SortBy: "check_name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, "connect", runs[0].CheckName)
	assert.Equal(t, "cors_rule", runs[2].CheckName)

	// Anything outside the column whitelist falls back to created_at and
	// never reaches raw SQL.
	for _, sortBy := range []string{
		"created_at;--broken",
		"(SELECT CASE WHEN (SELECT count(*) FROM check_runs) > 0 THEN created_at ELSE id END)",
		"nonexistent",
	} {
		runs, total, err := repo.List(CheckRunFilter{SortBy: sortBy})
		require.NoError(t, err, "sort_by %q", sortBy)
		assert.Equal(t, int64(3), total)
		assert.Len(t, runs, 3)
	}

	_, _, err = repo.List(CheckRunFilter{SortBy: "created_at", SortOrder: "desc; DROP TABLE check_runs"})
	require.NoError(t, err)
	_, total, err := repo.List(CheckRunFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestCheckRunRepo_ListPaging(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCheckRunRepo()
	seedRuns(t, repo)

	runs, total, err := repo.List(CheckRunFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, runs, 2)

	runs, _, err = repo.List(CheckRunFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
