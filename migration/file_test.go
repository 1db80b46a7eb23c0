package migration

import (
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2025, 4, 2, 15, 8, 54, 407e6, time.UTC)
	assert.Equal(t, "-- Migration number: 0001 \t 2025-04-02T15:08:54.407Z",
		Header(1, createdAt))

	// Non-UTC timestamps are converted to UTC.
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "-- Migration number: 0023 \t 2025-04-02T15:08:54.407Z",
		Header(23, createdAt.In(est)))
}

func TestParseHeader(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		number, createdAt, err := ParseHeader("-- Migration number: 0001 \t 2025-04-02T15:08:54.407Z")
		require.NoError(t, err)
		assert.Equal(t, 1, number)
		assert.Equal(t, time.Date(2025, 4, 2, 15, 8, 54, 407e6, time.UTC), createdAt)
	})

	t.Run("round_trip", func(t *testing.T) {
		t.Parallel()
		createdAt := time.Date(2031, 12, 31, 23, 59, 59, 999e6, time.UTC)
		number, parsed, err := ParseHeader(Header(7042, createdAt))
		require.NoError(t, err)
		assert.Equal(t, 7042, number)
		assert.True(t, parsed.Equal(createdAt))
	})

	errTests := []struct {
		name   string
		header string
	}{
		{"no_tab", "-- Migration number: 0001 2025-04-02T15:08:54.407Z"},
		{"too_many_fields", "-- Migration number: 0001 \t 2025-04-02T15:08:54.407Z \t extra"},
		{"bad_number", "-- Migration number: one \t 2025-04-02T15:08:54.407Z"},
		{"bad_time", "-- Migration number: 0001 \t yesterday"},
		{"empty", ""},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := ParseHeader(tt.header)
			assert.Error(t, err)
		})
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		number  int
		exp     string
	}{
		{"simple", "this is a test", 5, "0005_this_is_a_test.sql"},
		{"messy", " &THIS?  @ IS-A  TEST! ", 5, "0005_this_is_a_test.sql"},
		{"hyphens", "add-user-table", 12, "0012_add_user_table.sql"},
		{"padding", "x", 1, "0001_x.sql"},
		{"no_safe_characters", "!!!", 2, "0002_migration.sql"},
		{"only_separators", " -- ", 3, "0003_migration.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Filename(tt.message, tt.number)
			assert.Equal(t, tt.exp, got)
			assert.Regexp(t, `^\d{4}_[a-z0-9_]+\.sql$`, got)
		})
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	dir := "/migrations"
	require.NoError(t, fs.MkdirAll(dir, 0o755))

	latest, err := Latest(fs, dir)
	require.NoError(t, err)
	assert.Empty(t, latest)

	require.NoError(t, vfs.WriteFile(fs, dir+"/0001_initial_migration.sql", nil, 0o644))
	latest, err = Latest(fs, dir)
	require.NoError(t, err)
	assert.Equal(t, "0001_initial_migration.sql", latest)

	require.NoError(t, vfs.WriteFile(fs, dir+"/0002_update_table.sql", nil, 0o644))
	latest, err = Latest(fs, dir)
	require.NoError(t, err)
	assert.Equal(t, "0002_update_table.sql", latest)

	// A .sql file violating the naming convention corrupts the directory.
	require.NoError(t, vfs.WriteFile(fs, dir+"/notamigration.sql", nil, 0o644))
	_, err = Latest(fs, dir)
	assert.ErrorContains(t, err, "unexpected migration file")
}

func TestLatestNonSQLFile(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	dir := "/migrations"
	require.NoError(t, fs.MkdirAll(dir, 0o755))
	require.NoError(t, vfs.WriteFile(fs, dir+"/0001_initial_migration.sql", nil, 0o644))
	require.NoError(t, vfs.WriteFile(fs, dir+"/readme.txt", nil, 0o644))

	_, err := Latest(fs, dir)
	assert.ErrorContains(t, err, "must only contain sql files")
}

func TestReadHeader(t *testing.T) {
	t.Parallel()

	fs := memoryfs.New()
	require.NoError(t, fs.MkdirAll("/migrations", 0o755))

	content := "-- Migration number: 0003 \t 2025-04-02T15:08:54.407Z\nPRAGMA foreign_keys=OFF;\n"
	require.NoError(t,
		vfs.WriteFile(fs, "/migrations/0003_add_data.sql", []byte(content), 0o644))

	number, createdAt, err := ReadHeader(fs, "/migrations/0003_add_data.sql")
	require.NoError(t, err)
	assert.Equal(t, 3, number)
	assert.Equal(t, time.Date(2025, 4, 2, 15, 8, 54, 407e6, time.UTC), createdAt)

	require.NoError(t, vfs.WriteFile(fs, "/migrations/0004_empty.sql", nil, 0o644))
	_, _, err = ReadHeader(fs, "/migrations/0004_empty.sql")
	assert.ErrorContains(t, err, "empty")
}
