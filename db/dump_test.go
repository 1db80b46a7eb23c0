package db

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	d, err := Open(context.Background(),
		fmt.Sprintf("file:db-%x?mode=memory&cache=shared", rndName), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func TestDump(t *testing.T) {
	t.Parallel()

	d := openTestDB(t)
	ctx := d.NewContext()

	_, err := d.ExecContext(ctx, `CREATE TABLE "foobar" (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL,
		value INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	_, err = d.ExecContext(ctx,
		`INSERT INTO "foobar" ("data", "value") VALUES ('hello', 1), ('world', 2)`)
	require.NoError(t, err)
	_, err = d.ExecContext(ctx, `CREATE INDEX "foobar_value_idx" ON "foobar" (value)`)
	require.NoError(t, err)

	dump, err := d.Dump(ctx)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(dump, "\n"), "\n")
	assert.Equal(t, "PRAGMA foreign_keys=OFF;", lines[0])
	assert.Equal(t, "BEGIN TRANSACTION;", lines[1])
	assert.Equal(t, "COMMIT;", lines[len(lines)-1])

	assert.Contains(t, dump, `CREATE TABLE "foobar"`)
	assert.Contains(t, dump, "INSERT INTO foobar (data,id,value) VALUES('hello',1,1);")
	assert.Contains(t, dump, "INSERT INTO foobar (data,id,value) VALUES('world',2,2);")
	assert.Contains(t, dump, `CREATE INDEX "foobar_value_idx"`)
	// Internal sqlite_* objects can't be recreated by DDL.
	assert.NotContains(t, dump, "sqlite_sequence")
}

func TestBeginExclusive(t *testing.T) {
	t.Parallel()

	d := openTestDB(t)
	ctx := d.NewContext()

	tx, err := d.BeginExclusive(ctx)
	require.NoError(t, err)

	_, err = d.BeginExclusive(ctx)
	assert.ErrorContains(t, err, "transaction in progress")

	require.NoError(t, tx.Commit())
	// Rollback after commit is a safe no-op.
	require.NoError(t, tx.Rollback())

	tx2, err := d.BeginExclusive(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
}
