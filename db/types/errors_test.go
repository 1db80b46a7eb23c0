package types_test

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/d1migrate/db"
	"go.hackfix.me/d1migrate/db/types"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()

	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	d, err := db.Open(context.Background(),
		fmt.Sprintf("file:types-%x?mode=memory&cache=shared", rndName), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func TestErr(t *testing.T) {
	t.Parallel()

	d := openTestDB(t)
	ctx := d.NewContext()

	_, err := d.ExecContext(ctx, `CREATE TABLE "foobar" (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL UNIQUE,
		value INTEGER NOT NULL CHECK (value > 0)
	)`)
	require.NoError(t, err)
	_, err = d.ExecContext(ctx, `INSERT INTO "foobar" ("data", "value") VALUES ('a', 1)`)
	require.NoError(t, err)

	t.Run("duplicate", func(t *testing.T) {
		_, err := d.ExecContext(ctx, `INSERT INTO "foobar" ("data", "value") VALUES ('a', 2)`)
		require.Error(t, err)

		var dupErr *types.DuplicateError
		mapped := types.Err("row", "data 'a'", err)
		require.ErrorAs(t, mapped, &dupErr)
		assert.Equal(t, "row with data 'a' already exists", mapped.Error())
	})

	t.Run("integrity", func(t *testing.T) {
		_, err := d.ExecContext(ctx, `INSERT INTO "foobar" ("data", "value") VALUES ('b', 0)`)
		require.Error(t, err)

		var integErr *types.IntegrityError
		mapped := types.Err("row", "data 'b'", err)
		require.ErrorAs(t, mapped, &integErr)
	})

	t.Run("invalid_input", func(t *testing.T) {
		_, err := d.ExecContext(ctx, `INSERT INTO "missing" ("data") VALUES ('a')`)
		require.Error(t, err)

		var invalidErr *types.InvalidInputError
		mapped := types.Err("row", "data 'a'", err)
		require.ErrorAs(t, mapped, &invalidErr)
	})

	t.Run("passthrough", func(t *testing.T) {
		plain := errors.New("not a SQLite error")
		assert.Equal(t, plain, types.Err("row", "id 1", plain))
	})
}
