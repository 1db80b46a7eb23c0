package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/d1migrate/db/changefeed"
	"go.hackfix.me/d1migrate/db/types"
)

// Precondition violations of the creation modes. Each gets a distinct
// user-facing message.
var (
	// ErrNoMigrations indicates that a mode requiring a previous migration
	// found an empty directory.
	ErrNoMigrations = errors.New("no migration files found, create an initial migration first")
	// ErrMigrationsExist indicates an initial migration was requested for a
	// directory that already contains migrations.
	ErrMigrationsExist = errors.New("migration files found, unable to create an initial migration")
	// ErrPendingChanges indicates a schema migration was requested while
	// unreplayed data changes exist.
	ErrPendingChanges = errors.New("data changes detected, create a data migration before a schema migration")
)

// Dumper produces a full SQL dump of a database, used as the body of the
// initial migration.
type Dumper interface {
	Dump(ctx context.Context) (string, error)
}

// Generator creates migration files in a directory from the state of a
// tracked database.
type Generator struct {
	fs      vfs.FileSystem
	dir     string
	timeNow func() time.Time
	logger  *slog.Logger
}

// NewGenerator creates a migration file generator for the given directory.
func NewGenerator(
	fsys vfs.FileSystem, dir string, timeNow func() time.Time, logger *slog.Logger,
) *Generator {
	if timeNow == nil {
		timeNow = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{fs: fsys, dir: dir, timeNow: timeNow, logger: logger}
}

// Latest returns the name of the latest migration file in the directory, or
// an empty string if there is none.
func (g *Generator) Latest() (string, error) {
	return Latest(g.fs, g.dir)
}

// previous returns the number and creation time parsed from the latest
// migration file's header. It fails with ErrNoMigrations if the directory
// contains no migrations.
func (g *Generator) previous() (int, time.Time, error) {
	latest, err := g.Latest()
	if err != nil {
		return 0, time.Time{}, err
	}
	if latest == "" {
		return 0, time.Time{}, ErrNoMigrations
	}

	return ReadHeader(g.fs, filepath.Join(g.dir, latest))
}

// CreateInitial writes migration number 1 containing a full database dump. It
// is only valid when no migration files exist yet.
func (g *Generator) CreateInitial(ctx context.Context, dumper Dumper) (string, error) {
	latest, err := g.Latest()
	if err != nil {
		return "", err
	}
	if latest != "" {
		return "", ErrMigrationsExist
	}

	dump, err := dumper.Dump(ctx)
	if err != nil {
		return "", fmt.Errorf("failed dumping database: %w", err)
	}

	var b strings.Builder
	b.WriteString(Header(1, g.timeNow()) + "\n")
	b.WriteString(dump)

	return g.write(Filename("initial migration", 1), b.String())
}

// CreateSchema writes an empty migration file meant to be filled in manually
// with schema changes. It fails with ErrPendingChanges if unreplayed data
// changes exist, since those must be captured in a data migration first.
func (g *Generator) CreateSchema(
	ctx context.Context, d types.Querier, message string, tables []string,
) (string, error) {
	prevNumber, prevTime, err := g.previous()
	if err != nil {
		return "", err
	}

	pending, err := changefeed.AnySince(ctx, d, prevTime, tablesFilter(tables))
	if err != nil {
		return "", err
	}
	if pending {
		return "", ErrPendingChanges
	}

	number := prevNumber + 1
	return g.write(Filename(message, number), Header(number, g.timeNow())+"\n")
}

// CreateData writes a migration file replaying all change events captured
// since the previous migration, optionally restricted to a subset of tables,
// wrapped in a transaction. The new file's header time becomes the boundary
// for the next migration.
func (g *Generator) CreateData(
	ctx context.Context, d types.Querier, message string, tables []string,
) (string, error) {
	prevNumber, prevTime, err := g.previous()
	if err != nil {
		return "", err
	}

	events, err := changefeed.EventsSince(ctx, d, prevTime, tablesFilter(tables))
	if err != nil {
		return "", err
	}

	number := prevNumber + 1
	var b strings.Builder
	b.WriteString(Header(number, g.timeNow()) + "\n")
	b.WriteString("PRAGMA foreign_keys=OFF;\n")
	b.WriteString("BEGIN TRANSACTION;\n")
	for _, event := range events {
		stmt, err := event.SQL()
		switch {
		case errors.Is(err, changefeed.ErrNoChanges):
			continue
		case errors.Is(err, changefeed.ErrUnknownType):
			// Never abort the replay over a single unknown event.
			g.logger.Debug("skipping change event",
				"id", event.ID, "type", event.Type, "error", err)
			continue
		case err != nil:
			return "", err
		}
		b.WriteString(stmt + "\n")
	}
	b.WriteString("COMMIT;\n")

	return g.write(Filename(message, number), b.String())
}

// Check reports whether any unreplayed data changes exist since the previous
// migration. It is read-only; no file is written.
func (g *Generator) Check(ctx context.Context, d types.Querier, tables []string) (bool, error) {
	_, prevTime, err := g.previous()
	if err != nil {
		return false, err
	}

	return changefeed.AnySince(ctx, d, prevTime, tablesFilter(tables))
}

func (g *Generator) write(filename, content string) (string, error) {
	path := filepath.Join(g.dir, filename)
	if err := vfs.WriteFile(g.fs, path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed writing migration file: %w", err)
	}
	g.logger.Debug("wrote migration file", "path", path, "bytes", len(content))

	return path, nil
}

func tablesFilter(tables []string) *types.Filter {
	if len(tables) == 0 {
		return nil
	}
	return types.In("table_source", tables)
}
