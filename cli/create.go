package cli

import (
	"fmt"

	actx "go.hackfix.me/d1migrate/app/context"
	aerrors "go.hackfix.me/d1migrate/app/errors"
	"go.hackfix.me/d1migrate/db"
	"go.hackfix.me/d1migrate/migration"
)

// The Create command creates a new migration file: by default a data
// migration replaying the changes captured since the previous migration, or
// an empty schema migration with --schema.
type Create struct {
	Message string   `kong:"arg,help='A unique message for the created migration file.'"`
	Schema  bool     `kong:"short='s',help='Generate an empty file for a schema migration instead.'"`
	Tables  []string `kong:"help='Database tables to run against. Defaults to all tables.'"`
}

// Run the create command.
func (c *Create) Run(appCtx *actx.Context) error {
	d, err := requireDB(appCtx)
	if err != nil {
		return err
	}
	gen, err := requireGenerator(appCtx)
	if err != nil {
		return err
	}

	var path string
	if c.Schema {
		path, err = gen.CreateSchema(d.NewContext(), d, c.Message, c.Tables)
	} else {
		path, err = gen.CreateData(d.NewContext(), d, c.Message, c.Tables)
	}
	if err != nil {
		return aerrors.NewWithCause("failed creating migration file", err,
			"directory", appCtx.MigrationsDir)
	}

	fmt.Fprintf(appCtx.Stdout, "Migration file created at %s\n", path)

	return nil
}

// The Initial command creates migration number 1 containing a full dump of
// the database. It is only valid when no migration files exist yet.
type Initial struct{}

// Run the initial command.
func (c *Initial) Run(appCtx *actx.Context) error {
	d, err := requireDB(appCtx)
	if err != nil {
		return err
	}
	gen, err := requireGenerator(appCtx)
	if err != nil {
		return err
	}

	path, err := gen.CreateInitial(d.NewContext(), d)
	if err != nil {
		return aerrors.NewWithCause("failed creating initial migration", err,
			"directory", appCtx.MigrationsDir)
	}

	fmt.Fprintf(appCtx.Stdout, "Migration file created at %s\n", path)

	return nil
}

func requireDB(appCtx *actx.Context) (*db.DB, error) {
	if appCtx.DB == nil {
		return nil, aerrors.NewWith("a database path is required; pass --database or set it in the configuration file")
	}
	return appCtx.DB, nil
}

func requireGenerator(appCtx *actx.Context) (*migration.Generator, error) {
	if appCtx.MigrationsDir == "" {
		return nil, aerrors.NewWith("a migrations directory is required; pass --dir or set it in the configuration file")
	}
	return migration.NewGenerator(
		appCtx.FS, appCtx.MigrationsDir, appCtx.TimeNow, appCtx.Logger), nil
}
