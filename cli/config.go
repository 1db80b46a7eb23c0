package cli

import (
	"database/sql"
	"fmt"

	actx "go.hackfix.me/d1migrate/app/context"
	aerrors "go.hackfix.me/d1migrate/app/errors"
)

// The Config command persists the current --database and --dir values to the
// configuration file, so that later invocations can omit the flags.
type Config struct{}

// Run the config command.
func (c *Config) Run(appCtx *actx.Context) error {
	cfg := appCtx.Config
	if appCtx.DB != nil {
		cfg.Database = sql.Null[string]{V: appCtx.DB.Path(), Valid: true}
	}
	if appCtx.MigrationsDir != "" {
		cfg.Dir = sql.Null[string]{V: appCtx.MigrationsDir, Valid: true}
	}

	if err := cfg.Save(); err != nil {
		return aerrors.NewWithCause("failed saving configuration", err,
			"path", cfg.Path())
	}

	fmt.Fprintf(appCtx.Stdout, "Configuration saved to %s\n", cfg.Path())

	return nil
}
