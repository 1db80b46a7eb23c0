package cli

import (
	"fmt"

	actx "go.hackfix.me/d1migrate/app/context"
	aerrors "go.hackfix.me/d1migrate/app/errors"
)

// The Check command reports whether any data changes were captured since the
// previous migration. It is read-only and writes no file.
type Check struct {
	Tables []string `kong:"help='Database tables to run against. Defaults to all tables.'"`
}

// Run the check command.
func (c *Check) Run(appCtx *actx.Context) error {
	d, err := requireDB(appCtx)
	if err != nil {
		return err
	}
	gen, err := requireGenerator(appCtx)
	if err != nil {
		return err
	}

	pending, err := gen.Check(d.NewContext(), d, c.Tables)
	if err != nil {
		return aerrors.NewWithCause("failed checking for data changes", err,
			"database", d.Path())
	}

	if pending {
		fmt.Fprintln(appCtx.Stdout, "Data changes detected")
	} else {
		fmt.Fprintln(appCtx.Stdout, "No data changes detected")
	}

	return nil
}
