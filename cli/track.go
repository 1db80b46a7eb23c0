package cli

import (
	"fmt"

	actx "go.hackfix.me/d1migrate/app/context"
	aerrors "go.hackfix.me/d1migrate/app/errors"
	"go.hackfix.me/d1migrate/db/trigger"
)

// The Track command applies the audit triggers that record row changes into
// the change-feed table.
type Track struct {
	Tables []string `kong:"help='Database tables to run against. Defaults to all trackable tables.'"`
}

// Run the track command.
func (c *Track) Run(appCtx *actx.Context) error {
	d, err := requireDB(appCtx)
	if err != nil {
		return err
	}

	if err := trigger.TrackAll(d.NewContext(), d, c.Tables); err != nil {
		return aerrors.NewWithCause("failed applying audit triggers", err,
			"database", d.Path())
	}

	fmt.Fprintln(appCtx.Stdout, "Audit triggers applied")

	return nil
}

// The Untrack command removes the audit triggers applied by track.
type Untrack struct {
	Tables []string `kong:"help='Database tables to run against. Defaults to all trackable tables.'"`
}

// Run the untrack command.
func (c *Untrack) Run(appCtx *actx.Context) error {
	d, err := requireDB(appCtx)
	if err != nil {
		return err
	}

	if err := trigger.UntrackAll(d.NewContext(), d, c.Tables); err != nil {
		return aerrors.NewWithCause("failed removing audit triggers", err,
			"database", d.Path())
	}

	fmt.Fprintln(appCtx.Stdout, "Audit triggers removed")

	return nil
}
