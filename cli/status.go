package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	actx "go.hackfix.me/d1migrate/app/context"
	aerrors "go.hackfix.me/d1migrate/app/errors"
	"go.hackfix.me/d1migrate/migration"
)

// The Status command lists the migration files in the migrations directory,
// with the number and creation time parsed from each file's header.
type Status struct{}

// Run the status command.
func (c *Status) Run(appCtx *actx.Context) error {
	if appCtx.MigrationsDir == "" {
		return aerrors.NewWith("a migrations directory is required; pass --dir or set it in the configuration file")
	}

	// Latest validates the directory contents before anything is listed.
	latest, err := migration.Latest(appCtx.FS, appCtx.MigrationsDir)
	if err != nil {
		return aerrors.NewWithCause("failed listing migration files", err,
			"directory", appCtx.MigrationsDir)
	}
	if latest == "" {
		fmt.Fprintln(appCtx.Stdout, "No migration files found")
		return nil
	}

	entries, err := vfs.ReadDir(appCtx.FS, appCtx.MigrationsDir)
	if err != nil {
		return aerrors.NewWithCause("failed listing migration files", err,
			"directory", appCtx.MigrationsDir)
	}

	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}
	sort.Strings(names)

	data := make([][]string, len(names))
	for i, name := range names {
		number, createdAt, err := migration.ReadHeader(
			appCtx.FS, filepath.Join(appCtx.MigrationsDir, name))
		if err != nil {
			return aerrors.NewWithCause("failed reading migration file header", err,
				"file", name)
		}
		data[i] = []string{
			fmt.Sprintf("%04d", number),
			strings.TrimSuffix(name, ".sql"),
			createdAt.Format(time.RFC3339),
		}
	}

	if err = renderStatus(data, appCtx.Stdout); err != nil {
		return aerrors.NewWithCause("failed rendering migration file list", err,
			"directory", appCtx.MigrationsDir)
	}

	return nil
}

// renderStatus writes the migration file list as a borderless, left-aligned
// table of number, name and creation time.
func renderStatus(data [][]string, w io.Writer) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(
			tw.Rendition{
				Borders: tw.BorderNone,
				Symbols: tw.NewSymbols(tw.StyleASCII),
				Settings: tw.Settings{
					Lines: tw.Lines{
						ShowHeaderLine: tw.Off,
						ShowTop:        tw.Off,
						ShowBottom:     tw.Off,
					},
					Separators: tw.Separators{
						ShowHeader:     tw.Off,
						BetweenRows:    tw.Off,
						BetweenColumns: tw.Off,
					},
				},
			},
		)),
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)

	table.Header([]string{"Number", "Name", "Created"})
	if err := table.Bulk(data); err != nil {
		return err //nolint:wrapcheck // Wrapped by the caller.
	}

	return table.Render() //nolint:wrapcheck // Wrapped by the caller.
}
