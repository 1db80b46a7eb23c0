// Package cli implements the command line interface of d1migrate.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"

	"go.hackfix.me/d1migrate/app/config"
	actx "go.hackfix.me/d1migrate/app/context"
)

// CLI is the command line interface of d1migrate.
type CLI struct {
	Track   Track   `kong:"cmd,help='Apply audit triggers that capture row changes.'"`
	Untrack Untrack `kong:"cmd,help='Remove audit triggers.'"`
	Create  Create  `kong:"cmd,help='Create a data or schema migration file.'"`
	Initial Initial `kong:"cmd,help='Create the initial migration file from a full database dump.'"`
	Check   Check   `kong:"cmd,help='Check if any data migrations need to be generated.'"`
	Status  Status  `kong:"cmd,help='List the migration files in the migrations directory.'"`
	Config  Config  `kong:"cmd,help='Save the database and migrations directory paths as defaults.'"`

	Database string `kong:"short='d',help='Path to the SQLite database to work against.'"`
	Dir      string `kong:"help='Path to the directory containing migration files.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	// NOTE: I'm deliberately not using kong.ConfigFlag or its support for reading
	// values from configuration files, since I want to manage configuration
	// independently from the CLI.
	ConfigFile string           `kong:"default='${configFile}',help='Path to the d1migrate configuration file.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(configFilePath, version string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("d1migrate"),
		kong.Description("A CLI tool to manage migrations for a SQLite D1 database."),
		kong.UsageOnError(),
		kong.DefaultEnvars("D1MIGRATE"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"version":    version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// ApplyConfig applies configuration values to the CLI, but only if they
// weren't already set.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	if c.Database == "" && cfg.Database.Valid {
		c.Database = cfg.Database.V
	}
	if c.Dir == "" && cfg.Dir.Valid {
		c.Dir = cfg.Dir.V
	}
}
