// Package app assembles the application from its parts and runs it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"go.hackfix.me/d1migrate/app/config"
	actx "go.hackfix.me/d1migrate/app/context"
	"go.hackfix.me/d1migrate/cli"
	"go.hackfix.me/d1migrate/db"
)

// App is the application.
type App struct {
	name string
	ctx  *actx.Context
	cli  *cli.CLI
	// the logging level is set via the CLI, if the app was initialized with
	// the WithLogger option.
	logLevel *slog.LevelVar
}

// New initializes a new application.
func New(name string, opts ...Option) (*App, error) {
	version, err := actx.GetVersion()
	if err != nil {
		return nil, err
	}

	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Logger:  slog.Default(),
		TimeNow: time.Now,
		Version: version,
	}
	app := &App{name: name, ctx: defaultCtx}

	for _, opt := range opts {
		opt(app)
	}

	configFile := filepath.Join(xdg.ConfigHome, name, "config.json")
	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version.String())
	app.cli, err = cli.New(configFile, ver)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	if app.ctx.Config == nil {
		app.ctx.Config = config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
	}
	if err := app.ctx.Config.Load(); err != nil {
		return err
	}
	app.cli.ApplyConfig(app.ctx.Config)

	app.ctx.MigrationsDir = app.cli.Dir

	if app.ctx.DB == nil && app.cli.Database != "" {
		d, err := db.Open(app.ctx.Ctx, app.cli.Database, app.ctx.TimeNow)
		if err != nil {
			return err
		}
		defer d.Close()
		app.ctx.DB = d
	}

	return app.cli.Execute(app.ctx)
}
