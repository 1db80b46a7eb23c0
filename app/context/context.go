package context

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/d1migrate/app/config"
	"go.hackfix.me/d1migrate/db"
)

// Context contains common objects used by the application. It is passed
// around the application to avoid direct dependencies on external systems,
// and make testing easier.
type Context struct {
	Ctx     context.Context // global context
	FS      vfs.FileSystem  // filesystem
	Logger  *slog.Logger    // global logger
	Config  *config.Config
	DB      *db.DB
	TimeNow func() time.Time

	// MigrationsDir is the directory migration files are read from and
	// written to, resolved from the CLI flags and configuration.
	MigrationsDir string

	// Standard streams
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Metadata
	Version *VersionInfo
}
