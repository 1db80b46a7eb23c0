// Package migration implements the migration file protocol used with
// wrangler-style D1 deployments, and the generator that produces migration
// files from captured change events.
//
// A migration directory must only contain files created through this
// protocol. Filenames start with the migration number padded to 4 digits,
// followed by a slug of the message, e.g. `0001_initial_migration.sql`. The
// first line of each file is a SQL comment carrying the number and the UTC
// creation time, e.g. `-- Migration number: 0001 \t 2025-04-02T15:08:54.407Z`.
// The filename establishes the apply order, and the header time is the
// boundary for the next migration's change query.
package migration

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// headerTimeFormat is ISO-8601 with millisecond precision and a Z suffix,
// which is what wrangler writes.
const headerTimeFormat = "2006-01-02T15:04:05.000Z"

var (
	slugStripRe    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugCollapseRe = regexp.MustCompile(`\s+`)
	filenameRe     = regexp.MustCompile(`^\d{4}_[a-z0-9]`)
)

// Header creates a migration file header line for the given number and
// creation time. The time is converted to UTC.
func Header(number int, t time.Time) string {
	return fmt.Sprintf("-- Migration number: %04d \t %s",
		number, t.UTC().Format(headerTimeFormat))
}

// ParseHeader extracts the migration number and creation time from a header
// line. It fails if the line doesn't split into exactly two tab-separated
// fields, or if either field doesn't parse.
func ParseHeader(line string) (int, time.Time, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("header malformed - %q", line)
	}

	numField := parts[0]
	if i := strings.LastIndex(numField, ":"); i >= 0 {
		numField = numField[i+1:]
	}
	number, err := strconv.Atoi(strings.TrimSpace(numField))
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("unable to parse header number - %w", err)
	}

	timeField := strings.TrimSpace(parts[1])
	t, err := time.Parse(headerTimeFormat, timeField)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, timeField); err != nil {
			return 0, time.Time{}, fmt.Errorf("unable to parse header time - %w", err)
		}
	}

	return number, t.UTC(), nil
}

// Filename creates a migration filename from a message and number. The
// message is normalized to a filesystem- and sort-safe slug: lowercased,
// stripped of anything but alphanumerics, spaces and hyphens, internal
// whitespace collapsed, and spaces and hyphens replaced with underscores.
// A message with no slug-safe characters falls back to the slug "migration",
// since an empty slug would violate the naming convention Latest enforces.
func Filename(message string, number int) string {
	slug := strings.ToLower(strings.TrimSpace(message))
	slug = slugStripRe.ReplaceAllString(slug, "")
	slug = slugCollapseRe.ReplaceAllString(slug, " ")
	slug = strings.NewReplacer(" ", "_", "-", "_").Replace(slug)
	if strings.Trim(slug, "_") == "" {
		slug = "migration"
	}

	return fmt.Sprintf("%04d_%s.sql", number, slug)
}

// Latest returns the name of the latest migration file in the directory, or
// an empty string if it contains none. Any file without a .sql suffix, or any
// .sql file that doesn't match the naming convention, indicates a corrupted
// or foreign directory and fails discovery.
func Latest(fsys vfs.FileSystem, dir string) (string, error) {
	entries, err := vfs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed listing migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			return "", fmt.Errorf("migrations directory must only contain sql files - %s", dir)
		}
		if filenameRe.MatchString(name) {
			names = append(names, name)
		}
	}
	if len(names) != len(entries) {
		return "", fmt.Errorf("unexpected migration file encountered in %s", dir)
	}
	if len(names) == 0 {
		return "", nil
	}

	// The fixed-width numeric prefix makes lexical order the migration order.
	sort.Strings(names)

	return names[len(names)-1], nil
}

// ReadHeader parses the header of the given migration file.
func ReadHeader(fsys vfs.FileSystem, path string) (int, time.Time, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed opening migration file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err = scanner.Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("failed reading migration file header: %w", err)
		}
		return 0, time.Time{}, fmt.Errorf("migration file %s is empty", path)
	}

	return ParseHeader(scanner.Text())
}
