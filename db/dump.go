package db

import (
	"context"
	"fmt"
	"strings"

	"go.hackfix.me/d1migrate/db/sqlgen"
)

// Dump produces a full SQL dump of the database: the DDL of every user table
// followed by INSERT statements for its rows, then the DDL of indexes,
// triggers and views, all inside a transactional wrapper. Internal sqlite_*
// objects are skipped, since they can't be recreated by plain DDL.
func (d *DB) Dump(ctx context.Context) (string, error) {
	var b strings.Builder
	b.WriteString("PRAGMA foreign_keys=OFF;\n")
	b.WriteString("BEGIN TRANSACTION;\n")

	tables, err := d.dumpTables(ctx, &b)
	if err != nil {
		return "", err
	}

	for _, table := range tables {
		if err = d.dumpRows(ctx, &b, table); err != nil {
			return "", err
		}
	}

	if err = d.dumpObjects(ctx, &b); err != nil {
		return "", err
	}

	b.WriteString("COMMIT;\n")

	return b.String(), nil
}

// dumpTables writes the DDL of all user tables and returns their names.
func (d *DB) dumpTables(ctx context.Context, b *strings.Builder) ([]string, error) {
	rows, err := d.QueryContext(ctx, `SELECT name, sql FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed querying table definitions: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name, ddl string
		if err = rows.Scan(&name, &ddl); err != nil {
			return nil, fmt.Errorf("failed scanning table definition: %w", err)
		}
		b.WriteString(ddl + ";\n")
		tables = append(tables, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading table definitions: %w", err)
	}

	return tables, nil
}

// dumpRows writes one INSERT statement per row of the given table.
func (d *DB) dumpRows(ctx context.Context, b *strings.Builder, table string) error {
	rows, err := d.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, table))
	if err != nil {
		return fmt.Errorf("failed querying rows of table %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed getting columns of table %s: %w", table, err)
	}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err = rows.Scan(pointers...); err != nil {
			return fmt.Errorf("failed scanning row of table %s: %w", table, err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		b.WriteString(sqlgen.Insert(table, row) + "\n")
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("failed reading rows of table %s: %w", table, err)
	}

	return nil
}

// dumpObjects writes the DDL of all non-table objects: indexes, triggers and
// views. Auto-created indexes have no DDL and are excluded by the sql check.
func (d *DB) dumpObjects(ctx context.Context, b *strings.Builder) error {
	rows, err := d.QueryContext(ctx, `SELECT sql FROM sqlite_master
		WHERE type != 'table' AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL
		ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("failed querying object definitions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ddl string
		if err = rows.Scan(&ddl); err != nil {
			return fmt.Errorf("failed scanning object definition: %w", err)
		}
		b.WriteString(ddl + ";\n")
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("failed reading object definitions: %w", err)
	}

	return nil
}
