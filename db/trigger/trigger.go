// Package trigger manages the per-table AFTER triggers that capture row
// mutations into the change-feed table.
package trigger

import (
	"context"
	"fmt"
	"strings"

	"go.hackfix.me/d1migrate/db"
	"go.hackfix.me/d1migrate/db/changefeed"
	"go.hackfix.me/d1migrate/db/types"
)

// Events are the SQL events a table can be tracked for.
var Events = []string{"INSERT", "UPDATE", "DELETE"}

var eventTypes = map[string]changefeed.Type{
	"INSERT": changefeed.TypeCreated,
	"UPDATE": changefeed.TypeUpdated,
	"DELETE": changefeed.TypeDeleted,
}

// Name returns the deterministic trigger name for a (table, event) pair.
func Name(table, event string) string {
	return fmt.Sprintf("%s_%s_%s_trigger", changefeed.TableName, table, strings.ToLower(event))
}

// Tables returns the names of all base tables that can be tracked, excluding
// internal sqlite_* tables and the change-feed table itself.
func Tables(ctx context.Context, d types.Querier) ([]string, error) {
	query := fmt.Sprintf(`SELECT tbl_name FROM sqlite_master
		WHERE type = 'table'
		AND tbl_name NOT LIKE 'sqlite_%%'
		AND tbl_name NOT LIKE '%s'`, changefeed.TableName)
	rows, err := d.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed querying trackable tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading trackable tables: %w", err)
	}

	return tables, nil
}

// Track adds an AFTER trigger for the given INSERT, UPDATE or DELETE event
// that logs a change event on every mutation of the table. An existing
// trigger is replaced, so installation is idempotent.
func Track(ctx context.Context, d types.Querier, table, event string) error {
	eventType, ok := eventTypes[event]
	if !ok {
		return types.InvalidInputError{
			Msg: fmt.Sprintf("%s is not one of INSERT, UPDATE, or DELETE", event),
		}
	}

	name := Name(table, event)
	if _, err := d.ExecContext(ctx, fmt.Sprintf("DROP TRIGGER IF EXISTS %s", name)); err != nil {
		return fmt.Errorf("failed dropping trigger %s: %w", name, err)
	}

	ref := "NEW"
	if event == "DELETE" {
		ref = "OLD"
	}

	idColumn, columns, err := tableColumns(ctx, d, table, ref)
	if err != nil {
		return err
	}

	data, err := dataExpr(columns, event)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`
		CREATE TRIGGER "%s" AFTER %s ON "%s"
		BEGIN
			INSERT INTO "%s"
			("table_source", "instance", "type", "data")
			VALUES ('%s', %s, '%s', %s);
		END`,
		name, event, table, changefeed.TableName, table, idColumn, eventType, data)
	if _, err = d.ExecContext(ctx, stmt); err != nil {
		return types.Err("trigger", fmt.Sprintf("on table '%s'", table), err)
	}

	return nil
}

// Untrack removes the AFTER trigger applied by Track. Removing a trigger that
// doesn't exist is not an error.
func Untrack(ctx context.Context, d types.Querier, table, event string) error {
	name := Name(table, event)
	if _, err := d.ExecContext(ctx, fmt.Sprintf("DROP TRIGGER IF EXISTS %s", name)); err != nil {
		return fmt.Errorf("failed dropping trigger %s: %w", name, err)
	}

	return nil
}

// TrackAll creates the change-feed table and installs triggers for all three
// events on each of the given tables, or on all trackable tables if none are
// given. It runs in a single exclusive transaction and fails without applying
// anything if a transaction is already open.
func TrackAll(ctx context.Context, d *db.DB, tables []string) error {
	tx, err := d.BeginExclusive(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	if err = changefeed.CreateTable(ctx, tx); err != nil {
		return err
	}

	if tables == nil {
		if tables, err = Tables(ctx, tx); err != nil {
			return err
		}
	}

	for _, table := range tables {
		for _, event := range Events {
			if err = Track(ctx, tx, table, event); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// UntrackAll removes the triggers for all three events from each of the given
// tables, or from all trackable tables if none are given, in a single
// exclusive transaction.
func UntrackAll(ctx context.Context, d *db.DB, tables []string) error {
	tx, err := d.BeginExclusive(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	if tables == nil {
		if tables, err = Tables(ctx, tx); err != nil {
			return err
		}
	}

	for _, table := range tables {
		for _, event := range Events {
			if err = Untrack(ctx, tx, table, event); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// tableColumns introspects the table and returns the primary key reference
// used as the event instance, and all column names. Composite primary keys
// are not supported; the first primary-key column in declaration order is
// used.
func tableColumns(
	ctx context.Context, d types.Querier, table, ref string,
) (idColumn string, columns []string, err error) {
	rows, err := d.QueryContext(ctx,
		"SELECT name, pk FROM PRAGMA_TABLE_INFO(?) ORDER BY pk", table)
	if err != nil {
		return "", nil, fmt.Errorf("failed querying columns of table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name string
			pk   int
		)
		if err = rows.Scan(&name, &pk); err != nil {
			return "", nil, fmt.Errorf("failed scanning column of table %s: %w", table, err)
		}
		if pk > 0 && idColumn == "" {
			idColumn = fmt.Sprintf("%s.%s", ref, name)
		}
		columns = append(columns, name)
	}
	if err = rows.Err(); err != nil {
		return "", nil, fmt.Errorf("failed reading columns of table %s: %w", table, err)
	}

	if len(columns) == 0 {
		return "", nil, types.InvalidInputError{
			Msg: fmt.Sprintf("table '%s' doesn't exist", table),
		}
	}
	if idColumn == "" {
		return "", nil, types.InvalidInputError{
			Msg: fmt.Sprintf("table '%s' has no primary key", table),
		}
	}

	return idColumn, columns, nil
}

// dataExpr builds the json_object() expression recording the new and/or old
// row values for the given event.
func dataExpr(columns []string, event string) (string, error) {
	switch event {
	case "INSERT":
		return fmt.Sprintf("json_object('new', %s)", jsonObjectExpr("NEW", columns)), nil
	case "UPDATE":
		return fmt.Sprintf("json_object('new', %s, 'old', %s)",
			jsonObjectExpr("NEW", columns), jsonObjectExpr("OLD", columns)), nil
	case "DELETE":
		return fmt.Sprintf("json_object('old', %s)", jsonObjectExpr("OLD", columns)), nil
	default:
		return "", types.InvalidInputError{
			Msg: fmt.Sprintf("%s is not one of INSERT, UPDATE, or DELETE", event),
		}
	}
}

// jsonObjectExpr assembles a json_object() call naming every column and
// referencing it through the NEW or OLD row alias.
// See https://www.sqlite.org/json1.html#jobj
func jsonObjectExpr(ref string, columns []string) string {
	pairs := make([]string, len(columns))
	for i, col := range columns {
		pairs[i] = fmt.Sprintf(`'%s', %s."%s"`, col, ref, col)
	}
	return "json_object(" + strings.Join(pairs, ", ") + ")"
}
