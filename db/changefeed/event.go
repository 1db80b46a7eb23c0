// Package changefeed contains the model of the append-only change-feed table
// populated by audit triggers, and the translation of recorded change events
// back into SQL statements.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.hackfix.me/d1migrate/db/sqlgen"
	"go.hackfix.me/d1migrate/db/types"
)

// TableName is the name of the change-feed table.
const TableName = "changefeed"

// Type is the kind of row mutation a change event was captured from.
type Type string

// All change event types.
const (
	TypeCreated Type = "created"
	TypeUpdated Type = "updated"
	TypeDeleted Type = "deleted"
)

// Errors returned by Event.SQL.
var (
	// ErrNoChanges indicates an update event whose new and old values are
	// identical, which produces no statement.
	ErrNoChanges = errors.New("event contains no column changes")
	// ErrUnknownType indicates an event type this version doesn't recognize.
	// Callers should skip the event rather than abort.
	ErrUnknownType = errors.New("unknown change event type")
)

// Data is the JSON payload of a change event. Created events carry only New,
// deleted events only Old, and updated events both.
type Data struct {
	New map[string]any `json:"new,omitempty"`
	Old map[string]any `json:"old,omitempty"`
}

// Event is a single row mutation captured by an audit trigger. Events are
// immutable once written, and are replayed in (Time, ID) order.
type Event struct {
	ID          uint64
	Instance    int64
	TableSource string
	Type        Type
	Time        time.Time
	Data        Data
}

// SQL renders the event as the statement that replays it against another
// database. Update events only set the columns that actually changed;
// ErrNoChanges is returned if none did.
func (e *Event) SQL() (string, error) {
	switch e.Type {
	case TypeCreated:
		return sqlgen.Insert(e.TableSource, e.Data.New), nil
	case TypeUpdated:
		diff := make(map[string]any)
		for col, newVal := range e.Data.New {
			if sqlgen.Literal(newVal) == sqlgen.Literal(e.Data.Old[col]) {
				continue
			}
			diff[col] = newVal
		}
		if len(diff) == 0 {
			return "", ErrNoChanges
		}
		return sqlgen.Update(e.TableSource, e.Instance, diff), nil
	case TypeDeleted:
		return sqlgen.Delete(e.TableSource, e.Instance), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
}

// CreateTable creates the change-feed table and its replay-order index. It is
// safe to call when they already exist.
func CreateTable(ctx context.Context, d types.Querier) error {
	tableDDL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s" (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			instance INTEGER NOT NULL,
			table_source TEXT NOT NULL,
			type TEXT NOT NULL,
			time INTEGER NOT NULL DEFAULT (strftime('%%s')),
			data JSON
		)`, TableName)
	if _, err := d.ExecContext(ctx, tableDDL); err != nil {
		return fmt.Errorf("failed creating %s table: %w", TableName, err)
	}

	indexDDL := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS "%s_time_id_idx" ON "%s" (time, id)`,
		TableName, TableName)
	if _, err := d.ExecContext(ctx, indexDDL); err != nil {
		return fmt.Errorf("failed creating %s index: %w", TableName, err)
	}

	return nil
}

// EventsSince returns all events captured strictly after the given time, in
// (time, id) order, optionally restricted by an additional filter.
func EventsSince(
	ctx context.Context, d types.Querier, since time.Time, filter *types.Filter,
) ([]*Event, error) {
	where, args := sinceFilter(since, filter)
	query := fmt.Sprintf(`SELECT id, instance, table_source, type, time, data
		FROM "%s" WHERE %s ORDER BY time, id`, TableName, where)
	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed querying change events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading change events: %w", err)
	}

	return events, nil
}

// AnySince reports whether any events were captured strictly after the given
// time, without materializing them.
func AnySince(
	ctx context.Context, d types.Querier, since time.Time, filter *types.Filter,
) (bool, error) {
	where, args := sinceFilter(since, filter)
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM "%s" WHERE %s)`, TableName, where)
	var exists bool
	if err := d.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed checking for change events: %w", err)
	}

	return exists, nil
}

// sinceFilter builds the boundary condition for since queries. The time
// column has second resolution while the boundary may carry millisecond
// precision from a migration file header, so the comparison is done in
// fractional seconds to avoid both double-applying and skipping events.
func sinceFilter(since time.Time, filter *types.Filter) (string, []any) {
	f := types.NewFilter("time > ?", []any{float64(since.UnixMilli()) / 1000})
	if filter != nil {
		f = f.And(filter)
	}
	return f.Where, f.Args
}

// rowScanner covers both sql.Rows and sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent maps a single result row onto an Event. It is passed explicitly
// per query rather than installed on the connection, so concurrent queries
// can't interfere with each other's result mapping.
func scanEvent(row rowScanner) (*Event, error) {
	var (
		event    Event
		typ      string
		timeSec  int64
		dataJSON []byte
	)
	err := row.Scan(&event.ID, &event.Instance, &event.TableSource, &typ, &timeSec, &dataJSON)
	if err != nil {
		return nil, types.ScanError{ModelName: "change event", Err: err}
	}

	event.Type = Type(typ)
	event.Time = time.Unix(timeSec, 0).UTC()
	if len(dataJSON) > 0 {
		if err = json.Unmarshal(dataJSON, &event.Data); err != nil {
			return nil, types.ScanError{ModelName: "change event", Err: err}
		}
	}

	return &event, nil
}
