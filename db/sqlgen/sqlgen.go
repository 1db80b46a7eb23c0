// Package sqlgen renders INSERT, UPDATE and DELETE statements as literal SQL
// text, without parameter placeholders. It is not an ORM and performs no
// validation; the input is expected to come from trusted trigger output.
package sqlgen

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Literal renders a value as a SQL literal. Booleans become 0/1, nil becomes
// NULL, numbers are rendered as decimal text, and everything else is wrapped
// in single quotes.
//
// Embedded single quotes are NOT escaped. Migration files are meant to be
// human-diffable text, and the rendering must stay byte-identical to the
// files already in the wild, so values containing a quote will produce
// invalid SQL.
func Literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []byte:
		return "'" + string(t) + "'"
	default:
		return fmt.Sprintf("'%v'", v)
	}
}

// Insert creates an INSERT statement on a table with the given column values.
// Columns are rendered in sorted order so that output is deterministic.
func Insert(table string, row map[string]any) string {
	columns := slices.Sorted(maps.Keys(row))
	values := make([]string, len(columns))
	for i, col := range columns {
		values[i] = Literal(row[col])
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES(%s);",
		table, strings.Join(columns, ","), strings.Join(values, ","))
}

// Update creates an UPDATE statement setting the given column values on the
// row identified by id.
func Update(table string, id any, row map[string]any) string {
	columns := slices.Sorted(maps.Keys(row))
	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = fmt.Sprintf("%s=%s", col, Literal(row[col]))
	}

	return fmt.Sprintf("UPDATE %s SET %s WHERE (%s.id = %s);",
		table, strings.Join(assignments, ","), table, Literal(id))
}

// Delete creates a DELETE statement for the row identified by id.
func Delete(table string, id any) string {
	return fmt.Sprintf("DELETE FROM %s WHERE (%s.id = %s);", table, table, Literal(id))
}
