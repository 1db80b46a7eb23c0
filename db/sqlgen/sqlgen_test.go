package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		exp   string
	}{
		{"nil", nil, "NULL"},
		{"bool_true", true, "1"},
		{"bool_false", false, "0"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"uint64", uint64(7), "7"},
		{"float_whole", float64(1), "1"},
		{"float_fraction", 1.5, "1.5"},
		{"string", "text data", "'text data'"},
		{"bytes", []byte("blob"), "'blob'"},
		{"iso_date", "2025-04-02T15:08:54.407Z", "'2025-04-02T15:08:54.407Z'"},
		// Known limitation: embedded quotes are not escaped.
		{"embedded_quote", "o'clock", "'o'clock'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.exp, Literal(tt.value))
		})
	}
}

func TestInsert(t *testing.T) {
	t.Parallel()

	sql := Insert("foobar", map[string]any{"data": "text data", "value": 1})
	assert.Equal(t, "INSERT INTO foobar (data,value) VALUES('text data',1);", sql)

	sql = Insert("foobar", map[string]any{"value": nil})
	assert.Equal(t, "INSERT INTO foobar (value) VALUES(NULL);", sql)
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	sql := Update("foobar", 1, map[string]any{"data": "new text data", "value": 100})
	assert.Equal(t,
		"UPDATE foobar SET data='new text data',value=100 WHERE (foobar.id = 1);", sql)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	sql := Delete("foobar", 1)
	assert.Equal(t, "DELETE FROM foobar WHERE (foobar.id = 1);", sql)
}
