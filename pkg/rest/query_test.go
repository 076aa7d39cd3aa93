package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restqlite/restqlite/pkg/schema"
)

func testTable() schema.Table {
	return schema.Table{
		Name: "test",
		Columns: []schema.Column{
			{Name: "id", IsPrimaryKey: true},
			{Name: "name"},
			{Name: "age"},
		},
	}
}

func TestBuildSelect(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		query, args := buildSelect(testTable(), nil)
		assert.Equal(t, `SELECT * FROM "test"`, query)
		assert.Empty(t, args)
	})

	t.Run("filters conjoin with bound values", func(t *testing.T) {
		query, args := buildSelect(testTable(), []filter{
			{column: "name", value: "Alice"},
			{column: "age", value: "25"},
		})
		assert.Equal(t, `SELECT * FROM "test" WHERE "name" = ? AND "age" = ?`, query)
		assert.Equal(t, []any{"Alice", "25"}, args)
	})

	t.Run("values never appear in the statement text", func(t *testing.T) {
		query, _ := buildSelect(testTable(), []filter{
			{column: "name", value: "' OR '1'='1"},
		})
		assert.NotContains(t, query, "OR")
	})
}

func TestBuildInsert(t *testing.T) {
	query, args, err := buildInsert(testTable(), Patch{"name": "Charlie", "age": float64(35)})
	require.NoError(t, err)
	// column order follows the catalog, not map iteration
	assert.Equal(t, `INSERT INTO "test" ("name", "age") VALUES (?, ?)`, query)
	assert.Equal(t, []any{"Charlie", float64(35)}, args)

	_, _, err = buildInsert(testTable(), Patch{})
	assert.Error(t, err)
}

func TestBuildUpdate(t *testing.T) {
	query, args, err := buildUpdate(testTable(), Patch{"age": float64(26)}, 1)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "test" SET "age" = ? WHERE id = ?`, query)
	assert.Equal(t, []any{float64(26), int64(1)}, args)

	_, _, err = buildUpdate(testTable(), Patch{}, 1)
	assert.Error(t, err)
}

func TestBuildDelete(t *testing.T) {
	query, args := buildDelete(testTable(), 2)
	assert.Equal(t, `DELETE FROM "test" WHERE id = ?`, query)
	assert.Equal(t, []any{int64(2)}, args)
}

func TestPatchValidate(t *testing.T) {
	assert.NoError(t, Patch{"name": "x"}.validate(testTable()))
	assert.Error(t, Patch{"nope": "x"}.validate(testTable()))
	assert.Error(t, Patch{"name": "x", "nope": "x"}.validate(testTable()))
}
