package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x Int64);

-- second
CREATE TABLE b (
    y String DEFAULT 'a;b', -- trailing; comment
    z String DEFAULT 'it''s'
) ENGINE = MergeTree() ORDER BY y;
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int64)", stmts[0])
	assert.Contains(t, stmts[1], "DEFAULT 'a;b'")
	assert.Contains(t, stmts[1], "DEFAULT 'it''s'")
	assert.NotContains(t, stmts[1], "trailing")
}

func TestSplitStatements_Empty(t *testing.T) {
	assert.Empty(t, splitStatements("-- only a comment\n;\n"))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/pricing")
	require.NoError(t, err)
	assert.Equal(t, "pricing", db)

	_, err = databaseFromDSN("clickhouse://default@localhost:9000")
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`pricing`", quoteIdent("pricing"))
	assert.Equal(t, "`a``b`", quoteIdent("a`b"))
}

func TestLoad_OrdersAndSkipsNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/002_b.sql":   {Data: []byte("CREATE TABLE b ();")},
		"pg/001_a.sql":   {Data: []byte("CREATE TABLE a ();")},
		"pg/003_c.sql":   {Data: []byte("  \n")},
		"pg/README.md":   {Data: []byte("notes")},
		"pg/sub/004.sql": {Data: []byte("SELECT 1;")},
	}
	files, err := load(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001_a", files[0].Version)
	assert.Equal(t, "002_b", files[1].Version)
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.NotEmpty(t, pg)

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	for _, m := range ch {
		assert.NotEmpty(t, splitStatements(m.SQL), m.Version)
	}
}
