package database

import (
	"bytes"
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const createPosts = `CREATE TABLE jos_posts (id INTEGER PRIMARY KEY, title VARCHAR(255) NOT NULL DEFAULT 'untitled', body TEXT)`

func TestDriver_Tables(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t, WithPrefix("jos_"))
	require.NoError(t, d.SetQuery(Raw(createPosts)).Execute(ctx))

	t.Run("list", func(t *testing.T) {
		tables, err := d.TableList(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []string{"jos_posts"}, tables)
	})

	t.Run("fields", func(t *testing.T) {
		fields, err := d.TableFields(ctx, false, "#__posts")
		require.NoError(t, err)
		posts := fields["jos_posts"]
		require.Len(t, posts, 3)
		assert.Equal(t, "VARCHAR(255)", posts["title"].Type)
		assert.Equal(t, "NO", posts["title"].Null)
		assert.Equal(t, "'untitled'", posts["title"].Default.String)
		assert.Equal(t, "YES", posts["body"].Null)
		assert.False(t, posts["body"].Default.Valid)
	})

	t.Run("type only", func(t *testing.T) {
		fields, err := d.TableFields(ctx, true, "jos_posts")
		require.NoError(t, err)
		assert.Equal(t, TableField{Field: "title", Type: "VARCHAR"}, fields["jos_posts"]["title"])
	})

	t.Run("create", func(t *testing.T) {
		creates, err := d.TableCreate(ctx, "#__posts")
		require.NoError(t, err)
		assert.Equal(t, createPosts, creates["jos_posts"])
	})

	t.Run("collation", func(t *testing.T) {
		c, err := d.Collation(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "BINARY", c)
	})
}

func TestDriver_TableFieldsCache(t *testing.T) {
	ctx := context.Background()
	fieldsQuery := "SELECT column_name AS Field, data_type AS Type, is_nullable AS [Null], column_default AS [Default]" +
		" FROM information_schema.columns WHERE table_name = 'users' ORDER BY ordinal_position"
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"Field", "Type", "Null", "Default"}).
			AddRow("id", "int", "NO", nil).
			AddRow("name", "nvarchar(100)", "YES", "''")
	}

	t.Run("cached", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectQuery(fieldsQuery).WillReturnRows(rows())

		for i := 0; i < 3; i++ {
			fields, err := d.TableFields(ctx, false, "users")
			require.NoError(t, err)
			assert.Equal(t, "nvarchar(100)", fields["users"]["name"].Type)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("disabled", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure, WithFieldsCacheTTL(0))
		mock.ExpectQuery(fieldsQuery).WillReturnRows(rows())
		mock.ExpectQuery(fieldsQuery).WillReturnRows(rows())

		for i := 0; i < 2; i++ {
			_, err := d.TableFields(ctx, true, "users")
			require.NoError(t, err)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unsupported create", func(t *testing.T) {
		d, _ := newMockDriver(t, Dialects.SQLAzure)
		_, err := d.TableCreate(ctx, "users")
		assert.True(t, IsMissingCapability(err))
	})
}

func TestDriver_Transaction(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t)
	require.NoError(t, d.SetQuery(Raw("CREATE TABLE t (x INTEGER)")).Execute(ctx))

	count := func() int64 {
		v, err := d.SetQuery(Raw("SELECT COUNT(*) FROM t")).LoadResult(ctx)
		require.NoError(t, err)
		return v.(int64)
	}

	require.NoError(t, d.TransactionStart(ctx))
	require.NoError(t, d.SetQuery(Raw("INSERT INTO t VALUES (1)")).Execute(ctx))
	require.NoError(t, d.TransactionRollback(ctx))
	assert.EqualValues(t, 0, count())

	require.NoError(t, d.TransactionStart(ctx))
	require.NoError(t, d.SetQuery(Raw("INSERT INTO t VALUES (1)")).Execute(ctx))
	require.NoError(t, d.TransactionCommit(ctx))
	assert.EqualValues(t, 1, count())

	id, err := d.InsertID(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, id)
}

func TestDriver_QueryBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("every statement", func(t *testing.T) {
		d := openSQLite(t)
		err := d.SetQuery(Raw("CREATE TABLE a (x TEXT); INSERT INTO a VALUES ('1;2'); INSERT INTO a VALUES ('3');")).
			QueryBatch(ctx, true, false)
		require.NoError(t, err)

		xs, err := d.SetQuery(Raw("SELECT x FROM a ORDER BY x")).LoadResultArray(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []any{"1;2", "3"}, xs)
	})

	t.Run("continue on error", func(t *testing.T) {
		d := openSQLite(t)
		require.NoError(t, d.SetQuery(Raw("CREATE TABLE a (x INTEGER)")).Execute(ctx))

		err := d.SetQuery(Raw("INSERT INTO a VALUES (1); INSERT INTO missing VALUES (2); INSERT INTO a VALUES (3)")).
			QueryBatch(ctx, false, false)
		require.Error(t, err)
		assert.True(t, IsQueryError(err))
		assert.Contains(t, err.Error(), "1 of 3")

		v, err := d.SetQuery(Raw("SELECT COUNT(*) FROM a")).LoadResult(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, v)
	})

	t.Run("abort rolls back", func(t *testing.T) {
		d := openSQLite(t)
		require.NoError(t, d.SetQuery(Raw("CREATE TABLE a (x INTEGER)")).Execute(ctx))

		err := d.SetQuery(Raw("INSERT INTO a VALUES (1); INSERT INTO missing VALUES (2); INSERT INTO a VALUES (3)")).
			QueryBatch(ctx, true, true)
		assert.True(t, IsQueryError(err))

		v, err := d.SetQuery(Raw("SELECT COUNT(*) FROM a")).LoadResult(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, v)
	})
}

func TestDriver_Explain(t *testing.T) {
	ctx := context.Background()

	t.Run("showplan", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectExec("SET SHOWPLAN_ALL ON").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"StmtText", "EstimateRows"}).
				AddRow("Clustered Index Scan", "42"))
		mock.ExpectExec("SET SHOWPLAN_ALL OFF").WillReturnResult(sqlmock.NewResult(0, 0))

		plan, err := d.SetQuery(Raw("SELECT id FROM users")).Explain(ctx)
		require.NoError(t, err)
		assert.Contains(t, plan, "SELECT id FROM users\n")
		assert.Contains(t, plan, "Clustered Index Scan")
		assert.Contains(t, plan, "42")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("showplan off failure", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectExec("SET SHOWPLAN_ALL ON").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"StmtText"}))
		mock.ExpectExec("SET SHOWPLAN_ALL OFF").WillReturnError(assert.AnError)

		plan, err := d.SetQuery(Raw("SELECT id FROM users")).Explain(ctx)
		assert.Error(t, err)
		assert.Empty(t, plan)
	})

	t.Run("sqlite", func(t *testing.T) {
		d := openSQLite(t)
		require.NoError(t, d.SetQuery(Raw("CREATE TABLE t (x INTEGER)")).Execute(ctx))

		plan, err := d.SetQuery(Raw("SELECT x FROM t WHERE x = 1")).Explain(ctx)
		require.NoError(t, err)
		assert.Contains(t, plan, "SCAN")
	})
}

func TestDriver_Export(t *testing.T) {
	ctx := context.Background()
	d := openSQLite(t, WithPrefix("jos_"))
	require.NoError(t, d.SetQuery(Raw(createPosts)).Execute(ctx))

	e, err := d.Exporter()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.Export(ctx, &buf))

	var out exportedStructure
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "sqlite3", out.Dialect)
	require.Len(t, out.Tables, 1)
	assert.Equal(t, "jos_posts", out.Tables[0].Name)
	require.Len(t, out.Tables[0].Fields, 3)
	assert.Equal(t, "body", out.Tables[0].Fields[0].Field)
	assert.True(t, out.Tables[0].Fields[0].Nullable)
	assert.Nil(t, out.Tables[0].Fields[0].Default)
	assert.Equal(t, "title", out.Tables[0].Fields[2].Field)
	require.NotNil(t, out.Tables[0].Fields[2].Default)
	assert.Equal(t, "'untitled'", *out.Tables[0].Fields[2].Default)
}
