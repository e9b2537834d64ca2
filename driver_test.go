package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golobby/database/query"
)

func newMockDriver(t *testing.T, dialect *Dialect, opts ...Option) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDriver(db, dialect, opts...), mock
}

func TestDriver_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("without connection", func(t *testing.T) {
		d := NewDriver(nil, Dialects.SQLAzure)
		_, err := d.SetQuery(Raw("SELECT 1")).Query(ctx)
		assert.True(t, IsConnectionError(err))
		assert.False(t, d.Connected(ctx))
	})

	t.Run("without statement", func(t *testing.T) {
		d, _ := newMockDriver(t, Dialects.SQLAzure)
		_, err := d.Query(ctx)
		assert.True(t, IsStateError(err))
	})

	t.Run("builder statement", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectQuery("\nSELECT id,name\nFROM users\nWHERE active=1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "amirreza"))

		q, err := d.NewQuery()
		require.NoError(t, err)
		q.Select("id", "name").From("users").Where("active=1")

		row, err := d.SetQuery(q).LoadRow(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []any{int64(1), "amirreza"}, row)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid builder statement", func(t *testing.T) {
		d, _ := newMockDriver(t, Dialects.SQLAzure)
		q := query.New().Update("users").Where("id=1")
		_, err := d.SetQuery(q).Query(ctx)
		var missing *query.MissingClauseError
		assert.True(t, errors.As(err, &missing))
	})

	t.Run("open cursor blocks the next query", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectQuery("SELECT id FROM t").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2)).
			RowsWillBeClosed()
		mock.ExpectQuery("SELECT id FROM t").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		c, err := d.SetQuery(Raw("SELECT id FROM t")).Query(ctx)
		require.NoError(t, err)
		assert.False(t, c.Closed())

		_, err = d.Query(ctx)
		assert.True(t, IsStateError(err))

		assert.NoError(t, d.FreeResult())
		assert.True(t, c.Closed())

		v, err := d.LoadResult(ctx)
		assert.NoError(t, err)
		assert.EqualValues(t, 1, v)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("drained cursor is released", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectQuery("SELECT id FROM t").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1)).
			RowsWillBeClosed()
		mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 1))

		c, err := d.SetQuery(Raw("SELECT id FROM t")).Query(ctx)
		require.NoError(t, err)
		for {
			row, err := c.Next()
			require.NoError(t, err)
			if row == nil {
				break
			}
		}
		assert.True(t, c.Closed())

		assert.NoError(t, d.SetQuery(Raw("DELETE FROM t")).Execute(ctx))
		assert.EqualValues(t, 1, d.AffectedRows())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.MySQL)
		mock.ExpectExec("UPDATE t SET a=1").
			WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'site.t' doesn't exist"})

		err := d.SetQuery(Raw("UPDATE t SET a=1")).Execute(ctx)
		require.Error(t, err)
		assert.True(t, IsQueryError(err))

		var qerr *QueryError
		require.True(t, errors.As(err, &qerr))
		assert.Equal(t, "1146", qerr.Code)
		assert.Equal(t, "Table 'site.t' doesn't exist", qerr.Message)
		assert.Equal(t, "UPDATE t SET a=1", qerr.SQL)
		assert.Equal(t, qerr, d.LastError())
		assert.EqualValues(t, -1, d.AffectedRows())
	})

	t.Run("last error is reset by a successful query", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectExec("DELETE FROM t").WillReturnError(errors.New("boom"))
		mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 0))

		d.SetQuery(Raw("DELETE FROM t"))
		assert.Error(t, d.Execute(ctx))
		assert.NotNil(t, d.LastError())
		assert.Equal(t, "", d.LastError().Code)
		assert.NoError(t, d.Execute(ctx))
		assert.Nil(t, d.LastError())
	})

	t.Run("prefix", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure, WithPrefix("jos_"))
		mock.ExpectQuery("SELECT * FROM jos_users WHERE note = '#__x'").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		row, err := d.SetQuery(Raw("SELECT * FROM #__users WHERE note = '#__x'")).LoadRow(ctx)
		assert.NoError(t, err)
		assert.Nil(t, row)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("paged", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectQuery("SELECT TOP 10 * FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY (SELECT 0)) AS RowNumber FROM t) AS _page WHERE RowNumber > 20 ORDER BY RowNumber").
			WillReturnRows(sqlmock.NewRows([]string{"id", "RowNumber"}).AddRow(21, 21))

		v, err := d.SetQuery(Raw("SELECT id FROM t")).Limit(10, 20).LoadResult(ctx)
		assert.NoError(t, err)
		assert.EqualValues(t, 21, v)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set query resets paging", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectQuery("SELECT id FROM t").WillReturnRows(sqlmock.NewRows([]string{"id"}))

		d.SetQuery(Raw("SELECT x FROM y")).Limit(5, 0)
		_, err := d.SetQuery(Raw("SELECT id FROM t")).LoadRow(ctx)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debug log", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure, WithDebug(true))
		mock.ExpectExec("DELETE FROM a").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM b").WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, d.SetQuery(Raw("DELETE FROM a")).Execute(ctx))
		assert.NoError(t, d.SetQuery(Raw("DELETE FROM b")).Execute(ctx))
		assert.Equal(t, 2, d.Count())

		log := d.Log()
		require.Len(t, log, 2)
		assert.Equal(t, "DELETE FROM a", log[0].SQL)
		assert.Equal(t, "DELETE FROM b", log[1].SQL)
	})

	t.Run("no debug log", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectExec("DELETE FROM a").WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, d.SetQuery(Raw("DELETE FROM a")).Execute(ctx))
		assert.Equal(t, 0, d.Count())
		assert.Empty(t, d.Log())
	})
}

func TestDriver_InsertID(t *testing.T) {
	ctx := context.Background()

	t.Run("identity query", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectQuery("SELECT @@IDENTITY").
			WillReturnRows(sqlmock.NewRows([]string{""}).AddRow("42"))

		id, err := d.InsertID(ctx)
		assert.NoError(t, err)
		assert.EqualValues(t, 42, id)
	})

	t.Run("identity query keeps affected rows", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectExec("INSERT INTO [articles] ([title],[hits],[published],[rating]) VALUES ('a',0,0,0)").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT @@IDENTITY").
			WillReturnRows(sqlmock.NewRows([]string{""}).AddRow(int64(3)))

		a := &Article{Title: "a"}
		require.NoError(t, d.InsertObject(ctx, "", a, "id"))
		assert.Equal(t, 3, a.ID)
		assert.EqualValues(t, 1, d.AffectedRows())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connector result", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.MySQL)
		mock.ExpectExec("INSERT INTO t VALUES (1)").WillReturnResult(sqlmock.NewResult(7, 1))

		assert.NoError(t, d.SetQuery(Raw("INSERT INTO t VALUES (1)")).Execute(ctx))
		id, err := d.InsertID(ctx)
		assert.NoError(t, err)
		assert.EqualValues(t, 7, id)
	})
}

func TestDriver_NumRows(t *testing.T) {
	ctx := context.Background()
	d, mock := newMockDriver(t, Dialects.SQLAzure)
	mock.ExpectQuery("SELECT id FROM t").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)).AddRow(int64(3))).
		RowsWillBeClosed()

	_, err := d.NumRows()
	assert.True(t, IsStateError(err))

	_, err = d.SetQuery(Raw("SELECT id FROM t")).Query(ctx)
	require.NoError(t, err)

	n, err := d.NumRows()
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	var ids []any
	for {
		row, err := d.LoadNextRow(ctx)
		require.NoError(t, err)
		if row == nil {
			break
		}
		ids = append(ids, row[0])
	}
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_Select(t *testing.T) {
	ctx := context.Background()

	t.Run("use", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectExec("USE [site]").WillReturnResult(sqlmock.NewResult(0, 0))
		assert.NoError(t, d.Select(ctx, "site"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty name", func(t *testing.T) {
		d, _ := newMockDriver(t, Dialects.SQLAzure)
		assert.True(t, IsConnectionError(d.Select(ctx, "")))
	})

	t.Run("table fields are reloaded", func(t *testing.T) {
		fieldsQuery := "SELECT column_name AS Field, data_type AS Type, is_nullable AS [Null], column_default AS [Default]" +
			" FROM information_schema.columns WHERE table_name = 'users' ORDER BY ordinal_position"
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectQuery(fieldsQuery).
			WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null", "Default"}).AddRow("id", "int", "NO", nil))
		mock.ExpectExec("USE [archive]").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(fieldsQuery).
			WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null", "Default"}).AddRow("id", "bigint", "NO", nil))

		fields, err := d.TableFields(ctx, true, "users")
		require.NoError(t, err)
		assert.Equal(t, "int", fields["users"]["id"].Type)

		require.NoError(t, d.Select(ctx, "archive"))

		fields, err = d.TableFields(ctx, true, "users")
		require.NoError(t, err)
		assert.Equal(t, "bigint", fields["users"]["id"].Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectExec("USE [nope]").WillReturnError(errors.New("no such database"))
		err := d.Select(ctx, "nope")
		assert.True(t, IsConnectionError(err))
	})

	t.Run("unsupported", func(t *testing.T) {
		d, _ := newMockDriver(t, Dialects.PostgreSQL)
		assert.True(t, IsMissingCapability(d.Select(ctx, "site")))
	})
}

func TestDriver_Version(t *testing.T) {
	ctx := context.Background()

	t.Run("sql server", func(t *testing.T) {
		d, mock := newMockDriver(t, Dialects.SQLAzure)
		mock.ExpectQuery("SELECT @@VERSION").
			WillReturnRows(sqlmock.NewRows([]string{""}).AddRow("Microsoft SQL Azure (RTM) - 12.0.2000.8"))

		v, err := d.Version(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "Microsoft SQL Azure (RTM) - 12.0.2000.8", v)
	})

	t.Run("sqlite", func(t *testing.T) {
		v, err := openSQLite(t).Version(ctx)
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(v, "3."), v)
	})

	t.Run("unsupported", func(t *testing.T) {
		dialect := *Dialects.SQLite3
		dialect.VersionQuery = ""
		_, err := NewDriver(nil, &dialect).Version(ctx)
		assert.True(t, IsMissingCapability(err))
	})
}

func TestDriver_Capabilities(t *testing.T) {
	d, _ := newMockDriver(t, Dialects.SQLAzure)

	e, err := d.Exporter()
	assert.NoError(t, err)
	assert.NotNil(t, e)

	_, err = d.Importer()
	assert.True(t, IsMissingCapability(err))

	noBuilder := *Dialects.SQLAzure
	noBuilder.NewQuery = nil
	d = NewDriver(nil, &noBuilder)
	_, err = d.NewQuery()
	assert.True(t, IsMissingCapability(err))
}

func TestDriver_Close(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	closed := false
	d := NewDriver(db, Dialects.SQLAzure)
	d.closers = append(d.closers, func() error {
		closed = true
		return nil
	})

	assert.NoError(t, d.Close())
	assert.True(t, closed)
	assert.False(t, d.Connected(ctx))
	assert.NoError(t, d.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementVerb(t *testing.T) {
	for sql, verb := range map[string]string{
		"\nSELECT id\nFROM t": "SELECT",
		"select 1":           "SELECT",
		"(SELECT 1) UNION":   "SELECT",
		"  insert into t":    "INSERT",
		"PRAGMA foo;":        "PRAGMA",
		"":                   "",
	} {
		assert.Equal(t, verb, statementVerb(sql), sql)
	}
}
