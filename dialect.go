package database

import (
	"fmt"
	"strings"

	"github.com/golobby/database/query"
)

// Dialect holds what differs between engines: quoting, paging, metadata
// statements and optional components. Nil function fields mean the engine
// does not support the operation.
type Dialect struct {
	Name       string
	DriverName string
	NameQuote  string
	NullDate   string

	Paginate func(sql string, limit, offset int) string
	Escape   func(text string, extra bool) string
	DSN      func(c Config) (string, error)

	// IdentityQuery reads the last generated identity. When empty the
	// connector result of the insert is used.
	IdentityQuery string
	VersionQuery  string

	TableListQuery   string
	TableFieldsQuery func(d *Driver, table string) string
	TableCreateQuery func(d *Driver, table string) string
	CollationQuery   string
	Collation        string
	SelectDatabase   func(d *Driver, name string) string

	BeginTransaction    string
	CommitTransaction   string
	RollbackTransaction string

	ExplainPrefix string
	ExplainOn     string
	ExplainOff    string

	NewQuery    func() *query.Query
	NewExporter func(d *Driver) Exporter
	NewImporter func(d *Driver) Importer
}

func informationSchemaFields(d *Driver, table string) string {
	return fmt.Sprintf("SELECT column_name AS Field, data_type AS Type, is_nullable AS %s, column_default AS %s"+
		" FROM information_schema.columns WHERE table_name = %s ORDER BY ordinal_position",
		d.NameQuote("Null"), d.NameQuote("Default"), d.Quote(table))
}

func useDatabase(d *Driver, name string) string {
	return "USE " + d.NameQuote(name)
}

var Dialects = &struct {
	SQLAzure   *Dialect
	MySQL      *Dialect
	PostgreSQL *Dialect
	SQLite3    *Dialect
}{
	SQLAzure: &Dialect{
		Name:                "sqlazure",
		DriverName:          "sqlserver",
		NameQuote:           "[]",
		NullDate:            "1900-01-01 00:00:00",
		Paginate:            topPaginate,
		Escape:              escapeTransactSQL,
		DSN:                 sqlServerDSN,
		IdentityQuery:       "SELECT @@IDENTITY",
		VersionQuery:        "SELECT @@VERSION",
		TableListQuery:      "SELECT name FROM sysobjects WHERE xtype = 'U'",
		TableFieldsQuery:    informationSchemaFields,
		CollationQuery:      "SELECT CAST(DATABASEPROPERTYEX(DB_NAME(), 'Collation') AS NVARCHAR(128))",
		SelectDatabase:      useDatabase,
		BeginTransaction:    "BEGIN TRANSACTION",
		CommitTransaction:   "COMMIT TRANSACTION",
		RollbackTransaction: "ROLLBACK TRANSACTION",
		ExplainOn:           "SET SHOWPLAN_ALL ON",
		ExplainOff:          "SET SHOWPLAN_ALL OFF",
		NewQuery:            query.New,
		NewExporter:         newStructureExporter,
	},
	MySQL: &Dialect{
		Name:             "mysql",
		DriverName:       "mysql",
		NameQuote:        "``",
		NullDate:         "0000-00-00 00:00:00",
		Paginate:         limitOffsetPaginate("18446744073709551615"),
		Escape:           escapeMySQL,
		DSN:              mysqlDSN,
		VersionQuery:     "SELECT VERSION()",
		TableListQuery:   "SHOW TABLES",
		TableFieldsQuery: informationSchemaFields,
		TableCreateQuery: func(d *Driver, table string) string {
			return "SHOW CREATE TABLE " + d.NameQuote(table)
		},
		CollationQuery:      "SELECT @@collation_database",
		SelectDatabase:      useDatabase,
		BeginTransaction:    "START TRANSACTION",
		CommitTransaction:   "COMMIT",
		RollbackTransaction: "ROLLBACK",
		ExplainPrefix:       "EXPLAIN ",
		NewQuery:            query.New,
		NewExporter:         newStructureExporter,
	},
	PostgreSQL: &Dialect{
		Name:                "postgres",
		DriverName:          "postgres",
		NameQuote:           `""`,
		NullDate:            "1970-01-01 00:00:00",
		Paginate:            limitOffsetPaginate(""),
		Escape:              escapeStandard(true),
		DSN:                 postgresDSN,
		IdentityQuery:       "SELECT lastval()",
		VersionQuery:        "SELECT version()",
		TableListQuery:      "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name",
		TableFieldsQuery:    informationSchemaFields,
		CollationQuery:      "SELECT datcollate FROM pg_database WHERE datname = current_database()",
		BeginTransaction:    "BEGIN",
		CommitTransaction:   "COMMIT",
		RollbackTransaction: "ROLLBACK",
		ExplainPrefix:       "EXPLAIN ",
		NewQuery:            query.New,
		NewExporter:         newStructureExporter,
	},
	SQLite3: &Dialect{
		Name:           "sqlite3",
		DriverName:     "sqlite3",
		NameQuote:      `""`,
		NullDate:       "0000-00-00 00:00:00",
		Paginate:       limitOffsetPaginate("-1"),
		Escape:         escapeStandard(false),
		DSN:            sqliteDSN,
		VersionQuery:   "SELECT sqlite_version()",
		TableListQuery: "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
		TableFieldsQuery: func(d *Driver, table string) string {
			return fmt.Sprintf(`SELECT name AS Field, type AS Type, CASE "notnull" WHEN 1 THEN 'NO' ELSE 'YES' END AS "Null",`+
				` dflt_value AS "Default" FROM pragma_table_info(%s) ORDER BY cid`, d.Quote(table))
		},
		TableCreateQuery: func(d *Driver, table string) string {
			return "SELECT sql FROM sqlite_master WHERE type = 'table' AND name = " + d.Quote(table)
		},
		Collation:           "BINARY",
		BeginTransaction:    "BEGIN TRANSACTION",
		CommitTransaction:   "COMMIT",
		RollbackTransaction: "ROLLBACK",
		ExplainPrefix:       "EXPLAIN QUERY PLAN ",
		NewQuery:            query.New,
		NewExporter:         newStructureExporter,
	},
}

func getDialect(driver string) (*Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlazure", "sqlsrv", "sqlserver", "mssql":
		return Dialects.SQLAzure, nil
	case "mysql", "mysqli":
		return Dialects.MySQL, nil
	case "postgres", "postgresql", "pgsql":
		return Dialects.PostgreSQL, nil
	case "sqlite", "sqlite3":
		return Dialects.SQLite3, nil
	default:
		return nil, fmt.Errorf("database: no dialect matched with driver %q", driver)
	}
}
