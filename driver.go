package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/trace"

	"github.com/golobby/database/query"
)

const defaultFieldsCacheTTL = time.Minute

// Conn is the connection a Driver executes on. *sql.Conn and *sql.DB both
// implement it; statements such as transactions and identity lookups need
// every call to reach the same session, so Open pins a single *sql.Conn.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Statement is anything that renders to SQL text. *query.Query is a Statement.
type Statement interface {
	SQL() (string, error)
}

// Raw is literal SQL text.
type Raw string

func (r Raw) SQL() (string, error) {
	return string(r), nil
}

// LogEntry is a statement recorded in debug mode.
type LogEntry struct {
	SQL  string
	Time time.Time
}

// Exporter writes a description of database tables.
type Exporter interface {
	Export(ctx context.Context, w io.Writer, tables ...string) error
}

// Importer loads a description written by an Exporter.
type Importer interface {
	Import(ctx context.Context, r io.Reader) error
}

type Option func(*Driver)

// WithPrefix sets the table prefix that replaces PrefixToken.
func WithPrefix(prefix string) Option {
	return func(d *Driver) {
		d.prefix = prefix
	}
}

// WithPrefixResolver replaces the default prefix substitution.
func WithPrefixResolver(r PrefixResolver) Option {
	return func(d *Driver) {
		d.resolver = r
	}
}

// WithDebug records every executed statement, see Log and Count.
func WithDebug(debug bool) Option {
	return func(d *Driver) {
		d.debug = debug
	}
}

func WithLogger(l Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(d *Driver) {
		d.tracer = t
	}
}

// WithFieldsCacheTTL sets how long TableFields results are reused. Zero
// disables the cache.
func WithFieldsCacheTTL(ttl time.Duration) Option {
	return func(d *Driver) {
		d.fieldsTTL = ttl
	}
}

// Driver executes statements on one connection and shapes their results.
// A Driver is not safe for concurrent use, and only one cursor may be open
// at a time.
type Driver struct {
	conn     Conn
	dialect  *Dialect
	prefix   string
	resolver PrefixResolver
	debug    bool
	logger   Logger
	metrics  *Metrics
	tracer   trace.Tracer
	closers  []func() error

	fieldsTTL time.Duration
	fields    *gocache.Cache

	stmt   Statement
	limit  int
	offset int

	cursor     *Cursor
	lastResult sql.Result
	lastErr    *QueryError
	log        []LogEntry
	count      int
}

// NewDriver creates a driver executing on conn with the given dialect.
func NewDriver(conn Conn, dialect *Dialect, opts ...Option) *Driver {
	d := &Driver{
		conn:      conn,
		dialect:   dialect,
		resolver:  ReplacePrefix,
		fieldsTTL: defaultFieldsCacheTTL,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger, _ = NewLogger(LogLevelNone)
	}
	if d.tracer == nil {
		d.tracer = defaultTracer()
	}
	if d.fieldsTTL > 0 {
		d.fields = gocache.New(d.fieldsTTL, 2*d.fieldsTTL)
	}
	return d
}

func (d *Driver) Dialect() *Dialect {
	return d.dialect
}

func (d *Driver) Prefix() string {
	return d.prefix
}

// SetQuery stores the statement run by Query and the load methods. Any
// previous limit and offset are reset.
func (d *Driver) SetQuery(stmt Statement) *Driver {
	d.stmt = stmt
	d.limit = 0
	d.offset = 0
	return d
}

// Limit pages the stored statement. Zero for both leaves it unpaged.
func (d *Driver) Limit(limit, offset int) *Driver {
	d.limit = limit
	d.offset = offset
	return d
}

func (d *Driver) Statement() Statement {
	return d.stmt
}

// ReplacePrefix substitutes the table prefix in sql.
func (d *Driver) ReplacePrefix(sql string) string {
	return d.resolver(sql, d.prefix)
}

// prepare renders stmt, substitutes the prefix and pages the result.
func (d *Driver) prepare(stmt Statement, limit, offset int) (string, error) {
	if stmt == nil {
		return "", &StateError{Op: "query", Reason: "no statement set"}
	}
	text, err := stmt.SQL()
	if err != nil {
		return "", fmt.Errorf("database: render: %w", err)
	}
	text = d.ReplacePrefix(text)
	if limit > 0 || offset > 0 {
		text = d.dialect.Paginate(text, limit, offset)
	}
	return text, nil
}

func (d *Driver) checkReady(op string) error {
	if d.conn == nil {
		return &ConnectionError{Op: op, Err: errNoConnection}
	}
	if d.cursor != nil && !d.cursor.Closed() {
		return &StateError{Op: op, Reason: "a cursor is still open, drain it or call FreeResult"}
	}
	return nil
}

// Query runs the stored statement. Statements that return rows leave an
// open cursor that must be drained or released before the next query.
func (d *Driver) Query(ctx context.Context) (*Cursor, error) {
	if err := d.checkReady("query"); err != nil {
		return nil, err
	}
	text, err := d.prepare(d.stmt, d.limit, d.offset)
	if err != nil {
		return nil, err
	}
	return d.run(ctx, text)
}

// Execute runs the stored statement and releases its cursor.
func (d *Driver) Execute(ctx context.Context) error {
	c, err := d.Query(ctx)
	if err != nil {
		return err
	}
	return c.Close()
}

// exec runs a statement of the driver's own, leaving the stored one alone.
func (d *Driver) exec(ctx context.Context, stmt Statement) (*Cursor, error) {
	if err := d.checkReady("query"); err != nil {
		return nil, err
	}
	text, err := d.prepare(stmt, 0, 0)
	if err != nil {
		return nil, err
	}
	return d.run(ctx, text)
}

var rowVerbs = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"EXPLAIN":  true,
	"PRAGMA":   true,
	"VALUES":   true,
	"DESCRIBE": true,
	"EXEC":     true,
	"EXECUTE":  true,
}

var metricVerbs = map[string]bool{
	"SELECT": true,
	"INSERT": true,
	"UPDATE": true,
	"DELETE": true,
}

// statementVerb returns the first keyword of sql in upper case.
func statementVerb(sql string) string {
	s := strings.TrimLeftFunc(sql, func(r rune) bool {
		return unicode.IsSpace(r) || r == '('
	})
	end := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '(' || r == ';'
	})
	if end < 0 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}

func (d *Driver) run(ctx context.Context, text string) (*Cursor, error) {
	if err := d.checkReady("query"); err != nil {
		return nil, err
	}

	if d.debug {
		d.count++
		d.log = append(d.log, LogEntry{SQL: text, Time: time.Now()})
		d.logger.Debugf("%s", text)
	}
	d.lastErr = nil

	verb := statementVerb(text)
	label := "other"
	if metricVerbs[verb] {
		label = strings.ToLower(verb)
	}

	ctx, span := d.startSpan(ctx, label, text)
	start := time.Now()
	c, err := d.submit(ctx, verb, text)
	d.metrics.observe(d.dialect.Name, label, start, err)
	endSpan(span, err)
	if err != nil {
		return nil, d.fail(text, err)
	}

	if !c.Closed() {
		d.cursor = c
		c.onError = func(err error) error {
			return d.fail(text, err)
		}
		c.release = func() {
			if d.cursor == c {
				d.cursor = nil
			}
		}
	}
	return c, nil
}

func (d *Driver) submit(ctx context.Context, verb, text string) (*Cursor, error) {
	if rowVerbs[verb] {
		rows, err := d.conn.QueryContext(ctx, text)
		if err != nil {
			return nil, err
		}
		d.lastResult = nil
		return newRowCursor(rows, verb == "SELECT")
	}

	res, err := d.conn.ExecContext(ctx, text)
	if err != nil {
		return nil, err
	}
	d.lastResult = res
	return newResultCursor(res), nil
}

// fail records err as the last error of the driver.
func (d *Driver) fail(text string, err error) *QueryError {
	var qerr *QueryError
	if errors.As(err, &qerr) {
		d.lastErr = qerr
		return qerr
	}
	code, message := errorCode(err)
	qerr = &QueryError{Code: code, Message: message, SQL: text, Err: err}
	d.lastErr = qerr
	d.logger.Errorf("query failed: %s - %s SQL=%s", code, message, text)
	return qerr
}

// errorCode extracts the engine error number and message from the connector
// error types.
func errorCode(err error) (string, string) {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return strconv.Itoa(int(msErr.Number)), msErr.Message
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number)), myErr.Message
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Message
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return strconv.Itoa(int(liteErr.Code)), liteErr.Error()
	}
	return "", err.Error()
}

// FreeResult releases the open cursor, if any.
func (d *Driver) FreeResult() error {
	if d.cursor == nil {
		return nil
	}
	return d.cursor.Close()
}

// NumRows counts the rows of the open SELECT cursor.
func (d *Driver) NumRows() (int, error) {
	if d.cursor == nil {
		return 0, &StateError{Op: "num rows", Reason: "no open cursor"}
	}
	return d.cursor.NumRows()
}

// AffectedRows returns the rows changed by the last statement that returned
// no rows, or -1 when unknown.
func (d *Driver) AffectedRows() int64 {
	if d.lastResult == nil {
		return -1
	}
	n, err := d.lastResult.RowsAffected()
	if err != nil {
		return -1
	}
	return n
}

// InsertID returns the identity generated by the last insert.
func (d *Driver) InsertID(ctx context.Context) (int64, error) {
	if d.dialect.IdentityQuery == "" {
		if d.lastResult == nil {
			return 0, nil
		}
		return d.lastResult.LastInsertId()
	}

	// the identity lookup must not replace the result of the insert
	last := d.lastResult
	defer func() { d.lastResult = last }()

	var id int64
	err := d.drain(ctx, Raw(d.dialect.IdentityQuery), func(c *Cursor) error {
		row, err := c.Next()
		if err != nil || row == nil {
			return err
		}
		return assign(&id, row[0])
	})
	return id, err
}

// LastError returns the error of the last statement, nil if it succeeded.
func (d *Driver) LastError() *QueryError {
	return d.lastErr
}

// Log returns the statements recorded in debug mode.
func (d *Driver) Log() []LogEntry {
	out := make([]LogEntry, len(d.log))
	copy(out, d.log)
	return out
}

// Count returns the number of statements run in debug mode.
func (d *Driver) Count() int {
	return d.count
}

// Connected pings the connection.
func (d *Driver) Connected(ctx context.Context) bool {
	if d.conn == nil {
		return false
	}
	return d.conn.PingContext(ctx) == nil
}

// Select makes name the current database of the connection.
func (d *Driver) Select(ctx context.Context, name string) error {
	if name == "" {
		return &ConnectionError{Op: "select database", Err: errors.New("empty database name")}
	}
	if d.dialect.SelectDatabase == nil {
		return &MissingCapabilityError{Dialect: d.dialect.Name, Capability: "database selection"}
	}
	c, err := d.exec(ctx, Raw(d.dialect.SelectDatabase(d, name)))
	if err != nil {
		return &ConnectionError{Op: "select database " + name, Err: err}
	}
	if d.fields != nil {
		d.fields.Flush()
	}
	return c.Close()
}

// Version returns the version string reported by the engine.
func (d *Driver) Version(ctx context.Context) (string, error) {
	if d.dialect.VersionQuery == "" {
		return "", &MissingCapabilityError{Dialect: d.dialect.Name, Capability: "version"}
	}
	var out string
	err := d.drain(ctx, Raw(d.dialect.VersionQuery), func(c *Cursor) error {
		row, err := c.Next()
		if err != nil || row == nil {
			return err
		}
		out = keyOf(row[0])
		return nil
	})
	return out, err
}

// NewQuery returns an empty query builder for the dialect.
func (d *Driver) NewQuery() (*query.Query, error) {
	if d.dialect.NewQuery == nil {
		return nil, &MissingCapabilityError{Dialect: d.dialect.Name, Capability: "query builder"}
	}
	return d.dialect.NewQuery(), nil
}

func (d *Driver) Exporter() (Exporter, error) {
	if d.dialect.NewExporter == nil {
		return nil, &MissingCapabilityError{Dialect: d.dialect.Name, Capability: "exporter"}
	}
	return d.dialect.NewExporter(d), nil
}

func (d *Driver) Importer() (Importer, error) {
	if d.dialect.NewImporter == nil {
		return nil, &MissingCapabilityError{Dialect: d.dialect.Name, Capability: "importer"}
	}
	return d.dialect.NewImporter(d), nil
}

// Close releases the open cursor and the connection.
func (d *Driver) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.FreeResult()
	if cerr := d.conn.Close(); err == nil {
		err = cerr
	}
	for _, closer := range d.closers {
		if cerr := closer(); err == nil {
			err = cerr
		}
	}
	d.conn = nil
	d.closers = nil
	if d.fields != nil {
		d.fields.Flush()
	}
	return err
}
