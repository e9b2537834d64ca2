package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/golobby/database/logging"
)

// Config describes a connection. DSN wins over the separate connection
// fields when set.
type Config struct {
	Driver         string           `yaml:"driver"`
	DSN            string           `yaml:"dsn"`
	Host           string           `yaml:"host"`
	Port           int              `yaml:"port"`
	User           string           `yaml:"user"`
	Password       string           `yaml:"password"`
	Database       string           `yaml:"database"`
	Prefix         string           `yaml:"prefix"`
	Select         bool             `yaml:"select"`
	Debug          bool             `yaml:"debug"`
	LogLevel       string           `yaml:"log_level"`
	FieldsCacheTTL time.Duration    `yaml:"fields_cache_ttl"`
	Log            *logging.Options `yaml:"log"`
}

// DefaultConfig selects the configured database on connect and caches table
// fields for a minute.
func DefaultConfig() Config {
	return Config{
		Select:         true,
		FieldsCacheTTL: defaultFieldsCacheTTL,
	}
}

// ParseConfig reads a YAML document over DefaultConfig.
func ParseConfig(b []byte) (Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("database: parse config: %w", err)
	}
	if c.Driver == "" {
		return Config{}, fmt.Errorf("database: parse config: driver is required")
	}
	return c, nil
}

func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("database: load config: %w", err)
	}
	return ParseConfig(b)
}

// Signature identifies the configuration. Equal configurations have equal
// signatures.
func (c Config) Signature() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		b = []byte(fmt.Sprintf("%#v", c))
	}
	return strconv.FormatUint(xxhash.Sum64(b), 16)
}

func hostPort(host string, port int, defaultPort int) string {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func sqlServerDSN(c Config) (string, error) {
	u := &url.URL{
		Scheme: "sqlserver",
		Host:   hostPort(c.Host, c.Port, 1433),
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func mysqlDSN(c Config) (string, error) {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = hostPort(c.Host, c.Port, 3306)
	mc.DBName = c.Database
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

func postgresDSN(c Config) (string, error) {
	quote := func(v string) string {
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
	}
	host, port, _ := net.SplitHostPort(hostPort(c.Host, c.Port, 5432))
	parts := []string{"host=" + quote(host), "port=" + port, "sslmode=disable"}
	if c.User != "" {
		parts = append(parts, "user="+quote(c.User))
	}
	if c.Password != "" {
		parts = append(parts, "password="+quote(c.Password))
	}
	if c.Database != "" {
		parts = append(parts, "dbname="+quote(c.Database))
	}
	return strings.Join(parts, " "), nil
}

func sqliteDSN(c Config) (string, error) {
	if c.Database == "" {
		return ":memory:", nil
	}
	return c.Database, nil
}

// pinnedConn is a single connection taken from its own pool. Closing it
// closes the pool too.
type pinnedConn struct {
	*sql.Conn
	db *sql.DB
}

func (p *pinnedConn) Close() error {
	err := p.Conn.Close()
	if dbErr := p.db.Close(); err == nil {
		err = dbErr
	}
	return err
}

// Open connects with c and returns a driver bound to a single connection.
// Options are applied after the ones derived from c.
func Open(ctx context.Context, c Config, opts ...Option) (*Driver, error) {
	dialect, err := getDialect(c.Driver)
	if err != nil {
		return nil, err
	}

	dsn := c.DSN
	if dsn == "" {
		if dsn, err = dialect.DSN(c); err != nil {
			return nil, &ConnectionError{Op: "dsn", Err: err}
		}
	}

	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Op: "connect", Err: err}
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, &ConnectionError{Op: "ping", Err: err}
	}

	base := []Option{
		WithPrefix(c.Prefix),
		WithDebug(c.Debug),
		WithFieldsCacheTTL(c.FieldsCacheTTL),
	}
	var closers []func() error
	switch {
	case c.Log != nil:
		sink, err := logging.New(*c.Log)
		if err != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, err
		}
		adapter := logging.NewAdapter(sink, "database")
		if c.Debug {
			adapter.WithDebug()
		}
		base = append(base, WithLogger(adapter))
		closers = append(closers, sink.Close)
	default:
		level, err := parseLogLevel(c.LogLevel)
		if err != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, err
		}
		l, err := NewLogger(level)
		if err != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, err
		}
		base = append(base, WithLogger(l))
	}

	d := NewDriver(&pinnedConn{Conn: conn, db: db}, dialect, append(base, opts...)...)
	d.closers = append(d.closers, closers...)

	if c.Select && c.Database != "" && dialect.SelectDatabase != nil {
		if err := d.Select(ctx, c.Database); err != nil {
			_ = d.Close()
			return nil, err
		}
	}
	return d, nil
}
