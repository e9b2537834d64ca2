package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	gocache "github.com/patrickmn/go-cache"
)

var typeSizePattern = regexp.MustCompile(`[(0-9)]`)

// TableField describes a column as reported by the engine.
type TableField struct {
	Field   string
	Type    string
	Null    string
	Default sql.NullString
}

// TableList returns the names of the tables of the current database.
func (d *Driver) TableList(ctx context.Context) ([]string, error) {
	if d.dialect.TableListQuery == "" {
		return nil, &MissingCapabilityError{Dialect: d.dialect.Name, Capability: "table list"}
	}
	var tables []string
	err := d.drain(ctx, Raw(d.dialect.TableListQuery), func(c *Cursor) error {
		for {
			row, err := c.Next()
			if err != nil || row == nil {
				return err
			}
			tables = append(tables, keyOf(row[0]))
		}
	})
	return tables, err
}

// TableFields returns the columns of each table keyed by column name. With
// typeOnly only Field and Type are set, and sizes are stripped from Type.
// Results are cached for the fields cache TTL.
func (d *Driver) TableFields(ctx context.Context, typeOnly bool, tables ...string) (map[string]map[string]TableField, error) {
	if d.dialect.TableFieldsQuery == nil {
		return nil, &MissingCapabilityError{Dialect: d.dialect.Name, Capability: "table fields"}
	}

	out := make(map[string]map[string]TableField, len(tables))
	for _, table := range tables {
		table = d.ReplacePrefix(table)
		cacheKey := fmt.Sprintf("%s:%t", table, typeOnly)
		if d.fields != nil {
			if cached, ok := d.fields.Get(cacheKey); ok {
				out[table] = cached.(map[string]TableField)
				continue
			}
		}

		fields := map[string]TableField{}
		err := d.drain(ctx, Raw(d.dialect.TableFieldsQuery(d, table)), func(c *Cursor) error {
			for {
				row, err := c.Next()
				if err != nil || row == nil {
					return err
				}
				var f TableField
				if err := bindRow(&f, c.Columns(), row); err != nil {
					return err
				}
				if typeOnly {
					f = TableField{Field: f.Field, Type: typeSizePattern.ReplaceAllString(f.Type, "")}
				}
				fields[f.Field] = f
			}
		})
		if err != nil {
			return nil, err
		}

		if d.fields != nil {
			d.fields.Set(cacheKey, fields, gocache.DefaultExpiration)
		}
		out[table] = fields
	}
	return out, nil
}

// TableCreate returns the CREATE statement of each table.
func (d *Driver) TableCreate(ctx context.Context, tables ...string) (map[string]string, error) {
	if d.dialect.TableCreateQuery == nil {
		return nil, &MissingCapabilityError{Dialect: d.dialect.Name, Capability: "table create"}
	}

	out := make(map[string]string, len(tables))
	for _, table := range tables {
		table = d.ReplacePrefix(table)
		err := d.drain(ctx, Raw(d.dialect.TableCreateQuery(d, table)), func(c *Cursor) error {
			row, err := c.Next()
			if err != nil || row == nil {
				return err
			}
			out[table] = keyOf(row[len(row)-1])
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Collation returns the collation of the current database.
func (d *Driver) Collation(ctx context.Context) (string, error) {
	if d.dialect.CollationQuery == "" {
		return d.dialect.Collation, nil
	}
	var out string
	err := d.drain(ctx, Raw(d.dialect.CollationQuery), func(c *Cursor) error {
		row, err := c.Next()
		if err != nil || row == nil {
			return err
		}
		out = keyOf(row[0])
		return nil
	})
	return out, err
}

func (d *Driver) transaction(ctx context.Context, stmt string) error {
	c, err := d.exec(ctx, Raw(stmt))
	if err != nil {
		return err
	}
	return c.Close()
}

// TransactionStart opens a transaction on the connection.
func (d *Driver) TransactionStart(ctx context.Context) error {
	return d.transaction(ctx, d.dialect.BeginTransaction)
}

func (d *Driver) TransactionCommit(ctx context.Context) error {
	return d.transaction(ctx, d.dialect.CommitTransaction)
}

func (d *Driver) TransactionRollback(ctx context.Context) error {
	return d.transaction(ctx, d.dialect.RollbackTransaction)
}
