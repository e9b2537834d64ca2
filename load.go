package database

import (
	"context"
	"fmt"
	"reflect"
)

// drain runs stmt, or the stored statement with its paging when stmt is nil,
// hands the cursor to fn and releases it afterwards.
func (d *Driver) drain(ctx context.Context, stmt Statement, fn func(c *Cursor) error) error {
	var c *Cursor
	var err error
	if stmt == nil {
		c, err = d.Query(ctx)
	} else {
		c, err = d.exec(ctx, stmt)
	}
	if err != nil {
		return err
	}

	err = fn(c)
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	return err
}

// columnIndex returns the position of column in c, -1 when absent.
func columnIndex(c *Cursor, column string) int {
	for i, name := range c.Columns() {
		if name == column {
			return i
		}
	}
	return -1
}

func assocOf(columns []string, row []any) map[string]any {
	m := make(map[string]any, len(columns))
	for i, name := range columns {
		m[name] = row[i]
	}
	return m
}

func keyOf(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// LoadResult returns the first column of the first row, nil when there are
// no rows.
func (d *Driver) LoadResult(ctx context.Context) (any, error) {
	var out any
	err := d.drain(ctx, nil, func(c *Cursor) error {
		row, err := c.Next()
		if err != nil || len(row) == 0 {
			return err
		}
		out = row[0]
		return nil
	})
	return out, err
}

// LoadResultArray returns the given column of every row.
func (d *Driver) LoadResultArray(ctx context.Context, column int) ([]any, error) {
	var out []any
	err := d.drain(ctx, nil, func(c *Cursor) error {
		if column < 0 || (c.Columns() != nil && column >= len(c.Columns())) {
			return fmt.Errorf("database: column %d out of range", column)
		}
		for {
			row, err := c.Next()
			if err != nil || row == nil {
				return err
			}
			out = append(out, row[column])
		}
	})
	return out, err
}

// LoadRow returns the first row, nil when there are no rows.
func (d *Driver) LoadRow(ctx context.Context) ([]any, error) {
	var out []any
	err := d.drain(ctx, nil, func(c *Cursor) error {
		row, err := c.Next()
		out = row
		return err
	})
	return out, err
}

// LoadRowList returns every row.
func (d *Driver) LoadRowList(ctx context.Context) ([][]any, error) {
	var out [][]any
	err := d.drain(ctx, nil, func(c *Cursor) error {
		for {
			row, err := c.Next()
			if err != nil || row == nil {
				return err
			}
			out = append(out, row)
		}
	})
	return out, err
}

// LoadRowListKeyed returns every row keyed by the value of column key. Rows
// with a repeated key replace the earlier ones.
func (d *Driver) LoadRowListKeyed(ctx context.Context, key int) (map[string][]any, error) {
	out := map[string][]any{}
	err := d.drain(ctx, nil, func(c *Cursor) error {
		if key < 0 || key >= len(c.Columns()) {
			return fmt.Errorf("database: column %d out of range", key)
		}
		for {
			row, err := c.Next()
			if err != nil || row == nil {
				return err
			}
			out[keyOf(row[key])] = row
		}
	})
	return out, err
}

// LoadAssoc returns the first row as a column name to value map, nil when
// there are no rows.
func (d *Driver) LoadAssoc(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := d.drain(ctx, nil, func(c *Cursor) error {
		row, err := c.Next()
		if err != nil || row == nil {
			return err
		}
		out = assocOf(c.Columns(), row)
		return nil
	})
	return out, err
}

// LoadAssocList returns every row as a column name to value map.
func (d *Driver) LoadAssocList(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := d.drain(ctx, nil, func(c *Cursor) error {
		for {
			row, err := c.Next()
			if err != nil || row == nil {
				return err
			}
			out = append(out, assocOf(c.Columns(), row))
		}
	})
	return out, err
}

// LoadAssocListKeyed returns every row keyed by the value of column key. With
// a column name the values are that column only, otherwise the row maps.
func (d *Driver) LoadAssocListKeyed(ctx context.Context, key, column string) (map[string]any, error) {
	out := map[string]any{}
	err := d.drain(ctx, nil, func(c *Cursor) error {
		k := columnIndex(c, key)
		if k < 0 {
			return fmt.Errorf("database: unknown key column %q", key)
		}
		v := -1
		if column != "" {
			if v = columnIndex(c, column); v < 0 {
				return fmt.Errorf("database: unknown column %q", column)
			}
		}
		for {
			row, err := c.Next()
			if err != nil || row == nil {
				return err
			}
			if v >= 0 {
				out[keyOf(row[k])] = row[v]
				continue
			}
			out[keyOf(row[k])] = assocOf(c.Columns(), row)
		}
	})
	return out, err
}

// LoadObject fills dest, a pointer to a struct, from the first row. It
// reports false when there are no rows.
func (d *Driver) LoadObject(ctx context.Context, dest any) (bool, error) {
	found := false
	err := d.drain(ctx, nil, func(c *Cursor) error {
		row, err := c.Next()
		if err != nil || row == nil {
			return err
		}
		found = true
		return bindRow(dest, c.Columns(), row)
	})
	return found, err
}

// LoadObjectList appends every row to dest, a pointer to a slice of structs
// or of struct pointers.
func (d *Driver) LoadObjectList(ctx context.Context, dest any) error {
	slice := reflect.ValueOf(dest)
	if slice.Kind() != reflect.Ptr || slice.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("database: dest should be a pointer to a slice, got %T", dest)
	}
	slice = slice.Elem()

	return d.drain(ctx, nil, func(c *Cursor) error {
		for {
			row, err := c.Next()
			if err != nil || row == nil {
				return err
			}
			elem, err := newElem(slice.Type().Elem(), c.Columns(), row)
			if err != nil {
				return err
			}
			slice.Set(reflect.Append(slice, elem))
		}
	})
}

// LoadObjectMap returns every row as a T keyed by the value of column key.
func LoadObjectMap[T any](ctx context.Context, d *Driver, key string) (map[string]*T, error) {
	out := map[string]*T{}
	err := d.drain(ctx, nil, func(c *Cursor) error {
		k := columnIndex(c, key)
		if k < 0 {
			return fmt.Errorf("database: unknown key column %q", key)
		}
		for {
			row, err := c.Next()
			if err != nil || row == nil {
				return err
			}
			obj := new(T)
			if err := bindRow(obj, c.Columns(), row); err != nil {
				return err
			}
			out[keyOf(row[k])] = obj
		}
	})
	return out, err
}

// nextRow reads the next row of the cursor kept across LoadNext calls,
// running the stored statement first when no cursor is open.
func (d *Driver) nextRow(ctx context.Context) ([]string, []any, error) {
	c := d.cursor
	if c == nil || c.Closed() {
		var err error
		if c, err = d.Query(ctx); err != nil {
			return nil, nil, err
		}
	}
	row, err := c.Next()
	if err != nil || row == nil {
		return nil, nil, err
	}
	return c.Columns(), row, nil
}

// LoadNextRow returns the next row of the stored statement, nil after the
// last one. The cursor stays open between calls.
func (d *Driver) LoadNextRow(ctx context.Context) ([]any, error) {
	_, row, err := d.nextRow(ctx)
	return row, err
}

// LoadNextAssoc is LoadNextRow returning a column name to value map.
func (d *Driver) LoadNextAssoc(ctx context.Context) (map[string]any, error) {
	columns, row, err := d.nextRow(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	return assocOf(columns, row), nil
}

// LoadNextObject is LoadNextRow filling dest. It reports false after the last row.
func (d *Driver) LoadNextObject(ctx context.Context, dest any) (bool, error) {
	columns, row, err := d.nextRow(ctx)
	if err != nil || row == nil {
		return false, err
	}
	if err := bindRow(dest, columns, row); err != nil {
		_ = d.FreeResult()
		return false, err
	}
	return true, nil
}
