package database

import (
	"database/sql"
)

// Cursor is the result of one executed statement. Row statements hold open
// rows until the cursor is drained or closed; other statements only carry
// their sql.Result.
type Cursor struct {
	rows       *sql.Rows
	result     sql.Result
	columns    []string
	scrollable bool
	buffered   [][]any
	closed     bool
	release    func()
	onError    func(error) error
}

func newRowCursor(rows *sql.Rows, scrollable bool) (*Cursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &Cursor{rows: rows, columns: columns, scrollable: scrollable}, nil
}

func newResultCursor(result sql.Result) *Cursor {
	return &Cursor{result: result, closed: true}
}

// Columns returns the column names of a row cursor.
func (c *Cursor) Columns() []string {
	return c.columns
}

// Result is the outcome of a statement that returned no rows.
func (c *Cursor) Result() sql.Result {
	return c.result
}

// Closed reports whether the cursor holds no more resources.
func (c *Cursor) Closed() bool {
	return c.closed
}

// Next returns the next row, or nil at the end of data. Byte slices are
// returned as strings. The cursor closes itself at the end of data and on
// error.
func (c *Cursor) Next() ([]any, error) {
	if len(c.buffered) > 0 {
		row := c.buffered[0]
		c.buffered = c.buffered[1:]
		return row, nil
	}
	if c.closed {
		return nil, nil
	}
	if c.rows == nil {
		return nil, c.Close()
	}

	row, err := c.scan()
	if err != nil || row == nil {
		closeErr := c.Close()
		if err == nil {
			err = closeErr
		}
		return nil, c.wrap(err)
	}
	return row, nil
}

func (c *Cursor) scan() ([]any, error) {
	if !c.rows.Next() {
		return nil, c.rows.Err()
	}
	values := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}

// NumRows counts the rows of a SELECT cursor that have not been read yet.
// The rows are buffered so they can still be read afterwards.
func (c *Cursor) NumRows() (int, error) {
	if !c.scrollable {
		return 0, &StateError{Op: "num rows", Reason: "only SELECT cursors can be counted"}
	}
	if !c.closed {
		for {
			row, err := c.scan()
			if err != nil {
				_ = c.Close()
				return 0, c.wrap(err)
			}
			if row == nil {
				break
			}
			c.buffered = append(c.buffered, row)
		}
		if err := c.closeRows(); err != nil {
			return 0, err
		}
	}
	return len(c.buffered), nil
}

func (c *Cursor) wrap(err error) error {
	if err == nil || c.onError == nil {
		return err
	}
	return c.onError(err)
}

func (c *Cursor) closeRows() error {
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	return err
}

// Close releases the cursor. It is safe to call more than once.
func (c *Cursor) Close() error {
	c.buffered = nil
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.closeRows()
	if c.release != nil {
		c.release()
	}
	return err
}
