package database

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/table"
)

// Explain returns the execution plan of the stored statement rendered as a
// text table headed by the statement itself.
func (d *Driver) Explain(ctx context.Context) (plan string, err error) {
	if err = d.checkReady("explain"); err != nil {
		return "", err
	}
	text, err := d.prepare(d.stmt, d.limit, d.offset)
	if err != nil {
		return "", err
	}

	if d.dialect.ExplainOn != "" {
		if err = d.transaction(ctx, d.dialect.ExplainOn); err != nil {
			return "", err
		}
		defer func() {
			if offErr := d.transaction(ctx, d.dialect.ExplainOff); offErr != nil && err == nil {
				plan, err = "", offErr
			}
		}()
	}

	w := table.NewWriter()
	err = d.drain(ctx, Raw(d.dialect.ExplainPrefix+text), func(c *Cursor) error {
		header := table.Row{}
		for _, column := range c.Columns() {
			header = append(header, column)
		}
		w.AppendHeader(header)
		for {
			row, err := c.Next()
			if err != nil || row == nil {
				return err
			}
			w.AppendRow(table.Row(row))
		}
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\n%s", text, w.Render()), nil
}
