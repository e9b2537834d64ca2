package database

import (
	"context"
	"fmt"
)

// QueryBatch runs the stored statement as a batch of statements separated by
// semicolons. With abortOnError the first failure stops the batch, otherwise
// every statement runs and the first failure is returned. With
// transactionSafe the batch runs inside a transaction that is rolled back
// when the batch is aborted.
func (d *Driver) QueryBatch(ctx context.Context, abortOnError, transactionSafe bool) error {
	if err := d.checkReady("batch"); err != nil {
		return err
	}
	text, err := d.prepare(d.stmt, 0, 0)
	if err != nil {
		return err
	}
	statements := splitSQL(text)

	if transactionSafe {
		if err := d.TransactionStart(ctx); err != nil {
			return err
		}
	}

	var first error
	failed := 0
	for _, stmt := range statements {
		c, err := d.run(ctx, stmt)
		if err == nil {
			err = c.Close()
		}
		if err == nil {
			continue
		}

		failed++
		if first == nil {
			first = err
		}
		if abortOnError {
			if transactionSafe {
				_ = d.TransactionRollback(ctx)
			}
			return err
		}
	}

	if transactionSafe {
		if err := d.TransactionCommit(ctx); err != nil {
			return err
		}
	}
	if first != nil {
		return fmt.Errorf("database: %d of %d batch statements failed: %w", failed, len(statements), first)
	}
	return nil
}
