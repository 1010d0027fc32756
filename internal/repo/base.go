package repo

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// WithTx rebinds the base to tx. A nil tx keeps the current connection.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Conflict names the natural key of a table and the columns overwritten when
// a row with that key already exists.
type Conflict struct {
	Columns []string
	Updates []string
}

func (c Conflict) clause() clause.OnConflict {
	cols := make([]clause.Column, 0, len(c.Columns))
	for _, name := range c.Columns {
		cols = append(cols, clause.Column{Name: name})
	}
	return clause.OnConflict{
		Columns:   cols,
		DoUpdates: clause.AssignmentColumns(c.Updates),
	}
}

// Upsert inserts value, or overwrites the update columns of the row sharing
// its natural key.
func (b Base) Upsert(ctx context.Context, value any, conflict Conflict) error {
	return b.DB(ctx).Clauses(conflict.clause()).Create(value).Error
}

// UpsertAll writes records in one statement. When the statement fails every
// record is retried alone so one bad row cannot hide the others; the failures
// are returned together and the rows that succeeded stay written.
func UpsertAll[T any](ctx context.Context, b Base, records []T, conflict Conflict, describe func(T) string) error {
	if len(records) == 0 {
		return nil
	}
	if err := b.Upsert(ctx, &records, conflict); err == nil {
		return nil
	}

	var errs error
	for i := range records {
		if err := b.Upsert(ctx, &records[i], conflict); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", describe(records[i]), err))
		}
	}
	return errs
}
