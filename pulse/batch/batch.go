// Package batch pages through large tables in fixed-size chunks.
//
// Jobs never load a whole table: they ask a Source for skip/take windows of
// PageSize rows, process each page, and stop at the first short page.
package batch

import (
	"context"

	"github.com/vrooli/jobs/errors"
)

// PageSize is the number of rows fetched per page
const PageSize = 100

// Query describes what to page through.
// Where and Args are passed to the store unchanged; OrderBy defaults to "id"
// so pages are stable while the scan runs.
type Query struct {
	Table   string
	Select  string
	Where   string
	Args    []any
	OrderBy string
}

// Source fetches one page of rows for a query
type Source[T any] interface {
	FindMany(ctx context.Context, q Query, skip, take int) ([]T, error)
}

// SourceFunc adapts a function to Source
type SourceFunc[T any] func(ctx context.Context, q Query, skip, take int) ([]T, error)

// FindMany calls f
func (f SourceFunc[T]) FindMany(ctx context.Context, q Query, skip, take int) ([]T, error) {
	return f(ctx, q, skip, take)
}

// Batch calls process once per non-empty page.
// Pages are requested strictly one after another and the scan ends after the
// first page holding fewer than PageSize rows, so no request follows a short page.
func Batch[T any](ctx context.Context, src Source[T], q Query, process func(ctx context.Context, page []T) error) error {
	for skip := 0; ; skip += PageSize {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "scan of %s interrupted at offset %d", q.Table, skip)
		}

		page, err := src.FindMany(ctx, q, skip, PageSize)
		if err != nil {
			return errors.Wrapf(err, "fetch %s page at offset %d", q.Table, skip)
		}

		if len(page) > 0 {
			if err := process(ctx, page); err != nil {
				return errors.Wrapf(err, "process %s page at offset %d", q.Table, skip)
			}
		}

		if len(page) < PageSize {
			return nil
		}
	}
}

// Group scans like Batch while threading an accumulator through every page.
// finalize runs once after the last page, including for an empty table.
func Group[T, R any](
	ctx context.Context,
	src Source[T],
	q Query,
	initial R,
	process func(ctx context.Context, page []T, acc *R) error,
	finalize func(acc *R),
) (R, error) {
	acc := initial
	err := Batch(ctx, src, q, func(ctx context.Context, page []T) error {
		return process(ctx, page, &acc)
	})
	if err != nil {
		return acc, err
	}

	if finalize != nil {
		finalize(&acc)
	}
	return acc, nil
}
