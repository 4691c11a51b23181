package batch

import (
	"context"
	"database/sql"
	"strings"

	"github.com/vrooli/jobs/errors"
)

// Row is the subset of *sql.Rows a scanner needs
type Row interface {
	Scan(dest ...any) error
}

// SQLSource pages through a table with LIMIT/OFFSET.
// Each page is its own query; there is no transaction spanning pages.
type SQLSource[T any] struct {
	db   *sql.DB
	scan func(Row) (T, error)
}

// NewSQLSource creates a source that turns each row into a T with scan
func NewSQLSource[T any](db *sql.DB, scan func(Row) (T, error)) *SQLSource[T] {
	return &SQLSource[T]{db: db, scan: scan}
}

// FindMany runs the page query and scans every row
func (s *SQLSource[T]) FindMany(ctx context.Context, q Query, skip, take int) ([]T, error) {
	query, args := BuildSQL(q, skip, take)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", q.Table)
	}
	defer rows.Close()

	page := make([]T, 0, take)
	for rows.Next() {
		item, err := s.scan(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s row", q.Table)
		}
		page = append(page, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate %s rows", q.Table)
	}
	return page, nil
}

// BuildSQL renders the page query for q and its arguments
func BuildSQL(q Query, skip, take int) (string, []any) {
	selectList := q.Select
	if selectList == "" {
		selectList = "*"
	}
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectList)
	b.WriteString(" FROM ")
	b.WriteString(q.Table)
	if q.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy)
	b.WriteString(" LIMIT ? OFFSET ?")

	args := make([]any, 0, len(q.Args)+2)
	args = append(args, q.Args...)
	args = append(args, take, skip)
	return b.String(), args
}
