// Package repository mediates between the service logic and the relational
// store. Access goes through a generic bun-backed repository parameterized
// by entity kind, with per-entity specializations layered on top.
package repository

import (
	"context"
	"database/sql"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Repository is a generic store over a single entity kind. Listings are
// ordered by identifier ascending so pagination is stable.
type Repository[T any] struct {
	db bun.IDB
}

// NewRepository creates a repository for the given entity kind.
func NewRepository[T any](db bun.IDB) *Repository[T] {
	return &Repository[T]{db: db}
}

// GetByID fetches one record by primary key.
func (r *Repository[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	record := new(T)
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, NewRecordNotFound().WithMetadata(map[string]any{"id": id})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "select by id failed")
	}

	return record, nil
}

// List fetches an ordered slice of records, skipping offset rows and
// returning at most limit.
func (r *Repository[T]) List(ctx context.Context, offset, limit int) ([]*T, error) {
	var records []*T

	q := r.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.id ASC")

	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "list failed")
	}

	return records, nil
}

// Create inserts the record and returns it with its store-assigned
// identifier populated.
func (r *Repository[T]) Create(ctx context.Context, record *T) (*T, error) {
	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "record violates a unique constraint")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "insert failed")
	}

	return record, nil
}

// Count returns the number of records of this entity kind.
func (r *Repository[T]) Count(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().Model((*T)(nil)).Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "count failed")
	}
	return count, nil
}

// NewRecordNotFound builds the error all repositories report for missing rows.
func NewRecordNotFound() *goerrors.Error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithTextCode("RECORD_NOT_FOUND")
}

// IsRecordNotFound will check for missing-row errors
func IsRecordNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsConflict will check for unique constraint violations, raw or wrapped.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryConflict {
		return true
	}

	return IsUniqueViolation(err)
}

// IsUniqueViolation will check for unique constraint errors across the
// dialects we run against.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key value")
}
