package repository

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/kitsunehq/kitsune"
	"github.com/uptrace/bun"
)

// Users is the user store: generic CRUD plus the email lookup the auth flow
// needs.
type Users struct {
	*Repository[kitsune.User]
	db bun.IDB
}

var _ kitsune.UserStore = (*Users)(nil)

// NewUsers creates the users repository.
func NewUsers(db bun.IDB) *Users {
	return &Users{
		Repository: NewRepository[kitsune.User](db),
		db:         db,
	}
}

// GetByEmail fetches a user by exact email match, case-sensitive as stored.
func (r *Users) GetByEmail(ctx context.Context, email string) (*kitsune.User, error) {
	record := &kitsune.User{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, NewRecordNotFound().WithMetadata(map[string]any{"email": email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "select by email failed")
	}

	return record, nil
}

// Create inserts the user and returns it materialized. A unique violation
// on the email column is reported as ErrDuplicateEmail.
func (r *Users) Create(ctx context.Context, record *kitsune.User) (*kitsune.User, error) {
	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}

	created, err := r.Repository.Create(ctx, record)
	if err != nil {
		if IsConflict(err) {
			return nil, kitsune.ErrDuplicateEmail
		}
		return nil, err
	}

	return created, nil
}
