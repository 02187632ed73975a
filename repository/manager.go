package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/kitsunehq/kitsune"
	"github.com/uptrace/bun"
)

// Manager owns the repositories and the schema. One Manager per process;
// request handlers reach the store only through it.
type Manager struct {
	db    *bun.DB
	users *Users
}

// NewManager creates the repository manager.
func NewManager(db *bun.DB) *Manager {
	return &Manager{
		db:    db,
		users: NewUsers(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// Users returns the user repository.
func (m *Manager) Users() *Users {
	return m.users
}

// RunInTx runs f inside a store transaction.
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// CreateSchema creates the tables the service needs if they are absent.
// It is idempotent and runs at every startup; there is no migrations
// subsystem.
func (m *Manager) CreateSchema(ctx context.Context) error {
	if _, err := m.db.NewCreateTable().
		Model((*kitsune.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	if _, err := m.db.NewCreateIndex().
		Model((*kitsune.User)(nil)).
		Index("idx_users_email").
		Column("email").
		Unique().
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	return nil
}
