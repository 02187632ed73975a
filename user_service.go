package kitsune

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// CreateUserInput carries a registration request into the service. The
// plaintext password never reaches the store; only its hash is persisted.
type CreateUserInput struct {
	Email    string
	Password string
	FullName string
	Active   *bool
}

// UserService implements the account rules on top of a UserStore:
// uniqueness on create, password hashing, credential verification, and
// pagination orchestration.
type UserService struct {
	store  UserStore
	logger Logger
}

// NewUserService will create a new UserService
func NewUserService(store UserStore) *UserService {
	return &UserService{
		store:  store,
		logger: defLogger{},
	}
}

func (s *UserService) WithLogger(logger Logger) *UserService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// CreateUser registers a new account. The email existence check and the
// insert are two separate store operations; the unique constraint on the
// email column backstops the race between concurrent registrations, and a
// constraint violation surfaces as ErrDuplicateEmail just like the check.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*User, error) {
	existing, err := s.store.GetByEmail(ctx, input.Email)
	if err != nil && !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	user := &User{
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: hash,
		IsActive:     active,
	}

	created, err := s.store.Create(ctx, user)
	if err != nil {
		if goerrors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
	}

	s.logger.Info("user created", "user_id", created.ID, "email", created.Email)

	return created, nil
}

// GetUser loads a user by its store identifier.
func (s *UserService) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
	}
	return user, nil
}

// ListUsers returns one page of users ordered by identifier ascending. The
// item fetch and the count are independent reads, not a snapshot: the total
// may be momentarily inconsistent with the items under concurrent writes.
func (s *UserService) ListUsers(ctx context.Context, params PageParams) (*Page[*User], error) {
	params = params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid pagination parameters")
	}

	items, err := s.store.List(ctx, params.Offset(), params.Size)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count users")
	}

	return NewPage(items, total, params), nil
}

// Authenticate verifies an email/password pair. Unknown emails and wrong
// passwords both come back as ErrInvalidCredentials; an inactive account
// with a correct password comes back as ErrInactiveUser.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify password")
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	return user, nil
}
