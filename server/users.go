package server

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/kitsunehq/kitsune"
)

// CreateUserRequest is the registration payload.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	IsActive *bool  `json:"is_active"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.FullName, validation.Length(0, 200)),
	)
}

// CreateUser registers a new user. The response carries the created entity;
// the password hash never serializes.
func (s *Server) CreateUser(c *fiber.Ctx) error {
	payload := new(CreateUserRequest)

	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse user payload")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	user, err := s.users.CreateUser(c.UserContext(), kitsune.CreateUserInput{
		Email:    payload.Email,
		Password: payload.Password,
		FullName: payload.FullName,
		Active:   payload.IsActive,
	})
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// ListUsers returns one page of users. Guarded by RequireUser and
// RequireActiveUser in the route chain.
func (s *Server) ListUsers(c *fiber.Ctx) error {
	params := kitsune.PageParams{
		Page: c.QueryInt("page", kitsune.DefaultPage),
		Size: c.QueryInt("size", kitsune.DefaultPageSize),
	}

	page, err := s.users.ListUsers(c.UserContext(), params)
	if err != nil {
		return err
	}

	return c.JSON(page)
}
