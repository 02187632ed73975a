package server

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// LoginRequest is the OAuth2-password-grant-compatible form payload: the
// username field carries the email.
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// TokenResponse is the login success body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LoginAccessToken exchanges form-encoded credentials for a bearer token.
// Every credential failure renders the same generic message; inactive
// accounts are the one distinguished case.
func (s *Server) LoginAccessToken(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse login payload")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	user, err := s.users.Authenticate(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return err
	}

	token, err := s.tokens.Generate(user.Subject())
	if err != nil {
		return err
	}

	return c.JSON(TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
