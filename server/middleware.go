package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kitsunehq/kitsune"
)

// userContextKey is where the guard parks the authenticated user for
// downstream handlers.
const userContextKey = "current_user"

// RequireUser extracts and validates the bearer token, loads the user it
// names, and stores it in the request locals. Missing or bad tokens reject
// with the shared could-not-validate error; a token whose subject no longer
// exists reports 404, a deliberately distinct outcome.
func (s *Server) RequireUser(c *fiber.Ctx) error {
	raw, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return err
	}

	id, err := claims.UserID()
	if err != nil {
		return kitsune.ErrTokenMalformed
	}

	user, err := s.users.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}

	c.Locals(userContextKey, user)

	return c.Next()
}

// RequireActiveUser composes after RequireUser and rejects disabled accounts.
func (s *Server) RequireActiveUser(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return kitsune.ErrTokenMalformed
	}

	if !user.IsActive {
		return kitsune.ErrInactiveUser
	}

	return c.Next()
}

// CurrentUser finds the authenticated user placed by RequireUser.
func CurrentUser(c *fiber.Ctx) (*kitsune.User, bool) {
	user, ok := c.Locals(userContextKey).(*kitsune.User)
	return user, ok
}

// bearerToken strips the Bearer scheme off an authorization header.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", kitsune.ErrTokenMalformed
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", kitsune.ErrTokenMalformed
	}

	return strings.TrimSpace(token), nil
}
