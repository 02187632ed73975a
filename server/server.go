// Package server exposes the HTTP surface: login, user registration, the
// paginated user listing, and the health check, with the bearer-token guard
// in front of protected routes.
package server

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/kitsunehq/kitsune"
)

// Server wires the fiber app to the domain services.
type Server struct {
	app    *fiber.App
	cfg    *kitsune.Config
	users  *kitsune.UserService
	tokens kitsune.TokenService
	logger kitsune.Logger
}

// Option mutates the server during construction.
type Option func(*Server)

// WithLogger overrides the default logger.
func WithLogger(logger kitsune.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds the fiber app and registers every route.
func New(cfg *kitsune.Config, users *kitsune.UserService, tokens kitsune.TokenService, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		logger: nil,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:      cfg.ProjectName,
		ErrorHandler: s.errorHandler,
	})

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	api := s.app.Group(s.cfg.APIPrefix)

	api.Get("/health", s.HealthCheck)
	api.Post("/login/access-token", s.LoginAccessToken)

	users := api.Group("/users")
	users.Post("/", s.CreateUser)
	users.Get("/", s.RequireUser, s.RequireActiveUser, s.ListUsers)
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves requests until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// HealthCheck is the unconditional liveness response, no auth.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "System is healthy",
	})
}

// ErrorResponse is the uniform error envelope every failure renders as.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// errorHandler maps every error that escapes a handler to one status and
// message. Anything unclassified becomes a 500 with a fixed generic
// message; the real cause stays in the server log.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fiberErr *fiber.Error
	var richErr *goerrors.Error
	var validationErrs validation.Errors

	switch {
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
		message = fiberErr.Message
	case goerrors.As(err, &richErr):
		status = statusForError(richErr)
		message = richErr.Message
	case errors.As(err, &validationErrs):
		status = fiber.StatusBadRequest
		message = validationErrs.Error()
	}

	if status >= fiber.StatusInternalServerError {
		if s.logger != nil {
			s.logger.Error("request failed", "path", c.Path(), "error", err)
		}
		message = "Internal Server Error"
	}

	return c.Status(status).JSON(ErrorResponse{
		Status:  "error",
		Code:    status,
		Message: message,
	})
}

// statusForError picks the HTTP status for a classified error. Bad
// credentials, inactive accounts, and duplicate emails render 400 and token
// failures 403, matching the service's observed contract; auth failures
// deliberately share statuses so responses leak nothing about which check
// tripped.
func statusForError(err *goerrors.Error) int {
	switch err.TextCode {
	case kitsune.TextCodeTokenExpired, kitsune.TextCodeTokenMalformed:
		return fiber.StatusForbidden
	case kitsune.TextCodeInvalidCredentials, kitsune.TextCodeInactiveUser, kitsune.TextCodeDuplicateEmail:
		return fiber.StatusBadRequest
	case kitsune.TextCodeUserNotFound:
		return fiber.StatusNotFound
	}

	switch err.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
