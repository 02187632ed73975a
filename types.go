package kitsune

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface the package needs. The glog loggers
// built by cmd/server satisfy it directly.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenService signs and validates bearer tokens.
type TokenService interface {
	Generate(subject string) (string, error)
	SignClaims(claims *TokenClaims) (string, error)
	Validate(raw string) (*TokenClaims, error)
}

// UserStore is the repository surface the user service depends on.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	Create(ctx context.Context, record *User) (*User, error)
	Count(ctx context.Context) (int, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] KITSUNE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] KITSUNE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] KITSUNE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] KITSUNE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
