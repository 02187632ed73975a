package kitsune

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// User is the user model. The password hash is never serialized outward.
//
// The email column carries a unique constraint so the store, not the
// service-level existence check, is the final guard against duplicate
// registrations racing each other.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	FullName      string     `bun:"full_name" json:"full_name,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	IsActive      bool       `bun:"is_active,notnull,default:true" json:"is_active"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Subject renders the user's identifier the way token claims carry it.
func (u *User) Subject() string {
	return strconv.FormatInt(u.ID, 10)
}
