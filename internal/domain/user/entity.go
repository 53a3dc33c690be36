package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the system (matches user_role enum)
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// User represents the subset of the users table this service reads.
type User struct {
	ID          uuid.UUID      `db:"id"`
	Email       string         `db:"email"`
	FullName    sql.NullString `db:"full_name"`
	Role        Role           `db:"role"`
	CoinBalance int            `db:"coin_balance"`
	IsBanned    bool           `db:"is_banned"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// DisplayName falls back to the email when no name is set.
func (u *User) DisplayName() string {
	if u.FullName.Valid && u.FullName.String != "" {
		return u.FullName.String
	}
	return u.Email
}
