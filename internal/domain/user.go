package domain

import (
	"time"

	"github.com/google/uuid"
)

// Roles carried in session claims
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

// User represents a storefront account. Accounts created by signup use the
// email address as username.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Role maps the staff flag onto a session role
func (u *User) Role() string {
	if u.IsStaff {
		return RoleStaff
	}
	return RoleCustomer
}

// Contact represents a message sent through the public contact form
type Contact struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	Description string    `json:"desc" db:"description"`
	PhoneNumber int64     `json:"phonenumber" db:"phone_number"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
