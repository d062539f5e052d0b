package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RolePrincipal UserRole = "PRINCIPAL"
	RoleAA        UserRole = "AA"
	RoleHOD       UserRole = "HOD"
	RoleLecturer  UserRole = "LECTURER"
)

// NormalizeRole trims and upper-cases a raw role string so lookups are
// case-insensitive. The result is not guaranteed to be a known role.
func NormalizeRole(raw string) UserRole {
	return UserRole(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsValid reports whether the role is one of the five workflow roles.
// Anything else fails closed at the auth boundary.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RolePrincipal, RoleAA, RoleHOD, RoleLecturer:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	DepartmentID *string    `db:"department_id" json:"department_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
