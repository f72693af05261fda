package models

import "time"

type UserRole string

const (
	UserRoleUser    UserRole = "user"
	UserRoleManager UserRole = "manager"
	UserRoleAdmin   UserRole = "admin"
)

// ValidRole reports whether role is one of the recognized roles.
func ValidRole(role UserRole) bool {
	switch role {
	case UserRoleUser, UserRoleManager, UserRoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	Role         UserRole
	CreatedAt    time.Time
}
