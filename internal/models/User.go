package models

import "gorm.io/gorm"

// Roles
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
	Role     string `json:"role"` // "admin", "viewer"
}
