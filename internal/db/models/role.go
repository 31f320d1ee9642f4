package models

import "time"

// Role represents an access tier in the role-based access control (RBAC)
// system. A user holds at most one role at a time. Role names are normalized
// to a canonical capitalized form before lookup, so "admin" and "Admin"
// resolve to the same row; uniqueness is enforced by the find-or-create path
// in the authz package rather than a database constraint.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// Name is the canonical (capitalized) name of the role, e.g. "Admin".
	Name string `gorm:"size:100;not null"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
