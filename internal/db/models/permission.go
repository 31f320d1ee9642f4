package models

import "time"

// Permission represents a named capability, e.g. "user.create".
// A permission is defined under a role (RoleID is its defining scope) but can
// be held by any user through the permission_user pivot, and by any role
// through the permission_role pivot, independent of the holder's own role.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Permission is the capability key in resource.action format.
	Permission string `gorm:"column:permission;size:100;not null"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255"`
	// RoleID is the role this permission is defined under.
	RoleID uint `gorm:"column:role_id;not null"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}
