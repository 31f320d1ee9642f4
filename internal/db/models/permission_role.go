package models

import "time"

// PermissionRole represents the many-to-many relationship between permissions
// and roles. A row means every holder of the role carries the permission.
type PermissionRole struct {
	// PermissionID is the ID of the granted permission.
	PermissionID uint `gorm:"primaryKey;column:permission_id"`
	// RoleID is the ID of the holding role.
	RoleID uint `gorm:"primaryKey;column:role_id"`
	// Permission is the associated permission (loaded via foreign key).
	Permission Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
	// Role is the associated role (loaded via foreign key).
	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the grant was made (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the PermissionRole model.
func (PermissionRole) TableName() string {
	return "permission_role"
}
