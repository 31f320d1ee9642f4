package models

import "time"

// PermissionUser represents the many-to-many relationship between permissions
// and users. A row means the user holds the permission directly, regardless
// of the role the permission is defined under. Attaches are idempotent: the
// composite primary key prevents duplicate pivot rows.
type PermissionUser struct {
	// PermissionID is the ID of the held permission.
	PermissionID uint `gorm:"primaryKey;column:permission_id"`
	// UserID is the ID of the holding user.
	UserID uint64 `gorm:"primaryKey;column:user_id"`
	// Permission is the associated permission (loaded via foreign key).
	Permission Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the permission was granted (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the PermissionUser model.
func (PermissionUser) TableName() string {
	return "permission_user"
}
