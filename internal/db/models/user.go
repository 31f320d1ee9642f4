package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// User represents a user account in the system.
// A user holds at most one role at a time; granular permissions are attached
// through the permission_user pivot. Users are soft deleted so they stay
// addressable for audit and restore.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Name is the user's display name.
	Name string `gorm:"size:255;not null"`
	// Email is the unique login address.
	Email string `gorm:"unique;size:255;not null"`
	// Password is the Argon2id hashed password.
	Password string `gorm:"size:255"`
	// RoleID is the role currently assigned to this user, if any.
	RoleID *uint `gorm:"column:role_id"`
	// Role is the associated role (loaded via foreign key).
	Role *Role `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete marker (managed by GORM). Soft-deleted
	// users are excluded from default queries but remain reachable with
	// Unscoped for audit and restore flows.
	DeletedAt gorm.DeletedAt `gorm:"index"`
	// DeletedBy references the admin that soft deleted this user.
	DeletedBy *uint64
	// RestoredBy references the admin that restored this user.
	RestoredBy *uint64
	// RestoredAt is the timestamp of the last restore.
	RestoredAt *time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// IsDeleted reports whether the user is currently soft deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt.Valid
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// It uses the default Argon2id parameters for secure password hashing.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
// Returns true if the password matches, false otherwise.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
