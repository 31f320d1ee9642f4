// Package models contains database model definitions.
package models

import "time"

// TokenPurpose distinguishes why a password token was issued.
type TokenPurpose string

const (
	// TokenPurposeCreate is issued when an admin creates an account and the
	// user must set their first password.
	TokenPurposeCreate TokenPurpose = "create"
	// TokenPurposeRecovery is issued through the password recovery flow.
	TokenPurposeRecovery TokenPurpose = "recovery"
)

// PasswordToken stores an outstanding password creation or recovery token.
// Only the SHA-256 hash of the token is stored; the plaintext goes out in the
// notification email and is never persisted.
type PasswordToken struct {
	// ID is the unique identifier for the token row.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the user this token was issued for.
	UserID uint64 `gorm:"not null;index"`
	// TokenHash is the hex-encoded SHA-256 hash of the token plaintext.
	TokenHash string `gorm:"size:64;uniqueIndex;not null"`
	// Purpose records why the token was issued (create or recovery).
	Purpose TokenPurpose `gorm:"type:varchar(20);not null"`
	// ExpiresAt is when the token stops being redeemable.
	ExpiresAt time.Time `gorm:"not null"`
	// ConsumedAt is set when the token is redeemed; nil while outstanding.
	ConsumedAt *time.Time
	// CreatedAt is the timestamp when the token was issued (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the PasswordToken model.
func (PasswordToken) TableName() string {
	return "password_tokens"
}
