// Package passwordtoken provides issue/consume operations for password
// creation and recovery tokens. Only the SHA-256 hash of a token is stored;
// the plaintext is handed to the notification sender and discarded.
package passwordtoken

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/db/models"
	"github.com/felipemart/baseprojeto/internal/uniuri"
)

var (
	// ErrTokenNotFound is returned when no outstanding token matches.
	ErrTokenNotFound = errors.New("password token not found")
	// ErrTokenExpired is returned when the matching token is past its expiry.
	ErrTokenExpired = errors.New("password token expired")
	// ErrTokenConsumed is returned when the matching token was already redeemed.
	ErrTokenConsumed = errors.New("password token already used")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// hash returns the hex-encoded SHA-256 of the token plaintext.
func hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue creates a new token for the user and returns the plaintext.
// Previously outstanding tokens of the same purpose are invalidated so only
// the latest emailed link works.
func Issue(db *gorm.DB, userID uint64, purpose models.TokenPurpose, ttl time.Duration) (string, error) {
	if db == nil {
		return "", ErrDBNil
	}

	if err := db.Where("user_id = ? AND purpose = ? AND consumed_at IS NULL", userID, purpose).
		Delete(&models.PasswordToken{}).Error; err != nil {
		return "", err
	}

	plaintext := uniuri.NewLen(uniuri.TokenLen)

	row := models.PasswordToken{
		UserID:    userID,
		TokenHash: hash(plaintext),
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := db.Create(&row).Error; err != nil {
		return "", err
	}

	return plaintext, nil
}

// Lookup resolves a plaintext token to its row without consuming it.
func Lookup(db *gorm.DB, plaintext string) (*models.PasswordToken, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var row models.PasswordToken

	result := db.Where("token_hash = ?", hash(plaintext)).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}

		return nil, result.Error
	}

	if row.ConsumedAt != nil {
		return nil, ErrTokenConsumed
	}

	if time.Now().After(row.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return &row, nil
}

// Consume redeems a plaintext token and returns the row it matched.
// A token can be consumed exactly once.
func Consume(db *gorm.DB, plaintext string) (*models.PasswordToken, error) {
	row, err := Lookup(db, plaintext)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	row.ConsumedAt = &now

	if err := db.Save(row).Error; err != nil {
		return nil, err
	}

	return row, nil
}

// PurgeExpired removes tokens past their expiry. Called opportunistically by
// the daemon; losing a race here is harmless since Lookup checks expiry too.
func PurgeExpired(db *gorm.DB) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Where("expires_at < ?", time.Now()).Delete(&models.PasswordToken{}).Error
}
