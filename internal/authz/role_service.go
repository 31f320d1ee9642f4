package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/db/models"
)

// RoleService manages the single role reference of a user and answers role
// checks through the session cache. It replaces nothing in the database on
// its own initiative: assigning a role only moves the user's role pointer,
// it never deletes the previous role row.
type RoleService struct {
	db    *gorm.DB
	cache *SessionCache
}

// NewRoleService creates a role service over the given database handle and
// session cache.
func NewRoleService(db *gorm.DB, cache *SessionCache) *RoleService {
	return &RoleService{db: db, cache: cache}
}

// CanonicalName normalizes a role name to its canonical display form:
// first rune upper case, rest lower case. The whole name is one token, so
// "super-admin" becomes "Super-admin", not two title-cased words.
func CanonicalName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(name)

	return string(unicode.ToUpper(r)) + name[size:]
}

// Assign sets the user's single role reference to the role with the given
// name, creating the role on demand. The name is normalized first, so
// repeated calls with different casing resolve to the same role row.
// Assigning a different role replaces the previous reference; a user never
// holds two roles. The session cache is not touched here: callers refresh it
// explicitly (RefreshSession) when the change must be visible to checks.
func (s *RoleService) Assign(ctx context.Context, userID uint64, name string) (*models.Role, error) {
	canonical := CanonicalName(name)
	if canonical == "" {
		return nil, ErrRoleNameEmpty
	}

	var role models.Role

	err := s.db.WithContext(ctx).
		Where("name = ?", canonical).
		FirstOrCreate(&role, models.Role{Name: canonical}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find or create role %q: %w", canonical, err)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("role_id", role.ID)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to assign role to user %d: %w", userID, res.Error)
	}

	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return &role, nil
}

// Has reports whether the user's role matches any of the given names
// (OR semantics). It reads from the session cache, building it from the
// database first when absent, so a cold cache never reports false. Unknown
// role names simply yield false; Has never fails on them.
func (s *RoleService) Has(ctx context.Context, userID uint64, names ...string) (bool, error) {
	if len(names) == 0 {
		return false, nil
	}

	held, ok, err := s.cache.Get(ctx, RolesKey(userID))
	if err != nil {
		return false, err
	}

	if !ok {
		if held, err = s.RefreshSession(ctx, userID); err != nil {
			return false, err
		}
	}

	for _, name := range names {
		canonical := CanonicalName(name)
		for _, h := range held {
			if h == canonical {
				return true, nil
			}
		}
	}

	return false, nil
}

// RefreshSession rebuilds the user's role cache entry from the database and
// returns the resolved role names. A user without a role yields an empty
// set, and so does a soft-deleted user: their role reference survives the
// delete, but it no longer answers checks.
func (s *RoleService) RefreshSession(ctx context.Context, userID uint64) ([]string, error) {
	var names []string

	err := s.db.WithContext(ctx).Table("roles").
		Joins("JOIN users ON users.role_id = roles.id").
		Where("users.id = ? AND users.deleted_at IS NULL", userID).
		Pluck("roles.name", &names).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to resolve roles for user %d: %w", userID, err)
	}

	if err := s.cache.Set(ctx, RolesKey(userID), names); err != nil {
		return nil, err
	}

	return names, nil
}
