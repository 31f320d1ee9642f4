package authz

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/db/models"
)

// PermissionService manages the granular permission grants of a user and
// answers permission checks through the session cache. Grants and revokes
// only touch pivot rows; permission definition rows are never deleted here.
type PermissionService struct {
	db    *gorm.DB
	cache *SessionCache
}

// NewPermissionService creates a permission service over the given database
// handle and session cache.
func NewPermissionService(db *gorm.DB, cache *SessionCache) *PermissionService {
	return &PermissionService{db: db, cache: cache}
}

// Grant attaches the permission with the given key to the user, creating the
// permission row on demand scoped to the user's current role. The attach is
// idempotent: granting twice leaves exactly one pivot row. The permission
// cache entry is refreshed so checks in the same request see the grant.
func (s *PermissionService) Grant(ctx context.Context, userID uint64, key string) (*models.Permission, error) {
	var user models.User

	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	if user.RoleID == nil {
		return nil, ErrUserHasNoRole
	}

	// Check-then-create: the permission table has no unique constraint on the
	// key, so the lookup keys on permission+role to avoid duplicate rows.
	var perm models.Permission

	err = s.db.WithContext(ctx).
		Where("permission = ? AND role_id = ?", key, *user.RoleID).
		FirstOrCreate(&perm, models.Permission{Permission: key, RoleID: *user.RoleID}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find or create permission %q: %w", key, err)
	}

	if err := s.attach(ctx, userID, perm.ID); err != nil {
		return nil, err
	}

	if _, err := s.RefreshSession(ctx, userID); err != nil {
		return nil, err
	}

	return &perm, nil
}

// GrantByID attaches an already-resolved permission to the user. No role
// scoping check is performed; the caller supplies the permission. The attach
// is idempotent and the cache entry is refreshed.
func (s *PermissionService) GrantByID(ctx context.Context, userID uint64, permissionID uint) error {
	var perm models.Permission

	err := s.db.WithContext(ctx).First(&perm, permissionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPermissionNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to load permission %d: %w", permissionID, err)
	}

	if err := s.attach(ctx, userID, perm.ID); err != nil {
		return err
	}

	_, err = s.RefreshSession(ctx, userID)

	return err
}

func (s *PermissionService) attach(ctx context.Context, userID uint64, permissionID uint) error {
	var pivot models.PermissionUser

	err := s.db.WithContext(ctx).
		Where("permission_id = ? AND user_id = ?", permissionID, userID).
		FirstOrCreate(&pivot, models.PermissionUser{PermissionID: permissionID, UserID: userID}).Error
	if err != nil {
		return fmt.Errorf("failed to attach permission %d to user %d: %w", permissionID, userID, err)
	}

	return nil
}

// Revoke detaches all pivot rows linking the user to permissions with the
// given key. The permission definition rows are left untouched. Revoking a
// key the user does not hold is a no-op.
func (s *PermissionService) Revoke(ctx context.Context, userID uint64, key string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND permission_id IN (SELECT id FROM permissions WHERE permission = ?)", userID, key).
		Delete(&models.PermissionUser{}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke permission %q from user %d: %w", key, userID, err)
	}

	_, err = s.RefreshSession(ctx, userID)

	return err
}

// RevokeByID detaches the pivot row for a single permission id. Detaching a
// permission the user does not hold is a no-op.
func (s *PermissionService) RevokeByID(ctx context.Context, userID uint64, permissionID uint) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Delete(&models.PermissionUser{}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke permission %d from user %d: %w", permissionID, userID, err)
	}

	_, err = s.RefreshSession(ctx, userID)

	return err
}

// Has reports whether the user holds any of the given permission keys
// (OR semantics). It reads from the session cache, building it from the
// database first when absent, so a cold cache never reports false.
func (s *PermissionService) Has(ctx context.Context, userID uint64, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}

	held, ok, err := s.cache.Get(ctx, PermissionsKey(userID))
	if err != nil {
		return false, err
	}

	if !ok {
		if held, err = s.RefreshSession(ctx, userID); err != nil {
			return false, err
		}
	}

	for _, key := range keys {
		for _, h := range held {
			if h == key {
				return true, nil
			}
		}
	}

	return false, nil
}

// RefreshSession rebuilds the user's permission cache entry from the
// database and returns the resolved set. The set merges direct user grants
// with grants held by the user's current role, deduplicated. A soft-deleted
// user resolves to the empty set even though their pivot rows survive, so a
// login session outliving the delete stops passing checks on the next
// rebuild.
func (s *PermissionService) RefreshSession(ctx context.Context, userID uint64) ([]string, error) {
	var direct []string

	err := s.db.WithContext(ctx).Table("permissions").
		Select("DISTINCT permissions.permission").
		Joins("JOIN permission_user ON permission_user.permission_id = permissions.id").
		Joins("JOIN users ON users.id = permission_user.user_id").
		Where("permission_user.user_id = ? AND users.deleted_at IS NULL", userID).
		Pluck("permissions.permission", &direct).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve direct permissions for user %d: %w", userID, err)
	}

	var viaRole []string

	err = s.db.WithContext(ctx).Table("permissions").
		Select("DISTINCT permissions.permission").
		Joins("JOIN permission_role ON permission_role.permission_id = permissions.id").
		Joins("JOIN users ON users.role_id = permission_role.role_id").
		Where("users.id = ? AND users.deleted_at IS NULL", userID).
		Pluck("permissions.permission", &viaRole).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role permissions for user %d: %w", userID, err)
	}

	seen := make(map[string]bool, len(direct)+len(viaRole))
	names := make([]string, 0, len(direct)+len(viaRole))

	for _, set := range [][]string{direct, viaRole} {
		for _, name := range set {
			if !seen[name] {
				seen[name] = true

				names = append(names, name)
			}
		}
	}

	if err := s.cache.Set(ctx, PermissionsKey(userID), names); err != nil {
		return nil, err
	}

	return names, nil
}
