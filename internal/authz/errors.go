package authz

import "errors"

var (
	// ErrRoleNameEmpty is returned when assigning a role with an empty name.
	ErrRoleNameEmpty = errors.New("role name cannot be empty")

	// ErrUserNotFound is returned when the subject user does not exist or is soft deleted.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserHasNoRole is returned when granting a permission by key to a user
	// without a role: the on-demand permission row needs a role to be scoped to.
	ErrUserHasNoRole = errors.New("user has no role to scope the permission to")

	// ErrPermissionNotFound is returned when a permission id does not resolve.
	ErrPermissionNotFound = errors.New("permission not found")
)
