package authz

import "strconv"

// KeyKind selects which resolved set a session-cache key addresses.
type KeyKind int

const (
	// KindPermissions addresses the resolved set of permission keys a user holds.
	KindPermissions KeyKind = iota
	// KindRoles addresses the resolved role name of a user.
	KindRoles
)

// Key is a structured session-cache key. All cache access goes through this
// type so the wire format of the key lives in exactly one place.
type Key struct {
	Kind   KeyKind
	UserID uint64
}

// PermissionsKey returns the session-cache key for a user's permission set.
func PermissionsKey(userID uint64) Key {
	return Key{Kind: KindPermissions, UserID: userID}
}

// RolesKey returns the session-cache key for a user's role names.
func RolesKey(userID uint64) Key {
	return Key{Kind: KindRoles, UserID: userID}
}

// String renders the canonical cache key, e.g. "user:42:permissions".
// The colon-separated form is canonical; the dot-separated variant seen in
// older deployments is not emitted anywhere.
func (k Key) String() string {
	suffix := "permissions"
	if k.Kind == KindRoles {
		suffix = "roles"
	}

	return "user:" + strconv.FormatUint(k.UserID, 10) + ":" + suffix
}
