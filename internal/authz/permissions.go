package authz

// Permission constants define the available permissions in the system.
// These are used for role-based access control (RBAC) to restrict access
// to specific resources and actions.
const (
	// PermDashboardView allows viewing the dashboard.
	PermDashboardView = "dashboard.view"

	// PermUserCreate allows creating new user accounts.
	PermUserCreate = "user.create"
	// PermUserEdit allows editing existing user accounts.
	PermUserEdit = "user.edit"
	// PermUserDelete allows soft deleting and restoring user accounts.
	PermUserDelete = "user.delete"
	// PermUserList allows listing and viewing user accounts.
	PermUserList = "user.list"
	// PermUserPermission allows toggling the granular permissions of a user.
	PermUserPermission = "user.permission"
)
