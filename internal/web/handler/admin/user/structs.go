package user

// createInput is the user creation form. The initial password is generated
// server side, so it is not part of the form.
type createInput struct {
	Name   string `form:"name"    validate:"required,min=3,max=255"`
	Email  string `form:"email"   validate:"required,email,max=255"`
	RoleID uint   `form:"role_id" validate:"required"`
}

// updateInput is the user edit form.
type updateInput struct {
	Name   string `form:"name"    validate:"required,min=3,max=255"`
	Email  string `form:"email"   validate:"required,email,max=255"`
	RoleID uint   `form:"role_id" validate:"required"`
}

// deleteInput carries the typed confirmation for a soft delete.
type deleteInput struct {
	Confirm string `form:"confirm" validate:"required,eq=DELETAR"`
}

// restoreInput carries the typed confirmation for a restore.
type restoreInput struct {
	Confirm string `form:"confirm" validate:"required,eq=RESTAURAR"`
}

// togglePermissionInput selects one permission grant to flip.
type togglePermissionInput struct {
	PermissionID uint `form:"permission_id" validate:"required"`
	Granted      bool `form:"granted"`
}
