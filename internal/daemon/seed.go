package daemon

import (
	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/authz"
	"github.com/felipemart/baseprojeto/internal/config"
	"github.com/felipemart/baseprojeto/internal/db/models"
)

// seededPermissions are the permission definitions a fresh install starts
// with. They are scoped to the default role of new accounts so the permission
// screen offers them for every user.
var seededPermissions = []struct {
	key         string
	description string
}{
	{authz.PermDashboardView, "Acesso ao dashboard"},
	{authz.PermUserCreate, "Cadastro de Usuários"},
	{authz.PermUserEdit, "Edição de Usuários"},
	{authz.PermUserDelete, "Exclusão de Usuários"},
	{authz.PermUserList, "Listagem de Usuários"},
	{authz.PermUserPermission, "Permissão de Usuários"},
}

func seed(_ *config.Config, db *gorm.DB) {
	// Seed initial data if user table is empty

	var count int64
	db.Model(&models.User{}).Count(&count)

	if count != 0 {
		return
	}

	adminRole := models.Role{Name: "Admin"}
	db.FirstOrCreate(&adminRole, models.Role{Name: adminRole.Name})

	userRole := models.Role{Name: "User"}
	db.FirstOrCreate(&userRole, models.Role{Name: userRole.Name})

	for _, p := range seededPermissions {
		perm := models.Permission{
			Permission:  p.key,
			Description: p.description,
			RoleID:      userRole.ID,
		}
		db.Where("permission = ? AND role_id = ?", p.key, userRole.ID).FirstOrCreate(&perm)

		// The admin role holds every seeded permission as a role-level grant.
		db.FirstOrCreate(
			&models.PermissionRole{PermissionID: perm.ID, RoleID: adminRole.ID},
			models.PermissionRole{PermissionID: perm.ID, RoleID: adminRole.ID},
		)
	}

	// Create default admin user
	db.Create(
		&models.User{
			Name:     "Admin",
			Email:    "admin@localhost.com",
			Password: models.HashPassword("changeme"),
			RoleID:   &adminRole.ID,
		},
	)
}
