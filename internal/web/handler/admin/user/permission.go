package user

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/authz"
	"github.com/felipemart/baseprojeto/internal/db/models"
	"github.com/felipemart/baseprojeto/internal/web/handler"
	"github.com/felipemart/baseprojeto/internal/web/handler/dashboard"
	"github.com/felipemart/baseprojeto/internal/web/navigation"
)

// subjectPermissions loads the permissions a user can be granted: everything
// defined at or below the user's role tier, optionally filtered by search.
func (s *Service) subjectPermissions(subject *models.User, search string) ([]models.Permission, error) {
	if subject.RoleID == nil {
		return nil, authz.ErrUserHasNoRole
	}

	tx := s.db.Where("role_id >= ?", *subject.RoleID).Order("permission ASC")
	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where("permission LIKE ? OR description LIKE ?", like, like)
	}

	var perms []models.Permission
	if err := tx.Find(&perms).Error; err != nil {
		return nil, err
	}

	return perms, nil
}

// grantedSet returns the ids of the permissions directly attached to a user.
func (s *Service) grantedSet(userID uint64) (map[uint]bool, error) {
	var pivots []models.PermissionUser
	if err := s.db.Where("user_id = ?", userID).Find(&pivots).Error; err != nil {
		return nil, err
	}

	granted := make(map[uint]bool, len(pivots))
	for i := range pivots {
		granted[pivots[i].PermissionID] = true
	}

	return granted, nil
}

// loadSubject resolves the :id route param to a user, including soft-deleted
// ones so their grants stay inspectable.
func (s *Service) loadSubject(c *fiber.Ctx) (*models.User, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var subject models.User
	if err := s.db.Unscoped().Preload("Role").First(&subject, id).Error; err != nil {
		return nil, err
	}

	return &subject, nil
}

// Permissions renders the per-user permission toggle screen.
func (s *Service) Permissions(c *fiber.Ctx) error {
	subject, err := s.loadSubject(c)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplatePermissions, fiber.Map{
			"Error": "Failed to load user",
		}, handler.BaseLayout)
	}

	nav := navigation.NewContext("User Permissions", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, false).
		AddBreadcrumb("Permissions", Path+"/"+strconv.FormatUint(subject.ID, 10)+"/permissions", true)

	search := c.Query("search", "")

	perms, err := s.subjectPermissions(subject, search)
	if err != nil {
		if errors.Is(err, authz.ErrUserHasNoRole) {
			return c.Status(fiber.StatusBadRequest).Render(TemplatePermissions, fiber.Map{
				"Navigation": nav,
				"User":       subject,
				"Error":      "User has no role; assign one before granting permissions.",
			}, handler.BaseLayout)
		}

		log.Error().Err(err).Uint64("user_id", subject.ID).Msg("failed to load permissions")

		return c.Status(fiber.StatusInternalServerError).Render(TemplatePermissions, fiber.Map{
			"Navigation": nav,
			"User":       subject,
			"Error":      "Failed to load permissions",
		}, handler.BaseLayout)
	}

	granted, err := s.grantedSet(subject.ID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", subject.ID).Msg("failed to load granted permissions")

		return c.Status(fiber.StatusInternalServerError).Render(TemplatePermissions, fiber.Map{
			"Navigation": nav,
			"User":       subject,
			"Error":      "Failed to load permissions",
		}, handler.BaseLayout)
	}

	return c.Render(TemplatePermissions, fiber.Map{
		"Navigation":  nav,
		"User":        subject,
		"Permissions": perms,
		"Granted":     granted,
		"Search":      search,
	}, handler.BaseLayout)
}

// TogglePermission grants or revokes one permission for the subject user.
func (s *Service) TogglePermission(c *fiber.Ctx) error {
	subject, err := s.loadSubject(c)
	if err != nil {
		return c.Redirect(Path)
	}

	var in togglePermissionInput
	if err := c.BodyParser(&in); err != nil {
		return c.Redirect(Path + "/" + strconv.FormatUint(subject.ID, 10) + "/permissions")
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Redirect(Path + "/" + strconv.FormatUint(subject.ID, 10) + "/permissions")
	}

	if in.Granted {
		err = s.perms.GrantByID(c.Context(), subject.ID, in.PermissionID)
	} else {
		err = s.perms.RevokeByID(c.Context(), subject.ID, in.PermissionID)
	}

	if err != nil {
		log.Error().Err(err).
			Uint64("user_id", subject.ID).
			Uint("permission_id", in.PermissionID).
			Bool("granted", in.Granted).
			Msg("failed to toggle permission")
	}

	return c.Redirect(Path + "/" + strconv.FormatUint(subject.ID, 10) + "/permissions")
}

// GrantAllPermissions attaches every permission in the subject's role range.
func (s *Service) GrantAllPermissions(c *fiber.Ctx) error {
	subject, err := s.loadSubject(c)
	if err != nil {
		return c.Redirect(Path)
	}

	perms, err := s.subjectPermissions(subject, "")
	if err != nil {
		log.Error().Err(err).Uint64("user_id", subject.ID).Msg("failed to load permissions")

		return c.Redirect(Path + "/" + strconv.FormatUint(subject.ID, 10) + "/permissions")
	}

	for i := range perms {
		if err := s.perms.GrantByID(c.Context(), subject.ID, perms[i].ID); err != nil {
			log.Error().Err(err).
				Uint64("user_id", subject.ID).
				Uint("permission_id", perms[i].ID).
				Msg("failed to grant permission")
		}
	}

	return c.Redirect(Path + "/" + strconv.FormatUint(subject.ID, 10) + "/permissions")
}
