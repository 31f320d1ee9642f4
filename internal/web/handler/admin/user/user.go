// Package user provides handlers for managing users (CRUD) in admin area.
package user

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/authz"
	"github.com/felipemart/baseprojeto/internal/config"
	"github.com/felipemart/baseprojeto/internal/db/controller/passwordtoken"
	"github.com/felipemart/baseprojeto/internal/db/models"
	"github.com/felipemart/baseprojeto/internal/notify"
	"github.com/felipemart/baseprojeto/internal/uniuri"
	"github.com/felipemart/baseprojeto/internal/web/handler"
	"github.com/felipemart/baseprojeto/internal/web/handler/dashboard"
	"github.com/felipemart/baseprojeto/internal/web/navigation"
	"github.com/felipemart/baseprojeto/internal/web/session"
)

const (
	// Path is the base path for user management.
	Path = handler.RootPath + "admin/user"

	// TemplateList is the template for listing users.
	TemplateList = "admin/user/list"
	// TemplateForm is the template for creating/updating a user.
	TemplateForm = "admin/user/form"
	// TemplateShow is the template for the user detail view.
	TemplateShow = "admin/user/show"
	// TemplatePermissions is the template for the per-user permission toggles.
	TemplatePermissions = "admin/user/permissions"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25

	// InitialPasswordLen is the length of the generated throwaway password.
	// The user never sees it; they set their own through the emailed link.
	InitialPasswordLen = 10

	// CreateTokenTTL bounds the first-password link of a new account.
	CreateTokenTTL = 24 * time.Hour

	desc = "desc"
)

// Service provides CRUD operations for users.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
	roles     *authz.RoleService
	perms     *authz.PermissionService
	cache     *authz.SessionCache
	notifier  *notify.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	roles *authz.RoleService,
	perms *authz.PermissionService,
	cache *authz.SessionCache,
	notifier *notify.Service,
) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()
	s.roles = roles
	s.perms = perms
	s.cache = cache
	s.notifier = notifier

	// Routes
	app.Get(Path,
		authz.RequirePermission(perms, authz.PermUserList),
		s.List,
	)
	app.Get(Path+"/new",
		authz.RequirePermission(perms, authz.PermUserCreate),
		s.New,
	)
	app.Post(Path,
		authz.RequirePermission(perms, authz.PermUserCreate),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		authz.RequirePermission(perms, authz.PermUserEdit),
		s.Edit,
	)
	app.Post(Path+"/:id",
		authz.RequirePermission(perms, authz.PermUserEdit),
		s.Update,
	)
	app.Post(Path+"/:id/delete",
		authz.RequirePermission(perms, authz.PermUserDelete),
		s.Delete,
	)
	app.Post(Path+"/:id/restore",
		authz.RequirePermission(perms, authz.PermUserDelete),
		s.Restore,
	)
	app.Get(Path+"/:id/permissions",
		authz.RequirePermission(perms, authz.PermUserPermission),
		s.Permissions,
	)
	app.Post(Path+"/:id/permissions",
		authz.RequirePermission(perms, authz.PermUserPermission),
		s.TogglePermission,
	)
	app.Post(Path+"/:id/permissions/all",
		authz.RequirePermission(perms, authz.PermUserPermission),
		s.GrantAllPermissions,
	)
	app.Get(Path+"/:id",
		authz.RequirePermission(perms, authz.PermUserList),
		s.Show,
	)
}

// listNav builds the navigation context of the user list.
func listNav() *navigation.Context {
	return navigation.NewContext("Users", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, true)
}

// currentUser resolves the acting user from the session cookie.
func (s *Service) currentUser(c *fiber.Ctx) (models.User, bool) {
	sessionID := c.Cookies("session")
	if sessionID == "" {
		return models.User{}, false
	}

	sessionData := new(session.Data)
	if err := sessionData.Read(sessionID); err != nil {
		return models.User{}, false
	}

	return sessionData.User, sessionData.User.ID > 0
}

// rolesInRange returns the roles the acting user may hand out: their own role
// and everything below it. Lower role ids outrank higher ones.
func (s *Service) rolesInRange(actor *models.User) ([]models.Role, error) {
	tx := s.db.Order("name ASC")
	if actor.RoleID != nil {
		tx = tx.Where("id >= ?", *actor.RoleID)
	}

	var roles []models.Role
	if err := tx.Find(&roles).Error; err != nil {
		return nil, err
	}

	return roles, nil
}

// roleInRange reports whether the role id is one the acting user may assign.
func roleInRange(roles []models.Role, roleID uint) bool {
	for i := range roles {
		if roles[i].ID == roleID {
			return true
		}
	}

	return false
}

// List shows users with search, sorting and pagination. Soft-deleted users are
// included so they can be inspected and restored.
func (s *Service) List(c *fiber.Ctx) error {
	nav := listNav()

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	search := c.Query("search", "")

	sortField := c.Query("sort", "id")
	switch sortField {
	case "id", "name", "email", "created_at":
	default:
		sortField = "id"
	}

	sortOrder := c.Query("order", "asc")
	if sortOrder != desc {
		sortOrder = "asc"
	}

	var (
		users      []models.User
		totalCount int64
		tx         = s.db.Unscoped().Model(&models.User{})
	)

	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where("name LIKE ? OR email LIKE ?", like, like)
	}

	if err := tx.Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("count users failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load users",
			"Search":     search,
		}, handler.BaseLayout)
	}

	totalPages := int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	offset := (page - 1) * pageSize

	err := tx.Preload("Role").
		Order(sortField + " " + sortOrder).
		Limit(pageSize).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		log.Error().Err(err).Msg("query users failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load users",
			"Search":     search,
		}, handler.BaseLayout)
	}

	actor, _ := s.currentUser(c)

	return c.Render(TemplateList, fiber.Map{
		"Navigation":    nav,
		"Users":         users,
		"CurrentUserID": actor.ID,
		"Search":        search,
		"Sort":          sortField,
		"Order":         sortOrder,
		"Page":          page,
		"PageSize":      pageSize,
		"TotalItems":    totalCount,
		"TotalPages":    totalPages,
		"HasPrev":       page > 1,
		"HasNext":       page < totalPages,
		"PrevPage":      page - 1,
		"NextPage":      page + 1,
	}, handler.BaseLayout)
}

// New shows the creation form.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New User", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	actor, _ := s.currentUser(c)

	roles, err := s.rolesInRange(&actor)
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load roles",
		}, handler.BaseLayout)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":   nav,
		"User":         models.User{},
		"IsCreate":     true,
		"Roles":        roles,
		"SelectedRole": uint(0),
	}, handler.BaseLayout)
}

// Create creates a new user with a generated initial password and sends the
// welcome and first-password notifications. Notification or token failures are
// logged but never roll back the created account.
func (s *Service) Create(c *fiber.Ctx) error {
	nav := listNav()

	var in createInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Invalid form data",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Please correct the highlighted errors",
		}, handler.BaseLayout)
	}

	actor, _ := s.currentUser(c)

	roles, err := s.rolesInRange(&actor)
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load roles",
		}, handler.BaseLayout)
	}

	if !roleInRange(roles, in.RoleID) {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Selected role is not available",
		}, handler.BaseLayout)
	}

	user := models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: models.HashPassword(uniuri.NewLen(InitialPasswordLen)),
		RoleID:   &in.RoleID,
	}

	if err := s.db.Create(&user).Error; err != nil {
		// Unique constraint errors etc.
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to create user: " + err.Error(),
		}, handler.BaseLayout)
	}

	s.notifier.Welcome(&user)

	token, err := passwordtoken.Issue(s.db, user.ID, models.TokenPurposeCreate, CreateTokenTTL)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to issue first-password token")
	} else {
		s.notifier.PasswordCreate(&user, token)
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for a user.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load user",
		}, handler.BaseLayout)
	}

	actor, _ := s.currentUser(c)

	roles, err := s.rolesInRange(&actor)
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load roles",
		}, handler.BaseLayout)
	}

	nav := navigation.NewContext("Edit User", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, false).
		AddBreadcrumb("Edit", Path+"/"+strconv.Itoa(id)+"/edit", true)

	var selectedRole uint
	if user.RoleID != nil {
		selectedRole = *user.RoleID
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":   nav,
		"User":         user,
		"IsCreate":     false,
		"Roles":        roles,
		"SelectedRole": selectedRole,
	}, handler.BaseLayout)
}

// Update updates a user's name, email and role.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var in updateInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Invalid form data",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Please correct the highlighted errors",
		}, handler.BaseLayout)
	}

	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load user",
		}, handler.BaseLayout)
	}

	actor, _ := s.currentUser(c)

	roles, err := s.rolesInRange(&actor)
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load roles",
		}, handler.BaseLayout)
	}

	if !roleInRange(roles, in.RoleID) {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Selected role is not available",
		}, handler.BaseLayout)
	}

	roleChanged := user.RoleID == nil || *user.RoleID != in.RoleID

	user.Name = in.Name
	user.Email = in.Email
	user.RoleID = &in.RoleID

	if err := s.db.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update user: " + err.Error(),
		}, handler.BaseLayout)
	}

	// A role change moves the role-derived permission set too, so both cache
	// entries are rebuilt.
	if roleChanged {
		if _, err := s.roles.RefreshSession(c.Context(), user.ID); err != nil {
			log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to refresh role session")
		}

		if _, err := s.perms.RefreshSession(c.Context(), user.ID); err != nil {
			log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to refresh permission session")
		}
	}

	return c.Redirect(Path)
}

// Show renders the detail view of a user, including soft-deleted ones.
func (s *Service) Show(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var user models.User
	if err := s.db.Unscoped().Preload("Role").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateShow, fiber.Map{
			"Error": "Failed to load user",
		}, handler.BaseLayout)
	}

	nav := navigation.NewContext("User", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, false).
		AddBreadcrumb(user.Name, Path+"/"+strconv.Itoa(id), true)

	return c.Render(TemplateShow, fiber.Map{
		"Navigation": nav,
		"User":       user,
	}, handler.BaseLayout)
}
