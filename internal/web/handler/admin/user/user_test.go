package user

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/authz"
	"github.com/felipemart/baseprojeto/internal/cache"
	"github.com/felipemart/baseprojeto/internal/config"
	"github.com/felipemart/baseprojeto/internal/db/models"
	"github.com/felipemart/baseprojeto/internal/notify"
	websess "github.com/felipemart/baseprojeto/internal/web/session"
)

// noOpViews is a minimal Fiber Views engine used for tests.
// It writes the "Error"/"error" field from the provided fiber.Map (if any)
// so tests can assert error messages rendered by handlers.
type noOpViews struct{}

func (noOpViews) Load() error { return nil }

func (noOpViews) Render(w io.Writer, name string, data interface{}, _ ...string) error {
	if m, ok := data.(fiber.Map); ok {
		for _, key := range []string{"Error", "error"} {
			if v, exists := m[key]; exists && v != nil {
				if s, ok := v.(string); ok && s != "" {
					_, _ = io.WriteString(w, s)
					return nil
				}
			}
		}
	}

	_, _ = io.WriteString(w, name)

	return nil
}

// testStorage is a minimal in-memory implementation of storage.Storage for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*testStorage)(nil)

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string][]byte)
	}

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

// fakeSender records delivered messages and can fail on demand.
type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []string
}

func (f *fakeSender) Send(to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, to)

	return nil
}

func (f *fakeSender) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.sent))
	copy(out, f.sent)

	return out
}

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	roles  *authz.RoleService
	perms  *authz.PermissionService
	cache  *authz.SessionCache
	sender *fakeSender
	svc    *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.PermissionUser{},
		&models.PermissionRole{},
		&models.PasswordToken{},
	)
	if err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	sc := authz.NewSessionCache(cache.NewFromClient(client), 0)
	roles := authz.NewRoleService(db, sc)
	perms := authz.NewPermissionService(db, sc)

	websess.Init(&testStorage{data: make(map[string][]byte)})

	cfg := &config.Config{
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
	}

	sender := &fakeSender{}
	app := fiber.New(fiber.Config{Views: noOpViews{}})

	var s Service
	s.Init(app, cfg, db, roles, perms, sc, notify.NewWithSender(sender, cfg.Webserver.URL))

	return &testEnv{
		app:    app,
		db:     db,
		roles:  roles,
		perms:  perms,
		cache:  sc,
		sender: sender,
		svc:    &s,
	}
}

// createRole inserts a role row directly; the first role created gets the
// lowest id and therefore the highest tier.
func createRole(t *testing.T, db *gorm.DB, name string) *models.Role {
	t.Helper()

	role := models.Role{Name: name}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("failed to create role: %v", err)
	}

	return &role
}

func createUser(t *testing.T, db *gorm.DB, email string, roleID *uint) *models.User {
	t.Helper()

	user := models.User{
		Name:     "Test User",
		Email:    email,
		Password: models.HashPassword("secret"),
		RoleID:   roleID,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return &user
}

// grantDirect attaches permission keys to a user through direct pivot rows.
// The permission definitions are scoped under the user's own role.
func grantDirect(t *testing.T, db *gorm.DB, user *models.User, keys ...string) {
	t.Helper()

	if user.RoleID == nil {
		t.Fatalf("user %d has no role to scope permissions under", user.ID)
	}

	for _, key := range keys {
		perm := models.Permission{Permission: key, RoleID: *user.RoleID}
		if err := db.Create(&perm).Error; err != nil {
			t.Fatalf("failed to create permission %s: %v", key, err)
		}

		pivot := models.PermissionUser{PermissionID: perm.ID, UserID: user.ID}
		if err := db.Create(&pivot).Error; err != nil {
			t.Fatalf("failed to attach permission %s: %v", key, err)
		}
	}
}

// loginAs writes a session for the user and returns the session cookie value.
func loginAs(t *testing.T, user *models.User) string {
	t.Helper()

	sessionID := websess.GenerateSessionID()

	data := &websess.Data{User: *user}
	if err := data.Write(sessionID, time.Minute); err != nil {
		t.Fatalf("failed to write session: %v", err)
	}

	return sessionID
}

func performPost(t *testing.T, app *fiber.App, target, sessionID string, form url.Values) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: sessionID})
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func performGet(t *testing.T, app *fiber.App, target, sessionID string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)

	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: sessionID})
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	return string(bodyBytes)
}

// newAdmin creates the top-tier role, an admin holding the given permissions
// and a logged-in session for them.
func newAdmin(env *testEnv, t *testing.T, keys ...string) (*models.User, string) {
	t.Helper()

	role := createRole(t, env.db, "Admin")
	admin := createUser(t, env.db, "admin@example.com", &role.ID)
	grantDirect(t, env.db, admin, keys...)

	return admin, loginAs(t, admin)
}

func TestList_RequiresSessionAndPermission(t *testing.T) {
	env := newTestEnv(t)

	// No session cookie at all.
	resp := performGet(t, env.app, Path, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	// Logged in but without the list permission.
	role := createRole(t, env.db, "User")
	user := createUser(t, env.db, "plain@example.com", &role.ID)

	resp = performGet(t, env.app, Path, loginAs(t, user))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without permission, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()
}

func TestList_IncludesSoftDeletedUsers(t *testing.T) {
	env := newTestEnv(t)

	_, sessionID := newAdmin(env, t, authz.PermUserList)

	role := createRole(t, env.db, "User")
	deleted := createUser(t, env.db, "deleted@example.com", &role.ID)

	if err := env.db.Delete(deleted).Error; err != nil {
		t.Fatalf("failed to soft delete user: %v", err)
	}

	resp := performGet(t, env.app, Path, sessionID)

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}
}

func TestCreate_PersistsUserAndNotifies(t *testing.T) {
	env := newTestEnv(t)

	admin, sessionID := newAdmin(env, t, authz.PermUserCreate)

	form := url.Values{
		"name":    {"New Person"},
		"email":   {"new@example.com"},
		"role_id": {"1"},
	}
	resp := performPost(t, env.app, Path, sessionID, form)

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found, got %d", resp.StatusCode)
	}

	var created models.User
	if err := env.db.Where("email = ?", "new@example.com").First(&created).Error; err != nil {
		t.Fatalf("expected created user: %v", err)
	}

	if created.RoleID == nil || *created.RoleID != *admin.RoleID {
		t.Fatalf("expected role %v on created user, got %v", admin.RoleID, created.RoleID)
	}

	if created.Password == "" {
		t.Fatalf("expected a generated initial password hash")
	}

	// Welcome and first-password mails went out.
	got := env.sender.recipients()
	if len(got) != 2 || got[0] != "new@example.com" || got[1] != "new@example.com" {
		t.Fatalf("expected two mails to the new user, got %v", got)
	}

	// A first-password token was issued for the account.
	var tokens int64

	err := env.db.Model(&models.PasswordToken{}).
		Where("user_id = ? AND purpose = ?", created.ID, models.TokenPurposeCreate).
		Count(&tokens).Error
	if err != nil {
		t.Fatalf("failed to count tokens: %v", err)
	}

	if tokens != 1 {
		t.Fatalf("expected one first-password token, got %d", tokens)
	}
}

func TestCreate_NotifierFailureDoesNotAbort(t *testing.T) {
	env := newTestEnv(t)

	_, sessionID := newAdmin(env, t, authz.PermUserCreate)

	env.sender.err = errors.New("smtp down")

	form := url.Values{
		"name":    {"Unreachable Person"},
		"email":   {"unreachable@example.com"},
		"role_id": {"1"},
	}
	resp := performPost(t, env.app, Path, sessionID, form)

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found despite notifier failure, got %d", resp.StatusCode)
	}

	var count int64
	if err := env.db.Model(&models.User{}).Where("email = ?", "unreachable@example.com").Count(&count).Error; err != nil {
		t.Fatalf("failed to count users: %v", err)
	}

	if count != 1 {
		t.Fatalf("expected user to be created despite notifier failure, got %d rows", count)
	}
}

func TestCreate_RoleAboveActorTierRejected(t *testing.T) {
	env := newTestEnv(t)

	// Top tier exists but the actor sits one tier below it.
	topRole := createRole(t, env.db, "Admin")
	midRole := createRole(t, env.db, "Manager")

	actor := createUser(t, env.db, "manager@example.com", &midRole.ID)
	grantDirect(t, env.db, actor, authz.PermUserCreate)

	form := url.Values{
		"name":    {"Sneaky Person"},
		"email":   {"sneaky@example.com"},
		"role_id": {strconv.FormatUint(uint64(topRole.ID), 10)},
	}
	resp := performPost(t, env.app, Path, loginAs(t, actor), form)

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range role, got %d", resp.StatusCode)
	}

	if body := readBody(t, resp); !strings.Contains(body, "Selected role is not available") {
		t.Fatalf("expected role range error, got %q", body)
	}

	var count int64
	if err := env.db.Model(&models.User{}).Where("email = ?", "sneaky@example.com").Count(&count).Error; err != nil {
		t.Fatalf("failed to count users: %v", err)
	}

	if count != 0 {
		t.Fatalf("expected no user created, got %d rows", count)
	}
}

func TestDelete_RequiresExactConfirmation(t *testing.T) {
	env := newTestEnv(t)

	_, sessionID := newAdmin(env, t, authz.PermUserDelete)

	role := createRole(t, env.db, "User")
	target := createUser(t, env.db, "victim@example.com", &role.ID)

	for _, confirm := range []string{"", "deletar", "DELETE", "SIM"} {
		resp := performPost(t, env.app, Path+"/"+strconv.FormatUint(target.ID, 10)+"/delete", sessionID, url.Values{
			"confirm": {confirm},
		})

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for confirm=%q, got %d", confirm, resp.StatusCode)
		}

		if body := readBody(t, resp); !strings.Contains(body, "DELETAR") {
			t.Fatalf("expected confirmation error for confirm=%q, got %q", confirm, body)
		}
	}

	var untouched models.User
	if err := env.db.First(&untouched, target.ID).Error; err != nil {
		t.Fatalf("expected user to survive failed confirmations: %v", err)
	}
}

func TestDelete_SelfDeleteRejected(t *testing.T) {
	env := newTestEnv(t)

	admin, sessionID := newAdmin(env, t, authz.PermUserDelete)

	resp := performPost(t, env.app, Path+"/"+strconv.FormatUint(admin.ID, 10)+"/delete", sessionID, url.Values{
		"confirm": {"DELETAR"},
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for self delete, got %d", resp.StatusCode)
	}

	if body := readBody(t, resp); !strings.Contains(body, "própria conta") {
		t.Fatalf("expected self-delete error, got %q", body)
	}

	var still models.User
	if err := env.db.First(&still, admin.ID).Error; err != nil {
		t.Fatalf("expected admin to remain active: %v", err)
	}
}

func TestDelete_StampsAuditAndDropsCache(t *testing.T) {
	env := newTestEnv(t)

	admin, sessionID := newAdmin(env, t, authz.PermUserDelete)

	role := createRole(t, env.db, "User")
	target := createUser(t, env.db, "victim@example.com", &role.ID)
	grantDirect(t, env.db, target, "dashboard.view")

	ctx := context.Background()

	// Warm the target's cached permission set, then verify the delete drops it.
	if _, err := env.perms.RefreshSession(ctx, target.ID); err != nil {
		t.Fatalf("failed to warm cache: %v", err)
	}

	if _, found, _ := env.cache.Get(ctx, authz.PermissionsKey(target.ID)); !found {
		t.Fatalf("expected warmed cache entry before delete")
	}

	resp := performPost(t, env.app, Path+"/"+strconv.FormatUint(target.ID, 10)+"/delete", sessionID, url.Values{
		"confirm": {"DELETAR"},
	})

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found, got %d", resp.StatusCode)
	}

	var gone models.User
	if err := env.db.Unscoped().First(&gone, target.ID).Error; err != nil {
		t.Fatalf("expected soft-deleted row to remain reachable: %v", err)
	}

	if !gone.IsDeleted() {
		t.Fatalf("expected user to be soft deleted")
	}

	if gone.DeletedBy == nil || *gone.DeletedBy != admin.ID {
		t.Fatalf("expected deleted_by=%d, got %v", admin.ID, gone.DeletedBy)
	}

	// Default scope no longer sees the user.
	if err := env.db.First(&models.User{}, target.ID).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected default scope to hide deleted user, got %v", err)
	}

	if _, found, _ := env.cache.Get(ctx, authz.PermissionsKey(target.ID)); found {
		t.Fatalf("expected cache entry to be invalidated on delete")
	}
}

func TestDelete_FailedDeleteLeavesNoAuditStamp(t *testing.T) {
	env := newTestEnv(t)

	_, sessionID := newAdmin(env, t, authz.PermUserDelete)

	role := createRole(t, env.db, "User")
	target := createUser(t, env.db, "survivor@example.com", &role.ID)

	// Block the soft delete itself so the handler's transaction has to roll
	// back the deleted_by stamp written just before it.
	err := env.db.Exec(`CREATE TRIGGER block_soft_delete
		BEFORE UPDATE OF deleted_at ON users
		WHEN NEW.deleted_at IS NOT NULL
		BEGIN SELECT RAISE(ABORT, 'soft delete blocked'); END`).Error
	if err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	resp := performPost(t, env.app, Path+"/"+strconv.FormatUint(target.ID, 10)+"/delete", sessionID, url.Values{
		"confirm": {"DELETAR"},
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for failed delete, got %d", resp.StatusCode)
	}

	var still models.User
	if err := env.db.First(&still, target.ID).Error; err != nil {
		t.Fatalf("expected user to stay active: %v", err)
	}

	if still.IsDeleted() {
		t.Fatalf("expected blocked delete to leave user active")
	}

	if still.DeletedBy != nil {
		t.Fatalf("expected no deleted_by on an active user, got %v", *still.DeletedBy)
	}
}

func TestRestore_RequiresExactConfirmation(t *testing.T) {
	env := newTestEnv(t)

	_, sessionID := newAdmin(env, t, authz.PermUserDelete)

	role := createRole(t, env.db, "User")
	target := createUser(t, env.db, "gone@example.com", &role.ID)

	if err := env.db.Delete(target).Error; err != nil {
		t.Fatalf("failed to soft delete user: %v", err)
	}

	resp := performPost(t, env.app, Path+"/"+strconv.FormatUint(target.ID, 10)+"/restore", sessionID, url.Values{
		"confirm": {"restaurar"},
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong confirmation, got %d", resp.StatusCode)
	}

	if body := readBody(t, resp); !strings.Contains(body, "RESTAURAR") {
		t.Fatalf("expected confirmation error, got %q", body)
	}

	var still models.User
	if err := env.db.Unscoped().First(&still, target.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}

	if !still.IsDeleted() {
		t.Fatalf("expected user to stay deleted after failed confirmation")
	}
}

func TestRestore_StampsAuditAndKeepsDeletedBy(t *testing.T) {
	env := newTestEnv(t)

	admin, sessionID := newAdmin(env, t, authz.PermUserDelete)

	role := createRole(t, env.db, "User")
	target := createUser(t, env.db, "comeback@example.com", &role.ID)

	// Simulate an earlier audited delete.
	if err := env.db.Model(target).Update("deleted_by", admin.ID).Error; err != nil {
		t.Fatalf("failed to stamp deleted_by: %v", err)
	}

	if err := env.db.Delete(target).Error; err != nil {
		t.Fatalf("failed to soft delete user: %v", err)
	}

	resp := performPost(t, env.app, Path+"/"+strconv.FormatUint(target.ID, 10)+"/restore", sessionID, url.Values{
		"confirm": {"RESTAURAR"},
	})

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found, got %d", resp.StatusCode)
	}

	var restored models.User
	if err := env.db.First(&restored, target.ID).Error; err != nil {
		t.Fatalf("expected restored user in default scope: %v", err)
	}

	if restored.IsDeleted() {
		t.Fatalf("expected deleted_at to be cleared")
	}

	if restored.RestoredBy == nil || *restored.RestoredBy != admin.ID {
		t.Fatalf("expected restored_by=%d, got %v", admin.ID, restored.RestoredBy)
	}

	if restored.RestoredAt == nil {
		t.Fatalf("expected restored_at to be stamped")
	}

	// The delete audit trail survives the restore.
	if restored.DeletedBy == nil || *restored.DeletedBy != admin.ID {
		t.Fatalf("expected deleted_by to be kept, got %v", restored.DeletedBy)
	}
}

func TestRestore_SelfRestoreRejected(t *testing.T) {
	env := newTestEnv(t)

	admin, sessionID := newAdmin(env, t, authz.PermUserDelete)

	resp := performPost(t, env.app, Path+"/"+strconv.FormatUint(admin.ID, 10)+"/restore", sessionID, url.Values{
		"confirm": {"RESTAURAR"},
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for self restore, got %d", resp.StatusCode)
	}

	if body := readBody(t, resp); !strings.Contains(body, "própria conta") {
		t.Fatalf("expected self-restore error, got %q", body)
	}
}

func TestTogglePermission_GrantAndRevoke(t *testing.T) {
	env := newTestEnv(t)

	_, sessionID := newAdmin(env, t, authz.PermUserPermission)

	role := createRole(t, env.db, "User")
	subject := createUser(t, env.db, "subject@example.com", &role.ID)

	perm := models.Permission{Permission: "dashboard.view", RoleID: role.ID}
	if err := env.db.Create(&perm).Error; err != nil {
		t.Fatalf("failed to create permission: %v", err)
	}

	base := Path + "/" + strconv.FormatUint(subject.ID, 10) + "/permissions"

	// Grant.
	resp := performPost(t, env.app, base, sessionID, url.Values{
		"permission_id": {strconv.FormatUint(uint64(perm.ID), 10)},
		"granted":       {"true"},
	})

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 on grant, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	var pivots int64
	if err := env.db.Model(&models.PermissionUser{}).Where("user_id = ?", subject.ID).Count(&pivots).Error; err != nil {
		t.Fatalf("failed to count pivots: %v", err)
	}

	if pivots != 1 {
		t.Fatalf("expected one pivot after grant, got %d", pivots)
	}

	ok, err := env.perms.Has(context.Background(), subject.ID, "dashboard.view")
	if err != nil || !ok {
		t.Fatalf("expected permission check to pass after grant, ok=%v err=%v", ok, err)
	}

	// Revoke.
	resp = performPost(t, env.app, base, sessionID, url.Values{
		"permission_id": {strconv.FormatUint(uint64(perm.ID), 10)},
		"granted":       {"false"},
	})

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 on revoke, got %d", resp.StatusCode)
	}

	_ = resp.Body.Close()

	if err := env.db.Model(&models.PermissionUser{}).Where("user_id = ?", subject.ID).Count(&pivots).Error; err != nil {
		t.Fatalf("failed to count pivots: %v", err)
	}

	if pivots != 0 {
		t.Fatalf("expected pivot removed after revoke, got %d", pivots)
	}

	// The definition itself survives a revoke.
	if err := env.db.First(&models.Permission{}, perm.ID).Error; err != nil {
		t.Fatalf("expected permission definition to survive revoke: %v", err)
	}
}

func TestGrantAllPermissions_AttachesEverythingInRange(t *testing.T) {
	env := newTestEnv(t)

	_, sessionID := newAdmin(env, t, authz.PermUserPermission)

	role := createRole(t, env.db, "User")
	subject := createUser(t, env.db, "bulk@example.com", &role.ID)

	for _, key := range []string{"dashboard.view", "user.list", "user.create"} {
		perm := models.Permission{Permission: key, RoleID: role.ID}
		if err := env.db.Create(&perm).Error; err != nil {
			t.Fatalf("failed to create permission %s: %v", key, err)
		}
	}

	resp := performPost(t, env.app, Path+"/"+strconv.FormatUint(subject.ID, 10)+"/permissions/all", sessionID, url.Values{})

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found, got %d", resp.StatusCode)
	}

	var pivots int64
	if err := env.db.Model(&models.PermissionUser{}).Where("user_id = ?", subject.ID).Count(&pivots).Error; err != nil {
		t.Fatalf("failed to count pivots: %v", err)
	}

	if pivots != 3 {
		t.Fatalf("expected all three permissions attached, got %d", pivots)
	}
}

func TestUpdate_RoleChangeRefreshesSessionCache(t *testing.T) {
	env := newTestEnv(t)

	_, sessionID := newAdmin(env, t, authz.PermUserEdit)

	oldRole := createRole(t, env.db, "Editor")
	newRole := createRole(t, env.db, "Viewer")
	subject := createUser(t, env.db, "mover@example.com", &oldRole.ID)

	ctx := context.Background()

	// Warm the cached role set with the old role.
	if _, err := env.roles.RefreshSession(ctx, subject.ID); err != nil {
		t.Fatalf("failed to warm role cache: %v", err)
	}

	resp := performPost(t, env.app, Path+"/"+strconv.FormatUint(subject.ID, 10), sessionID, url.Values{
		"name":    {subject.Name},
		"email":   {subject.Email},
		"role_id": {strconv.FormatUint(uint64(newRole.ID), 10)},
	})

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 Found, got %d", resp.StatusCode)
	}

	var updated models.User
	if err := env.db.First(&updated, subject.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}

	if updated.RoleID == nil || *updated.RoleID != newRole.ID {
		t.Fatalf("expected role %d, got %v", newRole.ID, updated.RoleID)
	}

	// The handler rebuilt the cached role set for the subject.
	names, found, err := env.cache.Get(ctx, authz.RolesKey(subject.ID))
	if err != nil || !found {
		t.Fatalf("expected refreshed role cache entry, found=%v err=%v", found, err)
	}

	if len(names) != 1 || names[0] != "Viewer" {
		t.Fatalf("expected cached role [Viewer], got %v", names)
	}
}
