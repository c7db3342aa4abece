package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/audit"
	auditPostgres "github.com/frahmantamala/school-admin/internal/audit/postgres"
	"github.com/frahmantamala/school-admin/internal/auth"
	authPostgres "github.com/frahmantamala/school-admin/internal/auth/postgres"
	userDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/school-admin/internal/core/events"
	"github.com/frahmantamala/school-admin/internal/core/testdb"
	"github.com/frahmantamala/school-admin/internal/permission"
	"github.com/frahmantamala/school-admin/internal/role"
	rolePostgres "github.com/frahmantamala/school-admin/internal/role/postgres"
	"github.com/frahmantamala/school-admin/internal/transport"
	"github.com/frahmantamala/school-admin/internal/transport/rest"
	"github.com/frahmantamala/school-admin/internal/user"
	userPostgres "github.com/frahmantamala/school-admin/internal/user/postgres"
)

func TestSchoolAdmin(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SchoolAdmin Suite")
}

type app struct {
	db     *gorm.DB
	server *httptest.Server
	users  *userPostgres.UserRepository
}

func newApp() *app {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := testdb.Open()
	Expect(err).NotTo(HaveOccurred())
	sqlDB, err := db.DB()
	Expect(err).NotTo(HaveOccurred())

	cfg := internal.DefaultConfig()
	cfg.Security.SessionSecret = "integration-secret-with-at-least-32-chars"
	cfg.Security.BCryptCost = bcrypt.MinCost
	cfg.Security.LoginRateLimit = 0
	cfg.Observability.Metrics.Enabled = false

	bus := events.NewEventBus(lg)
	auditRepo := auditPostgres.NewAuditRepository(db)
	audit.NewLogger(auditRepo, lg).Subscribe(bus)

	users := userPostgres.NewUserRepository(db)
	roles := rolePostgres.NewRoleRepository(db)

	verifier, err := auth.NewVerifier(users, cfg.Security.BCryptCost)
	Expect(err).NotTo(HaveOccurred())
	sessions := auth.NewSessionStore(authPostgres.NewSessionRepository(db), cfg.Security.SessionDuration)
	authService := auth.NewService(verifier, sessions, auth.NewJWTTokenSigner(cfg.Security.SessionSecret), users, bus, lg)
	roleService := role.NewService(roles, users, bus, cfg.Security.DefaultRole, lg)
	auditService := audit.NewService(auditRepo, auditPostgres.NewStatsRepository(sqlx.NewDb(sqlDB, "sqlite3")), bus, 0, lg)

	_, err = roleService.InitializeDefaults(context.Background())
	Expect(err).NotTo(HaveOccurred())

	base := transport.NewBaseHandler(lg)
	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, sqlDB, &cfg, rest.Handlers{
		Auth:  auth.NewHandler(base, authService, cfg.Audit.DefaultRetentionDays),
		Gate:  auth.NewGate(roles, bus, lg),
		Users: user.NewHandler(base, user.NewService(users, bus, lg)),
		Roles: role.NewHandler(base, roleService),
		Audit: audit.NewHandler(base, auditService, cfg.Audit.DefaultRetentionDays),
	}, lg)

	a := &app{db: db, server: httptest.NewServer(router), users: users}
	DeferCleanup(a.server.Close)
	return a
}

func (a *app) seed(username, roleName string) {
	hash, err := auth.HashPassword("password", bcrypt.MinCost)
	Expect(err).NotTo(HaveOccurred())
	Expect(a.users.Create(context.Background(), &userDatamodel.User{
		Username: username, Email: username + "@school.test", Name: username,
		PasswordHash: hash, Role: roleName, IsActive: true, IsApproved: true,
	})).To(Succeed())
}

func (a *app) do(method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		Expect(json.Unmarshal(raw, &out)).To(Succeed())
	}
	return resp, out
}

func (a *app) login(username string) string {
	resp, body := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username, "password": "password",
	})
	Expect(resp.StatusCode).To(Equal(http.StatusOK))
	token, ok := body["token"].(string)
	Expect(ok).To(BeTrue())
	Expect(token).NotTo(BeEmpty())
	return token
}

func errorCode(body map[string]interface{}) string {
	errObj, _ := body["error"].(map[string]interface{})
	code, _ := errObj["code"].(string)
	return code
}

var _ = Describe("Control plane end to end", func() {
	var a *app

	BeforeEach(func() {
		a = newApp()
		a.seed("admin", permission.RoleAdmin)
		a.seed("teacher", permission.RoleTeacher)
	})

	It("lets an admin manage roles and records a teacher's denied attempt", func() {
		adminToken := a.login("admin")
		resp, body := a.do(http.MethodGet, "/api/v1/roles", adminToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["roles"]).NotTo(BeEmpty())

		teacherToken := a.login("teacher")
		resp, body = a.do(http.MethodGet, "/api/v1/roles", teacherToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		Expect(errorCode(body)).To(Equal(string(internal.ErrCodeInsufficientPermission)))

		resp, body = a.do(http.MethodGet, "/api/v1/audit-logs?action=unauthorized_access", adminToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		logs := body["logs"].([]interface{})
		Expect(logs).To(HaveLen(1))

		entry := logs[0].(map[string]interface{})
		Expect(entry["resource_id"]).To(Equal("/api/v1/roles"))
		Expect(entry["actor_username"]).To(Equal("teacher"))
		Expect(entry["new_values"]).To(ContainSubstring(`"role":"teacher"`))
	})

	It("rejects missing and revoked tokens with distinct codes", func() {
		resp, body := a.do(http.MethodGet, "/api/v1/roles", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(errorCode(body)).To(Equal(string(internal.ErrCodeAuthenticationRequired)))

		token := a.login("admin")
		resp, _ = a.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, body = a.do(http.MethodGet, "/api/v1/auth/me", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(errorCode(body)).To(Equal(string(internal.ErrCodeInvalidOrExpiredSession)))
	})

	It("creates, assigns and exports through the API", func() {
		token := a.login("admin")

		resp, body := a.do(http.MethodPost, "/api/v1/roles", token, map[string]interface{}{
			"name": "Counselor", "description": "Student support", "permissions": []string{permission.StudentRead},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		roleID := body["id"].(float64)

		resp, body = a.do(http.MethodPost, "/api/v1/roles", token, map[string]interface{}{
			"name": "Counselor", "permissions": []string{},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		Expect(errorCode(body)).To(Equal(string(internal.ErrCodeDuplicateName)))

		resp, body = a.do(http.MethodPost, "/api/v1/roles", token, map[string]interface{}{
			"name": "Broken", "permissions": []string{"student:fly"},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(errorCode(body)).To(Equal(string(internal.ErrCodeInvalidPermissionSet)))

		teacher, err := a.users.GetByUsername(context.Background(), "teacher")
		Expect(err).NotTo(HaveOccurred())
		resp, body = a.do(http.MethodPost, "/api/v1/roles/assign", token, map[string]interface{}{
			"user_id": teacher.ID, "role_id": int64(roleID),
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["user"]).To(HaveKeyWithValue("role", "Counselor"))

		req, err := http.NewRequest(http.MethodGet, a.server.URL+"/api/v1/audit-logs/export/csv?resource_type=role", nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer "+token)
		exportResp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer exportResp.Body.Close()
		Expect(exportResp.StatusCode).To(Equal(http.StatusOK))
		Expect(exportResp.Header.Get("Content-Type")).To(HavePrefix("text/csv"))
		Expect(exportResp.Header.Get("X-Total-Count")).To(Equal("2"))
	})
})
