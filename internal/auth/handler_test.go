package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/auth"
	roleDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/role"
	sessionDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/session"
	userDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/school-admin/internal/permission"
	"github.com/frahmantamala/school-admin/internal/transport"
)

type fakeRoles struct {
	roles map[string]*roleDatamodel.Role
	err   error
}

func (f *fakeRoles) GetByName(_ context.Context, name string) (*roleDatamodel.Role, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.roles[name], nil
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(rec *httptest.ResponseRecorder) errorBody {
	var body errorBody
	ExpectWithOffset(1, json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
	return body
}

var _ = Describe("Auth Handler and Gate", func() {
	var (
		f       *authFixture
		roles   *fakeRoles
		gate    *auth.Gate
		handler *auth.Handler
		router  *chi.Mux
		token   string
	)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	BeforeEach(func() {
		f = newAuthFixture()
		roles = &fakeRoles{roles: map[string]*roleDatamodel.Role{
			"teacher": {Name: "teacher", IsActive: true, Permissions: []string{permission.GradeRead}},
			"retired": {Name: "retired", IsActive: false, Permissions: []string{permission.GradeRead}},
		}}
		gate = auth.NewGate(roles, f.recorder, quietLogger)
		handler = auth.NewHandler(transport.NewBaseHandler(quietLogger), f.service, 90)

		router = chi.NewRouter()
		router.Post("/auth/login", handler.Login)
		router.Post("/auth/logout", handler.Logout)
		router.Delete("/sessions/cleanup", handler.CleanupSessions)
		router.Group(func(pr chi.Router) {
			pr.Use(handler.AuthMiddleware)
			pr.Get("/auth/me", handler.Me)
			pr.With(gate.RequireRoles("admin", "super_admin")).Get("/roles", ok)
			pr.With(gate.RequirePermission(permission.GradeRead)).Get("/grades", ok)
		})
	})

	login := func(username string) string {
		body, _ := json.Marshal(map[string]string{"username": username, "password": "password"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
		ExpectWithOffset(1, rec.Code).To(Equal(http.StatusOK))

		var result auth.LoginResult
		ExpectWithOffset(1, json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
		return result.Token
	}

	get := func(path, bearer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	Describe("Login endpoint", func() {
		It("returns 401 with a uniform code for bad credentials", func() {
			f.seedUser("admin", "admin", true, true)
			body := []byte(`{"username":"admin","password":"bad"}`)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error.Code).To(Equal(string(internal.ErrCodeInvalidCredentials)))
			Expect(rec.Body.String()).NotTo(ContainSubstring("$2a$"))
		})

		It("returns 400 on a malformed body", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{"))))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("AuthMiddleware", func() {
		It("distinguishes a missing header from a dead token", func() {
			rec := get("/auth/me", "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error.Code).To(Equal(string(internal.ErrCodeAuthenticationRequired)))

			rec = get("/auth/me", "garbage")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error.Code).To(Equal(string(internal.ErrCodeInvalidOrExpiredSession)))
		})

		It("exposes the identity to downstream handlers", func() {
			f.seedUser("admin", "admin", true, true)
			token = login("admin")

			rec := get("/auth/me", token)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"username":"admin"`))
			Expect(rec.Body.String()).NotTo(ContainSubstring("password"))
		})
	})

	Describe("RequireRoles", func() {
		It("admits an allowed role", func() {
			f.seedUser("admin", "admin", true, true)
			Expect(get("/roles", login("admin")).Code).To(Equal(http.StatusNoContent))
			Expect(f.recorder.Audits(auth.ActionUnauthorizedAccess)).To(BeEmpty())
		})

		It("rejects other roles with 403 and one unauthorized_access audit entry", func() {
			teacher := f.seedUser("teacher1", "teacher", true, true)
			rec := get("/roles", login("teacher1"))

			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(decodeError(rec).Error.Code).To(Equal(string(internal.ErrCodeInsufficientPermission)))

			denials := f.recorder.Audits(auth.ActionUnauthorizedAccess)
			Expect(denials).To(HaveLen(1))
			Expect(*denials[0].ActorID).To(Equal(teacher.ID))
			Expect(*denials[0].ResourceID).To(Equal("/roles"))
			Expect(denials[0].NewValues).To(HaveKeyWithValue("path", "/roles"))
			Expect(denials[0].NewValues).To(HaveKeyWithValue("role", "teacher"))
		})
	})

	Describe("RequirePermission", func() {
		It("admits a role holding the permission", func() {
			f.seedUser("teacher1", "teacher", true, true)
			Expect(get("/grades", login("teacher1")).Code).To(Equal(http.StatusNoContent))
		})

		It("fails closed for unknown roles, inactive roles and lookup errors", func() {
			f.seedUser("ghost", "no_such_role", true, true)
			f.seedUser("old", "retired", true, true)
			f.seedUser("teacher1", "teacher", true, true)
			ghost, old, teacher := login("ghost"), login("old"), login("teacher1")

			Expect(get("/grades", ghost).Code).To(Equal(http.StatusForbidden))
			Expect(get("/grades", old).Code).To(Equal(http.StatusForbidden))

			roles.err = errors.New("db down")
			Expect(get("/grades", teacher).Code).To(Equal(http.StatusForbidden))

			Expect(f.recorder.Audits(auth.ActionUnauthorizedAccess)).To(HaveLen(3))
		})
	})

	Describe("Session cleanup endpoint", func() {
		var owner *userDatamodel.User

		BeforeEach(func() {
			owner = f.seedUser("admin", "admin", true, true)
			old := f.now.AddDate(0, 0, -40)
			stale := &sessionDatamodel.Session{UserID: owner.ID, Token: "stale", ExpiresAt: old.Add(time.Hour), IsActive: false, CreatedAt: old}
			Expect(f.db.Create(stale).Error).To(Succeed())
		})

		cleanup := func(query string) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/cleanup"+query, nil))
			return rec
		}

		remaining := func() int64 {
			var n int64
			Expect(f.db.Model(&sessionDatamodel.Session{}).Count(&n).Error).To(Succeed())
			return n
		}

		It("rejects a non-integer window without deleting anything", func() {
			for _, q := range []string{"?olderThan=abc", "?olderThan=30d", "?olderThan=1.5"} {
				rec := cleanup(q)
				Expect(rec.Code).To(Equal(http.StatusBadRequest), q)
				Expect(decodeError(rec).Error.Code).To(Equal(string(internal.ErrCodeValidationFailed)))
			}
			Expect(remaining()).To(BeEquivalentTo(1))
			Expect(f.recorder.Audits("cleanup")).To(BeEmpty())
		})

		It("uses the configured default when the window is absent", func() {
			rec := cleanup("")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(remaining()).To(BeEquivalentTo(1))
		})

		It("deletes with an explicit window", func() {
			rec := cleanup("?olderThan=30")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(remaining()).To(BeEquivalentTo(0))
		})
	})

	Describe("Logout endpoint", func() {
		It("succeeds repeatedly for the same token", func() {
			f.seedUser("admin", "admin", true, true)
			token = login("admin")

			for i := 0; i < 2; i++ {
				req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
				req.Header.Set("Authorization", "Bearer "+token)
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)
				Expect(rec.Code).To(Equal(http.StatusOK))
			}
			Expect(get("/auth/me", token).Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
