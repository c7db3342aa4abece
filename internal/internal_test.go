package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestInternal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal Suite")
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Database.Source = "postgres://localhost/school_admin"
	cfg.Security.SessionSecret = strings.Repeat("s", 32)
	return cfg
}

var _ = Describe("Config", func() {
	It("accepts the defaults once a database and secret are set", func() {
		cfg := validConfig()
		Expect(cfg.Validate()).To(Succeed())
	})

	It("rejects a short session secret", func() {
		cfg := validConfig()
		cfg.Security.SessionSecret = "short"
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("SessionSecret")))
	})

	It("rejects more idle than open connections", func() {
		cfg := validConfig()
		cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns + 1
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("max_idle_conns")))
	})

	It("rejects a malformed trusted proxy", func() {
		cfg := validConfig()
		cfg.Server.TrustedProxies = "10.0.0.0/8, not-an-ip"
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("not-an-ip")))

		cfg.Server.TrustedProxies = "10.0.0.0/8, ::1"
		Expect(cfg.Validate()).To(Succeed())
	})

	It("splits the allowed origins list", func() {
		cfg := validConfig()
		cfg.Server.AllowedOrigins = " http://a.test , ,http://b.test"
		Expect(cfg.Server.Origins()).To(Equal([]string{"http://a.test", "http://b.test"}))
	})

	It("builds the production config from the environment", func() {
		env := map[string]string{
			"DATABASE_URL":       "postgres://db/school_admin",
			"SESSION_SECRET":     strings.Repeat("x", 40),
			"ADMIN_ROLES":        "super_admin, principal",
			"AUDIT_EXPORT_LIMIT": "500",
		}
		for k, v := range env {
			Expect(os.Setenv(k, v)).To(Succeed())
			DeferCleanup(os.Unsetenv, k)
		}

		cfg, err := LoadConfigFromEnv()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Security.AdminRoles).To(Equal([]string{"super_admin", "principal"}))
		Expect(cfg.Audit.ExportLimit).To(Equal(500))
		Expect(cfg.Observability.Logging.Format).To(Equal("json"))
	})
})

var _ = Describe("AppError", func() {
	It("matches sentinels by code after WithCause", func() {
		err := fmt.Errorf("lookup: %w", ErrRoleNotFound.WithCause(errors.New("no rows")))
		Expect(errors.Is(err, ErrRoleNotFound)).To(BeTrue())
		Expect(errors.Is(err, ErrUserNotFound)).To(BeFalse())
	})

	It("does not mutate the shared sentinel", func() {
		_ = ErrInvalidPermissionSet.WithDetails(InvalidPermissions{InvalidPermissions: []string{"x"}})
		Expect(ErrInvalidPermissionSet.Details).To(BeNil())
	})

	It("keeps the cause out of the JSON body", func() {
		appErr := NewInternalError("Internal server error", errors.New("pq: password authentication failed"))
		status, body := appErr.ToHTTPResponse()
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())

		Expect(status).To(Equal(500))
		Expect(string(raw)).To(ContainSubstring(`"code":"INTERNAL_ERROR"`))
		Expect(string(raw)).NotTo(ContainSubstring("password"))
	})

	It("lists the offending permissions", func() {
		raw, err := json.Marshal(NewInvalidPermissionSetError([]string{"bogus:perm"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(`"invalid_permissions":["bogus:perm"]`))
	})
})
