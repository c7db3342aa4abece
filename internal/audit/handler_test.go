package audit_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/audit"
	auditDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/audit"
	"github.com/frahmantamala/school-admin/internal/transport"
)

var _ = Describe("Audit Handler", func() {
	var (
		f      *auditFixture
		router *chi.Mux
	)

	BeforeEach(func() {
		f = newAuditFixture()
		h := audit.NewHandler(transport.NewBaseHandler(quietLogger), f.service, 90)
		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := internal.ContextWithIdentity(r.Context(), &internal.Identity{ID: f.admin.ID, Role: "admin"})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		router.Delete("/audit-logs/cleanup", h.Cleanup)

		id := f.admin.ID
		f.insert(&id, "create", "role", strPtr("1"), `{}`, f.now.AddDate(0, 0, -200))
		f.insert(&id, "update", "role", strPtr("1"), `{}`, f.now.AddDate(0, 0, -40))
	})

	cleanup := func(query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/audit-logs/cleanup"+query, nil))
		return rec
	}

	stored := func() int64 {
		var n int64
		Expect(f.db.Model(&auditDatamodel.AuditLog{}).Where("action <> ?", "cleanup").Count(&n).Error).To(Succeed())
		return n
	}

	It("rejects a malformed window with a field error and keeps every entry", func() {
		for _, q := range []string{"?olderThan=abc", "?olderThan=365d", "?olderThan=1.5"} {
			rec := cleanup(q)
			Expect(rec.Code).To(Equal(http.StatusBadRequest), q)

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Details struct {
						Errors []internal.ValidationError `json:"errors"`
					} `json:"details"`
				} `json:"error"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Error.Code).To(Equal(string(internal.ErrCodeValidationFailed)))
			Expect(body.Error.Details.Errors).To(ContainElement(HaveField("Field", "olderThan")))
		}

		Expect(stored()).To(BeEquivalentTo(2))
		Expect(f.recorder.Audits("cleanup")).To(BeEmpty())
	})

	It("falls back to the default window only when the parameter is absent", func() {
		rec := cleanup("")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var result audit.CleanupResult
		Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
		Expect(result.OlderThanDays).To(Equal(90))
		Expect(result.DeletedCount).To(BeEquivalentTo(1))
		Expect(stored()).To(BeEquivalentTo(1))
	})

	It("honours an explicit window", func() {
		Expect(cleanup("?olderThan=30").Code).To(Equal(http.StatusOK))
		Expect(stored()).To(BeEquivalentTo(0))
	})

	It("still applies the one day minimum", func() {
		Expect(cleanup("?olderThan=0").Code).To(Equal(http.StatusBadRequest))
		Expect(stored()).To(BeEquivalentTo(2))
	})
})
