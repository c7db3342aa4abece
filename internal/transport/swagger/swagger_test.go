package swagger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/school-admin/internal/transport/swagger"
)

func TestSwagger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Swagger Suite")
}

var _ = Describe("Spec", func() {
	It("loads and validates the bundled document", func() {
		spec, err := swagger.Load(context.Background(), "../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
		Expect(spec.Doc.Paths.Find("/auth/login")).NotTo(BeNil())
		Expect(spec.Doc.Paths.Find("/audit-logs/export/{format}")).NotTo(BeNil())

		rec := httptest.NewRecorder()
		spec.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yml", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("openapi: 3.0.3"))
	})

	It("fails on a missing file", func() {
		_, err := swagger.Load(context.Background(), "does-not-exist.yml")
		Expect(err).To(HaveOccurred())
	})
})
