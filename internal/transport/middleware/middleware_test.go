package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/transport"
	"github.com/frahmantamala/school-admin/internal/transport/middleware"
	"github.com/frahmantamala/school-admin/pkg/logger"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = Describe("RequestID", func() {
	It("echoes an incoming trace id and exposes it on the context", func() {
		var seen string
		h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.TraceID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", "trace-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(seen).To(Equal("trace-123"))
		Expect(rec.Header().Get("X-Trace-ID")).To(Equal("trace-123"))
	})

	It("generates a trace id when none is sent", func() {
		var seen string
		h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.TraceID(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(seen).NotTo(BeEmpty())
		Expect(rec.Header().Get("X-Trace-ID")).To(Equal(seen))
	})
})

var _ = Describe("ClientInfo", func() {
	capture := func(trusted transport.TrustedProxies, remoteAddr string, headers map[string]string) internal.ClientInfo {
		var info internal.ClientInfo
		h := middleware.ClientInfo(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info = internal.ClientInfoFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		return info
	}

	proxies := func(entries ...string) transport.TrustedProxies {
		t, err := transport.ParseTrustedProxies(entries)
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	It("ignores forwarding headers from an untrusted peer", func() {
		info := capture(proxies("10.0.0.0/8"), "198.51.100.23:51234", map[string]string{
			"X-Forwarded-For": "203.0.113.9",
			"X-Real-IP":       "203.0.113.9",
			"User-Agent":      "test-agent",
		})
		Expect(info.IPAddress).To(Equal("198.51.100.23"))
		Expect(info.UserAgent).To(Equal("test-agent"))
	})

	It("ignores forwarding headers when no proxy is configured", func() {
		info := capture(nil, "198.51.100.23:51234", map[string]string{"X-Forwarded-For": "203.0.113.9"})
		Expect(info.IPAddress).To(Equal("198.51.100.23"))
	})

	It("takes the nearest untrusted hop behind a trusted proxy", func() {
		info := capture(proxies("10.0.0.0/8"), "10.0.0.2:443", map[string]string{
			"X-Forwarded-For": "1.1.1.1, 203.0.113.9, 10.0.0.5",
		})
		Expect(info.IPAddress).To(Equal("203.0.113.9"))
	})

	It("falls back to X-Real-IP behind a trusted proxy", func() {
		info := capture(proxies("10.0.0.2"), "10.0.0.2:443", map[string]string{"X-Real-IP": "203.0.113.50"})
		Expect(info.IPAddress).To(Equal("203.0.113.50"))
	})

	It("rejects malformed proxy entries", func() {
		_, err := transport.ParseTrustedProxies([]string{"10.0.0.0/99"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoggingMiddleware", func() {
	echo := func(body []byte) []byte {
		var seen []byte
		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		h := middleware.LoggingMiddleware(quiet)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		}))

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		h.ServeHTTP(httptest.NewRecorder(), req)
		return seen
	}

	It("hands a small body to the handler unchanged", func() {
		body := []byte(`{"username":"admin","password":"hunter2"}`)
		Expect(echo(body)).To(Equal(body))
	})

	It("hands an oversized body to the handler unchanged", func() {
		body := append([]byte(`{"blob":"`), bytes.Repeat([]byte("a"), 3<<20)...)
		body = append(body, []byte(`"}`)...)
		Expect(echo(body)).To(Equal(body))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into a generic internal error", func() {
		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		h := middleware.RecoveryMiddleware(quiet)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("db password leaked")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("password"))

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(string(internal.ErrCodeInternal)))
	})
})
