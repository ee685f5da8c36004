package transport_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/transport"
	"github.com/launchkit/saas-starter-kit/pkg/logger"
)

var _ = Describe("BaseHandler", func() {
	var base *transport.BaseHandler

	BeforeEach(func() {
		base = transport.NewBaseHandler(logger.Discard())
	})

	Describe("DecodeJSON", func() {
		type payload struct {
			Name string `json:"name"`
		}

		It("decodes a known shape", func() {
			var p payload
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ops"}`))
			Expect(base.DecodeJSON(req, &p)).To(Succeed())
			Expect(p.Name).To(Equal("ops"))
		})

		It("rejects unknown fields", func() {
			var p payload
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ops","is_admin":true}`))
			Expect(base.DecodeJSON(req, &p)).To(MatchError(internal.ErrInvalidBody))
		})

		It("reports an empty body", func() {
			var p payload
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
			err := base.DecodeJSON(req, &p)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("Request body is empty"))
		})
	})

	Describe("WriteAppError", func() {
		render := func(err error) (int, internal.Response) {
			rec := httptest.NewRecorder()
			base.WriteAppError(rec, httptest.NewRequest(http.MethodGet, "/", nil), err)
			var body internal.Response
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			return rec.Code, body
		}

		It("uses the status and code of an application error", func() {
			code, body := render(internal.ErrUserNotFound)
			Expect(code).To(Equal(http.StatusNotFound))
			Expect(body.Code).To(Equal(internal.ErrCodeUserNotFound))
		})

		It("hides internal causes", func() {
			code, body := render(errors.New("pq: relation users does not exist"))
			Expect(code).To(Equal(http.StatusInternalServerError))
			Expect(body.Message).To(Equal("Internal server error"))
		})

		It("exposes causes in development", func() {
			base.ExposeErrors = true
			_, body := render(internal.NewInternalError("query failed", errors.New("timeout")))
			Expect(body.Message).To(Equal("query failed: timeout"))
		})
	})

	It("maps plain status codes onto error types", func() {
		rec := httptest.NewRecorder()
		base.WriteError(rec, http.StatusConflict, "taken")

		var body internal.Response
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(body.Error).To(Equal(internal.ErrorTypeConflict))
		Expect(body.Message).To(Equal("taken"))
	})
})

var _ = Describe("request helpers", func() {
	It("extracts a bearer token case-insensitively", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer  abc ")
		Expect(transport.ExtractBearerToken(req)).To(Equal("abc"))

		req.Header.Set("Authorization", "Basic abc")
		Expect(transport.ExtractBearerToken(req)).To(BeEmpty())
	})

	It("falls back to the auth cookie", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: transport.AuthCookieName, Value: "from-cookie"})
		Expect(transport.ExtractToken(req)).To(Equal("from-cookie"))

		req.Header.Set("Authorization", "Bearer from-header")
		Expect(transport.ExtractToken(req)).To(Equal("from-header"))
	})

	It("resolves the client ip", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.10:4321"
		Expect(transport.ClientIP(req)).To(Equal("192.0.2.10"))

		req.Header.Set("X-Forwarded-For", " 198.51.100.4 , 10.0.0.1")
		Expect(transport.ClientIP(req)).To(Equal("198.51.100.4"))
	})

	It("parses query parameters with defaults", func() {
		req := httptest.NewRequest(http.MethodGet, "/?limit=50&offset=abc&includeInactive=true", nil)
		Expect(transport.QueryInt(req, "limit", 20)).To(Equal(50))
		Expect(transport.QueryInt(req, "offset", 0)).To(Equal(0))
		Expect(transport.QueryInt(req, "missing", 7)).To(Equal(7))
		Expect(transport.QueryBool(req, "includeInactive")).To(BeTrue())
		Expect(transport.QueryBool(req, "missing")).To(BeFalse())
	})
})

var _ = Describe("NewPaginated", func() {
	It("describes a middle page", func() {
		page := transport.NewPaginated([]int{1, 2}, 45, 20, 20)
		Expect(page.Pagination).To(Equal(transport.Pagination{
			CurrentPage:  2,
			TotalPages:   3,
			TotalItems:   45,
			ItemsPerPage: 20,
			HasNextPage:  true,
			HasPrevPage:  true,
		}))
	})

	It("renders an empty listing as an empty array", func() {
		page := transport.NewPaginated[string](nil, 0, 20, 0)
		raw, err := json.Marshal(page)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(`"items":[]`))
		Expect(page.Pagination.HasNextPage).To(BeFalse())
		Expect(page.Pagination.HasPrevPage).To(BeFalse())
	})
})
