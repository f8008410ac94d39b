package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mesa-system/internal/tenant"
	"mesa-system/internal/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	issuer, err := utils.NewTokenIssuer("middleware-secret-value", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	want := tenant.Context{TenantID: "t-1", ActorID: "u-1", Role: tenant.RoleEmployee}
	token, _, err := issuer.GenerateToken(want)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var got tenant.Context
	r := gin.New()
	r.GET("/me", JWTAuth(issuer), func(c *gin.Context) {
		got = TenantContext(c)
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			if w := serve(r, http.MethodGet, "/me", h); w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
	if got != want {
		t.Errorf("TenantContext = %+v, want %+v", got, want)
	}
}

func TestTenantContextWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if tc := TenantContext(c); tc.IsStaff() {
		t.Errorf("unauthenticated context = %+v", tc)
	}
}

func TestRateLimit(t *testing.T) {
	limit, err := RateLimit("1-M")
	if err != nil {
		t.Fatalf("RateLimit: %v", err)
	}
	calls := 0
	r := gin.New()
	r.GET("/x", limit, func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	if w := serve(r, http.MethodGet, "/x", nil); w.Code != http.StatusOK {
		t.Fatalf("first = %d", w.Code)
	}
	w := serve(r, http.MethodGet, "/x", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second = %d, want 429", w.Code)
	}
	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
	if w.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("limit header = %q", w.Header().Get("X-RateLimit-Limit"))
	}

	if _, err := RateLimit("often"); err == nil {
		t.Error("expected error for malformed rate")
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	h := http.Header{}
	h.Set("Origin", "https://pos.example")
	w := serve(r, http.MethodOptions, "/x", h)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing allow-origin header")
	}
}
