package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signTenantToken(t *testing.T, secret, tenantID string, method jwt.SigningMethod) string {
	t.Helper()
	claims := tenantClaims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestTenantAuth(t *testing.T) {
	t.Parallel()

	const secret = "test-secret"

	echoTenant := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(TenantFromContext(r.Context())))
	})

	t.Run("valid token resolves the tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources", nil)
		req.Header.Set("Authorization", "Bearer "+signTenantToken(t, secret, "t1", jwt.SigningMethodHS256))
		rec := httptest.NewRecorder()

		TenantAuth(secret, echoTenant).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec.Body.String() != "t1" {
			t.Fatalf("tenant = %q, want t1", rec.Body.String())
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources", nil)
		rec := httptest.NewRecorder()

		TenantAuth(secret, echoTenant).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources", nil)
		req.Header.Set("Authorization", "Bearer "+signTenantToken(t, "other-secret", "t1", jwt.SigningMethodHS256))
		rec := httptest.NewRecorder()

		TenantAuth(secret, echoTenant).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources", nil)
		req.Header.Set("Authorization", "Bearer "+signTenantToken(t, secret, "t1", jwt.SigningMethodHS512))
		rec := httptest.NewRecorder()

		TenantAuth(secret, echoTenant).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("token without tenant claim", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources", nil)
		req.Header.Set("Authorization", "Bearer "+signTenantToken(t, secret, "", jwt.SigningMethodHS256))
		rec := httptest.NewRecorder()

		TenantAuth(secret, echoTenant).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("no secret trusts the dev header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources", nil)
		req.Header.Set(tenantHeader, "t2")
		rec := httptest.NewRecorder()

		TenantAuth("", echoTenant).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || rec.Body.String() != "t2" {
			t.Fatalf("expected 200/t2, got %d/%q", rec.Code, rec.Body.String())
		}
	})

	t.Run("no secret and no header is still unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resources", nil)
		rec := httptest.NewRecorder()

		TenantAuth("", echoTenant).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
