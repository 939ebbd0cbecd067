package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type fakeAuthConfig struct {
	secret string
}

func (f fakeAuthConfig) GetServiceTokenSecret() string { return f.secret }

func signServiceToken(t *testing.T, secret, subject, tokenType string, roles []string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  subject,
		"type": tokenType,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if roles != nil {
		claims["roles"] = roles
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func authTestRouter(cfg fakeAuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/protected", AuthRequired(cfg), func(c *gin.Context) {
		id := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"caller": id.Caller()})
	})
	engine.GET("/admin", AuthRequired(cfg), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func TestAuthRequired(t *testing.T) {
	cfg := fakeAuthConfig{secret: "test-secret"}
	engine := authTestRouter(cfg)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + signServiceToken(t, cfg.secret, "messenger-adapter", "service", nil), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signServiceToken(t, "other-secret", "messenger-adapter", "service", nil), http.StatusUnauthorized},
		{"wrong token type", "Bearer " + signServiceToken(t, cfg.secret, "messenger-adapter", "access", nil), http.StatusUnauthorized},
		{"empty subject", "Bearer " + signServiceToken(t, cfg.secret, "", "service", nil), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	cfg := fakeAuthConfig{secret: "test-secret"}
	engine := authTestRouter(cfg)

	tests := []struct {
		name       string
		roles      []string
		wantStatus int
	}{
		{"has role", []string{"admin"}, http.StatusOK},
		{"other role", []string{"operator"}, http.StatusForbidden},
		{"no roles", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+signServiceToken(t, cfg.secret, "ops-console", "service", tt.roles))
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
