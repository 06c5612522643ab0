package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"telecare-server/internal/config"
	"telecare-server/internal/models"
	"telecare-server/internal/utils"
)

func authConfig() *config.Config {
	return &config.Config{
		JWTSecret:            "test-secret",
		JWTExpirationMinutes: 15,
	}
}

func authRouter(cfg *config.Config, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Auth(cfg)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		role, _ := GetUserRoleFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})
	r.GET("/me", handlers...)
	return r
}

func accessTokenFor(t *testing.T, cfg *config.Config, id string, role models.Role) string {
	t.Helper()
	user := &models.User{Role: role}
	user.ID = id
	access, _, err := utils.GenerateTokens(user, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return access
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header    string
		wantToken string
		wantOK    bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc.def.ghi", "abc.def.ghi", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc.def.ghi", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		if token != tt.wantToken || ok != tt.wantOK {
			t.Errorf("bearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, token, ok, tt.wantToken, tt.wantOK)
		}
	}
}

func TestAuth(t *testing.T) {
	cfg := authConfig()
	valid := accessTokenFor(t, cfg, "u1", models.RolePatient)
	otherSecret := &config.Config{JWTSecret: "other-secret", JWTExpirationMinutes: 15}
	forged := accessTokenFor(t, otherSecret, "u1", models.RolePatient)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token " + valid, http.StatusUnauthorized},
		{"wrong signing key", "Bearer " + forged, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := authRouter(cfg)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	cfg := authConfig()

	tests := []struct {
		name       string
		role       models.Role
		allowed    []models.Role
		wantStatus int
	}{
		{"role allowed", models.RoleDoctor, []models.Role{models.RoleDoctor}, http.StatusOK},
		{"one of several allowed", models.RolePatient, []models.Role{models.RoleDoctor, models.RolePatient}, http.StatusOK},
		{"role denied", models.RolePatient, []models.Role{models.RoleAdmin}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := authRouter(cfg, RequireRole(tt.allowed...))
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, cfg, "u1", tt.role))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
