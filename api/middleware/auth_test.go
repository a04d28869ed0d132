package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openshelf-labs/openshelf-backend/pkg/access"
	pkgAuth "github.com/openshelf-labs/openshelf-backend/pkg/auth"
	"github.com/openshelf-labs/openshelf-backend/pkg/config"
)

var jwtCfg = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "openshelf-test",
	ExpirationMinutes: 15,
}

func mintToken(t *testing.T, username string, role access.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:   7,
		Username: username,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthSeedsIdentity(t *testing.T) {
	var scope access.Scope
	var userID int
	handler := Auth(jwtCfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope = ScopeFromContext(r.Context())
		userID = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "alice", access.RoleUser))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if scope.Username != "alice" || scope.Role != access.RoleUser {
		t.Fatalf("unexpected scope: %+v", scope)
	}
	if userID != 7 {
		t.Fatalf("expected user id 7, got %d", userID)
	}
}

func TestAuthMissingHeader(t *testing.T) {
	handler := Auth(jwtCfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	handler := Auth(jwtCfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	otherCfg := jwtCfg
	otherCfg.Secret = "different-secret"
	token, err := pkgAuth.MintAccessToken(otherCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: 1, Username: "alice", Role: access.RoleUser,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	handler := Auth(jwtCfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireCatalogManager(t *testing.T) {
	handler := RequireCatalogManager(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	adminReq := httptest.NewRequest(http.MethodPost, "/", nil)
	adminReq = adminReq.WithContext(WithIdentity(adminReq.Context(), 1, "root", access.RoleAdmin))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminReq)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin expected 204, got %d", rec.Code)
	}

	userReq := httptest.NewRequest(http.MethodPost, "/", nil)
	userReq = userReq.WithContext(WithIdentity(userReq.Context(), 2, "alice", access.RoleUser))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, userReq)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user expected 403, got %d", rec.Code)
	}
}
