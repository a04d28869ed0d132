package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf-labs/openshelf-backend/internal/analytics"
	"github.com/openshelf-labs/openshelf-backend/internal/auth"
	"github.com/openshelf-labs/openshelf-backend/internal/books"
	"github.com/openshelf-labs/openshelf-backend/internal/lending"
	"github.com/openshelf-labs/openshelf-backend/internal/users"
	"github.com/openshelf-labs/openshelf-backend/pkg/access"
	pkgAuth "github.com/openshelf-labs/openshelf-backend/pkg/auth"
	"github.com/openshelf-labs/openshelf-backend/pkg/config"
	"github.com/openshelf-labs/openshelf-backend/pkg/db"
	"github.com/openshelf-labs/openshelf-backend/pkg/db/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "openshelf-test",
			ExpirationMinutes: 15,
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8192,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		Analytics: config.AnalyticsConfig{MostBorrowedLimit: 10},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *config.Config, *gorm.DB) {
	t.Helper()

	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Book{}, &models.LendingRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := testConfig()
	client := db.FromGorm(conn)
	userRepo := users.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{UserRepo: userRepo, JWTConfig: cfg.JWT})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	registerService, err := auth.NewRegisterService(userRepo, cfg.Password)
	if err != nil {
		t.Fatalf("register service: %v", err)
	}
	booksService, err := books.NewService(books.ServiceParams{Repo: books.NewRepository(conn), Client: client})
	if err != nil {
		t.Fatalf("books service: %v", err)
	}
	lendingService, err := lending.NewService(lending.ServiceParams{
		Client: client,
		Repo:   lending.NewRepository(conn),
	})
	if err != nil {
		t.Fatalf("lending service: %v", err)
	}
	analyticsService, err := analytics.NewService(analytics.ServiceParams{DB: conn, Config: cfg.Analytics})
	if err != nil {
		t.Fatalf("analytics service: %v", err)
	}

	handler := NewRouter(RouterParams{
		Config:           cfg,
		DBPinger:         client,
		AuthService:      authService,
		RegisterService:  registerService,
		BooksService:     booksService,
		LendingService:   lendingService,
		AnalyticsService: analyticsService,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, cfg, conn
}

func mintToken(t *testing.T, cfg *config.Config, username string, role access.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:   1,
		Username: username,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, method, url, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestHealthLive(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health/live", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	data, _ := body["data"].(map[string]any)
	if data["status"] != "live" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{
		"/api/v1/books",
		"/api/v1/lending",
		"/api/v1/analytics/most-borrowed",
	} {
		resp, body := doJSON(t, http.MethodGet, srv.URL+path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s expected 401, got %d", path, resp.StatusCode)
		}
		errObj, _ := body["error"].(map[string]any)
		if errObj["code"] != "UNAUTHORIZED" {
			t.Fatalf("%s unexpected error body: %v", path, body)
		}
	}
}

func TestRegisterThenLogin(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register expected 201, got %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]any{
		"username": "alice",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login expected 200, got %d", resp.StatusCode)
	}
	data, _ := body["data"].(map[string]any)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("expected token in response: %v", body)
	}

	// The freshly minted token works against a protected route.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/books", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("books with token expected 200, got %d", resp.StatusCode)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]any{
		"username": "ghost",
		"password": "nope",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestCatalogRoleEnforcement(t *testing.T) {
	srv, cfg, _ := newTestServer(t)
	adminToken := mintToken(t, cfg, "root", access.RoleAdmin)
	userToken := mintToken(t, cfg, "alice", access.RoleUser)

	payload := map[string]any{
		"title":    "Dune",
		"author":   "Herbert",
		"isbn":     "978-0441172719",
		"quantity": 2,
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/books", userToken, payload)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user create expected 403, got %d", resp.StatusCode)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "FORBIDDEN" {
		t.Fatalf("unexpected error body: %v", body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/books", adminToken, payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin create expected 201, got %d", resp.StatusCode)
	}
	data, _ := body["data"].(map[string]any)
	if data["available"] != float64(2) {
		t.Fatalf("unexpected create body: %v", body)
	}
}

func TestLendReturnFlow(t *testing.T) {
	srv, cfg, _ := newTestServer(t)
	adminToken := mintToken(t, cfg, "root", access.RoleAdmin)
	userToken := mintToken(t, cfg, "alice", access.RoleUser)

	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/books", adminToken, map[string]any{
		"title":    "Dune",
		"author":   "Herbert",
		"isbn":     "978-0441172719",
		"quantity": 1,
	})
	data, _ := body["data"].(map[string]any)
	bookID := int(data["id"].(float64))

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/lending/lend", userToken, map[string]any{
		"book_id": bookID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("lend expected 201, got %d: %v", resp.StatusCode, body)
	}
	data, _ = body["data"].(map[string]any)
	recordID := int(data["id"].(float64))
	if data["borrower"] != "alice" {
		t.Fatalf("unexpected lend body: %v", body)
	}

	// The last copy is out; a second lend conflicts.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/lending/lend", userToken, map[string]any{
		"book_id": bookID,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second lend expected 409, got %d: %v", resp.StatusCode, body)
	}

	returnURL := fmt.Sprintf("%s/api/v1/lending/return/%d", srv.URL, recordID)
	resp, body = doJSON(t, http.MethodPost, returnURL, userToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("return expected 200, got %d: %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, returnURL, userToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double return expected 409, got %d: %v", resp.StatusCode, body)
	}

	// Only admins may delete ledger rows.
	deleteURL := fmt.Sprintf("%s/api/v1/lending/%d", srv.URL, recordID)
	resp, _ = doJSON(t, http.MethodDelete, deleteURL, userToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user delete expected 403, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, deleteURL, adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin delete expected 200, got %d", resp.StatusCode)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv, cfg, _ := newTestServer(t)
	adminToken := mintToken(t, cfg, "root", access.RoleAdmin)

	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/books", adminToken, map[string]any{
		"title":    "Dune",
		"author":   "Herbert",
		"isbn":     "978-0441172719",
		"category": "SciFi",
		"quantity": 3,
	})
	data, _ := body["data"].(map[string]any)
	bookID := int(data["id"].(float64))

	for i := 0; i < 2; i++ {
		resp, lendBody := doJSON(t, http.MethodPost, srv.URL+"/api/v1/lending/lend", adminToken, map[string]any{
			"book_id": bookID,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("lend %d expected 201, got %d: %v", i, resp.StatusCode, lendBody)
		}
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/analytics/most-borrowed", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("most-borrowed expected 200, got %d", resp.StatusCode)
	}
	entries, _ := body["data"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %v", body)
	}
	top, _ := entries[0].(map[string]any)
	if top["borrow_count"] != float64(2) {
		t.Fatalf("unexpected top entry: %v", top)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/analytics/monthly-trends", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("monthly-trends expected 200, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/analytics/category-distribution", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("category-distribution expected 200, got %d", resp.StatusCode)
	}
	entries, _ = body["data"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 category, got %v", body)
	}
}
