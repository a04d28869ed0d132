package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/openshelf-labs/openshelf-backend/internal/users"
	"github.com/openshelf-labs/openshelf-backend/pkg/access"
	pkgAuth "github.com/openshelf-labs/openshelf-backend/pkg/auth"
	"github.com/openshelf-labs/openshelf-backend/pkg/config"
	"github.com/openshelf-labs/openshelf-backend/pkg/db/models"
	pkgerrors "github.com/openshelf-labs/openshelf-backend/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "openshelf-test",
	ExpirationMinutes: 15,
}

// Low-cost parameters keep the hashing rounds fast in tests.
var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func newTestServices(t *testing.T) (Service, RegisterService, *gorm.DB) {
	t.Helper()

	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := users.NewRepository(conn)
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: testJWTConfig})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	reg, err := NewRegisterService(repo, testPasswordConfig)
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc, reg, conn
}

func TestRegisterAndLogin(t *testing.T) {
	svc, reg, conn := newTestServices(t)
	ctx := context.Background()

	created, err := reg.Register(ctx, RegisterRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Username != "alice" {
		t.Fatalf("unexpected username %q", created.Username)
	}
	if created.Email != "alice@example.com" {
		t.Fatalf("email must be lowercased, got %q", created.Email)
	}
	if created.Role != access.RoleUser.String() {
		t.Fatalf("self-registered accounts must be plain users, got %q", created.Role)
	}

	resp, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Username != "alice" || claims.Role != access.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	var stored models.User
	if err := conn.First(&stored, "username = ?", "alice").Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Fatal("login must stamp last_login_at")
	}
	if stored.PasswordHash == "correct horse battery" {
		t.Fatal("password must not be stored in clear")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, reg, _ := newTestServices(t)
	ctx := context.Background()

	if _, err := reg.Register(ctx, RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "correct horse battery",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _, _ := newTestServices(t)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "whatever"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	// Unknown user and bad password must be indistinguishable.
	if typed.Message() != invalidCredentialsMessage {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	_, reg, _ := newTestServices(t)
	ctx := context.Background()

	if _, err := reg.Register(ctx, RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := reg.Register(ctx, RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "password123",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}
