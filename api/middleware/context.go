package middleware

import (
	"context"

	"github.com/openshelf-labs/openshelf-backend/pkg/access"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxUsername contextKey = "username"
	ctxRole     contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) int {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxUserID).(int); ok {
		return v
	}
	return 0
}

func UsernameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUsername).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) access.Role {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(access.Role); ok {
		return v
	}
	return ""
}

// ScopeFromContext assembles the caller scope seeded by the auth middleware.
func ScopeFromContext(ctx context.Context) access.Scope {
	return access.Scope{
		Username: UsernameFromContext(ctx),
		Role:     RoleFromContext(ctx),
	}
}

// WithIdentity injects the caller identity into the context; used by handlers
// under test and by the auth middleware itself.
func WithIdentity(ctx context.Context, userID int, username string, role access.Role) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxUsername, username)
	return context.WithValue(ctx, ctxRole, role)
}
