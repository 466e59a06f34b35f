package auth

import (
	"context"
	"errors"
	"fmt"
)

var ErrNoIdentity = errors.New("auth: identity not in context")

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxWorkspaceID
	ctxRole
	ctxExtension
)

func WithIdentity(ctx context.Context, userID, workspaceID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxWorkspaceID, workspaceID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

// WithExtension stores the caller's dialer number. It is optional.
func WithExtension(ctx context.Context, ext string) context.Context {
	return context.WithValue(ctx, ctxExtension, ext)
}

func value(ctx context.Context, key ctxKey, name string) (string, error) {
	if s, ok := ctx.Value(key).(string); ok && s != "" {
		return s, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoIdentity, name)
}

func UserID(ctx context.Context) (string, error) { return value(ctx, ctxUserID, "user_id") }

func WorkspaceID(ctx context.Context) (string, error) {
	return value(ctx, ctxWorkspaceID, "workspace_id")
}

func Role(ctx context.Context) (string, error) { return value(ctx, ctxRole, "role") }

// Extension returns the caller's dialer number, or "" when none was issued.
func Extension(ctx context.Context) string {
	s, _ := ctx.Value(ctxExtension).(string)
	return s
}
