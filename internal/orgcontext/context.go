// Package orgcontext carries the authenticated organization and user through
// request contexts. Every tenant-scoped query must resolve its org id from
// here rather than from request input.
package orgcontext

import (
	"context"
	"errors"
)

type ctxKey int

const (
	orgIDKey ctxKey = iota
	userIDKey
	roleKey
)

var ErrMissingOrg = errors.New("organization_not_in_context")

func WithOrgID(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, orgIDKey, orgID)
}

func OrgID(ctx context.Context) (int64, error) {
	v, ok := ctx.Value(orgIDKey).(int64)
	if !ok || v == 0 {
		return 0, ErrMissingOrg
	}
	return v, nil
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserID(ctx context.Context) int64 {
	v, _ := ctx.Value(userIDKey).(int64)
	return v
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

func Role(ctx context.Context) string {
	v, _ := ctx.Value(roleKey).(string)
	return v
}
