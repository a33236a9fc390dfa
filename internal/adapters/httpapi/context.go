package httpapi

import (
	"context"

	"github.com/alubilles/membership-api/internal/domain"
)

type adminKey struct{}

func WithAdmin(ctx context.Context, admin domain.AdminID) context.Context {
	return context.WithValue(ctx, adminKey{}, admin)
}

func AdminFromContext(ctx context.Context) (domain.AdminID, bool) {
	v, ok := ctx.Value(adminKey{}).(domain.AdminID)
	return v, ok && v != ""
}
