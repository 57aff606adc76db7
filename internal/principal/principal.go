// Package principal carries the authenticated caller through the request
// context.
package principal

import (
	"context"

	"github.com/Skotchmaster/projects_api/internal/models"
)

type Principal struct {
	UserID uint
	Email  string
	Role   models.Role
}

func (p Principal) IsAdmin() bool { return p.Role.IsAdmin() }

type ctxKey struct{}

func IntoContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
