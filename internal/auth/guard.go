// Package auth resolves who is calling and whether they may proceed.
package auth

import (
	"context"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/models"
)

// RequireUser fails with Unauthorized when no caller has been resolved.
func RequireUser(u *models.User) error {
	if u == nil {
		return apperr.New(apperr.Unauthorized, "please login")
	}
	return nil
}

// RequireAdmin fails with Unauthorized unless the caller holds the admin role.
func RequireAdmin(u *models.User) error {
	if err := RequireUser(u); err != nil {
		return err
	}
	if !u.IsAdmin() {
		return apperr.New(apperr.Unauthorized, "admin access required")
	}
	return nil
}

type userKey struct{}

type claimsKey struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the caller stored in ctx, or nil for anonymous requests.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey{}).(*models.User)
	return u
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}
