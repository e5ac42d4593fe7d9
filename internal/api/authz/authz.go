package authz

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const (
	RoleUser  = "USER"
	RoleOwner = "OWNER"
	RoleAdmin = "ADMIN"
)

type AuthUser struct {
	ID    int64
	Email string
	Role  string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// NormalizeRole maps a role claim onto a known role; unknown values become USER.
func NormalizeRole(role string) string {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case RoleAdmin:
		return RoleAdmin
	case RoleOwner:
		return RoleOwner
	default:
		return RoleUser
	}
}

func IsAdmin(user *AuthUser) bool {
	return user != nil && user.Role == RoleAdmin
}

// CanManageFacility reports whether user is the facility owner or an admin.
func CanManageFacility(user *AuthUser, ownerID int64) bool {
	if user == nil {
		return false
	}
	return IsAdmin(user) || user.ID == ownerID
}

// RequireUser returns the authenticated user or ErrUnauthenticated.
func RequireUser(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireRole checks that the caller holds one of roles. Admins pass every check.
func RequireRole(ctx context.Context, roles ...string) error {
	user, err := RequireUser(ctx)
	if err != nil {
		return err
	}
	if IsAdmin(user) {
		return nil
	}
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return ErrForbidden
}
