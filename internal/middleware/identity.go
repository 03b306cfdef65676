package middleware

// identity.go carries the verified caller between the gate and handlers.
// Handlers read it with IdentityFrom; nothing downstream re-parses tokens.

import (
    "context"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tripbook/internal/model"
)

type ctxKey struct{}

const identityKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
    return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity attached by JWTAuth.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
    id, ok := ctx.Value(ctxKey{}).(model.Identity)
    return id, ok && id.UserID != ""
}

// userID returns the caller id for keying, or "anon" when the request is
// unauthenticated.
func userID(c echo.Context) string {
    if id, ok := c.Get(identityKey).(model.Identity); ok && id.UserID != "" {
        return id.UserID
    }
    if id, ok := IdentityFrom(c.Request().Context()); ok {
        return id.UserID
    }
    return "anon"
}
