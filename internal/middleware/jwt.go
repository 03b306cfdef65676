package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "errors"
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tripbook/internal/model"
)

var (
    // ErrUnauthenticated means no usable credentials were presented.
    ErrUnauthenticated = errors.New("missing bearer token")
    // ErrInvalidToken means a token was presented but did not verify.
    ErrInvalidToken = errors.New("invalid token")
)

// TokenVerifier resolves a raw token to the identity it asserts.
type TokenVerifier interface {
    Verify(raw string) (model.Identity, error)
}

const bearerPrefix = "Bearer "

// Authenticate is the gate itself: it reads an Authorization header value
// and returns the verified identity.  The header must be exactly
// "Bearer <token>" with a non-empty token.  It never touches storage.
func Authenticate(v TokenVerifier, header string) (model.Identity, error) {
    if !strings.HasPrefix(header, bearerPrefix) {
        return model.Identity{}, ErrUnauthenticated
    }
    raw := header[len(bearerPrefix):]
    if raw == "" || strings.ContainsAny(raw, " \t") {
        return model.Identity{}, ErrUnauthenticated
    }
    id, err := v.Verify(raw)
    if err != nil {
        return model.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
    }
    return id, nil
}

// JWTAuth returns an Echo middleware that runs Authenticate on every request.
// A missing header answers 401, a bad token 403, and the handler is never
// reached.  On success the identity is attached to the request context
// (see IdentityFrom) and to the echo context under "identity".
func JWTAuth(v TokenVerifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, err := Authenticate(v, c.Request().Header.Get(echo.HeaderAuthorization))
            switch {
            case errors.Is(err, ErrUnauthenticated):
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            case err != nil:
                return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid token"})
            }

            req := c.Request()
            c.SetRequest(req.WithContext(WithIdentity(req.Context(), id)))
            c.Set(identityKey, id)
            return next(c)
        }
    }
}
