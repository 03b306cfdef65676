package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripbook/internal/service"
)

// storeTimeout bounds every store-backed handler.
const storeTimeout = 5 * time.Second

// respondError maps service errors onto statuses.  Every error body has the
// shape {"error": "..."}; internal details stay in the logs.
func respondError(c echo.Context, logger *slog.Logger, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Msg})
	case errors.Is(err, service.ErrAlreadyExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service temporarily unavailable, try again"})
	default:
		logger.ErrorContext(c.Request().Context(), "unhandled error",
			slog.String("path", c.Path()), slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
