package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripbook/internal/middleware"
	"github.com/iliyamo/tripbook/internal/service"
)

// BookingHandler serves the caller's bookings.  The owner is always the
// identity attached by JWTAuth.
type BookingHandler struct {
	Bookings *service.BookingService
	Logger   *slog.Logger
}

func NewBookingHandler(b *service.BookingService, logger *slog.Logger) *BookingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingHandler{Bookings: b, Logger: logger}
}

// createBookingReq accepts the canonical {category, payload} and the older
// client's {type, details}.  Owner fields are deliberately absent: any
// ownerId, userId or id in the body is dropped by the decoder.
type createBookingReq struct {
	Category string          `json:"category"`
	Payload  json.RawMessage `json:"payload"`
	Type     string          `json:"type"`
	Details  json.RawMessage `json:"details"`
}

// Create: persist a booking owned by the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}

	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	category := req.Category
	if category == "" {
		category = req.Type
	}
	raw := req.Payload
	if len(raw) == 0 {
		raw = req.Details
	}
	payload, ok := decodeObject(raw)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payload must be a JSON object"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	b, err := h.Bookings.Create(ctx, id.UserID, category, payload)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Booking created successfully",
		"booking": b,
	})
}

// List: the caller's bookings, newest first.  Nothing in the request other
// than the token influences which bookings are returned.
func (h *BookingHandler) List(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	out, err := h.Bookings.List(ctx, id.UserID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, out)
}

// decodeObject accepts only a JSON object; arrays, scalars and null are
// rejected.
func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}
