package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tripbook/internal/metrics"
	"github.com/iliyamo/tripbook/internal/model"
)

// BookingStore persists bookings.  ListByOwner must return newest first and
// must never return rows owned by anyone else.
type BookingStore interface {
	Insert(ctx context.Context, b *model.Booking) error
	ListByOwner(ctx context.Context, ownerID string) ([]model.Booking, error)
}

// BookingPublisher announces created bookings.  Failures are logged and
// never fail the request.
type BookingPublisher interface {
	PublishBookingCreated(ctx context.Context, b model.Booking) error
}

type BookingService struct {
	store     BookingStore
	publisher BookingPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewBookingService wires the booking use cases.  publisher may be nil.
func NewBookingService(store BookingStore, publisher BookingPublisher, logger *slog.Logger) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingService{store: store, publisher: publisher, logger: logger, now: time.Now}
}

// Create persists a booking owned by callerID.  The owner always comes from
// the verified identity; the payload is stored without looking inside it.
func (s *BookingService) Create(ctx context.Context, callerID, category string, payload map[string]any) (*model.Booking, error) {
	if callerID == "" {
		return nil, errors.New("create booking: missing caller identity")
	}
	cat, ok := model.ParseCategory(category)
	if !ok {
		return nil, invalid("category must be one of: flight, hotel")
	}
	if payload == nil {
		return nil, invalid("payload must be a JSON object")
	}

	b := &model.Booking{
		ID:        newBookingID(),
		OwnerID:   callerID,
		Category:  cat,
		Payload:   payload,
		CreatedAt: s.now().UTC().Truncate(model.TimestampPrecision),
	}
	if err := s.store.Insert(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "insert booking failed", slog.String("owner_id", callerID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	metrics.ObserveBookingCreated(string(cat))
	s.logger.InfoContext(ctx, "booking created",
		slog.String("booking_id", b.ID),
		slog.String("owner_id", b.OwnerID),
		slog.String("category", string(b.Category)))

	if s.publisher != nil {
		if err := s.publisher.PublishBookingCreated(ctx, *b); err != nil {
			s.logger.WarnContext(ctx, "publish booking.created failed", slog.String("booking_id", b.ID), slog.Any("error", err))
		}
	}
	return b, nil
}

// List returns the caller's bookings, newest first.
func (s *BookingService) List(ctx context.Context, callerID string) ([]model.Booking, error) {
	if callerID == "" {
		return nil, errors.New("list bookings: missing caller identity")
	}
	out, err := s.store.ListByOwner(ctx, callerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "list bookings failed", slog.String("owner_id", callerID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if out == nil {
		out = []model.Booking{}
	}
	return out, nil
}

// newBookingID returns a UUIDv7.  Within one process successive ids are
// strictly increasing, so the id tiebreak keeps bookings created in the same
// millisecond newest first.
func newBookingID() string {
	return uuid.Must(uuid.NewV7()).String()
}
