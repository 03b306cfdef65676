// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/tripbook/internal/model"
)

// BookingCreatedQueue is the durable queue booking events are routed to.
const BookingCreatedQueue = "booking.created"

// BookingCreatedEvent is published after a booking is persisted.  The
// payload is left out on purpose: it may hold traveller details and
// consumers only need to know that a booking happened.
type BookingCreatedEvent struct {
	BookingID string `json:"booking_id"`
	OwnerID   string `json:"owner_id"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
}

// NewBookingCreatedEvent builds the event for b.
func NewBookingCreatedEvent(b model.Booking) BookingCreatedEvent {
	return BookingCreatedEvent{
		BookingID: b.ID,
		OwnerID:   b.OwnerID,
		Category:  string(b.Category),
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
