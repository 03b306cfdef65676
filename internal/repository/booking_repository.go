package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/tripbook/internal/model"
)

// BookingRepo persists bookings in MySQL.  The payload lives in a JSON
// column and is never inspected by SQL.
type BookingRepo struct{ DB DBTX }

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db DBTX) *BookingRepo { return &BookingRepo{DB: db} }

// Insert stores b.  ID, OwnerID and CreatedAt must already be set.
func (r *BookingRepo) Insert(ctx context.Context, b *model.Booking) error {
	payload, err := json.Marshal(b.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	const q = `INSERT INTO bookings (id, owner_id, category, payload, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.DB.ExecContext(ctx, q, b.ID, b.OwnerID, string(b.Category), payload, b.CreatedAt); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// ListByOwner returns every booking owned by ownerID, newest first.  The id
// tiebreak keeps the order stable for rows created in the same millisecond.
func (r *BookingRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Booking, error) {
	const q = `SELECT id, owner_id, category, payload, created_at
               FROM bookings
               WHERE owner_id = ?
               ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select bookings: %w", err)
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		var (
			b   model.Booking
			cat string
			raw []byte
		)
		if err := rows.Scan(&b.ID, &b.OwnerID, &cat, &raw, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Category = model.Category(cat)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &b.Payload); err != nil {
				return nil, fmt.Errorf("decode payload of booking %s: %w", b.ID, err)
			}
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return out, nil
}
