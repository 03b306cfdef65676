// Package memstore keeps users and bookings in process memory.  It backs
// STORE_DRIVER=memory for local development and doubles as the store in
// service and handler tests.  Data is lost on restart.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/tripbook/internal/model"
	"github.com/iliyamo/tripbook/internal/repository"
)

// Store implements both the credential and the booking store.
type Store struct {
	mu       sync.RWMutex
	byEmail  map[string]model.User
	bookings map[string][]model.Booking // keyed by owner id
}

func New() *Store {
	return &Store{
		byEmail:  make(map[string]model.User),
		bookings: make(map[string][]model.Booking),
	}
}

// Insert stores u.  The email check and the write happen under one lock, so
// of two concurrent inserts with the same email exactly one succeeds.
func (s *Store) Insert(ctx context.Context, u *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return repository.ErrEmailExists
	}
	s.byEmail[u.Email] = *u
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// InsertBooking stores a copy of b under its owner.
func (s *Store) InsertBooking(ctx context.Context, b *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := *b
	cp.Payload = clonePayload(b.Payload)
	s.mu.Lock()
	s.bookings[b.OwnerID] = append(s.bookings[b.OwnerID], cp)
	s.mu.Unlock()
	return nil
}

// ListByOwner returns the owner's bookings, newest first with id as the
// tiebreak, matching the SQL store.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	src := s.bookings[ownerID]
	out := make([]model.Booking, len(src))
	for i, b := range src {
		b.Payload = clonePayload(b.Payload)
		out[i] = b
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Bookings adapts the store to the booking store method set.
func (s *Store) Bookings() *BookingView { return &BookingView{s: s} }

// BookingView exposes InsertBooking under the Insert name used by the
// booking service.
type BookingView struct{ s *Store }

func (v *BookingView) Insert(ctx context.Context, b *model.Booking) error {
	return v.s.InsertBooking(ctx, b)
}

func (v *BookingView) ListByOwner(ctx context.Context, ownerID string) ([]model.Booking, error) {
	return v.s.ListByOwner(ctx, ownerID)
}

// clonePayload deep-copies p so callers cannot mutate stored state through
// the returned map, nested objects and arrays included.
func clonePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return clonePayload(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
