package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tripbook/internal/model"
	"github.com/iliyamo/tripbook/internal/repository/memstore"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Booking
	err    error
}

func (p *recordingPublisher) PublishBookingCreated(_ context.Context, b model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, b)
	return p.err
}

func newBookingService(pub BookingPublisher) (*BookingService, *memstore.Store) {
	store := memstore.New()
	return NewBookingService(store.Bookings(), pub, discardLogger()), store
}

func TestCreate_OwnerFromCaller(t *testing.T) {
	svc, _ := newBookingService(nil)

	b, err := svc.Create(context.Background(), "u1", "flight", map[string]any{"price": "99"})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "u1", b.OwnerID)
	assert.Equal(t, model.CategoryFlight, b.Category)
	assert.Equal(t, "99", b.Payload["price"])
	assert.Equal(t, time.UTC, b.CreatedAt.Location())
}

func TestCreate_CategoryAliases(t *testing.T) {
	svc, _ := newBookingService(nil)

	b, err := svc.Create(context.Background(), "u1", "Hotels", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryHotel, b.Category)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newBookingService(nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", "car", map[string]any{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, "u1", "", map[string]any{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, "u1", "flight", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreate_RequiresCaller(t *testing.T) {
	svc, _ := newBookingService(nil)

	_, err := svc.Create(context.Background(), "", "flight", map[string]any{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestList_IsolatedPerOwner(t *testing.T) {
	svc, _ := newBookingService(nil)
	ctx := context.Background()

	b1, err := svc.Create(ctx, "u1", "flight", map[string]any{"n": 1})
	require.NoError(t, err)

	mine, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b1.ID, mine[0].ID)

	theirs, err := svc.List(ctx, "u2")
	require.NoError(t, err)
	assert.NotNil(t, theirs)
	assert.Empty(t, theirs)
}

func TestList_NewestFirstAndRepeatable(t *testing.T) {
	svc, _ := newBookingService(nil)
	ctx := context.Background()

	clock := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	var ids []string
	for i := 0; i < 3; i++ {
		b, err := svc.Create(ctx, "u1", "hotel", map[string]any{"i": i})
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	first, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	second, err := svc.List(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{first[0].ID, first[1].ID, first[2].ID})
	assert.Equal(t, first, second)
}

func TestList_SameMillisecondStaysNewestFirst(t *testing.T) {
	svc, _ := newBookingService(nil)
	ctx := context.Background()

	instant := time.Date(2026, 4, 1, 10, 0, 0, 123456789, time.UTC)
	svc.now = func() time.Time { return instant }

	var ids []string
	for i := 0; i < 5; i++ {
		b, err := svc.Create(ctx, "u1", "flight", map[string]any{"i": i})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 4, 1, 10, 0, 0, 123000000, time.UTC), b.CreatedAt)
		ids = append(ids, b.ID)
	}

	got, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := range got {
		assert.Equal(t, ids[len(ids)-1-i], got[i].ID)
	}
}

func TestCreate_PublishesAfterInsert(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newBookingService(pub)

	b, err := svc.Create(context.Background(), "u1", "flight", map[string]any{})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, b.ID, pub.events[0].ID)
}

func TestCreate_PublishFailureDoesNotFail(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newBookingService(pub)

	_, err := svc.Create(context.Background(), "u1", "flight", map[string]any{})
	assert.NoError(t, err)
}

type brokenBookings struct{}

func (brokenBookings) Insert(context.Context, *model.Booking) error { return errors.New("disk full") }
func (brokenBookings) ListByOwner(context.Context, string) ([]model.Booking, error) {
	return nil, errors.New("timeout")
}

func TestBooking_StoreFailureIsUnavailable(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewBookingService(brokenBookings{}, pub, discardLogger())

	_, err := svc.Create(context.Background(), "u1", "flight", map[string]any{})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, pub.events, "nothing published for a failed insert")

	_, err = svc.List(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
