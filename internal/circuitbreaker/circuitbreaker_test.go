package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errUpstream = errors.New("upstream 500")

func TestBreaker_TripsAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(2, 1, 20*time.Millisecond)
	var transitions []string
	cb.SetStateChangeCallback(func(from, to State) { transitions = append(transitions, from.String()+"->"+to.String()) })

	fail := func() error { return errUpstream }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Do(fail, nil), errUpstream)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Do(fail, nil), errUpstream)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Do(func() error { called = true; return nil }, nil)
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	time.Sleep(30 * time.Millisecond)
	assert.NoError(t, cb.Do(ok, nil))
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 1, 10*time.Millisecond)
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.AllowRequest())
	assert.Equal(t, StateHalfOpen, cb.GetState())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestBreaker_UncountedErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(1, 1, time.Minute)
	errBadRequest := errors.New("400")

	for i := 0; i < 3; i++ {
		err := cb.Do(func() error { return errBadRequest }, func(err error) bool { return !errors.Is(err, errBadRequest) })
		assert.ErrorIs(t, err, errBadRequest)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, 1, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.GetState())
}
