package events

import (
	"context"
	"encoding/json"
	"slotbook/cmd/internal/domain/entity"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingEvent(t *testing.T) {
	b := &entity.Booking{
		ID:              7,
		Date:            "2030-01-08",
		StartMinute:     10 * 60,
		DurationMinutes: 45,
		UserID:          "u-1",
		ServiceID:       2,
		Status:          entity.BookingActive,
	}
	actor := entity.Actor{Type: entity.ActorUser, ID: "u-1"}

	e := NewBookingEvent(BookingCreated, "acme", actor, b, 0)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "acme.booking.created", e.RoutingKey())
	assert.Equal(t, "10:00", e.Booking.Time)
	assert.Equal(t, "1970-01-01T00:00:00Z", e.OccurredAt)

	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"durationMinutes":45`)

	other := NewBookingEvent(BookingCreated, "acme", actor, b, 0)
	assert.NotEqual(t, e.ID, other.ID)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	b := &entity.Booking{ID: 1}

	require.NoError(t, r.Publish(context.Background(), NewBookingEvent(BookingCancelled, "t", entity.Actor{}, b, 0)))
	require.NoError(t, NopPublisher{}.Publish(context.Background(), nil))

	events := r.Events()
	require.Len(t, events, 1)
	assert.Equal(t, BookingCancelled, events[0].Type)
}
