package service

import (
	"context"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/utils"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAvailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ns := env.ns(t, "acme")
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.longService)

	cases := []struct {
		start, duration int
		free            bool
	}{
		{9 * 60, 60, true},      // ends where the booking starts
		{11 * 60, 30, true},     // starts where it ends
		{9*60 + 30, 60, false},  // overlaps the start
		{10*60 + 30, 60, false}, // overlaps the end
		{10*60 + 15, 15, false}, // inside
		{9 * 60, 180, false},    // covers it
	}
	for _, tc := range cases {
		free, err := env.bookings.Availability.IsAvailable(ctx, ns, tuesday, tc.start, tc.duration)
		require.NoError(t, err)
		assert.Equal(t, tc.free, free, "%s for %d minutes", utils.FormatClock(tc.start), tc.duration)
	}

	free, err := env.bookings.Availability.IsAvailableExcluding(ctx, ns, tuesday, 10*60+30, 60, b.ID)
	require.NoError(t, err)
	assert.True(t, free)

	free, err = env.bookings.Availability.IsAvailable(ctx, ns, "2030-01-09", 10*60, 60)
	require.NoError(t, err)
	assert.True(t, free, "other dates are unaffected")
}

func TestFreeSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustBook(t, "u-1", tuesday, "10:00", env.longService)

	slots, err := env.bookings.FreeSlots(ctx, "acme", tuesday, 30)
	require.NoError(t, err)

	// 09:00 to 17:30 on a 30 minute grid, minus 10:00 and 10:30
	assert.Len(t, slots, 16)
	assert.Equal(t, 9*60, slots[0])
	assert.Equal(t, 17*60+30, slots[len(slots)-1])
	assert.NotContains(t, slots, 10*60)
	assert.NotContains(t, slots, 10*60+30)

	slots, err = env.bookings.FreeSlots(ctx, "acme", tuesday, 60)
	require.NoError(t, err)
	assert.NotContains(t, slots, 9*60+30)
	assert.Contains(t, slots, 9*60)
	assert.Contains(t, slots, 11*60)
	assert.NotContains(t, slots, 17*60+30)
}

func TestFreeSlotsSkipsPassedStartsAndClosedDays(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.clock.now = testNow.Add(2*time.Hour + 10*time.Minute) // Monday 10:10

	slots, err := env.bookings.FreeSlots(ctx, "acme", "2030-01-07", 30)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, 10*60+30, slots[0])

	slots, err = env.bookings.FreeSlots(ctx, "acme", sunday, 30)
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = env.bookings.FreeSlots(ctx, "acme", "2030-01-06", 30)
	require.NoError(t, err)
	assert.Empty(t, slots)

	_, err = env.bookings.FreeSlots(ctx, "acme", "tomorrow", 30)
	assert.ErrorIs(t, err, ErrPolicyViolation)
	_, err = env.bookings.FreeSlots(ctx, "acme", tuesday, 0)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestFreeSlotsRespectsBlocks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.blocks.Block(ctx, BlockRequest{
		TenantID: "acme", Date: tuesday, Start: "12:00", End: "14:00", Reason: "lunch", Actor: adminActor(),
	})
	require.NoError(t, err)

	slots, err := env.bookings.FreeSlots(ctx, "acme", tuesday, 30)
	require.NoError(t, err)
	for _, s := range slots {
		assert.False(t, entity.NewInterval(s, 30).Overlaps(entity.Interval{Start: 12 * 60, End: 14 * 60}))
	}
	assert.Len(t, slots, 14)
}
