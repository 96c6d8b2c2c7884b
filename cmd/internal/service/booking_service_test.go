package service

import (
	"context"
	"errors"
	"fmt"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/events"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)

	b := env.mustBook(t, "u-1", tuesday, "10:00", env.longService)

	assert.NotZero(t, b.ID)
	assert.Equal(t, entity.BookingActive, b.Status)
	assert.Equal(t, 600, b.StartMinute)
	assert.Equal(t, 60, b.DurationMinutes, "duration is taken from the service")
	assert.Equal(t, testNow.UnixMilli(), b.CreatedAt)

	history, err := env.bookings.History(context.Background(), "acme", b.ID, adminActor())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.ActionCreate, history[0].Action)
	assert.Nil(t, history[0].OldDate)
	assert.Equal(t, tuesday, *history[0].NewDate)

	published := env.events.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.BookingCreated, published[0].Type)
	assert.Equal(t, "acme", published[0].TenantID)
}

func TestCreateExplicitDurationOverridesService(t *testing.T) {
	env := newTestEnv(t)

	b, err := env.bookings.Create(context.Background(), CreateRequest{
		TenantID: "acme", UserID: "u-1", Date: tuesday, Time: "10:00",
		DurationMinutes: 90, ServiceID: env.shortService, IdempotencyToken: "t-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 90, b.DurationMinutes)
}

func TestCreateRejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	env.mustBook(t, "u-1", tuesday, "10:00", env.longService)

	_, err := env.book("u-2", tuesday, "10:30", env.shortService)
	assert.ErrorIs(t, err, ErrSlotConflict)

	_, err = env.book("u-2", tuesday, "09:30", env.longService)
	assert.ErrorIs(t, err, ErrSlotConflict)

	assert.Len(t, env.activeOn(t, "acme", tuesday), 1)
}

func TestAdjacentBookingsDoNotOverlap(t *testing.T) {
	env := newTestEnv(t)

	env.mustBook(t, "u-1", tuesday, "10:00", env.longService)
	env.mustBook(t, "u-2", tuesday, "11:00", env.longService)
	env.mustBook(t, "u-3", tuesday, "09:00", env.longService)

	assert.Len(t, env.activeOn(t, "acme", tuesday), 3)
}

func TestConcurrentCreatesHaveExactlyOneWinner(t *testing.T) {
	checkExactlyOneWinner(t, newTestEnv(t))
}

func checkExactlyOneWinner(t *testing.T, env *testEnv) {
	t.Helper()
	const n = 8

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.bookings.Create(context.Background(), CreateRequest{
				TenantID:         "acme",
				UserID:           fmt.Sprintf("u-%d", i),
				Date:             tuesday,
				Time:             "14:00",
				ServiceID:        env.longService,
				IdempotencyToken: fmt.Sprintf("race-%d", i),
			})
		}(i)
	}
	wg.Wait()

	var won, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, env.activeOn(t, "acme", tuesday), 1)
}

func TestNoOverlapInvariant(t *testing.T) {
	checkNoOverlap(t, newTestEnv(t))
}

func checkNoOverlap(t *testing.T, env *testEnv) {
	t.Helper()

	starts := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30", "13:00"}
	services := []int64{env.longService, env.shortService}
	var wg sync.WaitGroup
	for i, at := range starts {
		for j, svc := range services {
			wg.Add(1)
			go func(user, at string, svc int64) {
				defer wg.Done()
				_, _ = env.book(user, tuesday, at, svc)
			}(fmt.Sprintf("u-%d-%d", i, j), at, svc)
		}
	}
	wg.Wait()

	active := env.activeOn(t, "acme", tuesday)
	require.NotEmpty(t, active)
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			assert.False(t, active[i].Interval().Overlaps(active[j].Interval()),
				"bookings %d and %d overlap", active[i].ID, active[j].ID)
		}
	}
}

func TestIdempotentRetry(t *testing.T) {
	env := newTestEnv(t)
	req := CreateRequest{
		TenantID: "acme", UserID: "u-1", Date: tuesday, Time: "10:00",
		ServiceID: env.shortService, IdempotencyToken: "req-42",
	}

	first, err := env.bookings.Create(context.Background(), req)
	require.NoError(t, err)
	second, err := env.bookings.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, env.activeOn(t, "acme", tuesday), 1)
	assert.Len(t, env.events.Events(), 1, "a replay publishes nothing")

	// The replay is answered even after the slot itself stopped being bookable.
	env.clock.now = testNow.AddDate(0, 0, 1).Add(3 * time.Hour)
	third, err := env.bookings.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
}

func TestIdempotencyTokenOfAnotherUser(t *testing.T) {
	env := newTestEnv(t)
	req := CreateRequest{
		TenantID: "acme", UserID: "u-1", Date: tuesday, Time: "10:00",
		ServiceID: env.shortService, IdempotencyToken: "shared",
	}
	_, err := env.bookings.Create(context.Background(), req)
	require.NoError(t, err)

	req.UserID = "u-2"
	req.Time = "11:00"
	_, err = env.bookings.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestExpiredIdempotencyTokenCreatesNewBooking(t *testing.T) {
	env := newTestEnv(t)
	req := CreateRequest{
		TenantID: "acme", UserID: "u-1", Date: "2030-01-10", Time: "10:00",
		ServiceID: env.shortService, IdempotencyToken: "old",
	}
	first, err := env.bookings.Create(context.Background(), req)
	require.NoError(t, err)

	env.clock.now = testNow.Add(2 * env.bookings.IdempotencyTTL)
	req.Time = "11:00"
	second, err := env.bookings.Create(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateRequiresIdempotencyToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.bookings.Create(context.Background(), CreateRequest{
		TenantID: "acme", UserID: "u-1", Date: tuesday, Time: "10:00", ServiceID: env.shortService,
	})
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestCreateRejectsUnknownOrInactiveService(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.book("u-1", tuesday, "10:00", 999)
	assert.ErrorIs(t, err, ErrPolicyViolation)

	require.NoError(t, env.db.Table("acme_services").Where("id = ?", env.shortService).Update("active", false).Error)
	_, err = env.book("u-1", tuesday, "10:00", env.shortService)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestLimitEnforcement(t *testing.T) {
	env := newTestEnv(t)

	first := env.mustBook(t, "u-1", tuesday, "09:00", env.shortService)
	env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)
	env.mustBook(t, "u-1", "2030-01-09", "10:00", env.shortService)

	_, err := env.book("u-1", "2030-01-10", "10:00", env.shortService)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	// other users are unaffected
	env.mustBook(t, "u-2", "2030-01-10", "10:00", env.shortService)

	_, err = env.bookings.Cancel(context.Background(), CancelRequest{
		TenantID: "acme", BookingID: first.ID, Actor: userActor("u-1"),
	})
	require.NoError(t, err)

	env.mustBook(t, "u-1", "2030-01-10", "11:00", env.shortService)
}

func TestLimitIgnoresFinishedBookings(t *testing.T) {
	env := newTestEnv(t)

	env.mustBook(t, "u-1", tuesday, "09:00", env.shortService)
	env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)
	env.mustBook(t, "u-1", tuesday, "11:00", env.shortService)

	// Tuesday 10:45: the 09:00 and 10:00 bookings are over.
	env.clock.now = testNow.AddDate(0, 0, 1).Add(2*time.Hour + 45*time.Minute)
	env.mustBook(t, "u-1", tuesday, "15:00", env.shortService)
	env.mustBook(t, "u-1", tuesday, "16:00", env.shortService)

	_, err := env.book("u-1", tuesday, "17:00", env.shortService)
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestUnlimitedBookingsWhenLimitIsZero(t *testing.T) {
	env := newTestEnv(t)
	ns := env.ns(t, "acme")
	policy := entity.DefaultBookingPolicy()
	policy.MaxBookingsPerUser = 0
	require.NoError(t, env.policy.SavePolicy(context.Background(), ns, policy))

	for _, at := range []string{"09:00", "10:00", "11:00", "12:00", "13:00"} {
		env.mustBook(t, "u-1", tuesday, at, env.shortService)
	}
}

func TestRescheduleMovesBooking(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.longService)

	moved, err := env.bookings.Reschedule(context.Background(), RescheduleRequest{
		TenantID: "acme", BookingID: b.ID, Date: tuesday, Time: "10:30",
		Actor: userActor("u-1"), Reason: "running late",
	})
	require.NoError(t, err, "overlapping its own old slot is fine")
	assert.Equal(t, 630, moved.StartMinute)
	assert.Equal(t, 60, moved.DurationMinutes)

	history, err := env.bookings.History(context.Background(), "acme", b.ID, userActor("u-1"))
	require.NoError(t, err)
	require.Len(t, history, 2)
	h := history[1]
	assert.Equal(t, entity.ActionReschedule, h.Action)
	assert.Equal(t, 600, *h.OldStartMinute)
	assert.Equal(t, 630, *h.NewStartMinute)
	assert.Equal(t, "running late", h.Reason)
	assert.Equal(t, entity.ActorUser, h.ActorType)

	// the old slot is free again
	env.mustBook(t, "u-2", tuesday, "10:00", env.shortService)
}

func TestRescheduleIntoOccupiedSlotIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	a := env.mustBook(t, "u-1", tuesday, "10:00", env.longService)
	env.mustBook(t, "u-2", tuesday, "11:00", env.longService)

	_, err := env.bookings.Reschedule(context.Background(), RescheduleRequest{
		TenantID: "acme", BookingID: a.ID, Date: tuesday, Time: "11:30", Actor: userActor("u-1"),
	})
	assert.ErrorIs(t, err, ErrSlotConflict)

	unchanged, err := env.bookings.Get(context.Background(), "acme", a.ID, adminActor())
	require.NoError(t, err)
	assert.Equal(t, tuesday, unchanged.Date)
	assert.Equal(t, 600, unchanged.StartMinute)

	history, err := env.bookings.History(context.Background(), "acme", a.ID, adminActor())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRescheduleToAnotherDate(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)

	moved, err := env.bookings.Reschedule(context.Background(), RescheduleRequest{
		TenantID: "acme", BookingID: b.ID, Date: "2030-01-09", Time: "10:00", Actor: adminActor(),
	})
	require.NoError(t, err)
	assert.Equal(t, "2030-01-09", moved.Date)
	assert.Empty(t, env.activeOn(t, "acme", tuesday))
}

func TestRescheduleChecksPolicy(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)

	_, err := env.bookings.Reschedule(context.Background(), RescheduleRequest{
		TenantID: "acme", BookingID: b.ID, Date: sunday, Time: "10:00", Actor: userActor("u-1"),
	})
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestCancelFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.longService)

	cancelled, err := env.bookings.Cancel(context.Background(), CancelRequest{
		TenantID: "acme", BookingID: b.ID, Actor: userActor("u-1"), Reason: "sick",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingCancelled, cancelled.Status)

	again := env.mustBook(t, "u-2", tuesday, "10:00", env.longService)
	assert.NotEqual(t, b.ID, again.ID)

	history, err := env.bookings.History(context.Background(), "acme", b.ID, adminActor())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.ActionCancel, history[1].Action)
	assert.Equal(t, tuesday, *history[1].OldDate)
	assert.Nil(t, history[1].NewDate)
	assert.Equal(t, "sick", history[1].Reason)
}

func TestCancelledBookingIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)
	ctx := context.Background()

	_, err := env.bookings.Cancel(ctx, CancelRequest{TenantID: "acme", BookingID: b.ID, Actor: adminActor()})
	require.NoError(t, err)

	_, err = env.bookings.Cancel(ctx, CancelRequest{TenantID: "acme", BookingID: b.ID, Actor: adminActor()})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.bookings.Reschedule(ctx, RescheduleRequest{
		TenantID: "acme", BookingID: b.ID, Date: tuesday, Time: "11:00", Actor: adminActor(),
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.bookings.ChangeService(ctx, ChangeServiceRequest{
		TenantID: "acme", BookingID: b.ID, ServiceID: env.longService, Actor: adminActor(),
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.bookings.Cancel(ctx, CancelRequest{TenantID: "acme", BookingID: 12345, Actor: adminActor()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsersCannotTouchOtherUsersBookings(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)
	ctx := context.Background()

	_, err := env.bookings.Cancel(ctx, CancelRequest{TenantID: "acme", BookingID: b.ID, Actor: userActor("u-2")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.bookings.Get(ctx, "acme", b.ID, userActor("u-2"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.bookings.History(ctx, "acme", b.ID, userActor("u-2"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.bookings.Cancel(ctx, CancelRequest{TenantID: "acme", BookingID: b.ID, Actor: entity.Actor{Type: "robot", ID: "x"}})
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestChangeService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)
	next := env.mustBook(t, "u-2", tuesday, "10:30", env.shortService)

	_, err := env.bookings.ChangeService(ctx, ChangeServiceRequest{
		TenantID: "acme", BookingID: b.ID, ServiceID: env.longService, Actor: userActor("u-1"),
	})
	assert.ErrorIs(t, err, ErrSlotConflict)

	_, err = env.bookings.Cancel(ctx, CancelRequest{TenantID: "acme", BookingID: next.ID, Actor: userActor("u-2")})
	require.NoError(t, err)

	changed, err := env.bookings.ChangeService(ctx, ChangeServiceRequest{
		TenantID: "acme", BookingID: b.ID, ServiceID: env.longService, Actor: userActor("u-1"), Reason: "upgrade",
	})
	require.NoError(t, err)
	assert.Equal(t, env.longService, changed.ServiceID)
	assert.Equal(t, 60, changed.DurationMinutes)
	assert.Equal(t, 600, changed.StartMinute)

	history, err := env.bookings.History(ctx, "acme", b.ID, adminActor())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.ActionServiceChange, history[1].Action)
	assert.Equal(t, env.shortService, *history[1].OldServiceID)
	assert.Equal(t, env.longService, *history[1].NewServiceID)
	assert.Equal(t, 30, *history[1].OldDuration)
}

type failingHistory struct{}

func (failingHistory) Append(context.Context, entity.Namespace, *entity.HistoryEntry) error {
	return errors.New("disk full")
}

func (failingHistory) FindByBookingID(context.Context, entity.Namespace, int64) ([]*entity.HistoryEntry, error) {
	return nil, nil
}

func TestAuditFailureRollsBackBooking(t *testing.T) {
	env := newTestEnv(t)
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)

	env.bookings.Ledger = &DefaultHistoryService{HistoryRepo: failingHistory{}, Now: env.clock.Now}

	_, err := env.book("u-2", tuesday, "11:00", env.shortService)
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	_, err = env.bookings.Cancel(context.Background(), CancelRequest{TenantID: "acme", BookingID: b.ID, Actor: adminActor()})
	require.Error(t, err)

	active := env.activeOn(t, "acme", tuesday)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)
	assert.Len(t, env.events.Events(), 1)
}

func TestTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustBook(t, "u-1", tuesday, "10:00", env.longService)
	_, err := env.bookings.Create(ctx, CreateRequest{
		TenantID: "globex", UserID: "g-1", Date: tuesday, Time: "10:00",
		ServiceID: env.longService, IdempotencyToken: "g-token",
	})
	require.NoError(t, err, "the same slot is free in another tenant")

	acme := env.activeOn(t, "acme", tuesday)
	globex := env.activeOn(t, "globex", tuesday)
	require.Len(t, acme, 1)
	require.Len(t, globex, 1)
	assert.Equal(t, "u-1", acme[0].UserID)
	assert.Equal(t, "g-1", globex[0].UserID)
}

func TestSuspendedTenantIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)

	require.NoError(t, env.tenants.SetActive(ctx, "acme", false))

	_, err := env.book("u-1", tuesday, "11:00", env.shortService)
	assert.ErrorIs(t, err, ErrTenantSuspended)
	_, err = env.bookings.Cancel(ctx, CancelRequest{TenantID: "acme", BookingID: b.ID, Actor: adminActor()})
	assert.ErrorIs(t, err, ErrTenantSuspended)
	_, err = env.bookings.ListActive(ctx, "acme", tuesday, tuesday)
	assert.ErrorIs(t, err, ErrTenantSuspended)

	require.NoError(t, env.tenants.SetActive(ctx, "acme", true))
	env.mustBook(t, "u-1", tuesday, "11:00", env.shortService)
}

func TestUnknownTenant(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.bookings.Create(context.Background(), CreateRequest{
		TenantID: "nobody", UserID: "u-1", Date: tuesday, Time: "10:00",
		ServiceID: env.shortService, IdempotencyToken: "x",
	})
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestListForUserIncludesCancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)
	env.mustBook(t, "u-1", tuesday, "11:00", env.shortService)
	env.mustBook(t, "u-2", tuesday, "12:00", env.shortService)
	_, err := env.bookings.Cancel(ctx, CancelRequest{TenantID: "acme", BookingID: b.ID, Actor: adminActor()})
	require.NoError(t, err)

	mine, err := env.bookings.ListForUser(ctx, "acme", "u-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = env.bookings.ListActive(ctx, "acme", "2030-01-09", tuesday)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

// interleavedRepo applies a concurrent edit to a booking right before the
// transaction locks it.
type interleavedRepo struct {
	BookingRepository
	once      sync.Once
	meanwhile func(b *entity.Booking)
}

func (r *interleavedRepo) FindByIDForUpdate(ctx context.Context, ns entity.Namespace, id int64) (*entity.Booking, error) {
	var err error
	r.once.Do(func() {
		var b *entity.Booking
		if b, err = r.BookingRepository.FindByID(ctx, ns, id); err != nil {
			return
		}
		r.meanwhile(b)
		err = r.BookingRepository.UpdateSlot(ctx, ns, b)
	})
	if err != nil {
		return nil, err
	}
	return r.BookingRepository.FindByIDForUpdate(ctx, ns, id)
}

func TestRescheduleRechecksPolicyForLockedDuration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)

	env.bookings.BookingRepo = &interleavedRepo{
		BookingRepository: env.bookings.BookingRepo,
		meanwhile:         func(b *entity.Booking) { b.DurationMinutes = 60 },
	}

	// 17:30 fits 30 minutes but a 60 minute booking would run past closing.
	_, err := env.bookings.Reschedule(ctx, RescheduleRequest{
		TenantID: "acme", BookingID: b.ID, Date: tuesday, Time: "17:30", Actor: userActor("u-1"),
	})
	assert.ErrorIs(t, err, ErrPolicyViolation)

	got, err := env.bookings.Get(ctx, "acme", b.ID, adminActor())
	require.NoError(t, err)
	assert.Equal(t, 600, got.StartMinute)
}

func TestChangeServiceRechecksPolicyForLockedSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)

	env.bookings.BookingRepo = &interleavedRepo{
		BookingRepository: env.bookings.BookingRepo,
		meanwhile:         func(b *entity.Booking) { b.StartMinute = 17*60 + 30 },
	}

	_, err := env.bookings.ChangeService(ctx, ChangeServiceRequest{
		TenantID: "acme", BookingID: b.ID, ServiceID: env.longService, Actor: userActor("u-1"),
	})
	assert.ErrorIs(t, err, ErrPolicyViolation)

	got, err := env.bookings.Get(ctx, "acme", b.ID, adminActor())
	require.NoError(t, err)
	assert.Equal(t, env.shortService, got.ServiceID)
	assert.Equal(t, 30, got.DurationMinutes)
}

func TestPostgresConcurrentCreatesHaveExactlyOneWinner(t *testing.T) {
	checkExactlyOneWinner(t, newPostgresEnv(t))
}

func TestPostgresNoOverlapInvariant(t *testing.T) {
	checkNoOverlap(t, newPostgresEnv(t))
}

func TestPostgresRescheduleAndCancel(t *testing.T) {
	env := newPostgresEnv(t)
	ctx := context.Background()
	b := env.mustBook(t, "u-1", tuesday, "10:00", env.shortService)
	env.mustBook(t, "u-2", tuesday, "11:00", env.shortService)

	_, err := env.bookings.Reschedule(ctx, RescheduleRequest{
		TenantID: "acme", BookingID: b.ID, Date: tuesday, Time: "11:00", Actor: userActor("u-1"),
	})
	assert.ErrorIs(t, err, ErrSlotConflict)

	moved, err := env.bookings.Reschedule(ctx, RescheduleRequest{
		TenantID: "acme", BookingID: b.ID, Date: tuesday, Time: "12:00", Actor: userActor("u-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 720, moved.StartMinute)

	_, err = env.bookings.Cancel(ctx, CancelRequest{TenantID: "acme", BookingID: b.ID, Actor: userActor("u-1")})
	require.NoError(t, err)
	assert.Len(t, env.activeOn(t, "acme", tuesday), 1)
}
