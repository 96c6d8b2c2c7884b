package service

import (
	"context"
	"fmt"
	"slotbook/cmd/internal/domain/entity"
)

type BookingReader interface {
	FindActiveOnDate(ctx context.Context, ns entity.Namespace, date string) ([]*entity.Booking, error)
}

type BlockReader interface {
	FindOnDate(ctx context.Context, ns entity.Namespace, date string) ([]*entity.BlockedSlot, error)
}

// DefaultAvailabilityService answers overlap questions for one date. Called
// with a transactional context it reads through that transaction, otherwise
// the answer is advisory.
type DefaultAvailabilityService struct {
	BookingRepo BookingReader
	BlockRepo   BlockReader
	Policy      *DefaultPolicyService
}

func NewAvailabilityService(bookingRepo BookingReader, blockRepo BlockReader, policy *DefaultPolicyService) *DefaultAvailabilityService {
	return &DefaultAvailabilityService{BookingRepo: bookingRepo, BlockRepo: blockRepo, Policy: policy}
}

func (a *DefaultAvailabilityService) IsAvailable(ctx context.Context, ns entity.Namespace, date string, start, duration int) (bool, error) {
	return a.IsAvailableExcluding(ctx, ns, date, start, duration, 0)
}

// IsAvailableExcluding ignores the booking with id exclude, so a booking can be
// moved onto an interval that overlaps its own current one.
func (a *DefaultAvailabilityService) IsAvailableExcluding(ctx context.Context, ns entity.Namespace, date string, start, duration int, exclude int64) (bool, error) {
	occupied, err := a.occupied(ctx, ns, date, exclude)
	if err != nil {
		return false, err
	}
	return isFree(occupied, entity.NewInterval(start, duration)), nil
}

// FreeSlots lists the start minutes on the day's grid where an interval of
// duration fits. Starts that already passed today are skipped.
func (a *DefaultAvailabilityService) FreeSlots(ctx context.Context, ns entity.Namespace, date string, duration int) ([]int, error) {
	sched, err := a.Policy.Schedule(ctx, ns, date)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, policyViolation("duration must be positive")
	}
	if !sched.Open || sched.InPast() || sched.BeyondHorizon() {
		return []int{}, nil
	}

	occupied, err := a.occupied(ctx, ns, date, 0)
	if err != nil {
		return nil, err
	}

	free := []int{}
	for start := sched.OpenMinute; start+duration <= sched.CloseMinute; start += sched.SlotMinutes {
		if sched.Bookable(start, duration) != nil {
			continue
		}
		if isFree(occupied, entity.NewInterval(start, duration)) {
			free = append(free, start)
		}
	}
	return free, nil
}

func (a *DefaultAvailabilityService) occupied(ctx context.Context, ns entity.Namespace, date string, exclude int64) ([]entity.Interval, error) {
	bookings, err := a.BookingRepo.FindActiveOnDate(ctx, ns, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings on %s: %w", date, err)
	}
	blocks, err := a.BlockRepo.FindOnDate(ctx, ns, date)
	if err != nil {
		return nil, fmt.Errorf("load blocked slots on %s: %w", date, err)
	}

	intervals := make([]entity.Interval, 0, len(bookings)+len(blocks))
	for _, b := range bookings {
		if b.ID == exclude {
			continue
		}
		intervals = append(intervals, b.Interval())
	}
	for _, b := range blocks {
		intervals = append(intervals, b.Interval())
	}
	return intervals, nil
}

func isFree(occupied []entity.Interval, want entity.Interval) bool {
	for _, o := range occupied {
		if want.Overlaps(o) {
			return false
		}
	}
	return true
}
