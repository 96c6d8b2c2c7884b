package service

import (
	"context"
	"fmt"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/utils"
	"time"
)

type PolicyRepository interface {
	FindPolicy(ctx context.Context, ns entity.Namespace) (*entity.BookingPolicy, error)
	SavePolicy(ctx context.Context, ns entity.Namespace, policy *entity.BookingPolicy) error
	FindWorkingHours(ctx context.Context, ns entity.Namespace, weekday int) (*entity.WorkingHours, error)
	ListWorkingHours(ctx context.Context, ns entity.Namespace) ([]*entity.WorkingHours, error)
	SaveWorkingHours(ctx context.Context, ns entity.Namespace, wh *entity.WorkingHours) error
	FindException(ctx context.Context, ns entity.Namespace, date string) (*entity.CalendarException, error)
	ListExceptions(ctx context.Context, ns entity.Namespace, from, to string) ([]*entity.CalendarException, error)
	SaveException(ctx context.Context, ns entity.Namespace, exc *entity.CalendarException) error
	DeleteException(ctx context.Context, ns entity.Namespace, date string) (bool, error)
}

// DaySchedule is the policy view of one calendar date.
type DaySchedule struct {
	Date        string
	Open        bool
	OpenMinute  int
	CloseMinute int
	SlotMinutes int
	// Today and NowMinute are "now" in the tenant's timezone.
	Today     string
	NowMinute int
	LastDate  string // last bookable date of the lookahead horizon
	Policy    *entity.BookingPolicy
}

func (d *DaySchedule) InPast() bool {
	return d.Date < d.Today
}

func (d *DaySchedule) BeyondHorizon() bool {
	return d.Date > d.LastDate
}

// Bookable reports whether [start, start+duration) may be booked on this date.
// The returned error wraps ErrPolicyViolation with the reason.
func (d *DaySchedule) Bookable(start, duration int) error {
	switch {
	case duration <= 0:
		return policyViolation("duration must be positive")
	case d.Policy.MaxDurationMinutes > 0 && duration > d.Policy.MaxDurationMinutes:
		return policyViolation("duration %d exceeds the maximum of %d minutes", duration, d.Policy.MaxDurationMinutes)
	case d.InPast():
		return policyViolation("date %s is in the past", d.Date)
	case d.Date == d.Today && start < d.NowMinute:
		return policyViolation("start %s has already passed", utils.FormatClock(start))
	case d.BeyondHorizon():
		return policyViolation("date %s is beyond the booking horizon of %d days", d.Date, d.Policy.LookaheadDays)
	case !d.Open:
		return policyViolation("closed on %s", d.Date)
	case start < d.OpenMinute || start+duration > d.CloseMinute:
		return policyViolation("%s-%s is outside working hours %s-%s",
			utils.FormatClock(start), utils.FormatClock(start+duration),
			utils.FormatClock(d.OpenMinute), utils.FormatClock(d.CloseMinute))
	case (start-d.OpenMinute)%d.SlotMinutes != 0:
		return policyViolation("start %s is not on the %d minute grid", utils.FormatClock(start), d.SlotMinutes)
	}
	return nil
}

// DefaultPolicyService is the calendar policy store: working hours, exception
// dates, slot granularity, horizon and booking limits of a namespace.
type DefaultPolicyService struct {
	PolicyRepo PolicyRepository
	Now        func() time.Time
}

func NewPolicyService(policyRepo PolicyRepository) *DefaultPolicyService {
	return &DefaultPolicyService{PolicyRepo: policyRepo, Now: time.Now}
}

// Policy returns the namespace's booking rules, falling back to defaults when
// none were stored.
func (p *DefaultPolicyService) Policy(ctx context.Context, ns entity.Namespace) (*entity.BookingPolicy, error) {
	policy, err := p.PolicyRepo.FindPolicy(ctx, ns)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	if policy == nil {
		return entity.DefaultBookingPolicy(), nil
	}
	return policy, nil
}

// Schedule evaluates exceptions, weekday rules and the horizon for date.
func (p *DefaultPolicyService) Schedule(ctx context.Context, ns entity.Namespace, date string) (*DaySchedule, error) {
	day, err := utils.ParseDate(date)
	if err != nil {
		return nil, policyViolation("invalid date %q", date)
	}

	policy, err := p.Policy(ctx, ns)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(policy.Timezone)
	if err != nil {
		loc = time.UTC
	}
	today, nowMinute := utils.DateAndMinute(p.Now(), loc)
	lastDate, err := utils.AddDays(today, policy.LookaheadDays)
	if err != nil {
		return nil, err
	}

	sched := &DaySchedule{
		Date:      date,
		Today:     today,
		NowMinute: nowMinute,
		LastDate:  lastDate,
		Policy:    policy,
	}

	wh, err := p.PolicyRepo.FindWorkingHours(ctx, ns, int(day.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("load working hours: %w", err)
	}
	exc, err := p.PolicyRepo.FindException(ctx, ns, date)
	if err != nil {
		return nil, fmt.Errorf("load calendar exception: %w", err)
	}

	sched.Open, sched.OpenMinute, sched.CloseMinute, sched.SlotMinutes = dayWindow(policy, wh, exc)
	if sched.SlotMinutes <= 0 {
		sched.SlotMinutes = 1
	}
	return sched, nil
}

// dayWindow applies, in order: the exception for the date, the weekday row,
// and the policy defaults.
func dayWindow(policy *entity.BookingPolicy, wh *entity.WorkingHours, exc *entity.CalendarException) (bool, int, int, int) {
	open, close, slot := policy.DefaultOpenMinute, policy.DefaultCloseMinute, policy.DefaultSlotMinutes
	weekdayOpen := true

	if wh != nil {
		weekdayOpen = !wh.Closed
		if weekdayOpen {
			open, close = wh.OpenMinute, wh.CloseMinute
		}
		if wh.SlotMinutes > 0 {
			slot = wh.SlotMinutes
		}
	}

	if exc != nil {
		if !exc.IsWorking {
			return false, open, close, slot
		}
		if exc.OpenMinute != nil && exc.CloseMinute != nil {
			open, close = *exc.OpenMinute, *exc.CloseMinute
		}
		return open < close, open, close, slot
	}

	return weekdayOpen && open < close, open, close, slot
}

// Validate rejects requests the policy forbids before any lock is taken.
func (p *DefaultPolicyService) Validate(ctx context.Context, ns entity.Namespace, date string, start, duration int) error {
	sched, err := p.Schedule(ctx, ns, date)
	if err != nil {
		return err
	}
	return sched.Bookable(start, duration)
}

// Today returns the current date and minute of day in the tenant's timezone.
func (p *DefaultPolicyService) Today(ctx context.Context, ns entity.Namespace) (string, int, error) {
	policy, err := p.Policy(ctx, ns)
	if err != nil {
		return "", 0, err
	}
	loc, err := time.LoadLocation(policy.Timezone)
	if err != nil {
		loc = time.UTC
	}
	date, minute := utils.DateAndMinute(p.Now(), loc)
	return date, minute, nil
}

func (p *DefaultPolicyService) SavePolicy(ctx context.Context, ns entity.Namespace, policy *entity.BookingPolicy) error {
	if _, err := time.LoadLocation(policy.Timezone); err != nil {
		return policyViolation("unknown timezone %q", policy.Timezone)
	}
	if policy.LookaheadDays < 0 || policy.MaxBookingsPerUser < 0 || policy.MaxDurationMinutes < 0 {
		return policyViolation("policy limits must not be negative")
	}
	if !(entity.Interval{Start: policy.DefaultOpenMinute, End: policy.DefaultCloseMinute}).Valid() {
		return policyViolation("invalid default opening hours")
	}
	if policy.DefaultSlotMinutes <= 0 {
		return policyViolation("default slot granularity must be positive")
	}
	policy.UpdatedAt = p.Now().UnixMilli()
	return p.PolicyRepo.SavePolicy(ctx, ns, policy)
}

func (p *DefaultPolicyService) SetWorkingHours(ctx context.Context, ns entity.Namespace, wh *entity.WorkingHours) error {
	if wh.Weekday < 0 || wh.Weekday > 6 {
		return policyViolation("weekday must be between 0 and 6")
	}
	if !wh.Closed {
		if !(entity.Interval{Start: wh.OpenMinute, End: wh.CloseMinute}).Valid() {
			return policyViolation("invalid working hours")
		}
		if wh.SlotMinutes <= 0 {
			return policyViolation("slot granularity must be positive")
		}
	}
	return p.PolicyRepo.SaveWorkingHours(ctx, ns, wh)
}

func (p *DefaultPolicyService) ListWorkingHours(ctx context.Context, ns entity.Namespace) ([]*entity.WorkingHours, error) {
	return p.PolicyRepo.ListWorkingHours(ctx, ns)
}

func (p *DefaultPolicyService) SetException(ctx context.Context, ns entity.Namespace, exc *entity.CalendarException) error {
	if _, err := utils.ParseDate(exc.Date); err != nil {
		return policyViolation("invalid date %q", exc.Date)
	}
	if (exc.OpenMinute == nil) != (exc.CloseMinute == nil) {
		return policyViolation("exception hours need both open and close")
	}
	if exc.OpenMinute != nil && !(entity.Interval{Start: *exc.OpenMinute, End: *exc.CloseMinute}).Valid() {
		return policyViolation("invalid exception hours")
	}
	exc.UpdatedAt = p.Now().UnixMilli()
	return p.PolicyRepo.SaveException(ctx, ns, exc)
}

func (p *DefaultPolicyService) RemoveException(ctx context.Context, ns entity.Namespace, date string) error {
	found, err := p.PolicyRepo.DeleteException(ctx, ns, date)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no exception on %s", ErrNotFound, date)
	}
	return nil
}

func (p *DefaultPolicyService) ListExceptions(ctx context.Context, ns entity.Namespace, from, to string) ([]*entity.CalendarException, error) {
	if err := utils.ValidRange(from, to); err != nil {
		return nil, policyViolation("invalid range: %v", err)
	}
	return p.PolicyRepo.ListExceptions(ctx, ns, from, to)
}

// SeedDefaults stores the default policy and a Monday-Friday 09:00-18:00,
// Saturday 10:00-14:00 week for a fresh namespace.
func (p *DefaultPolicyService) SeedDefaults(ctx context.Context, ns entity.Namespace) error {
	if err := p.SavePolicy(ctx, ns, entity.DefaultBookingPolicy()); err != nil {
		return err
	}
	for weekday := 0; weekday <= 6; weekday++ {
		wh := &entity.WorkingHours{Weekday: weekday, OpenMinute: 9 * 60, CloseMinute: 18 * 60, SlotMinutes: 30}
		switch time.Weekday(weekday) {
		case time.Sunday:
			wh.Closed = true
		case time.Saturday:
			wh.OpenMinute, wh.CloseMinute = 10*60, 14*60
		}
		if err := p.SetWorkingHours(ctx, ns, wh); err != nil {
			return err
		}
	}
	return nil
}
