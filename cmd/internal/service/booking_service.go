package service

import (
	"context"
	"fmt"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/events"
	"slotbook/cmd/internal/logger"
	"slotbook/cmd/internal/metrics"
	"slotbook/cmd/internal/utils"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("slotbook/service")

type BookingRepository interface {
	BookingReader
	FindByID(ctx context.Context, ns entity.Namespace, id int64) (*entity.Booking, error)
	FindByIDForUpdate(ctx context.Context, ns entity.Namespace, id int64) (*entity.Booking, error)
	FindActiveInRange(ctx context.Context, ns entity.Namespace, from, to string) ([]*entity.Booking, error)
	FindByUserID(ctx context.Context, ns entity.Namespace, userID string) ([]*entity.Booking, error)
	CountUpcomingByUser(ctx context.Context, ns entity.Namespace, userID, today string, nowMinute int) (int64, error)
	Create(ctx context.Context, ns entity.Namespace, booking *entity.Booking) error
	UpdateSlot(ctx context.Context, ns entity.Namespace, booking *entity.Booking) error
	MarkCancelled(ctx context.Context, ns entity.Namespace, id int64, updatedAt int64) error
}

type IdempotencyRepository interface {
	Find(ctx context.Context, ns entity.Namespace, token string) (*entity.IdempotencyRecord, error)
	Create(ctx context.Context, ns entity.Namespace, rec *entity.IdempotencyRecord) error
	Delete(ctx context.Context, ns entity.Namespace, token string) error
}

type ServiceRepository interface {
	FindByID(ctx context.Context, ns entity.Namespace, id int64) (*entity.ServiceDefinition, error)
}

type SlotLocker interface {
	Lock(ctx context.Context, key string) error
}

type TenantResolver interface {
	Resolve(ctx context.Context, tenantID string) (entity.Namespace, error)
}

type CreateRequest struct {
	TenantID         string
	UserID           string
	Date             string
	Time             string // HH:MM
	DurationMinutes  int    // 0 takes the service's duration
	ServiceID        int64
	IdempotencyToken string
}

type RescheduleRequest struct {
	TenantID  string
	BookingID int64
	Date      string
	Time      string
	Actor     entity.Actor
	Reason    string
}

type CancelRequest struct {
	TenantID  string
	BookingID int64
	Actor     entity.Actor
	Reason    string
}

type ChangeServiceRequest struct {
	TenantID  string
	BookingID int64
	ServiceID int64
	Actor     entity.Actor
	Reason    string
}

// DefaultBookingService is the only writer of bookings. Every change runs as
// one transaction covering the limit count, the overlap check, the write and
// the audit entry.
type DefaultBookingService struct {
	Tenants         TenantResolver
	Policy          *DefaultPolicyService
	Availability    *DefaultAvailabilityService
	Ledger          *DefaultHistoryService
	BookingRepo     BookingRepository
	IdempotencyRepo IdempotencyRepository
	ServiceRepo     ServiceRepository
	Runner          *TxRunner
	Locker          SlotLocker
	Publisher       events.Publisher
	IdempotencyTTL  time.Duration
	Now             func() time.Time
}

func (s *DefaultBookingService) Create(ctx context.Context, req CreateRequest) (booking *entity.Booking, err error) {
	ctx, span := s.start(ctx, "create", req.TenantID)
	began := time.Now()
	defer func() { err = s.finish(span, "create", began, err) }()

	ns, err := s.Tenants.Resolve(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if req.UserID == "" {
		return nil, policyViolation("user id is required")
	}
	if req.IdempotencyToken == "" {
		return nil, policyViolation("idempotency token is required")
	}
	startMinute, err := utils.ParseClock(req.Time)
	if err != nil {
		return nil, policyViolation("%v", err)
	}

	// A retried request is answered before policy checks: the original slot
	// may have moved into the past since the first attempt.
	if replay, err := s.replay(ctx, ns, req); err != nil || replay != nil {
		return replay, err
	}

	svc, err := s.activeService(ctx, ns, req.ServiceID)
	if err != nil {
		return nil, err
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = svc.DurationMinutes
	}

	if err := s.Policy.Validate(ctx, ns, req.Date, startMinute, duration); err != nil {
		return nil, err
	}
	policy, err := s.Policy.Policy(ctx, ns)
	if err != nil {
		return nil, err
	}

	var replayed bool
	err = s.Runner.Run(ctx, "create", ErrSlotConflict, func(ctx context.Context) error {
		booking, replayed = nil, false

		if err := s.Locker.Lock(ctx, ns.LockKey("user", req.UserID)); err != nil {
			return err
		}
		if err := s.Locker.Lock(ctx, ns.LockKey("date", req.Date)); err != nil {
			return err
		}

		now := s.Now()
		rec, err := s.IdempotencyRepo.Find(ctx, ns, req.IdempotencyToken)
		if err != nil {
			return err
		}
		if rec != nil {
			if rec.ExpiresAt > now.UnixMilli() {
				booking, err = s.replayed(ctx, ns, rec, req.UserID)
				replayed = booking != nil
				return err
			}
			if err := s.IdempotencyRepo.Delete(ctx, ns, rec.Token); err != nil {
				return err
			}
		}

		if policy.MaxBookingsPerUser > 0 {
			today, nowMinute, err := s.Policy.Today(ctx, ns)
			if err != nil {
				return err
			}
			count, err := s.BookingRepo.CountUpcomingByUser(ctx, ns, req.UserID, today, nowMinute)
			if err != nil {
				return err
			}
			if count >= int64(policy.MaxBookingsPerUser) {
				return fmt.Errorf("%w: user %s already holds %d upcoming bookings", ErrLimitExceeded, req.UserID, count)
			}
		}

		free, err := s.Availability.IsAvailable(ctx, ns, req.Date, startMinute, duration)
		if err != nil {
			return err
		}
		if !free {
			return slotTaken(req.Date, startMinute, duration)
		}

		b := &entity.Booking{
			Date:             req.Date,
			StartMinute:      startMinute,
			DurationMinutes:  duration,
			UserID:           req.UserID,
			ServiceID:        svc.ID,
			IdempotencyToken: req.IdempotencyToken,
			Status:           entity.BookingActive,
			CreatedAt:        now.UnixMilli(),
			UpdatedAt:        now.UnixMilli(),
		}
		if err := s.BookingRepo.Create(ctx, ns, b); err != nil {
			return err
		}

		if err := s.IdempotencyRepo.Create(ctx, ns, &entity.IdempotencyRecord{
			Token:     req.IdempotencyToken,
			UserID:    req.UserID,
			BookingID: b.ID,
			ExpiresAt: now.Add(s.IdempotencyTTL).UnixMilli(),
			CreatedAt: now.UnixMilli(),
		}); err != nil {
			return err
		}

		actor := entity.Actor{Type: entity.ActorUser, ID: req.UserID}
		if err := s.Ledger.Record(ctx, ns, transition(entity.ActionCreate, actor, "", b.ID, nil, b)); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		s.publish(ctx, events.BookingCreated, ns, entity.Actor{Type: entity.ActorUser, ID: req.UserID}, booking)
	}
	return booking, nil
}

// replay returns the booking a live idempotency token already produced.
func (s *DefaultBookingService) replay(ctx context.Context, ns entity.Namespace, req CreateRequest) (*entity.Booking, error) {
	rec, err := s.IdempotencyRepo.Find(ctx, ns, req.IdempotencyToken)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.ExpiresAt <= s.Now().UnixMilli() {
		return nil, nil
	}
	return s.replayed(ctx, ns, rec, req.UserID)
}

func (s *DefaultBookingService) replayed(ctx context.Context, ns entity.Namespace, rec *entity.IdempotencyRecord, userID string) (*entity.Booking, error) {
	if rec.UserID != userID {
		return nil, policyViolation("idempotency token already used by another user")
	}
	b, err := s.BookingRepo.FindByID(ctx, ns, rec.BookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: booking %d behind idempotency token", ErrNotFound, rec.BookingID)
	}
	logger.FromContext(ctx).Info("idempotent replay",
		zap.String("tenant", ns.TenantID()), zap.Int64("booking_id", b.ID))
	return b, nil
}

func (s *DefaultBookingService) Reschedule(ctx context.Context, req RescheduleRequest) (booking *entity.Booking, err error) {
	ctx, span := s.start(ctx, "reschedule", req.TenantID)
	began := time.Now()
	defer func() { err = s.finish(span, "reschedule", began, err) }()

	ns, err := s.Tenants.Resolve(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := validActor(req.Actor); err != nil {
		return nil, err
	}
	startMinute, err := utils.ParseClock(req.Time)
	if err != nil {
		return nil, policyViolation("%v", err)
	}

	current, err := s.ownedActive(ctx, ns, req.BookingID, req.Actor, false)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Validate(ctx, ns, req.Date, startMinute, current.DurationMinutes); err != nil {
		return nil, err
	}

	err = s.Runner.Run(ctx, "reschedule", ErrSlotConflict, func(ctx context.Context) error {
		booking = nil

		b, err := s.ownedActive(ctx, ns, req.BookingID, req.Actor, true)
		if err != nil {
			return err
		}
		// The duration may have changed since the pre-check.
		if b.DurationMinutes != current.DurationMinutes {
			if err := s.Policy.Validate(ctx, ns, req.Date, startMinute, b.DurationMinutes); err != nil {
				return err
			}
		}
		if err := s.Locker.Lock(ctx, ns.LockKey("date", req.Date)); err != nil {
			return err
		}

		free, err := s.Availability.IsAvailableExcluding(ctx, ns, req.Date, startMinute, b.DurationMinutes, b.ID)
		if err != nil {
			return err
		}
		if !free {
			return slotTaken(req.Date, startMinute, b.DurationMinutes)
		}

		before := *b
		b.Date = req.Date
		b.StartMinute = startMinute
		b.UpdatedAt = s.Now().UnixMilli()
		if err := s.BookingRepo.UpdateSlot(ctx, ns, b); err != nil {
			return err
		}
		if err := s.Ledger.Record(ctx, ns, transition(entity.ActionReschedule, req.Actor, req.Reason, b.ID, &before, b)); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingRescheduled, ns, req.Actor, booking)
	return booking, nil
}

func (s *DefaultBookingService) Cancel(ctx context.Context, req CancelRequest) (booking *entity.Booking, err error) {
	ctx, span := s.start(ctx, "cancel", req.TenantID)
	began := time.Now()
	defer func() { err = s.finish(span, "cancel", began, err) }()

	ns, err := s.Tenants.Resolve(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := validActor(req.Actor); err != nil {
		return nil, err
	}

	err = s.Runner.Run(ctx, "cancel", ErrTransactionTimeout, func(ctx context.Context) error {
		booking = nil

		b, err := s.ownedActive(ctx, ns, req.BookingID, req.Actor, true)
		if err != nil {
			return err
		}

		before := *b
		b.Status = entity.BookingCancelled
		b.UpdatedAt = s.Now().UnixMilli()
		if err := s.BookingRepo.MarkCancelled(ctx, ns, b.ID, b.UpdatedAt); err != nil {
			return err
		}
		if err := s.Ledger.Record(ctx, ns, transition(entity.ActionCancel, req.Actor, req.Reason, b.ID, &before, nil)); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingCancelled, ns, req.Actor, booking)
	return booking, nil
}

// ChangeService moves a booking to another service, keeping its start and
// taking the new service's duration.
func (s *DefaultBookingService) ChangeService(ctx context.Context, req ChangeServiceRequest) (booking *entity.Booking, err error) {
	ctx, span := s.start(ctx, "change_service", req.TenantID)
	began := time.Now()
	defer func() { err = s.finish(span, "change_service", began, err) }()

	ns, err := s.Tenants.Resolve(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := validActor(req.Actor); err != nil {
		return nil, err
	}

	current, err := s.ownedActive(ctx, ns, req.BookingID, req.Actor, false)
	if err != nil {
		return nil, err
	}
	svc, err := s.activeService(ctx, ns, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Validate(ctx, ns, current.Date, current.StartMinute, svc.DurationMinutes); err != nil {
		return nil, err
	}

	err = s.Runner.Run(ctx, "change_service", ErrSlotConflict, func(ctx context.Context) error {
		booking = nil

		b, err := s.ownedActive(ctx, ns, req.BookingID, req.Actor, true)
		if err != nil {
			return err
		}
		if b.Date != current.Date || b.StartMinute != current.StartMinute {
			if err := s.Policy.Validate(ctx, ns, b.Date, b.StartMinute, svc.DurationMinutes); err != nil {
				return err
			}
		}
		if err := s.Locker.Lock(ctx, ns.LockKey("date", b.Date)); err != nil {
			return err
		}

		free, err := s.Availability.IsAvailableExcluding(ctx, ns, b.Date, b.StartMinute, svc.DurationMinutes, b.ID)
		if err != nil {
			return err
		}
		if !free {
			return slotTaken(b.Date, b.StartMinute, svc.DurationMinutes)
		}

		before := *b
		b.ServiceID = svc.ID
		b.DurationMinutes = svc.DurationMinutes
		b.UpdatedAt = s.Now().UnixMilli()
		if err := s.BookingRepo.UpdateSlot(ctx, ns, b); err != nil {
			return err
		}
		if err := s.Ledger.Record(ctx, ns, transition(entity.ActionServiceChange, req.Actor, req.Reason, b.ID, &before, b)); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingServiceChanged, ns, req.Actor, booking)
	return booking, nil
}

// Get returns a booking in any status. Users only see their own bookings.
func (s *DefaultBookingService) Get(ctx context.Context, tenantID string, bookingID int64, actor entity.Actor) (*entity.Booking, error) {
	ns, err := s.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.owned(ctx, ns, bookingID, actor)
}

func (s *DefaultBookingService) ListActive(ctx context.Context, tenantID, from, to string) ([]*entity.Booking, error) {
	ns, err := s.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidRange(from, to); err != nil {
		return nil, policyViolation("invalid range: %v", err)
	}
	return s.BookingRepo.FindActiveInRange(ctx, ns, from, to)
}

func (s *DefaultBookingService) ListForUser(ctx context.Context, tenantID, userID string) ([]*entity.Booking, error) {
	ns, err := s.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.BookingRepo.FindByUserID(ctx, ns, userID)
}

// History lists the audit trail of a booking, oldest first.
func (s *DefaultBookingService) History(ctx context.Context, tenantID string, bookingID int64, actor entity.Actor) ([]*entity.HistoryEntry, error) {
	ns, err := s.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, ns, bookingID, actor); err != nil {
		return nil, err
	}
	return s.Ledger.List(ctx, ns, bookingID)
}

func (s *DefaultBookingService) FreeSlots(ctx context.Context, tenantID, date string, duration int) ([]int, error) {
	ns, err := s.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.Availability.FreeSlots(ctx, ns, date, duration)
}

func (s *DefaultBookingService) owned(ctx context.Context, ns entity.Namespace, id int64, actor entity.Actor) (*entity.Booking, error) {
	b, err := s.BookingRepo.FindByID(ctx, ns, id)
	if err != nil {
		return nil, err
	}
	if b == nil || (actor.Type == entity.ActorUser && b.UserID != actor.ID) {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	return b, nil
}

// ownedActive loads an active booking the actor may change. A booking owned
// by someone else is reported as missing.
func (s *DefaultBookingService) ownedActive(ctx context.Context, ns entity.Namespace, id int64, actor entity.Actor, forUpdate bool) (*entity.Booking, error) {
	find := s.BookingRepo.FindByID
	if forUpdate {
		find = s.BookingRepo.FindByIDForUpdate
	}
	b, err := find(ctx, ns, id)
	if err != nil {
		return nil, err
	}
	if b == nil || !b.IsActive() || (actor.Type == entity.ActorUser && b.UserID != actor.ID) {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	return b, nil
}

func (s *DefaultBookingService) activeService(ctx context.Context, ns entity.Namespace, id int64) (*entity.ServiceDefinition, error) {
	svc, err := s.ServiceRepo.FindByID(ctx, ns, id)
	if err != nil {
		return nil, err
	}
	if svc == nil || !svc.Active {
		return nil, policyViolation("service %d does not exist or is inactive", id)
	}
	return svc, nil
}

func validActor(actor entity.Actor) error {
	switch actor.Type {
	case entity.ActorUser, entity.ActorAdmin, entity.ActorSystem:
	default:
		return policyViolation("unknown actor type %q", actor.Type)
	}
	if actor.ID == "" {
		return policyViolation("actor id is required")
	}
	return nil
}

func slotTaken(date string, start, duration int) error {
	return fmt.Errorf("%w: %s %s-%s overlaps an existing reservation", ErrSlotConflict,
		date, utils.FormatClock(start), utils.FormatClock(start+duration))
}

func (s *DefaultBookingService) publish(ctx context.Context, t events.Type, ns entity.Namespace, actor entity.Actor, b *entity.Booking) {
	if s.Publisher == nil {
		return
	}
	event := events.NewBookingEvent(t, ns.TenantID(), actor, b, s.Now().UnixMilli())
	if err := s.Publisher.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Error("publish booking event",
			zap.String("type", string(t)), zap.Int64("booking_id", b.ID), zap.Error(err))
	}
}

func (s *DefaultBookingService) start(ctx context.Context, op, tenantID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "booking."+op, trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
	))
}

// finish closes the operation span and returns err, with a caller deadline
// hit outside the transaction reported as a transaction timeout.
func (s *DefaultBookingService) finish(span trace.Span, op string, began time.Time, err error) error {
	err = asTimeout(err)
	if err != nil {
		span.RecordError(err)
		if !isEngineError(err) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.SetAttributes(attribute.String("booking.outcome", outcome(err)))
	span.End()
	observe(op, began, err)
	return err
}

func observe(op string, began time.Time, err error) {
	metrics.ObserveOperation(op, outcome(err), time.Since(began))
}
