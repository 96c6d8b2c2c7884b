package service

import (
	"context"
	"fmt"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/logger"
	"slotbook/cmd/internal/utils"
	"time"

	"go.uber.org/zap"
)

type BlockRepository interface {
	BlockReader
	FindByID(ctx context.Context, ns entity.Namespace, id int64) (*entity.BlockedSlot, error)
	Create(ctx context.Context, ns entity.Namespace, slot *entity.BlockedSlot) error
	Delete(ctx context.Context, ns entity.Namespace, id int64) (bool, error)
}

type BlockRequest struct {
	TenantID string
	Date     string
	Start    string // HH:MM
	End      string // HH:MM, exclusive
	Reason   string
	Actor    entity.Actor
}

// DefaultBlockService manages manual closures. Blocks take the same date lock
// as bookings, so a block and a booking can never be committed over each other.
type DefaultBlockService struct {
	Tenants      TenantResolver
	Availability *DefaultAvailabilityService
	BlockRepo    BlockRepository
	Runner       *TxRunner
	Locker       SlotLocker
	Now          func() time.Time
}

func (s *DefaultBlockService) Block(ctx context.Context, req BlockRequest) (*entity.BlockedSlot, error) {
	ns, err := s.Tenants.Resolve(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := validActor(req.Actor); err != nil {
		return nil, err
	}
	if _, err := utils.ParseDate(req.Date); err != nil {
		return nil, policyViolation("invalid date %q", req.Date)
	}
	start, err := utils.ParseClock(req.Start)
	if err != nil {
		return nil, policyViolation("%v", err)
	}
	end := entity.MinutesPerDay
	if req.End != "24:00" {
		if end, err = utils.ParseClock(req.End); err != nil {
			return nil, policyViolation("%v", err)
		}
	}
	interval := entity.Interval{Start: start, End: end}
	if !interval.Valid() {
		return nil, policyViolation("block end must be after its start")
	}

	var slot *entity.BlockedSlot
	began := time.Now()
	err = s.Runner.Run(ctx, "block", ErrSlotConflict, func(ctx context.Context) error {
		slot = nil
		if err := s.Locker.Lock(ctx, ns.LockKey("date", req.Date)); err != nil {
			return err
		}

		free, err := s.Availability.IsAvailable(ctx, ns, req.Date, interval.Start, interval.Duration())
		if err != nil {
			return err
		}
		if !free {
			return slotTaken(req.Date, interval.Start, interval.Duration())
		}

		b := &entity.BlockedSlot{
			Date:        req.Date,
			StartMinute: interval.Start,
			EndMinute:   interval.End,
			Reason:      req.Reason,
			CreatedBy:   req.Actor.ID,
			CreatedAt:   s.Now().UnixMilli(),
		}
		if err := s.BlockRepo.Create(ctx, ns, b); err != nil {
			return err
		}
		slot = b
		return nil
	})
	observe("block", began, err)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("slot blocked",
		zap.String("tenant", ns.TenantID()), zap.String("date", slot.Date),
		zap.Int("start_minute", slot.StartMinute), zap.Int("end_minute", slot.EndMinute))
	return slot, nil
}

func (s *DefaultBlockService) Unblock(ctx context.Context, tenantID string, id int64) error {
	ns, err := s.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}

	began := time.Now()
	err = s.Runner.Run(ctx, "unblock", ErrTransactionTimeout, func(ctx context.Context) error {
		slot, err := s.BlockRepo.FindByID(ctx, ns, id)
		if err != nil {
			return err
		}
		if slot == nil {
			return fmt.Errorf("%w: blocked slot %d", ErrNotFound, id)
		}
		if err := s.Locker.Lock(ctx, ns.LockKey("date", slot.Date)); err != nil {
			return err
		}
		if _, err := s.BlockRepo.Delete(ctx, ns, id); err != nil {
			return err
		}
		return nil
	})
	observe("unblock", began, err)
	return err
}

func (s *DefaultBlockService) ListBlocks(ctx context.Context, tenantID, date string) ([]*entity.BlockedSlot, error) {
	ns, err := s.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if _, err := utils.ParseDate(date); err != nil {
		return nil, policyViolation("invalid date %q", date)
	}
	return s.BlockRepo.FindOnDate(ctx, ns, date)
}
