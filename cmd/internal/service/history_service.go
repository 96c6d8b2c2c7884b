package service

import (
	"context"
	"fmt"
	"slotbook/cmd/internal/domain/entity"
	"time"
)

type HistoryRepository interface {
	Append(ctx context.Context, ns entity.Namespace, entry *entity.HistoryEntry) error
	FindByBookingID(ctx context.Context, ns entity.Namespace, bookingID int64) ([]*entity.HistoryEntry, error)
}

// DefaultHistoryService is the append-only audit ledger. Record writes through
// the caller's transaction, so its failure rolls the booking change back.
type DefaultHistoryService struct {
	HistoryRepo HistoryRepository
	Now         func() time.Time
}

func NewHistoryService(historyRepo HistoryRepository) *DefaultHistoryService {
	return &DefaultHistoryService{HistoryRepo: historyRepo, Now: time.Now}
}

func (h *DefaultHistoryService) Record(ctx context.Context, ns entity.Namespace, entry *entity.HistoryEntry) error {
	if entry.ID != 0 {
		return fmt.Errorf("history entry %d already recorded", entry.ID)
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = h.Now().UnixMilli()
	}
	if err := h.HistoryRepo.Append(ctx, ns, entry); err != nil {
		return fmt.Errorf("append history for booking %d: %w", entry.BookingID, err)
	}
	return nil
}

func (h *DefaultHistoryService) List(ctx context.Context, ns entity.Namespace, bookingID int64) ([]*entity.HistoryEntry, error) {
	return h.HistoryRepo.FindByBookingID(ctx, ns, bookingID)
}

// transition builds the ledger entry for a booking change. before is nil on
// create, after is nil on cancel.
func transition(action entity.HistoryAction, actor entity.Actor, reason string, bookingID int64, before, after *entity.Booking) *entity.HistoryEntry {
	entry := &entity.HistoryEntry{
		BookingID: bookingID,
		ActorType: actor.Type,
		ActorID:   actor.ID,
		Action:    action,
		Reason:    reason,
	}
	if before != nil {
		entry.OldDate = &before.Date
		entry.OldStartMinute = &before.StartMinute
		entry.OldDuration = &before.DurationMinutes
		entry.OldServiceID = &before.ServiceID
	}
	if after != nil {
		entry.NewDate = &after.Date
		entry.NewStartMinute = &after.StartMinute
		entry.NewDuration = &after.DurationMinutes
		entry.NewServiceID = &after.ServiceID
	}
	return entry
}
