package repository

import (
	"context"
	"slotbook/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

// DefaultHistoryRepository is append-only: it has no update or delete path.
type DefaultHistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *DefaultHistoryRepository {
	return &DefaultHistoryRepository{db: db}
}

func (h *DefaultHistoryRepository) Append(ctx context.Context, ns entity.Namespace, entry *entity.HistoryEntry) error {
	return conn(ctx, h.db).Table(ns.Table(HistoryTable)).Create(entry).Error
}

func (h *DefaultHistoryRepository) FindByBookingID(ctx context.Context, ns entity.Namespace, bookingID int64) ([]*entity.HistoryEntry, error) {
	var entries []*entity.HistoryEntry
	err := conn(ctx, h.db).Table(ns.Table(HistoryTable)).
		Where("booking_id = ?", bookingID).
		Order("id asc").
		Find(&entries).Error
	return entries, err
}
