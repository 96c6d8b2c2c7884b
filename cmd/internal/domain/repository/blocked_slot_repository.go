package repository

import (
	"context"
	"errors"
	"slotbook/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultBlockedSlotRepository struct {
	db *gorm.DB
}

func NewBlockedSlotRepository(db *gorm.DB) *DefaultBlockedSlotRepository {
	return &DefaultBlockedSlotRepository{db: db}
}

func (r *DefaultBlockedSlotRepository) table(ctx context.Context, ns entity.Namespace) *gorm.DB {
	return conn(ctx, r.db).Table(ns.Table(BlockedSlotsTable))
}

func (r *DefaultBlockedSlotRepository) FindOnDate(ctx context.Context, ns entity.Namespace, date string) ([]*entity.BlockedSlot, error) {
	var slots []*entity.BlockedSlot
	err := r.table(ctx, ns).
		Where("date = ?", date).
		Order("start_minute asc").
		Find(&slots).Error
	return slots, err
}

func (r *DefaultBlockedSlotRepository) FindByID(ctx context.Context, ns entity.Namespace, id int64) (*entity.BlockedSlot, error) {
	var slot entity.BlockedSlot
	err := r.table(ctx, ns).Where("id = ?", id).Take(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *DefaultBlockedSlotRepository) Create(ctx context.Context, ns entity.Namespace, slot *entity.BlockedSlot) error {
	return r.table(ctx, ns).Create(slot).Error
}

// Delete removes the block and reports whether it existed.
func (r *DefaultBlockedSlotRepository) Delete(ctx context.Context, ns entity.Namespace, id int64) (bool, error) {
	res := r.table(ctx, ns).Where("id = ?", id).Delete(&entity.BlockedSlot{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
