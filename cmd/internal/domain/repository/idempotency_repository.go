package repository

import (
	"context"
	"errors"
	"slotbook/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultIdempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) *DefaultIdempotencyRepository {
	return &DefaultIdempotencyRepository{db: db}
}

func (i *DefaultIdempotencyRepository) table(ctx context.Context, ns entity.Namespace) *gorm.DB {
	return conn(ctx, i.db).Table(ns.Table(IdempotencyTable))
}

func (i *DefaultIdempotencyRepository) Find(ctx context.Context, ns entity.Namespace, token string) (*entity.IdempotencyRecord, error) {
	var rec entity.IdempotencyRecord
	err := i.table(ctx, ns).Where("token = ?", token).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (i *DefaultIdempotencyRepository) Create(ctx context.Context, ns entity.Namespace, rec *entity.IdempotencyRecord) error {
	return i.table(ctx, ns).Create(rec).Error
}

func (i *DefaultIdempotencyRepository) Delete(ctx context.Context, ns entity.Namespace, token string) error {
	return i.table(ctx, ns).Where("token = ?", token).Delete(&entity.IdempotencyRecord{}).Error
}

// DeleteExpired removes records whose expiry is at or before now (epoch millis).
func (i *DefaultIdempotencyRepository) DeleteExpired(ctx context.Context, ns entity.Namespace, now int64) (int64, error) {
	res := i.table(ctx, ns).Where("expires_at <= ?", now).Delete(&entity.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}
