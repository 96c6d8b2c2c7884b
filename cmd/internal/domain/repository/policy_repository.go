package repository

import (
	"context"
	"errors"
	"slotbook/cmd/internal/domain/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultPolicyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) *DefaultPolicyRepository {
	return &DefaultPolicyRepository{db: db}
}

func (p *DefaultPolicyRepository) FindPolicy(ctx context.Context, ns entity.Namespace) (*entity.BookingPolicy, error) {
	var policy entity.BookingPolicy
	err := conn(ctx, p.db).Table(ns.Table(PoliciesTable)).
		Where("id = ?", entity.PolicyRowID).
		Take(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (p *DefaultPolicyRepository) SavePolicy(ctx context.Context, ns entity.Namespace, policy *entity.BookingPolicy) error {
	policy.ID = entity.PolicyRowID
	return conn(ctx, p.db).Table(ns.Table(PoliciesTable)).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(policy).Error
}

func (p *DefaultPolicyRepository) FindWorkingHours(ctx context.Context, ns entity.Namespace, weekday int) (*entity.WorkingHours, error) {
	var wh entity.WorkingHours
	err := conn(ctx, p.db).Table(ns.Table(WorkingHoursTable)).
		Where("weekday = ?", weekday).
		Take(&wh).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

func (p *DefaultPolicyRepository) ListWorkingHours(ctx context.Context, ns entity.Namespace) ([]*entity.WorkingHours, error) {
	var hours []*entity.WorkingHours
	err := conn(ctx, p.db).Table(ns.Table(WorkingHoursTable)).
		Order("weekday asc").
		Find(&hours).Error
	return hours, err
}

func (p *DefaultPolicyRepository) SaveWorkingHours(ctx context.Context, ns entity.Namespace, wh *entity.WorkingHours) error {
	return conn(ctx, p.db).Table(ns.Table(WorkingHoursTable)).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(wh).Error
}

func (p *DefaultPolicyRepository) FindException(ctx context.Context, ns entity.Namespace, date string) (*entity.CalendarException, error) {
	var exc entity.CalendarException
	err := conn(ctx, p.db).Table(ns.Table(ExceptionsTable)).
		Where("date = ?", date).
		Take(&exc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exc, nil
}

func (p *DefaultPolicyRepository) ListExceptions(ctx context.Context, ns entity.Namespace, from, to string) ([]*entity.CalendarException, error) {
	var exceptions []*entity.CalendarException
	err := conn(ctx, p.db).Table(ns.Table(ExceptionsTable)).
		Where("date >= ? AND date <= ?", from, to).
		Order("date asc").
		Find(&exceptions).Error
	return exceptions, err
}

func (p *DefaultPolicyRepository) SaveException(ctx context.Context, ns entity.Namespace, exc *entity.CalendarException) error {
	return conn(ctx, p.db).Table(ns.Table(ExceptionsTable)).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(exc).Error
}

func (p *DefaultPolicyRepository) DeleteException(ctx context.Context, ns entity.Namespace, date string) (bool, error) {
	res := conn(ctx, p.db).Table(ns.Table(ExceptionsTable)).
		Where("date = ?", date).
		Delete(&entity.CalendarException{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
