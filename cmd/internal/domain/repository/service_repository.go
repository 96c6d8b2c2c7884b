package repository

import (
	"context"
	"errors"
	"slotbook/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *DefaultServiceRepository {
	return &DefaultServiceRepository{db: db}
}

func (s *DefaultServiceRepository) FindByID(ctx context.Context, ns entity.Namespace, id int64) (*entity.ServiceDefinition, error) {
	var svc entity.ServiceDefinition
	err := conn(ctx, s.db).Table(ns.Table(ServicesTable)).Where("id = ?", id).Take(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *DefaultServiceRepository) Create(ctx context.Context, ns entity.Namespace, svc *entity.ServiceDefinition) error {
	return conn(ctx, s.db).Table(ns.Table(ServicesTable)).Create(svc).Error
}
