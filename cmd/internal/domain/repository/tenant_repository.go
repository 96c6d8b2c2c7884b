package repository

import (
	"context"
	"errors"
	"slotbook/cmd/internal/domain/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultTenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *DefaultTenantRepository {
	return &DefaultTenantRepository{db: db}
}

func (t *DefaultTenantRepository) FindByID(ctx context.Context, id string) (*entity.Tenant, error) {
	var tenant entity.Tenant
	err := conn(ctx, t.db).First(&tenant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (t *DefaultTenantRepository) FindActive(ctx context.Context) ([]*entity.Tenant, error) {
	var tenants []*entity.Tenant
	err := conn(ctx, t.db).
		Where("active = ?", true).
		Order("id asc").
		Find(&tenants).Error
	return tenants, err
}

// Save inserts the tenant or overwrites an existing row with the same id.
func (t *DefaultTenantRepository) Save(ctx context.Context, tenant *entity.Tenant) error {
	return conn(ctx, t.db).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(tenant).Error
}

// SetActive flips the active flag and reports whether the tenant exists.
func (t *DefaultTenantRepository) SetActive(ctx context.Context, id string, active bool, updatedAt int64) (bool, error) {
	res := conn(ctx, t.db).
		Model(&entity.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{"active": active, "updated_at": updatedAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
