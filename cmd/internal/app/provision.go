package app

import (
	"context"
	"fmt"
	"slotbook/cmd/internal/config"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/domain/postgres"
	"slotbook/cmd/internal/domain/repository"
	"slotbook/cmd/internal/domain/sqlite"
	"slotbook/cmd/internal/service"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// OpenDB connects to the store selected by DB_DRIVER.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == "postgres" {
		return postgres.Init(postgres.Options{
			DSN:             cfg.PGDSN,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			LogLevel:        cfg.GormLogLevel(),
		})
	}
	return sqlite.Init(cfg.SQLitePath, cfg.GormLogLevel())
}

type TenantSpec struct {
	ID        string
	Name      string
	Namespace string
	Mode      entity.IsolationMode
	Seed      bool
	Services  []entity.ServiceDefinition
}

// ParseServices reads "Haircut:30,Coloring:90" into service definitions.
func ParseServices(s string) ([]entity.ServiceDefinition, error) {
	var services []entity.ServiceDefinition
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, minutes, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("service %q: expected name:minutes", part)
		}
		d, err := strconv.Atoi(minutes)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("service %q: invalid duration", part)
		}
		services = append(services, entity.ServiceDefinition{Name: strings.TrimSpace(name), DurationMinutes: d, Active: true})
	}
	return services, nil
}

// Provision registers a tenant, creates its namespace tables and optionally
// seeds the default calendar and services. Running it twice is harmless apart
// from duplicating services.
func Provision(ctx context.Context, db *gorm.DB, spec TenantSpec) error {
	if !entity.ValidNamespaceName(spec.Namespace) {
		return fmt.Errorf("invalid namespace %q", spec.Namespace)
	}
	if spec.Mode == entity.IsolationSchema && db.Dialector.Name() != "postgres" {
		return fmt.Errorf("schema isolation needs postgres, got %s", db.Dialector.Name())
	}

	now := time.Now().UnixMilli()
	tenant := &entity.Tenant{
		ID:            spec.ID,
		Name:          spec.Name,
		Namespace:     spec.Namespace,
		IsolationMode: spec.Mode,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repository.NewTenantRepository(db).Save(ctx, tenant); err != nil {
		return fmt.Errorf("save tenant: %w", err)
	}

	ns := entity.NewNamespace(spec.ID, spec.Namespace, spec.Mode)
	if err := repository.MigrateNamespace(ctx, db, ns); err != nil {
		return err
	}

	if spec.Seed {
		if err := service.NewPolicyService(repository.NewPolicyRepository(db)).SeedDefaults(ctx, ns); err != nil {
			return fmt.Errorf("seed calendar: %w", err)
		}
	}

	services := repository.NewServiceRepository(db)
	for i := range spec.Services {
		svc := spec.Services[i]
		svc.CreatedAt = now
		if err := services.Create(ctx, ns, &svc); err != nil {
			return fmt.Errorf("create service %s: %w", svc.Name, err)
		}
	}
	return nil
}
