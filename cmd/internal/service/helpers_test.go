package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/domain/postgres"
	"slotbook/cmd/internal/domain/repository"
	"slotbook/cmd/internal/domain/sqlite"
	"slotbook/cmd/internal/events"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Monday 2030-01-07 08:00 UTC. Most tests book on the Tuesday after.
var testNow = time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC)

const (
	tuesday = "2030-01-08"
	sunday  = "2030-01-13"
)

var tokenSeq atomic.Int64

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type testEnv struct {
	db         *gorm.DB
	clock      *clock
	tenantRepo *repository.DefaultTenantRepository
	tenants    *DefaultTenantResolver
	policy     *DefaultPolicyService
	bookings   *DefaultBookingService
	blocks     *DefaultBlockService
	calendar   *DefaultCalendarService
	events     *events.Recorder
	namespaces []entity.Namespace

	// 30 and 60 minute services, identical ids in both tenants.
	shortService int64
	longService  int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Init(filepath.Join(t.TempDir(), "slotbook.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return newEnvOn(t, db, "")
}

// newPostgresEnv runs against the database in SLOTBOOK_TEST_PG_DSN and skips
// the test when it is unset. Namespaces get a unique suffix and are dropped
// afterwards, so the database can be shared between runs.
func newPostgresEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("SLOTBOOK_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("SLOTBOOK_TEST_PG_DSN not set")
	}
	db, err := postgres.Init(postgres.Options{
		DSN:             dsn,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
		LogLevel:        logger.Silent,
	})
	require.NoError(t, err)

	suffix := fmt.Sprintf("_t%d", time.Now().UnixNano()%1_000_000_000)
	env := newEnvOn(t, db, suffix)
	t.Cleanup(func() {
		for _, ns := range env.namespaces {
			for _, table := range repository.NamespaceTables() {
				_ = db.Migrator().DropTable(ns.Table(table))
			}
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return env
}

func newEnvOn(t *testing.T, db *gorm.DB, suffix string) *testEnv {
	t.Helper()

	c := &clock{now: testNow}
	locker := repository.NewSlotLocker(db)
	tenantRepo := repository.NewTenantRepository(db)
	bookingRepo := repository.NewBookingRepository(db, locker)
	blockRepo := repository.NewBlockedSlotRepository(db)

	tenants := &DefaultTenantResolver{TenantRepo: tenantRepo, Now: c.Now}
	policy := &DefaultPolicyService{PolicyRepo: repository.NewPolicyRepository(db), Now: c.Now}
	availability := NewAvailabilityService(bookingRepo, blockRepo, policy)
	runner := NewTxRunner(repository.NewTransactor(db), TxOptions{
		Timeout:     5 * time.Second,
		MaxAttempts: 5,
		BaseBackoff: time.Millisecond,
	}, repository.IsRetryable)
	recorder := &events.Recorder{}

	env := &testEnv{
		db:         db,
		clock:      c,
		tenantRepo: tenantRepo,
		tenants:    tenants,
		policy:     policy,
		events:     recorder,
		calendar:   NewCalendarService(tenants, policy),
		bookings: &DefaultBookingService{
			Tenants:         tenants,
			Policy:          policy,
			Availability:    availability,
			Ledger:          &DefaultHistoryService{HistoryRepo: repository.NewHistoryRepository(db), Now: c.Now},
			BookingRepo:     bookingRepo,
			IdempotencyRepo: repository.NewIdempotencyRepository(db),
			ServiceRepo:     repository.NewServiceRepository(db),
			Runner:          runner,
			Locker:          locker,
			Publisher:       recorder,
			IdempotencyTTL:  time.Hour,
			Now:             c.Now,
		},
		blocks: &DefaultBlockService{
			Tenants:      tenants,
			Availability: availability,
			BlockRepo:    blockRepo,
			Runner:       runner,
			Locker:       locker,
			Now:          c.Now,
		},
	}

	env.addTenant(t, "acme", "acme"+suffix)
	env.addTenant(t, "globex", "globex"+suffix)
	return env
}

func (e *testEnv) addTenant(t *testing.T, id, namespace string) entity.Namespace {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, e.tenantRepo.Save(ctx, &entity.Tenant{
		ID:            id,
		Name:          id,
		Namespace:     namespace,
		IsolationMode: entity.IsolationPrefix,
		Active:        true,
		CreatedAt:     testNow.UnixMilli(),
		UpdatedAt:     testNow.UnixMilli(),
	}))

	ns := entity.NewNamespace(id, namespace, entity.IsolationPrefix)
	e.namespaces = append(e.namespaces, ns)
	require.NoError(t, repository.MigrateNamespace(ctx, e.db, ns))
	require.NoError(t, e.policy.SeedDefaults(ctx, ns))

	services := repository.NewServiceRepository(e.db)
	short := &entity.ServiceDefinition{Name: "Haircut", DurationMinutes: 30, Active: true}
	long := &entity.ServiceDefinition{Name: "Coloring", DurationMinutes: 60, Active: true}
	require.NoError(t, services.Create(ctx, ns, short))
	require.NoError(t, services.Create(ctx, ns, long))
	e.shortService, e.longService = short.ID, long.ID
	return ns
}

func (e *testEnv) ns(t *testing.T, tenantID string) entity.Namespace {
	t.Helper()
	ns, err := e.tenants.Resolve(context.Background(), tenantID)
	require.NoError(t, err)
	return ns
}

// book creates a booking on the default tenant with a fresh idempotency token.
func (e *testEnv) book(user, date, at string, serviceID int64) (*entity.Booking, error) {
	return e.bookings.Create(context.Background(), CreateRequest{
		TenantID:         "acme",
		UserID:           user,
		Date:             date,
		Time:             at,
		ServiceID:        serviceID,
		IdempotencyToken: fmt.Sprintf("%s-%d", user, tokenSeq.Add(1)),
	})
}

func (e *testEnv) mustBook(t *testing.T, user, date, at string, serviceID int64) *entity.Booking {
	t.Helper()
	b, err := e.book(user, date, at, serviceID)
	require.NoError(t, err)
	return b
}

func (e *testEnv) activeOn(t *testing.T, tenantID, date string) []*entity.Booking {
	t.Helper()
	list, err := e.bookings.ListActive(context.Background(), tenantID, date, date)
	require.NoError(t, err)
	return list
}

func userActor(id string) entity.Actor {
	return entity.Actor{Type: entity.ActorUser, ID: id}
}

func adminActor() entity.Actor {
	return entity.Actor{Type: entity.ActorAdmin, ID: "admin-1"}
}
