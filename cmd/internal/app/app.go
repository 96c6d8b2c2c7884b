package app

import (
	"slotbook/cmd/internal/config"
	"slotbook/cmd/internal/domain/repository"
	"slotbook/cmd/internal/events"
	"slotbook/cmd/internal/jobs"
	"slotbook/cmd/internal/logger"
	"slotbook/cmd/internal/metrics"
	"slotbook/cmd/internal/routes"
	"slotbook/cmd/internal/service"
	"slotbook/cmd/internal/utils/validators"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm"
)

// App holds the wired services of one process.
type App struct {
	Echo       *echo.Echo
	Tenants    *service.DefaultTenantResolver
	Policy     *service.DefaultPolicyService
	Bookings   *service.DefaultBookingService
	Blocks     *service.DefaultBlockService
	Calendar   *service.DefaultCalendarService
	Services   *repository.DefaultServiceRepository
	TenantRepo *repository.DefaultTenantRepository
	Purge      *jobs.IdempotencyPurge
}

func New(cfg *config.Config, db *gorm.DB, publisher events.Publisher) *App {
	validate := validator.New()
	validators.Register(validate)

	// Getting repositories
	locker := repository.NewSlotLocker(db)
	tenantRepo := repository.NewTenantRepository(db)
	bookingRepo := repository.NewBookingRepository(db, locker)
	blockRepo := repository.NewBlockedSlotRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Getting services
	tenants := service.NewTenantResolver(tenantRepo)
	policy := service.NewPolicyService(policyRepo)
	availability := service.NewAvailabilityService(bookingRepo, blockRepo, policy)
	runner := service.NewTxRunner(repository.NewTransactor(db), service.TxOptions{
		Timeout:     cfg.TxTimeout,
		MaxAttempts: cfg.TxMaxAttempts,
		BaseBackoff: cfg.TxBaseBackoff,
	}, repository.IsRetryable)

	bookings := &service.DefaultBookingService{
		Tenants:         tenants,
		Policy:          policy,
		Availability:    availability,
		Ledger:          service.NewHistoryService(historyRepo),
		BookingRepo:     bookingRepo,
		IdempotencyRepo: idempotencyRepo,
		ServiceRepo:     serviceRepo,
		Runner:          runner,
		Locker:          locker,
		Publisher:       publisher,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		Now:             time.Now,
	}
	blocks := &service.DefaultBlockService{
		Tenants:      tenants,
		Availability: availability,
		BlockRepo:    blockRepo,
		Runner:       runner,
		Locker:       locker,
		Now:          time.Now,
	}
	calendar := service.NewCalendarService(tenants, policy)

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(echoLogLevel(cfg.LogLevel))
	e.Use(routes.RequestID)
	e.Use(logger.Middleware())
	e.Use(metrics.Middleware())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", routes.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	routes.Register(e, routes.Handlers{
		Bookings:  routes.NewBookingDefault(bookings, validate),
		Calendar:  routes.NewCalendarDefault(bookings, blocks, calendar, validate),
		Tenants:   routes.NewTenantDefault(tenants),
		JWTSecret: cfg.JWTSecret,
	})

	return &App{
		Echo:       e,
		Tenants:    tenants,
		Policy:     policy,
		Bookings:   bookings,
		Blocks:     blocks,
		Calendar:   calendar,
		Services:   serviceRepo,
		TenantRepo: tenantRepo,
		Purge: &jobs.IdempotencyPurge{
			Tenants: tenants,
			Records: idempotencyRepo,
			Now:     time.Now,
			Timeout: time.Minute,
		},
	}
}

func echoLogLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	}
	return log.INFO
}
