package jobs

import (
	"context"
	"fmt"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/logger"
	"slotbook/cmd/internal/metrics"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type NamespaceLister interface {
	ResolveActive(ctx context.Context) ([]entity.Namespace, error)
}

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, ns entity.Namespace, now int64) (int64, error)
}

// IdempotencyPurge removes expired idempotency records from every active
// tenant namespace.
type IdempotencyPurge struct {
	Tenants NamespaceLister
	Records ExpiredDeleter
	Now     func() time.Time
	Timeout time.Duration
}

// Run purges all namespaces and returns the number of deleted records. A
// failing namespace is logged and does not stop the others.
func (p *IdempotencyPurge) Run(ctx context.Context) (int64, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	namespaces, err := p.Tenants.ResolveActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tenants: %w", err)
	}

	log := logger.FromContext(ctx)
	now := p.Now().UnixMilli()
	var total int64
	for _, ns := range namespaces {
		n, err := p.Records.DeleteExpired(ctx, ns, now)
		if err != nil {
			log.Error("purge idempotency records", zap.String("tenant", ns.TenantID()), zap.Error(err))
			continue
		}
		total += n
	}

	metrics.IdempotencyPurged.Add(float64(total))
	log.Info("idempotency purge finished",
		zap.Int("namespaces", len(namespaces)), zap.Int64("deleted", total))
	return total, nil
}

// Scheduler wraps a cron instance running the background jobs.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))}
}

// Schedule registers the purge on spec, e.g. "@every 1h" or "0 3 * * *".
func (s *Scheduler) Schedule(spec string, purge *IdempotencyPurge) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := purge.Run(context.Background()); err != nil {
			logger.Get().Error("idempotency purge", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
