package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slotbook/cmd/internal/logger"
	"slotbook/cmd/internal/metrics"
	"time"

	"go.uber.org/zap"
)

type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TxOptions struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
}

func DefaultTxOptions() TxOptions {
	return TxOptions{
		Timeout:     5 * time.Second,
		MaxAttempts: 5,
		BaseBackoff: 20 * time.Millisecond,
	}
}

// TxRunner runs a unit of work in a transaction, retrying it from the top when
// the store reports a lost write race.
type TxRunner struct {
	Tx        Transactor
	Options   TxOptions
	Retryable func(error) bool
}

func NewTxRunner(tx Transactor, opts TxOptions, retryable func(error) bool) *TxRunner {
	return &TxRunner{Tx: tx, Options: opts, Retryable: retryable}
}

// Run executes fn until it commits, fails with a non-retryable error or runs
// out of attempts. On exhaustion it returns exhausted. Engine errors returned
// by fn are passed through unchanged.
func (r *TxRunner) Run(ctx context.Context, op string, exhausted error, fn func(ctx context.Context) error) error {
	attempts := max(r.Options.MaxAttempts, 1)
	log := logger.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		timedOut, err := r.attempt(ctx, fn)
		switch {
		case err == nil:
			metrics.RecordAttempt(op, "committed")
			return nil
		case isEngineError(err):
			metrics.RecordAttempt(op, "aborted")
			return err
		case errors.Is(ctx.Err(), context.Canceled):
			metrics.RecordAttempt(op, "aborted")
			return ctx.Err()
		case ctx.Err() != nil:
			metrics.RecordAttempt(op, "timeout")
			return deadlineExceeded(op)
		case timedOut || errors.Is(err, context.DeadlineExceeded):
			metrics.RecordAttempt(op, "timeout")
			return fmt.Errorf("%w: %s exceeded %s", ErrTransactionTimeout, op, r.Options.Timeout)
		case r.Retryable == nil || !r.Retryable(err):
			metrics.RecordAttempt(op, "aborted")
			return err
		}

		metrics.RecordAttempt(op, "conflict")
		lastErr = err
		if attempt == attempts {
			break
		}

		wait := r.backoff(attempt)
		log.Debug("retrying transaction",
			zap.String("operation", op), zap.Int("attempt", attempt),
			zap.Duration("backoff", wait), zap.Error(err))

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return deadlineExceeded(op)
			}
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	log.Warn("transaction retries exhausted",
		zap.String("operation", op), zap.Int("attempts", attempts), zap.Error(lastErr))
	return fmt.Errorf("%w: %s gave up after %d attempts", exhausted, op, attempts)
}

// deadlineExceeded reports a caller deadline that ran out before the work committed.
func deadlineExceeded(op string) error {
	return fmt.Errorf("%w: %s ran past the caller's deadline", ErrTransactionTimeout, op)
}

// attempt also reports whether the attempt's own deadline fired, since drivers
// surface an interrupted statement with their own error codes.
func (r *TxRunner) attempt(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	if r.Options.Timeout <= 0 {
		return false, r.Tx.InTx(ctx, fn)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.Options.Timeout)
	defer cancel()
	err := r.Tx.InTx(attemptCtx, fn)
	return err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded), err
}

// backoff grows exponentially from BaseBackoff with full jitter.
func (r *TxRunner) backoff(attempt int) time.Duration {
	base := r.Options.BaseBackoff
	if base <= 0 {
		return 0
	}
	ceiling := base << (attempt - 1)
	return base/2 + time.Duration(rand.Int63n(int64(ceiling)))
}
