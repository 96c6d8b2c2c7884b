package service

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds returned by the booking engine. Callers compare with errors.Is;
// details are attached with %w wrapping.
var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantSuspended    = errors.New("tenant suspended")
	ErrPolicyViolation    = errors.New("policy violation")
	ErrSlotConflict       = errors.New("slot conflict")
	ErrLimitExceeded      = errors.New("booking limit exceeded")
	ErrNotFound           = errors.New("not found")
	ErrTransactionTimeout = errors.New("transaction timeout")
)

type ErrorKind string

const (
	KindTenantNotFound     ErrorKind = "tenant_not_found"
	KindTenantSuspended    ErrorKind = "tenant_suspended"
	KindPolicyViolation    ErrorKind = "policy_violation"
	KindSlotConflict       ErrorKind = "slot_conflict"
	KindLimitExceeded      ErrorKind = "limit_exceeded"
	KindNotFound           ErrorKind = "not_found"
	KindTransactionTimeout ErrorKind = "transaction_timeout"
	KindInternal           ErrorKind = "internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrTenantNotFound, KindTenantNotFound},
	{ErrTenantSuspended, KindTenantSuspended},
	{ErrPolicyViolation, KindPolicyViolation},
	{ErrSlotConflict, KindSlotConflict},
	{ErrLimitExceeded, KindLimitExceeded},
	{ErrNotFound, KindNotFound},
	{ErrTransactionTimeout, KindTransactionTimeout},
}

// KindOf classifies err into one stable kind. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

func isEngineError(err error) bool {
	return KindOf(err) != KindInternal
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(KindOf(err))
}

func asTimeout(err error) error {
	if err == nil || isEngineError(err) || !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransactionTimeout, err)
}

func policyViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPolicyViolation, fmt.Sprintf(format, args...))
}
