package repository

import (
	"context"
	"errors"
	"hash/fnv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoTransaction = errors.New("lock requested outside of a transaction")

// SlotLocker serializes writers that share a key for the rest of the current
// transaction. Keys come from entity.Namespace.LockKey.
type SlotLocker interface {
	Lock(ctx context.Context, key string) error
	// ForUpdate adds a row lock to a query when the store supports one.
	ForUpdate(db *gorm.DB) *gorm.DB
}

// NewSlotLocker picks the locking strategy of the connected store. PostgreSQL
// runs at READ COMMITTED, so writers take transaction-scoped advisory locks.
// SQLite already admits a single writer at a time.
func NewSlotLocker(db *gorm.DB) SlotLocker {
	if db.Dialector.Name() == "postgres" {
		return advisoryLocker{}
	}
	return serialLocker{}
}

type advisoryLocker struct{}

func (advisoryLocker) Lock(ctx context.Context, key string) error {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	if !ok {
		return ErrNoTransaction
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", lockID(key)).Error
}

func (advisoryLocker) ForUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

type serialLocker struct{}

func (serialLocker) Lock(ctx context.Context, _ string) error {
	if !InTransaction(ctx) {
		return ErrNoTransaction
	}
	return nil
}

func (serialLocker) ForUpdate(db *gorm.DB) *gorm.DB {
	return db
}

func lockID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
