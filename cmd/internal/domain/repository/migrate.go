package repository

import (
	"context"
	"fmt"
	"slotbook/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

// Per-tenant table names, qualified through entity.Namespace.Table.
const (
	BookingsTable     = "bookings"
	BlockedSlotsTable = "blocked_slots"
	ExceptionsTable   = "calendar_exceptions"
	WorkingHoursTable = "working_hours"
	PoliciesTable     = "booking_policies"
	ServicesTable     = "services"
	HistoryTable      = "booking_history"
	IdempotencyTable  = "idempotency_records"
)

var namespaceModels = []struct {
	table string
	model any
}{
	{BookingsTable, &entity.Booking{}},
	{BlockedSlotsTable, &entity.BlockedSlot{}},
	{ExceptionsTable, &entity.CalendarException{}},
	{WorkingHoursTable, &entity.WorkingHours{}},
	{PoliciesTable, &entity.BookingPolicy{}},
	{ServicesTable, &entity.ServiceDefinition{}},
	{HistoryTable, &entity.HistoryEntry{}},
	{IdempotencyTable, &entity.IdempotencyRecord{}},
}

// NamespaceTables lists the unqualified tables every namespace owns.
func NamespaceTables() []string {
	tables := make([]string, 0, len(namespaceModels))
	for _, m := range namespaceModels {
		tables = append(tables, m.table)
	}
	return tables
}

// MigrateNamespace creates or updates every table of one tenant namespace.
// Indexes are created explicitly with namespace-prefixed names because index
// names share one namespace per database in SQLite.
func MigrateNamespace(ctx context.Context, db *gorm.DB, ns entity.Namespace) error {
	db = db.WithContext(ctx)

	if schema := ns.Schema(); schema != "" {
		if err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + db.Statement.Quote(schema)).Error; err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
	}

	for _, m := range namespaceModels {
		if err := db.Table(ns.Table(m.table)).AutoMigrate(m.model); err != nil {
			return fmt.Errorf("migrate %s: %w", ns.Table(m.table), err)
		}
	}

	for _, stmt := range indexStatements(db, ns) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func indexStatements(db *gorm.DB, ns entity.Namespace) []string {
	q := func(name string) string { return db.Statement.Quote(name) }
	bookings := q(ns.Table(BookingsTable))

	return []string{
		// Coarse backstop: two active bookings can never start at the same minute.
		// Overlaps with differing durations are checked by the availability engine.
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (date, start_minute) WHERE status = 'active'",
			q(ns.IndexName("bookings_active_slot")), bookings),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (date, status)",
			q(ns.IndexName("bookings_date")), bookings),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (user_id, status)",
			q(ns.IndexName("bookings_user")), bookings),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (date)",
			q(ns.IndexName("blocked_slots_date")), q(ns.Table(BlockedSlotsTable))),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (booking_id)",
			q(ns.IndexName("booking_history_booking")), q(ns.Table(HistoryTable))),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (expires_at)",
			q(ns.IndexName("idempotency_expires")), q(ns.Table(IdempotencyTable))),
	}
}
