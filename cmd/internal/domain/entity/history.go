package entity

type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAdmin  ActorType = "admin"
	ActorSystem ActorType = "system"
)

type Actor struct {
	Type ActorType
	ID   string
}

type HistoryAction string

const (
	ActionCreate        HistoryAction = "create"
	ActionReschedule    HistoryAction = "reschedule"
	ActionCancel        HistoryAction = "cancel"
	ActionServiceChange HistoryAction = "service_change"
)

// HistoryEntry is an append-only record of one booking transition.
// Old* fields are nil on create.
type HistoryEntry struct {
	ID             int64         `gorm:"primaryKey"`
	BookingID      int64         `gorm:"not null"` // References: bookings(id)
	ActorType      ActorType     `gorm:"size:16;not null"`
	ActorID        string        `gorm:"size:64;not null"`
	Action         HistoryAction `gorm:"size:32;not null"`
	OldDate        *string       `gorm:"size:10"`
	NewDate        *string       `gorm:"size:10"`
	OldStartMinute *int
	NewStartMinute *int
	OldDuration    *int
	NewDuration    *int
	OldServiceID   *int64
	NewServiceID   *int64
	Reason         string `gorm:"size:512"`
	CreatedAt      int64  `gorm:"not null"`
}
