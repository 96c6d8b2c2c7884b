package entity

// CalendarException overrides the weekday rules for a single date.
type CalendarException struct {
	Date        string `gorm:"primaryKey;size:10"`
	IsWorking   bool   `gorm:"not null"`
	OpenMinute  *int
	CloseMinute *int
	Note        string `gorm:"size:255"`
	UpdatedAt   int64  `gorm:"not null"`
}

// WorkingHours holds the default schedule of one weekday (0 = Sunday).
type WorkingHours struct {
	Weekday     int  `gorm:"primaryKey;autoIncrement:false"`
	OpenMinute  int  `gorm:"not null"`
	CloseMinute int  `gorm:"not null"`
	SlotMinutes int  `gorm:"not null"`
	Closed      bool `gorm:"not null"`
}

// BookingPolicy is the single row of tenant-wide booking rules.
type BookingPolicy struct {
	ID                 int    `gorm:"primaryKey;autoIncrement:false"`
	MaxBookingsPerUser int    `gorm:"not null"` // 0 means unlimited
	LookaheadDays      int    `gorm:"not null"`
	MaxDurationMinutes int    `gorm:"not null"`
	Timezone           string `gorm:"size:64;not null"`
	DefaultOpenMinute  int    `gorm:"not null"`
	DefaultCloseMinute int    `gorm:"not null"`
	DefaultSlotMinutes int    `gorm:"not null"`
	UpdatedAt          int64  `gorm:"not null"`
}

const PolicyRowID = 1

func DefaultBookingPolicy() *BookingPolicy {
	return &BookingPolicy{
		ID:                 PolicyRowID,
		MaxBookingsPerUser: 3,
		LookaheadDays:      30,
		MaxDurationMinutes: 8 * 60,
		Timezone:           "UTC",
		DefaultOpenMinute:  9 * 60,
		DefaultCloseMinute: 18 * 60,
		DefaultSlotMinutes: 30,
	}
}
