package entity

type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID               int64         `gorm:"primaryKey"`
	Date             string        `gorm:"size:10;not null"` // YYYY-MM-DD
	StartMinute      int           `gorm:"not null"`         // minutes after midnight
	DurationMinutes  int           `gorm:"not null"`
	UserID           string        `gorm:"size:64;not null"`
	ServiceID        int64         `gorm:"not null"` // References: services(id)
	IdempotencyToken string        `gorm:"size:128"`
	Status           BookingStatus `gorm:"size:16;not null"`
	CreatedAt        int64         `gorm:"not null"`
	UpdatedAt        int64         `gorm:"not null"`
}

func (b *Booking) EndMinute() int {
	return b.StartMinute + b.DurationMinutes
}

func (b *Booking) Interval() Interval {
	return NewInterval(b.StartMinute, b.DurationMinutes)
}

func (b *Booking) IsActive() bool {
	return b.Status == BookingActive
}
