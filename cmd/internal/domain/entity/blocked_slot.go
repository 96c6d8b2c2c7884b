package entity

// BlockedSlot is a manually reserved interval that is not tied to a user booking,
// e.g. a closure of the business for part of a day.
type BlockedSlot struct {
	ID          int64  `gorm:"primaryKey"`
	Date        string `gorm:"size:10;not null"`
	StartMinute int    `gorm:"not null"`
	EndMinute   int    `gorm:"not null"`
	Reason      string `gorm:"size:255"`
	CreatedBy   string `gorm:"size:64;not null"`
	CreatedAt   int64  `gorm:"not null"`
}

func (b *BlockedSlot) Interval() Interval {
	return Interval{Start: b.StartMinute, End: b.EndMinute}
}
