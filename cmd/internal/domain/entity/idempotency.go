package entity

// IdempotencyRecord maps a caller-supplied request token to the booking it produced.
type IdempotencyRecord struct {
	Token     string `gorm:"primaryKey;size:128"`
	UserID    string `gorm:"size:64;not null"`
	BookingID int64  `gorm:"not null"`
	ExpiresAt int64  `gorm:"not null"`
	CreatedAt int64  `gorm:"not null"`
}
