package entity

type ServiceDefinition struct {
	ID              int64  `gorm:"primaryKey"`
	Name            string `gorm:"size:128;not null"`
	DurationMinutes int    `gorm:"not null"`
	Active          bool   `gorm:"not null"`
	CreatedAt       int64  `gorm:"not null"`
}
