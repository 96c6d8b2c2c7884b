package repository

import (
	"context"
	"errors"
	"slotbook/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultBookingRepository struct {
	db     *gorm.DB
	locker SlotLocker
}

func NewBookingRepository(db *gorm.DB, locker SlotLocker) *DefaultBookingRepository {
	return &DefaultBookingRepository{db: db, locker: locker}
}

func (b *DefaultBookingRepository) table(ctx context.Context, ns entity.Namespace) *gorm.DB {
	return conn(ctx, b.db).Table(ns.Table(BookingsTable))
}

func (b *DefaultBookingRepository) FindByID(ctx context.Context, ns entity.Namespace, id int64) (*entity.Booking, error) {
	return b.findByID(b.table(ctx, ns), id)
}

// FindByIDForUpdate loads the booking and, on stores with row locks, keeps it
// locked until the surrounding transaction ends.
func (b *DefaultBookingRepository) FindByIDForUpdate(ctx context.Context, ns entity.Namespace, id int64) (*entity.Booking, error) {
	return b.findByID(b.locker.ForUpdate(b.table(ctx, ns)), id)
}

func (b *DefaultBookingRepository) findByID(q *gorm.DB, id int64) (*entity.Booking, error) {
	var booking entity.Booking
	err := q.Where("id = ?", id).Take(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (b *DefaultBookingRepository) FindActiveOnDate(ctx context.Context, ns entity.Namespace, date string) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	err := b.table(ctx, ns).
		Where("date = ?", date).
		Where("status = ?", entity.BookingActive).
		Order("start_minute asc").
		Find(&bookings).Error
	return bookings, err
}

// FindActiveInRange returns active bookings with from <= date <= to.
func (b *DefaultBookingRepository) FindActiveInRange(ctx context.Context, ns entity.Namespace, from, to string) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	err := b.table(ctx, ns).
		Where("status = ?", entity.BookingActive).
		Where("date >= ?", from).
		Where("date <= ?", to).
		Order("date asc, start_minute asc").
		Find(&bookings).Error
	return bookings, err
}

func (b *DefaultBookingRepository) FindByUserID(ctx context.Context, ns entity.Namespace, userID string) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	err := b.table(ctx, ns).
		Where("user_id = ?", userID).
		Order("date asc, start_minute asc").
		Find(&bookings).Error
	return bookings, err
}

// CountUpcomingByUser counts the user's active bookings that have not ended
// yet, relative to today/nowMinute in the tenant's timezone.
func (b *DefaultBookingRepository) CountUpcomingByUser(ctx context.Context, ns entity.Namespace, userID, today string, nowMinute int) (int64, error) {
	var count int64
	err := b.table(ctx, ns).
		Where("user_id = ?", userID).
		Where("status = ?", entity.BookingActive).
		Where("(date > ? OR (date = ? AND start_minute + duration_minutes > ?))", today, today, nowMinute).
		Count(&count).Error
	return count, err
}

func (b *DefaultBookingRepository) Create(ctx context.Context, ns entity.Namespace, booking *entity.Booking) error {
	return b.table(ctx, ns).Create(booking).Error
}

// UpdateSlot persists date, start, duration and service of an existing booking.
func (b *DefaultBookingRepository) UpdateSlot(ctx context.Context, ns entity.Namespace, booking *entity.Booking) error {
	return b.table(ctx, ns).
		Where("id = ?", booking.ID).
		Updates(map[string]any{
			"date":             booking.Date,
			"start_minute":     booking.StartMinute,
			"duration_minutes": booking.DurationMinutes,
			"service_id":       booking.ServiceID,
			"updated_at":       booking.UpdatedAt,
		}).Error
}

func (b *DefaultBookingRepository) MarkCancelled(ctx context.Context, ns entity.Namespace, id int64, updatedAt int64) error {
	return b.table(ctx, ns).
		Where("id = ?", id).
		Where("status = ?", entity.BookingActive).
		Updates(map[string]any{"status": entity.BookingCancelled, "updated_at": updatedAt}).Error
}
