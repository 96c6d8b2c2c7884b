package events

import (
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/utils"

	"github.com/google/uuid"
)

type Type string

const (
	BookingCreated        Type = "booking.created"
	BookingRescheduled    Type = "booking.rescheduled"
	BookingCancelled      Type = "booking.cancelled"
	BookingServiceChanged Type = "booking.service_changed"
)

type BookingSnapshot struct {
	ID              int64  `json:"id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"durationMinutes"`
	UserID          string `json:"userId"`
	ServiceID       int64  `json:"serviceId"`
	Status          string `json:"status"`
}

type BookingEvent struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	TenantID   string          `json:"tenantId"`
	ActorType  string          `json:"actorType"`
	ActorID    string          `json:"actorId"`
	OccurredAt string          `json:"occurredAt"`
	Booking    BookingSnapshot `json:"booking"`
}

func NewBookingEvent(t Type, tenantID string, actor entity.Actor, b *entity.Booking, at int64) *BookingEvent {
	return &BookingEvent{
		ID:         uuid.NewString(),
		Type:       t,
		TenantID:   tenantID,
		ActorType:  string(actor.Type),
		ActorID:    actor.ID,
		OccurredAt: utils.FormatEpoch(at),
		Booking: BookingSnapshot{
			ID:              b.ID,
			Date:            b.Date,
			Time:            utils.FormatClock(b.StartMinute),
			DurationMinutes: b.DurationMinutes,
			UserID:          b.UserID,
			ServiceID:       b.ServiceID,
			Status:          string(b.Status),
		},
	}
}

// RoutingKey is "<tenant>.<type>", so consumers can bind per tenant or per type.
func (e *BookingEvent) RoutingKey() string {
	return e.TenantID + "." + string(e.Type)
}
