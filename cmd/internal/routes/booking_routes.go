package routes

import (
	"context"
	"net/http"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/service"
	"slotbook/cmd/internal/utils"
	"slotbook/cmd/internal/utils/apierror"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const idempotencyHeader = "Idempotency-Key"

type BookingService interface {
	Create(ctx context.Context, req service.CreateRequest) (*entity.Booking, error)
	Reschedule(ctx context.Context, req service.RescheduleRequest) (*entity.Booking, error)
	Cancel(ctx context.Context, req service.CancelRequest) (*entity.Booking, error)
	ChangeService(ctx context.Context, req service.ChangeServiceRequest) (*entity.Booking, error)
	Get(ctx context.Context, tenantID string, bookingID int64, actor entity.Actor) (*entity.Booking, error)
	ListActive(ctx context.Context, tenantID, from, to string) ([]*entity.Booking, error)
	ListForUser(ctx context.Context, tenantID, userID string) ([]*entity.Booking, error)
	History(ctx context.Context, tenantID string, bookingID int64, actor entity.Actor) ([]*entity.HistoryEntry, error)
}

type CreateBookingRequest struct {
	UserID           string `json:"userId" validate:"omitempty,max=64,nospaces"`
	Date             string `json:"date" validate:"required,date"`
	Time             string `json:"time" validate:"required,clock"`
	DurationMinutes  int    `json:"durationMinutes" validate:"min=0"`
	ServiceID        int64  `json:"serviceId" validate:"required,min=1"`
	IdempotencyToken string `json:"idempotencyToken" validate:"omitempty,max=128"`
}

type RescheduleBookingRequest struct {
	Date   string `json:"date" validate:"required,date"`
	Time   string `json:"time" validate:"required,clock"`
	Reason string `json:"reason" validate:"max=512"`
}

type ChangeServiceBookingRequest struct {
	ServiceID int64  `json:"serviceId" validate:"required,min=1"`
	Reason    string `json:"reason" validate:"max=512"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=512"`
}

type BookingResponse struct {
	ID              int64  `json:"id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	EndTime         string `json:"endTime"`
	DurationMinutes int    `json:"durationMinutes"`
	UserID          string `json:"userId"`
	ServiceID       int64  `json:"serviceId"`
	Status          string `json:"status"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

type HistoryResponse struct {
	ID           int64   `json:"id"`
	Action       string  `json:"action"`
	ActorType    string  `json:"actorType"`
	ActorID      string  `json:"actorId"`
	OldDate      *string `json:"oldDate,omitempty"`
	OldTime      *string `json:"oldTime,omitempty"`
	OldDuration  *int    `json:"oldDurationMinutes,omitempty"`
	OldServiceID *int64  `json:"oldServiceId,omitempty"`
	NewDate      *string `json:"newDate,omitempty"`
	NewTime      *string `json:"newTime,omitempty"`
	NewDuration  *int    `json:"newDurationMinutes,omitempty"`
	NewServiceID *int64  `json:"newServiceId,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	CreatedAt    string  `json:"createdAt"`
}

func NewBookingResponse(b *entity.Booking) *BookingResponse {
	return &BookingResponse{
		ID:              b.ID,
		Date:            b.Date,
		Time:            utils.FormatClock(b.StartMinute),
		EndTime:         utils.FormatClock(b.EndMinute()),
		DurationMinutes: b.DurationMinutes,
		UserID:          b.UserID,
		ServiceID:       b.ServiceID,
		Status:          string(b.Status),
		CreatedAt:       utils.FormatEpoch(b.CreatedAt),
		UpdatedAt:       utils.FormatEpoch(b.UpdatedAt),
	}
}

func newBookingResponses(bookings []*entity.Booking) []*BookingResponse {
	resp := make([]*BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, NewBookingResponse(b))
	}
	return resp
}

func NewHistoryResponse(h *entity.HistoryEntry) *HistoryResponse {
	clock := func(m *int) *string {
		if m == nil {
			return nil
		}
		s := utils.FormatClock(*m)
		return &s
	}
	return &HistoryResponse{
		ID:           h.ID,
		Action:       string(h.Action),
		ActorType:    string(h.ActorType),
		ActorID:      h.ActorID,
		OldDate:      h.OldDate,
		OldTime:      clock(h.OldStartMinute),
		OldDuration:  h.OldDuration,
		OldServiceID: h.OldServiceID,
		NewDate:      h.NewDate,
		NewTime:      clock(h.NewStartMinute),
		NewDuration:  h.NewDuration,
		NewServiceID: h.NewServiceID,
		Reason:       h.Reason,
		CreatedAt:    utils.FormatEpoch(h.CreatedAt),
	}
}

type DefaultBookingRoute struct {
	BookingService BookingService
	Validate       *validator.Validate
}

func NewBookingDefault(bookingService BookingService, validate *validator.Validate) *DefaultBookingRoute {
	return &DefaultBookingRoute{BookingService: bookingService, Validate: validate}
}

func (b *DefaultBookingRoute) CreateBooking(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}

	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}
	utils.Sanitize(&req)
	if req.IdempotencyToken == "" {
		req.IdempotencyToken = c.Request().Header.Get(idempotencyHeader)
	}
	if err := b.Validate.Struct(&req); err != nil {
		apierr := apierror.FromValidationError(err)
		return c.JSON(apierr.Code(), apierr)
	}
	if req.IdempotencyToken == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("idempotencyToken"))
	}

	userID := data.Sub
	if req.UserID != "" && req.UserID != data.Sub {
		if !isStaff(data) {
			return c.JSON(http.StatusForbidden, apierror.ForbiddenError)
		}
		userID = req.UserID
	}

	booking, err := b.BookingService.Create(c.Request().Context(), service.CreateRequest{
		TenantID:         data.TenantID,
		UserID:           userID,
		Date:             req.Date,
		Time:             req.Time,
		DurationMinutes:  req.DurationMinutes,
		ServiceID:        req.ServiceID,
		IdempotencyToken: req.IdempotencyToken,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, NewBookingResponse(booking))
}

func (b *DefaultBookingRoute) GetBookings(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}

	var bookings []*entity.Booking
	if isStaff(data) {
		from, to := c.QueryParam("from"), c.QueryParam("to")
		if from == "" {
			return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("from"))
		}
		if to == "" {
			return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("to"))
		}
		bookings, err = b.BookingService.ListActive(c.Request().Context(), data.TenantID, from, to)
	} else {
		bookings, err = b.BookingService.ListForUser(c.Request().Context(), data.TenantID, data.Sub)
	}
	if err != nil {
		return respondError(c, err)
	}

	resp := echo.Map{"bookings": newBookingResponses(bookings)}
	return c.JSON(http.StatusOK, &resp)
}

func (b *DefaultBookingRoute) GetBooking(c echo.Context) error {
	data, id, apierr := b.target(c)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	booking, err := b.BookingService.Get(c.Request().Context(), data.TenantID, id, data.Actor())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NewBookingResponse(booking))
}

func (b *DefaultBookingRoute) RescheduleBooking(c echo.Context) error {
	data, id, apierr := b.target(c)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	var req RescheduleBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}
	utils.Sanitize(&req)
	if err := b.Validate.Struct(&req); err != nil {
		apierr := apierror.FromValidationError(err)
		return c.JSON(apierr.Code(), apierr)
	}

	booking, err := b.BookingService.Reschedule(c.Request().Context(), service.RescheduleRequest{
		TenantID:  data.TenantID,
		BookingID: id,
		Date:      req.Date,
		Time:      req.Time,
		Actor:     data.Actor(),
		Reason:    req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NewBookingResponse(booking))
}

func (b *DefaultBookingRoute) ChangeBookingService(c echo.Context) error {
	data, id, apierr := b.target(c)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	var req ChangeServiceBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}
	utils.Sanitize(&req)
	if err := b.Validate.Struct(&req); err != nil {
		apierr := apierror.FromValidationError(err)
		return c.JSON(apierr.Code(), apierr)
	}

	booking, err := b.BookingService.ChangeService(c.Request().Context(), service.ChangeServiceRequest{
		TenantID:  data.TenantID,
		BookingID: id,
		ServiceID: req.ServiceID,
		Actor:     data.Actor(),
		Reason:    req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NewBookingResponse(booking))
}

// CancelBooking accepts an optional body carrying the reason.
func (b *DefaultBookingRoute) CancelBooking(c echo.Context) error {
	data, id, apierr := b.target(c)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	var req CancelBookingRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
		}
	}
	if req.Reason == "" {
		req.Reason = c.QueryParam("reason")
	}
	if err := b.Validate.Struct(&req); err != nil {
		apierr := apierror.FromValidationError(err)
		return c.JSON(apierr.Code(), apierr)
	}

	booking, err := b.BookingService.Cancel(c.Request().Context(), service.CancelRequest{
		TenantID:  data.TenantID,
		BookingID: id,
		Actor:     data.Actor(),
		Reason:    req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NewBookingResponse(booking))
}

func (b *DefaultBookingRoute) GetHistory(c echo.Context) error {
	data, id, apierr := b.target(c)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	entries, err := b.BookingService.History(c.Request().Context(), data.TenantID, id, data.Actor())
	if err != nil {
		return respondError(c, err)
	}

	history := make([]*HistoryResponse, 0, len(entries))
	for _, e := range entries {
		history = append(history, NewHistoryResponse(e))
	}
	resp := echo.Map{"history": history}
	return c.JSON(http.StatusOK, &resp)
}

// target reads the caller and the :id path parameter shared by the per-booking routes.
func (b *DefaultBookingRoute) target(c echo.Context) (*utils.TokenData, int64, apierror.ErrorResponse) {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return nil, 0, apierror.InvalidAuthTokenError
	}

	idParam := c.Param("id")
	if idParam == "" {
		return nil, 0, apierror.NewMissingParamError("id")
	}
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		return nil, 0, apierror.NewInvalidParamTypeError("id", "a positive number")
	}
	return data, id, nil
}
