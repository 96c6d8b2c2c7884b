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

type SlotService interface {
	FreeSlots(ctx context.Context, tenantID, date string, duration int) ([]int, error)
}

type BlockService interface {
	Block(ctx context.Context, req service.BlockRequest) (*entity.BlockedSlot, error)
	Unblock(ctx context.Context, tenantID string, id int64) error
	ListBlocks(ctx context.Context, tenantID, date string) ([]*entity.BlockedSlot, error)
}

type CalendarService interface {
	GetPolicy(ctx context.Context, tenantID string) (*entity.BookingPolicy, error)
	SavePolicy(ctx context.Context, tenantID string, policy *entity.BookingPolicy) error
	SetWorkingHours(ctx context.Context, tenantID string, wh *entity.WorkingHours) error
	ListWorkingHours(ctx context.Context, tenantID string) ([]*entity.WorkingHours, error)
	SetException(ctx context.Context, tenantID string, exc *entity.CalendarException) error
	RemoveException(ctx context.Context, tenantID, date string) error
	ListExceptions(ctx context.Context, tenantID, from, to string) ([]*entity.CalendarException, error)
}

type BlockSlotRequest struct {
	Date   string `json:"date" validate:"required,date"`
	Start  string `json:"start" validate:"required,clock"`
	End    string `json:"end" validate:"required,len=5"`
	Reason string `json:"reason" validate:"max=255"`
}

type ExceptionRequest struct {
	IsWorking bool   `json:"isWorking"`
	Open      string `json:"open" validate:"omitempty,clock"`
	Close     string `json:"close" validate:"omitempty,len=5"`
	Note      string `json:"note" validate:"max=255"`
}

type WorkingHoursRequest struct {
	Open        string `json:"open" validate:"omitempty,clock"`
	Close       string `json:"close" validate:"omitempty,len=5"`
	SlotMinutes int    `json:"slotMinutes" validate:"min=0,max=1440"`
	Closed      bool   `json:"closed"`
}

type PolicyRequest struct {
	MaxBookingsPerUser int    `json:"maxBookingsPerUser" validate:"min=0"`
	LookaheadDays      int    `json:"lookaheadDays" validate:"min=0,max=3650"`
	MaxDurationMinutes int    `json:"maxDurationMinutes" validate:"min=0,max=1440"`
	Timezone           string `json:"timezone" validate:"required,nospaces"`
	DefaultOpen        string `json:"defaultOpen" validate:"required,clock"`
	DefaultClose       string `json:"defaultClose" validate:"required,len=5"`
	DefaultSlotMinutes int    `json:"defaultSlotMinutes" validate:"required,min=1,max=1440"`
}

type BlockResponse struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Reason    string `json:"reason,omitempty"`
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
}

type ExceptionResponse struct {
	Date      string  `json:"date"`
	IsWorking bool    `json:"isWorking"`
	Open      *string `json:"open,omitempty"`
	Close     *string `json:"close,omitempty"`
	Note      string  `json:"note,omitempty"`
}

type WorkingHoursResponse struct {
	Weekday     int    `json:"weekday"`
	Open        string `json:"open"`
	Close       string `json:"close"`
	SlotMinutes int    `json:"slotMinutes"`
	Closed      bool   `json:"closed"`
}

type PolicyResponse struct {
	MaxBookingsPerUser int    `json:"maxBookingsPerUser"`
	LookaheadDays      int    `json:"lookaheadDays"`
	MaxDurationMinutes int    `json:"maxDurationMinutes"`
	Timezone           string `json:"timezone"`
	DefaultOpen        string `json:"defaultOpen"`
	DefaultClose       string `json:"defaultClose"`
	DefaultSlotMinutes int    `json:"defaultSlotMinutes"`
}

func NewBlockResponse(b *entity.BlockedSlot) *BlockResponse {
	return &BlockResponse{
		ID:        b.ID,
		Date:      b.Date,
		Start:     utils.FormatClock(b.StartMinute),
		End:       utils.FormatClock(b.EndMinute),
		Reason:    b.Reason,
		CreatedBy: b.CreatedBy,
		CreatedAt: utils.FormatEpoch(b.CreatedAt),
	}
}

func NewExceptionResponse(e *entity.CalendarException) *ExceptionResponse {
	resp := &ExceptionResponse{Date: e.Date, IsWorking: e.IsWorking, Note: e.Note}
	if e.OpenMinute != nil && e.CloseMinute != nil {
		from, to := utils.FormatClock(*e.OpenMinute), utils.FormatClock(*e.CloseMinute)
		resp.Open, resp.Close = &from, &to
	}
	return resp
}

func NewPolicyResponse(p *entity.BookingPolicy) *PolicyResponse {
	return &PolicyResponse{
		MaxBookingsPerUser: p.MaxBookingsPerUser,
		LookaheadDays:      p.LookaheadDays,
		MaxDurationMinutes: p.MaxDurationMinutes,
		Timezone:           p.Timezone,
		DefaultOpen:        utils.FormatClock(p.DefaultOpenMinute),
		DefaultClose:       utils.FormatClock(p.DefaultCloseMinute),
		DefaultSlotMinutes: p.DefaultSlotMinutes,
	}
}

type DefaultCalendarRoute struct {
	SlotService     SlotService
	BlockService    BlockService
	CalendarService CalendarService
	Validate        *validator.Validate
}

func NewCalendarDefault(slots SlotService, blocks BlockService, calendar CalendarService, validate *validator.Validate) *DefaultCalendarRoute {
	return &DefaultCalendarRoute{SlotService: slots, BlockService: blocks, CalendarService: calendar, Validate: validate}
}

func (r *DefaultCalendarRoute) GetFreeSlots(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}

	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("date"))
	}
	rawDuration := c.QueryParam("duration")
	if rawDuration == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("duration"))
	}
	duration, err := strconv.Atoi(rawDuration)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("duration", "a number of minutes"))
	}

	starts, err := r.SlotService.FreeSlots(c.Request().Context(), data.TenantID, date, duration)
	if err != nil {
		return respondError(c, err)
	}

	slots := make([]string, 0, len(starts))
	for _, s := range starts {
		slots = append(slots, utils.FormatClock(s))
	}
	resp := echo.Map{"date": date, "durationMinutes": duration, "slots": slots}
	return c.JSON(http.StatusOK, &resp)
}

func (r *DefaultCalendarRoute) GetBlocks(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("date"))
	}

	blocks, err := r.BlockService.ListBlocks(c.Request().Context(), data.TenantID, date)
	if err != nil {
		return respondError(c, err)
	}

	list := make([]*BlockResponse, 0, len(blocks))
	for _, b := range blocks {
		list = append(list, NewBlockResponse(b))
	}
	resp := echo.Map{"blocks": list}
	return c.JSON(http.StatusOK, &resp)
}

func (r *DefaultCalendarRoute) CreateBlock(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}

	var req BlockSlotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}
	utils.Sanitize(&req)
	if err := r.Validate.Struct(&req); err != nil {
		apierr := apierror.FromValidationError(err)
		return c.JSON(apierr.Code(), apierr)
	}

	block, err := r.BlockService.Block(c.Request().Context(), service.BlockRequest{
		TenantID: data.TenantID,
		Date:     req.Date,
		Start:    req.Start,
		End:      req.End,
		Reason:   req.Reason,
		Actor:    data.Actor(),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, NewBlockResponse(block))
}

func (r *DefaultCalendarRoute) DeleteBlock(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("id", "a number"))
	}

	if err := r.BlockService.Unblock(c.Request().Context(), data.TenantID, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *DefaultCalendarRoute) PutException(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}

	var req ExceptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}
	utils.Sanitize(&req)
	if err := r.Validate.Struct(&req); err != nil {
		apierr := apierror.FromValidationError(err)
		return c.JSON(apierr.Code(), apierr)
	}

	exc := &entity.CalendarException{Date: c.Param("date"), IsWorking: req.IsWorking, Note: req.Note}
	if req.Open != "" || req.Close != "" {
		openMinute, closeMinute, apierr := parseHours(req.Open, req.Close)
		if apierr != nil {
			return c.JSON(apierr.Code(), apierr)
		}
		exc.OpenMinute, exc.CloseMinute = &openMinute, &closeMinute
	}

	if err := r.CalendarService.SetException(c.Request().Context(), data.TenantID, exc); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NewExceptionResponse(exc))
}

func (r *DefaultCalendarRoute) DeleteException(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}
	if err := r.CalendarService.RemoveException(c.Request().Context(), data.TenantID, c.Param("date")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *DefaultCalendarRoute) GetExceptions(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if from == "" || to == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("from/to"))
	}

	exceptions, err := r.CalendarService.ListExceptions(c.Request().Context(), data.TenantID, from, to)
	if err != nil {
		return respondError(c, err)
	}
	list := make([]*ExceptionResponse, 0, len(exceptions))
	for _, e := range exceptions {
		list = append(list, NewExceptionResponse(e))
	}
	resp := echo.Map{"exceptions": list}
	return c.JSON(http.StatusOK, &resp)
}

func (r *DefaultCalendarRoute) PutWorkingHours(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}
	weekday, err := strconv.Atoi(c.Param("weekday"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("weekday", "a number between 0 (Sunday) and 6"))
	}

	var req WorkingHoursRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}
	utils.Sanitize(&req)
	if err := r.Validate.Struct(&req); err != nil {
		apierr := apierror.FromValidationError(err)
		return c.JSON(apierr.Code(), apierr)
	}

	wh := &entity.WorkingHours{Weekday: weekday, SlotMinutes: req.SlotMinutes, Closed: req.Closed}
	if !req.Closed {
		openMinute, closeMinute, apierr := parseHours(req.Open, req.Close)
		if apierr != nil {
			return c.JSON(apierr.Code(), apierr)
		}
		wh.OpenMinute, wh.CloseMinute = openMinute, closeMinute
	}

	if err := r.CalendarService.SetWorkingHours(c.Request().Context(), data.TenantID, wh); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newWorkingHoursResponse(wh))
}

func (r *DefaultCalendarRoute) GetWorkingHours(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}

	hours, err := r.CalendarService.ListWorkingHours(c.Request().Context(), data.TenantID)
	if err != nil {
		return respondError(c, err)
	}
	list := make([]*WorkingHoursResponse, 0, len(hours))
	for _, wh := range hours {
		list = append(list, newWorkingHoursResponse(wh))
	}
	resp := echo.Map{"workingHours": list}
	return c.JSON(http.StatusOK, &resp)
}

func (r *DefaultCalendarRoute) GetPolicy(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}
	policy, err := r.CalendarService.GetPolicy(c.Request().Context(), data.TenantID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NewPolicyResponse(policy))
}

func (r *DefaultCalendarRoute) PutPolicy(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
	}

	var req PolicyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}
	utils.Sanitize(&req)
	if err := r.Validate.Struct(&req); err != nil {
		apierr := apierror.FromValidationError(err)
		return c.JSON(apierr.Code(), apierr)
	}
	openMinute, closeMinute, apierr := parseHours(req.DefaultOpen, req.DefaultClose)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	policy := &entity.BookingPolicy{
		MaxBookingsPerUser: req.MaxBookingsPerUser,
		LookaheadDays:      req.LookaheadDays,
		MaxDurationMinutes: req.MaxDurationMinutes,
		Timezone:           req.Timezone,
		DefaultOpenMinute:  openMinute,
		DefaultCloseMinute: closeMinute,
		DefaultSlotMinutes: req.DefaultSlotMinutes,
	}
	if err := r.CalendarService.SavePolicy(c.Request().Context(), data.TenantID, policy); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NewPolicyResponse(policy))
}

func newWorkingHoursResponse(wh *entity.WorkingHours) *WorkingHoursResponse {
	return &WorkingHoursResponse{
		Weekday:     wh.Weekday,
		Open:        utils.FormatClock(wh.OpenMinute),
		Close:       utils.FormatClock(wh.CloseMinute),
		SlotMinutes: wh.SlotMinutes,
		Closed:      wh.Closed,
	}
}

// parseHours reads an HH:MM opening window. The close may be "24:00".
func parseHours(from, to string) (int, int, apierror.ErrorResponse) {
	o, err := utils.ParseClock(from)
	if err != nil {
		return 0, 0, apierror.NewInvalidParamTypeError("open", "HH:MM")
	}
	if to == "24:00" {
		return o, entity.MinutesPerDay, nil
	}
	cl, err := utils.ParseClock(to)
	if err != nil {
		return 0, 0, apierror.NewInvalidParamTypeError("close", "HH:MM")
	}
	return o, cl, nil
}
