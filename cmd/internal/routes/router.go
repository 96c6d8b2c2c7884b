package routes

import (
	"slotbook/cmd/internal/utils"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Bookings  *DefaultBookingRoute
	Calendar  *DefaultCalendarRoute
	Tenants   *DefaultTenantRoute
	JWTSecret string
}

// Register mounts every API route on e.
func Register(e *echo.Echo, h Handlers) {
	auth := JWTAuth(h.JWTSecret)
	staff := RequireRole(utils.RoleAdmin, utils.RoleSystem)

	api := e.Group("/api", auth)

	api.POST("/bookings", h.Bookings.CreateBooking)
	api.GET("/bookings", h.Bookings.GetBookings)
	api.GET("/bookings/:id", h.Bookings.GetBooking)
	api.PATCH("/bookings/:id", h.Bookings.RescheduleBooking)
	api.PATCH("/bookings/:id/service", h.Bookings.ChangeBookingService)
	api.DELETE("/bookings/:id", h.Bookings.CancelBooking)
	api.GET("/bookings/:id/history", h.Bookings.GetHistory)

	// Pseudo-entity "Calendar" to look up open start times
	api.GET("/calendar/free-slots", h.Calendar.GetFreeSlots)

	admin := api.Group("/admin", staff)
	admin.GET("/blocks", h.Calendar.GetBlocks)
	admin.POST("/blocks", h.Calendar.CreateBlock)
	admin.DELETE("/blocks/:id", h.Calendar.DeleteBlock)
	admin.GET("/exceptions", h.Calendar.GetExceptions)
	admin.PUT("/exceptions/:date", h.Calendar.PutException)
	admin.DELETE("/exceptions/:date", h.Calendar.DeleteException)
	admin.GET("/working-hours", h.Calendar.GetWorkingHours)
	admin.PUT("/working-hours/:weekday", h.Calendar.PutWorkingHours)
	admin.GET("/policy", h.Calendar.GetPolicy)
	admin.PUT("/policy", h.Calendar.PutPolicy)

	internal := e.Group("/internal", auth, RequireRole(utils.RoleSystem))
	internal.POST("/tenants/:id/status", h.Tenants.SetStatus)
}
