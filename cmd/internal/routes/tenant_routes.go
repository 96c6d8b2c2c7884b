package routes

import (
	"context"
	"net/http"
	"slotbook/cmd/internal/utils/apierror"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type TenantService interface {
	SetActive(ctx context.Context, tenantID string, active bool) error
}

type TenantStatusRequest struct {
	Active *bool `json:"active"`
}

type DefaultTenantRoute struct {
	TenantService TenantService
}

func NewTenantDefault(tenantService TenantService) *DefaultTenantRoute {
	return &DefaultTenantRoute{TenantService: tenantService}
}

// SetStatus is called by the billing system to suspend or reinstate a tenant.
func (t *DefaultTenantRoute) SetStatus(c echo.Context) error {
	tenantID := strings.TrimSpace(c.Param("id"))
	if tenantID == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}

	var req TenantStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}
	if req.Active == nil {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("active"))
	}

	if err := t.TenantService.SetActive(c.Request().Context(), tenantID, *req.Active); err != nil {
		return respondError(c, err)
	}
	resp := echo.Map{"tenantId": tenantID, "active": *req.Active}
	return c.JSON(http.StatusOK, &resp)
}

// Health pings the database.
func Health(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			resp := echo.Map{"status": "unavailable"}
			return c.JSON(http.StatusServiceUnavailable, &resp)
		}
		resp := echo.Map{"status": "ok"}
		return c.JSON(http.StatusOK, &resp)
	}
}
