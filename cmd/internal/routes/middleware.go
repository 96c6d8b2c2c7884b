package routes

import (
	"net/http"
	"slices"
	"slotbook/cmd/internal/logger"
	"slotbook/cmd/internal/utils"
	"slotbook/cmd/internal/utils/apierror"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestID tags every request with an X-Request-ID, keeping one sent by the caller.
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request().Header.Set(echo.HeaderXRequestID, requestID)
		}
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)
		return next(c)
	}
}

// JWTAuth validates the bearer token and stores its data for the handlers.
// Tokens without a tenant are rejected: every route below it is tenant scoped.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, tokenStr, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || tokenStr == "" {
				return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
			}

			data, err := utils.ParseToken(secret, tokenStr)
			if err != nil {
				log.Warn("invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
			}
			if data.TenantID == "" && data.Role != utils.RoleSystem {
				return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
			}

			utils.SetTokenDataCtx(c, data)
			return next(c)
		}
	}
}

func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			data, err := utils.ParseTokenDataCtx(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
			}
			if !slices.Contains(roles, data.Role) {
				return c.JSON(http.StatusForbidden, apierror.ForbiddenError)
			}
			return next(c)
		}
	}
}

func isStaff(data *utils.TokenData) bool {
	return data.Role == utils.RoleAdmin || data.Role == utils.RoleSystem
}

func respondError(c echo.Context, err error) error {
	apierr := apierror.FromError(err)
	if apierr.Code() == http.StatusInternalServerError {
		logger.FromEcho(c).Error("request failed", zap.Error(err))
	}
	return c.JSON(apierr.Code(), apierr)
}
