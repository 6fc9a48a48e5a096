package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/doclave/doclave/server/internal/observability"
)

// RequestContextMiddleware copies the request ID assigned by echo's
// RequestID middleware into the request context, so service-layer log
// lines carry the same id as the HTTP response header.
func RequestContextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID != "" {
				ctx := observability.WithRequestID(c.Request().Context(), requestID)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}
