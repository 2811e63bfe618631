package api

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/tabpredict/internal/logger"
)

const (
	HeaderRequestID = "X-Request-ID"
	requestIDKey    = "request_id"
)

// Caller-supplied ids are echoed back only when they look like ids.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestContext tags each request with an id, echoes it in X-Request-ID and
// puts a logger carrying the id on the request context.
func RequestContext(base logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := c.Request().Header.Get(HeaderRequestID)
			if !validRequestID.MatchString(id) {
				id = uuid.NewString()
			}
			c.Set(requestIDKey, id)
			c.Response().Header().Set(HeaderRequestID, id)

			req := c.Request()
			log := base.With(logger.RequestIDKey, id)
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), log)))
			return next(c)
		}
	}
}

func requestID(c *echo.Context) string {
	if id, ok := c.Get(requestIDKey).(string); ok {
		return id
	}
	return ""
}
