package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimestamp rejects desktop-client requests whose
// x-request-timestamp header (unix seconds) is missing or further than
// window from server time. A coarse replay guard for captured requests.
func RequestTimestamp(window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get("x-request-timestamp")
			ts, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return timestampError(c)
			}

			delta := time.Since(time.Unix(ts, 0))
			if delta > window || delta < -window {
				return timestampError(c)
			}

			return next(c)
		}
	}
}

func timestampError(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{
		"error":     "invalid or stale request timestamp",
		"code":      "INVALID_TIMESTAMP",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
