package client

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the desktop-app endpoints under the given Echo group.
// The tsGuard middleware enforces the request-timestamp replay window.
func RegisterRoutes(g *echo.Group, h *Handler, tsGuard echo.MiddlewareFunc) {
	g.POST("/activate", h.Activate, tsGuard)
	g.POST("/validate", h.Validate, tsGuard)
	g.POST("/deactivate", h.Deactivate, tsGuard)
}
