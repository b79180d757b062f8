package webhooks

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"supasidebar.com/licserver/internal/webhook"
)

type Handler struct {
	WebhookService *webhook.Service
}

func NewHandler(w *webhook.Service) *Handler {
	return &Handler{WebhookService: w}
}

// POST /payments
//
// Always answers 200 once the delivery headers check out; the success flag
// in the body carries the processing outcome. Only garbage that is not a
// webhook at all (missing/malformed headers) earns a 400.
func (h *Handler) HandlePayments(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": "unreadable body"})
	}

	req := c.Request()
	ok, err := h.WebhookService.Handle(
		req.Context(),
		payload,
		req.Header.Get("webhook-id"),
		req.Header.Get("webhook-timestamp"),
		req.Header.Get("webhook-signature"),
	)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": ok})
}
