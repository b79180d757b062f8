package client

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"supasidebar.com/licserver/internal/activation"
	"supasidebar.com/licserver/internal/device"
	"supasidebar.com/licserver/internal/hardware"
	"supasidebar.com/licserver/internal/license"
)

type Handler struct {
	ActivationService *activation.Service
}

func NewHandler(a *activation.Service) *Handler {
	return &Handler{ActivationService: a}
}

// POST /activate
func (h *Handler) Activate(c echo.Context) error {
	var req activation.Request
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}
	if req.LicenseKey == "" || req.Email == "" || req.DeviceID == "" {
		return errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "licenseKey, email and deviceId are required")
	}

	resp, err := h.ActivationService.Activate(c.Request().Context(), &req)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// POST /validate
func (h *Handler) Validate(c echo.Context) error {
	var req activation.Request
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}
	if req.LicenseKey == "" || req.Email == "" || req.DeviceID == "" {
		return errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "licenseKey, email and deviceId are required")
	}

	resp, err := h.ActivationService.Validate(c.Request().Context(), req.LicenseKey, req.Email, req.DeviceID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// POST /deactivate
func (h *Handler) Deactivate(c echo.Context) error {
	var req activation.DeactivateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
	}
	if req.LicenseKey == "" || req.DeviceID == "" {
		return errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "licenseKey and deviceId are required")
	}

	removed, err := h.ActivationService.Deactivate(c.Request().Context(), req.LicenseKey, req.DeviceID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"deactivated": removed})
}

// mapError translates domain sentinels into the structured error body the
// desktop app expects. Integrity failures stay deliberately vague: the
// caller learns the hardware id was rejected, not why.
func mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, hardware.ErrMissingField):
		return errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, hardware.ErrIDLength), errors.Is(err, hardware.ErrIDMismatch):
		return errorJSON(c, http.StatusBadRequest, "INVALID_HARDWARE_ID", "invalid hardware id")
	case errors.Is(err, license.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "LICENSE_NOT_FOUND", "license not found")
	case errors.Is(err, device.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "device not activated on this license")
	case errors.Is(err, device.ErrLimitReached):
		return errorJSON(c, http.StatusForbidden, "DEVICE_LIMIT_REACHED", "device limit reached; deactivate another device first")
	case errors.Is(err, activation.ErrSubscriptionLapsed):
		return errorJSON(c, http.StatusForbidden, "SUBSCRIPTION_EXPIRED", "subscription has expired")
	}
	return errorJSON(c, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func errorJSON(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, map[string]string{
		"error":     msg,
		"code":      code,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
