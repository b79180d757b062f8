package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"supasidebar.com/licserver/internal/billing"
	"supasidebar.com/licserver/internal/device"
	"supasidebar.com/licserver/internal/license"
	"supasidebar.com/licserver/internal/product"
)

type Handler struct {
	AdminService *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{AdminService: s}
}

// GET /licenses?email=
func (h *Handler) ListLicenses(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return errorJSON(c, http.StatusBadRequest, "email query parameter is required")
	}

	licenses, err := h.AdminService.LicensesByEmail(c.Request().Context(), email)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"licenses": licenses})
}

// GET /licenses/:key
func (h *Handler) GetLicense(c echo.Context) error {
	detail, err := h.AdminService.LicenseDetails(c.Request().Context(), c.Param("key"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// POST /licenses/:key/link
func (h *Handler) LinkFirebaseUID(c echo.Context) error {
	var req LinkRequest
	if err := c.Bind(&req); err != nil || req.FirebaseUID == "" {
		return errorJSON(c, http.StatusBadRequest, "firebaseUid is required")
	}

	if err := h.AdminService.LinkFirebaseUID(c.Request().Context(), c.Param("key"), req.FirebaseUID); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"linked": true})
}

// GET /licenses/:key/validate?email=
func (h *Handler) ValidateLicense(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return errorJSON(c, http.StatusBadRequest, "email query parameter is required")
	}

	valid, err := h.AdminService.ValidateLicense(c.Request().Context(), c.Param("key"), email)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": valid})
}

// POST /licenses/:key/cancel
func (h *Handler) CancelSubscription(c echo.Context) error {
	if err := h.AdminService.CancelSubscription(c.Request().Context(), c.Param("key")); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"cancelled": true})
}

// DELETE /licenses/:key/devices/:deviceId
func (h *Handler) RemoveDevice(c echo.Context) error {
	if err := h.AdminService.RemoveDevice(c.Request().Context(), c.Param("key"), c.Param("deviceId")); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"removed": true})
}

// GET /webhooks?limit=
func (h *Handler) ListWebhooks(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return errorJSON(c, http.StatusBadRequest, "limit must be between 1 and 500")
		}
		limit = n
	}

	records, err := h.AdminService.RecentWebhooks(c.Request().Context(), limit)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"webhooks": records})
}

// GET /products
func (h *Handler) ListProducts(c echo.Context) error {
	products, err := h.AdminService.Products(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"products": products})
}

// POST /products
func (h *Handler) CreateProduct(c echo.Context) error {
	p, err := bindProduct(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	if err := h.AdminService.CreateProduct(c.Request().Context(), p); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// PUT /products/:id
func (h *Handler) UpdateProduct(c echo.Context) error {
	p, err := bindProduct(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	p.ProductID = c.Param("id")

	if err := h.AdminService.UpdateProduct(c.Request().Context(), p); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// DELETE /products/:id
func (h *Handler) DeleteProduct(c echo.Context) error {
	if err := h.AdminService.DeleteProduct(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": true})
}

// POST /backup
func (h *Handler) CreateBackup(c echo.Context) error {
	result, err := h.AdminService.Backup(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func bindProduct(c echo.Context) (*product.Product, error) {
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return nil, errors.New("invalid request body")
	}
	if req.ProductID == "" && c.Param("id") == "" {
		return nil, errors.New("productId is required")
	}
	return &product.Product{
		ProductID:    req.ProductID,
		ProductName:  req.ProductName,
		LicenseType:  license.Type(req.LicenseType),
		MaxDevices:   req.MaxDevices,
		UpdatesYears: req.UpdatesYears,
		IsTeam:       req.IsTeam,
	}, nil
}

func mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, license.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "license not found")
	case errors.Is(err, license.ErrNotSubscription):
		return errorJSON(c, http.StatusConflict, "license is not a subscription")
	case errors.Is(err, device.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "device not found")
	case errors.Is(err, billing.ErrSubscriptionNotFound):
		return errorJSON(c, http.StatusBadGateway, "subscription not found at payment provider")
	case errors.Is(err, product.ErrUnknownProduct):
		return errorJSON(c, http.StatusNotFound, "product not found")
	case errors.Is(err, product.ErrInvalidLicenseType), errors.Is(err, product.ErrInvalidDeviceCount):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	return errorJSON(c, http.StatusInternalServerError, "internal error")
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
