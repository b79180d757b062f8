package admin

import "github.com/labstack/echo/v4"

func RegisterRoutes(g *echo.Group, h *Handler) {
	g.GET("/licenses", h.ListLicenses)
	g.GET("/licenses/:key", h.GetLicense)
	g.POST("/licenses/:key/link", h.LinkFirebaseUID)
	g.GET("/licenses/:key/validate", h.ValidateLicense)
	g.POST("/licenses/:key/cancel", h.CancelSubscription)
	g.DELETE("/licenses/:key/devices/:deviceId", h.RemoveDevice)

	g.GET("/webhooks", h.ListWebhooks)

	g.GET("/products", h.ListProducts)
	g.POST("/products", h.CreateProduct)
	g.PUT("/products/:id", h.UpdateProduct)
	g.DELETE("/products/:id", h.DeleteProduct)

	g.POST("/backup", h.CreateBackup)
}
