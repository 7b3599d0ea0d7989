package router

import (
	"github.com/erp/payalloc/internal/interfaces/http/handler"
)

// PaymentRoutes mounts payment editing, posting and reconciliation
func PaymentRoutes(h *handler.PaymentHandler) *DomainGroup {
	return NewDomainGroup("payments", "/payments").
		POST("", h.Create).
		GET("", h.List).
		GET("/:id", h.Get).
		PUT("/:id/amount", h.ChangeAmount).
		PUT("/:id/date", h.ChangeDate).
		PUT("/:id/currency", h.ChangeCurrency).
		PUT("/:id/lines/:line_id", h.SetLineAmount).
		POST("/:id/lines/reseed", h.ReseedLines).
		POST("/:id/lines/refresh", h.RefreshLines).
		DELETE("/:id/lines", h.ClearLines).
		POST("/:id/copy", h.Copy).
		POST("/:id/post", h.Post).
		POST("/:id/reconcile", h.Reconcile).
		GET("/:id/reconciliations", h.ListReconciliations)
}

// AllocationRoutes mounts the stateless preview
func AllocationRoutes(h *handler.PaymentHandler) *DomainGroup {
	return NewDomainGroup("allocations", "/allocations").
		POST("/preview", h.Preview)
}

// ExchangeRateRoutes mounts rate administration
func ExchangeRateRoutes(h *handler.ExchangeRateHandler) *DomainGroup {
	return NewDomainGroup("exchange-rates", "/exchange-rates").
		POST("", h.Upsert).
		GET("", h.List)
}

// SystemRoutes mounts health and info
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "").
		GET("/health", h.Health).
		GET("/system/info", h.GetSystemInfo)
}
