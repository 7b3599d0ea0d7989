package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/payalloc/internal/infrastructure/logger"
	"github.com/erp/payalloc/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Tenant context and header keys
const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantConfig holds configuration for tenant middleware
type TenantConfig struct {
	// SkipPaths don't require tenant context (e.g., health check)
	SkipPaths []string
	// DefaultTenantID is used when the header is absent. Leave nil outside development.
	DefaultTenantID *uuid.UUID
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		SkipPaths: []string{"/health", "/api/v1/health"},
	}
}

// Tenant resolves the tenant from the X-Tenant-ID header. Every repository
// call is scoped by it, so a request without one is rejected.
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		var tenantID uuid.UUID
		header := c.GetHeader(TenantHeaderKey)
		switch {
		case header != "":
			id, err := uuid.Parse(header)
			if err != nil {
				abortTenant(c, dto.ErrCodeBadRequest, "Invalid tenant ID format")
				return
			}
			tenantID = id
		case cfg.DefaultTenantID != nil:
			tenantID = *cfg.DefaultTenantID
		default:
			abortTenant(c, dto.ErrCodeMissingTenant, "Tenant identification required")
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))
		c.Next()
	}
}

func abortTenant(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetTenantID returns the tenant resolved by Tenant, or uuid.Nil
func GetTenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(TenantIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
