package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/erp/posting/internal/domain/identity"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Context keys and headers carrying the caller identity
const (
	TenantIDKey     = "tenant_id"
	UserIDKey       = "user_id"
	TenantHeaderKey = "X-Tenant-ID"
	UserHeaderKey   = "X-User-ID"
)

// TenantLookup resolves a tenant so that unknown or suspended tenants are
// rejected before reaching a handler
type TenantLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error)
}

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// SkipPaths are paths that don't require tenant context (e.g., health check)
	SkipPaths []string
	// RequireUser rejects requests without X-User-ID
	RequireUser bool
	// Lookup is optional; without it any well-formed tenant ID is accepted
	Lookup TenantLookup
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		SkipPaths:   []string{"/health", "/healthz", "/ready", "/metrics"},
		RequireUser: true,
	}
}

// TenantMiddleware requires X-Tenant-ID and X-User-ID headers holding UUIDs
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

// TenantMiddlewareWithConfig returns tenant middleware with custom configuration
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		tenantID, err := uuid.Parse(c.GetHeader(TenantHeaderKey))
		if err != nil || tenantID == uuid.Nil {
			abortTenant(c, http.StatusBadRequest, dto.ErrCodeMissingTenant, "X-Tenant-ID header must be a UUID")
			return
		}

		userID := uuid.Nil
		if raw := c.GetHeader(UserHeaderKey); raw != "" || cfg.RequireUser {
			userID, err = uuid.Parse(raw)
			if err != nil || userID == uuid.Nil {
				abortTenant(c, http.StatusBadRequest, dto.ErrCodeMissingTenant, "X-User-ID header must be a UUID")
				return
			}
		}

		ctx := c.Request.Context()
		if cfg.Lookup != nil {
			tenant, err := cfg.Lookup.FindByID(ctx, tenantID)
			switch {
			case errors.Is(err, shared.ErrNotFound):
				abortTenant(c, http.StatusNotFound, dto.ErrCodeNotFound, "Tenant not found")
				return
			case err != nil:
				logger.L(ctx).Error("Tenant lookup failed", logger.TenantID(tenantID), zap.Error(err))
				abortTenant(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An internal error occurred")
				return
			case tenant.Status != identity.TenantStatusActive:
				abortTenant(c, http.StatusForbidden, dto.ErrCodeForbidden, "Tenant is not active")
				return
			}
		}

		c.Set(TenantIDKey, tenantID)
		ctx = logger.WithTenantID(ctx, tenantID.String())
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(attribute.String("tenant_id", tenantID.String()))
		if userID != uuid.Nil {
			c.Set(UserIDKey, userID)
			ctx = logger.WithUserID(ctx, userID.String())
			span.SetAttributes(attribute.String("user_id", userID.String()))
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func abortTenant(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, RequestIDFromContext(c)))
}

// GetTenantID retrieves the tenant ID from gin.Context
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(TenantIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// GetUserID retrieves the acting user ID from gin.Context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(UserIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
