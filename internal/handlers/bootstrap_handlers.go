package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"opsbooks/internal/caching"
	"opsbooks/internal/common"
	"opsbooks/internal/repositories"
	"opsbooks/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

const existsCacheTTL = 10 * time.Minute

// BootstrapHandlers handles tenant bootstrap HTTP requests
type BootstrapHandlers struct {
	bootstrapSvc services.BootstrapService
	tenantRepo   repositories.TenantRepository
	cacheSvc     caching.CacheService
}

// NewBootstrapHandlers creates a new bootstrap handlers instance. cacheSvc
// may be nil; the existence cache is an optimization, not a dependency.
func NewBootstrapHandlers(bootstrapSvc services.BootstrapService, tenantRepo repositories.TenantRepository, cacheSvc caching.CacheService) *BootstrapHandlers {
	return &BootstrapHandlers{
		bootstrapSvc: bootstrapSvc,
		tenantRepo:   tenantRepo,
		cacheSvc:     cacheSvc,
	}
}

// BootstrapResponse mirrors services.BootstrapResult plus an error field
// for the failure shapes.
type BootstrapResponse struct {
	Success  bool   `json:"success"`
	Exists   bool   `json:"exists"`
	TenantID string `json:"tenantId,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Bootstrap handles POST /tenants/bootstrap. The authenticated subject and
// email from the token claims fill in missing payload fields.
func (h *BootstrapHandlers) Bootstrap(c echo.Context) error {
	var req services.BootstrapRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	ctx := c.Request().Context()
	if req.UserID == "" {
		if subject, ok := common.GetSubjectFromContext(ctx); ok {
			req.UserID = subject
		}
	}
	if req.Email == "" {
		if email, ok := common.GetEmailFromContext(ctx); ok {
			req.Email = email
		}
	}

	// Malformed identifiers never reach the cache or the store; the strict
	// 36-char check applies here, not the lenient uuid.Parse.
	tenantID, err := common.ValidateUUID(req.TenantID, "tenantId")
	if err != nil {
		return common.SendValidationError(c, "tenantId", err.Error())
	}

	// Caller-side fast path: a cached "exists" means the idempotent
	// short-circuit result without touching the store.
	if h.cacheSvc != nil {
		if exists, err := h.cacheSvc.GetTenantExists(ctx, tenantID); err == nil && exists {
			return c.JSON(http.StatusOK, &BootstrapResponse{
				Success:  true,
				Exists:   true,
				TenantID: req.TenantID,
				Message:  "tenant already provisioned",
			})
		}
	}

	result, err := h.bootstrapSvc.Provision(ctx, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTenantID) {
			return common.SendValidationError(c, "tenantId", err.Error())
		}
		log.Printf("WARN: tenant bootstrap failed for %s: %v", req.TenantID, err)
		return c.JSON(http.StatusInternalServerError, &BootstrapResponse{
			Success:  false,
			TenantID: req.TenantID,
			Error:    "tenant provisioning failed",
		})
	}

	if h.cacheSvc != nil && result.Success && !result.Fallback {
		if err := h.cacheSvc.SetTenantExists(ctx, tenantID, existsCacheTTL); err != nil {
			log.Printf("WARN: failed to cache tenant %s existence: %v", req.TenantID, err)
		}
	}

	return c.JSON(http.StatusOK, &BootstrapResponse{
		Success:  result.Success,
		Exists:   result.Exists,
		TenantID: result.TenantID,
		Fallback: result.Fallback,
		Message:  result.Message,
	})
}

// GetTenant handles GET /tenants/:id, used by onboarding to poll after a
// fallback response.
func (h *BootstrapHandlers) GetTenant(c echo.Context) error {
	tenantID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	tenant, err := h.tenantRepo.GetByID(c.Request().Context(), tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "Tenant")
		}
		return common.SendServerError(c, "Failed to load tenant")
	}

	return c.JSON(http.StatusOK, tenant)
}
