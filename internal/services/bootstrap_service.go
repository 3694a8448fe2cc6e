package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"opsbooks/internal/common"
	"opsbooks/internal/models"
	"opsbooks/internal/repositories"
	"opsbooks/pkg/database"
)

// ErrInvalidTenantID marks a malformed tenant identifier. No store access
// is attempted when this is returned.
var ErrInvalidTenantID = errors.New("invalid tenant id")

// BootstrapRequest is the inbound provisioning payload. TenantID is
// required; everything else is an optional signal.
type BootstrapRequest struct {
	TenantID        string `json:"tenantId"`
	UserID          string `json:"userId"`
	Email           string `json:"email"`
	BusinessName    string `json:"businessName"`
	BusinessType    string `json:"businessType"`
	BusinessCountry string `json:"businessCountry"`
}

// BootstrapResult is the outcome surfaced to the caller. Success true means
// "safe to proceed with onboarding" regardless of Exists or Fallback.
type BootstrapResult struct {
	Success  bool   `json:"success"`
	Exists   bool   `json:"exists"`
	TenantID string `json:"tenantId"`
	Fallback bool   `json:"fallback,omitempty"`
	Message  string `json:"message,omitempty"`
}

type BootstrapService interface {
	Provision(ctx context.Context, req *BootstrapRequest) (*BootstrapResult, error)
}

type bootstrapService struct {
	db             database.Pinger
	tenantRepo     repositories.TenantRepository
	auxRepo        repositories.AuxiliaryRepository
	resolver       NameResolver
	policy         AvailabilityPolicy
	storage        StorageService
	acquireTimeout time.Duration
}

func NewBootstrapService(
	db database.Pinger,
	tenantRepo repositories.TenantRepository,
	auxRepo repositories.AuxiliaryRepository,
	resolver NameResolver,
	policy AvailabilityPolicy,
	storage StorageService,
	acquireTimeout time.Duration,
) BootstrapService {
	return &bootstrapService{
		db:             db,
		tenantRepo:     tenantRepo,
		auxRepo:        auxRepo,
		resolver:       resolver,
		policy:         policy,
		storage:        storage,
		acquireTimeout: acquireTimeout,
	}
}

// Provision guarantees exactly one tenant row exists for the identifier,
// creating it together with its best-effort satellites when absent. The
// tenant write is the only hard-failure path; store unavailability goes
// through the injected availability policy.
func (s *bootstrapService) Provision(ctx context.Context, req *BootstrapRequest) (*BootstrapResult, error) {
	tenantID, err := common.ValidateUUID(req.TenantID, "tenantId")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTenantID, err)
	}

	if err := database.CheckAvailable(ctx, s.db, s.acquireTimeout); err != nil {
		return s.policy.OnStoreUnavailable(ctx, req, err)
	}

	probe, err := s.tenantRepo.Probe(ctx, tenantID)
	if err != nil {
		// A failed read means the store went away after the availability
		// check; nothing has been written yet, so the same policy applies.
		return s.policy.OnStoreUnavailable(ctx, req, err)
	}

	if probe.Present {
		if probe.NeedsIdentifierRepair {
			if err := s.tenantRepo.RepairTenantID(ctx, tenantID); err != nil {
				log.Printf("WARN: tenant %s identifier repair failed: %v", tenantID, err)
			}
		}
		return &BootstrapResult{
			Success:  true,
			Exists:   true,
			TenantID: req.TenantID,
			Message:  "tenant already provisioned",
		}, nil
	}

	name := s.resolver.Resolve(ctx, req.BusinessName, req.UserID)

	owner := req.UserID
	if owner == "" {
		owner = models.OwnerSystem
	}

	tenant := &models.Tenant{
		ID:         tenantID,
		TenantID:   tenantID.String(),
		Name:       name,
		OwnerID:    owner,
		SchemaName: models.SchemaName(tenantID),
		RLSEnabled: true,
		Active:     true,
	}
	if err := s.tenantRepo.Upsert(ctx, tenant); err != nil {
		return nil, fmt.Errorf("tenant write failed for %s: %w", tenantID, err)
	}

	if err := s.auxRepo.WriteAuxiliary(ctx, &repositories.AuxiliaryRecords{
		TenantID:     tenantID,
		OwnerID:      req.UserID,
		Email:        req.Email,
		BusinessName: name,
		BusinessType: req.BusinessType,
		Country:      req.BusinessCountry,
	}); err != nil {
		log.Printf("WARN: auxiliary records for tenant %s not written: %v", tenantID, err)
	}

	if s.storage != nil {
		if err := s.storage.EnsureTenantBucket(ctx, tenantID); err != nil {
			log.Printf("WARN: tenant %s document bucket not provisioned: %v", tenantID, err)
		}
	}

	return &BootstrapResult{
		Success:  true,
		Exists:   false,
		TenantID: req.TenantID,
		Message:  "tenant provisioned",
	}, nil
}
