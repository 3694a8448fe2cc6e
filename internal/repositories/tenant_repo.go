package repositories

import (
	"context"
	"errors"
	"log"

	"opsbooks/internal/common"
	"opsbooks/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProbeResult reports whether a tenant row already exists and whether its
// tenant_id attribute has diverged from the primary key.
type ProbeResult struct {
	Present               bool
	NeedsIdentifierRepair bool
}

type TenantRepository interface {
	Probe(ctx context.Context, id uuid.UUID) (*ProbeResult, error)
	RepairTenantID(ctx context.Context, id uuid.UUID) error
	Upsert(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type tenantRepo struct {
	db Database
}

func NewTenantRepo(db Database) TenantRepository {
	return &tenantRepo{db: db}
}

// Probe runs the single read-only existence check. A present row whose
// tenant_id is null or empty is flagged for repair.
func (r *tenantRepo) Probe(ctx context.Context, id uuid.UUID) (*ProbeResult, error) {
	var tenantID *string
	query := `
		SELECT tenant_id
		FROM tenants
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &ProbeResult{Present: false}, nil
		}
		return nil, err
	}

	needsRepair := common.SafeString(tenantID) == ""
	return &ProbeResult{Present: true, NeedsIdentifierRepair: needsRepair}, nil
}

// RepairTenantID re-aligns the tenant_id attribute with the primary key.
// Runs outside any larger transaction; callers treat failures as non-fatal.
func (r *tenantRepo) RepairTenantID(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE tenants
		SET tenant_id = id, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// Upsert creates or reconciles the tenant row inside its own transaction.
// The conflict clause only fills a previously-empty name so concurrent or
// repeated calls never clobber a user-set one, and always re-asserts the
// RLS flag and update timestamp. A failure here means no usable tenant row
// exists, so the error is surfaced to the caller.
func (r *tenantRepo) Upsert(ctx context.Context, tenant *models.Tenant) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Printf("WARN: tenant upsert rollback failed: %v", rbErr)
		}
	}()

	query := `
		INSERT INTO tenants (id, tenant_id, name, owner_id, schema_name, rls_enabled, rls_setup_at, active, created_at, updated_at)
		VALUES ($1, $1, $2, $3, $4, TRUE, NOW(), TRUE, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = CASE WHEN tenants.name IS NULL OR tenants.name = '' THEN EXCLUDED.name ELSE tenants.name END,
		    rls_enabled = TRUE,
		    updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, query, tenant.ID, tenant.Name, tenant.OwnerID, tenant.SchemaName); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		SELECT id, tenant_id, name, owner_id, schema_name, rls_enabled, rls_setup_at, active, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tenant.ID, &tenant.TenantID, &tenant.Name, &tenant.OwnerID, &tenant.SchemaName,
		&tenant.RLSEnabled, &tenant.RLSSetupAt, &tenant.Active, &tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return tenant, nil
}
