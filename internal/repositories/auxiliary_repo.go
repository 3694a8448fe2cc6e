package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"opsbooks/internal/common"
	"opsbooks/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PlaceholderCredential marks owner rows created by provisioning. A real
// password hash is never written here; the identity provider owns sign-in.
const PlaceholderCredential = "!provisioned"

// IDKind selects how keys for the users and business_profiles tables are
// produced, based on the store's native key column type.
type IDKind int

const (
	// IDNative uses the caller-supplied identifier (or tenant id) verbatim.
	IDNative IDKind = iota
	// IDNumeric generates a numeric surrogate because the key column is numeric.
	IDNumeric
)

// IDStrategy is the tagged variant for key generation, selected once per
// write via schema introspection rather than per-query type sniffing.
type IDStrategy struct {
	Kind IDKind
}

// Key returns the key to insert for the given natural identifier.
func (s IDStrategy) Key(natural string) any {
	if s.Kind == IDNumeric {
		return SurrogateID()
	}
	return natural
}

// SurrogateID composes a monotonic-ish numeric key from the current time
// plus a random suffix. Always strictly positive.
func SurrogateID() int64 {
	return time.Now().UnixMilli()*1000 + rand.Int63n(1000)
}

// AuxiliaryRecords is the input for the best-effort satellite writes that
// accompany a freshly created tenant row.
type AuxiliaryRecords struct {
	TenantID     uuid.UUID
	OwnerID      string // empty skips the owner user insert
	Email        string
	BusinessName string
	BusinessType string
	Country      string
}

type AuxiliaryRepository interface {
	WriteAuxiliary(ctx context.Context, rec *AuxiliaryRecords) error
}

type auxiliaryRepo struct {
	db Database
	// configured defaults for the business profile; the models constants
	// apply when these are blank too
	businessType string
	country      string
}

func NewAuxiliaryRepo(db Database, businessType, country string) AuxiliaryRepository {
	return &auxiliaryRepo{db: db, businessType: businessType, country: country}
}

// WriteAuxiliary runs transaction B: RLS session context, owner user row,
// business profile row. Every step is attempted regardless of earlier step
// outcomes; each runs under a savepoint so one failed statement cannot
// poison the rest of the transaction. Only a Begin/Commit failure is
// returned, and callers discard even that after logging.
func (r *auxiliaryRepo) WriteAuxiliary(ctx context.Context, rec *AuxiliaryRecords) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("auxiliary transaction begin failed: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Printf("WARN: auxiliary rollback failed: %v", rbErr)
		}
	}()

	r.step(ctx, tx, "rls context", func() error {
		return r.setRLSContext(ctx, tx, rec.TenantID)
	})

	strategy := IDStrategy{Kind: IDNative}
	r.step(ctx, tx, "id strategy", func() error {
		detected, err := r.detectIDStrategy(ctx, tx)
		if err != nil {
			return err
		}
		strategy = detected
		return nil
	})

	if rec.OwnerID != "" {
		r.step(ctx, tx, "owner user", func() error {
			return r.insertOwnerUser(ctx, tx, strategy, rec)
		})
	}

	r.step(ctx, tx, "business profile", func() error {
		return r.insertBusinessProfile(ctx, tx, strategy, rec)
	})

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("auxiliary transaction commit failed: %w", err)
	}
	return nil
}

// step wraps one best-effort statement in a savepoint. Savepoint names may
// be re-established, so a single name serves all steps.
func (r *auxiliaryRepo) step(ctx context.Context, tx pgx.Tx, name string, fn func() error) {
	if _, err := tx.Exec(ctx, "SAVEPOINT aux_step"); err != nil {
		log.Printf("WARN: auxiliary %s savepoint failed: %v", name, err)
		return
	}
	if err := fn(); err != nil {
		log.Printf("WARN: auxiliary %s write failed: %v", name, err)
		if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT aux_step"); rbErr != nil {
			log.Printf("WARN: auxiliary %s savepoint rollback failed: %v", name, rbErr)
		}
	}
}

func (r *auxiliaryRepo) setRLSContext(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`SELECT set_config('app.current_tenant_id', $1, true), set_config('app.is_admin', 'false', true)`,
		tenantID.String(),
	)
	return err
}

// detectIDStrategy probes the users table key column type once per write.
func (r *auxiliaryRepo) detectIDStrategy(ctx context.Context, tx pgx.Tx) (IDStrategy, error) {
	var dataType string
	query := `
		SELECT data_type
		FROM information_schema.columns
		WHERE table_name = 'users' AND column_name = 'id'
	`
	if err := tx.QueryRow(ctx, query).Scan(&dataType); err != nil {
		return IDStrategy{Kind: IDNative}, err
	}

	switch dataType {
	case "bigint", "integer", "smallint", "numeric":
		return IDStrategy{Kind: IDNumeric}, nil
	default:
		return IDStrategy{Kind: IDNative}, nil
	}
}

func (r *auxiliaryRepo) insertOwnerUser(ctx context.Context, tx pgx.Tx, strategy IDStrategy, rec *AuxiliaryRecords) error {
	email := rec.Email
	if email == "" {
		email = fmt.Sprintf("%s@provisioned.local", rec.OwnerID)
	}

	query := `
		INSERT INTO users (id, tenant_id, email, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'active', NOW(), NOW())
		ON CONFLICT DO NOTHING
	`
	_, err := tx.Exec(ctx, query, strategy.Key(rec.OwnerID), rec.TenantID, email, PlaceholderCredential)
	return err
}

func (r *auxiliaryRepo) insertBusinessProfile(ctx context.Context, tx pgx.Tx, strategy IDStrategy, rec *AuxiliaryRecords) error {
	businessType := common.FirstNonEmpty(rec.BusinessType, r.businessType, models.DefaultBusinessType)
	country := common.FirstNonEmpty(rec.Country, r.country, models.DefaultBusinessCountry)

	query := `
		INSERT INTO business_profiles (id, tenant_id, name, type, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT DO NOTHING
	`
	_, err := tx.Exec(ctx, query, strategy.Key(rec.TenantID.String()), rec.TenantID, rec.BusinessName, businessType, country)
	return err
}
