package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OwnerSystem is stored in owner_id when no authenticated owner was supplied.
const OwnerSystem = "system"

type Tenant struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TenantID   string     `json:"tenant_id" db:"tenant_id"`
	Name       string     `json:"name" db:"name"`
	OwnerID    string     `json:"owner_id" db:"owner_id"`
	SchemaName string     `json:"schema_name" db:"schema_name"`
	RLSEnabled bool       `json:"rls_enabled" db:"rls_enabled"`
	RLSSetupAt *time.Time `json:"rls_setup_at" db:"rls_setup_at"`
	Active     bool       `json:"active" db:"active"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// SchemaName derives the per-tenant namespace deterministically from the
// tenant identifier: non-alphanumerics become underscores, prefixed tenant_.
func SchemaName(id uuid.UUID) string {
	var b strings.Builder
	b.WriteString("tenant_")
	for _, r := range id.String() {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
