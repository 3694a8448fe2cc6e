package jobs

import (
	"context"
	"encoding/json"
	"log"

	"opsbooks/internal/services"
)

// PendingSource yields payloads deferred by the fail-open policy. An empty
// source returns nil, nil.
type PendingSource interface {
	DequeuePendingBootstrap(ctx context.Context) ([]byte, error)
}

// ProvisionRetrier drains the pending-provision queue, re-invoking the
// idempotent bootstrap for each deferred payload. This is the "later retry"
// the fail-open response promises.
type ProvisionRetrier struct {
	source       PendingSource
	bootstrapSvc services.BootstrapService
	batchSize    int
}

func NewProvisionRetrier(source PendingSource, bootstrapSvc services.BootstrapService, batchSize int) *ProvisionRetrier {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ProvisionRetrier{
		source:       source,
		bootstrapSvc: bootstrapSvc,
		batchSize:    batchSize,
	}
}

// Drain processes up to batchSize deferred payloads. It stops early when
// the queue empties or the store is still unavailable (a fallback result
// re-queues the payload by itself, so continuing would spin).
func (r *ProvisionRetrier) Drain(ctx context.Context) {
	for i := 0; i < r.batchSize; i++ {
		payload, err := r.source.DequeuePendingBootstrap(ctx)
		if err != nil {
			log.Printf("WARN: pending bootstrap dequeue failed: %v", err)
			return
		}
		if payload == nil {
			return
		}

		var req services.BootstrapRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			log.Printf("WARN: dropping malformed pending bootstrap payload: %v", err)
			continue
		}

		result, err := r.bootstrapSvc.Provision(ctx, &req)
		if err != nil {
			// The payload is dropped; the next sign-in re-triggers the
			// idempotent bootstrap anyway.
			log.Printf("WARN: deferred bootstrap for %s failed: %v", req.TenantID, err)
			continue
		}

		if result.Fallback {
			log.Printf("WARN: store still unavailable, stopping drain at tenant %s", req.TenantID)
			return
		}

		log.Printf("Deferred bootstrap for tenant %s completed (exists=%v)", req.TenantID, result.Exists)
	}
}
