package services

import (
	"context"
	"encoding/json"
	"log"
)

// PendingQueue accepts serialized bootstrap payloads for a later retry.
type PendingQueue interface {
	EnqueuePendingBootstrap(ctx context.Context, payload []byte) error
}

// AvailabilityPolicy decides what the caller sees when the store cannot be
// reached. It is injected so the fail-open business decision can be
// tightened later without touching call sites.
type AvailabilityPolicy interface {
	OnStoreUnavailable(ctx context.Context, req *BootstrapRequest, cause error) (*BootstrapResult, error)
}

// FailOpenPolicy favors availability of the sign-in path: unavailability
// becomes a success response with fallback set, and the payload is queued
// for a later retry when a queue is configured. Enqueue failures are
// swallowed too; idempotent re-invocation remains the recovery mechanism.
type FailOpenPolicy struct {
	Queue PendingQueue
}

func (p *FailOpenPolicy) OnStoreUnavailable(ctx context.Context, req *BootstrapRequest, cause error) (*BootstrapResult, error) {
	log.Printf("WARN: store unavailable for tenant %s, responding fail-open: %v", req.TenantID, cause)

	if p.Queue != nil {
		payload, err := json.Marshal(req)
		if err == nil {
			err = p.Queue.EnqueuePendingBootstrap(ctx, payload)
		}
		if err != nil {
			log.Printf("WARN: failed to queue pending bootstrap for %s: %v", req.TenantID, err)
		}
	}

	return &BootstrapResult{
		Success:  true,
		Exists:   false,
		TenantID: req.TenantID,
		Fallback: true,
		Message:  "provisioning deferred, will retry",
	}, nil
}

// FailClosedPolicy surfaces unavailability as a hard error.
type FailClosedPolicy struct{}

func (p *FailClosedPolicy) OnStoreUnavailable(ctx context.Context, req *BootstrapRequest, cause error) (*BootstrapResult, error) {
	return nil, cause
}
