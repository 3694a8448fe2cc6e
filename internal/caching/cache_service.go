package caching

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const pendingBootstrapKey = "opsbooks:bootstrap:pending"

// CacheService is the caller-side cache around tenant bootstrap: existence
// flags so repeated sign-ins skip the probe, and the queue of payloads
// deferred by the fail-open policy. The provisioning core itself never
// caches.
type CacheService interface {
	GetTenantExists(ctx context.Context, tenantID uuid.UUID) (bool, error)
	SetTenantExists(ctx context.Context, tenantID uuid.UUID, ttl time.Duration) error
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error

	EnqueuePendingBootstrap(ctx context.Context, payload []byte) error
	DequeuePendingBootstrap(ctx context.Context) ([]byte, error)

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis://host:port URLs as well as bare host:port
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func existsKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("opsbooks:tenant:exists:%s", tenantID.String())
}

func (r *redisCacheService) GetTenantExists(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	val, err := r.client.Get(ctx, existsKey(tenantID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil // cache miss
		}
		return false, err
	}
	return val == "1", nil
}

func (r *redisCacheService) SetTenantExists(ctx context.Context, tenantID uuid.UUID, ttl time.Duration) error {
	return r.client.Set(ctx, existsKey(tenantID), "1", ttl).Err()
}

func (r *redisCacheService) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	return r.client.Del(ctx, existsKey(tenantID)).Err()
}

func (r *redisCacheService) EnqueuePendingBootstrap(ctx context.Context, payload []byte) error {
	return r.client.LPush(ctx, pendingBootstrapKey, payload).Err()
}

// DequeuePendingBootstrap pops the oldest deferred payload. An empty queue
// returns nil, nil.
func (r *redisCacheService) DequeuePendingBootstrap(ctx context.Context) ([]byte, error) {
	data, err := r.client.RPop(ctx, pendingBootstrapKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
