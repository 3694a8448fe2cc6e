package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnavailable is returned when the store cannot be reached within the
// configured acquire timeout. Callers decide the policy; this layer never
// retries.
var ErrUnavailable = errors.New("database unavailable")

// DefaultAcquireTimeout bounds the connectivity check independently of any
// pool-internal timeout.
const DefaultAcquireTimeout = 5 * time.Second

func NewPool(dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	log.Println("Database pool created")

	return pool, nil
}

// Pinger is the slice of the pool this package needs for the availability
// check. *pgxpool.Pool and pgxmock.PgxPoolIface both satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckAvailable races a connectivity check against the given timeout. It
// returns ErrUnavailable (wrapped with the cause) on timeout or connect
// error instead of letting the pool's own error escape.
func CheckAvailable(ctx context.Context, db Pinger, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.Ping(pingCtx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
