package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/iamsyg/artisian-dashboard/pkg/database"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

// DefaultStoreTimeout bounds every repository call that has no tighter
// deadline of its own.
const DefaultStoreTimeout = 5 * time.Second

type store struct {
	db      database.DBTX
	timeout time.Duration
}

func newStore(db database.DBTX, timeout time.Duration) store {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return store{db: db, timeout: timeout}
}

func (s store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// wrap classifies a driver error. Unreachable or timed-out databases become
// StoreUnavailable; anything else keeps its cause for a 500.
func wrap(op string, err error) error {
	if database.IsUnavailable(err) {
		return apperrors.StoreUnavailable(fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
