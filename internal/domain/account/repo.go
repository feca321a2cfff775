package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("account not found")

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByExternalID(ctx context.Context, externalID int64) (*Account, error)
	Update(ctx context.Context, a *Account) error
	// IncrementUploads bumps the monthly upload counter by one.
	IncrementUploads(ctx context.Context, id uuid.UUID) error
	// ResetUploads zeroes the counter and sets the next reset time.
	ResetUploads(ctx context.Context, id uuid.UUID, nextReset time.Time) error
}
