// Package store is the persistence boundary. The Postgres
// implementation lives here; memstore mirrors it for tests and
// single-process deployments. Mutations that touch the overlap
// invariant exist only as atomic operations (CreateReservation,
// CancelReservation) so validation can never be bypassed by field
// writes.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"parkease-api/internal/model"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate")
	ErrOverlap          = errors.New("interval overlaps an existing reservation")
	ErrLockTimeout      = errors.New("timed out waiting for slot lock")
	ErrAlreadyCancelled = errors.New("reservation already cancelled")
)

type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}

type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)

	CreateLot(ctx context.Context, l *model.Lot) error
	Lots(ctx context.Context) ([]model.Lot, error)
	LotByID(ctx context.Context, id int64) (*model.Lot, error)
	ToggleLot(ctx context.Context, id int64) (*model.Lot, error)

	CreateSlot(ctx context.Context, s *model.Slot) error
	UpdateSlot(ctx context.Context, s *model.Slot) error
	Slots(ctx context.Context) ([]model.Slot, error)
	SlotByID(ctx context.Context, id int64) (*model.Slot, error)
	ToggleSlot(ctx context.Context, id int64) (*model.Slot, error)
	AvailableSlots(ctx context.Context, lotID int64, start, end time.Time) ([]model.Slot, error)

	// CreateReservation runs overlap-check-then-insert as one atomic
	// unit per slot. Returns ErrOverlap on conflict, ErrLockTimeout
	// when the per-slot boundary cannot be acquired within the bounded
	// wait.
	CreateReservation(ctx context.Context, r *model.Reservation) error
	// CancelReservation flips cancelled false -> true exactly once.
	CancelReservation(ctx context.Context, id int64) error
	ReservationByID(ctx context.Context, id int64) (*model.Reservation, error)
	ReservationsByUser(ctx context.Context, userID string) ([]model.ReservationDetail, error)
	UpcomingByUser(ctx context.Context, userID string, now time.Time) ([]model.ReservationDetail, error)
	ActiveAt(ctx context.Context, now time.Time) ([]model.OccupancyEntry, error)

	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// Postgres is the production Store.
type Postgres struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)
