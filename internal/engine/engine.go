// Package engine is the authoritative reservation logic: it validates
// booking and cancellation requests, delegates the atomic
// check-then-insert to the store, and derives the read projections.
package engine

import (
	"context"
	"errors"
	"time"

	"parkease-api/internal/apperr"
	"parkease-api/internal/model"
	"parkease-api/internal/store"
)

// bookRetries bounds the internal retry loop when the per-slot
// boundary times out under contention.
const bookRetries = 3

type Engine struct {
	store store.Store
	now   func() time.Time
}

func New(st store.Store) *Engine {
	return &Engine{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// NewAt pins the clock; tests use it to make status derivation
// deterministic.
func NewAt(st store.Store, now func() time.Time) *Engine {
	return &Engine{store: st, now: now}
}

// Book commits a reservation for [start,end) on the slot, or reports
// why it cannot. Past-dated starts are allowed.
func (e *Engine) Book(ctx context.Context, userID string, slotID int64, start, end time.Time) (*model.Reservation, error) {
	start, end = start.UTC(), end.UTC()
	if start.IsZero() || end.IsZero() {
		return nil, apperr.New(apperr.Validation, "startTime and endTime are required")
	}
	if !end.After(start) {
		return nil, apperr.New(apperr.Validation, "endTime must be after startTime")
	}

	if _, err := e.store.UserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, err
	}

	slot, err := e.store.SlotByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "slot not found")
		}
		return nil, err
	}
	if !slot.Active {
		return nil, apperr.New(apperr.Inactive, "slot is deactivated")
	}
	lot, err := e.store.LotByID(ctx, slot.LotID)
	if err != nil {
		return nil, err
	}
	if !lot.Active {
		return nil, apperr.New(apperr.Inactive, "parking lot is deactivated")
	}

	r := &model.Reservation{
		SlotID:    slotID,
		UserID:    userID,
		StartTime: start,
		EndTime:   end,
	}
	for attempt := 0; ; attempt++ {
		err = e.store.CreateReservation(ctx, r)
		switch {
		case err == nil:
			return r, nil
		case errors.Is(err, store.ErrOverlap):
			return nil, apperr.New(apperr.Conflict, "slot is already reserved for this interval")
		case errors.Is(err, store.ErrLockTimeout) && attempt < bookRetries:
			continue
		case errors.Is(err, store.ErrLockTimeout):
			return nil, apperr.New(apperr.Conflict, "slot is busy, retry the booking")
		default:
			return nil, err
		}
	}
}

// Cancel flips a reservation to cancelled. Only the owner or an admin
// may cancel; past or already-cancelled reservations are terminal.
func (e *Engine) Cancel(ctx context.Context, requester *model.User, reservationID int64) error {
	r, err := e.store.ReservationByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.NotFound, "reservation not found")
		}
		return err
	}

	if r.UserID != requester.ID && requester.Role != model.RoleAdmin {
		return apperr.New(apperr.Forbidden, "not your reservation")
	}

	switch r.Status(e.now()) {
	case model.StatusCancelled:
		return apperr.New(apperr.InvalidState, "reservation is already cancelled")
	case model.StatusPast:
		return apperr.New(apperr.InvalidState, "reservation is already over")
	}

	if err := e.store.CancelReservation(ctx, reservationID); err != nil {
		if errors.Is(err, store.ErrAlreadyCancelled) {
			// lost a cancel race after the status check
			return apperr.New(apperr.InvalidState, "reservation is already cancelled")
		}
		return err
	}
	return nil
}

// ListAvailable returns active slots in active lots with no
// overlapping reservation over [start,end), id ascending. lotID 0
// means any lot.
func (e *Engine) ListAvailable(ctx context.Context, lotID int64, start, end time.Time) ([]model.Slot, error) {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return nil, apperr.New(apperr.Validation, "endTime must be after startTime")
	}
	return e.store.AvailableSlots(ctx, lotID, start, end)
}

// ListUpcoming returns the user's non-cancelled reservations that have
// not ended yet, start ascending.
func (e *Engine) ListUpcoming(ctx context.Context, userID string) ([]model.ReservationDetail, error) {
	out, err := e.store.UpcomingByUser(ctx, userID, e.now())
	if err != nil {
		return nil, err
	}
	e.stamp(out)
	return out, nil
}

// ListHistory returns everything the user ever booked, most recent
// start first, cancelled included.
func (e *Engine) ListHistory(ctx context.Context, userID string) ([]model.ReservationDetail, error) {
	out, err := e.store.ReservationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	e.stamp(out)
	return out, nil
}

// CurrentOccupancy returns the reservations whose interval contains
// this instant, joined for display. Recomputed on every call.
func (e *Engine) CurrentOccupancy(ctx context.Context) ([]model.OccupancyEntry, error) {
	return e.store.ActiveAt(ctx, e.now())
}

func (e *Engine) stamp(ds []model.ReservationDetail) {
	now := e.now()
	for i := range ds {
		ds[i].StatusNow = ds[i].Status(now)
	}
}
