// Package memstore is an in-memory Store with the same semantics as
// the Postgres implementation. It backs the test suite and
// single-process deployments where no database is configured. One
// coarse lock covers all state; it is never held across I/O, so the
// commit atomicity matches the per-slot boundary of the SQL store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"parkease-api/internal/availability"
	"parkease-api/internal/model"
	"parkease-api/internal/store"
)

type Store struct {
	mu sync.RWMutex

	users        map[string]*model.User
	usersByEmail map[string]string
	lots         map[int64]*model.Lot
	slots        map[int64]*model.Slot
	reservations map[int64]*model.Reservation
	refresh      map[string]*store.RefreshToken

	index  *availability.Index
	nextID int64
}

func New() *Store {
	return &Store{
		users:        make(map[string]*model.User),
		usersByEmail: make(map[string]string),
		lots:         make(map[int64]*model.Lot),
		slots:        make(map[int64]*model.Slot),
		reservations: make(map[int64]*model.Reservation),
		refresh:      make(map[string]*store.RefreshToken),
		index:        availability.NewIndex(),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// ----- users -----

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := s.users[u.ID]; ok {
		return store.ErrDuplicate
	}
	if _, ok := s.usersByEmail[key]; ok {
		return store.ErrDuplicate
	}
	u.CreatedAt = time.Now().UTC()
	cp := *u
	s.users[u.ID] = &cp
	s.usersByEmail[key] = u.ID
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Store) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ----- lots -----

func (s *Store) CreateLot(_ context.Context, l *model.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.id()
	l.Active = true
	l.CreatedAt = time.Now().UTC()
	cp := *l
	s.lots[l.ID] = &cp
	return nil
}

func (s *Store) Lots(_ context.Context) ([]model.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Lot, 0, len(s.lots))
	for _, l := range s.lots {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) LotByID(_ context.Context, id int64) (*model.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *Store) ToggleLot(_ context.Context, id int64) (*model.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	l.Active = !l.Active
	cp := *l
	return &cp, nil
}

// ----- slots -----

func (s *Store) CreateSlot(_ context.Context, sl *model.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lots[sl.LotID]; !ok {
		return store.ErrNotFound
	}
	if s.numberTaken(sl.LotID, sl.Number, 0) {
		return store.ErrDuplicate
	}
	sl.ID = s.id()
	sl.Active = true
	sl.CreatedAt = time.Now().UTC()
	cp := *sl
	s.slots[sl.ID] = &cp
	return nil
}

func (s *Store) UpdateSlot(_ context.Context, sl *model.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.slots[sl.ID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := s.lots[sl.LotID]; !ok {
		return store.ErrNotFound
	}
	if s.numberTaken(sl.LotID, sl.Number, sl.ID) {
		return store.ErrDuplicate
	}
	cur.LotID = sl.LotID
	cur.Number = sl.Number
	cur.Type = sl.Type
	sl.Active = cur.Active
	sl.CreatedAt = cur.CreatedAt
	return nil
}

func (s *Store) numberTaken(lotID int64, number int, excludeID int64) bool {
	for _, other := range s.slots {
		if other.LotID == lotID && other.Number == number && other.ID != excludeID {
			return true
		}
	}
	return false
}

func (s *Store) Slots(_ context.Context) ([]model.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Slot, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, *sl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SlotByID(_ context.Context, id int64) (*model.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sl
	return &cp, nil
}

func (s *Store) ToggleSlot(_ context.Context, id int64) (*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sl.Active = !sl.Active
	cp := *sl
	return &cp, nil
}

func (s *Store) AvailableSlots(_ context.Context, lotID int64, start, end time.Time) ([]model.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Slot
	for _, sl := range s.slots {
		if !sl.Active {
			continue
		}
		if lotID != 0 && sl.LotID != lotID {
			continue
		}
		lot, ok := s.lots[sl.LotID]
		if !ok || !lot.Active {
			continue
		}
		if s.index.Conflicts(sl.ID, start, end) {
			continue
		}
		out = append(out, *sl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ----- reservations -----

func (s *Store) CreateReservation(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index.Conflicts(r.SlotID, r.StartTime, r.EndTime) {
		return store.ErrOverlap
	}
	r.ID = s.id()
	r.CreatedAt = time.Now().UTC()
	cp := *r
	s.reservations[r.ID] = &cp
	s.index.Insert(r.SlotID, r.StartTime, r.EndTime)
	return nil
}

func (s *Store) CancelReservation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return store.ErrNotFound
	}
	if r.Cancelled {
		return store.ErrAlreadyCancelled
	}
	r.Cancelled = true
	s.index.Remove(r.SlotID, r.StartTime, r.EndTime)
	return nil
}

func (s *Store) ReservationByID(_ context.Context, id int64) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ReservationsByUser(_ context.Context, userID string) ([]model.ReservationDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ReservationDetail
	for _, r := range s.reservations {
		if r.UserID != userID {
			continue
		}
		out = append(out, s.detail(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (s *Store) UpcomingByUser(_ context.Context, userID string, now time.Time) ([]model.ReservationDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ReservationDetail
	for _, r := range s.reservations {
		if r.UserID != userID || r.Cancelled || !r.EndTime.After(now) {
			continue
		}
		out = append(out, s.detail(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *Store) ActiveAt(_ context.Context, now time.Time) ([]model.OccupancyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.OccupancyEntry
	for _, r := range s.reservations {
		if r.Cancelled || r.StartTime.After(now) || !r.EndTime.After(now) {
			continue
		}
		e := model.OccupancyEntry{
			ReservationID: r.ID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
		}
		if sl, ok := s.slots[r.SlotID]; ok {
			e.SlotNumber = sl.Number
			if lot, ok := s.lots[sl.LotID]; ok {
				e.LotName = lot.Name
			}
		}
		if u, ok := s.users[r.UserID]; ok {
			e.UserName = u.Name
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationID < out[j].ReservationID })
	return out, nil
}

func (s *Store) detail(r *model.Reservation) model.ReservationDetail {
	d := model.ReservationDetail{Reservation: *r}
	if sl, ok := s.slots[r.SlotID]; ok {
		d.SlotNumber = sl.Number
		if lot, ok := s.lots[sl.LotID]; ok {
			d.LotName = lot.Name
		}
	}
	return d
}

// ----- refresh tokens -----

func (s *Store) CreateRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.refresh[tokenHash] = &store.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

func (s *Store) RefreshTokenByHash(_ context.Context, tokenHash string) (*store.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.refresh[tokenHash]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (s *Store) RotateRefreshToken(_ context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.refresh {
		if rt.ID == oldID {
			rt.Revoked = true
			replaced := newID
			rt.ReplacedBy = &replaced
		}
	}
	s.refresh[newHash] = &store.RefreshToken{
		ID:        newID,
		UserID:    userID,
		TokenHash: newHash,
		ExpiresAt: newExpiry,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *Store) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.refresh {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}
