package store

import (
	"context"
	"time"

	"parkease-api/internal/model"
)

func (s *Postgres) CreateSlot(ctx context.Context, sl *model.Slot) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO slots (lot_id, number, type) VALUES ($1,$2,$3)
		 RETURNING id, active, created_at`,
		sl.LotID, sl.Number, sl.Type,
	).Scan(&sl.ID, &sl.Active, &sl.CreatedAt)
	return mapPgErr(err)
}

func (s *Postgres) UpdateSlot(ctx context.Context, sl *model.Slot) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE slots SET lot_id=$1, number=$2, type=$3 WHERE id=$4
		 RETURNING active, created_at`,
		sl.LotID, sl.Number, sl.Type, sl.ID,
	).Scan(&sl.Active, &sl.CreatedAt)
	return mapPgErr(err)
}

func (s *Postgres) Slots(ctx context.Context) ([]model.Slot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lot_id, number, type, active, created_at
		 FROM slots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

func (s *Postgres) SlotByID(ctx context.Context, id int64) (*model.Slot, error) {
	sl := &model.Slot{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, lot_id, number, type, active, created_at
		 FROM slots WHERE id = $1`, id,
	).Scan(&sl.ID, &sl.LotID, &sl.Number, &sl.Type, &sl.Active, &sl.CreatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return sl, nil
}

func (s *Postgres) ToggleSlot(ctx context.Context, id int64) (*model.Slot, error) {
	sl := &model.Slot{}
	err := s.pool.QueryRow(ctx,
		`UPDATE slots SET active = NOT active WHERE id = $1
		 RETURNING id, lot_id, number, type, active, created_at`, id,
	).Scan(&sl.ID, &sl.LotID, &sl.Number, &sl.Type, &sl.Active, &sl.CreatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return sl, nil
}

// AvailableSlots returns active slots in active lots with no
// overlapping non-cancelled reservation over [start,end), id
// ascending. lotID 0 means any lot.
func (s *Postgres) AvailableSlots(ctx context.Context, lotID int64, start, end time.Time) ([]model.Slot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.lot_id, s.number, s.type, s.active, s.created_at
		 FROM slots s
		 JOIN lots l ON l.id = s.lot_id
		 WHERE s.active AND l.active
		   AND ($1 = 0 OR s.lot_id = $1)
		   AND NOT EXISTS (
		     SELECT 1 FROM reservations r
		     WHERE r.slot_id = s.id
		       AND NOT r.cancelled
		       AND r.start_time < $3
		       AND r.end_time > $2)
		 ORDER BY s.id`, lotID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

type slotRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSlots(rows slotRows) ([]model.Slot, error) {
	var out []model.Slot
	for rows.Next() {
		var sl model.Slot
		if err := rows.Scan(&sl.ID, &sl.LotID, &sl.Number, &sl.Type, &sl.Active, &sl.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}
