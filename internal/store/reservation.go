package store

import (
	"context"
	"time"

	"parkease-api/internal/model"
)

// CreateReservation serializes check-then-insert per slot with a
// transaction-scoped advisory lock, re-checks overlap under the lock,
// and inserts. The exclusion constraint in the schema backstops any
// race. The lock wait is bounded; contention surfaces as
// ErrLockTimeout so callers can retry instead of blocking.
func (s *Postgres) CreateReservation(ctx context.Context, r *model.Reservation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '2s'`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, r.SlotID); err != nil {
		return mapPgErr(err)
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM reservations
		   WHERE slot_id = $1
		     AND NOT cancelled
		     AND start_time < $3
		     AND end_time > $2)`,
		r.SlotID, r.StartTime, r.EndTime,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrOverlap
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO reservations (slot_id, user_id, start_time, end_time)
		 VALUES ($1,$2,$3,$4)
		 RETURNING id, created_at`,
		r.SlotID, r.UserID, r.StartTime, r.EndTime,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return mapPgErr(err)
	}

	return tx.Commit(ctx)
}

func (s *Postgres) CancelReservation(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reservations SET cancelled = true
		 WHERE id = $1 AND NOT cancelled`, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// distinguish unknown id from a lost cancel race
		if _, err := s.ReservationByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyCancelled
	}
	return nil
}

func (s *Postgres) ReservationByID(ctx context.Context, id int64) (*model.Reservation, error) {
	r := &model.Reservation{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, slot_id, user_id, start_time, end_time, cancelled, created_at
		 FROM reservations WHERE id = $1`, id,
	).Scan(&r.ID, &r.SlotID, &r.UserID, &r.StartTime, &r.EndTime, &r.Cancelled, &r.CreatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return r, nil
}

// ReservationsByUser is the history projection: everything the user
// ever booked, most recent start first.
func (s *Postgres) ReservationsByUser(ctx context.Context, userID string) ([]model.ReservationDetail, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.slot_id, r.user_id, r.start_time, r.end_time, r.cancelled, r.created_at,
		        s.number, l.name
		 FROM reservations r
		 JOIN slots s ON s.id = r.slot_id
		 JOIN lots l ON l.id = s.lot_id
		 WHERE r.user_id = $1
		 ORDER BY r.start_time DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDetails(rows)
}

func (s *Postgres) UpcomingByUser(ctx context.Context, userID string, now time.Time) ([]model.ReservationDetail, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.slot_id, r.user_id, r.start_time, r.end_time, r.cancelled, r.created_at,
		        s.number, l.name
		 FROM reservations r
		 JOIN slots s ON s.id = r.slot_id
		 JOIN lots l ON l.id = s.lot_id
		 WHERE r.user_id = $1
		   AND NOT r.cancelled
		   AND r.end_time > $2
		 ORDER BY r.start_time`, userID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDetails(rows)
}

// ActiveAt drives the occupancy view: non-cancelled reservations whose
// interval contains the given instant.
func (s *Postgres) ActiveAt(ctx context.Context, now time.Time) ([]model.OccupancyEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, s.number, l.name, u.name, r.start_time, r.end_time
		 FROM reservations r
		 JOIN slots s ON s.id = r.slot_id
		 JOIN lots l ON l.id = s.lot_id
		 JOIN users u ON u.id = r.user_id
		 WHERE NOT r.cancelled
		   AND r.start_time <= $1
		   AND r.end_time > $1
		 ORDER BY s.id`, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OccupancyEntry
	for rows.Next() {
		var e model.OccupancyEntry
		if err := rows.Scan(&e.ReservationID, &e.SlotNumber, &e.LotName, &e.UserName, &e.StartTime, &e.EndTime); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanDetails(rows slotRows) ([]model.ReservationDetail, error) {
	var out []model.ReservationDetail
	for rows.Next() {
		var d model.ReservationDetail
		if err := rows.Scan(
			&d.ID, &d.SlotID, &d.UserID, &d.StartTime, &d.EndTime, &d.Cancelled, &d.CreatedAt,
			&d.SlotNumber, &d.LotName,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
