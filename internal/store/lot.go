package store

import (
	"context"

	"parkease-api/internal/model"
)

func (s *Postgres) CreateLot(ctx context.Context, l *model.Lot) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO lots (name, location) VALUES ($1,$2)
		 RETURNING id, active, created_at`,
		l.Name, l.Location,
	).Scan(&l.ID, &l.Active, &l.CreatedAt)
	return mapPgErr(err)
}

func (s *Postgres) Lots(ctx context.Context) ([]model.Lot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, location, active, created_at FROM lots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Lot
	for rows.Next() {
		var l model.Lot
		if err := rows.Scan(&l.ID, &l.Name, &l.Location, &l.Active, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Postgres) LotByID(ctx context.Context, id int64) (*model.Lot, error) {
	l := &model.Lot{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, location, active, created_at FROM lots WHERE id = $1`, id,
	).Scan(&l.ID, &l.Name, &l.Location, &l.Active, &l.CreatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return l, nil
}

func (s *Postgres) ToggleLot(ctx context.Context, id int64) (*model.Lot, error) {
	l := &model.Lot{}
	err := s.pool.QueryRow(ctx,
		`UPDATE lots SET active = NOT active WHERE id = $1
		 RETURNING id, name, location, active, created_at`, id,
	).Scan(&l.ID, &l.Name, &l.Location, &l.Active, &l.CreatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return l, nil
}
