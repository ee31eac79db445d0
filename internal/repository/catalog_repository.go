package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// ServiceRepo is the MySQL ServiceRepository.
type ServiceRepo struct{ db *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceColumns = "id, name, price, is_active, created_at, updated_at"

func scanService(row rowScanner) (*model.Service, error) {
	var s model.Service
	if err := row.Scan(&s.ID, &s.Name, &s.Price, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ServiceRepo) Create(ctx context.Context, s *model.Service) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, "INSERT INTO services ("+serviceColumns+") VALUES (?,?,?,?,?,?)",
		s.ID, s.Name, s.Price, s.IsActive, now, now)
	return mapWriteErr(err)
}

func (r *ServiceRepo) GetByID(ctx context.Context, id string) (*model.Service, error) {
	return scanService(r.db.QueryRowContext(ctx, "SELECT "+serviceColumns+" FROM services WHERE id=?", id))
}

func (r *ServiceRepo) List(ctx context.Context, activeOnly bool) ([]model.Service, error) {
	q := "SELECT " + serviceColumns + " FROM services"
	if activeOnly {
		q += " WHERE is_active=1"
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *ServiceRepo) Update(ctx context.Context, s *model.Service) error {
	s.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, "UPDATE services SET name=?, price=?, is_active=?, updated_at=? WHERE id=?",
		s.Name, s.Price, s.IsActive, s.UpdatedAt, s.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddressRepo is the MySQL AddressRepository.
type AddressRepo struct{ db *sql.DB }

func NewAddressRepo(db *sql.DB) *AddressRepo { return &AddressRepo{db: db} }

const addressColumns = "id, user_id, line1, line2, city, state, pincode, landmark, created_at, updated_at"

func scanAddress(row rowScanner) (*model.Address, error) {
	var a model.Address
	err := row.Scan(&a.ID, &a.UserID, &a.Line1, &a.Line2, &a.City, &a.State, &a.Pincode, &a.Landmark,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AddressRepo) Create(ctx context.Context, a *model.Address) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, "INSERT INTO addresses ("+addressColumns+") VALUES (?,?,?,?,?,?,?,?,?,?)",
		a.ID, a.UserID, a.Line1, a.Line2, a.City, a.State, a.Pincode, a.Landmark, now, now)
	return mapWriteErr(err)
}

func (r *AddressRepo) GetByID(ctx context.Context, id string) (*model.Address, error) {
	return scanAddress(r.db.QueryRowContext(ctx, "SELECT "+addressColumns+" FROM addresses WHERE id=?", id))
}

func (r *AddressRepo) ListByUser(ctx context.Context, userID string) ([]model.Address, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE user_id=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AddressRepo) Update(ctx context.Context, a *model.Address) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"UPDATE addresses SET line1=?, line2=?, city=?, state=?, pincode=?, landmark=?, updated_at=? WHERE id=?",
		a.Line1, a.Line2, a.City, a.State, a.Pincode, a.Landmark, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AddressRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM addresses WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
