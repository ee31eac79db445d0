package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// CouponRepo is the MySQL CouponRepository.
type CouponRepo struct{ db *sql.DB }

func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

const couponColumns = "id, coupon_code, discount, min_value, expiry_date, is_active, created_at, updated_at"

func scanCoupon(row rowScanner) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(&c.ID, &c.CouponCode, &c.Discount, &c.MinValue, &c.ExpiryDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts the coupon; a taken code yields ErrDuplicate.
func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO coupons ("+couponColumns+") VALUES (?,?,?,?,?,?,?,?)",
		c.ID, c.CouponCode, c.Discount, c.MinValue, c.ExpiryDate, c.IsActive, now, now)
	return mapWriteErr(err)
}

func (r *CouponRepo) GetByID(ctx context.Context, id string) (*model.Coupon, error) {
	return scanCoupon(r.db.QueryRowContext(ctx, "SELECT "+couponColumns+" FROM coupons WHERE id=?", id))
}

func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return scanCoupon(r.db.QueryRowContext(ctx, "SELECT "+couponColumns+" FROM coupons WHERE coupon_code=?", code))
}

func (r *CouponRepo) List(ctx context.Context, f CouponFilter) ([]model.Coupon, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.ActiveOnly {
		where = append(where, "is_active=1 AND expiry_date >= ?")
		args = append(args, time.Now().UTC())
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "coupon_code LIKE ?")
		args = append(args, "%"+strings.ToUpper(s)+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM coupons WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := Offset(f.Page, f.Limit, 20)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+couponColumns+" FROM coupons WHERE "+cond+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *CouponRepo) Update(ctx context.Context, c *model.Coupon) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"UPDATE coupons SET coupon_code=?, discount=?, min_value=?, expiry_date=?, is_active=?, updated_at=? WHERE id=?",
		c.CouponCode, c.Discount, c.MinValue, c.ExpiryDate, c.IsActive, c.UpdatedAt, c.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
