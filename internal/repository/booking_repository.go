package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// BookingRepo is the MySQL BookingRepository. Service details, the address
// snapshot, order items and the coupon snapshot live in JSON columns.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.booking_id, b.user_id, b.name, b.service_details, b.address, b.slot, b.date,
	b.amount, b.status, b.assigned_to, b.order_items, b.coupon_code, b.coupon_details,
	b.discount_amount, b.discounted_total, b.is_coupon_apply, b.created_at, b.updated_at`

// bookingJSON holds the encoded JSON columns of a booking.
type bookingJSON struct {
	services, address, items, coupon []byte
}

func encodeBooking(b *model.Booking) (bookingJSON, error) {
	var (
		out bookingJSON
		err error
	)
	details := b.ServiceDetails
	if details == nil {
		details = []model.ServiceDetail{}
	}
	items := b.OrderItems
	if items == nil {
		items = []model.OrderItem{}
	}
	if out.services, err = json.Marshal(details); err != nil {
		return out, err
	}
	if out.address, err = json.Marshal(b.Address); err != nil {
		return out, err
	}
	if out.items, err = json.Marshal(items); err != nil {
		return out, err
	}
	if b.CouponDetails != nil {
		if out.coupon, err = json.Marshal(b.CouponDetails); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	enc, err := encodeBooking(b)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	const q = `INSERT INTO bookings (id, booking_id, user_id, name, service_details, address, slot, date, amount,
		status, assigned_to, order_items, coupon_code, coupon_details, discount_amount, discounted_total,
		is_coupon_apply, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err = r.db.ExecContext(ctx, q, b.ID, b.BookingID, b.UserID, b.Name, enc.services, enc.address, b.Slot,
		b.Date, b.Amount, b.Status, b.AssignedTo, enc.items, b.CouponCode, enc.coupon, b.DiscountAmount,
		b.DiscountedTotal, b.IsCouponApply, now, now)
	return mapWriteErr(err)
}

// scanBooking reads bookingColumns and, when withParties is set, the joined
// user and technician columns that follow them.
func scanBooking(row rowScanner, withParties bool) (*model.BookingDetail, error) {
	var (
		d                                model.BookingDetail
		services, address, items, coupon []byte
		assigned                         sql.NullString
		uName, uPhone                    sql.NullString
		tID, tName, tPhone               sql.NullString
	)
	b := &d.Booking
	dest := []any{&b.ID, &b.BookingID, &b.UserID, &b.Name, &services, &address, &b.Slot, &b.Date,
		&b.Amount, &b.Status, &assigned, &items, &b.CouponCode, &coupon,
		&b.DiscountAmount, &b.DiscountedTotal, &b.IsCouponApply, &b.CreatedAt, &b.UpdatedAt}
	if withParties {
		dest = append(dest, &uName, &uPhone, &tID, &tName, &tPhone)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if assigned.Valid {
		b.AssignedTo = &assigned.String
	}
	if err := json.Unmarshal(services, &b.ServiceDetails); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(address, &b.Address); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &b.OrderItems); err != nil {
		return nil, err
	}
	if len(coupon) > 0 && string(coupon) != "null" {
		b.CouponDetails = &model.CouponSnapshot{}
		if err := json.Unmarshal(coupon, b.CouponDetails); err != nil {
			return nil, err
		}
	}
	if withParties {
		if uName.Valid || uPhone.Valid {
			d.User = &model.PartyRef{ID: b.UserID, Name: uName.String, Phone: uPhone.String}
		}
		if tID.Valid {
			d.Technician = &model.PartyRef{ID: tID.String, Name: tName.String, Phone: tPhone.String}
		}
	}
	return &d, nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	d, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings b WHERE b.id=?", id), false)
	if err != nil {
		return nil, err
	}
	return &d.Booking, nil
}

const bookingJoin = ` FROM bookings b
	LEFT JOIN users u       ON u.id = b.user_id
	LEFT JOIN technicians t ON t.id = b.assigned_to`

const partyColumns = `, u.name, CONCAT(u.country_code, u.phone), t.id, t.name, CONCAT(t.country_code, t.phone)`

// GetDetail returns the booking joined with its user and technician.
func (r *BookingRepo) GetDetail(ctx context.Context, id string) (*model.BookingDetail, error) {
	q := "SELECT " + bookingColumns + partyColumns + bookingJoin + " WHERE b.id=?"
	return scanBooking(r.db.QueryRowContext(ctx, q, id), true)
}

// Update rewrites the mutable columns. booking_id, user_id and created_at
// never change.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	enc, err := encodeBooking(b)
	if err != nil {
		return err
	}
	b.UpdatedAt = time.Now().UTC()
	const q = `UPDATE bookings SET name=?, service_details=?, address=?, slot=?, date=?, amount=?, status=?,
		assigned_to=?, order_items=?, coupon_code=?, coupon_details=?, discount_amount=?, discounted_total=?,
		is_coupon_apply=?, updated_at=? WHERE id=?`
	res, err := r.db.ExecContext(ctx, q, b.Name, enc.services, enc.address, b.Slot, b.Date, b.Amount, b.Status,
		b.AssignedTo, enc.items, b.CouponCode, enc.coupon, b.DiscountAmount, b.DiscountedTotal,
		b.IsCouponApply, b.UpdatedAt, b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
