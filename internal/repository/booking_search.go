package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// bookingSortColumns whitelists the sortable fields of a booking list.
var bookingSortColumns = map[string]string{
	"createdAt": "b.created_at",
	"date":      "b.date",
	"amount":    "b.amount",
	"bookingId": "b.booking_id",
	"status":    "b.status",
}

// List filters, searches and pages bookings. Search matches the booking id,
// the user's name and phone, the technician's name and the address snapshot.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.BookingDetail, int64, error) {
	where := []string{}
	args := []any{}

	if f.UserID != "" {
		where = append(where, "b.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.TechnicianID != "" {
		where = append(where, "b.assigned_to = ?")
		args = append(args, f.TechnicianID)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "b.status IN (?"+strings.Repeat(",?", len(f.Statuses)-1)+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if f.From != nil {
		where = append(where, "b.date >= ?")
		args = append(args, f.From.Format("2006-01-02"))
	}
	if f.To != nil {
		where = append(where, "b.date <= ?")
		args = append(args, f.To.Format("2006-01-02"))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		where = append(where, `(LOWER(b.booking_id) LIKE ?
			OR LOWER(u.name) LIKE ?
			OR u.phone LIKE ?
			OR LOWER(t.name) LIKE ?
			OR LOWER(CAST(b.address AS CHAR)) LIKE ?)`)
		args = append(args, like, like, like, like, like)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+bookingJoin+" WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := bookingSortColumns[f.SortBy]
	if !ok {
		col = "b.created_at"
	}
	dir := "ASC"
	if f.SortDesc || f.SortBy == "" {
		dir = "DESC"
	}
	limit, offset := Offset(f.Page, f.Limit, 20)

	q := "SELECT " + bookingColumns + partyColumns + bookingJoin + " WHERE " + cond +
		" ORDER BY " + col + " " + dir + ", b.id ASC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.BookingDetail{}
	for rows.Next() {
		d, err := scanBooking(rows, true)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}
