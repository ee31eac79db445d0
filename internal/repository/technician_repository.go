package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// workWhere builds the WHERE clause shared by the technician work tables.
// dated is false for tool requests, which have no day column.
func workWhere(f WorkFilter, dated bool) (string, []any) {
	where := []string{"1=1"}
	args := []any{}
	if f.TechnicianID != "" {
		where = append(where, "technician_id=?")
		args = append(args, f.TechnicianID)
	}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if dated && f.From != "" {
		where = append(where, "day>=?")
		args = append(args, f.From)
	}
	if dated && f.To != "" {
		where = append(where, "day<=?")
		args = append(args, f.To)
	}
	return strings.Join(where, " AND "), args
}

func countRows(ctx context.Context, db *sql.DB, table, cond string, args []any) (int64, error) {
	var total int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE "+cond, args...).Scan(&total)
	return total, err
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AttendanceRepo is the MySQL AttendanceRepository.
type AttendanceRepo struct{ db *sql.DB }

func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

const attendanceColumns = "id, technician_id, day, check_in_at, check_out_at, status, created_at, updated_at"

func scanAttendance(row rowScanner) (*model.Attendance, error) {
	var (
		a   model.Attendance
		out sql.NullTime
	)
	err := row.Scan(&a.ID, &a.TechnicianID, &a.Day, &a.CheckInAt, &out, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if out.Valid {
		a.CheckOutAt = &out.Time
	}
	return &a, nil
}

// Create inserts the check-in; a second one for the same day yields ErrDuplicate.
func (r *AttendanceRepo) Create(ctx context.Context, a *model.Attendance) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, "INSERT INTO attendances ("+attendanceColumns+") VALUES (?,?,?,?,?,?,?,?)",
		a.ID, a.TechnicianID, a.Day, a.CheckInAt, a.CheckOutAt, a.Status, now, now)
	return mapWriteErr(err)
}

func (r *AttendanceRepo) GetByID(ctx context.Context, id string) (*model.Attendance, error) {
	return scanAttendance(r.db.QueryRowContext(ctx, "SELECT "+attendanceColumns+" FROM attendances WHERE id=?", id))
}

func (r *AttendanceRepo) GetByDay(ctx context.Context, technicianID, day string) (*model.Attendance, error) {
	return scanAttendance(r.db.QueryRowContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendances WHERE technician_id=? AND day=?", technicianID, day))
}

func (r *AttendanceRepo) List(ctx context.Context, f WorkFilter) ([]model.Attendance, int64, error) {
	cond, args := workWhere(f, true)
	total, err := countRows(ctx, r.db, "attendances", cond, args)
	if err != nil {
		return nil, 0, err
	}
	limit, offset := Offset(f.Page, f.Limit, 31)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendances WHERE "+cond+" ORDER BY day DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Attendance{}
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

func (r *AttendanceRepo) Update(ctx context.Context, a *model.Attendance) error {
	a.UpdatedAt = time.Now().UTC()
	return affectedOrNotFound(r.db.ExecContext(ctx,
		"UPDATE attendances SET check_out_at=?, status=?, updated_at=? WHERE id=?",
		a.CheckOutAt, a.Status, a.UpdatedAt, a.ID))
}

// LeaveRepo is the MySQL LeaveRepository.
type LeaveRepo struct{ db *sql.DB }

func NewLeaveRepo(db *sql.DB) *LeaveRepo { return &LeaveRepo{db: db} }

const leaveColumns = "id, technician_id, day, reason, status, created_at, updated_at"

func scanLeave(row rowScanner) (*model.Leave, error) {
	var l model.Leave
	if err := row.Scan(&l.ID, &l.TechnicianID, &l.Day, &l.Reason, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LeaveRepo) Create(ctx context.Context, l *model.Leave) error {
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, "INSERT INTO leaves ("+leaveColumns+") VALUES (?,?,?,?,?,?,?)",
		l.ID, l.TechnicianID, l.Day, l.Reason, l.Status, now, now)
	return mapWriteErr(err)
}

func (r *LeaveRepo) GetByID(ctx context.Context, id string) (*model.Leave, error) {
	return scanLeave(r.db.QueryRowContext(ctx, "SELECT "+leaveColumns+" FROM leaves WHERE id=?", id))
}

func (r *LeaveRepo) List(ctx context.Context, f WorkFilter) ([]model.Leave, int64, error) {
	cond, args := workWhere(f, true)
	total, err := countRows(ctx, r.db, "leaves", cond, args)
	if err != nil {
		return nil, 0, err
	}
	limit, offset := Offset(f.Page, f.Limit, 20)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+leaveColumns+" FROM leaves WHERE "+cond+" ORDER BY day DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Leave{}
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

func (r *LeaveRepo) Update(ctx context.Context, l *model.Leave) error {
	l.UpdatedAt = time.Now().UTC()
	return affectedOrNotFound(r.db.ExecContext(ctx,
		"UPDATE leaves SET reason=?, status=?, updated_at=? WHERE id=?", l.Reason, l.Status, l.UpdatedAt, l.ID))
}

// ToolRequestRepo is the MySQL ToolRequestRepository.
type ToolRequestRepo struct{ db *sql.DB }

func NewToolRequestRepo(db *sql.DB) *ToolRequestRepo { return &ToolRequestRepo{db: db} }

const toolColumns = "id, technician_id, tool_name, quantity, reason, status, created_at, updated_at"

func scanTool(row rowScanner) (*model.ToolRequest, error) {
	var t model.ToolRequest
	err := row.Scan(&t.ID, &t.TechnicianID, &t.ToolName, &t.Quantity, &t.Reason, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *ToolRequestRepo) Create(ctx context.Context, t *model.ToolRequest) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, "INSERT INTO tool_requests ("+toolColumns+") VALUES (?,?,?,?,?,?,?,?)",
		t.ID, t.TechnicianID, t.ToolName, t.Quantity, t.Reason, t.Status, now, now)
	return mapWriteErr(err)
}

func (r *ToolRequestRepo) GetByID(ctx context.Context, id string) (*model.ToolRequest, error) {
	return scanTool(r.db.QueryRowContext(ctx, "SELECT "+toolColumns+" FROM tool_requests WHERE id=?", id))
}

func (r *ToolRequestRepo) List(ctx context.Context, f WorkFilter) ([]model.ToolRequest, int64, error) {
	cond, args := workWhere(f, false)
	total, err := countRows(ctx, r.db, "tool_requests", cond, args)
	if err != nil {
		return nil, 0, err
	}
	limit, offset := Offset(f.Page, f.Limit, 20)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+toolColumns+" FROM tool_requests WHERE "+cond+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.ToolRequest{}
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func (r *ToolRequestRepo) Update(ctx context.Context, t *model.ToolRequest) error {
	t.UpdatedAt = time.Now().UTC()
	return affectedOrNotFound(r.db.ExecContext(ctx,
		"UPDATE tool_requests SET status=?, updated_at=? WHERE id=?", t.Status, t.UpdatedAt, t.ID))
}
