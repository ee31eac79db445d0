package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// identityTables maps each role to its table. Table names never come from
// user input.
var identityTables = map[model.Role]string{
	model.RoleAdmin:      "admins",
	model.RoleUser:       "users",
	model.RoleTechnician: "technicians",
}

const identityColumns = `id, name, country_code, phone, status,
	COALESCE(refresh_token_hash, ''), COALESCE(device_token, ''), created_at, updated_at`

// IdentityRepo is the MySQL IdentityRepository for a single role.
type IdentityRepo struct {
	db    *sql.DB
	role  model.Role
	table string
}

// NewIdentityRepo returns the repository backing role.
func NewIdentityRepo(db *sql.DB, role model.Role) *IdentityRepo {
	table, ok := identityTables[role]
	if !ok {
		panic(fmt.Sprintf("repository: unknown role %q", role))
	}
	return &IdentityRepo{db: db, role: role, table: table}
}

func (r *IdentityRepo) Role() model.Role { return r.role }

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *IdentityRepo) scan(row rowScanner) (*model.Identity, error) {
	var i model.Identity
	err := row.Scan(&i.ID, &i.Name, &i.CountryCode, &i.Phone, &i.Status,
		&i.RefreshTokenHash, &i.DeviceToken, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	i.Role = r.role
	return &i, nil
}

// Create inserts the identity. A taken (country code, phone) pair yields
// ErrDuplicate.
func (r *IdentityRepo) Create(ctx context.Context, i *model.Identity) error {
	now := time.Now().UTC()
	i.CreatedAt, i.UpdatedAt, i.Role = now, now, r.role
	q := "INSERT INTO " + r.table + " (id, name, country_code, phone, status, created_at, updated_at) VALUES (?,?,?,?,?,?,?)"
	_, err := r.db.ExecContext(ctx, q, i.ID, i.Name, i.CountryCode, i.Phone, i.Status, now, now)
	return mapWriteErr(err)
}

func (r *IdentityRepo) GetByID(ctx context.Context, id string) (*model.Identity, error) {
	q := "SELECT " + identityColumns + " FROM " + r.table + " WHERE id=? LIMIT 1"
	return r.scan(r.db.QueryRowContext(ctx, q, id))
}

func (r *IdentityRepo) GetByPhone(ctx context.Context, countryCode, phone string) (*model.Identity, error) {
	q := "SELECT " + identityColumns + " FROM " + r.table + " WHERE country_code=? AND phone=? LIMIT 1"
	return r.scan(r.db.QueryRowContext(ctx, q, countryCode, phone))
}

// List returns a page of identities, newest first, plus the total count.
func (r *IdentityRepo) List(ctx context.Context, f IdentityFilter) ([]model.Identity, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(LOWER(name) LIKE ? OR phone LIKE ?)")
		like := "%" + strings.ToLower(s) + "%"
		args = append(args, like, like)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+r.table+" WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := Offset(f.Page, f.Limit, 20)
	q := "SELECT " + identityColumns + " FROM " + r.table + " WHERE " + cond + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Identity{}
	for rows.Next() {
		i, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *i)
	}
	return out, total, rows.Err()
}

// exec runs an UPDATE/DELETE keyed by id and maps "no row" to ErrNotFound.
// MySQL reports zero affected rows when values do not change, so a miss is
// confirmed with a lookup before returning ErrNotFound.
func (r *IdentityRepo) exec(ctx context.Context, id, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.GetByID(ctx, id)
	return err
}

func (r *IdentityRepo) UpdateName(ctx context.Context, id, name string) error {
	return r.exec(ctx, id, "UPDATE "+r.table+" SET name=? WHERE id=?", name, id)
}

func (r *IdentityRepo) UpdateStatus(ctx context.Context, id, status string) error {
	return r.exec(ctx, id, "UPDATE "+r.table+" SET status=? WHERE id=?", status, id)
}

func (r *IdentityRepo) SetRefreshHash(ctx context.Context, id, hash string) error {
	return r.exec(ctx, id, "UPDATE "+r.table+" SET refresh_token_hash=? WHERE id=?", nullable(hash), id)
}

// RotateRefreshHash is a compare-and-swap on refresh_token_hash so two
// concurrent refreshes with the same token cannot both succeed.
func (r *IdentityRepo) RotateRefreshHash(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE "+r.table+" SET refresh_token_hash=? WHERE id=? AND refresh_token_hash=?",
		nullable(newHash), id, oldHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *IdentityRepo) ClearRefreshByHash(ctx context.Context, hash string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE "+r.table+" SET refresh_token_hash=NULL WHERE refresh_token_hash=?", hash)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *IdentityRepo) SetDeviceToken(ctx context.Context, id, token string) error {
	return r.exec(ctx, id, "UPDATE "+r.table+" SET device_token=? WHERE id=?", nullable(token), id)
}

func (r *IdentityRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+r.table+" WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
