package repository

import (
	"context"
	"time"

	"github.com/iliyamo/acdoc-booking/internal/model"
)

// IdentityFilter narrows an identity listing.
type IdentityFilter struct {
	Status string
	Search string // matched against name and phone
	Page   int
	Limit  int
}

// IdentityRepository persists one identity class (admins, users or
// technicians). All three classes share the same shape.
type IdentityRepository interface {
	Role() model.Role
	Create(ctx context.Context, id *model.Identity) error
	GetByID(ctx context.Context, id string) (*model.Identity, error)
	GetByPhone(ctx context.Context, countryCode, phone string) (*model.Identity, error)
	List(ctx context.Context, f IdentityFilter) ([]model.Identity, int64, error)
	UpdateName(ctx context.Context, id, name string) error
	UpdateStatus(ctx context.Context, id, status string) error
	// SetRefreshHash overwrites the stored refresh token digest; an empty
	// hash clears it.
	SetRefreshHash(ctx context.Context, id, hash string) error
	// RotateRefreshHash replaces oldHash with newHash only if oldHash is still
	// the stored value. It reports whether the swap happened.
	RotateRefreshHash(ctx context.Context, id, oldHash, newHash string) (bool, error)
	// ClearRefreshByHash removes hash from whichever identity holds it and
	// returns the number of identities affected.
	ClearRefreshByHash(ctx context.Context, hash string) (int64, error)
	SetDeviceToken(ctx context.Context, id, token string) error
	Delete(ctx context.Context, id string) error
}

// BookingRepository persists bookings. Update rewrites every mutable column
// of the booking.
type BookingRepository interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetDetail(ctx context.Context, id string) (*model.BookingDetail, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.BookingDetail, int64, error)
	Update(ctx context.Context, b *model.Booking) error
}

// CouponFilter narrows a coupon listing.
type CouponFilter struct {
	ActiveOnly bool
	Search     string
	Page       int
	Limit      int
}

// CouponRepository persists coupons. Codes are unique.
type CouponRepository interface {
	Create(ctx context.Context, c *model.Coupon) error
	GetByID(ctx context.Context, id string) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context, f CouponFilter) ([]model.Coupon, int64, error)
	Update(ctx context.Context, c *model.Coupon) error
}

// ServiceRepository persists the service catalogue.
type ServiceRepository interface {
	Create(ctx context.Context, s *model.Service) error
	GetByID(ctx context.Context, id string) (*model.Service, error)
	List(ctx context.Context, activeOnly bool) ([]model.Service, error)
	Update(ctx context.Context, s *model.Service) error
}

// AddressRepository persists user addresses.
type AddressRepository interface {
	Create(ctx context.Context, a *model.Address) error
	GetByID(ctx context.Context, id string) (*model.Address, error)
	ListByUser(ctx context.Context, userID string) ([]model.Address, error)
	Update(ctx context.Context, a *model.Address) error
	Delete(ctx context.Context, id string) error
}

// WorkFilter narrows attendance, leave and tool request listings.
type WorkFilter struct {
	TechnicianID string
	Status       string
	From         string // inclusive YYYY-MM-DD, attendance and leave only
	To           string // inclusive YYYY-MM-DD, attendance and leave only
	Page         int
	Limit        int
}

// AttendanceRepository persists technician check-ins. (technician, day) is
// unique.
type AttendanceRepository interface {
	Create(ctx context.Context, a *model.Attendance) error
	GetByID(ctx context.Context, id string) (*model.Attendance, error)
	GetByDay(ctx context.Context, technicianID, day string) (*model.Attendance, error)
	List(ctx context.Context, f WorkFilter) ([]model.Attendance, int64, error)
	Update(ctx context.Context, a *model.Attendance) error
}

// LeaveRepository persists leave requests. (technician, day) is unique.
type LeaveRepository interface {
	Create(ctx context.Context, l *model.Leave) error
	GetByID(ctx context.Context, id string) (*model.Leave, error)
	List(ctx context.Context, f WorkFilter) ([]model.Leave, int64, error)
	Update(ctx context.Context, l *model.Leave) error
}

// ToolRequestRepository persists tool requests.
type ToolRequestRepository interface {
	Create(ctx context.Context, t *model.ToolRequest) error
	GetByID(ctx context.Context, id string) (*model.ToolRequest, error)
	List(ctx context.Context, f WorkFilter) ([]model.ToolRequest, int64, error)
	Update(ctx context.Context, t *model.ToolRequest) error
}

// Sequencer hands out strictly increasing numbers per counter name. Two
// concurrent callers never receive the same value.
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// OTPStore keeps at most one hashed OTP per identity. Entries disappear
// once their TTL elapses.
type OTPStore interface {
	// Replace atomically discards any previous code for the identity and
	// stores hash in its place.
	Replace(ctx context.Context, role model.Role, identityID, hash string, ttl time.Duration) error
	// Get returns the stored hash or ErrNotFound when none is live.
	Get(ctx context.Context, role model.Role, identityID string) (string, error)
	Delete(ctx context.Context, role model.Role, identityID string) error
}

// Offset converts 1-based page numbers into a LIMIT/OFFSET pair, applying
// defaults of page 1 and the given default limit, capped at 100.
func Offset(page, limit, defLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defLimit
	}
	if limit > 100 {
		limit = 100
	}
	return limit, (page - 1) * limit
}
