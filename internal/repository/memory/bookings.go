package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/repository"
)

func cloneBooking(b *model.Booking) *model.Booking {
	cp := *b
	cp.ServiceDetails = append([]model.ServiceDetail{}, b.ServiceDetails...)
	cp.OrderItems = append([]model.OrderItem{}, b.OrderItems...)
	if b.AssignedTo != nil {
		v := *b.AssignedTo
		cp.AssignedTo = &v
	}
	if b.CouponDetails != nil {
		v := *b.CouponDetails
		cp.CouponDetails = &v
	}
	return &cp
}

// BookingRepo implements repository.BookingRepository.
type BookingRepo struct{ s *Store }

func (r *BookingRepo) Create(_ context.Context, b *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[b.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, e := range r.s.bookings {
		if e.BookingID == b.BookingID {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepo) GetByID(_ context.Context, id string) (*model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBooking(b), nil
}

// detail joins the booking with its user and technician. Callers hold the lock.
func (r *BookingRepo) detail(b *model.Booking) model.BookingDetail {
	d := model.BookingDetail{Booking: *cloneBooking(b)}
	if u, ok := r.s.identities[model.RoleUser][b.UserID]; ok {
		d.User = &model.PartyRef{ID: u.ID, Name: u.Name, Phone: u.FullPhone()}
	}
	if b.AssignedTo != nil {
		if t, ok := r.s.identities[model.RoleTechnician][*b.AssignedTo]; ok {
			d.Technician = &model.PartyRef{ID: t.ID, Name: t.Name, Phone: t.FullPhone()}
		}
	}
	return d
}

func (r *BookingRepo) GetDetail(_ context.Context, id string) (*model.BookingDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d := r.detail(b)
	return &d, nil
}

func matchesSearch(d model.BookingDetail, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	fields := []string{
		d.BookingID,
		d.Address.Line1, d.Address.Line2, d.Address.City, d.Address.State, d.Address.Pincode, d.Address.Landmark,
	}
	if d.User != nil {
		fields = append(fields, d.User.Name, d.User.Phone)
	}
	if d.Technician != nil {
		fields = append(fields, d.Technician.Name)
	}
	for _, f := range fields {
		if containsFold(f, q) {
			return true
		}
	}
	return false
}

func (r *BookingRepo) List(_ context.Context, f model.BookingFilter) ([]model.BookingDetail, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	statuses := map[string]bool{}
	for _, s := range f.Statuses {
		statuses[s] = true
	}
	out := []model.BookingDetail{}
	for _, b := range r.s.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.TechnicianID != "" && (b.AssignedTo == nil || *b.AssignedTo != f.TechnicianID) {
			continue
		}
		if len(statuses) > 0 && !statuses[b.Status] {
			continue
		}
		day := b.Date.Format("2006-01-02")
		if f.From != nil && day < f.From.Format("2006-01-02") {
			continue
		}
		if f.To != nil && day > f.To.Format("2006-01-02") {
			continue
		}
		d := r.detail(b)
		if !matchesSearch(d, f.Search) {
			continue
		}
		out = append(out, d)
	}

	desc := f.SortDesc || f.SortBy == ""
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var less, equal bool
		switch f.SortBy {
		case "date":
			less, equal = a.Date.Before(b.Date), a.Date.Equal(b.Date)
		case "amount":
			less, equal = a.Amount < b.Amount, a.Amount == b.Amount
		case "bookingId":
			less, equal = a.BookingID < b.BookingID, a.BookingID == b.BookingID
		case "status":
			less, equal = a.Status < b.Status, a.Status == b.Status
		default:
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			return a.ID < b.ID
		}
		if desc {
			return !less
		}
		return less
	})
	return paginate(out, f.Page, f.Limit, 20), int64(len(out)), nil
}

func (r *BookingRepo) Update(_ context.Context, b *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.bookings[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	b.UpdatedAt = r.s.now()
	next := cloneBooking(b)
	next.BookingID, next.UserID, next.CreatedAt = cur.BookingID, cur.UserID, cur.CreatedAt
	r.s.bookings[b.ID] = next
	return nil
}

// CouponRepo implements repository.CouponRepository.
type CouponRepo struct{ s *Store }

func (r *CouponRepo) codeTaken(code, exceptID string) bool {
	for _, c := range r.s.coupons {
		if c.CouponCode == code && c.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *CouponRepo) Create(_ context.Context, c *model.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.coupons[c.ID]; ok || r.codeTaken(c.CouponCode, "") {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	r.s.coupons[c.ID] = &cp
	return nil
}

func (r *CouponRepo) GetByID(_ context.Context, id string) (*model.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.coupons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CouponRepo) GetByCode(_ context.Context, code string) (*model.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.coupons {
		if c.CouponCode == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *CouponRepo) List(_ context.Context, f repository.CouponFilter) ([]model.Coupon, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	now := r.s.now()
	out := []model.Coupon{}
	for _, c := range r.s.coupons {
		if f.ActiveOnly && (!c.IsActive || c.ExpiryDate.Before(now)) {
			continue
		}
		if f.Search != "" && !containsFold(c.CouponCode, f.Search) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CouponCode < out[j].CouponCode
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, f.Page, f.Limit, 20), int64(len(out)), nil
}

func (r *CouponRepo) Update(_ context.Context, c *model.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.coupons[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.codeTaken(c.CouponCode, c.ID) {
		return repository.ErrDuplicate
	}
	c.UpdatedAt = r.s.now()
	c.CreatedAt = cur.CreatedAt
	cp := *c
	r.s.coupons[c.ID] = &cp
	return nil
}

var (
	_ repository.BookingRepository = (*BookingRepo)(nil)
	_ repository.CouponRepository  = (*CouponRepo)(nil)
)
