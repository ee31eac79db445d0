// Package memory implements the repository interfaces on top of in-process
// maps. It backs the server when USE_MEMORY_STORE is set and every service
// and handler test.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/repository"
)

// Store holds all data in memory. A single RWMutex guards every map so the
// booking detail join sees a consistent view of identities and bookings.
type Store struct {
	mu sync.RWMutex

	identities  map[model.Role]map[string]*model.Identity
	bookings    map[string]*model.Booking
	coupons     map[string]*model.Coupon
	services    map[string]*model.Service
	addresses   map[string]*model.Address
	attendances map[string]*model.Attendance
	leaves      map[string]*model.Leave
	tools       map[string]*model.ToolRequest
	counters    map[string]int64
	otps        map[string]otpEntry

	now func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		identities: map[model.Role]map[string]*model.Identity{
			model.RoleAdmin:      {},
			model.RoleUser:       {},
			model.RoleTechnician: {},
		},
		bookings:    make(map[string]*model.Booking),
		coupons:     make(map[string]*model.Coupon),
		services:    make(map[string]*model.Service),
		addresses:   make(map[string]*model.Address),
		attendances: make(map[string]*model.Attendance),
		leaves:      make(map[string]*model.Leave),
		tools:       make(map[string]*model.ToolRequest),
		counters:    make(map[string]int64),
		otps:        make(map[string]otpEntry),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Tests use it to expire OTPs.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Identities returns the repository for one role.
func (s *Store) Identities(role model.Role) *IdentityRepo { return &IdentityRepo{s: s, role: role} }

func (s *Store) Bookings() *BookingRepo { return &BookingRepo{s: s} }
func (s *Store) Coupons() *CouponRepo { return &CouponRepo{s: s} }
func (s *Store) Services() *ServiceRepo { return &ServiceRepo{s: s} }
func (s *Store) Addresses() *AddressRepo { return &AddressRepo{s: s} }
func (s *Store) Attendances() *AttendanceRepo { return &AttendanceRepo{s: s} }
func (s *Store) Leaves() *LeaveRepo { return &LeaveRepo{s: s} }
func (s *Store) ToolRequests() *ToolRequestRepo { return &ToolRequestRepo{s: s} }
func (s *Store) Sequencer() *Sequencer { return &Sequencer{s: s} }
func (s *Store) OTPs() *OTPStore { return &OTPStore{s: s} }

// paginate slices items into the requested 1-based page.
func paginate[T any](items []T, page, limit, defLimit int) []T {
	limit, offset := repository.Offset(page, limit, defLimit)
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Sequencer implements repository.Sequencer.
type Sequencer struct{ s *Store }

func (q *Sequencer) Next(_ context.Context, name string) (int64, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	q.s.counters[name]++
	return q.s.counters[name], nil
}

type otpEntry struct {
	hash      string
	expiresAt time.Time
}

// OTPStore implements repository.OTPStore. Expired entries are treated as
// absent on read.
type OTPStore struct{ s *Store }

func otpKey(role model.Role, id string) string { return string(role) + ":" + id }

func (o *OTPStore) Replace(_ context.Context, role model.Role, identityID, hash string, ttl time.Duration) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	o.s.otps[otpKey(role, identityID)] = otpEntry{hash: hash, expiresAt: o.s.now().Add(ttl)}
	return nil
}

func (o *OTPStore) Get(_ context.Context, role model.Role, identityID string) (string, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	key := otpKey(role, identityID)
	e, ok := o.s.otps[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	if !o.s.now().Before(e.expiresAt) {
		delete(o.s.otps, key)
		return "", repository.ErrNotFound
	}
	return e.hash, nil
}

func (o *OTPStore) Delete(_ context.Context, role model.Role, identityID string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	delete(o.s.otps, otpKey(role, identityID))
	return nil
}

// IdentityRepo implements repository.IdentityRepository for one role.
type IdentityRepo struct {
	s    *Store
	role model.Role
}

func (r *IdentityRepo) Role() model.Role { return r.role }

func (r *IdentityRepo) table() map[string]*model.Identity { return r.s.identities[r.role] }

func (r *IdentityRepo) Create(_ context.Context, i *model.Identity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.table() {
		if e.ID == i.ID || (e.CountryCode == i.CountryCode && e.Phone == i.Phone) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	i.CreatedAt, i.UpdatedAt, i.Role = now, now, r.role
	cp := *i
	r.table()[i.ID] = &cp
	return nil
}

func (r *IdentityRepo) GetByID(_ context.Context, id string) (*model.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	i, ok := r.table()[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (r *IdentityRepo) GetByPhone(_ context.Context, countryCode, phone string) (*model.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, i := range r.table() {
		if i.CountryCode == countryCode && i.Phone == phone {
			cp := *i
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *IdentityRepo) List(_ context.Context, f repository.IdentityFilter) ([]model.Identity, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Identity{}
	for _, i := range r.table() {
		if f.Status != "" && i.Status != f.Status {
			continue
		}
		if f.Search != "" && !containsFold(i.Name, f.Search) && !strings.Contains(i.Phone, f.Search) {
			continue
		}
		out = append(out, *i)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return paginate(out, f.Page, f.Limit, 20), int64(len(out)), nil
}

// mutate applies fn to the stored identity under the write lock.
func (r *IdentityRepo) mutate(id string, fn func(*model.Identity)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.table()[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(i)
	i.UpdatedAt = r.s.now()
	return nil
}

func (r *IdentityRepo) UpdateName(_ context.Context, id, name string) error {
	return r.mutate(id, func(i *model.Identity) { i.Name = name })
}

func (r *IdentityRepo) UpdateStatus(_ context.Context, id, status string) error {
	return r.mutate(id, func(i *model.Identity) { i.Status = status })
}

func (r *IdentityRepo) SetRefreshHash(_ context.Context, id, hash string) error {
	return r.mutate(id, func(i *model.Identity) { i.RefreshTokenHash = hash })
}

func (r *IdentityRepo) RotateRefreshHash(_ context.Context, id, oldHash, newHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.table()[id]
	if !ok || oldHash == "" || i.RefreshTokenHash != oldHash {
		return false, nil
	}
	i.RefreshTokenHash = newHash
	i.UpdatedAt = r.s.now()
	return true, nil
}

func (r *IdentityRepo) ClearRefreshByHash(_ context.Context, hash string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, i := range r.table() {
		if hash != "" && i.RefreshTokenHash == hash {
			i.RefreshTokenHash = ""
			n++
		}
	}
	return n, nil
}

func (r *IdentityRepo) SetDeviceToken(_ context.Context, id, token string) error {
	return r.mutate(id, func(i *model.Identity) { i.DeviceToken = token })
}

func (r *IdentityRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.table()[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.table(), id)
	return nil
}

var (
	_ repository.IdentityRepository = (*IdentityRepo)(nil)
	_ repository.Sequencer          = (*Sequencer)(nil)
	_ repository.OTPStore           = (*OTPStore)(nil)
)
