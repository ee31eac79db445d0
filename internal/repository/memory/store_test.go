package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/repository"
)

func TestIdentityDuplicatePhone(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	users := s.Identities(model.RoleUser)

	require.NoError(t, users.Create(ctx, &model.Identity{ID: "u1", CountryCode: "+91", Phone: "999", Status: model.StatusPending}))
	err := users.Create(ctx, &model.Identity{ID: "u2", CountryCode: "+91", Phone: "999"})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	// same phone is fine in another role's table
	require.NoError(t, s.Identities(model.RoleTechnician).Create(ctx, &model.Identity{ID: "t1", CountryCode: "+91", Phone: "999"}))

	got, err := users.GetByPhone(ctx, "+91", "999")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)
	require.Equal(t, model.RoleUser, got.Role)
}

func TestRotateRefreshHashIsCompareAndSwap(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	admins := s.Identities(model.RoleAdmin)
	require.NoError(t, admins.Create(ctx, &model.Identity{ID: "a1", CountryCode: "+91", Phone: "1"}))
	require.NoError(t, admins.SetRefreshHash(ctx, "a1", "h1"))

	ok, err := admins.RotateRefreshHash(ctx, "a1", "h1", "h2")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = admins.RotateRefreshHash(ctx, "a1", "h1", "h3")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := admins.ClearRefreshByHash(ctx, "h2")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	got, _ := admins.GetByID(ctx, "a1")
	require.Empty(t, got.RefreshTokenHash)
}

func TestSequencerConcurrent(t *testing.T) {
	seq := NewStore().Sequencer()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(context.Background(), "booking")
			require.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, seen, 50)
}

func TestOTPStoreExpiry(t *testing.T) {
	s := NewStore()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })
	otps := s.OTPs()
	ctx := context.Background()

	require.NoError(t, otps.Replace(ctx, model.RoleUser, "u1", "h", 5*time.Minute))
	v, err := otps.Get(ctx, model.RoleUser, "u1")
	require.NoError(t, err)
	require.Equal(t, "h", v)

	now = now.Add(5 * time.Minute)
	_, err = otps.Get(ctx, model.RoleUser, "u1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func seedBookings(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Identities(model.RoleUser).Create(ctx, &model.Identity{ID: "u1", Name: "Asha Rao", CountryCode: "+91", Phone: "9000000001"}))
	require.NoError(t, s.Identities(model.RoleTechnician).Create(ctx, &model.Identity{ID: "t1", Name: "Ravi", CountryCode: "+91", Phone: "9000000002"}))
	tech := "t1"
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	bookings := []*model.Booking{
		{ID: "b1", BookingID: "ACDOCBK10052024-1", UserID: "u1", Status: model.BookingBooked, Date: day, Amount: 100,
			Address: model.AddressSnapshot{Line1: "12 MG Road", City: "Pune"}},
		{ID: "b2", BookingID: "ACDOCBK10052024-2", UserID: "u1", Status: model.BookingInProgress, Date: day.AddDate(0, 0, 1), Amount: 300,
			AssignedTo: &tech, Address: model.AddressSnapshot{Line1: "4 Park St", City: "Kolkata"}},
		{ID: "b3", BookingID: "ACDOCBK10052024-3", UserID: "u1", Status: model.BookingCancelled, Date: day.AddDate(0, 0, 2), Amount: 200},
	}
	for _, b := range bookings {
		require.NoError(t, s.Bookings().Create(ctx, b))
	}
}

func TestBookingListFilters(t *testing.T) {
	s := NewStore()
	seedBookings(t, s)
	repo := s.Bookings()
	ctx := context.Background()

	out, total, err := repo.List(ctx, model.BookingFilter{Statuses: []string{model.BookingBooked, model.BookingInProgress}, SortBy: "amount"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "b1", out[0].ID)

	out, _, err = repo.List(ctx, model.BookingFilter{Search: "ravi"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "b2", out[0].ID)
	require.Equal(t, "Ravi", out[0].Technician.Name)

	out, _, err = repo.List(ctx, model.BookingFilter{Search: "pune"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "b1", out[0].ID)

	out, _, err = repo.List(ctx, model.BookingFilter{Search: "9000000001"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	from := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)
	out, total, err = repo.List(ctx, model.BookingFilter{From: &from, Limit: 1, SortBy: "date", SortDesc: true})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, out, 1)
	require.Equal(t, "b3", out[0].ID)

	out, _, err = repo.List(ctx, model.BookingFilter{TechnicianID: "t1"})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestBookingCopiesAreIsolated(t *testing.T) {
	s := NewStore()
	seedBookings(t, s)
	ctx := context.Background()

	b, err := s.Bookings().GetByID(ctx, "b2")
	require.NoError(t, err)
	*b.AssignedTo = "someone-else"
	b.Status = model.BookingComplete

	again, err := s.Bookings().GetByID(ctx, "b2")
	require.NoError(t, err)
	require.Equal(t, "t1", *again.AssignedTo)
	require.Equal(t, model.BookingInProgress, again.Status)
}

func TestAttendanceUniquePerDay(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Attendances()
	require.NoError(t, repo.Create(ctx, &model.Attendance{ID: "a1", TechnicianID: "t1", Day: "2024-05-10"}))
	require.ErrorIs(t, repo.Create(ctx, &model.Attendance{ID: "a2", TechnicianID: "t1", Day: "2024-05-10"}), repository.ErrDuplicate)
	require.NoError(t, repo.Create(ctx, &model.Attendance{ID: "a3", TechnicianID: "t2", Day: "2024-05-10"}))

	out, total, err := repo.List(ctx, repository.WorkFilter{TechnicianID: "t1"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "a1", out[0].ID)
}
