package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/notify"
)

type bookingFixture struct {
	userID    string
	addressID string
	serviceID string
}

func (e *env) seedBooking(t *testing.T, phone string) bookingFixture {
	t.Helper()
	ctx := context.Background()
	user := e.login(t, model.RoleUser, phone)
	addr, err := e.catalog.CreateAddress(ctx, user.Identity.ID, AddressInput{
		Line1: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001",
	})
	require.NoError(t, err)
	svc, err := e.catalog.CreateService(ctx, ServiceInput{Name: "Gas refill " + phone, Price: float(1500)})
	require.NoError(t, err)
	return bookingFixture{userID: user.Identity.ID, addressID: addr.ID, serviceID: svc.ID}
}

func (f bookingFixture) input() BookingInput {
	return BookingInput{
		UserID:         f.userID,
		Name:           "Split AC service",
		AddressID:      f.addressID,
		Slot:           model.SlotFirstHalf,
		Date:           "2026-11-02",
		Amount:         float(1500),
		ServiceDetails: []ServiceLine{{ServiceID: f.serviceID, Quantity: 1}},
	}
}

func TestCreateBooking(t *testing.T) {
	e := newEnv(t)
	f := e.seedBooking(t, "9100000001")

	b, err := e.bookings.Create(context.Background(), f.input())
	require.NoError(t, err)
	require.Equal(t, model.BookingBooked, b.Status)
	require.Regexp(t, `^ACDOCBK\d{8}-\d+$`, b.BookingID)
	require.Len(t, b.OrderItems, 1)
	require.Len(t, b.ServiceDetails, 1)
	require.Equal(t, "Gas refill 9100000001", b.ServiceDetails[0].ServiceName)
	require.Equal(t, "Pune", b.Address.City)
	require.NotNil(t, b.User)
	require.Equal(t, f.userID, b.User.ID)

	second, err := e.bookings.Create(context.Background(), f.input())
	require.NoError(t, err)
	require.NotEqual(t, b.BookingID, second.BookingID)
}

// itemsTotal is Σ(quantity×price) over the order items of b.
func itemsTotal(b *model.BookingDetail) float64 {
	var total float64
	for _, it := range b.OrderItems {
		total += float64(it.Quantity) * it.Price
	}
	return total
}

func TestCreateBookingToday(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.login(t, model.RoleUser, "9100000020")
	addr, err := e.catalog.CreateAddress(ctx, user.Identity.ID, AddressInput{
		Line1: "4 Park Street", City: "Kolkata", State: "WB", Pincode: "700016",
	})
	require.NoError(t, err)
	svc, err := e.catalog.CreateService(ctx, ServiceInput{Name: "Jet wash", Price: float(500)})
	require.NoError(t, err)

	b, err := e.bookings.Create(ctx, BookingInput{
		UserID:         user.Identity.ID,
		Name:           "Window AC",
		AddressID:      addr.ID,
		Slot:           model.SlotFirstHalf,
		Date:           time.Now().UTC().Format(dateLayout),
		Amount:         float(500),
		ServiceDetails: []ServiceLine{{ServiceID: svc.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, model.BookingBooked, b.Status)
	require.Regexp(t, `^ACDOCBK\d{8}-\d+$`, b.BookingID)
	require.Len(t, b.OrderItems, 1)
	require.InDelta(t, 500.0, b.Amount, 0.001)
	require.InDelta(t, b.Amount, itemsTotal(b), 0.001)
}

func TestCreateBookingAmountMatchesOrderItems(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.seedBooking(t, "9100000021")

	in := f.input()
	in.Amount = float(500)
	in.ServiceDetails = []ServiceLine{{ServiceID: f.serviceID, Quantity: 2}}
	b, err := e.bookings.Create(ctx, in)
	require.NoError(t, err)
	require.Len(t, b.OrderItems, 1)
	require.InDelta(t, 3000.0, b.Amount, 0.001, "amount comes from the catalogue")
	require.InDelta(t, b.Amount, itemsTotal(b), 0.001)

	// nothing resolves, so there are no order items and the requested amount stays
	in.ServiceDetails = []ServiceLine{{ServiceID: "nope", Quantity: 1}}
	b, err = e.bookings.Create(ctx, in)
	require.NoError(t, err)
	require.Empty(t, b.OrderItems)
	require.InDelta(t, 500.0, b.Amount, 0.001)
}

func TestUpdateBookingKeepsOrderItemsInSync(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.seedBooking(t, "9100000022")
	b, err := e.bookings.Create(ctx, f.input())
	require.NoError(t, err)

	in := f.input()
	in.Amount = float(999)
	in.ServiceDetails = []ServiceLine{{ServiceID: f.serviceID, Quantity: 3}}
	updated, err := e.bookings.Update(ctx, b.ID, in, Scope{})
	require.NoError(t, err)
	require.Len(t, updated.OrderItems, 1)
	require.Equal(t, 3, updated.OrderItems[0].Quantity)
	require.InDelta(t, 4500.0, updated.Amount, 0.001)
	require.InDelta(t, updated.Amount, itemsTotal(updated), 0.001)

	_, err = e.bookings.AddOrderItems(ctx, b.ID, []model.OrderItem{{Name: "Filter", Quantity: 2, Price: 150}}, Scope{})
	require.NoError(t, err)

	_, err = e.bookings.Update(ctx, b.ID, in, Scope{})
	requireKind(t, err, apperr.KindValidation)

	in.Amount = float(300)
	updated, err = e.bookings.Update(ctx, b.ID, in, Scope{})
	require.NoError(t, err)
	require.Equal(t, model.BookingPaymentPending, updated.Status)
	require.Len(t, updated.OrderItems, 1)
	require.Equal(t, "Filter", updated.OrderItems[0].Name)
	require.InDelta(t, 300.0, updated.Amount, 0.001)
	require.InDelta(t, updated.Amount, itemsTotal(updated), 0.001)
}

func TestCreateBookingSkipsUnknownServices(t *testing.T) {
	e := newEnv(t)
	f := e.seedBooking(t, "9100000002")
	in := f.input()
	in.ServiceDetails = append(in.ServiceDetails,
		ServiceLine{ServiceID: "6f1c1f7e-0000-4000-8000-000000000000", Quantity: 2},
		ServiceLine{ServiceID: "nope", Quantity: 1})

	b, err := e.bookings.Create(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, b.ServiceDetails, 1)
}

func TestCreateBookingValidationOrder(t *testing.T) {
	e := newEnv(t)
	f := e.seedBooking(t, "9100000003")

	cases := []struct {
		field string
		edit  func(*BookingInput)
	}{
		{"userId", func(in *BookingInput) { in.UserID = "" }},
		{"name", func(in *BookingInput) { in.Name = " " }},
		{"addressId", func(in *BookingInput) { in.AddressID = "" }},
		{"slot", func(in *BookingInput) { in.Slot = "" }},
		{"slot", func(in *BookingInput) { in.Slot = "EVENING" }},
		{"date", func(in *BookingInput) { in.Date = "" }},
		{"date", func(in *BookingInput) { in.Date = "02/11/2026" }},
		{"amount", func(in *BookingInput) { in.Amount = nil }},
		{"amount", func(in *BookingInput) { in.Amount = float(0) }},
		{"amount", func(in *BookingInput) { in.Amount = float(-10) }},
	}
	for _, tc := range cases {
		in := f.input()
		tc.edit(&in)
		_, err := e.bookings.Create(context.Background(), in)
		requireKind(t, err, apperr.KindValidation)
		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		require.Equal(t, tc.field, ae.Field)
	}

	// every field missing reports the first one
	_, err := e.bookings.Create(context.Background(), BookingInput{})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "userId", ae.Field)
}

func TestCreateBookingMissingAddress(t *testing.T) {
	e := newEnv(t)
	f := e.seedBooking(t, "9100000004")
	in := f.input()
	in.AddressID = "6f1c1f7e-0000-4000-8000-000000000000"

	_, err := e.bookings.Create(context.Background(), in)
	requireKind(t, err, apperr.KindNotFound)

	// another user's address is not visible either
	other := e.seedBooking(t, "9100000005")
	in = f.input()
	in.AddressID = other.addressID
	_, err = e.bookings.Create(context.Background(), in)
	requireKind(t, err, apperr.KindNotFound)
}

func TestCreateBookingPushesToDevice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.seedBooking(t, "9100000006")

	_, err := e.bookings.Create(ctx, f.input())
	require.NoError(t, err)
	require.Empty(t, e.notifier.events())

	require.NoError(t, e.identities[model.RoleUser].SetDeviceToken(ctx, f.userID, "device-token"))
	e.notifier.fail = context.DeadlineExceeded
	b, err := e.bookings.Create(ctx, f.input())
	require.NoError(t, err, "push failures never fail the booking")
	require.Equal(t, []string{notify.EventBookingCreated}, e.notifier.events())
	require.Equal(t, b.BookingID, e.notifier.sent[0].BookingID)
}

func TestBookingLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.seedBooking(t, "9100000007")
	tech := e.login(t, model.RoleTechnician, "9200000001")
	techScope := Scope{TechnicianID: tech.Identity.ID}

	b, err := e.bookings.Create(ctx, f.input())
	require.NoError(t, err)

	_, err = e.bookings.Get(ctx, b.ID, techScope)
	requireKind(t, err, apperr.KindNotFound)

	assigned, err := e.bookings.AssignTechnician(ctx, b.ID, tech.Identity.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingTechnicianAssigned, assigned.Status)
	require.NotNil(t, assigned.Technician)

	_, err = e.bookings.UpdateStatus(ctx, b.ID, model.BookingPaid, techScope)
	requireKind(t, err, apperr.KindForbidden)

	invoiced, err := e.bookings.AddOrderItems(ctx, b.ID, []model.OrderItem{
		{Name: "Gas refill", Quantity: 1, Price: 1500},
		{Name: "Copper pipe", Quantity: 3, Price: 120.5},
		{Name: " ", Quantity: 1, Price: 10},
		{Name: "Free check", Quantity: 0, Price: 10},
		{Name: "Refund", Quantity: 1, Price: -5},
	}, techScope)
	require.NoError(t, err)
	require.Equal(t, model.BookingPaymentPending, invoiced.Status)
	require.Len(t, invoiced.OrderItems, 2)
	require.InDelta(t, 1861.5, invoiced.Amount, 0.001)

	_, err = e.bookings.UpdateStatus(ctx, b.ID, model.BookingComplete, Scope{})
	requireKind(t, err, apperr.KindConflict)

	_, err = e.bookings.UpdateStatus(ctx, b.ID, model.BookingPaid, Scope{})
	require.NoError(t, err)
	_, err = e.bookings.UpdateStatus(ctx, b.ID, model.BookingInProgress, techScope)
	require.NoError(t, err)
	done, err := e.bookings.UpdateStatus(ctx, b.ID, model.BookingComplete, techScope)
	require.NoError(t, err)
	require.Equal(t, model.BookingComplete, done.Status)

	_, err = e.bookings.Cancel(ctx, b.ID, Scope{UserID: f.userID})
	requireKind(t, err, apperr.KindConflict)
	_, err = e.bookings.Update(ctx, b.ID, f.input(), Scope{})
	requireKind(t, err, apperr.KindConflict)
}

func TestAssignTechnicianRequiresAvailability(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.seedBooking(t, "9100000008")
	tech := e.login(t, model.RoleTechnician, "9200000002")
	b, err := e.bookings.Create(ctx, f.input())
	require.NoError(t, err)

	_, err = e.identities[model.RoleTechnician].SetStatus(ctx, tech.Identity.ID, model.TechOnLeave)
	require.NoError(t, err)
	_, err = e.bookings.AssignTechnician(ctx, b.ID, tech.Identity.ID)
	requireKind(t, err, apperr.KindConflict)

	_, err = e.bookings.AssignTechnician(ctx, b.ID, "6f1c1f7e-0000-4000-8000-000000000000")
	requireKind(t, err, apperr.KindNotFound)
}

func TestAddOrderItemsErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	items := []model.OrderItem{{Name: "Service", Quantity: 1, Price: 499}}

	_, err := e.bookings.AddOrderItems(ctx, "bad-id", items, Scope{})
	requireKind(t, err, apperr.KindInvalidID)

	_, err = e.bookings.AddOrderItems(ctx, "6f1c1f7e-0000-4000-8000-000000000000", items, Scope{})
	requireKind(t, err, apperr.KindNotFound)

	f := e.seedBooking(t, "9100000009")
	b, err := e.bookings.Create(ctx, f.input())
	require.NoError(t, err)
	_, err = e.bookings.AddOrderItems(ctx, b.ID, []model.OrderItem{{Name: "", Quantity: 1, Price: 1}}, Scope{})
	requireKind(t, err, apperr.KindValidation)
}

func TestUpdateBooking(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.seedBooking(t, "9100000010")
	b, err := e.bookings.Create(ctx, f.input())
	require.NoError(t, err)

	in := f.input()
	in.Slot = model.SlotSecondHalf
	in.Date = "2026-11-05"
	in.Amount = float(999.999)
	in.ServiceDetails = nil
	updated, err := e.bookings.Update(ctx, b.ID, in, Scope{UserID: f.userID})
	require.NoError(t, err)
	require.Equal(t, model.SlotSecondHalf, updated.Slot)
	require.Equal(t, time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC), updated.Date)
	require.InDelta(t, 1000.0, updated.Amount, 0.001)
	require.Empty(t, updated.ServiceDetails)
	require.Equal(t, b.BookingID, updated.BookingID)

	_, err = e.bookings.Update(ctx, b.ID, in, Scope{UserID: "someone-else"})
	requireKind(t, err, apperr.KindNotFound)
}

func TestListBookings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.seedBooking(t, "9100000011")
	first, err := e.bookings.Create(ctx, f.input())
	require.NoError(t, err)
	second, err := e.bookings.Create(ctx, f.input())
	require.NoError(t, err)
	_, err = e.bookings.Cancel(ctx, second.ID, Scope{UserID: f.userID})
	require.NoError(t, err)

	page, err := e.bookings.List(ctx, BookingQuery{}, Scope{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, first.ID, page.Items[0].ID)

	page, err = e.bookings.List(ctx, BookingQuery{Status: "all"}, Scope{UserID: f.userID})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)

	page, err = e.bookings.List(ctx, BookingQuery{Status: "CANCELLED", Search: second.BookingID}, Scope{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)

	page, err = e.bookings.List(ctx, BookingQuery{Status: "ALL"}, Scope{UserID: "6f1c1f7e-0000-4000-8000-000000000000"})
	require.NoError(t, err)
	require.Zero(t, page.Total)

	_, err = e.bookings.List(ctx, BookingQuery{Status: "DONE"}, Scope{})
	requireKind(t, err, apperr.KindValidation)
	_, err = e.bookings.List(ctx, BookingQuery{SortBy: "password"}, Scope{})
	requireKind(t, err, apperr.KindValidation)
	_, err = e.bookings.List(ctx, BookingQuery{From: "2026-11-10", To: "2026-11-01"}, Scope{})
	requireKind(t, err, apperr.KindValidation)
}

func TestUserCannotSetStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := e.seedBooking(t, "9100000012")
	b, err := e.bookings.Create(ctx, f.input())
	require.NoError(t, err)

	_, err = e.bookings.UpdateStatus(ctx, b.ID, model.BookingPaid, Scope{UserID: f.userID})
	requireKind(t, err, apperr.KindForbidden)

	cancelled, err := e.bookings.Cancel(ctx, b.ID, Scope{UserID: f.userID})
	require.NoError(t, err)
	require.Equal(t, model.BookingCancelled, cancelled.Status)
}
