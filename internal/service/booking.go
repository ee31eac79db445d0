package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/notify"
	"github.com/iliyamo/acdoc-booking/internal/repository"
	"github.com/iliyamo/acdoc-booking/internal/utils"
)

const dateLayout = "2006-01-02"

// Scope restricts booking access to the caller. The zero value is the admin
// scope and sees every booking.
type Scope struct {
	UserID       string
	TechnicianID string
}

func (s Scope) allows(b *model.Booking) bool {
	if s.UserID != "" && b.UserID != s.UserID {
		return false
	}
	if s.TechnicianID != "" && (b.AssignedTo == nil || *b.AssignedTo != s.TechnicianID) {
		return false
	}
	return true
}

// ServiceLine is one requested service in a booking request.
type ServiceLine struct {
	ServiceID string `json:"serviceId"`
	Quantity  int    `json:"quantity"`
}

// BookingInput is the body of a create or update booking request.
type BookingInput struct {
	UserID         string        `json:"userId"`
	Name           string        `json:"name"`
	AddressID      string        `json:"addressId"`
	Slot           string        `json:"slot"`
	Date           string        `json:"date"`
	Amount         *float64      `json:"amount"`
	ServiceDetails []ServiceLine `json:"serviceDetails"`
}

// BookingQuery is a booking list request as received from the client.
type BookingQuery struct {
	Search string
	// Status is a comma separated list; empty means BOOKED and IN_PROGRESS,
	// "ALL" disables the status filter.
	Status string
	From   string
	To     string
	Page   int
	Limit  int
	SortBy string
	Order  string
}

// BookingPage is one page of a booking list.
type BookingPage struct {
	Items []model.BookingDetail `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

var defaultListStatuses = []string{model.BookingBooked, model.BookingInProgress}

var bookingSortFields = map[string]bool{
	"createdAt": true,
	"date":      true,
	"amount":    true,
	"bookingId": true,
	"status":    true,
}

// BookingService implements the booking lifecycle from creation to
// completion.
type BookingService struct {
	bookings    repository.BookingRepository
	addresses   repository.AddressRepository
	services    repository.ServiceRepository
	users       repository.IdentityRepository
	technicians repository.IdentityRepository
	seq         repository.Sequencer
	notifier    notify.Notifier
	log         *logrus.Logger
	now         func() time.Time
}

func NewBookingService(
	bookings repository.BookingRepository,
	addresses repository.AddressRepository,
	services repository.ServiceRepository,
	users, technicians repository.IdentityRepository,
	seq repository.Sequencer,
	notifier notify.Notifier,
	log *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookings:    bookings,
		addresses:   addresses,
		services:    services,
		users:       users,
		technicians: technicians,
		seq:         seq,
		notifier:    notifier,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func parseDate(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, apperr.Validation(field, field+" must be a date in YYYY-MM-DD form")
}

// validate checks the booking fields in a fixed order so the first missing
// field is always the one reported.
func (in *BookingInput) validate(requireUser bool) (time.Time, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slot = strings.ToUpper(strings.TrimSpace(in.Slot))
	if requireUser && strings.TrimSpace(in.UserID) == "" {
		return time.Time{}, apperr.Validation("userId", "user is required")
	}
	if in.Name == "" {
		return time.Time{}, apperr.Validation("name", "name is required")
	}
	if strings.TrimSpace(in.AddressID) == "" {
		return time.Time{}, apperr.Validation("addressId", "address is required")
	}
	if in.Slot == "" {
		return time.Time{}, apperr.Validation("slot", "slot is required")
	}
	if in.Slot != model.SlotFirstHalf && in.Slot != model.SlotSecondHalf {
		return time.Time{}, apperr.Validation("slot", "slot must be FIRST_HALF or SECOND_HALF")
	}
	if strings.TrimSpace(in.Date) == "" {
		return time.Time{}, apperr.Validation("date", "date is required")
	}
	date, err := parseDate(in.Date, "date")
	if err != nil {
		return time.Time{}, err
	}
	if in.Amount == nil {
		return time.Time{}, apperr.Validation("amount", "amount is required")
	}
	if *in.Amount <= 0 {
		return time.Time{}, apperr.Validation("amount", "amount must be greater than 0")
	}
	return date, nil
}

// resolveAddress loads the address and checks that it belongs to userID.
func (s *BookingService) resolveAddress(ctx context.Context, rawID, userID string) (*model.Address, error) {
	id, err := parseID(rawID, "address id")
	if err != nil {
		return nil, err
	}
	addr, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "address", "", "load address")
	}
	if addr.UserID != userID {
		return nil, apperr.NotFound("address")
	}
	return addr, nil
}

// resolveServices names each requested line from the catalogue. Lines whose
// service is unknown or inactive are skipped; the remaining lines also seed
// the provisional order items.
func (s *BookingService) resolveServices(ctx context.Context, lines []ServiceLine) ([]model.ServiceDetail, []model.OrderItem, error) {
	details := []model.ServiceDetail{}
	items := []model.OrderItem{}
	for _, line := range lines {
		id, err := uuid.Parse(strings.TrimSpace(line.ServiceID))
		if err != nil {
			continue
		}
		svc, err := s.services.GetByID(ctx, id.String())
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, apperr.Unexpected("load service", err)
		}
		if !svc.IsActive {
			continue
		}
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		details = append(details, model.ServiceDetail{ServiceID: svc.ID, ServiceName: svc.Name, Quantity: qty})
		items = append(items, model.OrderItem{Name: svc.Name, Quantity: qty, Price: svc.Price})
	}
	return details, items, nil
}

// Create books a visit for in.UserID. When at least one requested service
// resolves, the amount is the catalogue total of the seeded order items.
func (s *BookingService) Create(ctx context.Context, in BookingInput) (*model.BookingDetail, error) {
	date, err := in.validate(true)
	if err != nil {
		return nil, err
	}
	userID, err := parseID(in.UserID, "user id")
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user", "", "load user")
	}
	addr, err := s.resolveAddress(ctx, in.AddressID, userID)
	if err != nil {
		return nil, err
	}
	details, items, err := s.resolveServices(ctx, in.ServiceDetails)
	if err != nil {
		return nil, err
	}

	seq, err := s.seq.Next(ctx, utils.SequenceKey)
	if err != nil {
		return nil, apperr.Unexpected("allocate booking id", err)
	}
	b := &model.Booking{
		ID:             uuid.NewString(),
		BookingID:      utils.FormatBookingID(s.now(), seq),
		UserID:         userID,
		Name:           in.Name,
		ServiceDetails: details,
		Address:        addr.Snapshot(),
		Slot:           in.Slot,
		Date:           date,
		Amount:         priced(items, *in.Amount),
		Status:         model.BookingBooked,
		OrderItems:     items,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, storeErr(err, "booking", "booking id already used", "create booking")
	}
	s.log.WithFields(logrus.Fields{"booking": b.BookingID, "user": userID}).Info("booking created")

	s.notify(ctx, user, b, notify.EventBookingCreated, "Booking confirmed",
		"Your booking "+b.BookingID+" has been received.")
	return s.detail(ctx, b.ID)
}

// notify sends a push to the booking's user when they registered a device.
// Failures are logged and never undo the change that triggered them.
func (s *BookingService) notify(ctx context.Context, user *model.Identity, b *model.Booking, event, title, body string) {
	if s.notifier == nil || user == nil || user.DeviceToken == "" {
		return
	}
	n := notify.Notification{
		Event:     event,
		BookingID: b.BookingID,
		Message: notify.PushMessage{
			DeviceToken: user.DeviceToken,
			Title:       title,
			Body:        body,
			Data:        map[string]string{"bookingId": b.BookingID, "status": b.Status},
		},
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"event": event, "booking": b.BookingID}).Warn("push notification failed")
	}
}

func (s *BookingService) notifyOwner(ctx context.Context, b *model.Booking, event, title, body string) {
	user, err := s.users.GetByID(ctx, b.UserID)
	if err != nil {
		s.log.WithError(err).WithField("booking", b.BookingID).Warn("load booking owner for push")
		return
	}
	s.notify(ctx, user, b, event, title, body)
}

func (s *BookingService) detail(ctx context.Context, id string) (*model.BookingDetail, error) {
	d, err := s.bookings.GetDetail(ctx, id)
	if err != nil {
		return nil, storeErr(err, "booking", "", "load booking")
	}
	return d, nil
}

// load fetches a booking the caller may see. Bookings outside the scope are
// reported as missing.
func (s *BookingService) load(ctx context.Context, rawID string, scope Scope) (*model.Booking, error) {
	id, err := parseID(rawID, "booking id")
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "booking", "", "load booking")
	}
	if !scope.allows(b) {
		return nil, apperr.NotFound("booking")
	}
	return b, nil
}

func (s *BookingService) save(ctx context.Context, b *model.Booking) (*model.BookingDetail, error) {
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, storeErr(err, "booking", "", "update booking")
	}
	return s.detail(ctx, b.ID)
}

// Get returns one booking with its user and technician.
func (s *BookingService) Get(ctx context.Context, rawID string, scope Scope) (*model.BookingDetail, error) {
	b, err := s.load(ctx, rawID, scope)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, b.ID)
}

// List filters and pages bookings visible in scope.
func (s *BookingService) List(ctx context.Context, q BookingQuery, scope Scope) (BookingPage, error) {
	f := model.BookingFilter{
		UserID:       scope.UserID,
		TechnicianID: scope.TechnicianID,
		Search:       strings.TrimSpace(q.Search),
		SortBy:       q.SortBy,
		SortDesc:     strings.EqualFold(q.Order, "desc"),
	}
	switch status := strings.ToUpper(strings.TrimSpace(q.Status)); status {
	case "":
		f.Statuses = defaultListStatuses
	case "ALL":
	default:
		for _, st := range strings.Split(status, ",") {
			st = strings.TrimSpace(st)
			if !model.ValidBookingStatus(st) {
				return BookingPage{}, apperr.Validation("status", "unknown booking status "+st)
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if q.From != "" {
		from, err := parseDate(q.From, "from")
		if err != nil {
			return BookingPage{}, err
		}
		f.From = &from
	}
	if q.To != "" {
		to, err := parseDate(q.To, "to")
		if err != nil {
			return BookingPage{}, err
		}
		f.To = &to
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return BookingPage{}, apperr.Validation("to", "to must not be before from")
	}
	if f.SortBy != "" && !bookingSortFields[f.SortBy] {
		return BookingPage{}, apperr.Validation("sortBy", "cannot sort by "+f.SortBy)
	}
	if f.SortBy == "" {
		f.SortDesc = true
	}
	limit, offset := repository.Offset(q.Page, q.Limit, 20)
	f.Page, f.Limit = offset/limit+1, limit

	items, total, err := s.bookings.List(ctx, f)
	if err != nil {
		return BookingPage{}, apperr.Unexpected("list bookings", err)
	}
	return BookingPage{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// Update replaces the editable fields of a booking that has not reached a
// terminal status.
func (s *BookingService) Update(ctx context.Context, rawID string, in BookingInput, scope Scope) (*model.BookingDetail, error) {
	b, err := s.load(ctx, rawID, scope)
	if err != nil {
		return nil, err
	}
	date, err := in.validate(false)
	if err != nil {
		return nil, err
	}
	if model.IsTerminalBookingStatus(b.Status) {
		return nil, apperr.Conflict("booking is " + strings.ToLower(b.Status))
	}
	addr, err := s.resolveAddress(ctx, in.AddressID, b.UserID)
	if err != nil {
		return nil, err
	}
	details, items, err := s.resolveServices(ctx, in.ServiceDetails)
	if err != nil {
		return nil, err
	}
	if invoiced[b.Status] {
		// the invoice lines stay; the amount has to agree with them
		total := orderTotal(b.OrderItems)
		if utils.Round2(*in.Amount) != total {
			return nil, apperr.Validation("amount", fmt.Sprintf("amount must equal the invoice total %.2f", total))
		}
	} else {
		b.OrderItems = items
		b.Amount = priced(items, *in.Amount)
	}
	b.Name = in.Name
	b.ServiceDetails = details
	b.Address = addr.Snapshot()
	b.Slot = in.Slot
	b.Date = date
	recomputeDiscount(b)
	return s.save(ctx, b)
}

// invoiced are the statuses whose order items came from AddOrderItems.
var invoiced = map[string]bool{
	model.BookingPaymentPending: true,
	model.BookingPaid:           true,
	model.BookingInProgress:     true,
}

// orderTotal is Σ(quantity×price) rounded to cents.
func orderTotal(items []model.OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += float64(it.Quantity) * it.Price
	}
	return utils.Round2(total)
}

// priced returns the amount of a booking with the given order items. Once
// any item exists the amount is their total; requested is used otherwise.
func priced(items []model.OrderItem, requested float64) float64 {
	if len(items) > 0 {
		return orderTotal(items)
	}
	return utils.Round2(requested)
}

// cleanOrderItems drops lines without a name, with a non-positive quantity or
// with a negative price.
func cleanOrderItems(items []model.OrderItem) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" || it.Quantity <= 0 || it.Price < 0 {
			continue
		}
		out = append(out, it)
	}
	return out
}

// AddOrderItems replaces the invoice lines of a booking, sets its amount to
// their total and moves it to PAYMENT_PENDING.
func (s *BookingService) AddOrderItems(ctx context.Context, rawID string, items []model.OrderItem, scope Scope) (*model.BookingDetail, error) {
	b, err := s.load(ctx, rawID, scope)
	if err != nil {
		return nil, err
	}
	clean := cleanOrderItems(items)
	if len(clean) == 0 {
		return nil, apperr.Validation("orderItems", "at least one valid order item is required")
	}
	if !model.CanTransition(b.Status, model.BookingPaymentPending) {
		return nil, apperr.Conflict("cannot add order items to a " + b.Status + " booking")
	}
	b.OrderItems = clean
	b.Amount = orderTotal(clean)
	b.Status = model.BookingPaymentPending
	recomputeDiscount(b)

	d, err := s.save(ctx, b)
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, b, notify.EventBookingStatusChanged, "Invoice ready",
		"Your invoice for "+b.BookingID+" is ready for payment.")
	return d, nil
}

// AssignTechnician hands the booking to a technician who is available or
// already on another job.
func (s *BookingService) AssignTechnician(ctx context.Context, rawID, rawTechnicianID string) (*model.BookingDetail, error) {
	b, err := s.load(ctx, rawID, Scope{})
	if err != nil {
		return nil, err
	}
	techID, err := parseID(rawTechnicianID, "technician id")
	if err != nil {
		return nil, err
	}
	tech, err := s.technicians.GetByID(ctx, techID)
	if err != nil {
		return nil, storeErr(err, "technician", "", "load technician")
	}
	if tech.Status != model.TechAvailable && tech.Status != model.TechOnJob {
		return nil, apperr.Conflict("technician is " + tech.Status)
	}
	if !model.CanTransition(b.Status, model.BookingTechnicianAssigned) {
		return nil, apperr.Conflict("cannot assign a technician to a " + b.Status + " booking")
	}
	b.AssignedTo = &tech.ID
	b.Status = model.BookingTechnicianAssigned

	d, err := s.save(ctx, b)
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, b, notify.EventBookingAssigned, "Technician assigned",
		"A technician has been assigned to "+b.BookingID+".")
	return d, nil
}

// technicianStatuses are the only statuses a technician may set.
var technicianStatuses = map[string]bool{
	model.BookingInProgress: true,
	model.BookingComplete:   true,
}

// UpdateStatus moves a booking along the lifecycle. Technicians may only
// start and complete their own jobs.
func (s *BookingService) UpdateStatus(ctx context.Context, rawID, status string, scope Scope) (*model.BookingDetail, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !model.ValidBookingStatus(status) {
		return nil, apperr.Validation("status", "unknown booking status "+status)
	}
	if scope.UserID != "" {
		return nil, apperr.Forbidden("users may only cancel bookings")
	}
	if scope.TechnicianID != "" && !technicianStatuses[status] {
		return nil, apperr.Forbidden("technicians may only start or complete a booking")
	}
	b, err := s.load(ctx, rawID, scope)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(b.Status, status) {
		return nil, apperr.Conflict("cannot move booking from " + b.Status + " to " + status)
	}
	if status == model.BookingTechnicianAssigned && b.AssignedTo == nil {
		return nil, apperr.Validation("status", "assign a technician instead")
	}
	b.Status = status

	d, err := s.save(ctx, b)
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, b, notify.EventBookingStatusChanged, "Booking update",
		"Booking "+b.BookingID+" is now "+strings.ToLower(strings.ReplaceAll(status, "_", " "))+".")
	return d, nil
}

// Cancel cancels a booking that has not finished yet.
func (s *BookingService) Cancel(ctx context.Context, rawID string, scope Scope) (*model.BookingDetail, error) {
	if scope.TechnicianID != "" {
		return nil, apperr.Forbidden("technicians cannot cancel bookings")
	}
	b, err := s.load(ctx, rawID, scope)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(b.Status, model.BookingCancelled) {
		return nil, apperr.Conflict("cannot cancel a " + b.Status + " booking")
	}
	b.Status = model.BookingCancelled

	d, err := s.save(ctx, b)
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, b, notify.EventBookingStatusChanged, "Booking cancelled",
		"Booking "+b.BookingID+" has been cancelled.")
	return d, nil
}
