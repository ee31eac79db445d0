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
	"github.com/iliyamo/acdoc-booking/internal/repository"
	"github.com/iliyamo/acdoc-booking/internal/utils"
)

// CouponInput is the body of a create or update coupon request.
type CouponInput struct {
	CouponCode string   `json:"couponCode"`
	Discount   *float64 `json:"discount"`
	MinValue   *float64 `json:"minValue"`
	ExpiryDate string   `json:"expiryDate"`
	IsActive   *bool    `json:"isActive"`
}

// ApplyCouponInput is the body of an apply or remove coupon request.
// IsApply 1 applies the coupon, any other value removes it.
type ApplyCouponInput struct {
	CouponCode string   `json:"couponCode"`
	UserID     string   `json:"userId"`
	BookingID  string   `json:"bookingId"`
	Amount     *float64 `json:"amount"`
	IsApply    int      `json:"isApply"`
}

// ApplyResult is always returned with HTTP 200. Status false carries the
// reason the coupon could not be applied.
type ApplyResult struct {
	Status  bool           `json:"status"`
	Message string         `json:"message"`
	Booking *model.Booking `json:"booking,omitempty"`
}

func rejected(msg string) ApplyResult { return ApplyResult{Status: false, Message: msg} }

// couponLocked lists the booking statuses on which the coupon is frozen.
var couponLocked = map[string]bool{
	model.BookingPaid:       true,
	model.BookingInProgress: true,
	model.BookingComplete:   true,
	model.BookingCancelled:  true,
}

// CouponService manages coupons and applies them to bookings.
type CouponService struct {
	coupons  repository.CouponRepository
	bookings repository.BookingRepository
	log      *logrus.Logger
	now      func() time.Time
}

func NewCouponService(coupons repository.CouponRepository, bookings repository.BookingRepository, log *logrus.Logger) *CouponService {
	return &CouponService{
		coupons:  coupons,
		bookings: bookings,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// couponExpired reports whether the expiry instant lies before now.
func couponExpired(c *model.Coupon, now time.Time) bool {
	return c.ExpiryDate.Before(now)
}

// parseExpiry accepts an RFC3339 timestamp, kept as is, or a bare
// YYYY-MM-DD date, read as midnight UTC of that day.
func parseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return d, nil
	}
	return time.Time{}, apperr.Validation("expiryDate", "expiryDate must be an RFC3339 timestamp or a YYYY-MM-DD date")
}

// discount fills the coupon fields of b for amount.
func discount(b *model.Booking, snap *model.CouponSnapshot, amount float64) {
	off := utils.Round2(amount * snap.Discount / 100)
	b.CouponCode = snap.CouponCode
	b.CouponDetails = snap
	b.DiscountAmount = off
	b.DiscountedTotal = utils.Round2(amount - off)
	b.IsCouponApply = model.CouponApplied
}

func clearCoupon(b *model.Booking) {
	b.CouponCode = ""
	b.CouponDetails = nil
	b.DiscountAmount = 0
	b.DiscountedTotal = 0
	b.IsCouponApply = model.CouponRemoved
}

// recomputeDiscount refreshes an applied coupon after the booking amount
// changed.
func recomputeDiscount(b *model.Booking) {
	if b.IsCouponApply == model.CouponApplied && b.CouponDetails != nil {
		discount(b, b.CouponDetails, b.Amount)
	}
}

// Apply applies or removes a coupon on a booking. Business rejections come
// back as ApplyResult with Status false; only infrastructure failures are
// returned as errors.
func (s *CouponService) Apply(ctx context.Context, in ApplyCouponInput) (ApplyResult, error) {
	apply := in.IsApply == model.CouponApplied
	code := strings.ToUpper(strings.TrimSpace(in.CouponCode))
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return rejected("userId is required"), nil
	case strings.TrimSpace(in.BookingID) == "":
		return rejected("bookingId is required"), nil
	case apply && code == "":
		return rejected("couponCode is required"), nil
	case apply && in.Amount == nil:
		return rejected("amount is required"), nil
	}
	bookingID, err := uuid.Parse(strings.TrimSpace(in.BookingID))
	if err != nil {
		return rejected("invalid booking id"), nil
	}
	b, err := s.bookings.GetByID(ctx, bookingID.String())
	if errors.Is(err, repository.ErrNotFound) {
		return rejected("booking not found"), nil
	}
	if err != nil {
		return ApplyResult{}, apperr.Unexpected("load booking", err)
	}
	if b.UserID != strings.TrimSpace(in.UserID) {
		return rejected("booking not found"), nil
	}
	if couponLocked[b.Status] {
		return rejected("coupon cannot be changed on a " + strings.ToLower(b.Status) + " booking"), nil
	}

	if !apply {
		clearCoupon(b)
		if err := s.bookings.Update(ctx, b); err != nil {
			return ApplyResult{}, storeErr(err, "booking", "", "remove coupon")
		}
		return ApplyResult{Status: true, Message: "coupon removed", Booking: b}, nil
	}

	c, err := s.coupons.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return rejected("invalid coupon code"), nil
	}
	if err != nil {
		return ApplyResult{}, apperr.Unexpected("load coupon", err)
	}
	if !c.IsActive {
		return rejected("invalid coupon code"), nil
	}
	if couponExpired(c, s.now()) {
		return rejected("coupon has expired"), nil
	}
	amount := utils.Round2(*in.Amount)
	if amount < c.MinValue {
		return rejected(fmt.Sprintf("minimum order value for this coupon is %.2f", c.MinValue)), nil
	}

	discount(b, c.Snapshot(), amount)
	if err := s.bookings.Update(ctx, b); err != nil {
		return ApplyResult{}, storeErr(err, "booking", "", "apply coupon")
	}
	s.log.WithFields(logrus.Fields{"booking": b.BookingID, "coupon": c.CouponCode}).Info("coupon applied")
	return ApplyResult{Status: true, Message: "coupon applied", Booking: b}, nil
}

func (in *CouponInput) build(c *model.Coupon) error {
	code := strings.ToUpper(strings.TrimSpace(in.CouponCode))
	if code == "" {
		return apperr.Validation("couponCode", "coupon code is required")
	}
	if len(code) > 32 {
		return apperr.Validation("couponCode", "coupon code must be at most 32 characters")
	}
	if in.Discount == nil {
		return apperr.Validation("discount", "discount is required")
	}
	if *in.Discount <= 0 || *in.Discount > 100 {
		return apperr.Validation("discount", "discount must be greater than 0 and at most 100")
	}
	minValue := 0.0
	if in.MinValue != nil {
		minValue = *in.MinValue
	}
	if minValue < 0 {
		return apperr.Validation("minValue", "minimum value must not be negative")
	}
	if strings.TrimSpace(in.ExpiryDate) == "" {
		return apperr.Validation("expiryDate", "expiry date is required")
	}
	expiry, err := parseExpiry(in.ExpiryDate)
	if err != nil {
		return err
	}
	c.CouponCode = code
	c.Discount = utils.Round2(*in.Discount)
	c.MinValue = utils.Round2(minValue)
	c.ExpiryDate = expiry
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return nil
}

// Create adds a coupon. New coupons are active unless IsActive says
// otherwise.
func (s *CouponService) Create(ctx context.Context, in CouponInput) (*model.Coupon, error) {
	c := &model.Coupon{ID: uuid.NewString(), IsActive: true}
	if err := in.build(c); err != nil {
		return nil, err
	}
	if couponExpired(c, s.now()) {
		return nil, apperr.Validation("expiryDate", "expiry date is in the past")
	}
	if err := s.coupons.Create(ctx, c); err != nil {
		return nil, storeErr(err, "coupon", "coupon code already exists", "create coupon")
	}
	return c, nil
}

// Update replaces every field of an existing coupon.
func (s *CouponService) Update(ctx context.Context, rawID string, in CouponInput) (*model.Coupon, error) {
	c, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := in.build(c); err != nil {
		return nil, err
	}
	if err := s.coupons.Update(ctx, c); err != nil {
		return nil, storeErr(err, "coupon", "coupon code already exists", "update coupon")
	}
	return c, nil
}

// Toggle flips the active flag.
func (s *CouponService) Toggle(ctx context.Context, rawID string) (*model.Coupon, error) {
	c, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	c.IsActive = !c.IsActive
	if err := s.coupons.Update(ctx, c); err != nil {
		return nil, storeErr(err, "coupon", "", "toggle coupon")
	}
	return c, nil
}

func (s *CouponService) Get(ctx context.Context, rawID string) (*model.Coupon, error) {
	id, err := parseID(rawID, "coupon id")
	if err != nil {
		return nil, err
	}
	c, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "coupon", "", "load coupon")
	}
	return c, nil
}

// CouponPage is one page of a coupon list.
type CouponPage struct {
	Items []model.Coupon `json:"items"`
	Total int64          `json:"total"`
}

func (s *CouponService) List(ctx context.Context, f repository.CouponFilter) (CouponPage, error) {
	items, total, err := s.coupons.List(ctx, f)
	if err != nil {
		return CouponPage{}, apperr.Unexpected("list coupons", err)
	}
	return CouponPage{Items: items, Total: total}, nil
}
