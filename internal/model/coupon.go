package model

import "time"

// Coupon is a percentage discount code managed by admins.
type Coupon struct {
	ID         string    `json:"id"`
	CouponCode string    `json:"couponCode"`
	Discount   float64   `json:"discount"`
	MinValue   float64   `json:"minValue"`
	ExpiryDate time.Time `json:"expiryDate"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Snapshot returns the copy of the coupon stored on a booking.
func (c *Coupon) Snapshot() *CouponSnapshot {
	return &CouponSnapshot{
		CouponID:   c.ID,
		CouponCode: c.CouponCode,
		Discount:   c.Discount,
		MinValue:   c.MinValue,
		ExpiryDate: c.ExpiryDate,
	}
}
