package model

import "time"

// Booking statuses.
const (
	BookingBooked             = "BOOKED"
	BookingAssignmentPending  = "ASSIGNMENT_PENDING"
	BookingTechnicianAssigned = "TECHNICIAN_ASSIGNED"
	BookingPaymentPending     = "PAYMENT_PENDING"
	BookingPaid               = "PAID"
	BookingInProgress         = "IN_PROGRESS"
	BookingComplete           = "COMPLETE"
	BookingCancelled          = "CANCELLED"
)

// Booking slots.
const (
	SlotFirstHalf  = "FIRST_HALF"
	SlotSecondHalf = "SECOND_HALF"
)

// Coupon application markers stored in Booking.IsCouponApply.
const (
	CouponNeverApplied = 0
	CouponApplied      = 1
	CouponRemoved      = 2
)

// bookingTransitions lists the statuses reachable from each status.
var bookingTransitions = map[string][]string{
	BookingBooked:             {BookingAssignmentPending, BookingTechnicianAssigned, BookingPaymentPending, BookingCancelled},
	BookingAssignmentPending:  {BookingTechnicianAssigned, BookingPaymentPending, BookingCancelled},
	BookingTechnicianAssigned: {BookingTechnicianAssigned, BookingPaymentPending, BookingCancelled},
	BookingPaymentPending:     {BookingPaymentPending, BookingPaid, BookingCancelled},
	BookingPaid:               {BookingInProgress, BookingCancelled},
	BookingInProgress:         {BookingComplete, BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalBookingStatus reports whether no further transition is possible.
func IsTerminalBookingStatus(s string) bool {
	return s == BookingComplete || s == BookingCancelled
}

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingBooked, BookingAssignmentPending, BookingTechnicianAssigned, BookingPaymentPending,
		BookingPaid, BookingInProgress, BookingComplete, BookingCancelled:
		return true
	}
	return false
}

// ServiceDetail is one requested service line on a booking. ServiceName is
// resolved from the catalogue at creation time.
type ServiceDetail struct {
	ServiceID   string `json:"serviceId"`
	ServiceName string `json:"serviceName"`
	Quantity    int    `json:"quantity"`
}

// OrderItem is an invoice line added once the technician has inspected the job.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// AddressSnapshot is a copy of the user's address taken when the booking was
// made; later edits to the address do not change it.
type AddressSnapshot struct {
	AddressID string `json:"addressId"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Landmark  string `json:"landmark,omitempty"`
}

// CouponSnapshot is the denormalised copy of the coupon stored on a booking.
type CouponSnapshot struct {
	CouponID   string    `json:"couponId"`
	CouponCode string    `json:"couponCode"`
	Discount   float64   `json:"discount"`
	MinValue   float64   `json:"minValue"`
	ExpiryDate time.Time `json:"expiryDate"`
}

// Booking is a service request made by a user.
type Booking struct {
	ID              string          `json:"id"`
	BookingID       string          `json:"bookingId"`
	UserID          string          `json:"userId"`
	Name            string          `json:"name"`
	ServiceDetails  []ServiceDetail `json:"serviceDetails"`
	Address         AddressSnapshot `json:"address"`
	Slot            string          `json:"slot"`
	Date            time.Time       `json:"date"`
	Amount          float64         `json:"amount"`
	Status          string          `json:"status"`
	AssignedTo      *string         `json:"assignedTo"`
	OrderItems      []OrderItem     `json:"orderItems"`
	CouponCode      string          `json:"couponCode"`
	CouponDetails   *CouponSnapshot `json:"couponDetails"`
	DiscountAmount  float64         `json:"discountAmount"`
	DiscountedTotal float64         `json:"discountedTotal"`
	IsCouponApply   int             `json:"isCouponApply"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// PartyRef is the short form of a user or technician joined into a booking read.
type PartyRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// BookingDetail is a booking joined with its user and technician.
type BookingDetail struct {
	Booking
	User       *PartyRef `json:"user"`
	Technician *PartyRef `json:"technician"`
}

// BookingFilter describes a booking list query.
type BookingFilter struct {
	UserID       string
	TechnicianID string
	Search       string
	Statuses     []string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
	SortBy       string
	SortDesc     bool
}
