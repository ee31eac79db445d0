package model

import "time"

// Service is a catalogue entry a user can book, such as "AC gas refill".
type Service struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Address is a user's saved service location.
type Address struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Line1     string    `json:"line1"`
	Line2     string    `json:"line2"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Pincode   string    `json:"pincode"`
	Landmark  string    `json:"landmark"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot copies the address into the booking form.
func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		AddressID: a.ID,
		Line1:     a.Line1,
		Line2:     a.Line2,
		City:      a.City,
		State:     a.State,
		Pincode:   a.Pincode,
		Landmark:  a.Landmark,
	}
}
