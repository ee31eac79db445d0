package model

import "time"

// Role names one of the three identity classes. Each class lives in its own
// table and signs its tokens with its own secret pair.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
	RoleTechnician Role = "technician"
)

// Admin and user statuses.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// Technician statuses.
const (
	TechSignedUp   = "SIGNED_UP"
	TechKYCPending = "KYC_PENDING"
	TechAvailable  = "AVAILABLE"
	TechOnJob      = "ON_JOB"
	TechOnLeave    = "ON_LEAVE"
	TechDisabled   = "DISABLED"
)

// Identity is the shared shape of admins, users and technicians.
//
// Fields:
//
//	ID               – UUID primary key.
//	Role             – identity class; not persisted, set by the repository.
//	Name             – display name, may be empty until the profile is filled in.
//	CountryCode      – dialling prefix such as "+91".
//	Phone            – national number; unique together with CountryCode.
//	Status           – role-specific lifecycle status.
//	RefreshTokenHash – SHA-256 of the single active refresh token, empty when none.
//	DeviceToken      – push token registered by the client app.
type Identity struct {
	ID               string    `json:"id"`
	Role             Role      `json:"role"`
	Name             string    `json:"name"`
	CountryCode      string    `json:"countryCode"`
	Phone            string    `json:"phone"`
	Status           string    `json:"status"`
	RefreshTokenHash string    `json:"-"`
	DeviceToken      string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// FullPhone returns the number in the form expected by the SMS gateway.
func (i *Identity) FullPhone() string {
	return i.CountryCode + i.Phone
}

// ValidTechnicianStatus reports whether s is a known technician status.
func ValidTechnicianStatus(s string) bool {
	switch s {
	case TechSignedUp, TechKYCPending, TechAvailable, TechOnJob, TechOnLeave, TechDisabled:
		return true
	}
	return false
}
