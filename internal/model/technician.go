package model

import "time"

// Review statuses shared by attendance and leave records.
const (
	ReviewPending  = "PENDING"
	ReviewApproved = "APPROVED"
	ReviewRejected = "REJECTED"
)

// Tool request statuses.
const (
	ToolRequested = "REQUESTED"
	ToolApproved  = "APPROVED"
	ToolDenied    = "DENIED"
	ToolAssigned  = "ASSIGNED"
)

// Attendance is a technician's daily check-in. Day is stored as YYYY-MM-DD and
// is unique per technician.
type Attendance struct {
	ID           string     `json:"id"`
	TechnicianID string     `json:"technicianId"`
	Day          string     `json:"day"`
	CheckInAt    time.Time  `json:"checkInAt"`
	CheckOutAt   *time.Time `json:"checkOutAt"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Leave is a single-day leave request, unique per technician and day.
type Leave struct {
	ID           string    `json:"id"`
	TechnicianID string    `json:"technicianId"`
	Day          string    `json:"day"`
	Reason       string    `json:"reason"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ToolRequest asks the admin for a tool or consumable.
type ToolRequest struct {
	ID           string    `json:"id"`
	TechnicianID string    `json:"technicianId"`
	ToolName     string    `json:"toolName"`
	Quantity     int       `json:"quantity"`
	Reason       string    `json:"reason"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CanReview reports whether a PENDING review record may move to status.
func CanReview(from, to string) bool {
	return from == ReviewPending && (to == ReviewApproved || to == ReviewRejected)
}

// CanMoveTool reports whether a tool request may move between two statuses.
func CanMoveTool(from, to string) bool {
	switch from {
	case ToolRequested:
		return to == ToolApproved || to == ToolDenied
	case ToolApproved:
		return to == ToolAssigned
	}
	return false
}
