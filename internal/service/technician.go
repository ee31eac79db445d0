package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/repository"
)

// LeaveInput is the body of a leave request.
type LeaveInput struct {
	Day    string `json:"day"`
	Reason string `json:"reason"`
}

// ToolInput is the body of a tool request.
type ToolInput struct {
	ToolName string `json:"toolName"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// WorkQuery is a list request for attendance, leaves or tool requests.
type WorkQuery struct {
	TechnicianID string
	Status       string
	From         string
	To           string
	Page         int
	Limit        int
}

// WorkPage is one page of technician records.
type WorkPage[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

// TechnicianService covers technician self-service (attendance, leave, tool
// requests) and the matching admin reviews.
type TechnicianService struct {
	technicians repository.IdentityRepository
	attendances repository.AttendanceRepository
	leaves      repository.LeaveRepository
	tools       repository.ToolRequestRepository
	log         *logrus.Logger
	now         func() time.Time
}

func NewTechnicianService(
	technicians repository.IdentityRepository,
	attendances repository.AttendanceRepository,
	leaves repository.LeaveRepository,
	tools repository.ToolRequestRepository,
	log *logrus.Logger,
) *TechnicianService {
	return &TechnicianService{
		technicians: technicians,
		attendances: attendances,
		leaves:      leaves,
		tools:       tools,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// active loads a technician that is allowed to work.
func (s *TechnicianService) active(ctx context.Context, technicianID string) (*model.Identity, error) {
	tech, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		return nil, storeErr(err, "technician", "", "load technician")
	}
	if tech.Status == model.TechDisabled {
		return nil, apperr.Forbidden("technician is disabled")
	}
	return tech, nil
}

// CheckIn records today's attendance. A second check-in on the same day is a
// conflict.
func (s *TechnicianService) CheckIn(ctx context.Context, technicianID string) (*model.Attendance, error) {
	if _, err := s.active(ctx, technicianID); err != nil {
		return nil, err
	}
	now := s.now()
	a := &model.Attendance{
		ID:           uuid.NewString(),
		TechnicianID: technicianID,
		Day:          now.Format(dateLayout),
		CheckInAt:    now,
		Status:       model.ReviewPending,
	}
	if err := s.attendances.Create(ctx, a); err != nil {
		return nil, storeErr(err, "attendance", "already checked in today", "check in")
	}
	return a, nil
}

// CheckOut closes today's attendance.
func (s *TechnicianService) CheckOut(ctx context.Context, technicianID string) (*model.Attendance, error) {
	a, err := s.attendances.GetByDay(ctx, technicianID, s.now().Format(dateLayout))
	if err != nil {
		return nil, storeErr(err, "attendance", "", "load attendance")
	}
	if a.CheckOutAt != nil {
		return nil, apperr.Conflict("already checked out today")
	}
	now := s.now()
	a.CheckOutAt = &now
	if err := s.attendances.Update(ctx, a); err != nil {
		return nil, storeErr(err, "attendance", "", "check out")
	}
	return a, nil
}

func reviewStatus(raw string) (string, error) {
	status := strings.ToUpper(strings.TrimSpace(raw))
	if status != model.ReviewApproved && status != model.ReviewRejected {
		return "", apperr.Validation("status", "status must be APPROVED or REJECTED")
	}
	return status, nil
}

// ReviewAttendance approves or rejects a pending attendance record.
func (s *TechnicianService) ReviewAttendance(ctx context.Context, rawID, rawStatus string) (*model.Attendance, error) {
	status, err := reviewStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	id, err := parseID(rawID, "attendance id")
	if err != nil {
		return nil, err
	}
	a, err := s.attendances.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "attendance", "", "load attendance")
	}
	if !model.CanReview(a.Status, status) {
		return nil, apperr.Conflict("attendance is already " + strings.ToLower(a.Status))
	}
	a.Status = status
	if err := s.attendances.Update(ctx, a); err != nil {
		return nil, storeErr(err, "attendance", "", "review attendance")
	}
	return a, nil
}

// RequestLeave files a leave request for a day that has not passed yet.
func (s *TechnicianService) RequestLeave(ctx context.Context, technicianID string, in LeaveInput) (*model.Leave, error) {
	if strings.TrimSpace(in.Day) == "" {
		return nil, apperr.Validation("day", "day is required")
	}
	day, err := parseDate(in.Day, "day")
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, apperr.Validation("reason", "reason is required")
	}
	if day.Format(dateLayout) < s.now().Format(dateLayout) {
		return nil, apperr.Validation("day", "day must not be in the past")
	}
	if _, err := s.active(ctx, technicianID); err != nil {
		return nil, err
	}
	l := &model.Leave{
		ID:           uuid.NewString(),
		TechnicianID: technicianID,
		Day:          day.Format(dateLayout),
		Reason:       reason,
		Status:       model.ReviewPending,
	}
	if err := s.leaves.Create(ctx, l); err != nil {
		return nil, storeErr(err, "leave", "leave already requested for that day", "request leave")
	}
	return l, nil
}

// ReviewLeave approves or rejects a pending leave request.
func (s *TechnicianService) ReviewLeave(ctx context.Context, rawID, rawStatus string) (*model.Leave, error) {
	status, err := reviewStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	id, err := parseID(rawID, "leave id")
	if err != nil {
		return nil, err
	}
	l, err := s.leaves.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "leave", "", "load leave")
	}
	if !model.CanReview(l.Status, status) {
		return nil, apperr.Conflict("leave is already " + strings.ToLower(l.Status))
	}
	l.Status = status
	if err := s.leaves.Update(ctx, l); err != nil {
		return nil, storeErr(err, "leave", "", "review leave")
	}
	s.log.WithFields(logrus.Fields{"leave": l.ID, "technician": l.TechnicianID, "status": status}).Info("leave reviewed")
	return l, nil
}

// RequestTool asks for a tool or consumable.
func (s *TechnicianService) RequestTool(ctx context.Context, technicianID string, in ToolInput) (*model.ToolRequest, error) {
	name := strings.TrimSpace(in.ToolName)
	if name == "" {
		return nil, apperr.Validation("toolName", "tool name is required")
	}
	if in.Quantity < 1 {
		return nil, apperr.Validation("quantity", "quantity must be at least 1")
	}
	if _, err := s.active(ctx, technicianID); err != nil {
		return nil, err
	}
	t := &model.ToolRequest{
		ID:           uuid.NewString(),
		TechnicianID: technicianID,
		ToolName:     name,
		Quantity:     in.Quantity,
		Reason:       strings.TrimSpace(in.Reason),
		Status:       model.ToolRequested,
	}
	if err := s.tools.Create(ctx, t); err != nil {
		return nil, storeErr(err, "tool request", "", "request tool")
	}
	return t, nil
}

// UpdateToolStatus moves a tool request along REQUESTED, APPROVED or DENIED,
// then ASSIGNED.
func (s *TechnicianService) UpdateToolStatus(ctx context.Context, rawID, rawStatus string) (*model.ToolRequest, error) {
	status := strings.ToUpper(strings.TrimSpace(rawStatus))
	switch status {
	case model.ToolApproved, model.ToolDenied, model.ToolAssigned:
	default:
		return nil, apperr.Validation("status", "status must be APPROVED, DENIED or ASSIGNED")
	}
	id, err := parseID(rawID, "tool request id")
	if err != nil {
		return nil, err
	}
	t, err := s.tools.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "tool request", "", "load tool request")
	}
	if !model.CanMoveTool(t.Status, status) {
		return nil, apperr.Conflict("cannot move tool request from " + t.Status + " to " + status)
	}
	t.Status = status
	if err := s.tools.Update(ctx, t); err != nil {
		return nil, storeErr(err, "tool request", "", "update tool request")
	}
	return t, nil
}

func (q WorkQuery) filter() (repository.WorkFilter, error) {
	f := repository.WorkFilter{
		TechnicianID: q.TechnicianID,
		Status:       strings.ToUpper(strings.TrimSpace(q.Status)),
		Page:         q.Page,
		Limit:        q.Limit,
	}
	if q.From != "" {
		d, err := parseDate(q.From, "from")
		if err != nil {
			return f, err
		}
		f.From = d.Format(dateLayout)
	}
	if q.To != "" {
		d, err := parseDate(q.To, "to")
		if err != nil {
			return f, err
		}
		f.To = d.Format(dateLayout)
	}
	return f, nil
}

func (s *TechnicianService) ListAttendance(ctx context.Context, q WorkQuery) (WorkPage[model.Attendance], error) {
	f, err := q.filter()
	if err != nil {
		return WorkPage[model.Attendance]{}, err
	}
	items, total, err := s.attendances.List(ctx, f)
	if err != nil {
		return WorkPage[model.Attendance]{}, apperr.Unexpected("list attendance", err)
	}
	return WorkPage[model.Attendance]{Items: items, Total: total}, nil
}

func (s *TechnicianService) ListLeaves(ctx context.Context, q WorkQuery) (WorkPage[model.Leave], error) {
	f, err := q.filter()
	if err != nil {
		return WorkPage[model.Leave]{}, err
	}
	items, total, err := s.leaves.List(ctx, f)
	if err != nil {
		return WorkPage[model.Leave]{}, apperr.Unexpected("list leaves", err)
	}
	return WorkPage[model.Leave]{Items: items, Total: total}, nil
}

func (s *TechnicianService) ListToolRequests(ctx context.Context, q WorkQuery) (WorkPage[model.ToolRequest], error) {
	f, err := q.filter()
	if err != nil {
		return WorkPage[model.ToolRequest]{}, err
	}
	items, total, err := s.tools.List(ctx, f)
	if err != nil {
		return WorkPage[model.ToolRequest]{}, apperr.Unexpected("list tool requests", err)
	}
	return WorkPage[model.ToolRequest]{Items: items, Total: total}, nil
}
