package memory

import (
	"context"
	"sort"

	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/repository"
)

func inWindow(f repository.WorkFilter, technicianID, status, day string) bool {
	if f.TechnicianID != "" && technicianID != f.TechnicianID {
		return false
	}
	if f.Status != "" && status != f.Status {
		return false
	}
	if day != "" && f.From != "" && day < f.From {
		return false
	}
	if day != "" && f.To != "" && day > f.To {
		return false
	}
	return true
}

// AttendanceRepo implements repository.AttendanceRepository.
type AttendanceRepo struct{ s *Store }

func cloneAttendance(a *model.Attendance) *model.Attendance {
	cp := *a
	if a.CheckOutAt != nil {
		t := *a.CheckOutAt
		cp.CheckOutAt = &t
	}
	return &cp
}

func (r *AttendanceRepo) Create(_ context.Context, a *model.Attendance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.attendances {
		if e.ID == a.ID || (e.TechnicianID == a.TechnicianID && e.Day == a.Day) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.attendances[a.ID] = cloneAttendance(a)
	return nil
}

func (r *AttendanceRepo) GetByID(_ context.Context, id string) (*model.Attendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.attendances[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAttendance(a), nil
}

func (r *AttendanceRepo) GetByDay(_ context.Context, technicianID, day string) (*model.Attendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.attendances {
		if a.TechnicianID == technicianID && a.Day == day {
			return cloneAttendance(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *AttendanceRepo) List(_ context.Context, f repository.WorkFilter) ([]model.Attendance, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Attendance{}
	for _, a := range r.s.attendances {
		if inWindow(f, a.TechnicianID, a.Status, a.Day) {
			out = append(out, *cloneAttendance(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day == out[j].Day {
			return out[i].ID < out[j].ID
		}
		return out[i].Day > out[j].Day
	})
	return paginate(out, f.Page, f.Limit, 31), int64(len(out)), nil
}

func (r *AttendanceRepo) Update(_ context.Context, a *model.Attendance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.attendances[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.CheckOutAt = cloneAttendance(a).CheckOutAt
	cur.Status = a.Status
	cur.UpdatedAt = r.s.now()
	a.UpdatedAt = cur.UpdatedAt
	return nil
}

// LeaveRepo implements repository.LeaveRepository.
type LeaveRepo struct{ s *Store }

func (r *LeaveRepo) Create(_ context.Context, l *model.Leave) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.leaves {
		if e.ID == l.ID || (e.TechnicianID == l.TechnicianID && e.Day == l.Day) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	l.CreatedAt, l.UpdatedAt = now, now
	cp := *l
	r.s.leaves[l.ID] = &cp
	return nil
}

func (r *LeaveRepo) GetByID(_ context.Context, id string) (*model.Leave, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.leaves[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *LeaveRepo) List(_ context.Context, f repository.WorkFilter) ([]model.Leave, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Leave{}
	for _, l := range r.s.leaves {
		if inWindow(f, l.TechnicianID, l.Status, l.Day) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day == out[j].Day {
			return out[i].ID < out[j].ID
		}
		return out[i].Day > out[j].Day
	})
	return paginate(out, f.Page, f.Limit, 20), int64(len(out)), nil
}

func (r *LeaveRepo) Update(_ context.Context, l *model.Leave) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.leaves[l.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Reason, cur.Status, cur.UpdatedAt = l.Reason, l.Status, r.s.now()
	l.UpdatedAt = cur.UpdatedAt
	return nil
}

// ToolRequestRepo implements repository.ToolRequestRepository.
type ToolRequestRepo struct{ s *Store }

func (r *ToolRequestRepo) Create(_ context.Context, t *model.ToolRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tools[t.ID]; ok {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	r.s.tools[t.ID] = &cp
	return nil
}

func (r *ToolRequestRepo) GetByID(_ context.Context, id string) (*model.ToolRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tools[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *ToolRequestRepo) List(_ context.Context, f repository.WorkFilter) ([]model.ToolRequest, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.ToolRequest{}
	for _, t := range r.s.tools {
		if inWindow(f, t.TechnicianID, t.Status, "") {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, f.Page, f.Limit, 20), int64(len(out)), nil
}

func (r *ToolRequestRepo) Update(_ context.Context, t *model.ToolRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tools[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Status, cur.UpdatedAt = t.Status, r.s.now()
	t.UpdatedAt = cur.UpdatedAt
	return nil
}

var (
	_ repository.AttendanceRepository  = (*AttendanceRepo)(nil)
	_ repository.LeaveRepository       = (*LeaveRepo)(nil)
	_ repository.ToolRequestRepository = (*ToolRequestRepo)(nil)
)
