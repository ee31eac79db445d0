package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/acdoc-booking/internal/apperr"
	"github.com/iliyamo/acdoc-booking/internal/model"
)

func TestAttendanceFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tech := e.login(t, model.RoleTechnician, "9400000001")
	id := tech.Identity.ID

	_, err := e.technicians.CheckOut(ctx, id)
	requireKind(t, err, apperr.KindNotFound)

	a, err := e.technicians.CheckIn(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.ReviewPending, a.Status)
	require.Equal(t, time.Now().UTC().Format(dateLayout), a.Day)

	_, err = e.technicians.CheckIn(ctx, id)
	requireKind(t, err, apperr.KindConflict)

	out, err := e.technicians.CheckOut(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, out.CheckOutAt)
	_, err = e.technicians.CheckOut(ctx, id)
	requireKind(t, err, apperr.KindConflict)

	_, err = e.technicians.ReviewAttendance(ctx, a.ID, "MAYBE")
	requireKind(t, err, apperr.KindValidation)
	approved, err := e.technicians.ReviewAttendance(ctx, a.ID, "approved")
	require.NoError(t, err)
	require.Equal(t, model.ReviewApproved, approved.Status)
	_, err = e.technicians.ReviewAttendance(ctx, a.ID, model.ReviewRejected)
	requireKind(t, err, apperr.KindConflict)

	page, err := e.technicians.ListAttendance(ctx, WorkQuery{TechnicianID: id})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
}

func TestDisabledTechnicianCannotCheckIn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tech := e.login(t, model.RoleTechnician, "9400000002")
	_, err := e.identities[model.RoleTechnician].SetStatus(ctx, tech.Identity.ID, model.TechDisabled)
	require.NoError(t, err)

	_, err = e.technicians.CheckIn(ctx, tech.Identity.ID)
	requireKind(t, err, apperr.KindForbidden)
}

func TestLeaveFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tech := e.login(t, model.RoleTechnician, "9400000003")
	id := tech.Identity.ID
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(dateLayout)

	_, err := e.technicians.RequestLeave(ctx, id, LeaveInput{Day: tomorrow})
	requireKind(t, err, apperr.KindValidation)
	_, err = e.technicians.RequestLeave(ctx, id, LeaveInput{Day: "2020-01-01", Reason: "family"})
	requireKind(t, err, apperr.KindValidation)

	l, err := e.technicians.RequestLeave(ctx, id, LeaveInput{Day: tomorrow, Reason: "family"})
	require.NoError(t, err)
	_, err = e.technicians.RequestLeave(ctx, id, LeaveInput{Day: tomorrow, Reason: "again"})
	requireKind(t, err, apperr.KindConflict)

	rejected, err := e.technicians.ReviewLeave(ctx, l.ID, model.ReviewRejected)
	require.NoError(t, err)
	require.Equal(t, model.ReviewRejected, rejected.Status)

	page, err := e.technicians.ListLeaves(ctx, WorkQuery{Status: model.ReviewRejected})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
}

func TestToolRequestFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tech := e.login(t, model.RoleTechnician, "9400000004")

	_, err := e.technicians.RequestTool(ctx, tech.Identity.ID, ToolInput{ToolName: "Vacuum pump"})
	requireKind(t, err, apperr.KindValidation)

	tr, err := e.technicians.RequestTool(ctx, tech.Identity.ID, ToolInput{ToolName: "Vacuum pump", Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, model.ToolRequested, tr.Status)

	_, err = e.technicians.UpdateToolStatus(ctx, tr.ID, model.ToolAssigned)
	requireKind(t, err, apperr.KindConflict)

	tr, err = e.technicians.UpdateToolStatus(ctx, tr.ID, model.ToolApproved)
	require.NoError(t, err)
	tr, err = e.technicians.UpdateToolStatus(ctx, tr.ID, model.ToolAssigned)
	require.NoError(t, err)
	require.Equal(t, model.ToolAssigned, tr.Status)

	_, err = e.technicians.UpdateToolStatus(ctx, tr.ID, model.ToolDenied)
	requireKind(t, err, apperr.KindConflict)

	page, err := e.technicians.ListToolRequests(ctx, WorkQuery{TechnicianID: tech.Identity.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
}
