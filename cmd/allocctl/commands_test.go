package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-room-api/internal/dto"
	"github.com/noah-isme/exam-room-api/internal/models"
	appErrors "github.com/noah-isme/exam-room-api/pkg/errors"
)

var cliSlot = models.Slot{Date: "2024-06-10", StartTime: "08:00", EndTime: "10:00"}

type fakeServices struct {
	allocateReq dto.AllocationRequest
	previewReq  dto.AllocationRequest
	conflictReq dto.ConflictCheckRequest
	cancelReq   dto.CancelAllocationRequest
	statsQuery  dto.StatisticsQuery
	err         error
}

func (f *fakeServices) batch(committed bool) *dto.AllocationBatchResponse {
	return &dto.AllocationBatchResponse{
		BatchID:   "batch-1",
		Slot:      cliSlot,
		Strategy:  "greedy",
		Committed: committed,
		Results: []dto.CourseResult{{
			CourseID: "X", CourseCode: "IF101", Participants: 75, Success: true, TotalWaste: 10, Message: "allocation created",
			Assignments: []dto.RoomAssignment{{RoomName: "C-101", Assigned: 30}, {RoomName: "A-101", Assigned: 45}},
		}},
		Summary: dto.BatchSummary{TotalCourses: 1, Succeeded: 1, TotalAllocations: 2, TotalParticipants: 75, TotalWaste: 10},
	}
}

func (f *fakeServices) Allocate(_ context.Context, req dto.AllocationRequest) (*dto.AllocationBatchResponse, error) {
	f.allocateReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.batch(true), nil
}

func (f *fakeServices) Preview(_ context.Context, req dto.AllocationRequest) (*dto.AllocationBatchResponse, error) {
	f.previewReq = req
	return f.batch(false), nil
}

func (f *fakeServices) CheckConflicts(_ context.Context, req dto.ConflictCheckRequest) (*dto.ConflictReport, error) {
	f.conflictReq = req
	return &dto.ConflictReport{HasConflicts: true, Conflicts: []models.AllocationConflict{
		{RoomName: "A-101", ExistingCourseName: "Databases", ConflictingCourseName: "Algorithms"},
	}}, nil
}

func (f *fakeServices) CancelCourse(_ context.Context, req dto.CancelAllocationRequest) (*dto.CancelAllocationResponse, error) {
	f.cancelReq = req
	return &dto.CancelAllocationResponse{CourseID: req.CourseID, Slot: cliSlot, Cancelled: 2}, nil
}

func (f *fakeServices) DailySummary(_ context.Context, query dto.SummaryQuery) (*dto.DailySummaryResponse, bool, error) {
	return &dto.DailySummaryResponse{
		Date:        query.Date,
		DailyTotals: models.DailyTotals{Courses: 2, Allocations: 4, Participants: 120, Waste: 30},
		Rooms:       []models.RoomUtilization{{RoomName: "A-101", Capacity: 55, Allocations: 2, Utilization: 100}},
	}, false, nil
}

func (f *fakeServices) Statistics(_ context.Context, query dto.StatisticsQuery) (*dto.StatisticsResponse, bool, error) {
	f.statsQuery = query
	return &dto.StatisticsResponse{
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
		Days:      []models.DailyStatistic{{Date: "2024-06-10", DailyTotals: models.DailyTotals{Courses: 2}, Utilization: 87.5}},
		Summary:   dto.StatisticsRollup{Days: 1, Courses: 2, AverageUtilization: 87.5},
	}, false, nil
}

type fakeFactory struct {
	services *fakeServices
	opts     globalOptions
	opened   int
	closed   int
}

func (f *fakeFactory) open(_ context.Context, opts globalOptions) (*backend, error) {
	f.opened++
	f.opts = opts
	return &backend{allocations: f.services, summaries: f.services, close: func() { f.closed++ }}, nil
}

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func newTestRoot() (*cobra.Command, *fakeFactory) {
	factory := &fakeFactory{services: &fakeServices{}}
	return newRootCmd(factory.open), factory
}

func TestAllocateCommandPrintsBatch(t *testing.T) {
	root, factory := newTestRoot()

	out, err := executeCommand(root, "allocate", "--date", "2024-06-10", "--start", "08:00", "--end", "10:00", "--course", "X,Y")
	require.NoError(t, err)

	assert.Equal(t, []string{"X", "Y"}, factory.services.allocateReq.CourseIDs)
	assert.Equal(t, "2024-06-10", factory.services.allocateReq.Date)
	assert.Contains(t, out, "batch batch-1 (committed, greedy) slot 2024-06-10|08:00|10:00")
	assert.Contains(t, out, "C-101:30,A-101:45")
	assert.Contains(t, out, "1 of 1 courses allocated")
	assert.Equal(t, 1, factory.opened)
	assert.Equal(t, 1, factory.closed)
}

func TestPreviewCommandJSONAndStrategy(t *testing.T) {
	root, factory := newTestRoot()

	out, err := executeCommand(root, "preview", "--json", "--strategy", "exact", "--date", "2024-06-10", "--start", "08:00", "--end", "10:00")
	require.NoError(t, err)

	assert.Equal(t, "exact", factory.opts.strategy)
	assert.Empty(t, factory.services.previewReq.CourseIDs)
	var resp dto.AllocationBatchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Committed)
	assert.Equal(t, "batch-1", resp.BatchID)
}

func TestRejectsUnknownStrategy(t *testing.T) {
	root, factory := newTestRoot()

	_, err := executeCommand(root, "preview", "--strategy", "random", "--date", "2024-06-10", "--start", "08:00", "--end", "10:00")
	require.Error(t, err)
	assert.Equal(t, 0, factory.opened)
}

func TestAllocateCommandRequiresSlotFlags(t *testing.T) {
	root, factory := newTestRoot()

	_, err := executeCommand(root, "allocate", "--date", "2024-06-10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start")
	assert.Equal(t, 0, factory.opened)
}

func TestAllocateCommandSurfacesServiceError(t *testing.T) {
	root, factory := newTestRoot()
	factory.services.err = appErrors.ErrSlotLocked

	_, err := executeCommand(root, "allocate", "--date", "2024-06-10", "--start", "08:00", "--end", "10:00")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSlotLocked))
	assert.Equal(t, 1, factory.closed)
}

func TestConflictsCommand(t *testing.T) {
	root, factory := newTestRoot()

	out, err := executeCommand(root, "conflicts", "--date", "2024-06-10", "--start", "08:00", "--end", "10:00", "--course", "X")
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, factory.services.conflictReq.CourseIDs)
	assert.Contains(t, out, "A-101")
	assert.Contains(t, out, "Databases")
	assert.Contains(t, out, "Algorithms")
}

func TestCancelCommand(t *testing.T) {
	root, factory := newTestRoot()

	out, err := executeCommand(root, "cancel", "--date", "2024-06-10", "--start", "08:00", "--end", "10:00", "--course", "X")
	require.NoError(t, err)
	assert.Equal(t, "X", factory.services.cancelReq.CourseID)
	assert.Contains(t, out, "cancelled 2 allocations of X in 2024-06-10|08:00|10:00")
}

func TestSummaryAndStatsCommands(t *testing.T) {
	root, _ := newTestRoot()
	out, err := executeCommand(root, "summary", "--date", "2024-06-10")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-06-10: 2 courses, 4 allocations, 120 participants, 30 wasted seats")
	assert.Contains(t, out, "100.00%")

	root, factory := newTestRoot()
	out, err = executeCommand(root, "stats", "--from", "2024-06-01", "--to", "2024-06-30")
	require.NoError(t, err)
	assert.Equal(t, dto.StatisticsQuery{StartDate: "2024-06-01", EndDate: "2024-06-30"}, factory.services.statsQuery)
	assert.Contains(t, out, "TOTAL (1 days)")
	assert.Contains(t, out, "87.50%")
}
