package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-room-api/internal/models"
)

var testSlot = models.Slot{Date: "2024-06-10", StartTime: "08:00", EndTime: "10:00"}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func testRoom(id string, capacity int, building string, floor int) models.RoomUsage {
	room := models.RoomUsage{Room: models.Room{
		ID:       id,
		Name:     id,
		Capacity: capacity,
		Status:   models.RoomStatusActive,
	}}
	if building != "" {
		room.Building = strPtr(building)
	}
	if floor > 0 {
		room.Floor = intPtr(floor)
	}
	return room
}

func testCourse(id string, participants int) models.CourseDemand {
	return models.CourseDemand{Course: models.Course{
		ID:           id,
		Code:         "C-" + id,
		Name:         id,
		Participants: participants,
		Status:       models.CourseStatusActive,
	}}
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// allocationWorld is an in-memory stand-in for the rooms, courses and allocations tables.
type allocationWorld struct {
	mu        sync.Mutex
	rooms     []models.RoomUsage
	courses   []models.CourseDemand
	rows      []models.Allocation
	createErr error
	failAfter int
	creates   int
	lockCalls int
	conflicts []models.AllocationConflict
	roomReads []sqlx.ExtContext
	gotIDs    []string
}

func (w *allocationWorld) ListWithSlotUsage(_ context.Context, exec sqlx.ExtContext, slot models.Slot) ([]models.RoomUsage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roomReads = append(w.roomReads, exec)
	out := make([]models.RoomUsage, 0, len(w.rooms))
	for _, room := range w.rooms {
		usage := room
		for _, row := range w.rows {
			if row.RoomID == room.ID && row.Status != models.AllocationStatusCancelled &&
				row.ExamDate == slot.Date && row.StartTime == slot.StartTime && row.EndTime == slot.EndTime {
				usage.Allocated += row.Participants
			}
		}
		out = append(out, usage)
	}
	return out, nil
}

// allocatedFor sums a course's active seats, over every slot when slot is nil.
func (w *allocationWorld) allocatedFor(courseID string, slot *models.Slot) int {
	total := 0
	for _, row := range w.rows {
		if row.CourseID != courseID || row.Status == models.AllocationStatusCancelled {
			continue
		}
		if slot != nil && (row.ExamDate != slot.Date || row.StartTime != slot.StartTime || row.EndTime != slot.EndTime) {
			continue
		}
		total += row.Participants
	}
	return total
}

func (w *allocationWorld) ListActiveByIDs(_ context.Context, ids []string, slot models.Slot) ([]models.CourseDemand, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gotIDs = append([]string(nil), ids...)
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.CourseDemand
	for _, c := range w.courses {
		if wanted[c.ID] && c.Status == models.CourseStatusActive {
			c.Allocated = w.allocatedFor(c.ID, &slot)
			out = append(out, c)
		}
	}
	return out, nil
}

func (w *allocationWorld) ListNeedingAllocation(_ context.Context, slot models.Slot) ([]models.CourseDemand, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []models.CourseDemand
	for _, c := range w.courses {
		if c.Status == models.CourseStatusActive && w.allocatedFor(c.ID, nil) < c.Participants {
			c.Allocated = w.allocatedFor(c.ID, &slot)
			out = append(out, c)
		}
	}
	return out, nil
}

func (w *allocationWorld) LockSlot(context.Context, sqlx.ExtContext, models.Slot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lockCalls++
	return nil
}

func (w *allocationWorld) CreateBatch(_ context.Context, _ sqlx.ExtContext, rows []models.Allocation) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.creates++
	if w.createErr != nil && w.creates > w.failAfter {
		return w.createErr
	}
	for i := range rows {
		rows[i].ID = fmt.Sprintf("alloc-%d", len(w.rows)+1)
		w.rows = append(w.rows, rows[i])
	}
	return nil
}

func (w *allocationWorld) CancelCourseSlot(_ context.Context, _ sqlx.ExtContext, courseID string, slot models.Slot) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var n int64
	for i := range w.rows {
		row := &w.rows[i]
		if row.CourseID == courseID && row.ExamDate == slot.Date && row.StartTime == slot.StartTime &&
			row.EndTime == slot.EndTime && row.Status != models.AllocationStatusCancelled {
			row.Status = models.AllocationStatusCancelled
			n++
		}
	}
	if n == 0 {
		return 0, sql.ErrNoRows
	}
	return n, nil
}

func (w *allocationWorld) ListBySlot(context.Context, models.Slot) ([]models.AllocationDetail, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []models.AllocationDetail
	for _, row := range w.rows {
		if row.Status != models.AllocationStatusCancelled {
			out = append(out, models.AllocationDetail{Allocation: row})
		}
	}
	return out, nil
}

func (w *allocationWorld) FindConflicts(context.Context, models.Slot, []string) ([]models.AllocationConflict, error) {
	return w.conflicts, nil
}

// roomLoad sums active seats per room for a slot.
func (w *allocationWorld) roomLoad() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	load := make(map[string]int)
	for _, row := range w.rows {
		if row.Status != models.AllocationStatusCancelled {
			load[row.RoomID] += row.Participants
		}
	}
	return load
}

type recordedEvent struct {
	eventType string
	payload   interface{}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Dispatch(_ context.Context, eventType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{eventType: eventType, payload: payload})
}

type invalidationRecorder struct {
	mu    sync.Mutex
	dates []string
}

func (r *invalidationRecorder) InvalidateDate(_ context.Context, date string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, date)
}
