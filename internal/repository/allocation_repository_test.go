package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-room-api/internal/models"
)

func TestAllocationRepositoryLockSlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("2024-06-10|08:00|10:00").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.LockSlot(context.Background(), nil, testSlot))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocations")).
		WithArgs(sqlmock.AnyArg(), "course-1", "room-c", "2024-06-10", "08:00", "10:00", 1, 30, "planned", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocations")).
		WithArgs(sqlmock.AnyArg(), "course-1", "room-a", "2024-06-10", "08:00", "10:00", 2, 45, "planned", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rows := []models.Allocation{
		{CourseID: "course-1", RoomID: "room-c", ExamDate: "2024-06-10", StartTime: "08:00", EndTime: "10:00", Sequence: 1, Participants: 30},
		{CourseID: "course-1", RoomID: "room-a", ExamDate: "2024-06-10", StartTime: "08:00", EndTime: "10:00", Sequence: 2, Participants: 45},
	}
	require.NoError(t, repo.CreateBatch(context.Background(), nil, rows))

	for _, row := range rows {
		assert.NotEmpty(t, row.ID)
		assert.False(t, row.CreatedAt.IsZero())
		assert.Equal(t, models.AllocationStatusPlanned, row.Status)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryCreateBatchPropagatesError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocations")).WillReturnError(errors.New("disk full"))

	err := repo.CreateBatch(context.Background(), nil, []models.Allocation{{CourseID: "course-1", RoomID: "room-a", Sequence: 1, Participants: 10}})
	assert.ErrorContains(t, err, "create allocation for course course-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryCancelCourseSlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE allocations SET status = 'cancelled'")).
		WithArgs("course-1", "2024-06-10", "08:00", "10:00").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE allocations SET status = 'cancelled'")).
		WithArgs("course-9", "2024-06-10", "08:00", "10:00").
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.CancelCourseSlot(context.Background(), nil, "course-1", testSlot)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	_, err = repo.CancelCourseSlot(context.Background(), nil, "course-9", testSlot)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryListBySlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "room_id", "exam_date", "start_time", "end_time", "sequence", "participants", "status", "created_at", "course_code", "course_name", "room_name", "room_capacity"}).
		AddRow("alloc-1", "course-1", "room-c", "2024-06-10", "08:00", "10:00", 1, 30, "planned", time.Now(), "CS101", "Algorithms", "C-301", 30).
		AddRow("alloc-2", "course-1", "room-a", "2024-06-10", "08:00", "10:00", 2, 45, "planned", time.Now(), "CS101", "Algorithms", "A-101", 55)
	mock.ExpectQuery(regexp.QuoteMeta("FROM allocations a JOIN courses c ON c.id = a.course_id")).
		WithArgs("2024-06-10", "08:00", "10:00").
		WillReturnRows(rows)

	list, err := repo.ListBySlot(context.Background(), testSlot)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[1].Sequence)
	assert.Equal(t, "A-101", list[1].RoomName)
	assert.Equal(t, models.AllocationStatusPlanned, list[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryFindConflicts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	rows := sqlmock.NewRows([]string{"room_id", "room_name", "existing_course_id", "existing_course_name", "conflicting_course_id", "conflicting_course_name"}).
		AddRow("room-a", "A-101", "course-1", "Algorithms", "course-2", "Databases")
	mock.ExpectQuery(regexp.QuoteMeta("JOIN courses c ON c.id IN")).
		WithArgs("course-1", "course-2", "2024-06-10", "08:00", "10:00").
		WillReturnRows(rows)

	conflicts, err := repo.FindConflicts(context.Background(), testSlot, []string{"course-1", "course-2"})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "course-2", conflicts[0].ConflictingCourseID)
	assert.Equal(t, "Algorithms", conflicts[0].ExistingCourseName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryDailyTotals(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT a.course_id) AS courses")).
		WithArgs("2024-06-10").
		WillReturnRows(sqlmock.NewRows([]string{"courses", "allocations", "participants", "waste"}).AddRow(2, 4, 120, 20))

	totals, err := repo.DailyTotals(context.Background(), "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, models.DailyTotals{Courses: 2, Allocations: 4, Participants: 120, Waste: 20}, totals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryRoomUtilization(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ROUND(AVG(a.participants::numeric / r.capacity * 100), 2) AS utilization")).
		WithArgs("2024-06-10").
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "room_name", "capacity", "allocations", "utilization"}).
			AddRow("room-c", "C-301", 30, 1, "100.00").
			AddRow("room-a", "A-101", 55, 2, "81.82"))

	rows, err := repo.RoomUtilization(context.Background(), "2024-06-10")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.InDelta(t, 100.0, rows[0].Utilization, 0.001)
	assert.InDelta(t, 81.82, rows[1].Utilization, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryDailyStatistics(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.exam_date BETWEEN $1 AND $2")).
		WithArgs("2024-06-10", "2024-06-11").
		WillReturnRows(sqlmock.NewRows([]string{"exam_date", "courses", "allocations", "participants", "waste", "utilization"}).
			AddRow("2024-06-10", 2, 4, 120, 20, "85.50").
			AddRow("2024-06-11", 1, 1, 30, 0, "100.00"))

	rows, err := repo.DailyStatistics(context.Background(), "2024-06-10", "2024-06-11")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-06-10", rows[0].Date)
	assert.Equal(t, 120, rows[0].Participants)
	assert.InDelta(t, 85.5, rows[0].Utilization, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
