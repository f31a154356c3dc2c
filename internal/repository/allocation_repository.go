package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-room-api/internal/models"
)

// AllocationRepository persists and aggregates room allocations.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository creates a new allocation repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

func (r *AllocationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockSlot takes a transaction-scoped advisory lock on the slot key. exec must be a transaction.
func (r *AllocationRepository) LockSlot(ctx context.Context, exec sqlx.ExtContext, slot models.Slot) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slot.Key()); err != nil {
		return fmt.Errorf("lock slot %s: %w", slot.Key(), err)
	}
	return nil
}

// CreateBatch inserts allocation rows, assigning ids and timestamps where missing.
func (r *AllocationRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, allocations []models.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO allocations (id, course_id, room_id, exam_date, start_time, end_time, sequence, participants, status, created_at)
VALUES (:id, :course_id, :room_id, :exam_date, :start_time, :end_time, :sequence, :participants, :status, :created_at)`

	for i := range allocations {
		alloc := &allocations[i]
		if alloc.ID == "" {
			alloc.ID = uuid.NewString()
		}
		if alloc.CreatedAt.IsZero() {
			alloc.CreatedAt = now
		}
		if alloc.Status == "" {
			alloc.Status = models.AllocationStatusPlanned
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, alloc); err != nil {
			return fmt.Errorf("create allocation for course %s: %w", alloc.CourseID, err)
		}
	}
	return nil
}

// CancelCourseSlot soft-deletes every active allocation of a course in a slot.
func (r *AllocationRepository) CancelCourseSlot(ctx context.Context, exec sqlx.ExtContext, courseID string, slot models.Slot) (int64, error) {
	const query = `UPDATE allocations SET status = 'cancelled'
WHERE course_id = $1 AND exam_date = $2 AND start_time = $3 AND end_time = $4 AND status <> 'cancelled'`
	res, err := r.exec(exec).ExecContext(ctx, query, courseID, slot.Date, slot.StartTime, slot.EndTime)
	if err != nil {
		return 0, fmt.Errorf("cancel allocations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel allocations rows affected: %w", err)
	}
	if affected == 0 {
		return 0, sql.ErrNoRows
	}
	return affected, nil
}

// ListBySlot returns the active allocations of a slot grouped by course and ordered by sequence.
func (r *AllocationRepository) ListBySlot(ctx context.Context, slot models.Slot) ([]models.AllocationDetail, error) {
	const query = `SELECT a.id, a.course_id, a.room_id, to_char(a.exam_date, 'YYYY-MM-DD') AS exam_date, a.start_time, a.end_time,
a.sequence, a.participants, a.status, a.created_at,
c.code AS course_code, c.name AS course_name, r.name AS room_name, r.capacity AS room_capacity
FROM allocations a
JOIN courses c ON c.id = a.course_id
JOIN rooms r ON r.id = a.room_id
WHERE a.exam_date = $1 AND a.start_time = $2 AND a.end_time = $3 AND a.status <> 'cancelled'
ORDER BY c.name ASC, a.course_id ASC, a.sequence ASC`
	var rows []models.AllocationDetail
	if err := r.db.SelectContext(ctx, &rows, query, slot.Date, slot.StartTime, slot.EndTime); err != nil {
		return nil, fmt.Errorf("list allocations by slot: %w", err)
	}
	return rows, nil
}

// FindConflicts pairs each active allocation in slot with every candidate course other than its own.
func (r *AllocationRepository) FindConflicts(ctx context.Context, slot models.Slot, courseIDs []string) ([]models.AllocationConflict, error) {
	if len(courseIDs) == 0 {
		return []models.AllocationConflict{}, nil
	}
	query, args, err := sqlx.In(`SELECT a.room_id, r.name AS room_name,
a.course_id AS existing_course_id, ec.name AS existing_course_name,
c.id AS conflicting_course_id, c.name AS conflicting_course_name
FROM allocations a
JOIN rooms r ON r.id = a.room_id
JOIN courses ec ON ec.id = a.course_id
JOIN courses c ON c.id IN (?) AND c.id <> a.course_id
WHERE a.exam_date = ? AND a.start_time = ? AND a.end_time = ? AND a.status <> 'cancelled'
ORDER BY r.name ASC, ec.name ASC, c.name ASC`, courseIDs, slot.Date, slot.StartTime, slot.EndTime)
	if err != nil {
		return nil, fmt.Errorf("build conflict query: %w", err)
	}
	var conflicts []models.AllocationConflict
	if err := r.db.SelectContext(ctx, &conflicts, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find allocation conflicts: %w", err)
	}
	return conflicts, nil
}

// DailyTotals aggregates the active allocations of a date.
func (r *AllocationRepository) DailyTotals(ctx context.Context, date string) (models.DailyTotals, error) {
	const query = `SELECT COUNT(DISTINCT a.course_id) AS courses, COUNT(a.id) AS allocations,
COALESCE(SUM(a.participants), 0) AS participants, COALESCE(SUM(r.capacity - a.participants), 0) AS waste
FROM allocations a
JOIN rooms r ON r.id = a.room_id
WHERE a.exam_date = $1 AND a.status <> 'cancelled'`
	var totals models.DailyTotals
	if err := r.db.GetContext(ctx, &totals, query, date); err != nil {
		return models.DailyTotals{}, fmt.Errorf("daily allocation totals: %w", err)
	}
	return totals, nil
}

// RoomUtilization returns each room's average utilisation for a date, highest first.
func (r *AllocationRepository) RoomUtilization(ctx context.Context, date string) ([]models.RoomUtilization, error) {
	const query = `SELECT r.id AS room_id, r.name AS room_name, r.capacity, COUNT(a.id) AS allocations,
ROUND(AVG(a.participants::numeric / r.capacity * 100), 2) AS utilization
FROM allocations a
JOIN rooms r ON r.id = a.room_id
WHERE a.exam_date = $1 AND a.status <> 'cancelled'
GROUP BY r.id, r.name, r.capacity
ORDER BY utilization DESC, r.name ASC`
	var rows []models.RoomUtilization
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("room utilization: %w", err)
	}
	return rows, nil
}

// DailyStatistics returns one row per exam date within [from, to].
func (r *AllocationRepository) DailyStatistics(ctx context.Context, from, to string) ([]models.DailyStatistic, error) {
	const query = `SELECT to_char(a.exam_date, 'YYYY-MM-DD') AS exam_date,
COUNT(DISTINCT a.course_id) AS courses, COUNT(a.id) AS allocations,
COALESCE(SUM(a.participants), 0) AS participants, COALESCE(SUM(r.capacity - a.participants), 0) AS waste,
ROUND(AVG(a.participants::numeric / r.capacity * 100), 2) AS utilization
FROM allocations a
JOIN rooms r ON r.id = a.room_id
WHERE a.exam_date BETWEEN $1 AND $2 AND a.status <> 'cancelled'
GROUP BY a.exam_date
ORDER BY a.exam_date ASC`
	var rows []models.DailyStatistic
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("daily allocation statistics: %w", err)
	}
	return rows, nil
}
