package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-room-api/internal/models"
)

// CourseRepository reads courses eligible for allocation.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `c.id, c.code, c.name, c.participants, c.lecturer, c.semester, c.academic_year, c.status`

const courseGroupBy = `GROUP BY c.id, c.code, c.name, c.participants, c.lecturer, c.semester, c.academic_year, c.status`

// slotAllocated sums the seats a course holds in the slot bound to the first three placeholders.
const slotAllocated = `COALESCE(SUM(CASE WHEN a.exam_date = ? AND a.start_time = ? AND a.end_time = ? THEN a.participants ELSE 0 END), 0) AS allocated`

// ListActiveByIDs returns the active courses among ids ordered by name, with the seats they already hold in slot.
func (r *CourseRepository) ListActiveByIDs(ctx context.Context, ids []string, slot models.Slot) ([]models.CourseDemand, error) {
	if len(ids) == 0 {
		return []models.CourseDemand{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+courseColumns+`, `+slotAllocated+`
FROM courses c
LEFT JOIN allocations a ON a.course_id = c.id AND a.status <> 'cancelled'
WHERE c.id IN (?) AND c.status = 'active'
`+courseGroupBy+`
ORDER BY c.name ASC`, slot.Date, slot.StartTime, slot.EndTime, ids)
	if err != nil {
		return nil, fmt.Errorf("build list courses query: %w", err)
	}
	var courses []models.CourseDemand
	if err := r.db.SelectContext(ctx, &courses, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list courses by ids: %w", err)
	}
	return courses, nil
}

// ListNeedingAllocation returns active courses whose non-cancelled allocations, over every slot, seat fewer
// than their participants. Allocated reports the seats held in slot only.
func (r *CourseRepository) ListNeedingAllocation(ctx context.Context, slot models.Slot) ([]models.CourseDemand, error) {
	query := r.db.Rebind(`SELECT ` + courseColumns + `, ` + slotAllocated + `
FROM courses c
LEFT JOIN allocations a ON a.course_id = c.id AND a.status <> 'cancelled'
WHERE c.status = 'active'
` + courseGroupBy + `
HAVING COALESCE(SUM(a.participants), 0) < c.participants
ORDER BY c.participants DESC, c.name ASC`)
	var courses []models.CourseDemand
	if err := r.db.SelectContext(ctx, &courses, query, slot.Date, slot.StartTime, slot.EndTime); err != nil {
		return nil, fmt.Errorf("list courses needing allocation: %w", err)
	}
	return courses, nil
}
