package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-room-api/internal/models"
)

// RoomRepository reads rooms together with their usage for a slot.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const listRoomsWithUsageQuery = `SELECT r.id, r.name, r.capacity, r.location, r.floor, r.building, r.status,
COALESCE(SUM(a.participants), 0) AS allocated
FROM rooms r
LEFT JOIN allocations a ON a.room_id = r.id AND a.exam_date = $1 AND a.start_time = $2 AND a.end_time = $3 AND a.status <> 'cancelled'
WHERE r.status = 'active'
GROUP BY r.id, r.name, r.capacity, r.location, r.floor, r.building, r.status
ORDER BY r.name ASC`

// ListWithSlotUsage returns every active room with the seats already committed to it in slot.
// Pass a transaction as exec to read the snapshot inside an allocation batch.
func (r *RoomRepository) ListWithSlotUsage(ctx context.Context, exec sqlx.ExtContext, slot models.Slot) ([]models.RoomUsage, error) {
	var rooms []models.RoomUsage
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rooms, listRoomsWithUsageQuery, slot.Date, slot.StartTime, slot.EndTime); err != nil {
		return nil, fmt.Errorf("list rooms with slot usage: %w", err)
	}
	return rooms, nil
}
