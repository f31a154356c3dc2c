package service

import (
	"fmt"

	"github.com/noah-isme/exam-room-api/internal/models"
)

// CapacityTable holds the remaining seats per room id for one slot.
// It is never mutated; Consume returns an updated copy.
type CapacityTable struct {
	remaining map[string]int
}

// NewCapacityTable snapshots the remaining seats of rooms.
func NewCapacityTable(rooms []models.RoomUsage) CapacityTable {
	remaining := make(map[string]int, len(rooms))
	for _, room := range rooms {
		remaining[room.ID] = room.Remaining()
	}
	return CapacityTable{remaining: remaining}
}

// Remaining returns the free seats of roomID, zero for unknown rooms.
func (t CapacityTable) Remaining(roomID string) int {
	return t.remaining[roomID]
}

// Consume returns a table with the assigned seats removed.
func (t CapacityTable) Consume(assignments []roomAssignment) (CapacityTable, error) {
	next := make(map[string]int, len(t.remaining))
	for id, seats := range t.remaining {
		next[id] = seats
	}
	for _, a := range assignments {
		id := a.candidate.room.ID
		if a.assigned <= 0 || a.assigned > next[id] {
			return t, fmt.Errorf("room %s cannot take %d seats, %d remaining", id, a.assigned, next[id])
		}
		next[id] -= a.assigned
	}
	return CapacityTable{remaining: next}, nil
}
