package service

import (
	"sort"

	"github.com/noah-isme/exam-room-api/internal/models"
)

// candidateRoom is a room with the seats still free in the current capacity table.
type candidateRoom struct {
	room      models.RoomUsage
	remaining int
	rank      int
}

// rankCourses orders courses by participant count, largest first. Ties keep input order.
func rankCourses(courses []models.CourseDemand) []models.CourseDemand {
	ranked := make([]models.CourseDemand, len(courses))
	copy(ranked, courses)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Participants > ranked[j].Participants
	})
	return ranked
}

// rankRooms returns rooms with free seats ordered tightest first. Ties keep input order.
func rankRooms(rooms []models.RoomUsage, table CapacityTable) []candidateRoom {
	pool := make([]candidateRoom, 0, len(rooms))
	for _, room := range rooms {
		if left := table.Remaining(room.ID); left > 0 {
			pool = append(pool, candidateRoom{room: room, remaining: left})
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].remaining < pool[j].remaining
	})
	for i := range pool {
		pool[i].rank = i
	}
	return pool
}
