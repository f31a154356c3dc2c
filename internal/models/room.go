package models

// RoomStatus enumerates room lifecycle states.
type RoomStatus string

const (
	RoomStatusActive      RoomStatus = "active"
	RoomStatusInactive    RoomStatus = "inactive"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// Room is an examination room.
type Room struct {
	ID       string     `db:"id" json:"id"`
	Name     string     `db:"name" json:"name"`
	Capacity int        `db:"capacity" json:"capacity"`
	Location *string    `db:"location" json:"location,omitempty"`
	Floor    *int       `db:"floor" json:"floor,omitempty"`
	Building *string    `db:"building" json:"building,omitempty"`
	Status   RoomStatus `db:"status" json:"status"`
}

// RoomUsage is a room annotated with the seats already committed to it for one slot.
type RoomUsage struct {
	Room
	Allocated int `db:"allocated" json:"allocated"`
}

// Remaining returns the seats still free in the slot, never below zero.
func (r RoomUsage) Remaining() int {
	if left := r.Capacity - r.Allocated; left > 0 {
		return left
	}
	return 0
}
