package models

import (
	"fmt"
	"time"
)

// AllocationStatus enumerates allocation lifecycle states.
type AllocationStatus string

const (
	AllocationStatusPlanned   AllocationStatus = "planned"
	AllocationStatusConfirmed AllocationStatus = "confirmed"
	AllocationStatusCompleted AllocationStatus = "completed"
	AllocationStatusCancelled AllocationStatus = "cancelled"
)

// Slot identifies one exam sitting. Date is YYYY-MM-DD, times are HH:MM.
type Slot struct {
	Date      string `db:"exam_date" json:"date"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// Key renders the slot as a stable lock and cache key.
func (s Slot) Key() string {
	return fmt.Sprintf("%s|%s|%s", s.Date, s.StartTime, s.EndTime)
}

// Allocation assigns part of a course's participants to one room for a slot.
type Allocation struct {
	ID           string           `db:"id" json:"id"`
	CourseID     string           `db:"course_id" json:"course_id"`
	RoomID       string           `db:"room_id" json:"room_id"`
	ExamDate     string           `db:"exam_date" json:"exam_date"`
	StartTime    string           `db:"start_time" json:"start_time"`
	EndTime      string           `db:"end_time" json:"end_time"`
	Sequence     int              `db:"sequence" json:"sequence"`
	Participants int              `db:"participants" json:"participants"`
	Status       AllocationStatus `db:"status" json:"status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// AllocationDetail is an allocation joined with course and room names.
type AllocationDetail struct {
	Allocation
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseName   string `db:"course_name" json:"course_name"`
	RoomName     string `db:"room_name" json:"room_name"`
	RoomCapacity int    `db:"room_capacity" json:"room_capacity"`
}

// AllocationConflict pairs an existing allocation in a slot with a different candidate course.
type AllocationConflict struct {
	RoomID                string `db:"room_id" json:"room_id"`
	RoomName              string `db:"room_name" json:"room_name"`
	ExistingCourseID      string `db:"existing_course_id" json:"existing_course_id"`
	ExistingCourseName    string `db:"existing_course_name" json:"existing_course_name"`
	ConflictingCourseID   string `db:"conflicting_course_id" json:"conflicting_course_id"`
	ConflictingCourseName string `db:"conflicting_course_name" json:"conflicting_course_name"`
}

// DailyTotals aggregates the non-cancelled allocations of one date.
type DailyTotals struct {
	Courses      int `db:"courses" json:"courses"`
	Allocations  int `db:"allocations" json:"allocations"`
	Participants int `db:"participants" json:"participants"`
	Waste        int `db:"waste" json:"waste"`
}

// RoomUtilization is a room's average utilisation percentage over its allocations.
type RoomUtilization struct {
	RoomID      string  `db:"room_id" json:"room_id"`
	RoomName    string  `db:"room_name" json:"room_name"`
	Capacity    int     `db:"capacity" json:"capacity"`
	Allocations int     `db:"allocations" json:"allocations"`
	Utilization float64 `db:"utilization" json:"utilization"`
}

// DailyStatistic is one day of the date-range statistics report.
type DailyStatistic struct {
	DailyTotals
	Date        string  `db:"exam_date" json:"date"`
	Utilization float64 `db:"utilization" json:"utilization"`
}
