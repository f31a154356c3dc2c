package dto

import "github.com/noah-isme/exam-room-api/internal/models"

// SlotRequest identifies the exam sitting a request targets.
type SlotRequest struct {
	Date      string `json:"date" form:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" form:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" form:"end_time" validate:"required,datetime=15:04"`
}

// AllocationRequest starts an allocation batch. An empty CourseIDs selects every active course still needing seats.
type AllocationRequest struct {
	SlotRequest
	CourseIDs []string `json:"course_ids" validate:"omitempty,dive,required"`
}

// ConflictCheckRequest asks whether candidate courses collide with existing allocations in a slot.
type ConflictCheckRequest struct {
	SlotRequest
	CourseIDs []string `json:"course_ids" validate:"required,min=1,dive,required"`
}

// CancelAllocationRequest cancels every allocation of one course in a slot.
type CancelAllocationRequest struct {
	SlotRequest
	CourseID string `json:"course_id" validate:"required"`
}

// SummaryQuery selects the date for a daily summary.
type SummaryQuery struct {
	Date string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

// StatisticsQuery selects an inclusive date range.
type StatisticsQuery struct {
	StartDate string `form:"start_date" json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date" json:"end_date" validate:"required,datetime=2006-01-02"`
}

// RoomAssignment is one room chosen for a course.
type RoomAssignment struct {
	RoomID    string  `json:"room_id"`
	RoomName  string  `json:"room_name"`
	Capacity  int     `json:"capacity"`
	Remaining int     `json:"remaining"`
	Location  *string `json:"location,omitempty"`
	Floor     *int    `json:"floor,omitempty"`
	Building  *string `json:"building,omitempty"`
	Assigned  int     `json:"assigned"`
	Waste     int     `json:"waste"`
}

// CourseResult reports the outcome for one course of a batch.
type CourseResult struct {
	CourseID     string           `json:"course_id"`
	CourseCode   string           `json:"course_code"`
	CourseName   string           `json:"course_name"`
	Participants int              `json:"participants"`
	Success      bool             `json:"success"`
	Assignments  []RoomAssignment `json:"assignments"`
	Assigned     int              `json:"assigned"`
	TotalWaste   int              `json:"total_waste"`
	Message      string           `json:"message"`
}

// RoomSlotUtilization is a room's occupancy in the slot after the batch.
type RoomSlotUtilization struct {
	RoomID      string  `json:"room_id"`
	RoomName    string  `json:"room_name"`
	Capacity    int     `json:"capacity"`
	Allocated   int     `json:"allocated"`
	Remaining   int     `json:"remaining"`
	Utilization float64 `json:"utilization"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	TotalCourses      int                   `json:"total_courses"`
	Succeeded         int                   `json:"succeeded"`
	Failed            int                   `json:"failed"`
	TotalAllocations  int                   `json:"total_allocations"`
	TotalParticipants int                   `json:"total_participants"`
	TotalWaste        int                   `json:"total_waste"`
	Rooms             []RoomSlotUtilization `json:"rooms"`
}

// AllocationBatchResponse is returned by both allocate and preview.
type AllocationBatchResponse struct {
	BatchID   string         `json:"batch_id"`
	Slot      models.Slot    `json:"slot"`
	Strategy  string         `json:"strategy"`
	Committed bool           `json:"committed"`
	Results   []CourseResult `json:"results"`
	Summary   BatchSummary   `json:"summary"`
}

// ConflictReport lists existing allocations colliding with candidate courses.
type ConflictReport struct {
	HasConflicts bool                        `json:"has_conflicts"`
	Conflicts    []models.AllocationConflict `json:"conflicts"`
}

// CancelAllocationResponse reports how many rows were cancelled.
type CancelAllocationResponse struct {
	CourseID  string      `json:"course_id"`
	Slot      models.Slot `json:"slot"`
	Cancelled int64       `json:"cancelled"`
}

// SlotAllocationsResponse lists the active allocations of a slot.
type SlotAllocationsResponse struct {
	Slot        models.Slot               `json:"slot"`
	Allocations []models.AllocationDetail `json:"allocations"`
}

// DailySummaryResponse aggregates one exam date.
type DailySummaryResponse struct {
	Date string `json:"date"`
	models.DailyTotals
	Rooms []models.RoomUtilization `json:"rooms"`
}

// StatisticsRollup summarises a statistics range.
type StatisticsRollup struct {
	Days               int     `json:"days"`
	Courses            int     `json:"courses"`
	Allocations        int     `json:"allocations"`
	Participants       int     `json:"participants"`
	Waste              int     `json:"waste"`
	AverageUtilization float64 `json:"average_utilization"`
}

// StatisticsResponse returns per-day statistics for a date range.
type StatisticsResponse struct {
	StartDate string                  `json:"start_date"`
	EndDate   string                  `json:"end_date"`
	Days      []models.DailyStatistic `json:"days"`
	Summary   StatisticsRollup        `json:"summary"`
}
