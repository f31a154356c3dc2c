package service

import (
	"math"
	"sort"

	"github.com/noah-isme/exam-room-api/internal/dto"
	"github.com/noah-isme/exam-room-api/internal/models"
)

const (
	msgAllocationCreated  = "allocation created"
	msgAllocationFeasible = "allocation feasible"
	msgNoAvailableRooms   = "no available rooms for this time slot"
	msgNoFeasibleRooms    = "no feasible room combination"
	msgAlreadyAllocated   = "course already has active allocations"
	msgNoParticipants     = "course has no participants"
	msgCourseNotActive    = "course not found or not active"
)

// plannedCourse is the solver outcome for one course together with the rows to persist.
type plannedCourse struct {
	result dto.CourseResult
	rows   []models.Allocation
}

// batchPlan is the outcome of planning every course of a batch against one capacity snapshot.
type batchPlan struct {
	courses []plannedCourse
	rooms   []models.RoomUsage
	initial CapacityTable
	final   CapacityTable
}

// planBatch solves courses in ranked order, threading the capacity table from one course to the next.
func planBatch(courses []models.CourseDemand, rooms []models.RoomUsage, slot models.Slot, solver combinationSolver, successMsg string) (batchPlan, error) {
	initial := NewCapacityTable(rooms)
	plan := batchPlan{rooms: rooms, initial: initial}
	table := initial

	for _, course := range rankCourses(courses) {
		result := dto.CourseResult{
			CourseID:     course.ID,
			CourseCode:   course.Code,
			CourseName:   course.Name,
			Participants: course.Participants,
			Assignments:  []dto.RoomAssignment{},
		}

		if course.Participants <= 0 {
			result.Message = msgNoParticipants
			plan.courses = append(plan.courses, plannedCourse{result: result})
			continue
		}
		if course.Allocated > 0 {
			result.Message = msgAlreadyAllocated
			plan.courses = append(plan.courses, plannedCourse{result: result})
			continue
		}

		pool := rankRooms(rooms, table)
		if len(pool) == 0 {
			result.Message = msgNoAvailableRooms
			plan.courses = append(plan.courses, plannedCourse{result: result})
			continue
		}

		assignments, ok := solver.Solve(course.Participants, pool)
		if !ok {
			result.Message = msgNoFeasibleRooms
			plan.courses = append(plan.courses, plannedCourse{result: result})
			continue
		}

		next, err := table.Consume(assignments)
		if err != nil {
			return batchPlan{}, err
		}
		table = next

		rows := make([]models.Allocation, 0, len(assignments))
		for i, a := range assignments {
			room := a.candidate.room
			result.Assignments = append(result.Assignments, dto.RoomAssignment{
				RoomID:    room.ID,
				RoomName:  room.Name,
				Capacity:  room.Capacity,
				Remaining: a.candidate.remaining,
				Location:  room.Location,
				Floor:     room.Floor,
				Building:  room.Building,
				Assigned:  a.assigned,
				Waste:     a.waste(),
			})
			result.Assigned += a.assigned
			result.TotalWaste += a.waste()
			rows = append(rows, models.Allocation{
				CourseID:     course.ID,
				RoomID:       room.ID,
				ExamDate:     slot.Date,
				StartTime:    slot.StartTime,
				EndTime:      slot.EndTime,
				Sequence:     i + 1,
				Participants: a.assigned,
				Status:       models.AllocationStatusPlanned,
			})
		}
		result.Success = true
		result.Message = successMsg
		plan.courses = append(plan.courses, plannedCourse{result: result, rows: rows})
	}

	plan.final = table
	return plan, nil
}

// addUnresolved reports requested course ids that matched no active course as failed results.
func (p *batchPlan) addUnresolved(ids []string) {
	for _, id := range ids {
		p.courses = append(p.courses, plannedCourse{result: dto.CourseResult{
			CourseID:    id,
			Assignments: []dto.RoomAssignment{},
			Message:     msgCourseNotActive,
		}})
	}
}

func (p batchPlan) results() []dto.CourseResult {
	results := make([]dto.CourseResult, 0, len(p.courses))
	for _, c := range p.courses {
		results = append(results, c.result)
	}
	return results
}

func (p batchPlan) rowCount() int {
	n := 0
	for _, c := range p.courses {
		n += len(c.rows)
	}
	return n
}

// summary aggregates the plan. Room utilisation covers every room occupied in the slot after the batch.
func (p batchPlan) summary() dto.BatchSummary {
	summary := dto.BatchSummary{TotalCourses: len(p.courses), Rooms: []dto.RoomSlotUtilization{}}
	for _, c := range p.courses {
		if c.result.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.TotalAllocations += len(c.rows)
		summary.TotalParticipants += c.result.Assigned
		summary.TotalWaste += c.result.TotalWaste
	}

	for _, room := range p.rooms {
		if room.Capacity <= 0 {
			continue
		}
		consumed := p.initial.Remaining(room.ID) - p.final.Remaining(room.ID)
		allocated := room.Allocated + consumed
		if allocated <= 0 {
			continue
		}
		summary.Rooms = append(summary.Rooms, dto.RoomSlotUtilization{
			RoomID:      room.ID,
			RoomName:    room.Name,
			Capacity:    room.Capacity,
			Allocated:   allocated,
			Remaining:   p.final.Remaining(room.ID),
			Utilization: roundPercent(float64(allocated) / float64(room.Capacity) * 100),
		})
	}
	sort.SliceStable(summary.Rooms, func(i, j int) bool {
		return summary.Rooms[i].Utilization > summary.Rooms[j].Utilization
	})
	return summary
}

func roundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}
