package models

// CourseStatus enumerates course lifecycle states.
type CourseStatus string

const (
	CourseStatusActive    CourseStatus = "active"
	CourseStatusCompleted CourseStatus = "completed"
	CourseStatusCancelled CourseStatus = "cancelled"
)

// Course is a course that sits an exam.
type Course struct {
	ID           string       `db:"id" json:"id"`
	Code         string       `db:"code" json:"code"`
	Name         string       `db:"name" json:"name"`
	Participants int          `db:"participants" json:"participants"`
	Lecturer     *string      `db:"lecturer" json:"lecturer,omitempty"`
	Semester     *int         `db:"semester" json:"semester,omitempty"`
	AcademicYear *string      `db:"academic_year" json:"academic_year,omitempty"`
	Status       CourseStatus `db:"status" json:"status"`
}

// CourseDemand is a course annotated with the seats its active allocations already hold.
type CourseDemand struct {
	Course
	Allocated int `db:"allocated" json:"allocated"`
}
