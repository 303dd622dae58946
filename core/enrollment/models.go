package enrollment

import (
	"context"
	"time"

	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/user"
)

// Enrollment registers a student in a course. It is never updated.
type Enrollment struct {
	ID         int       `json:"id"`
	StudentID  int       `json:"student_id"`
	CourseID   int       `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// Request is the payload of an enrollment.
type Request struct {
	StudentID int `json:"student_id" validate:"omitempty,gt=0"`
	CourseID  int `json:"course_id" validate:"required,gt=0"`
}

type (
	// Finder is the read access other packages need on enrollments.
	Finder interface {
		// FindEnrollment returns core.ErrNoRecord when the student is not enrolled in the course.
		FindEnrollment(ctx context.Context, studentID, courseID int) (Enrollment, error)
		ListEnrollmentsByCourse(ctx context.Context, courseID int) ([]Enrollment, error)
	}

	// Store is the transaction-scoped storage used by the Manager.
	Store interface {
		user.Getter
		course.Getter
		Finder
		// CreateEnrollment fails with a core.KindConflict error when (student, course) already exists.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
	}
)
