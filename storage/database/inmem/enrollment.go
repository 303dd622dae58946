package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/enrollment"
)

func (t *tx) FindEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	for _, enr := range t.state.enrollments {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return enr, nil
		}
	}
	return enrollment.Enrollment{}, core.ErrNoRecord
}

func (t *tx) ListEnrollmentsByCourse(ctx context.Context, courseID int) ([]enrollment.Enrollment, error) {
	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range t.state.enrollments {
		if enr.CourseID == courseID {
			enrs = append(enrs, enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].ID < enrs[j].ID })
	return enrs, nil
}

func (t *tx) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	if _, err := t.FindEnrollment(ctx, enr.StudentID, enr.CourseID); err == nil {
		return enrollment.Enrollment{}, conflict("duplicate enrollment (%d, %d)", enr.StudentID, enr.CourseID)
	}
	if _, ok := t.state.users[enr.StudentID]; !ok {
		return enrollment.Enrollment{}, fkViolation("student %d does not exist", enr.StudentID)
	}
	if _, ok := t.state.courses[enr.CourseID]; !ok {
		return enrollment.Enrollment{}, fkViolation("course %d does not exist", enr.CourseID)
	}
	enr.ID = t.state.nextID("enrollments")
	t.state.enrollments[enr.ID] = enr
	return enr, nil
}

// Enrollments returns the committed enrollments ordered by id.
func (db *DB) Enrollments() []enrollment.Enrollment {
	db.mu.Lock()
	defer db.mu.Unlock()
	enrs := make([]enrollment.Enrollment, 0, len(db.state.enrollments))
	for _, enr := range db.state.enrollments {
		enrs = append(enrs, enr)
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].ID < enrs[j].ID })
	return enrs
}
