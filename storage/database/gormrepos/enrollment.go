package gormrepos

import (
	"context"

	"github.com/trezcool/asm/core/enrollment"
)

func (t *tx) FindEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	var m enrollmentModel
	res := t.q(ctx).Where("student_id = ? AND course_id = ?", studentID, courseID).First(&m)
	if err := first(res, "finding enrollment"); err != nil {
		return enrollment.Enrollment{}, err
	}
	return m.enrollment(), nil
}

func (t *tx) ListEnrollmentsByCourse(ctx context.Context, courseID int) ([]enrollment.Enrollment, error) {
	var models []enrollmentModel
	if err := first(t.q(ctx).Where("course_id = ?", courseID).Order("id").Find(&models), "listing enrollments"); err != nil {
		return nil, err
	}

	enrs := make([]enrollment.Enrollment, 0, len(models))
	for _, m := range models {
		enrs = append(enrs, m.enrollment())
	}
	return enrs, nil
}

func (t *tx) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	m := enrollmentModel{StudentID: enr.StudentID, CourseID: enr.CourseID, EnrolledAt: enr.EnrolledAt.UTC()}
	if err := first(t.q(ctx).Create(&m), "creating enrollment"); err != nil {
		return enrollment.Enrollment{}, err
	}
	enr.ID = m.ID
	return enr, nil
}
