package sqlxrepos

import (
	"context"
	"time"

	"github.com/trezcool/asm/core/enrollment"
)

const enrollmentColumns = "id, student_id, course_id, enrolled_at"

type enrollmentRow struct {
	ID         int       `db:"id"`
	StudentID  int       `db:"student_id"`
	CourseID   int       `db:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at"`
}

func (r enrollmentRow) enrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:         r.ID,
		StudentID:  r.StudentID,
		CourseID:   r.CourseID,
		EnrolledAt: r.EnrolledAt.UTC(),
	}
}

func (t *tx) FindEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	var row enrollmentRow
	q := "SELECT " + enrollmentColumns + " FROM enrollments WHERE student_id = $1 AND course_id = $2"
	if err := t.get(ctx, &row, "finding enrollment", q, studentID, courseID); err != nil {
		return enrollment.Enrollment{}, err
	}
	return row.enrollment(), nil
}

func (t *tx) ListEnrollmentsByCourse(ctx context.Context, courseID int) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	q := "SELECT " + enrollmentColumns + " FROM enrollments WHERE course_id = $1 ORDER BY id"
	if err := t.sel(ctx, &rows, "listing enrollments", q, courseID); err != nil {
		return nil, err
	}

	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.enrollment())
	}
	return enrs, nil
}

func (t *tx) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	q := "INSERT INTO enrollments (student_id, course_id, enrolled_at) VALUES ($1, $2, $3) RETURNING id"
	if err := t.tx.QueryRowxContext(ctx, q, enr.StudentID, enr.CourseID, enr.EnrolledAt.UTC()).Scan(&enr.ID); err != nil {
		return enrollment.Enrollment{}, classify(err, "creating enrollment")
	}
	return enr, nil
}
