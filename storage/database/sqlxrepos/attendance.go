package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
)

type attendanceRow struct {
	ID                int       `db:"id"`
	EnrollmentID      int       `db:"enrollment_id"`
	Date              time.Time `db:"date"`
	Status            int       `db:"status"`
	MarkedByTeacherID int       `db:"marked_by_teacher_id"`
}

func (t *tx) CountCourseAttendancesOn(ctx context.Context, courseID int, date time.Time) (int, error) {
	q := `SELECT COUNT(*) FROM attendances a
		JOIN enrollments e ON e.id = a.enrollment_id
		WHERE e.course_id = $1 AND a.date = $2`
	return t.count(ctx, "counting attendances", q, courseID, date.Format(core.DateLayout))
}

func (t *tx) CreateAttendances(ctx context.Context, atts []attendance.Attendance) ([]attendance.Attendance, error) {
	if len(atts) == 0 {
		return atts, nil
	}

	rows := make([]attendanceRow, 0, len(atts))
	for _, att := range atts {
		rows = append(rows, attendanceRow{
			EnrollmentID:      att.EnrollmentID,
			Date:              att.Date,
			Status:            int(att.Status),
			MarkedByTeacherID: att.MarkedByTeacherID,
		})
	}

	// Postgres does not guarantee RETURNING follows VALUES order
	q := `INSERT INTO attendances (enrollment_id, date, status, marked_by_teacher_id)
		VALUES (:enrollment_id, :date, :status, :marked_by_teacher_id)
		RETURNING id, enrollment_id, date`
	res, err := sqlx.NamedQueryContext(ctx, t.tx, q, rows)
	if err != nil {
		return nil, classify(err, "creating attendances")
	}
	defer func() { _ = res.Close() }()

	type key struct {
		enrollmentID int
		date         string
	}
	ids := make(map[key]int, len(atts))
	for res.Next() {
		var row attendanceRow
		if err = res.StructScan(&row); err != nil {
			return nil, classify(err, "creating attendances")
		}
		ids[key{row.EnrollmentID, row.Date.Format(core.DateLayout)}] = row.ID
	}
	if err = res.Err(); err != nil {
		return nil, classify(err, "creating attendances")
	}

	created := make([]attendance.Attendance, 0, len(atts))
	for _, att := range atts {
		id, ok := ids[key{att.EnrollmentID, att.Date.Format(core.DateLayout)}]
		if !ok {
			return nil, errors.Errorf("creating attendances: no id returned for enrollment %d", att.EnrollmentID)
		}
		att.ID = id
		created = append(created, att)
	}
	return created, nil
}
