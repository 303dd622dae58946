package sqlxrepos

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/report"
)

type attendanceRecordRow struct {
	AttendanceID int       `db:"attendance_id"`
	EnrollmentID int       `db:"enrollment_id"`
	StudentID    int       `db:"student_id"`
	StudentName  string    `db:"student_name"`
	CourseID     int       `db:"course_id"`
	CourseCode   string    `db:"course_code"`
	CourseName   string    `db:"course_name"`
	TeacherID    int       `db:"teacher_id"`
	Date         time.Time `db:"date"`
	Status       int       `db:"status"`
}

type enrollmentRecordRow struct {
	EnrollmentID int       `db:"enrollment_id"`
	StudentID    int       `db:"student_id"`
	StudentName  string    `db:"student_name"`
	StudentEmail string    `db:"student_email"`
	CourseID     int       `db:"course_id"`
	CourseCode   string    `db:"course_code"`
	CourseName   string    `db:"course_name"`
	TeacherID    int       `db:"teacher_id"`
	TeacherName  string    `db:"teacher_name"`
	EnrolledAt   time.Time `db:"enrolled_at"`
}

func dateArg(t null.Time) null.String {
	if !t.Valid {
		return null.String{}
	}
	return null.StringFrom(t.Time.Format("2006-01-02"))
}

func (t *tx) ListAttendanceRecords(ctx context.Context, filter report.Filter) ([]report.AttendanceRecord, error) {
	q := `SELECT a.id AS attendance_id, e.id AS enrollment_id, s.id AS student_id, s.name AS student_name,
			c.id AS course_id, c.code AS course_code, c.name AS course_name, c.teacher_id,
			a.date, a.status
		FROM attendances a
		JOIN enrollments e ON e.id = a.enrollment_id
		JOIN users s ON s.id = e.student_id
		JOIN courses c ON c.id = e.course_id
		WHERE ($1::int IS NULL OR e.course_id = $1)
		AND ($2::int IS NULL OR e.student_id = $2)
		AND ($3::int IS NULL OR c.teacher_id = $3)
		AND ($4::date IS NULL OR a.date >= $4)
		AND ($5::date IS NULL OR a.date <= $5)
		ORDER BY a.date DESC, c.code, s.name, a.id`
	var rows []attendanceRecordRow
	err := t.sel(ctx, &rows, "listing attendance records", q,
		filter.CourseID, filter.StudentID, filter.TeacherID, dateArg(filter.StartDate), dateArg(filter.EndDate))
	if err != nil {
		return nil, err
	}

	recs := make([]report.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, report.AttendanceRecord{
			AttendanceID: row.AttendanceID,
			EnrollmentID: row.EnrollmentID,
			StudentID:    row.StudentID,
			StudentName:  row.StudentName,
			CourseID:     row.CourseID,
			CourseCode:   row.CourseCode,
			CourseName:   row.CourseName,
			TeacherID:    row.TeacherID,
			Date:         time.Date(row.Date.Year(), row.Date.Month(), row.Date.Day(), 0, 0, 0, 0, time.UTC),
			Status:       attendance.Status(row.Status),
		})
	}
	return recs, nil
}

func (t *tx) ListEnrollmentRecords(ctx context.Context, filter report.Filter) ([]report.EnrollmentRecord, error) {
	q := `SELECT e.id AS enrollment_id, s.id AS student_id, s.name AS student_name, s.email AS student_email,
			c.id AS course_id, c.code AS course_code, c.name AS course_name,
			tch.id AS teacher_id, tch.name AS teacher_name, e.enrolled_at
		FROM enrollments e
		JOIN users s ON s.id = e.student_id
		JOIN courses c ON c.id = e.course_id
		JOIN users tch ON tch.id = c.teacher_id
		WHERE ($1::int IS NULL OR e.course_id = $1)
		AND ($2::int IS NULL OR e.student_id = $2)
		AND ($3::int IS NULL OR c.teacher_id = $3)
		ORDER BY e.enrolled_at DESC, e.id DESC`
	var rows []enrollmentRecordRow
	if err := t.sel(ctx, &rows, "listing enrollment records", q, filter.CourseID, filter.StudentID, filter.TeacherID); err != nil {
		return nil, err
	}

	recs := make([]report.EnrollmentRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, report.EnrollmentRecord{
			EnrollmentID: row.EnrollmentID,
			StudentID:    row.StudentID,
			StudentName:  row.StudentName,
			StudentEmail: row.StudentEmail,
			CourseID:     row.CourseID,
			CourseCode:   row.CourseCode,
			CourseName:   row.CourseName,
			TeacherID:    row.TeacherID,
			TeacherName:  row.TeacherName,
			EnrolledAt:   row.EnrolledAt.UTC(),
		})
	}
	return recs, nil
}
