package gormrepos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/report"
)

type attendanceRecordRow struct {
	AttendanceID int
	EnrollmentID int
	StudentID    int
	StudentName  string
	CourseID     int
	CourseCode   string
	CourseName   string
	TeacherID    int
	Date         time.Time
	Status       int
}

type enrollmentRecordRow struct {
	EnrollmentID int
	StudentID    int
	StudentName  string
	StudentEmail string
	CourseID     int
	CourseCode   string
	CourseName   string
	TeacherID    int
	TeacherName  string
	EnrolledAt   time.Time
}

func scopeFilter(filter report.Filter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if filter.CourseID.Valid {
			q = q.Where("e.course_id = ?", filter.CourseID.Int)
		}
		if filter.StudentID.Valid {
			q = q.Where("e.student_id = ?", filter.StudentID.Int)
		}
		if filter.TeacherID.Valid {
			q = q.Where("c.teacher_id = ?", filter.TeacherID.Int)
		}
		return q
	}
}

func (t *tx) ListAttendanceRecords(ctx context.Context, filter report.Filter) ([]report.AttendanceRecord, error) {
	q := t.q(ctx).Table("attendances AS a").
		Select(`a.id AS attendance_id, e.id AS enrollment_id, s.id AS student_id, s.name AS student_name,
			c.id AS course_id, c.code AS course_code, c.name AS course_name, c.teacher_id, a.date, a.status`).
		Joins("JOIN enrollments e ON e.id = a.enrollment_id").
		Joins("JOIN users s ON s.id = e.student_id").
		Joins("JOIN courses c ON c.id = e.course_id").
		Scopes(scopeFilter(filter))
	if filter.StartDate.Valid {
		q = q.Where("a.date >= ?", filter.StartDate.Time.Format("2006-01-02"))
	}
	if filter.EndDate.Valid {
		q = q.Where("a.date <= ?", filter.EndDate.Time.Format("2006-01-02"))
	}

	var rows []attendanceRecordRow
	if err := first(q.Order("a.date DESC, c.code, s.name, a.id").Scan(&rows), "listing attendance records"); err != nil {
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
	q := t.q(ctx).Table("enrollments AS e").
		Select(`e.id AS enrollment_id, s.id AS student_id, s.name AS student_name, s.email AS student_email,
			c.id AS course_id, c.code AS course_code, c.name AS course_name,
			tch.id AS teacher_id, tch.name AS teacher_name, e.enrolled_at`).
		Joins("JOIN users s ON s.id = e.student_id").
		Joins("JOIN courses c ON c.id = e.course_id").
		Joins("JOIN users tch ON tch.id = c.teacher_id").
		Scopes(scopeFilter(filter))

	var rows []enrollmentRecordRow
	if err := first(q.Order("e.enrolled_at DESC, e.id DESC").Scan(&rows), "listing enrollment records"); err != nil {
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
