package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/asm/core/report"
)

func (t *tx) ListAttendanceRecords(ctx context.Context, filter report.Filter) ([]report.AttendanceRecord, error) {
	recs := make([]report.AttendanceRecord, 0)
	for _, att := range t.state.attendances {
		enr := t.state.enrollments[att.EnrollmentID]
		crs := t.state.courses[enr.CourseID]
		switch {
		case filter.CourseID.Valid && enr.CourseID != filter.CourseID.Int,
			filter.StudentID.Valid && enr.StudentID != filter.StudentID.Int,
			filter.TeacherID.Valid && crs.TeacherID != filter.TeacherID.Int,
			!filter.MatchDate(att.Date):
			continue
		}
		recs = append(recs, report.AttendanceRecord{
			AttendanceID: att.ID,
			EnrollmentID: enr.ID,
			StudentID:    enr.StudentID,
			StudentName:  t.state.users[enr.StudentID].Name,
			CourseID:     crs.ID,
			CourseCode:   crs.Code,
			CourseName:   crs.Name,
			TeacherID:    crs.TeacherID,
			Date:         att.Date,
			Status:       att.Status,
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		switch {
		case !a.Date.Equal(b.Date):
			return a.Date.After(b.Date)
		case a.CourseCode != b.CourseCode:
			return a.CourseCode < b.CourseCode
		case a.StudentName != b.StudentName:
			return a.StudentName < b.StudentName
		}
		return a.AttendanceID < b.AttendanceID
	})
	return recs, nil
}

func (t *tx) ListEnrollmentRecords(ctx context.Context, filter report.Filter) ([]report.EnrollmentRecord, error) {
	recs := make([]report.EnrollmentRecord, 0)
	for _, enr := range t.state.enrollments {
		crs := t.state.courses[enr.CourseID]
		switch {
		case filter.CourseID.Valid && enr.CourseID != filter.CourseID.Int,
			filter.StudentID.Valid && enr.StudentID != filter.StudentID.Int,
			filter.TeacherID.Valid && crs.TeacherID != filter.TeacherID.Int:
			continue
		}
		student := t.state.users[enr.StudentID]
		recs = append(recs, report.EnrollmentRecord{
			EnrollmentID: enr.ID,
			StudentID:    enr.StudentID,
			StudentName:  student.Name,
			StudentEmail: student.Email,
			CourseID:     crs.ID,
			CourseCode:   crs.Code,
			CourseName:   crs.Name,
			TeacherID:    crs.TeacherID,
			TeacherName:  t.state.users[crs.TeacherID].Name,
			EnrolledAt:   enr.EnrolledAt,
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].EnrolledAt.Equal(recs[j].EnrolledAt) {
			return recs[i].EnrolledAt.After(recs[j].EnrolledAt)
		}
		return recs[i].EnrollmentID > recs[j].EnrollmentID
	})
	return recs, nil
}
