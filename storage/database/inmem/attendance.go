package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/asm/core/attendance"
)

func (t *tx) CountCourseAttendancesOn(ctx context.Context, courseID int, date time.Time) (int, error) {
	var count int
	for _, att := range t.state.attendances {
		if enr, ok := t.state.enrollments[att.EnrollmentID]; ok && enr.CourseID == courseID && att.Date.Equal(date) {
			count++
		}
	}
	return count, nil
}

func (t *tx) CreateAttendances(ctx context.Context, atts []attendance.Attendance) ([]attendance.Attendance, error) {
	type key struct {
		enrollmentID int
		date         time.Time
	}
	taken := make(map[key]bool, len(t.state.attendances)+len(atts))
	for _, att := range t.state.attendances {
		taken[key{att.EnrollmentID, att.Date}] = true
	}

	created := make([]attendance.Attendance, 0, len(atts))
	for _, att := range atts {
		k := key{att.EnrollmentID, att.Date}
		if taken[k] {
			return nil, conflict("duplicate attendance (%d, %s)", att.EnrollmentID, att.Date.Format("2006-01-02"))
		}
		if _, ok := t.state.enrollments[att.EnrollmentID]; !ok {
			return nil, fkViolation("enrollment %d does not exist", att.EnrollmentID)
		}
		if _, ok := t.state.users[att.MarkedByTeacherID]; !ok {
			return nil, fkViolation("teacher %d does not exist", att.MarkedByTeacherID)
		}
		taken[k] = true
		att.ID = t.state.nextID("attendances")
		t.state.attendances[att.ID] = att
		created = append(created, att)
	}
	return created, nil
}

// Attendances returns the committed attendances ordered by id.
func (db *DB) Attendances() []attendance.Attendance {
	db.mu.Lock()
	defer db.mu.Unlock()
	atts := make([]attendance.Attendance, 0, len(db.state.attendances))
	for _, att := range db.state.attendances {
		atts = append(atts, att)
	}
	sort.Slice(atts, func(i, j int) bool { return atts[i].ID < atts[j].ID })
	return atts
}
