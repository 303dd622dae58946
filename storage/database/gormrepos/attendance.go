package gormrepos

import (
	"context"
	"time"

	"github.com/trezcool/asm/core/attendance"
)

func (t *tx) CountCourseAttendancesOn(ctx context.Context, courseID int, date time.Time) (int, error) {
	var n int64
	res := t.q(ctx).Model(&attendanceModel{}).
		Joins("JOIN enrollments ON enrollments.id = attendances.enrollment_id").
		Where("enrollments.course_id = ? AND attendances.date = ?", courseID, date.Format("2006-01-02")).
		Count(&n)
	if err := first(res, "counting attendances"); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (t *tx) CreateAttendances(ctx context.Context, atts []attendance.Attendance) ([]attendance.Attendance, error) {
	if len(atts) == 0 {
		return atts, nil
	}

	models := make([]attendanceModel, 0, len(atts))
	for _, att := range atts {
		m := newAttendanceModel(att)
		m.ID = 0
		models = append(models, m)
	}
	if err := first(t.q(ctx).Create(&models), "creating attendances"); err != nil {
		return nil, err
	}

	created := make([]attendance.Attendance, 0, len(atts))
	for i, att := range atts {
		att.ID = models[i].ID
		created = append(created, att)
	}
	return created, nil
}
