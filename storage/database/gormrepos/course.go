package gormrepos

import (
	"context"
	"strings"

	"github.com/trezcool/asm/core/course"
)

func (t *tx) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	var m courseModel
	if err := first(t.q(ctx).First(&m, id), "getting course by ID"); err != nil {
		return course.Course{}, err
	}
	return m.course(), nil
}

func (t *tx) GetCourseByCode(ctx context.Context, code string) (course.Course, error) {
	var m courseModel
	if err := first(t.q(ctx).Where("UPPER(code) = UPPER(?)", code).First(&m), "getting course by code"); err != nil {
		return course.Course{}, err
	}
	return m.course(), nil
}

func (t *tx) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	q := t.q(ctx).Model(&courseModel{})
	if filter.TeacherID.Valid {
		q = q.Where("teacher_id = ?", filter.TeacherID.Int)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where("code ILIKE ? OR name ILIKE ?", pattern, pattern)
	}

	var models []courseModel
	if err := first(q.Order("code").Find(&models), "querying courses"); err != nil {
		return nil, err
	}

	courses := make([]course.Course, 0, len(models))
	for _, m := range models {
		courses = append(courses, m.course())
	}
	return courses, nil
}

func (t *tx) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	m := newCourseModel(crs)
	m.ID = 0
	if err := first(t.q(ctx).Create(&m), "creating course"); err != nil {
		return course.Course{}, err
	}
	crs.ID = m.ID
	return crs, nil
}

func (t *tx) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	m := newCourseModel(crs)
	res := t.q(ctx).Model(&courseModel{ID: crs.ID}).
		Select("code", "name", "description", "teacher_id", "updated_at").
		Updates(&m)
	if err := affectedOne(res, "updating course"); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (t *tx) DeleteCourse(ctx context.Context, id int) error {
	return affectedOne(t.q(ctx).Delete(&courseModel{}, id), "deleting course")
}

func (t *tx) CountEnrollmentsByCourse(ctx context.Context, courseID int) (int, error) {
	var n int64
	res := t.q(ctx).Model(&enrollmentModel{}).Where("course_id = ?", courseID).Count(&n)
	if err := first(res, "counting enrollments"); err != nil {
		return 0, err
	}
	return int(n), nil
}
