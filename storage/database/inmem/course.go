package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/course"
)

func (t *tx) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	if crs, ok := t.state.courses[id]; ok {
		return crs, nil
	}
	return course.Course{}, core.ErrNoRecord
}

func (t *tx) GetCourseByCode(ctx context.Context, code string) (course.Course, error) {
	for _, crs := range t.state.courses {
		if strings.EqualFold(crs.Code, code) {
			return crs, nil
		}
	}
	return course.Course{}, core.ErrNoRecord
}

func (t *tx) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	courses := make([]course.Course, 0, len(t.state.courses))
	for _, crs := range t.state.courses {
		if filter.Match(crs) {
			courses = append(courses, crs)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (t *tx) checkCourse(crs course.Course) error {
	if other, err := t.GetCourseByCode(context.Background(), crs.Code); err == nil && other.ID != crs.ID {
		return conflict("course code %q is already used by course %d", crs.Code, other.ID)
	}
	if _, ok := t.state.users[crs.TeacherID]; !ok {
		return fkViolation("teacher %d does not exist", crs.TeacherID)
	}
	return nil
}

func (t *tx) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if err := t.checkCourse(crs); err != nil {
		return course.Course{}, err
	}
	crs.ID = t.state.nextID("courses")
	t.state.courses[crs.ID] = crs
	return crs, nil
}

func (t *tx) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if _, ok := t.state.courses[crs.ID]; !ok {
		return course.Course{}, core.ErrNoRecord
	}
	if err := t.checkCourse(crs); err != nil {
		return course.Course{}, err
	}
	t.state.courses[crs.ID] = crs
	return crs, nil
}

func (t *tx) DeleteCourse(ctx context.Context, id int) error {
	if _, ok := t.state.courses[id]; !ok {
		return core.ErrNoRecord
	}
	if n, _ := t.CountEnrollmentsByCourse(ctx, id); n > 0 {
		return fkViolation("course %d is still referenced", id)
	}
	delete(t.state.courses, id)
	return nil
}

func (t *tx) CountEnrollmentsByCourse(ctx context.Context, courseID int) (int, error) {
	var count int
	for _, enr := range t.state.enrollments {
		if enr.CourseID == courseID {
			count++
		}
	}
	return count, nil
}
