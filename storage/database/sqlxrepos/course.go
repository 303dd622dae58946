package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/asm/core/course"
)

const courseColumns = "id, code, name, description, teacher_id, created_at, updated_at"

type courseRow struct {
	ID          int       `db:"id"`
	Code        string    `db:"code"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	TeacherID   int       `db:"teacher_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func newCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:          crs.ID,
		Code:        crs.Code,
		Name:        crs.Name,
		Description: crs.Description,
		TeacherID:   crs.TeacherID,
		CreatedAt:   crs.CreatedAt.UTC(),
		UpdatedAt:   crs.UpdatedAt.UTC(),
	}
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		TeacherID:   r.TeacherID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (t *tx) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	q := "SELECT " + courseColumns + " FROM courses WHERE id = $1"
	if err := t.get(ctx, &row, "getting course by ID", q, id); err != nil {
		return course.Course{}, err
	}
	return row.course(), nil
}

func (t *tx) GetCourseByCode(ctx context.Context, code string) (course.Course, error) {
	var row courseRow
	q := "SELECT " + courseColumns + " FROM courses WHERE UPPER(code) = UPPER($1)"
	if err := t.get(ctx, &row, "getting course by code", q, code); err != nil {
		return course.Course{}, err
	}
	return row.course(), nil
}

func (t *tx) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	q := "SELECT " + courseColumns + ` FROM courses
		WHERE ($1::int IS NULL OR teacher_id = $1)
		AND ($2::text = '' OR code ILIKE '%' || $2::text || '%' OR name ILIKE '%' || $2::text || '%')
		ORDER BY code`
	var rows []courseRow
	if err := t.sel(ctx, &rows, "querying courses", q, filter.TeacherID, strings.TrimSpace(filter.Search)); err != nil {
		return nil, err
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (t *tx) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `INSERT INTO courses (code, name, description, teacher_id, created_at, updated_at)
		VALUES (:code, :name, :description, :teacher_id, :created_at, :updated_at)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, t.tx, q, newCourseRow(crs))
	if err != nil {
		return course.Course{}, classify(err, "creating course")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&crs.ID); err != nil {
			return course.Course{}, classify(err, "creating course")
		}
	}
	return crs, classify(rows.Err(), "creating course")
}

func (t *tx) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `UPDATE courses SET code = :code, name = :name, description = :description,
		teacher_id = :teacher_id, updated_at = :updated_at
		WHERE id = :id`
	q, args, err := t.tx.BindNamed(q, newCourseRow(crs))
	if err != nil {
		return course.Course{}, err
	}
	if err = t.execOne(ctx, "updating course", q, args...); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (t *tx) DeleteCourse(ctx context.Context, id int) error {
	return t.execOne(ctx, "deleting course", "DELETE FROM courses WHERE id = $1", id)
}

func (t *tx) CountEnrollmentsByCourse(ctx context.Context, courseID int) (int, error) {
	return t.count(ctx, "counting enrollments", "SELECT COUNT(*) FROM enrollments WHERE course_id = $1", courseID)
}
