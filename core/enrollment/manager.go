package enrollment

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/user"
)

// Manager is the only writer of enrollments.
type Manager struct {
	db     core.Transactor[Store]
	policy core.RetryPolicy
}

func NewManager(db core.Transactor[Store], policy core.RetryPolicy) *Manager {
	return &Manager{db: db, policy: policy}
}

// Enroll registers student studentID in course courseID.
//
// Students may only enroll themselves; admins may enroll anyone.
// All checks and the insert run in one transaction, re-run as a whole on transient storage failures.
func (m *Manager) Enroll(ctx context.Context, actor user.Actor, studentID, courseID int) (Enrollment, error) {
	if studentID <= 0 || courseID <= 0 {
		return Enrollment{}, core.InvalidArgument("student ID and course ID must be positive, got %d and %d", studentID, courseID)
	}
	switch {
	case actor.IsAdmin():
	case actor.IsStudent() && actor.Is(studentID):
	default:
		return Enrollment{}, core.Unauthorized("user %d cannot enroll student %d", actor.ID, studentID)
	}

	var enr Enrollment
	err := core.Retry(ctx, m.policy, func(ctx context.Context) error {
		return m.db.WithinTx(ctx, func(store Store) (err error) {
			enr, err = enroll(ctx, store, studentID, courseID)
			return err
		})
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

func enroll(ctx context.Context, store Store, studentID, courseID int) (Enrollment, error) {
	student, err := store.GetUserByID(ctx, studentID)
	switch {
	case errors.Is(err, core.ErrNoRecord):
		return Enrollment{}, core.NotFound("student %d not found", studentID)
	case err != nil:
		return Enrollment{}, errors.Wrap(err, "getting student")
	case !student.IsStudent():
		return Enrollment{}, core.NotFound("student %d not found", studentID)
	}

	crs, err := course.Get(ctx, store, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	teacher, err := store.GetUserByID(ctx, crs.TeacherID)
	switch {
	case errors.Is(err, core.ErrNoRecord), err == nil && !teacher.IsTeacher():
		return Enrollment{}, core.InvalidState("course %d has no active teacher", courseID)
	case err != nil:
		return Enrollment{}, errors.Wrap(err, "getting course teacher")
	}

	_, err = store.FindEnrollment(ctx, studentID, courseID)
	switch {
	case err == nil:
		return Enrollment{}, core.Conflict("student %d is already enrolled in course %d", studentID, courseID)
	case !errors.Is(err, core.ErrNoRecord):
		return Enrollment{}, errors.Wrap(err, "finding enrollment")
	}

	enr, err := store.CreateEnrollment(ctx, Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: core.NowFunc(),
	})
	if err != nil {
		if core.IsKind(err, core.KindConflict) {
			return Enrollment{}, core.Conflict("student %d is already enrolled in course %d", studentID, courseID)
		}
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}
