package attendance

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
)

// Manager is the only writer of attendances.
type Manager struct {
	db     core.Transactor[Store]
	policy core.RetryPolicy
}

func NewManager(db core.Transactor[Store], policy core.RetryPolicy) *Manager {
	return &Manager{db: db, policy: policy}
}

// SubmitAttendance records the attendance of one session (course, date) as a single all-or-nothing batch.
//
// Teachers submit for their own courses; admins may submit on behalf of the owning teacher.
// All checks and the insert run in one transaction, re-run as a whole on transient storage failures.
func (m *Manager) SubmitAttendance(ctx context.Context, actor user.Actor, sub Submission) ([]Attendance, error) {
	switch {
	case actor.IsAdmin():
	case actor.IsTeacher() && actor.Is(sub.TeacherID):
	default:
		return nil, core.Unauthorized("user %d cannot submit attendance as teacher %d", actor.ID, sub.TeacherID)
	}
	if err := checkSubmission(sub); err != nil {
		return nil, err
	}
	sub.Date = core.TruncateDate(sub.Date)

	var atts []Attendance
	err := core.Retry(ctx, m.policy, func(ctx context.Context) error {
		return m.db.WithinTx(ctx, func(store Store) (err error) {
			atts, err = submit(ctx, store, sub)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return atts, nil
}

func checkSubmission(sub Submission) error {
	if sub.CourseID <= 0 || sub.TeacherID <= 0 {
		return core.InvalidArgument("course ID and teacher ID must be positive, got %d and %d", sub.CourseID, sub.TeacherID)
	}
	if sub.Date.IsZero() {
		return core.InvalidArgument("attendance date is required")
	}
	if len(sub.Records) == 0 {
		return core.InvalidArgument("attendance submission for course %d has no records", sub.CourseID)
	}

	seen := make(map[int]bool, len(sub.Records))
	var dups []int
	for _, rec := range sub.Records {
		if rec.StudentID <= 0 {
			return core.InvalidArgument("student ID must be positive, got %d", rec.StudentID)
		}
		if seen[rec.StudentID] && !containsInt(dups, rec.StudentID) {
			dups = append(dups, rec.StudentID)
		}
		seen[rec.StudentID] = true
	}
	if len(dups) > 0 {
		return core.InvalidArgument("students with IDs %s are listed more than once", core.FormatIDs(dups)).WithIDs(dups...)
	}
	return nil
}

func submit(ctx context.Context, store Store, sub Submission) ([]Attendance, error) {
	crs, err := store.GetCourseByID(ctx, sub.CourseID)
	switch {
	case errors.Is(err, core.ErrNoRecord), err == nil && crs.TeacherID != sub.TeacherID:
		return nil, core.Unauthorized("course %d is not owned by teacher %d", sub.CourseID, sub.TeacherID)
	case err != nil:
		return nil, errors.Wrap(err, "getting course")
	}

	count, err := store.CountCourseAttendancesOn(ctx, sub.CourseID, sub.Date)
	if err != nil {
		return nil, errors.Wrap(err, "counting attendances")
	}
	if count > 0 {
		return nil, core.Conflict("attendance for course %d on %s was already submitted", sub.CourseID, sub.Date.Format(core.DateLayout))
	}

	enrs, err := store.ListEnrollmentsByCourse(ctx, sub.CourseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	enrollmentIDs := make(map[int]int, len(enrs)) // {studentID: enrollmentID}
	for _, enr := range enrs {
		enrollmentIDs[enr.StudentID] = enr.ID
	}
	var unenrolled []int
	for _, rec := range sub.Records {
		if _, ok := enrollmentIDs[rec.StudentID]; !ok {
			unenrolled = append(unenrolled, rec.StudentID)
		}
	}
	if len(unenrolled) > 0 {
		sort.Ints(unenrolled)
		return nil, core.InvalidArgument(
			"students with IDs %s are not enrolled in course %d", core.FormatIDs(unenrolled), sub.CourseID,
		).WithIDs(unenrolled...)
	}

	var invalid []int
	atts := make([]Attendance, 0, len(sub.Records))
	for _, rec := range sub.Records {
		status, ok := ParseStatus(rec.Status)
		if !ok {
			invalid = append(invalid, rec.StudentID)
			continue
		}
		atts = append(atts, Attendance{
			EnrollmentID:      enrollmentIDs[rec.StudentID],
			Date:              sub.Date,
			Status:            status,
			MarkedByTeacherID: sub.TeacherID,
		})
	}
	if len(invalid) > 0 {
		sort.Ints(invalid)
		return nil, core.InvalidArgument(
			"students with IDs %s have an invalid attendance status", core.FormatIDs(invalid),
		).WithIDs(invalid...)
	}

	atts, err = store.CreateAttendances(ctx, atts)
	if err != nil {
		if core.IsKind(err, core.KindConflict) {
			return nil, core.Conflict("attendance for course %d on %s was already submitted", sub.CourseID, sub.Date.Format(core.DateLayout))
		}
		return nil, errors.Wrap(err, "creating attendances")
	}
	return atts, nil
}

func containsInt(ids []int, id int) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
