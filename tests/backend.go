package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/enrollment"
	"github.com/trezcool/asm/core/report"
	"github.com/trezcool/asm/core/user"
	"github.com/trezcool/asm/storage/database"
)

var errRollback = errors.New("rollback")

// PrepareDB opens the database at TEST_DATABASE_URL, migrates it and empties every table.
// The test is skipped when TEST_DATABASE_URL is not set.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.OpenURL(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	_, err = db.Exec("TRUNCATE attendances, enrollments, courses, users RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return db
}

// RunBackendTests checks the constraints and transaction semantics every storage backend must provide.
// db must be empty.
func RunBackendTests(t *testing.T, db database.Backend) {
	ctx := context.Background()

	admin := CreateUser(t, db, "Admin", "admin@test.cd", user.RoleAdmin)
	teacher := CreateUser(t, db, "Teacher", "teacher@test.cd", user.RoleTeacher)
	alice := CreateUser(t, db, "Alice", "alice@test.cd", user.RoleStudent)
	bob := CreateUser(t, db, "Bob", "bob@test.cd", user.RoleStudent)
	math := CreateCourse(t, db, "MATH-101", "Mathematics", teacher.ID)

	t.Run("lookups", func(t *testing.T) {
		within(t, db, func(tx database.Tx) error {
			usr, err := tx.GetUserByEmail(ctx, "alice@test.cd")
			require.NoError(t, err)
			assert.Equal(t, alice.ID, usr.ID)
			assert.Equal(t, user.RoleStudent, usr.Role)
			assert.NoError(t, usr.CheckPassword(Password))

			crs, err := tx.GetCourseByCode(ctx, "MATH-101")
			require.NoError(t, err)
			assert.Equal(t, math.ID, crs.ID)
			assert.Equal(t, teacher.ID, crs.TeacherID)

			_, err = tx.GetUserByID(ctx, bob.ID+1000)
			assert.ErrorIs(t, err, core.ErrNoRecord)
			_, err = tx.GetCourseByID(ctx, math.ID+1000)
			assert.ErrorIs(t, err, core.ErrNoRecord)
			_, err = tx.FindEnrollment(ctx, alice.ID, math.ID)
			assert.ErrorIs(t, err, core.ErrNoRecord)
			return nil
		})
	})

	t.Run("unique and foreign keys", func(t *testing.T) {
		tests := []struct {
			name     string
			fn       func(tx database.Tx) error
			wantKind core.Kind
		}{
			{
				name: "duplicate email",
				fn: func(tx database.Tx) error {
					_, err := tx.CreateUser(ctx, user.User{Name: "Alice 2", Email: "alice@test.cd", Role: user.RoleStudent, PasswordHash: alice.PasswordHash})
					return err
				},
				wantKind: core.KindConflict,
			},
			{
				name: "duplicate course code",
				fn: func(tx database.Tx) error {
					crs := math
					crs.ID = 0
					_, err := tx.CreateCourse(ctx, crs)
					return err
				},
				wantKind: core.KindConflict,
			},
			{
				name: "unknown teacher",
				fn: func(tx database.Tx) error {
					crs := math
					crs.Code, crs.TeacherID = "PHY-101", bob.ID+1000
					_, err := tx.CreateCourse(ctx, crs)
					return err
				},
				wantKind: core.KindInvalidState,
			},
			{
				name: "unknown enrollment",
				fn: func(tx database.Tx) error {
					_, err := tx.CreateAttendances(ctx, []attendance.Attendance{
						{EnrollmentID: 1000, Date: mustDate(t, "2024-03-04"), Status: attendance.StatusPresent, MarkedByTeacherID: teacher.ID},
					})
					return err
				},
				wantKind: core.KindInvalidState,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := db.WithinTx(ctx, tt.fn)
				assert.Equal(t, tt.wantKind, core.KindOf(err), "got %v", err)
			})
		}
	})

	t.Run("rollback", func(t *testing.T) {
		err := db.WithinTx(ctx, func(tx database.Tx) error {
			if _, err := tx.CreateEnrollment(ctx, enrollment.Enrollment{StudentID: bob.ID, CourseID: math.ID, EnrolledAt: core.NowFunc()}); err != nil {
				return err
			}
			return errRollback
		})
		require.ErrorIs(t, err, errRollback)

		within(t, db, func(tx database.Tx) error {
			_, err := tx.FindEnrollment(ctx, bob.ID, math.ID)
			assert.ErrorIs(t, err, core.ErrNoRecord)
			return nil
		})
	})

	stores := database.NewStores(db)
	enrollments := enrollment.NewManager(stores.Enrollments, RetryPolicy)
	attendances := attendance.NewManager(stores.Attendances, RetryPolicy)
	reports := report.NewService(stores.Reports, nil, 0)
	adminActor := admin.Actor()

	t.Run("enroll", func(t *testing.T) {
		enr, err := enrollments.Enroll(ctx, alice.Actor(), alice.ID, math.ID)
		require.NoError(t, err)
		assert.Positive(t, enr.ID)

		_, err = enrollments.Enroll(ctx, adminActor, bob.ID, math.ID)
		require.NoError(t, err)

		_, err = enrollments.Enroll(ctx, adminActor, alice.ID, math.ID)
		assert.True(t, core.IsKind(err, core.KindConflict), "got %v", err)

		within(t, db, func(tx database.Tx) error {
			enrs, err := tx.ListEnrollmentsByCourse(ctx, math.ID)
			require.NoError(t, err)
			assert.Len(t, enrs, 2)

			n, err := tx.CountUserDependents(ctx, alice.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			return nil
		})

		// the duplicate index holds even without the explicit check
		err = db.WithinTx(ctx, func(tx database.Tx) error {
			_, err := tx.CreateEnrollment(ctx, enrollment.Enrollment{StudentID: alice.ID, CourseID: math.ID, EnrolledAt: core.NowFunc()})
			return err
		})
		assert.True(t, core.IsKind(err, core.KindConflict), "got %v", err)
	})

	t.Run("submit attendance", func(t *testing.T) {
		sub := attendance.Submission{
			CourseID:  math.ID,
			Date:      mustDate(t, "2024-03-04"),
			TeacherID: teacher.ID,
			Records: []attendance.Record{
				{StudentID: alice.ID, Status: "Present"},
				{StudentID: bob.ID, Status: "late"},
			},
		}
		atts, err := attendances.SubmitAttendance(ctx, teacher.Actor(), sub)
		require.NoError(t, err)
		require.Len(t, atts, 2)

		within(t, db, func(tx database.Tx) error {
			recs, err := tx.ListAttendanceRecords(ctx, report.Filter{CourseID: null.IntFrom(math.ID)})
			require.NoError(t, err)
			enrollmentOf := make(map[int]int, len(recs))
			for _, rec := range recs {
				enrollmentOf[rec.AttendanceID] = rec.EnrollmentID
			}
			for _, att := range atts {
				assert.Equal(t, att.EnrollmentID, enrollmentOf[att.ID], "attendance %d belongs to another enrollment", att.ID)
			}
			return nil
		})

		_, err = attendances.SubmitAttendance(ctx, teacher.Actor(), sub)
		assert.True(t, core.IsKind(err, core.KindConflict), "got %v", err)

		sub.Date = mustDate(t, "2024-03-05")
		sub.Records = []attendance.Record{{StudentID: alice.ID, Status: "Absent"}, {StudentID: bob.ID, Status: "Sick"}}
		_, err = attendances.SubmitAttendance(ctx, teacher.Actor(), sub)
		assert.True(t, core.IsKind(err, core.KindInvalidArgument), "got %v", err)

		within(t, db, func(tx database.Tx) error {
			n, err := tx.CountCourseAttendancesOn(ctx, math.ID, mustDate(t, "2024-03-04"))
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			n, err = tx.CountCourseAttendancesOn(ctx, math.ID, mustDate(t, "2024-03-05"))
			require.NoError(t, err)
			assert.Zero(t, n, "a rejected submission writes nothing")
			return nil
		})
	})

	t.Run("report", func(t *testing.T) {
		rows, err := reports.GetAttendanceReport(ctx, report.Filter{CourseID: null.IntFrom(math.ID)})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Alice", rows[0].StudentName)
		assert.Equal(t, "100.00", rows[0].AttendancePercentage.StringFixed(2))
		assert.Equal(t, "Bob", rows[1].StudentName)
		assert.Equal(t, 1, rows[1].LateCount)
		assert.Equal(t, "100.00", rows[1].AttendancePercentage.StringFixed(2))

		rows, err = reports.GetAttendanceReport(ctx, report.Filter{StartDate: null.TimeFrom(mustDate(t, "2024-03-05"))})
		require.NoError(t, err)
		assert.Empty(t, rows)

		within(t, db, func(tx database.Tx) error {
			recs, err := tx.ListAttendanceRecords(ctx, report.Filter{StudentID: null.IntFrom(bob.ID)})
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "2024-03-04", recs[0].Date.Format(core.DateLayout))
			assert.Equal(t, attendance.StatusLate, recs[0].Status)
			assert.Equal(t, "MATH-101", recs[0].CourseCode)
			return nil
		})
	})
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}
