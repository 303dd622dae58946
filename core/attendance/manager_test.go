package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/user"
	"github.com/trezcool/asm/storage/database"
	testutil "github.com/trezcool/asm/tests"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

func setup(t *testing.T) (testutil.School, *attendance.Manager) {
	s := testutil.NewSchool(t)
	testutil.Enroll(t, s.DB, s.Student.ID, s.Math.ID)
	testutil.Enroll(t, s.DB, s.Student2.ID, s.Math.ID)
	testutil.Enroll(t, s.DB, s.Student3.ID, s.Physics.ID)
	return s, attendance.NewManager(database.Bind[attendance.Store](s.DB), testutil.RetryPolicy)
}

func TestManager_SubmitAttendance(t *testing.T) {
	s, mgr := setup(t)
	testutil.Mark(t, s.DB, s.DB.Enrollments()[0], s.Teacher.ID, "2024-01-08", attendance.StatusPresent)

	records := []attendance.Record{
		{StudentID: s.Student.ID, Status: "Present"},
		{StudentID: s.Student2.ID, Status: "late"},
	}
	tests := []struct {
		name     string
		actor    user.Actor
		sub      attendance.Submission
		wantKind core.Kind
		wantIDs  []int
	}{
		{
			name:  "teacher submits for their course",
			actor: s.Teacher.Actor(),
			sub:   attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-10"), Records: records},
		},
		{
			name:  "admin submits on behalf of the teacher",
			actor: s.Admin.Actor(),
			sub:   attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-11"), Records: records},
		},
		{
			name:     "session already submitted",
			actor:    s.Teacher.Actor(),
			sub:      attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-08"), Records: records},
			wantKind: core.KindConflict,
		},
		{
			name:     "time of day is ignored",
			actor:    s.Teacher.Actor(),
			sub:      attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-08").Add(15 * time.Hour), Records: records},
			wantKind: core.KindConflict,
		},
		{
			name:  "unenrolled students are all reported",
			actor: s.Teacher.Actor(),
			sub: attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-12"), Records: []attendance.Record{
				{StudentID: 999, Status: "Present"},
				{StudentID: s.Student.ID, Status: "Present"},
				{StudentID: s.Student3.ID, Status: "Absent"},
			}},
			wantKind: core.KindInvalidArgument,
			wantIDs:  []int{s.Student3.ID, 999},
		},
		{
			name:  "invalid status",
			actor: s.Teacher.Actor(),
			sub: attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-12"), Records: []attendance.Record{
				{StudentID: s.Student.ID, Status: "Present"},
				{StudentID: s.Student2.ID, Status: "Excused"},
			}},
			wantKind: core.KindInvalidArgument,
			wantIDs:  []int{s.Student2.ID},
		},
		{
			name:  "every invalid status is reported",
			actor: s.Teacher.Actor(),
			sub: attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-12"), Records: []attendance.Record{
				{StudentID: s.Student2.ID, Status: "Sick"},
				{StudentID: s.Student.ID, Status: "Unknown"},
			}},
			wantKind: core.KindInvalidArgument,
			wantIDs:  []int{s.Student.ID, s.Student2.ID},
		},
		{
			name:  "student listed twice",
			actor: s.Teacher.Actor(),
			sub: attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-12"), Records: []attendance.Record{
				{StudentID: s.Student.ID, Status: "Present"},
				{StudentID: s.Student.ID, Status: "Absent"},
			}},
			wantKind: core.KindInvalidArgument,
			wantIDs:  []int{s.Student.ID},
		},
		{
			name:     "no records",
			actor:    s.Teacher.Actor(),
			sub:      attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-12")},
			wantKind: core.KindInvalidArgument,
		},
		{
			name:     "no date",
			actor:    s.Teacher.Actor(),
			sub:      attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Records: records},
			wantKind: core.KindInvalidArgument,
		},
		{
			name:     "teacher does not own the course",
			actor:    s.OtherTeacher.Actor(),
			sub:      attendance.Submission{CourseID: s.Math.ID, TeacherID: s.OtherTeacher.ID, Date: date(t, "2024-01-12"), Records: records},
			wantKind: core.KindUnauthorized,
		},
		{
			name:     "teacher submits as another teacher",
			actor:    s.OtherTeacher.Actor(),
			sub:      attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-12"), Records: records},
			wantKind: core.KindUnauthorized,
		},
		{
			name:     "students cannot submit",
			actor:    s.Student.Actor(),
			sub:      attendance.Submission{CourseID: s.Math.ID, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-12"), Records: records},
			wantKind: core.KindUnauthorized,
		},
		{
			name:     "unknown course",
			actor:    s.Admin.Actor(),
			sub:      attendance.Submission{CourseID: 999, TeacherID: s.Teacher.ID, Date: date(t, "2024-01-12"), Records: records},
			wantKind: core.KindUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(s.DB.Attendances())

			atts, err := mgr.SubmitAttendance(context.Background(), tt.actor, tt.sub)

			if tt.wantKind != core.KindInternal {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, core.KindOf(err), err.Error())
				assert.Len(t, s.DB.Attendances(), before, "no attendance must be written")
				if tt.wantIDs != nil {
					var cerr *core.Error
					require.True(t, errors.As(err, &cerr))
					assert.Equal(t, tt.wantIDs, cerr.IDs)
					assert.Contains(t, err.Error(), core.FormatIDs(tt.wantIDs))
				}
				return
			}
			require.NoError(t, err)
			require.Len(t, atts, len(tt.sub.Records))
			assert.Len(t, s.DB.Attendances(), before+len(tt.sub.Records))
			for _, att := range atts {
				assert.NotZero(t, att.ID)
				assert.Equal(t, tt.sub.Date, att.Date)
				assert.Equal(t, tt.sub.TeacherID, att.MarkedByTeacherID)
			}
			assert.Equal(t, attendance.StatusPresent, atts[0].Status)
			assert.Equal(t, attendance.StatusLate, atts[1].Status)
		})
	}
}

func TestManager_SubmitAttendance_Retry(t *testing.T) {
	serialization := &pq.Error{Code: "40001", Message: "could not serialize access"}
	sub := func(s testutil.School) attendance.Submission {
		return attendance.Submission{
			CourseID:  s.Math.ID,
			TeacherID: s.Teacher.ID,
			Date:      date(t, "2024-01-10"),
			Records: []attendance.Record{
				{StudentID: s.Student.ID, Status: "Present"},
				{StudentID: s.Student2.ID, Status: "Absent"},
			},
		}
	}

	t.Run("transient commit failure is retried", func(t *testing.T) {
		s, mgr := setup(t)
		txs := s.DB.TxCount()
		s.DB.FailCommits(serialization)

		atts, err := mgr.SubmitAttendance(context.Background(), s.Teacher.Actor(), sub(s))

		require.NoError(t, err)
		assert.Equal(t, 2, s.DB.TxCount()-txs)
		assert.Equal(t, atts, s.DB.Attendances())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		s, mgr := setup(t)
		s.DB.FailCommits(serialization, serialization, serialization)

		_, err := mgr.SubmitAttendance(context.Background(), s.Teacher.Actor(), sub(s))

		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindTransient))
		assert.Empty(t, s.DB.Attendances())
	})

	t.Run("a second submission of the session conflicts", func(t *testing.T) {
		s, mgr := setup(t)

		_, err := mgr.SubmitAttendance(context.Background(), s.Teacher.Actor(), sub(s))
		require.NoError(t, err)
		_, err = mgr.SubmitAttendance(context.Background(), s.Admin.Actor(), sub(s))

		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindConflict))
		assert.Len(t, s.DB.Attendances(), 2)
	})
}
