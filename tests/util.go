package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/enrollment"
	"github.com/trezcool/asm/core/user"
	logsvc "github.com/trezcool/asm/services/logger"
	"github.com/trezcool/asm/storage/database"
	inmemdb "github.com/trezcool/asm/storage/database/inmem"
)

// Password satisfies the password policy.
const Password = "Sup3r-Secret!"

// RetryPolicy retries quickly.
var RetryPolicy = core.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

// NewConfig returns the configuration of tests, backed by the in-memory storage.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "Masomo Attendance",
		SecretKey:        "test-secret-key",
		WorkDir:          core.Getwd(),
		FrontendBaseURL:  "http://localhost:8080",
		DefaultFromEmail: "Masomo Attendance <noreply@test.cd>",
		Server: core.ServerConfig{
			Host:                      ":8000",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			TokenCookie:               "ASM_TOKEN",
		},
		Database: core.DatabaseConfig{Backend: "inmem"},
		Retry: core.RetryConfig{
			MaxAttempts:     RetryPolicy.MaxAttempts,
			InitialInterval: RetryPolicy.InitialInterval,
			MaxInterval:     RetryPolicy.MaxInterval,
		},
		Scheduler: core.SchedulerConfig{
			AlertsSpec:      "0 0 7 * * MON",
			ArchiveSpec:     "0 30 0 1 * *",
			AlertsThreshold: string(attendance.BandWarning),
		},
		Archive: core.ArchiveConfig{Prefix: "reports"},
	}
}

// NewLogger returns a silent logger; Rollbar stays disabled without a token.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
}

func within(t *testing.T, db database.Backend, fn func(tx database.Tx) error) {
	t.Helper()
	require.NoError(t, db.WithinTx(context.Background(), fn))
}

// CreateUser inserts a user directly in storage, bypassing validation.
func CreateUser(t *testing.T, db database.Backend, name, email string, role user.Role, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := core.NowFunc()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	require.NoError(t, usr.SetPassword(Password))

	within(t, db, func(tx database.Tx) (err error) {
		usr, err = tx.CreateUser(context.Background(), usr)
		return err
	})
	return usr
}

func CreateCourse(t *testing.T, db database.Backend, code, name string, teacherID int) course.Course {
	t.Helper()
	now := core.NowFunc()
	crs := course.Course{Code: code, Name: name, TeacherID: teacherID, CreatedAt: now, UpdatedAt: now}

	within(t, db, func(tx database.Tx) (err error) {
		crs, err = tx.CreateCourse(context.Background(), crs)
		return err
	})
	return crs
}

func Enroll(t *testing.T, db database.Backend, studentID, courseID int) enrollment.Enrollment {
	t.Helper()
	enr := enrollment.Enrollment{StudentID: studentID, CourseID: courseID, EnrolledAt: core.NowFunc()}

	within(t, db, func(tx database.Tx) (err error) {
		enr, err = tx.CreateEnrollment(context.Background(), enr)
		return err
	})
	return enr
}

// Mark records one attendance of enrollment enr on date (YYYY-MM-DD).
func Mark(t *testing.T, db database.Backend, enr enrollment.Enrollment, teacherID int, date string, status attendance.Status) attendance.Attendance {
	t.Helper()
	d, err := core.ParseDate(date)
	require.NoError(t, err)
	atts := []attendance.Attendance{{EnrollmentID: enr.ID, Date: d, Status: status, MarkedByTeacherID: teacherID}}

	within(t, db, func(tx database.Tx) (err error) {
		atts, err = tx.CreateAttendances(context.Background(), atts)
		return err
	})
	return atts[0]
}

// School is a small populated in-memory database:
// an admin, two teachers, three students and two courses of the first teacher.
type School struct {
	DB                          *inmemdb.DB
	Admin                       user.User
	Teacher, OtherTeacher       user.User
	Student, Student2, Student3 user.User
	Math, Physics               course.Course
}

func NewSchool(t *testing.T) School {
	t.Helper()
	db := inmemdb.New()
	s := School{DB: db}
	s.Admin = CreateUser(t, db, "Admin", "admin@test.cd", user.RoleAdmin)
	s.Teacher = CreateUser(t, db, "Teacher", "teacher@test.cd", user.RoleTeacher)
	s.OtherTeacher = CreateUser(t, db, "Other Teacher", "other.teacher@test.cd", user.RoleTeacher)
	s.Student = CreateUser(t, db, "Alice", "alice@test.cd", user.RoleStudent)
	s.Student2 = CreateUser(t, db, "Bob", "bob@test.cd", user.RoleStudent)
	s.Student3 = CreateUser(t, db, "Carol", "carol@test.cd", user.RoleStudent)
	s.Math = CreateCourse(t, db, "MATH-101", "Mathematics", s.Teacher.ID)
	s.Physics = CreateCourse(t, db, "PHY-101", "Physics", s.Teacher.ID)
	return s
}
