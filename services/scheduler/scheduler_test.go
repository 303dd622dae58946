package schedulersvc_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/report"
	"github.com/trezcool/asm/core/user"
	archivesvc "github.com/trezcool/asm/services/archive"
	emailsvc "github.com/trezcool/asm/services/email"
	schedulersvc "github.com/trezcool/asm/services/scheduler"
	"github.com/trezcool/asm/storage/database"
	testutil "github.com/trezcool/asm/tests"
)

func setup(t *testing.T, archiver core.Archiver) (*schedulersvc.Scheduler, *emailsvc.ConsoleServiceMock, testutil.School) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger)

	s := testutil.NewSchool(t)
	aliceMath := testutil.Enroll(t, s.DB, s.Student.ID, s.Math.ID)
	bobMath := testutil.Enroll(t, s.DB, s.Student2.ID, s.Math.ID)
	testutil.Mark(t, s.DB, aliceMath, s.Teacher.ID, "2024-01-08", attendance.StatusPresent)
	testutil.Mark(t, s.DB, bobMath, s.Teacher.ID, "2024-01-08", attendance.StatusAbsent)
	testutil.Mark(t, s.DB, aliceMath, s.Teacher.ID, "2024-01-10", attendance.StatusLate)
	testutil.Mark(t, s.DB, bobMath, s.Teacher.ID, "2024-01-10", attendance.StatusPresent)

	mailer := emailsvc.NewConsoleServiceMock(conf, logger)
	sched, err := schedulersvc.New(conf.Scheduler, schedulersvc.Deps{
		Reports:  report.NewService(database.Bind[report.Store](s.DB), nil, 0),
		Users:    user.NewService(database.Bind[user.Store](s.DB)),
		Mailer:   mailer,
		Archiver: archiver,
		Logger:   logger,
	})
	require.NoError(t, err)
	return sched, mailer, s
}

func TestScheduler_SendLowAttendanceAlerts(t *testing.T) {
	sched, mailer, s := setup(t, nil)

	n, err := sched.SendLowAttendanceAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, s.Student2.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Hello Bob")
	assert.Contains(t, sent[0].TextContent, "50% (Poor)")
	assert.Contains(t, sent[0].TextContent, "MATH-101 Mathematics")
}

func TestScheduler_ArchiveReport(t *testing.T) {
	dir := t.TempDir()
	sched, mailer, s := setup(t, archivesvc.NewFileArchiver(dir))

	location, err := sched.ArchiveReport(context.Background())
	require.NoError(t, err)
	content, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Mathematics,Alice,2,1,0,1,100.00")

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, s.Admin.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, location)
	assert.Contains(t, sent[0].TextContent, "(2 rows)")
}

func TestScheduler_ArchiveReport_NoArchiver(t *testing.T) {
	sched, mailer, _ := setup(t, nil)

	_, err := sched.ArchiveReport(context.Background())
	assert.Error(t, err)
	assert.Empty(t, mailer.Sent())
}

func TestScheduler_StartStop(t *testing.T) {
	sched, _, _ := setup(t, archivesvc.NewFileArchiver(t.TempDir()))
	require.NoError(t, sched.Start())
	sched.Stop()
}

func TestNew_InvalidConfig(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Scheduler.AlertsThreshold = "Excellent"
	_, err := schedulersvc.New(conf.Scheduler, schedulersvc.Deps{Logger: testutil.NewLogger(conf)})
	assert.Error(t, err)

	conf = testutil.NewConfig()
	conf.Scheduler.AlertsSpec = "every now and then"
	sched, err := schedulersvc.New(conf.Scheduler, schedulersvc.Deps{Logger: testutil.NewLogger(conf)})
	require.NoError(t, err)
	assert.Error(t, sched.Start())
}
