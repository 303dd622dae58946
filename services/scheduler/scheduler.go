// Package schedulersvc runs the periodic jobs: low attendance alerts and report archiving.
package schedulersvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/report"
	"github.com/trezcool/asm/core/user"
)

const jobTimeout = 10 * time.Minute

type Deps struct {
	Reports  *report.Service
	Users    *user.Service
	Mailer   core.EmailService
	Archiver core.Archiver // nil disables the archive job
	Logger   core.Logger
}

type Scheduler struct {
	cron      *cron.Cron
	conf      core.SchedulerConfig
	threshold attendance.Band
	Deps
}

func New(conf core.SchedulerConfig, deps Deps) (*Scheduler, error) {
	threshold, ok := attendance.ParseBand(conf.AlertsThreshold)
	if !ok {
		return nil, errors.Errorf("invalid alerts threshold %q", conf.AlertsThreshold)
	}

	logger := cronLogger{logger: deps.Logger}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return &Scheduler{cron: c, conf: conf, threshold: threshold, Deps: deps}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.conf.AlertsSpec, s.job("low_attendance_alerts", func(ctx context.Context) error {
		_, err := s.SendLowAttendanceAlerts(ctx)
		return err
	})); err != nil {
		return errors.Wrap(err, "scheduling alerts")
	}

	if s.Archiver != nil {
		if _, err := s.cron.AddFunc(s.conf.ArchiveSpec, s.job("report_archive", func(ctx context.Context) error {
			_, err := s.ArchiveReport(ctx)
			return err
		})); err != nil {
			return errors.Wrap(err, "scheduling report archive")
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) job(name string, run func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		s.Logger.Info(fmt.Sprintf("[CRON] starting job: %s", name))
		if err := run(ctx); err != nil {
			s.Logger.Error(fmt.Sprintf("[CRON] job %s failed: %v", name, err), err)
			return
		}
		s.Logger.Info(fmt.Sprintf("[CRON] completed job: %s in %s", name, time.Since(start)))
	}
}

// SendLowAttendanceAlerts mails every student whose overall band is below the configured threshold.
func (s *Scheduler) SendLowAttendanceAlerts(ctx context.Context) (int, error) {
	alerts, err := s.Reports.LowAttendanceStudents(ctx, s.threshold)
	if err != nil {
		return 0, errors.Wrap(err, "listing low attendance students")
	}

	msgs := make([]*core.EmailMessage, 0, len(alerts))
	for _, alert := range alerts {
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: alert.StudentName, Address: alert.Email}},
			Subject:      "Low attendance",
			TemplateName: "low_attendance",
			TemplateData: alert,
		})
	}
	if len(msgs) > 0 {
		s.Mailer.SendMessages(msgs...)
	}
	return len(msgs), nil
}

// ArchiveReport archives the full attendance report and notifies the admins.
func (s *Scheduler) ArchiveReport(ctx context.Context) (string, error) {
	if s.Archiver == nil {
		return "", errors.New("no archiver configured")
	}
	location, n, err := s.Reports.ArchiveReport(ctx, s.Archiver, report.Filter{})
	if err != nil {
		return "", err
	}

	admins, err := s.Users.Query(ctx, user.QueryFilter{Roles: []user.Role{user.RoleAdmin}})
	if err != nil {
		return location, errors.Wrap(err, "querying admins")
	}
	if len(admins) > 0 {
		to := make([]mail.Address, 0, len(admins))
		for _, adm := range admins {
			to = append(to, mail.Address{Name: adm.Name, Address: adm.Email})
		}
		s.Mailer.SendMessages(&core.EmailMessage{
			To:           to,
			Subject:      "Attendance report archived",
			TemplateName: "report_archived",
			TemplateData: struct {
				Location string
				Rows     int
			}{Location: location, Rows: n},
		})
	}
	return location, nil
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err), append([]interface{}{err}, keysAndValues...)...)
}
