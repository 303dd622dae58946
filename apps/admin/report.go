package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/report"
)

type reportOptions struct {
	courseID, studentID, teacherID int
	from, to                       string
	out                            string
	archive                        bool
}

func (opts reportOptions) filter() (report.Filter, error) {
	var f report.Filter
	if opts.courseID > 0 {
		f.CourseID = null.IntFrom(opts.courseID)
	}
	if opts.studentID > 0 {
		f.StudentID = null.IntFrom(opts.studentID)
	}
	if opts.teacherID > 0 {
		f.TeacherID = null.IntFrom(opts.teacherID)
	}
	if opts.from != "" {
		d, err := core.ParseDate(opts.from)
		if err != nil {
			return f, err
		}
		f.StartDate = null.TimeFrom(d)
	}
	if opts.to != "" {
		d, err := core.ParseDate(opts.to)
		if err != nil {
			return f, err
		}
		f.EndDate = null.TimeFrom(d)
	}
	return f, nil
}

// report writes the attendance report as CSV to a file, stdout or the report archive.
func (cli *commandLine) report(opts reportOptions) error {
	ctx := context.Background()
	filter, err := opts.filter()
	if err != nil {
		return err
	}

	if opts.archive {
		archiver, err := cli.archiver()
		if err != nil {
			return err
		}
		location, n, err := cli.reports.ArchiveReport(ctx, archiver, filter)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "archived %d rows to %s\n", n, location)
		return nil
	}

	rows, err := cli.reports.GetAttendanceReport(ctx, filter)
	if err != nil {
		return err
	}

	var w io.Writer = cli.out
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return errors.Wrap(err, "creating report file")
		}
		defer f.Close()
		w = f
	}
	if err = report.WriteCSV(w, rows); err != nil {
		return err
	}
	if opts.out != "" {
		fmt.Fprintf(cli.out, "wrote %d rows to %s\n", len(rows), opts.out)
	}
	return nil
}

func (cli *commandLine) lowAttendance(threshold string) error {
	band, ok := attendance.ParseBand(threshold)
	if !ok {
		return errors.Errorf("invalid band %q, expected one of Critical, Poor, Warning or Good", threshold)
	}
	alerts, err := cli.reports.LowAttendanceStudents(context.Background(), band)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tOVERALL\tBAND")
	for _, alert := range alerts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", alert.StudentID, alert.StudentName, alert.Email, alert.Overall.StringFixed(2), alert.Band)
	}
	return tw.Flush()
}
