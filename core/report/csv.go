package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
)

// CSVHeader is the header row of the attendance report export.
var CSVHeader = []string{
	"CourseName", "StudentName", "TotalClasses", "PresentCount", "AbsentCount", "LateCount", "AttendancePercentage",
}

// WriteCSV writes the attendance report as comma-delimited UTF-8, one row per (student, course) group.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, row := range rows {
		record := []string{
			row.CourseName,
			row.StudentName,
			strconv.Itoa(row.TotalClasses),
			strconv.Itoa(row.PresentCount),
			strconv.Itoa(row.AbsentCount),
			strconv.Itoa(row.LateCount),
			row.AttendancePercentage.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// ArchiveKey names the archived CSV of a report generated at now.
func ArchiveKey(now time.Time) string {
	return "attendance-" + now.UTC().Format("20060102T150405Z") + ".csv"
}

// ArchiveReport exports the attendance report matching filter as CSV into archiver.
// It returns the archive location and the number of rows written.
func (svc *Service) ArchiveReport(ctx context.Context, archiver core.Archiver, filter Filter) (string, int, error) {
	rows, err := svc.GetAttendanceReport(ctx, filter)
	if err != nil {
		return "", 0, err
	}
	var buf bytes.Buffer
	if err = WriteCSV(&buf, rows); err != nil {
		return "", 0, err
	}
	location, err := archiver.Put(ctx, ArchiveKey(core.NowFunc()), &buf, "text/csv")
	if err != nil {
		return "", 0, errors.Wrap(err, "archiving report")
	}
	return location, len(rows), nil
}
