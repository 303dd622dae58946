package attendance

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/enrollment"
)

// Status is stored as 0, 1 or 2.
type Status int

const (
	StatusPresent Status = iota
	StatusAbsent
	StatusLate
)

var (
	AllStatuses = []Status{StatusPresent, StatusAbsent, StatusLate}

	statusNames = map[Status]string{
		StatusPresent: "Present",
		StatusAbsent:  "Absent",
		StatusLate:    "Late",
	}

	statusTag  = "attstatus"
	statusText = "status must be one of Present, Absent or Late"
)

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// Attended reports whether the status counts toward the attendance percentage. Late counts like Present.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	s = core.CleanString(s)
	for status, name := range statusNames {
		if strings.EqualFold(name, s) {
			return status, true
		}
	}
	return 0, false
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return errors.Wrap(err, "status must be a string")
	}
	status, ok := ParseStatus(name)
	if !ok {
		return errors.Errorf("invalid status %q", name)
	}
	*s = status
	return nil
}

// Attendance is one status mark for one enrollment on one calendar date. It is never updated.
type Attendance struct {
	ID                int       `json:"id"`
	EnrollmentID      int       `json:"enrollment_id"`
	Date              time.Time `json:"date"` // calendar date, UTC midnight
	Status            Status    `json:"status"`
	MarkedByTeacherID int       `json:"marked_by_teacher_id"`
}

// Record is one line of a submission. Status is kept as received and parsed case-insensitively.
type Record struct {
	StudentID int    `json:"student_id" validate:"required,gt=0"`
	Status    string `json:"status" validate:"required"`
}

// Submission is the batch of attendance marks of one session (course, date).
type Submission struct {
	CourseID  int       `json:"course_id"`
	Date      time.Time `json:"date"`
	TeacherID int       `json:"teacher_id"`
	Records   []Record  `json:"records"`
}

// SubmissionRequest is the HTTP payload of a submission; the course comes from the path.
type SubmissionRequest struct {
	Date      string   `json:"date" validate:"required,dateonly"`
	TeacherID int      `json:"teacher_id" validate:"omitempty,gt=0"`
	Records   []Record `json:"records" validate:"required,min=1,dive"`
}

func (sr *SubmissionRequest) Validate(validate *validator.Validate) error {
	sr.Date = core.CleanString(sr.Date)
	for i := range sr.Records {
		sr.Records[i].Status = core.CleanString(sr.Records[i].Status)
	}
	return validate.Struct(sr)
}

// Submission builds the Submission of course courseID. Admins must name the teacher; teachers submit as themselves.
func (sr SubmissionRequest) Submission(courseID, actingTeacherID int) (Submission, error) {
	date, err := core.ParseDate(sr.Date)
	if err != nil {
		return Submission{}, err
	}
	teacherID := sr.TeacherID
	if teacherID == 0 {
		teacherID = actingTeacherID
	}
	return Submission{CourseID: courseID, Date: date, TeacherID: teacherID, Records: sr.Records}, nil
}

type (
	// Finder is the read access other packages need on attendances.
	Finder interface {
		// CountCourseAttendancesOn counts the attendance rows of any enrollment of the course on date.
		CountCourseAttendancesOn(ctx context.Context, courseID int, date time.Time) (int, error)
	}

	// Store is the transaction-scoped storage used by the Manager.
	Store interface {
		course.Getter
		enrollment.Finder
		Finder
		// CreateAttendances inserts all rows as one batch.
		// It fails with a core.KindConflict error when an (enrollment, date) pair already exists.
		CreateAttendances(ctx context.Context, atts []Attendance) ([]Attendance, error)
	}
)

// InitValidators registers the attendance validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	_, ok := ParseStatus(fl.Field().String())
	return ok
}
