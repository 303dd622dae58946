package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/user"
)

// Filter narrows attendance and enrollment records. Unset fields impose nothing; the date range is inclusive.
type Filter struct {
	CourseID  null.Int
	StudentID null.Int
	TeacherID null.Int
	StartDate null.Time
	EndDate   null.Time
}

// MatchDate reports whether date falls in the inclusive range of the filter.
func (f Filter) MatchDate(date time.Time) bool {
	if f.StartDate.Valid && date.Before(core.TruncateDate(f.StartDate.Time)) {
		return false
	}
	if f.EndDate.Valid && date.After(core.TruncateDate(f.EndDate.Time)) {
		return false
	}
	return true
}

// FilterRequest is the query string form of Filter.
type FilterRequest struct {
	CourseID  int    `query:"course_id" validate:"omitempty,gt=0"`
	StudentID int    `query:"student_id" validate:"omitempty,gt=0"`
	StartDate string `query:"start_date" validate:"omitempty,dateonly"`
	EndDate   string `query:"end_date" validate:"omitempty,dateonly"`
}

// Filter converts the request; it must have been validated.
func (fr FilterRequest) Filter() Filter {
	var f Filter
	if fr.CourseID > 0 {
		f.CourseID = null.IntFrom(fr.CourseID)
	}
	if fr.StudentID > 0 {
		f.StudentID = null.IntFrom(fr.StudentID)
	}
	if d, err := core.ParseDate(fr.StartDate); err == nil {
		f.StartDate = null.TimeFrom(d)
	}
	if d, err := core.ParseDate(fr.EndDate); err == nil {
		f.EndDate = null.TimeFrom(d)
	}
	return f
}

// HistoryFilter narrows a student's attendance history.
type HistoryFilter struct {
	CourseID int    `query:"course_id" validate:"omitempty,gt=0"`
	Status   string `query:"status" validate:"omitempty,attstatus"`
}

// AttendanceRecord is an attendance row joined with its enrollment, student and course.
type AttendanceRecord struct {
	AttendanceID int
	EnrollmentID int
	StudentID    int
	StudentName  string
	CourseID     int
	CourseCode   string
	CourseName   string
	TeacherID    int
	Date         time.Time
	Status       attendance.Status
}

// EnrollmentRecord is an enrollment row joined with its student, course and teacher.
type EnrollmentRecord struct {
	EnrollmentID int       `json:"enrollment_id"`
	StudentID    int       `json:"student_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	CourseID     int       `json:"course_id"`
	CourseCode   string    `json:"course_code"`
	CourseName   string    `json:"course_name"`
	TeacherID    int       `json:"teacher_id"`
	TeacherName  string    `json:"teacher_name"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

// Store is the read-only storage of the reporting layer.
type Store interface {
	user.Getter
	course.Getter
	QueryUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error)
	QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error)
	// ListAttendanceRecords returns matching records, most recent date first.
	ListAttendanceRecords(ctx context.Context, filter Filter) ([]AttendanceRecord, error)
	// ListEnrollmentRecords ignores the date range of filter and returns the most recent enrollments first.
	ListEnrollmentRecords(ctx context.Context, filter Filter) ([]EnrollmentRecord, error)
}

// Counts tallies attendance statuses.
type Counts struct {
	TotalClasses int `json:"total_classes"`
	PresentCount int `json:"present_count"`
	AbsentCount  int `json:"absent_count"`
	LateCount    int `json:"late_count"`
}

func (c *Counts) Add(status attendance.Status) {
	c.TotalClasses++
	switch status {
	case attendance.StatusPresent:
		c.PresentCount++
	case attendance.StatusAbsent:
		c.AbsentCount++
	case attendance.StatusLate:
		c.LateCount++
	}
}

func (c *Counts) Merge(other Counts) {
	c.TotalClasses += other.TotalClasses
	c.PresentCount += other.PresentCount
	c.AbsentCount += other.AbsentCount
	c.LateCount += other.LateCount
}

func (c Counts) Percentage() decimal.Decimal {
	return attendance.Percentage(c.PresentCount, c.LateCount, c.TotalClasses)
}

// Row is one (student, course) group of the attendance report.
type Row struct {
	StudentID            int             `json:"student_id"`
	StudentName          string          `json:"student_name"`
	CourseID             int             `json:"course_id"`
	CourseCode           string          `json:"course_code"`
	CourseName           string          `json:"course_name"`
	AttendancePercentage decimal.Decimal `json:"attendance_percentage"`
	Counts
}

type (
	StudentCourse struct {
		CourseID             int             `json:"course_id"`
		CourseCode           string          `json:"course_code"`
		CourseName           string          `json:"course_name"`
		TeacherName          string          `json:"teacher_name"`
		EnrolledAt           time.Time       `json:"enrolled_at"`
		AttendancePercentage decimal.Decimal `json:"attendance_percentage"`
		Band                 attendance.Band `json:"band"`
		Counts
	}

	HistoryEntry struct {
		Date       time.Time         `json:"date"`
		CourseID   int               `json:"course_id"`
		CourseCode string            `json:"course_code"`
		CourseName string            `json:"course_name"`
		Status     attendance.Status `json:"status"`
	}

	StudentDashboard struct {
		StudentID         int             `json:"student_id"`
		StudentName       string          `json:"student_name"`
		TotalCourses      int             `json:"total_courses"`
		OverallPercentage decimal.Decimal `json:"overall_percentage"`
		Band              attendance.Band `json:"band"`
		RecentCourses     []StudentCourse `json:"recent_courses"`
		RecentAttendance  []HistoryEntry  `json:"recent_attendance"`
		Counts
	}

	AvailableCourse struct {
		CourseID      int    `json:"course_id"`
		CourseCode    string `json:"course_code"`
		CourseName    string `json:"course_name"`
		Description   string `json:"description"`
		TeacherName   string `json:"teacher_name"`
		EnrolledCount int    `json:"enrolled_count"`
	}
)

type (
	TeacherCourse struct {
		CourseID      int    `json:"course_id"`
		CourseCode    string `json:"course_code"`
		CourseName    string `json:"course_name"`
		EnrolledCount int    `json:"enrolled_count"`
	}

	EnrolledStudent struct {
		StudentID            int             `json:"student_id"`
		StudentName          string          `json:"student_name"`
		StudentEmail         string          `json:"student_email"`
		EnrolledAt           time.Time       `json:"enrolled_at"`
		AttendancePercentage decimal.Decimal `json:"attendance_percentage"`
		Band                 attendance.Band `json:"band"`
		Counts
	}

	CourseStats struct {
		CourseID       int             `json:"course_id"`
		CourseCode     string          `json:"course_code"`
		CourseName     string          `json:"course_name"`
		EnrolledCount  int             `json:"enrolled_count"`
		Sessions       int             `json:"sessions"`
		AttendanceRate decimal.Decimal `json:"attendance_rate"`
		Counts
	}

	SessionSummary struct {
		CourseID     int       `json:"course_id"`
		CourseCode   string    `json:"course_code"`
		CourseName   string    `json:"course_name"`
		Date         time.Time `json:"date"`
		PresentCount int       `json:"present_count"`
		AbsentCount  int       `json:"absent_count"`
		LateCount    int       `json:"late_count"`
	}

	TeacherStats struct {
		TeacherID             int              `json:"teacher_id"`
		TotalCourses          int              `json:"total_courses"`
		TotalStudents         int              `json:"total_students"`
		TotalSessions         int              `json:"total_sessions"`
		OverallAttendanceRate decimal.Decimal  `json:"overall_attendance_rate"`
		Courses               []CourseStats    `json:"courses"`
		RecentSessions        []SessionSummary `json:"recent_sessions"`
	}
)

// StudentCount is the number of students enrolled in the course.
func (cs CourseStats) StudentCount() int { return cs.EnrolledCount }

// AverageAttendance is the overall attendance rate across the teacher's courses.
func (ts TeacherStats) AverageAttendance() decimal.Decimal { return ts.OverallAttendanceRate }

type (
	AdminDashboard struct {
		TotalCourses      int                `json:"total_courses"`
		TotalTeachers     int                `json:"total_teachers"`
		TotalStudents     int                `json:"total_students"`
		TotalEnrollments  int                `json:"total_enrollments"`
		RecentEnrollments []EnrollmentRecord `json:"recent_enrollments"`
	}

	CourseEnrollment struct {
		CourseID          int             `json:"course_id"`
		CourseCode        string          `json:"course_code"`
		CourseName        string          `json:"course_name"`
		TeacherName       string          `json:"teacher_name"`
		EnrolledCount     int             `json:"enrolled_count"`
		AverageAttendance decimal.Decimal `json:"average_attendance"`
	}

	CourseEnrollmentReport struct {
		Courses                    []CourseEnrollment `json:"courses"`
		TotalCourses               int                `json:"total_courses"`
		TotalEnrollments           int                `json:"total_enrollments"`
		AverageEnrollmentPerCourse decimal.Decimal    `json:"average_enrollment_per_course"`
	}

	// StudentPerformance is the attendance of one enrollment.
	StudentPerformance struct {
		StudentID            int             `json:"student_id"`
		StudentName          string          `json:"student_name"`
		CourseID             int             `json:"course_id"`
		CourseCode           string          `json:"course_code"`
		CourseName           string          `json:"course_name"`
		AttendancePercentage decimal.Decimal `json:"attendance_percentage"`
		Counts
	}

	StudentPerformanceReport struct {
		Students                 []StudentPerformance `json:"students"`
		TotalStudents            int                  `json:"total_students"`
		OverallAverageAttendance decimal.Decimal      `json:"overall_average_attendance"`
	}

	// StudentOverall is the attendance of a student summed across all their courses.
	StudentOverall struct {
		StudentID         int
		StudentName       string
		StudentEmail      string
		EnrolledCourses   int
		OverallPercentage decimal.Decimal
		Band              attendance.Band
		Counts
	}

	// StudentAlert lists the courses of a student whose overall attendance fell below a band.
	StudentAlert struct {
		StudentID   int
		StudentName string
		Email       string
		Overall     decimal.Decimal
		Band        attendance.Band
		Courses     []StudentCourse
	}
)

// StudentCount is the number of students enrolled in the course.
func (ce CourseEnrollment) StudentCount() int { return ce.EnrolledCount }
