package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/user"
)

const (
	recentStudentCourses   = 3
	recentStudentRecords   = 10
	recentTeacherSessions  = 10
	recentAdminEnrollments = 5
)

// Service derives read-only summaries. Every percentage goes through attendance.Percentage.
// Dashboards are cached for ttl and may be slightly stale.
type Service struct {
	db    core.Transactor[Store]
	cache core.Cache
	ttl   time.Duration
}

func NewService(db core.Transactor[Store], cache core.Cache, ttl time.Duration) *Service {
	return &Service{db: db, cache: cache, ttl: ttl}
}

func (svc *Service) cached(ctx context.Context, key string, dst interface{}, load func() error) error {
	if svc.cache == nil || svc.ttl <= 0 {
		return load()
	}
	if found, err := svc.cache.Get(ctx, key, dst); err == nil && found {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	// a cache failure only costs a recomputation
	_ = svc.cache.Set(ctx, key, dst, svc.ttl)
	return nil
}

func canViewStudent(actor user.Actor, studentID int) error {
	if actor.IsAdmin() || (actor.IsStudent() && actor.Is(studentID)) {
		return nil
	}
	return core.Unauthorized("user %d cannot view student %d", actor.ID, studentID)
}

func canViewTeacher(actor user.Actor, teacherID int) error {
	if actor.IsAdmin() || (actor.IsTeacher() && actor.Is(teacherID)) {
		return nil
	}
	return core.Unauthorized("user %d cannot view teacher %d", actor.ID, teacherID)
}

func requireAdmin(actor user.Actor) error {
	if !actor.IsAdmin() {
		return core.Unauthorized("only admins can view this report")
	}
	return nil
}

func getStudent(ctx context.Context, store Store, id int) (user.User, error) {
	usr, err := user.Get(ctx, store, id)
	if err != nil {
		return user.User{}, err
	}
	if !usr.IsStudent() {
		return user.User{}, core.NotFound("student %d not found", id)
	}
	return usr, nil
}

func getTeacher(ctx context.Context, store Store, id int) (user.User, error) {
	usr, err := user.Get(ctx, store, id)
	if err != nil {
		return user.User{}, err
	}
	if !usr.IsTeacher() {
		return user.User{}, core.NotFound("teacher %d not found", id)
	}
	return usr, nil
}

// GetAttendanceReport groups the matching attendance records by (student, course),
// ordered by course name then student name.
func (svc *Service) GetAttendanceReport(ctx context.Context, filter Filter) (rows []Row, err error) {
	err = svc.db.WithinTx(ctx, func(store Store) error {
		recs, err := store.ListAttendanceRecords(ctx, filter)
		if err != nil {
			return errors.Wrap(err, "listing attendance records")
		}
		rows = groupRows(recs)
		return nil
	})
	return rows, err
}

func groupRows(recs []AttendanceRecord) []Row {
	type key struct{ studentID, courseID int }
	groups := make(map[key]*Row)
	for _, rec := range recs {
		k := key{rec.StudentID, rec.CourseID}
		row, ok := groups[k]
		if !ok {
			row = &Row{
				StudentID:   rec.StudentID,
				StudentName: rec.StudentName,
				CourseID:    rec.CourseID,
				CourseCode:  rec.CourseCode,
				CourseName:  rec.CourseName,
			}
			groups[k] = row
		}
		row.Add(rec.Status)
	}

	rows := make([]Row, 0, len(groups))
	for _, row := range groups {
		row.AttendancePercentage = row.Percentage()
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CourseName != rows[j].CourseName {
			return rows[i].CourseName < rows[j].CourseName
		}
		if rows[i].StudentName != rows[j].StudentName {
			return rows[i].StudentName < rows[j].StudentName
		}
		return rows[i].StudentID < rows[j].StudentID
	})
	return rows
}

// countsByCourse tallies records per course id.
func countsByCourse(recs []AttendanceRecord) map[int]*Counts {
	counts := make(map[int]*Counts)
	for _, rec := range recs {
		c, ok := counts[rec.CourseID]
		if !ok {
			c = new(Counts)
			counts[rec.CourseID] = c
		}
		c.Add(rec.Status)
	}
	return counts
}

func studentCourses(ctx context.Context, store Store, studentID int) ([]StudentCourse, []AttendanceRecord, error) {
	filter := Filter{StudentID: null.IntFrom(studentID)}
	enrs, err := store.ListEnrollmentRecords(ctx, filter)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing enrollment records")
	}
	recs, err := store.ListAttendanceRecords(ctx, filter)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing attendance records")
	}

	counts := countsByCourse(recs)
	courses := make([]StudentCourse, 0, len(enrs))
	for _, enr := range enrs {
		sc := StudentCourse{
			CourseID:    enr.CourseID,
			CourseCode:  enr.CourseCode,
			CourseName:  enr.CourseName,
			TeacherName: enr.TeacherName,
			EnrolledAt:  enr.EnrolledAt,
		}
		if c, ok := counts[enr.CourseID]; ok {
			sc.Counts = *c
		}
		sc.AttendancePercentage = sc.Percentage()
		sc.Band = attendance.BandOf(sc.AttendancePercentage)
		courses = append(courses, sc)
	}
	return courses, recs, nil
}

func historyEntry(rec AttendanceRecord) HistoryEntry {
	return HistoryEntry{
		Date:       rec.Date,
		CourseID:   rec.CourseID,
		CourseCode: rec.CourseCode,
		CourseName: rec.CourseName,
		Status:     rec.Status,
	}
}

// StudentDashboard summarises a student's attendance with their 3 most recent courses and 10 most recent records.
func (svc *Service) StudentDashboard(ctx context.Context, actor user.Actor, studentID int) (StudentDashboard, error) {
	if err := canViewStudent(actor, studentID); err != nil {
		return StudentDashboard{}, err
	}

	var dash StudentDashboard
	err := svc.cached(ctx, fmt.Sprintf("dashboard:student:%d", studentID), &dash, func() error {
		return svc.db.WithinTx(ctx, func(store Store) error {
			student, err := getStudent(ctx, store, studentID)
			if err != nil {
				return err
			}
			courses, recs, err := studentCourses(ctx, store, studentID)
			if err != nil {
				return err
			}

			dash = StudentDashboard{
				StudentID:        student.ID,
				StudentName:      student.Name,
				TotalCourses:     len(courses),
				RecentCourses:    make([]StudentCourse, 0, recentStudentCourses),
				RecentAttendance: make([]HistoryEntry, 0, recentStudentRecords),
			}
			for _, rec := range recs {
				dash.Add(rec.Status)
			}
			dash.OverallPercentage = dash.Percentage()
			dash.Band = attendance.BandOf(dash.OverallPercentage)

			// enrollment records come most recent first
			for i := 0; i < len(courses) && i < recentStudentCourses; i++ {
				dash.RecentCourses = append(dash.RecentCourses, courses[i])
			}
			for i := 0; i < len(recs) && i < recentStudentRecords; i++ {
				dash.RecentAttendance = append(dash.RecentAttendance, historyEntry(recs[i]))
			}
			return nil
		})
	})
	return dash, err
}

// StudentCourses lists the courses a student is enrolled in, with their per-course percentage.
func (svc *Service) StudentCourses(ctx context.Context, actor user.Actor, studentID int) (courses []StudentCourse, err error) {
	if err = canViewStudent(actor, studentID); err != nil {
		return nil, err
	}
	err = svc.db.WithinTx(ctx, func(store Store) error {
		if _, err := getStudent(ctx, store, studentID); err != nil {
			return err
		}
		courses, _, err = studentCourses(ctx, store, studentID)
		return err
	})
	return courses, err
}

// AvailableCourses lists the courses a student is not enrolled in yet, with their current enrollment counts.
func (svc *Service) AvailableCourses(ctx context.Context, actor user.Actor, studentID int) (courses []AvailableCourse, err error) {
	if err = canViewStudent(actor, studentID); err != nil {
		return nil, err
	}
	err = svc.db.WithinTx(ctx, func(store Store) error {
		if _, err := getStudent(ctx, store, studentID); err != nil {
			return err
		}
		all, err := store.QueryCourses(ctx, course.QueryFilter{})
		if err != nil {
			return errors.Wrap(err, "querying courses")
		}
		enrs, err := store.ListEnrollmentRecords(ctx, Filter{})
		if err != nil {
			return errors.Wrap(err, "listing enrollment records")
		}

		enrolledCounts := make(map[int]int)
		enrolled := make(map[int]bool)
		for _, enr := range enrs {
			enrolledCounts[enr.CourseID]++
			if enr.StudentID == studentID {
				enrolled[enr.CourseID] = true
			}
		}
		teacherNames, err := userNames(ctx, store, user.RoleTeacher)
		if err != nil {
			return err
		}

		courses = make([]AvailableCourse, 0, len(all))
		for _, crs := range all {
			if enrolled[crs.ID] {
				continue
			}
			courses = append(courses, AvailableCourse{
				CourseID:      crs.ID,
				CourseCode:    crs.Code,
				CourseName:    crs.Name,
				Description:   crs.Description,
				TeacherName:   teacherNames[crs.TeacherID],
				EnrolledCount: enrolledCounts[crs.ID],
			})
		}
		return nil
	})
	return courses, err
}

// AttendanceHistory returns a student's attendance records, most recent first.
func (svc *Service) AttendanceHistory(ctx context.Context, actor user.Actor, studentID int, hf HistoryFilter) (entries []HistoryEntry, err error) {
	if err = canViewStudent(actor, studentID); err != nil {
		return nil, err
	}
	status, filterStatus := attendance.ParseStatus(hf.Status)

	err = svc.db.WithinTx(ctx, func(store Store) error {
		if _, err := getStudent(ctx, store, studentID); err != nil {
			return err
		}
		filter := Filter{StudentID: null.IntFrom(studentID)}
		if hf.CourseID > 0 {
			filter.CourseID = null.IntFrom(hf.CourseID)
		}
		recs, err := store.ListAttendanceRecords(ctx, filter)
		if err != nil {
			return errors.Wrap(err, "listing attendance records")
		}

		entries = make([]HistoryEntry, 0, len(recs))
		for _, rec := range recs {
			if filterStatus && rec.Status != status {
				continue
			}
			entries = append(entries, historyEntry(rec))
		}
		return nil
	})
	return entries, err
}

// OverallPercentage is the attendance percentage of a student across all courses.
func (svc *Service) OverallPercentage(ctx context.Context, actor user.Actor, studentID int) (pct decimal.Decimal, err error) {
	if err = canViewStudent(actor, studentID); err != nil {
		return decimal.Zero, err
	}
	err = svc.db.WithinTx(ctx, func(store Store) error {
		if _, err := getStudent(ctx, store, studentID); err != nil {
			return err
		}
		recs, err := store.ListAttendanceRecords(ctx, Filter{StudentID: null.IntFrom(studentID)})
		if err != nil {
			return errors.Wrap(err, "listing attendance records")
		}
		var counts Counts
		for _, rec := range recs {
			counts.Add(rec.Status)
		}
		pct = counts.Percentage()
		return nil
	})
	return pct, err
}

// TeacherCourses lists the courses of a teacher with their enrollment counts, ordered by code.
func (svc *Service) TeacherCourses(ctx context.Context, actor user.Actor, teacherID int) (courses []TeacherCourse, err error) {
	if err = canViewTeacher(actor, teacherID); err != nil {
		return nil, err
	}
	err = svc.db.WithinTx(ctx, func(store Store) error {
		if _, err := getTeacher(ctx, store, teacherID); err != nil {
			return err
		}
		all, err := store.QueryCourses(ctx, course.QueryFilter{TeacherID: null.IntFrom(teacherID)})
		if err != nil {
			return errors.Wrap(err, "querying courses")
		}
		enrs, err := store.ListEnrollmentRecords(ctx, Filter{TeacherID: null.IntFrom(teacherID)})
		if err != nil {
			return errors.Wrap(err, "listing enrollment records")
		}
		enrolledCounts := make(map[int]int)
		for _, enr := range enrs {
			enrolledCounts[enr.CourseID]++
		}

		courses = make([]TeacherCourse, 0, len(all))
		for _, crs := range all {
			courses = append(courses, TeacherCourse{
				CourseID:      crs.ID,
				CourseCode:    crs.Code,
				CourseName:    crs.Name,
				EnrolledCount: enrolledCounts[crs.ID],
			})
		}
		return nil
	})
	return courses, err
}

// EnrolledStudents lists the students of a course with their attendance percentage, ordered by name.
// Teachers may only list the students of their own courses.
func (svc *Service) EnrolledStudents(ctx context.Context, actor user.Actor, courseID int) (students []EnrolledStudent, err error) {
	if !(actor.IsAdmin() || actor.IsTeacher()) {
		return nil, core.Unauthorized("user %d cannot view the students of course %d", actor.ID, courseID)
	}
	err = svc.db.WithinTx(ctx, func(store Store) error {
		crs, err := course.Get(ctx, store, courseID)
		if err != nil {
			return err
		}
		if actor.IsTeacher() && !actor.Is(crs.TeacherID) {
			return core.Unauthorized("course %d is not owned by teacher %d", courseID, actor.ID)
		}

		filter := Filter{CourseID: null.IntFrom(courseID)}
		enrs, err := store.ListEnrollmentRecords(ctx, filter)
		if err != nil {
			return errors.Wrap(err, "listing enrollment records")
		}
		recs, err := store.ListAttendanceRecords(ctx, filter)
		if err != nil {
			return errors.Wrap(err, "listing attendance records")
		}
		counts := make(map[int]*Counts)
		for _, rec := range recs {
			c, ok := counts[rec.StudentID]
			if !ok {
				c = new(Counts)
				counts[rec.StudentID] = c
			}
			c.Add(rec.Status)
		}

		students = make([]EnrolledStudent, 0, len(enrs))
		for _, enr := range enrs {
			es := EnrolledStudent{
				StudentID:    enr.StudentID,
				StudentName:  enr.StudentName,
				StudentEmail: enr.StudentEmail,
				EnrolledAt:   enr.EnrolledAt,
			}
			if c, ok := counts[enr.StudentID]; ok {
				es.Counts = *c
			}
			es.AttendancePercentage = es.Percentage()
			es.Band = attendance.BandOf(es.AttendancePercentage)
			students = append(students, es)
		}
		sort.SliceStable(students, func(i, j int) bool { return students[i].StudentName < students[j].StudentName })
		return nil
	})
	return students, err
}

// TeacherStats summarises the attendance of a teacher's courses with their 10 most recent sessions.
func (svc *Service) TeacherStats(ctx context.Context, actor user.Actor, teacherID int) (TeacherStats, error) {
	if err := canViewTeacher(actor, teacherID); err != nil {
		return TeacherStats{}, err
	}

	var stats TeacherStats
	err := svc.cached(ctx, fmt.Sprintf("dashboard:teacher:%d", teacherID), &stats, func() error {
		return svc.db.WithinTx(ctx, func(store Store) error {
			if _, err := getTeacher(ctx, store, teacherID); err != nil {
				return err
			}
			courses, err := store.QueryCourses(ctx, course.QueryFilter{TeacherID: null.IntFrom(teacherID)})
			if err != nil {
				return errors.Wrap(err, "querying courses")
			}
			filter := Filter{TeacherID: null.IntFrom(teacherID)}
			enrs, err := store.ListEnrollmentRecords(ctx, filter)
			if err != nil {
				return errors.Wrap(err, "listing enrollment records")
			}
			recs, err := store.ListAttendanceRecords(ctx, filter)
			if err != nil {
				return errors.Wrap(err, "listing attendance records")
			}
			stats = buildTeacherStats(teacherID, courses, enrs, recs)
			return nil
		})
	})
	return stats, err
}

func buildTeacherStats(teacherID int, courses []course.Course, enrs []EnrollmentRecord, recs []AttendanceRecord) TeacherStats {
	type sessionKey struct {
		courseID int
		date     time.Time
	}

	enrolledCounts := make(map[int]int)
	students := make(map[int]bool)
	for _, enr := range enrs {
		enrolledCounts[enr.CourseID]++
		students[enr.StudentID] = true
	}

	counts := countsByCourse(recs)
	sessions := make(map[sessionKey]*SessionSummary)
	sessionOrder := make([]sessionKey, 0)
	sessionsPerCourse := make(map[int]int)
	for _, rec := range recs { // most recent first
		k := sessionKey{rec.CourseID, rec.Date}
		ss, ok := sessions[k]
		if !ok {
			ss = &SessionSummary{CourseID: rec.CourseID, CourseCode: rec.CourseCode, CourseName: rec.CourseName, Date: rec.Date}
			sessions[k] = ss
			sessionOrder = append(sessionOrder, k)
			sessionsPerCourse[rec.CourseID]++
		}
		switch rec.Status {
		case attendance.StatusPresent:
			ss.PresentCount++
		case attendance.StatusAbsent:
			ss.AbsentCount++
		case attendance.StatusLate:
			ss.LateCount++
		}
	}

	stats := TeacherStats{
		TeacherID:      teacherID,
		TotalCourses:   len(courses),
		TotalStudents:  len(students),
		TotalSessions:  len(sessionOrder),
		Courses:        make([]CourseStats, 0, len(courses)),
		RecentSessions: make([]SessionSummary, 0, recentTeacherSessions),
	}
	var overall Counts
	for _, crs := range courses {
		cs := CourseStats{
			CourseID:      crs.ID,
			CourseCode:    crs.Code,
			CourseName:    crs.Name,
			EnrolledCount: enrolledCounts[crs.ID],
			Sessions:      sessionsPerCourse[crs.ID],
		}
		if c, ok := counts[crs.ID]; ok {
			cs.Counts = *c
		}
		cs.AttendanceRate = cs.Percentage()
		overall.Merge(cs.Counts)
		stats.Courses = append(stats.Courses, cs)
	}
	stats.OverallAttendanceRate = overall.Percentage()

	sort.SliceStable(sessionOrder, func(i, j int) bool {
		if !sessionOrder[i].date.Equal(sessionOrder[j].date) {
			return sessionOrder[i].date.After(sessionOrder[j].date)
		}
		return sessionOrder[i].courseID < sessionOrder[j].courseID
	})
	for i := 0; i < len(sessionOrder) && i < recentTeacherSessions; i++ {
		stats.RecentSessions = append(stats.RecentSessions, *sessions[sessionOrder[i]])
	}
	return stats
}

// AdminDashboard counts courses, teachers, students and enrollments and lists the 5 most recent enrollments.
func (svc *Service) AdminDashboard(ctx context.Context, actor user.Actor) (AdminDashboard, error) {
	if err := requireAdmin(actor); err != nil {
		return AdminDashboard{}, err
	}

	var dash AdminDashboard
	err := svc.cached(ctx, "dashboard:admin", &dash, func() error {
		return svc.db.WithinTx(ctx, func(store Store) error {
			courses, err := store.QueryCourses(ctx, course.QueryFilter{})
			if err != nil {
				return errors.Wrap(err, "querying courses")
			}
			users, err := store.QueryUsers(ctx, user.QueryFilter{Roles: []user.Role{user.RoleTeacher, user.RoleStudent}})
			if err != nil {
				return errors.Wrap(err, "querying users")
			}
			enrs, err := store.ListEnrollmentRecords(ctx, Filter{})
			if err != nil {
				return errors.Wrap(err, "listing enrollment records")
			}

			dash = AdminDashboard{
				TotalCourses:      len(courses),
				TotalEnrollments:  len(enrs),
				RecentEnrollments: make([]EnrollmentRecord, 0, recentAdminEnrollments),
			}
			for _, usr := range users {
				if usr.IsTeacher() {
					dash.TotalTeachers++
				} else if usr.IsStudent() {
					dash.TotalStudents++
				}
			}
			for i := 0; i < len(enrs) && i < recentAdminEnrollments; i++ {
				dash.RecentEnrollments = append(dash.RecentEnrollments, enrs[i])
			}
			return nil
		})
	})
	return dash, err
}

// CourseEnrollmentReport lists every course with its enrollment count and the average attendance of
// its enrollments that have records.
func (svc *Service) CourseEnrollmentReport(ctx context.Context, actor user.Actor) (rpt CourseEnrollmentReport, err error) {
	if err = requireAdmin(actor); err != nil {
		return rpt, err
	}
	err = svc.db.WithinTx(ctx, func(store Store) error {
		courses, err := store.QueryCourses(ctx, course.QueryFilter{})
		if err != nil {
			return errors.Wrap(err, "querying courses")
		}
		enrs, err := store.ListEnrollmentRecords(ctx, Filter{})
		if err != nil {
			return errors.Wrap(err, "listing enrollment records")
		}
		recs, err := store.ListAttendanceRecords(ctx, Filter{})
		if err != nil {
			return errors.Wrap(err, "listing attendance records")
		}
		teacherNames, err := userNames(ctx, store, user.RoleTeacher)
		if err != nil {
			return err
		}

		counts := countsByEnrollment(recs)
		pctSums := make(map[int]decimal.Decimal)
		attended := make(map[int]int)
		enrolled := make(map[int]int)
		for _, enr := range enrs {
			enrolled[enr.CourseID]++
			c, ok := counts[enr.EnrollmentID]
			if !ok {
				continue
			}
			pctSums[enr.CourseID] = pctSums[enr.CourseID].Add(c.Percentage())
			attended[enr.CourseID]++
		}

		rpt.Courses = make([]CourseEnrollment, 0, len(courses))
		for _, crs := range courses {
			row := CourseEnrollment{
				CourseID:          crs.ID,
				CourseCode:        crs.Code,
				CourseName:        crs.Name,
				TeacherName:       teacherNames[crs.TeacherID],
				EnrolledCount:     enrolled[crs.ID],
				AverageAttendance: decimal.Zero,
			}
			if n := attended[crs.ID]; n > 0 {
				row.AverageAttendance = pctSums[crs.ID].Div(decimal.NewFromInt(int64(n))).Round(2)
			}
			rpt.Courses = append(rpt.Courses, row)
			rpt.TotalEnrollments += row.EnrolledCount
		}
		rpt.TotalCourses = len(rpt.Courses)
		rpt.AverageEnrollmentPerCourse = decimal.Zero
		if rpt.TotalCourses > 0 {
			rpt.AverageEnrollmentPerCourse = decimal.NewFromInt(int64(rpt.TotalEnrollments)).
				Div(decimal.NewFromInt(int64(rpt.TotalCourses))).Round(2)
		}
		return nil
	})
	return rpt, err
}

// StudentPerformanceReport lists the attendance of every matching enrollment, ordered by student name
// then course name. Only the student, course and date range of filter apply.
func (svc *Service) StudentPerformanceReport(ctx context.Context, actor user.Actor, filter Filter) (rpt StudentPerformanceReport, err error) {
	if err = requireAdmin(actor); err != nil {
		return rpt, err
	}
	filter.TeacherID = null.Int{}
	err = svc.db.WithinTx(ctx, func(store Store) error {
		enrs, err := store.ListEnrollmentRecords(ctx, filter)
		if err != nil {
			return errors.Wrap(err, "listing enrollment records")
		}
		recs, err := store.ListAttendanceRecords(ctx, filter)
		if err != nil {
			return errors.Wrap(err, "listing attendance records")
		}

		counts := countsByEnrollment(recs)
		students := make(map[int]struct{})
		sum := decimal.Zero
		rpt.Students = make([]StudentPerformance, 0, len(enrs))
		for _, enr := range enrs {
			sp := StudentPerformance{
				StudentID:   enr.StudentID,
				StudentName: enr.StudentName,
				CourseID:    enr.CourseID,
				CourseCode:  enr.CourseCode,
				CourseName:  enr.CourseName,
			}
			if c, ok := counts[enr.EnrollmentID]; ok {
				sp.Counts = *c
			}
			sp.AttendancePercentage = sp.Percentage()
			sum = sum.Add(sp.AttendancePercentage)
			students[enr.StudentID] = struct{}{}
			rpt.Students = append(rpt.Students, sp)
		}
		sort.SliceStable(rpt.Students, func(i, j int) bool {
			a, b := rpt.Students[i], rpt.Students[j]
			if a.StudentName != b.StudentName {
				return a.StudentName < b.StudentName
			}
			return a.CourseName < b.CourseName
		})

		rpt.TotalStudents = len(students)
		rpt.OverallAverageAttendance = decimal.Zero
		if n := len(rpt.Students); n > 0 {
			rpt.OverallAverageAttendance = sum.Div(decimal.NewFromInt(int64(n))).Round(2)
		}
		return nil
	})
	return rpt, err
}

// countsByEnrollment tallies records per enrollment id.
func countsByEnrollment(recs []AttendanceRecord) map[int]*Counts {
	counts := make(map[int]*Counts)
	for _, rec := range recs {
		c, ok := counts[rec.EnrollmentID]
		if !ok {
			c = new(Counts)
			counts[rec.EnrollmentID] = c
		}
		c.Add(rec.Status)
	}
	return counts
}

// studentOveralls sums the attendance of every student across all their courses.
func studentOveralls(ctx context.Context, store Store) ([]StudentOverall, error) {
	students, err := store.QueryUsers(ctx, user.QueryFilter{Roles: []user.Role{user.RoleStudent}})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	enrs, err := store.ListEnrollmentRecords(ctx, Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollment records")
	}
	recs, err := store.ListAttendanceRecords(ctx, Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "listing attendance records")
	}

	enrolled := make(map[int]int)
	for _, enr := range enrs {
		enrolled[enr.StudentID]++
	}
	counts := make(map[int]*Counts)
	for _, rec := range recs {
		c, ok := counts[rec.StudentID]
		if !ok {
			c = new(Counts)
			counts[rec.StudentID] = c
		}
		c.Add(rec.Status)
	}

	rows := make([]StudentOverall, 0, len(students))
	for _, st := range students {
		so := StudentOverall{
			StudentID:       st.ID,
			StudentName:     st.Name,
			StudentEmail:    st.Email,
			EnrolledCourses: enrolled[st.ID],
		}
		if c, ok := counts[st.ID]; ok {
			so.Counts = *c
		}
		so.OverallPercentage = so.Percentage()
		so.Band = attendance.BandOf(so.OverallPercentage)
		rows = append(rows, so)
	}
	return rows, nil
}

// LowAttendanceStudents lists the students with recorded attendance whose overall band is below threshold.
func (svc *Service) LowAttendanceStudents(ctx context.Context, threshold attendance.Band) (alerts []StudentAlert, err error) {
	err = svc.db.WithinTx(ctx, func(store Store) error {
		perfs, err := studentOveralls(ctx, store)
		if err != nil {
			return err
		}
		for _, sp := range perfs {
			if sp.TotalClasses == 0 || !sp.Band.Below(threshold) {
				continue
			}
			usr, err := store.GetUserByID(ctx, sp.StudentID)
			if err != nil {
				return errors.Wrap(err, "getting student")
			}
			courses, _, err := studentCourses(ctx, store, sp.StudentID)
			if err != nil {
				return err
			}
			alerts = append(alerts, StudentAlert{
				StudentID:   sp.StudentID,
				StudentName: sp.StudentName,
				Email:       usr.Email,
				Overall:     sp.OverallPercentage,
				Band:        sp.Band,
				Courses:     courses,
			})
		}
		return nil
	})
	return alerts, err
}

func userNames(ctx context.Context, store Store, role user.Role) (map[int]string, error) {
	users, err := store.QueryUsers(ctx, user.QueryFilter{Roles: []user.Role{role}})
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	names := make(map[int]string, len(users))
	for _, usr := range users {
		names[usr.ID] = usr.Name
	}
	return names, nil
}
