package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/asm/apps/api/echo"
	"github.com/trezcool/asm/apps/shared"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/enrollment"
	"github.com/trezcool/asm/core/report"
	"github.com/trezcool/asm/core/user"
	"github.com/trezcool/asm/storage/database"
	"github.com/trezcool/asm/tests"
)

type testApp struct {
	testutil.School
	srv *Server
}

func setup(t *testing.T) testApp {
	t.Helper()
	school := testutil.NewSchool(t)
	conf := testutil.NewConfig()
	stores := database.NewStores(school.DB)
	validate, translator := shared.NewValidator()

	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         testutil.NewLogger(conf),
		Validate:       validate,
		Translator:     translator,
		UserSvc:        user.NewService(stores.Users),
		CourseSvc:      course.NewService(stores.Courses),
		Enrollments:    enrollment.NewManager(stores.Enrollments, testutil.RetryPolicy),
		Attendances:    attendance.NewManager(stores.Attendances, testutil.RetryPolicy),
		Reports:        report.NewService(stores.Reports, nil, 0),
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = srv.Close() })
	return testApp{School: school, srv: srv}
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     string
	token    string
	wantCode int
	wantData string // JSON; skipped when empty
}

func (app testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.srv.TokenFor(usr)
	require.NoError(t, err)
	return token
}

func (app testApp) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

func (app testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantData != "" {
				assert.JSONEq(t, tt.wantData, rec.Body.String())
			}
		})
	}
}

func TestHome(t *testing.T) {
	app := setup(t)
	rec := app.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Attendance API!", rec.Body.String())
}

func TestAuth(t *testing.T) {
	app := setup(t)

	t.Run("login", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/auth/login", "", `{"email": " ALICE@test.cd ", "password": "`+testutil.Password+`"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, app.Student.ID, resp.User.ID)
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "ASM_TOKEN=")

		// the issued token authenticates
		rec = app.do(http.MethodGet, "/v1/students/me/percentage", resp.Token, "")
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	invalidCreds := `{"error": "` + user.ErrInvalidCredentials.Error() + `"}`
	app.run(t, []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login",
			body: `{"email": "alice@test.cd", "password": "nope"}`, wantCode: http.StatusBadRequest, wantData: invalidCreds,
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/auth/login",
			body: `{"email": "nobody@test.cd", "password": "nope"}`, wantCode: http.StatusBadRequest, wantData: invalidCreds,
		},
		{name: "missing token", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: `{"error": "missing or malformed jwt"}`},
		{name: "invalid token", path: "/v1/courses", token: "lol", wantCode: http.StatusUnauthorized, wantData: `{"error": "invalid or expired jwt"}`},
		{name: "logout", method: http.MethodPost, path: "/v1/auth/logout", wantCode: http.StatusNoContent},
	})
}

func TestRoleMiddleware(t *testing.T) {
	app := setup(t)
	denied := `{"error": "permission denied"}`

	app.run(t, []httpTest{
		{name: "student lists users", path: "/v1/users", token: app.token(t, app.Student), wantCode: http.StatusForbidden, wantData: denied},
		{name: "admin lists users", path: "/v1/users", token: app.token(t, app.Admin), wantCode: http.StatusOK},
		{
			name:  "student submits attendance", method: http.MethodPost, path: "/v1/courses/1/attendance",
			body:  `{"date": "2024-03-04", "records": [{"student_id": 4, "status": "Present"}]}`,
			token: app.token(t, app.Student), wantCode: http.StatusForbidden, wantData: denied,
		},
		{
			name:  "teacher enrolls", method: http.MethodPost, path: "/v1/courses/1/enroll",
			token: app.token(t, app.Teacher), wantCode: http.StatusForbidden, wantData: denied,
		},
		{name: "teacher views a student", path: "/v1/students/4/percentage", token: app.token(t, app.Teacher), wantCode: http.StatusForbidden, wantData: denied},
		{name: "teacher views the admin dashboard", path: "/v1/admin/dashboard", token: app.token(t, app.Teacher), wantCode: http.StatusForbidden, wantData: denied},
	})
}

func TestEnroll(t *testing.T) {
	app := setup(t)
	carol := app.token(t, app.Student3)

	rec := app.do(http.MethodPost, "/v1/courses/2/enroll", carol, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var enr enrollment.Enrollment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
	assert.Equal(t, app.Student3.ID, enr.StudentID)
	assert.Equal(t, app.Physics.ID, enr.CourseID)

	app.run(t, []httpTest{
		{
			name:     "already enrolled", method: http.MethodPost, path: "/v1/courses/2/enroll", token: carol,
			wantCode: http.StatusConflict, wantData: `{"error": "student 6 is already enrolled in course 2", "kind": "conflict"}`,
		},
		{
			name:     "unknown course", method: http.MethodPost, path: "/v1/courses/99/enroll", token: carol,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "another student", method: http.MethodPost, path: "/v1/enrollments", token: carol,
			body:     `{"student_id": 5, "course_id": 1}`, wantCode: http.StatusForbidden,
			wantData: `{"error": "user 6 cannot enroll student 5", "kind": "unauthorized"}`,
		},
		{
			name: "admin enrolls a student", method: http.MethodPost, path: "/v1/enrollments", token: app.token(t, app.Admin),
			body: `{"student_id": 5, "course_id": 1}`, wantCode: http.StatusCreated,
		},
	})
}

func TestSubmitAttendance(t *testing.T) {
	app := setup(t)
	testutil.Enroll(t, app.DB, app.Student.ID, app.Math.ID)
	testutil.Enroll(t, app.DB, app.Student2.ID, app.Math.ID)
	teacher := app.token(t, app.Teacher)

	body := `{"date": "2024-03-04", "records": [{"student_id": 4, "status": "Present"}, {"student_id": 5, "status": "absent"}]}`
	rec := app.do(http.MethodPost, "/v1/courses/1/attendance", teacher, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var atts []attendance.Attendance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &atts))
	require.Len(t, atts, 2)
	assert.Equal(t, attendance.StatusPresent, atts[0].Status)
	assert.Equal(t, attendance.StatusAbsent, atts[1].Status)
	assert.Equal(t, app.Teacher.ID, atts[1].MarkedByTeacherID)

	app.run(t, []httpTest{
		{
			name:     "already submitted", method: http.MethodPost, path: "/v1/courses/1/attendance", token: teacher, body: body,
			wantCode: http.StatusConflict, wantData: `{"error": "attendance for course 1 on 2024-03-04 was already submitted", "kind": "conflict"}`,
		},
		{
			name:     "unenrolled students", method: http.MethodPost, path: "/v1/courses/1/attendance", token: teacher,
			body:     `{"date": "2024-03-05", "records": [{"student_id": 6, "status": "Present"}, {"student_id": 4, "status": "Present"}]}`,
			wantCode: http.StatusBadRequest,
			wantData: `{"error": "students with IDs [6] are not enrolled in course 1", "kind": "invalid argument", "ids": [6]}`,
		},
		{
			name:     "course of another teacher", method: http.MethodPost, path: "/v1/courses/1/attendance", token: app.token(t, app.OtherTeacher),
			body:     `{"date": "2024-03-05", "records": [{"student_id": 4, "status": "Present"}]}`,
			wantCode: http.StatusForbidden,
			wantData: `{"error": "course 1 is not owned by teacher 3", "kind": "unauthorized"}`,
		},
		{
			name: "no records", method: http.MethodPost, path: "/v1/courses/1/attendance", token: teacher,
			body: `{"date": "2024-03-05", "records": []}`, wantCode: http.StatusBadRequest,
		},
		{
			name: "bad date", method: http.MethodPost, path: "/v1/courses/1/attendance", token: teacher,
			body: `{"date": "05/03/2024", "records": [{"student_id": 4, "status": "Present"}]}`, wantCode: http.StatusBadRequest,
		},
	})

	// nothing was written by the failed submissions
	assert.Len(t, app.DB.Attendances(), 2)
}

func TestOverallPercentage(t *testing.T) {
	app := setup(t)
	alice := testutil.Enroll(t, app.DB, app.Student.ID, app.Math.ID)
	bob := testutil.Enroll(t, app.DB, app.Student2.ID, app.Math.ID)
	testutil.Mark(t, app.DB, alice, app.Teacher.ID, "2024-03-04", attendance.StatusPresent)
	testutil.Mark(t, app.DB, alice, app.Teacher.ID, "2024-03-05", attendance.StatusLate)
	testutil.Mark(t, app.DB, alice, app.Teacher.ID, "2024-03-06", attendance.StatusAbsent)
	testutil.Mark(t, app.DB, bob, app.Teacher.ID, "2024-03-04", attendance.StatusAbsent)

	aliceToken := app.token(t, app.Student)
	app.run(t, []httpTest{
		{name: "own percentage", path: "/v1/students/me/percentage", token: aliceToken, wantCode: http.StatusOK, wantData: `{"student_id": 4, "overall_percentage": "66.67"}`},
		{name: "own percentage by id", path: "/v1/students/4/percentage", token: aliceToken, wantCode: http.StatusOK, wantData: `{"student_id": 4, "overall_percentage": "66.67"}`},
		{name: "other student", path: "/v1/students/5/percentage", token: aliceToken, wantCode: http.StatusForbidden},
		{name: "admin", path: "/v1/students/5/percentage", token: app.token(t, app.Admin), wantCode: http.StatusOK, wantData: `{"student_id": 5, "overall_percentage": "0.00"}`},
		{name: "no attendance", path: "/v1/students/me/percentage", token: app.token(t, app.Student3), wantCode: http.StatusOK, wantData: `{"student_id": 6, "overall_percentage": "0.00"}`},
	})
}

func TestAttendanceReportCSV(t *testing.T) {
	app := setup(t)
	alice := testutil.Enroll(t, app.DB, app.Student.ID, app.Math.ID)
	bob := testutil.Enroll(t, app.DB, app.Student2.ID, app.Math.ID)
	other := testutil.CreateCourse(t, app.DB, "CHEM-101", "Chemistry", app.OtherTeacher.ID)
	carol := testutil.Enroll(t, app.DB, app.Student3.ID, other.ID)
	testutil.Mark(t, app.DB, alice, app.Teacher.ID, "2024-03-04", attendance.StatusPresent)
	testutil.Mark(t, app.DB, bob, app.Teacher.ID, "2024-03-04", attendance.StatusLate)
	testutil.Mark(t, app.DB, bob, app.Teacher.ID, "2024-03-05", attendance.StatusAbsent)
	testutil.Mark(t, app.DB, carol, app.OtherTeacher.ID, "2024-03-04", attendance.StatusPresent)

	header := strings.Join(report.CSVHeader, ",") + "\n"
	tests := []struct {
		name  string
		path  string
		token string
		want  string
	}{
		{
			name: "teacher sees own courses", path: "/v1/reports/attendance/csv", token: app.token(t, app.Teacher),
			want: header + "Mathematics,Alice,1,1,0,0,100.00\nMathematics,Bob,2,0,1,1,50.00\n",
		},
		{
			name: "admin sees all", path: "/v1/reports/attendance/csv", token: app.token(t, app.Admin),
			want: header + "Chemistry,Carol,1,1,0,0,100.00\nMathematics,Alice,1,1,0,0,100.00\nMathematics,Bob,2,0,1,1,50.00\n",
		},
		{
			name: "date range", path: "/v1/reports/attendance/csv?start_date=2024-03-05&end_date=2024-03-05", token: app.token(t, app.Admin),
			want: header + "Mathematics,Bob,1,0,1,0,0.00\n",
		},
		{
			name: "other teacher", path: "/v1/reports/attendance/csv", token: app.token(t, app.OtherTeacher),
			want: header + "Chemistry,Carol,1,1,0,0,100.00\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, tt.path, tt.token, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="attendance-`)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestAdminDashboard(t *testing.T) {
	app := setup(t)
	testutil.Enroll(t, app.DB, app.Student.ID, app.Math.ID)
	testutil.Enroll(t, app.DB, app.Student2.ID, app.Math.ID)
	testutil.Enroll(t, app.DB, app.Student.ID, app.Physics.ID)

	rec := app.do(http.MethodGet, "/v1/admin/dashboard", app.token(t, app.Admin), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dash report.AdminDashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, 2, dash.TotalCourses)
	assert.Equal(t, 2, dash.TotalTeachers)
	assert.Equal(t, 3, dash.TotalStudents)
	assert.Equal(t, 3, dash.TotalEnrollments)
	assert.Len(t, dash.RecentEnrollments, 3)
}

func TestAdminReports(t *testing.T) {
	app := setup(t)
	alice := testutil.Enroll(t, app.DB, app.Student.ID, app.Math.ID)
	testutil.Enroll(t, app.DB, app.Student2.ID, app.Math.ID)
	testutil.Mark(t, app.DB, alice, app.Teacher.ID, "2024-03-04", attendance.StatusPresent)
	admin := app.token(t, app.Admin)

	t.Run("course enrollments", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/reports/enrollments", admin, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var rpt report.CourseEnrollmentReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rpt))
		require.Len(t, rpt.Courses, 2)
		assert.Equal(t, 2, rpt.Courses[0].EnrolledCount)
		assert.Equal(t, "100.00", rpt.Courses[0].AverageAttendance.StringFixed(2))
		assert.Equal(t, 2, rpt.TotalCourses)
		assert.Equal(t, 2, rpt.TotalEnrollments)
		assert.Equal(t, "1.00", rpt.AverageEnrollmentPerCourse.StringFixed(2))
	})

	t.Run("student performance", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/reports/students?course_id=1", admin, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var rpt report.StudentPerformanceReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rpt))
		require.Len(t, rpt.Students, 2)
		assert.Equal(t, "Alice", rpt.Students[0].StudentName)
		assert.Equal(t, "100.00", rpt.Students[0].AttendancePercentage.StringFixed(2))
		assert.Equal(t, "Bob", rpt.Students[1].StudentName)
		assert.Zero(t, rpt.Students[1].TotalClasses)
		assert.Equal(t, 2, rpt.TotalStudents)
		assert.Equal(t, "50.00", rpt.OverallAverageAttendance.StringFixed(2))

		rec = app.do(http.MethodGet, "/v1/reports/students?student_id=5", admin, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rpt = report.StudentPerformanceReport{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rpt))
		require.Len(t, rpt.Students, 1)
		assert.Equal(t, "Bob", rpt.Students[0].StudentName)
	})

	app.run(t, []httpTest{
		{name: "invalid filter", path: "/v1/reports/students?start_date=lol", token: admin, wantCode: http.StatusBadRequest},
		{name: "teacher", path: "/v1/reports/students", token: app.token(t, app.Teacher), wantCode: http.StatusForbidden},
	})
}
