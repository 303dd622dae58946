package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/report"
	"github.com/trezcool/asm/core/user"
)

// listJSON responds with items, rendering nil as [].
func listJSON[T any](ctx echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return ctx.JSON(http.StatusOK, items)
}

type reportApi struct {
	*Server
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := reportApi{Server: s}

	sg := g.Group("/students/:id", jwt, roleMiddleware(user.RoleAdmin, user.RoleStudent))
	sg.GET("/dashboard", api.studentDashboard)
	sg.GET("/courses", api.studentCourses)
	sg.GET("/available-courses", api.availableCourses)
	sg.GET("/attendance", api.attendanceHistory)
	sg.GET("/percentage", api.overallPercentage)
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := reportApi{Server: s}

	tg := g.Group("/teachers/:id", jwt, roleMiddleware(user.RoleAdmin, user.RoleTeacher))
	tg.GET("/courses", api.teacherCourses)
	tg.GET("/stats", api.teacherStats)
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := reportApi{Server: s}

	rg := g.Group("/reports", jwt)
	rg.GET("/attendance", api.attendanceReport, roleMiddleware(user.RoleAdmin, user.RoleTeacher))
	rg.GET("/attendance/csv", api.attendanceReportCSV, roleMiddleware(user.RoleAdmin, user.RoleTeacher))
	rg.GET("/enrollments", api.courseEnrollmentReport, adminMiddleware())
	rg.GET("/students", api.studentPerformanceReport, adminMiddleware())

	g.GET("/admin/dashboard", api.adminDashboard, jwt, adminMiddleware())
}

// actorAndID returns the acting user and the :id path param.
func actorAndID(ctx echo.Context) (user.Actor, int, error) {
	actor, err := getContextActor(ctx)
	if err != nil {
		return user.Actor{}, 0, err
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return user.Actor{}, 0, err
	}
	return actor, id, nil
}

// Student views

func (api reportApi) studentDashboard(ctx echo.Context) error {
	actor, id, err := actorAndID(ctx)
	if err != nil {
		return err
	}
	dash, err := api.Reports.StudentDashboard(ctx.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api reportApi) studentCourses(ctx echo.Context) error {
	actor, id, err := actorAndID(ctx)
	if err != nil {
		return err
	}
	courses, err := api.Reports.StudentCourses(ctx.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return listJSON(ctx, courses)
}

func (api reportApi) availableCourses(ctx echo.Context) error {
	actor, id, err := actorAndID(ctx)
	if err != nil {
		return err
	}
	courses, err := api.Reports.AvailableCourses(ctx.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return listJSON(ctx, courses)
}

func (api reportApi) attendanceHistory(ctx echo.Context) error {
	actor, id, err := actorAndID(ctx)
	if err != nil {
		return err
	}
	var hf report.HistoryFilter
	if err = (&echo.DefaultBinder{}).BindQueryParams(ctx, &hf); err != nil {
		return errors.Wrap(err, "binding to HistoryFilter")
	}
	hf.Status = core.CleanString(hf.Status)
	if err = api.Validate.Struct(hf); err != nil {
		return err
	}

	entries, err := api.Reports.AttendanceHistory(ctx.Request().Context(), actor, id, hf)
	if err != nil {
		return err
	}
	return listJSON(ctx, entries)
}

func (api reportApi) overallPercentage(ctx echo.Context) error {
	actor, id, err := actorAndID(ctx)
	if err != nil {
		return err
	}
	pct, err := api.Reports.OverallPercentage(ctx.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, PercentageResponse{StudentID: id, OverallPercentage: pct.StringFixed(2)})
}

// Teacher views

func (api reportApi) teacherCourses(ctx echo.Context) error {
	actor, id, err := actorAndID(ctx)
	if err != nil {
		return err
	}
	courses, err := api.Reports.TeacherCourses(ctx.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return listJSON(ctx, courses)
}

func (api reportApi) teacherStats(ctx echo.Context) error {
	actor, id, err := actorAndID(ctx)
	if err != nil {
		return err
	}
	stats, err := api.Reports.TeacherStats(ctx.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

// Reports

// bindReportFilter binds the report filter; teachers only see their own courses.
func (api reportApi) bindReportFilter(ctx echo.Context) (report.Filter, error) {
	var fr report.FilterRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &fr); err != nil {
		return report.Filter{}, errors.Wrap(err, "binding to FilterRequest")
	}
	if err := api.Validate.Struct(fr); err != nil {
		return report.Filter{}, err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return report.Filter{}, err
	}

	filter := fr.Filter()
	if !actor.IsAdmin() {
		filter.TeacherID = null.IntFrom(actor.ID)
	}
	return filter, nil
}

func (api reportApi) attendanceReport(ctx echo.Context) error {
	filter, err := api.bindReportFilter(ctx)
	if err != nil {
		return err
	}
	rows, err := api.Reports.GetAttendanceReport(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return listJSON(ctx, rows)
}

func (api reportApi) attendanceReportCSV(ctx echo.Context) error {
	filter, err := api.bindReportFilter(ctx)
	if err != nil {
		return err
	}
	rows, err := api.Reports.GetAttendanceReport(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	resp.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+report.ArchiveKey(core.NowFunc())+`"`)
	resp.WriteHeader(http.StatusOK)
	return report.WriteCSV(resp, rows)
}

func (api reportApi) courseEnrollmentReport(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	rpt, err := api.Reports.CourseEnrollmentReport(ctx.Request().Context(), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api reportApi) studentPerformanceReport(ctx echo.Context) error {
	filter, err := api.bindReportFilter(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	rpt, err := api.Reports.StudentPerformanceReport(ctx.Request().Context(), actor, filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api reportApi) adminDashboard(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	dash, err := api.Reports.AdminDashboard(ctx.Request().Context(), actor)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dash)
}

type PercentageResponse struct {
	StudentID         int    `json:"student_id"`
	OverallPercentage string `json:"overall_percentage"`
}
