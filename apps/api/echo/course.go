package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/enrollment"
	"github.com/trezcool/asm/core/user"
)

type courseApi struct {
	*Server
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := courseApi{Server: s}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, adminMiddleware())
	cg.DELETE("/:id", api.destroy, adminMiddleware())

	cg.POST("/:id/enroll", api.enroll, roleMiddleware(user.RoleAdmin, user.RoleStudent))
	cg.GET("/:id/students", api.enrolledStudents, roleMiddleware(user.RoleAdmin, user.RoleTeacher))
	cg.POST("/:id/attendance", api.submitAttendance, roleMiddleware(user.RoleAdmin, user.RoleTeacher))

	g.POST("/enrollments", api.createEnrollment, jwt, roleMiddleware(user.RoleAdmin, user.RoleStudent))
}

func (api courseApi) query(ctx echo.Context) error {
	filter := course.QueryFilter{Search: ctx.QueryParam("search")}
	if val := ctx.QueryParam("teacher_id"); val != "" {
		id, err := strconv.Atoi(val)
		if err != nil {
			return ctx.JSON(http.StatusOK, []course.Course{})
		}
		filter.TeacherID = null.IntFrom(id)
	}

	courses, err := api.CourseSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	crs, err := api.CourseSvc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api courseApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	crs, err := api.CourseSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api courseApi) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.Validate); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	crs, err := api.CourseSvc.Update(ctx.Request().Context(), actor, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api courseApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	if err = api.CourseSvc.Delete(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// enroll enrolls the student named in the body, or the acting student, in course :id.
func (api courseApi) enroll(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data enrollment.Request
	if ctx.Request().ContentLength > 0 {
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to enrollment.Request")
		}
	}
	data.CourseID = id
	return api.doEnroll(ctx, data)
}

func (api courseApi) createEnrollment(ctx echo.Context) error {
	var data enrollment.Request
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to enrollment.Request")
	}
	return api.doEnroll(ctx, data)
}

func (api courseApi) doEnroll(ctx echo.Context, data enrollment.Request) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if data.StudentID == 0 {
		data.StudentID = actor.ID
	}
	if err = api.Validate.Struct(data); err != nil {
		return err
	}

	enr, err := api.Enrollments.Enroll(ctx.Request().Context(), actor, data.StudentID, data.CourseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api courseApi) enrolledStudents(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	students, err := api.Reports.EnrolledStudents(ctx.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api courseApi) submitAttendance(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data attendance.SubmissionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmissionRequest")
	}
	if err = data.Validate(api.Validate); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	teacherID := 0
	if actor.IsTeacher() {
		teacherID = actor.ID
	}
	sub, err := data.Submission(id, teacherID)
	if err != nil {
		return err
	}

	atts, err := api.Attendances.SubmitAttendance(ctx.Request().Context(), actor, sub)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, atts)
}
