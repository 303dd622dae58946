package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
)

var ErrCodeExists = errors.New("a course with this code already exists")

type Service struct {
	db core.Transactor[Store]
}

func NewService(db core.Transactor[Store]) *Service {
	return &Service{db: db}
}

// Get returns the course with the given id or a core.KindNotFound error.
func Get(ctx context.Context, store Getter, id int) (Course, error) {
	crs, err := store.GetCourseByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNoRecord) {
			return Course{}, core.NotFound("course %d not found", id)
		}
		return Course{}, errors.Wrap(err, "getting course by ID")
	}
	return crs, nil
}

func checkTeacher(ctx context.Context, store Store, teacherID int) error {
	usr, err := store.GetUserByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, core.ErrNoRecord) {
			return core.InvalidArgument("teacher %d not found", teacherID)
		}
		return errors.Wrap(err, "getting teacher")
	}
	if !usr.IsTeacher() {
		return core.InvalidArgument("user %d is not a teacher", teacherID)
	}
	return nil
}

func checkCodeUniqueness(ctx context.Context, store Store, code string, exclCourseID int) error {
	crs, err := store.GetCourseByCode(ctx, code)
	switch {
	case errors.Is(err, core.ErrNoRecord):
		return nil
	case err != nil:
		return errors.Wrap(err, "getting course by code")
	case crs.ID == exclCourseID:
		return nil
	}
	return core.Conflict("course code %q is already used by course %d", code, crs.ID)
}

func requireAdmin(actor user.Actor) error {
	if !actor.IsAdmin() {
		return core.Unauthorized("only admins can manage courses")
	}
	return nil
}

// Create creates a course. nc must have been validated.
func (svc *Service) Create(ctx context.Context, actor user.Actor, nc NewCourse) (crs Course, err error) {
	if err = requireAdmin(actor); err != nil {
		return Course{}, err
	}

	now := core.NowFunc()
	err = svc.db.WithinTx(ctx, func(store Store) error {
		if err := checkTeacher(ctx, store, nc.TeacherID); err != nil {
			return err
		}
		if err := checkCodeUniqueness(ctx, store, nc.Code, 0); err != nil {
			return err
		}
		crs, err = store.CreateCourse(ctx, Course{
			Code:        nc.Code,
			Name:        nc.Name,
			Description: nc.Description,
			TeacherID:   nc.TeacherID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return errors.Wrap(err, "creating course")
	})
	return crs, err
}

// Update replaces the fields of course id. nc must have been validated.
func (svc *Service) Update(ctx context.Context, actor user.Actor, id int, nc NewCourse) (crs Course, err error) {
	if err = requireAdmin(actor); err != nil {
		return Course{}, err
	}

	err = svc.db.WithinTx(ctx, func(store Store) error {
		crs, err = Get(ctx, store, id)
		if err != nil {
			return err
		}
		if err = checkTeacher(ctx, store, nc.TeacherID); err != nil {
			return err
		}
		if err = checkCodeUniqueness(ctx, store, nc.Code, id); err != nil {
			return err
		}

		crs.Code = nc.Code
		crs.Name = nc.Name
		crs.Description = nc.Description
		crs.TeacherID = nc.TeacherID
		crs.UpdatedAt = core.NowFunc()
		crs, err = store.UpdateCourse(ctx, crs)
		return errors.Wrap(err, "updating course")
	})
	return crs, err
}

func (svc *Service) GetByID(ctx context.Context, id int) (crs Course, err error) {
	err = svc.db.WithinTx(ctx, func(store Store) error {
		crs, err = Get(ctx, store, id)
		return err
	})
	return crs, err
}

// Query returns the courses matching filter, ordered by code.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) (courses []Course, err error) {
	err = svc.db.WithinTx(ctx, func(store Store) error {
		courses, err = store.QueryCourses(ctx, filter)
		return errors.Wrap(err, "querying courses")
	})
	return courses, err
}

// Delete removes course id; courses with enrollments cannot be deleted.
func (svc *Service) Delete(ctx context.Context, actor user.Actor, id int) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	return svc.db.WithinTx(ctx, func(store Store) error {
		if _, err := Get(ctx, store, id); err != nil {
			return err
		}
		count, err := store.CountEnrollmentsByCourse(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting enrollments")
		}
		if count > 0 {
			return core.InvalidState("course %d still has %d enrollments", id, count)
		}
		return errors.Wrap(store.DeleteCourse(ctx, id), "deleting course")
	})
}
