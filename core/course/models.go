package course

import (
	"context"
	"regexp"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
)

var (
	codeTag   = "coursecode"
	codeText  = "course code may only contain letters, digits and dashes (2 to 20 characters)"
	codeRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,19}$`)
)

type Course struct {
	ID          int       `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TeacherID   int       `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create or fully update a Course.
type NewCourse struct {
	Code        string `json:"code" validate:"required,coursecode"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	TeacherID   int    `json:"teacher_id" validate:"required,gt=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = strings.ToUpper(core.CleanString(nc.Code))
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type QueryFilter struct {
	TeacherID null.Int `query:"-"`
	Search    string   `query:"search"`
}

// Match applies the filter in memory. Search is a case-insensitive match on Code or Name.
func (qf QueryFilter) Match(crs Course) bool {
	if qf.TeacherID.Valid && crs.TeacherID != qf.TeacherID.Int {
		return false
	}
	if s := strings.ToLower(core.CleanString(qf.Search)); s != "" &&
		!strings.Contains(strings.ToLower(crs.Code), s) && !strings.Contains(strings.ToLower(crs.Name), s) {
		return false
	}
	return true
}

type (
	// Getter is the read access other packages need on courses.
	Getter interface {
		GetCourseByID(ctx context.Context, id int) (Course, error)
	}

	// Store is the transaction-scoped course storage.
	// Lookups return core.ErrNoRecord when nothing matches.
	Store interface {
		user.Getter
		Getter
		GetCourseByCode(ctx context.Context, code string) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id int) error
		CountEnrollmentsByCourse(ctx context.Context, courseID int) (int, error)
	}
)

// InitValidators registers the course validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(codeTag, codeValidation)
	core.RegisterCustomTranslation(validate, translator, codeTag, codeText)
}

func codeValidation(fl validator.FieldLevel) bool {
	return codeRegex.MatchString(fl.Field().String())
}
