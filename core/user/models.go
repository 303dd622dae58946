package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/asm/core"
)

// Role is fixed when a User is created. It is stored as 0, 1 or 2.
type Role int

const (
	RoleAdmin Role = iota
	RoleTeacher
	RoleStudent
)

var (
	AllRoles    = []Role{RoleAdmin, RoleTeacher, RoleStudent}
	SignupRoles = []Role{RoleTeacher, RoleStudent}

	roleNames = map[Role]string{
		RoleAdmin:   "Admin",
		RoleTeacher: "Teacher",
		RoleStudent: "Student",
	}
)

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Unknown"
}

func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole parses a role name, case-insensitively.
func ParseRole(s string) (Role, bool) {
	s = core.CleanString(s, true /* lower */)
	for role, name := range roleNames {
		if strings.ToLower(name) == s {
			return role, true
		}
	}
	return 0, false
}

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

func Roles() []RoleInfo {
	infos := make([]RoleInfo, 0, len(AllRoles))
	for _, role := range AllRoles {
		infos = append(infos, RoleInfo{Name: role.String(), Value: role})
	}
	return infos
}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

// Actor returns the acting-user context of u.
func (u User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// Actor identifies who performs an operation. It is passed explicitly to every manager.
type Actor struct {
	ID   int
	Role Role
}

// The zero Actor is anonymous: it holds no role.
func (a Actor) IsAdmin() bool   { return a.ID > 0 && a.Role == RoleAdmin }
func (a Actor) IsTeacher() bool { return a.ID > 0 && a.Role == RoleTeacher }
func (a Actor) IsStudent() bool { return a.ID > 0 && a.Role == RoleStudent }

// Is reports whether the actor is the user identified by id.
func (a Actor) Is(id int) bool { return a.ID > 0 && a.ID == id }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,role"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role)
	return validate.Struct(nu)
}

// ParsedRole returns the Role named by nu.Role; it is only meaningful after Validate.
func (nu NewUser) ParsedRole() Role {
	role, _ := ParseRole(nu.Role)
	return role
}

// UpdateUser defines what information may be provided to modify an existing User.
// The role cannot be changed.
type UpdateUser struct {
	Name            string `json:"name" validate:"omitempty,max=100"`
	Email           string `json:"email" validate:"omitempty,email,max=255"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	return validate.Struct(uu)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []Role    `query:"role"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Match applies the filter in memory. Search is a case-insensitive match on Name or Email.
func (qf QueryFilter) Match(usr User) bool {
	if len(qf.Roles) > 0 {
		var found bool
		for _, role := range qf.Roles {
			if usr.Role == role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s := strings.ToLower(qf.Search); s != "" &&
		!strings.Contains(strings.ToLower(usr.Name), s) && !strings.Contains(strings.ToLower(usr.Email), s) {
		return false
	}
	if !qf.CreatedFrom.IsZero() && usr.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && usr.CreatedAt.After(qf.CreatedTo) {
		return false
	}
	return true
}

type (
	// Getter is the read access other packages need on users.
	Getter interface {
		GetUserByID(ctx context.Context, id int) (User, error)
	}

	// Store is the transaction-scoped user storage.
	// Lookups return core.ErrNoRecord when nothing matches.
	Store interface {
		Getter
		GetUserByEmail(ctx context.Context, email string) (User, error)
		QueryUsers(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]User, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id int) error
		// CountUserDependents counts courses taught, enrollments and attendance marks referencing the user.
		CountUserDependents(ctx context.Context, id int) (int, error)
	}
)
