package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asm/apps/shared"
	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
	"github.com/trezcool/asm/storage/database"
	testutil "github.com/trezcool/asm/tests"
)

func newService(s testutil.School) *user.Service {
	return user.NewService(database.Bind[user.Store](s.DB))
}

func TestNewUser_Validate(t *testing.T) {
	validate, _ := shared.NewValidator()

	tests := []struct {
		name      string
		nu        user.NewUser
		wantField string
	}{
		{name: "valid", nu: user.NewUser{Name: " Jane ", Email: "JANE@test.cd", Password: testutil.Password, PasswordConfirm: testutil.Password, Role: "student"}},
		{name: "missing name", nu: user.NewUser{Email: "jane@test.cd", Password: testutil.Password, PasswordConfirm: testutil.Password, Role: "Student"}, wantField: "name"},
		{name: "invalid email", nu: user.NewUser{Name: "Jane", Email: "jane", Password: testutil.Password, PasswordConfirm: testutil.Password, Role: "Student"}, wantField: "email"},
		{name: "unknown role", nu: user.NewUser{Name: "Jane", Email: "jane@test.cd", Password: testutil.Password, PasswordConfirm: testutil.Password, Role: "Dean"}, wantField: "role"},
		{name: "passwords differ", nu: user.NewUser{Name: "Jane", Email: "jane@test.cd", Password: testutil.Password, PasswordConfirm: "other", Role: "Student"}, wantField: "password_confirm"},
		{name: "short password", nu: user.NewUser{Name: "Jane", Email: "jane@test.cd", Password: "Ab1!", PasswordConfirm: "Ab1!", Role: "Student"}, wantField: "password"},
		{name: "numeric password", nu: user.NewUser{Name: "Jane", Email: "jane@test.cd", Password: "1234567890", PasswordConfirm: "1234567890", Role: "Student"}, wantField: "password"},
		{name: "simple password", nu: user.NewUser{Name: "Jane", Email: "jane@test.cd", Password: "abcdefghij", PasswordConfirm: "abcdefghij", Role: "Student"}, wantField: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(validate)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "Jane", tt.nu.Name)
				assert.Equal(t, "jane@test.cd", tt.nu.Email)
				assert.Equal(t, user.RoleStudent, tt.nu.ParsedRole())
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "'"+tt.wantField+"'")
		})
	}
}

func TestService_Create(t *testing.T) {
	s := testutil.NewSchool(t)
	svc := newService(s)
	ctx := context.Background()

	nu := user.NewUser{Name: "Dave", Email: "dave@test.cd", Password: testutil.Password, PasswordConfirm: testutil.Password, Role: "Teacher"}
	usr, err := svc.Create(ctx, nu)
	require.NoError(t, err)
	assert.NotZero(t, usr.ID)
	assert.Equal(t, user.RoleTeacher, usr.Role)
	assert.NoError(t, usr.CheckPassword(testutil.Password))

	_, err = svc.Create(ctx, nu)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Fields[0].Field)
}

func TestService_Signup(t *testing.T) {
	s := testutil.NewSchool(t)
	svc := newService(s)
	ctx := context.Background()

	_, err := svc.Signup(ctx, user.NewUser{Name: "Eve", Email: "eve@test.cd", Password: testutil.Password, Role: "Admin"})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "role", verr.Fields[0].Field)

	usr, err := svc.Signup(ctx, user.NewUser{Name: "Eve", Email: "eve@test.cd", Password: testutil.Password, Role: "Student"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, usr.Role)
}

func TestService_Authenticate(t *testing.T) {
	s := testutil.NewSchool(t)
	svc := newService(s)
	ctx := context.Background()

	usr, err := svc.Authenticate(ctx, " ALICE@test.cd ", testutil.Password)
	require.NoError(t, err)
	assert.Equal(t, s.Student.ID, usr.ID)
	assert.False(t, usr.LastLogin.IsZero())

	_, err = svc.Authenticate(ctx, "alice@test.cd", "wrong")
	assert.Equal(t, user.ErrInvalidCredentials, err)
	_, err = svc.Authenticate(ctx, "nobody@test.cd", testutil.Password)
	assert.Equal(t, user.ErrInvalidCredentials, err)
}

func TestService_Update(t *testing.T) {
	s := testutil.NewSchool(t)
	svc := newService(s)
	ctx := context.Background()

	usr, err := svc.Update(ctx, s.Student.ID, user.UpdateUser{Name: "Alicia", Email: "alicia@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", usr.Name)
	assert.Equal(t, user.RoleStudent, usr.Role)

	_, err = svc.Update(ctx, s.Student.ID, user.UpdateUser{Name: "Alicia", Email: "bob@test.cd"})
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = svc.Update(ctx, 999, user.UpdateUser{Name: "X", Email: "x@test.cd"})
	assert.True(t, core.IsKind(err, core.KindNotFound))

	require.NoError(t, svc.SetPassword(ctx, s.Student.ID, "n3w-Passw0rd"))
	_, err = svc.Authenticate(ctx, "alicia@test.cd", "n3w-Passw0rd")
	assert.NoError(t, err)
}

func TestService_Query(t *testing.T) {
	s := testutil.NewSchool(t)
	svc := newService(s)

	users, err := svc.Query(context.Background(), user.QueryFilter{Roles: []user.Role{user.RoleTeacher}})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Other Teacher", users[0].Name)
	assert.Equal(t, "Teacher", users[1].Name)

	users, err = svc.Query(context.Background(), user.QueryFilter{Search: " BOB "})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, s.Student2.ID, users[0].ID)

	users, err = svc.Query(context.Background(), user.QueryFilter{}, core.DBOrdering{Field: "email", Ascending: false})
	require.NoError(t, err)
	require.Len(t, users, 6)
	assert.Equal(t, "teacher@test.cd", users[0].Email)
}

func TestService_Delete(t *testing.T) {
	s := testutil.NewSchool(t)
	svc := newService(s)
	ctx := context.Background()
	testutil.Enroll(t, s.DB, s.Student.ID, s.Math.ID)

	tests := []struct {
		name     string
		actor    user.Actor
		id       int
		wantKind core.Kind
	}{
		{name: "non admin", actor: s.Teacher.Actor(), id: s.Student3.ID, wantKind: core.KindUnauthorized},
		{name: "self", actor: s.Admin.Actor(), id: s.Admin.ID, wantKind: core.KindUnauthorized},
		{name: "teacher with courses", actor: s.Admin.Actor(), id: s.Teacher.ID, wantKind: core.KindInvalidState},
		{name: "enrolled student", actor: s.Admin.Actor(), id: s.Student.ID, wantKind: core.KindInvalidState},
		{name: "unknown user", actor: s.Admin.Actor(), id: 999, wantKind: core.KindNotFound},
		{name: "free student", actor: s.Admin.Actor(), id: s.Student3.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Delete(ctx, tt.actor, tt.id)
			if tt.wantKind != core.KindInternal {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, core.KindOf(err))
				return
			}
			require.NoError(t, err)
			_, err = svc.GetByID(ctx, tt.id)
			assert.True(t, core.IsKind(err, core.KindNotFound))
		})
	}
}
