package gormrepos

import (
	"context"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
)

var userOrderings = map[string]string{
	"id":         "id",
	"name":       "name",
	"email":      "email",
	"created_at": "created_at",
}

func (t *tx) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var m userModel
	if err := first(t.q(ctx).First(&m, id), "getting user by ID"); err != nil {
		return user.User{}, err
	}
	return m.user(), nil
}

func (t *tx) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var m userModel
	if err := first(t.q(ctx).Where("LOWER(email) = LOWER(?)", email).First(&m), "getting user by email"); err != nil {
		return user.User{}, err
	}
	return m.user(), nil
}

func (t *tx) QueryUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	q := t.q(ctx).Model(&userModel{})
	if len(filter.Roles) > 0 {
		roles := make([]int, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roles = append(roles, int(role))
		}
		q = q.Where("role IN ?", roles)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}
	if !filter.CreatedFrom.IsZero() {
		q = q.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		q = q.Where("created_at <= ?", filter.CreatedTo.UTC())
	}

	var models []userModel
	q = q.Order(core.OrderingClause(orderings, userOrderings, "name ASC") + ", id ASC")
	if err := first(q.Find(&models), "querying users"); err != nil {
		return nil, err
	}

	users := make([]user.User, 0, len(models))
	for _, m := range models {
		users = append(users, m.user())
	}
	return users, nil
}

func (t *tx) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	m := newUserModel(usr)
	m.ID = 0
	if err := first(t.q(ctx).Create(&m), "creating user"); err != nil {
		return user.User{}, err
	}
	usr.ID = m.ID
	return usr, nil
}

func (t *tx) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	m := newUserModel(usr)
	res := t.q(ctx).Model(&userModel{ID: usr.ID}).
		Select("name", "email", "password_hash", "updated_at", "last_login").
		Updates(&m)
	if err := affectedOne(res, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (t *tx) DeleteUser(ctx context.Context, id int) error {
	return affectedOne(t.q(ctx).Delete(&userModel{}, id), "deleting user")
}

func (t *tx) CountUserDependents(ctx context.Context, id int) (int, error) {
	var n int
	res := t.q(ctx).Raw(`SELECT (SELECT COUNT(*) FROM courses WHERE teacher_id = ?)
		+ (SELECT COUNT(*) FROM enrollments WHERE student_id = ?)
		+ (SELECT COUNT(*) FROM attendances WHERE marked_by_teacher_id = ?)`, id, id, id).Scan(&n)
	if err := first(res, "counting user dependents"); err != nil {
		return 0, err
	}
	return n, nil
}
