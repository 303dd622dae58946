package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
)

var userOrderings = map[string]func(a, b user.User) int{
	"id":         func(a, b user.User) int { return a.ID - b.ID },
	"name":       func(a, b user.User) int { return strings.Compare(a.Name, b.Name) },
	"email":      func(a, b user.User) int { return strings.Compare(a.Email, b.Email) },
	"created_at": func(a, b user.User) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (t *tx) GetUserByID(ctx context.Context, id int) (user.User, error) {
	if usr, ok := t.state.users[id]; ok {
		return usr, nil
	}
	return user.User{}, core.ErrNoRecord
}

func (t *tx) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	for _, usr := range t.state.users {
		if strings.EqualFold(usr.Email, email) {
			return usr, nil
		}
	}
	return user.User{}, core.ErrNoRecord
}

func (t *tx) QueryUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	users := make([]user.User, 0, len(t.state.users))
	for _, usr := range t.state.users {
		if filter.Match(usr) {
			users = append(users, usr)
		}
	}

	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.Slice(users, func(i, j int) bool {
		for _, ord := range orderings {
			cmp, ok := userOrderings[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(users[i], users[j]); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (t *tx) checkEmail(usr user.User) error {
	if other, err := t.GetUserByEmail(context.Background(), usr.Email); err == nil && other.ID != usr.ID {
		return conflict("email %q is already used by user %d", usr.Email, other.ID)
	}
	return nil
}

func (t *tx) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := t.checkEmail(usr); err != nil {
		return user.User{}, err
	}
	usr.ID = t.state.nextID("users")
	t.state.users[usr.ID] = usr
	return usr, nil
}

func (t *tx) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, ok := t.state.users[usr.ID]; !ok {
		return user.User{}, core.ErrNoRecord
	}
	if err := t.checkEmail(usr); err != nil {
		return user.User{}, err
	}
	t.state.users[usr.ID] = usr
	return usr, nil
}

func (t *tx) DeleteUser(ctx context.Context, id int) error {
	if _, ok := t.state.users[id]; !ok {
		return core.ErrNoRecord
	}
	if n, _ := t.CountUserDependents(ctx, id); n > 0 {
		return fkViolation("user %d is still referenced", id)
	}
	delete(t.state.users, id)
	return nil
}

func (t *tx) CountUserDependents(ctx context.Context, id int) (int, error) {
	var count int
	for _, crs := range t.state.courses {
		if crs.TeacherID == id {
			count++
		}
	}
	for _, enr := range t.state.enrollments {
		if enr.StudentID == id {
			count++
		}
	}
	for _, att := range t.state.attendances {
		if att.MarkedByTeacherID == id {
			count++
		}
	}
	return count, nil
}
