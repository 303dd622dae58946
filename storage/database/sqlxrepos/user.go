package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
)

const userColumns = "id, name, email, password_hash, role, created_at, updated_at, last_login"

var userOrderings = map[string]string{
	"id":         "id",
	"name":       "name",
	"email":      "email",
	"created_at": "created_at",
}

type userRow struct {
	ID           int       `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	Role         int       `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		Role:         int(usr.Role),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if !usr.LastLogin.IsZero() {
		row.LastLogin = null.TimeFrom(usr.LastLogin.UTC())
	}
	return row
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         user.Role(r.Role),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func (t *tx) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var row userRow
	q := "SELECT " + userColumns + " FROM users WHERE id = $1"
	if err := t.get(ctx, &row, "getting user by ID", q, id); err != nil {
		return user.User{}, err
	}
	return row.user(), nil
}

func (t *tx) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	q := "SELECT " + userColumns + " FROM users WHERE LOWER(email) = LOWER($1)"
	if err := t.get(ctx, &row, "getting user by email", q, email); err != nil {
		return user.User{}, err
	}
	return row.user(), nil
}

func (t *tx) QueryUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	if len(filter.Roles) > 0 {
		roles := make([]int, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roles = append(roles, int(role))
		}
		conds = append(conds, "role IN (?)")
		args = append(args, roles)
	}
	if filter.Search != "" {
		conds = append(conds, "(name ILIKE ? OR email ILIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	q := "SELECT " + userColumns + " FROM users"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY " + core.OrderingClause(orderings, userOrderings, "name ASC") + ", id ASC"

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, err
	}
	var rows []userRow
	if err = t.sel(ctx, &rows, "querying users", t.tx.Rebind(q), args...); err != nil {
		return nil, err
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (t *tx) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (name, email, password_hash, role, created_at, updated_at, last_login)
		VALUES (:name, :email, :password_hash, :role, :created_at, :updated_at, :last_login)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, t.tx, q, newUserRow(usr))
	if err != nil {
		return user.User{}, classify(err, "creating user")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&usr.ID); err != nil {
			return user.User{}, classify(err, "creating user")
		}
	}
	return usr, classify(rows.Err(), "creating user")
}

func (t *tx) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET name = :name, email = :email, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	q, args, err := t.tx.BindNamed(q, newUserRow(usr))
	if err != nil {
		return user.User{}, err
	}
	if err = t.execOne(ctx, "updating user", q, args...); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (t *tx) DeleteUser(ctx context.Context, id int) error {
	return t.execOne(ctx, "deleting user", "DELETE FROM users WHERE id = $1", id)
}

func (t *tx) CountUserDependents(ctx context.Context, id int) (int, error) {
	q := `SELECT (SELECT COUNT(*) FROM courses WHERE teacher_id = $1)
		+ (SELECT COUNT(*) FROM enrollments WHERE student_id = $1)
		+ (SELECT COUNT(*) FROM attendances WHERE marked_by_teacher_id = $1)`
	return t.count(ctx, "counting user dependents", q, id)
}
