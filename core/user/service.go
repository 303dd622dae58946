package user

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
)

var (
	// errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("a user with this email already exists")
	errSignupRole         = "only Teacher and Student accounts can sign up"
)

type Service struct {
	db core.Transactor[Store]
}

func NewService(db core.Transactor[Store]) *Service {
	return &Service{db: db}
}

func notFound(id int) error {
	return core.NotFound("user %d not found", id)
}

// Get returns the user with the given id or a core.KindNotFound error.
func Get(ctx context.Context, store Getter, id int) (User, error) {
	usr, err := store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNoRecord) {
			return User{}, notFound(id)
		}
		return User{}, errors.Wrap(err, "getting user by ID")
	}
	return usr, nil
}

func checkEmailUniqueness(ctx context.Context, store Store, email string, exclUserID int) error {
	usr, err := store.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, core.ErrNoRecord):
		return nil
	case err != nil:
		return errors.Wrap(err, "getting user by email")
	case usr.ID == exclUserID:
		return nil
	}
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

// Create creates a user with any role. nu must have been validated.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := core.NowFunc()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.ParsedRole(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	err := svc.db.WithinTx(ctx, func(store Store) error {
		if err := checkEmailUniqueness(ctx, store, usr.Email, 0); err != nil {
			return err
		}
		var err error
		usr, err = store.CreateUser(ctx, usr)
		return errors.Wrap(err, "creating user")
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

// Signup is the public registration: only Teacher and Student accounts may be created.
func (svc *Service) Signup(ctx context.Context, nu NewUser) (User, error) {
	role := nu.ParsedRole()
	for _, r := range SignupRoles {
		if r == role {
			return svc.Create(ctx, nu)
		}
	}
	return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: errSignupRole})
}

func (svc *Service) GetByID(ctx context.Context, id int) (usr User, err error) {
	err = svc.db.WithinTx(ctx, func(store Store) error {
		usr, err = Get(ctx, store, id)
		return err
	})
	return usr, err
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (usr User, err error) {
	email = core.CleanString(email, true /* lower */)
	err = svc.db.WithinTx(ctx, func(store Store) error {
		usr, err = store.GetUserByEmail(ctx, email)
		if errors.Is(err, core.ErrNoRecord) {
			return core.NotFound("user with email %q not found", email)
		}
		return errors.Wrap(err, "getting user by email")
	})
	return usr, err
}

// Query returns users matching filter, ordered by name unless orderings say otherwise.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) (users []User, err error) {
	filter.Clean()
	err = svc.db.WithinTx(ctx, func(store Store) error {
		users, err = store.QueryUsers(ctx, filter, orderings...)
		return errors.Wrap(err, "querying users")
	})
	return users, err
}

// Update changes name, email or password. uu must have been validated against the current user.
func (svc *Service) Update(ctx context.Context, id int, uu UpdateUser) (usr User, err error) {
	err = svc.db.WithinTx(ctx, func(store Store) error {
		usr, err = Get(ctx, store, id)
		if err != nil {
			return err
		}
		if err = checkEmailUniqueness(ctx, store, uu.Email, id); err != nil {
			return err
		}

		usr.Name = uu.Name
		usr.Email = uu.Email
		usr.UpdatedAt = core.NowFunc()
		if uu.Password != "" {
			if err = usr.SetPassword(uu.Password); err != nil {
				return errors.Wrap(err, "setting password")
			}
		}
		usr, err = store.UpdateUser(ctx, usr)
		return errors.Wrap(err, "updating user")
	})
	return usr, err
}

// SetPassword replaces the password of user id, bypassing the password policy.
func (svc *Service) SetPassword(ctx context.Context, id int, pwd string) error {
	return svc.db.WithinTx(ctx, func(store Store) error {
		usr, err := Get(ctx, store, id)
		if err != nil {
			return err
		}
		if err = usr.SetPassword(pwd); err != nil {
			return errors.Wrap(err, "setting password")
		}
		usr.UpdatedAt = core.NowFunc()
		_, err = store.UpdateUser(ctx, usr)
		return errors.Wrap(err, "updating user")
	})
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (usr User, err error) {
	email = core.CleanString(email, true /* lower */)
	err = svc.db.WithinTx(ctx, func(store Store) error {
		usr, err = store.GetUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, core.ErrNoRecord) {
				return ErrInvalidCredentials
			}
			return errors.Wrap(err, "getting user by email")
		}
		if err = usr.CheckPassword(pwd); err != nil {
			return ErrInvalidCredentials
		}

		usr.LastLogin = core.NowFunc()
		usr, err = store.UpdateUser(ctx, usr)
		return errors.Wrap(err, "setting lastLogin")
	})
	return usr, err
}

// Delete removes user id. Users still referenced by courses, enrollments or attendance marks cannot be deleted.
func (svc *Service) Delete(ctx context.Context, actor Actor, id int) error {
	if !actor.IsAdmin() {
		return core.Unauthorized("only admins can delete users")
	}
	if actor.Is(id) {
		return core.Unauthorized("user %d cannot delete themselves", id)
	}

	return svc.db.WithinTx(ctx, func(store Store) error {
		if _, err := Get(ctx, store, id); err != nil {
			return err
		}
		count, err := store.CountUserDependents(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting user dependents")
		}
		if count > 0 {
			return core.InvalidState("user %d is still referenced by %d courses, enrollments or attendance records", id, count)
		}
		return errors.Wrap(store.DeleteUser(ctx, id), "deleting user")
	})
}
