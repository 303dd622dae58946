package main

import (
	"context"
	"fmt"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
)

// addUser creates a user.User, or resets the password of the user already registered with email.
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err = cli.usrSvc.SetPassword(ctx, usr.ID, pwd); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "user %d (%s) already exists: password updated\n", usr.ID, usr.Email)
		return nil
	case !core.IsKind(err, core.KindNotFound):
		return err
	}

	nu := user.NewUser{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Role:            role,
	}
	if err = nu.Validate(cli.validate); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.Create(ctx, nu); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %d (%s) created as %s\n", usr.ID, usr.Email, usr.Role)
	return nil
}
