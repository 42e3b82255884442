package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/user"
)

// createSuperUser creates a superadmin, or promotes the user owning the email.
func (cli *commandLine) createSuperUser(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	if err := user.ValidatePassword(pwd, name, email); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email, CreatedAt: now}
	}
	usr.Name = name
	usr.Role = user.RoleSuperAdmin
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	if usr, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "superadmin %s saved\n", usr.Email)
	return nil
}
