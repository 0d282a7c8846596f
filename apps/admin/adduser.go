package main

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/user"
)

func (cl *commandLine) addUserCommand() *cli.Command {
	return &cli.Command{
		Name:      "adduser",
		Usage:     "create a user, or update the one with the same username or email",
		UsageText: "admin adduser -username USERNAME [-email EMAIL] [-name NAME] [-role ROLE]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "the user's username"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "the user's email"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "the user's full name (defaults to the username)"},
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Value: user.RoleAdmin, Usage: "one of the user roles"},
		},
		Action: cl.addUser,
	}
}

// addUser updates or creates a user.User. The password is prompted.
func (cl *commandLine) addUser(c *cli.Context) error {
	uname := core.CleanString(c.String("username"), true /* lower */)
	email := core.CleanString(c.String("email"), true /* lower */)
	if uname == "" && email == "" {
		return usage(c)
	}
	name := core.CleanString(c.String("name"))
	if name == "" {
		name = uname
	}
	role := c.String("role")
	if !core.StringInSlice(role, user.AllRoles) {
		return errors.Errorf("unknown role %q, must be one of %v", role, user.AllRoles)
	}

	pwd, err := cl.promptPassword()
	if err != nil {
		return err
	}

	usr, err := cl.findUser(c, uname, email)
	switch {
	case core.IsNotFound(err):
		nu := user.NewUser{
			Name:            name,
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           []string{role},
		}
		if err = nu.Validate(cl.validate, cl.users); err != nil {
			return cl.describe(err)
		}
		if usr, err = cl.users.Create(c.Context, nu); err != nil {
			return err
		}
		cl.printf("user %q created\n", usr.Username)
		return nil
	case err != nil:
		return err
	}

	roles := usr.Roles
	if !core.StringInSlice(role, roles) {
		roles = append(roles, role)
	}
	active := true
	uu := user.UpdateUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		IsActive:        &active,
		Roles:           roles,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err = uu.Validate(usr, cl.validate, cl.users); err != nil {
		return cl.describe(err)
	}
	if usr, err = cl.users.Update(c.Context, usr, uu); err != nil {
		return err
	}
	cl.printf("user %q updated\n", usr.Username)
	return nil
}

// findUser returns the user matching uname, or else email.
func (cl *commandLine) findUser(c *cli.Context, uname, email string) (user.User, error) {
	err := user.ErrNotFound
	for _, key := range []string{uname, email} {
		if key == "" {
			continue
		}
		var usr user.User
		if usr, err = cl.users.GetByUsernameOrEmail(c.Context, key); err == nil {
			return usr, nil
		}
		if !core.IsNotFound(err) {
			return user.User{}, err
		}
	}
	return user.User{}, err
}
