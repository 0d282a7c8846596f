package main

import (
	"github.com/urfave/cli/v2"

	"github.com/trezcool/matokeo/core/user"
)

func (cl *commandLine) resetPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "resetpassword",
		Usage:     "reset user's password",
		UsageText: "admin resetpassword -username USERNAME|EMAIL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "The user's username or email. The password will be prompted next.",
			},
		},
		Action: cl.resetPassword,
	}
}

func (cl *commandLine) resetPassword(c *cli.Context) error {
	uname := c.String("username")
	if uname == "" {
		return usage(c)
	}
	pwd, err := cl.promptPassword()
	if err != nil {
		return err
	}

	usr, err := cl.users.GetByUsernameOrEmail(c.Context, uname)
	if err != nil {
		return err
	}
	uu := user.UpdateUser{Password: pwd, PasswordConfirm: pwd}
	if err = uu.Validate(usr, cl.validate, cl.users); err != nil {
		return cl.describe(err)
	}
	if _, err = cl.users.Update(c.Context, usr, uu); err != nil {
		return err
	}
	cl.printf("password of %q updated\n", usr.Username)
	return nil
}
