package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/report"
	"github.com/trezcool/matokeo/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp          = errors.New("help provided")
	errPasswordEmpty = errors.New("the password cannot be empty")
	errPasswordMatch = errors.New("the passwords do not match")
)

type commandLine struct {
	db           *sql.DB // nil with the in-memory engine
	users        *user.Service
	reports      *report.Service
	cache        *core.Cache
	cacheBackend string
	validate     *validator.Validate
	translator   ut.Translator
	out          io.Writer
}

func (cl *commandLine) app() *cli.App {
	return &cli.App{
		Name:      "admin",
		Usage:     "administration commands of the results API",
		Writer:    cl.out,
		ErrWriter: cl.out,
		Action: func(c *cli.Context) error {
			_ = cli.ShowAppHelp(c)
			return errHelp
		},
		Commands: []*cli.Command{
			cl.addUserCommand(),
			cl.resetPasswordCommand(),
			cl.migrateCommand(),
			cl.reportCommand(),
			cl.cacheCommand(),
		},
	}
}

func (cl *commandLine) run(args []string) error {
	return cl.app().RunContext(context.Background(), args)
}

func (cl *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cl.out, format, args...)
}

// usage shows the help of the running command and stops it.
func usage(c *cli.Context) error {
	_ = cli.ShowSubcommandHelp(c)
	return errHelp
}

// promptPassword reads the password and its confirmation from the terminal.
func (cl *commandLine) promptPassword() (string, error) {
	read := func(prompt string) (string, error) {
		cl.printf("%s", prompt)
		pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
		cl.printf("\n")
		return string(pwd), err
	}

	pwd, err := read("Enter password: ")
	if err != nil {
		return "", err
	}
	if pwd == "" {
		return "", errPasswordEmpty
	}
	confirm, err := read("Confirm password: ")
	if err != nil {
		return "", err
	}
	if confirm != pwd {
		return "", errPasswordMatch
	}
	return pwd, nil
}

// describe turns validation errors into a readable error, one "field: message" per line.
func (cl *commandLine) describe(err error) error {
	var fieldErrs validator.ValidationErrors
	var valErr *core.ValidationError
	switch {
	case errors.As(err, &fieldErrs):
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fe.Field()+": "+fe.Translate(cl.translator))
		}
		sort.Strings(msgs)
		return errors.New(strings.Join(msgs, "\n"))
	case errors.As(err, &valErr):
		msgs := make([]string, 0, len(valErr.Fields))
		for _, fld := range valErr.Fields {
			msgs = append(msgs, fld.Field+": "+fld.Error)
		}
		if len(msgs) == 0 {
			return err
		}
		return errors.New(strings.Join(msgs, "\n"))
	}
	return err
}
