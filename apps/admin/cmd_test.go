package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/report"
	"github.com/trezcool/matokeo/core/user"
	"github.com/trezcool/matokeo/storage/cache"
	"github.com/trezcool/matokeo/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.App) {
	t.Helper()
	app := testutil.NewApp(t)
	return &commandLine{
		users:        app.UserSvc,
		reports:      app.ReportSvc,
		cache:        core.NewCache(cache.NewMemoryStore(), "test"),
		cacheBackend: cache.BackendMemory,
		validate:     app.Validate,
		translator:   app.Translator,
		out:          new(bytes.Buffer),
	}, app
}

// mockPasswords makes the password prompts return pwds, in order.
func mockPasswords(t *testing.T, pwds ...string) {
	t.Helper()
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })

	var i int
	readPasswordFunc = func(fd int) ([]byte, error) {
		if i >= len(pwds) {
			return nil, nil
		}
		i++
		return []byte(pwds[i-1]), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwds       []string
	wantErr    error
	wantErrStr string
	wantErrIn  string
}

func (tt cliTest) run(t *testing.T, cl *commandLine) error {
	t.Helper()
	mockPasswords(t, tt.pwds...)
	err := cl.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	case tt.wantErrIn != "":
		assert.ErrorContains(t, err, tt.wantErrIn)
	default:
		assert.NoError(t, err)
	}
	return err
}

func Test_commandLine_help(t *testing.T) {
	cl, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = tt.run(t, cl)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cl, _ := setup(t)

	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })

	t.Run("no database", func(t *testing.T) {
		assert.ErrorIs(t, orig(context.Background(), nil, "up"), errNoDatabase)
	})

	migrateFunc = func(_ context.Context, _ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "question_tags", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = tt.run(t, cl)
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cl, app := setup(t)

	usr := testutil.CreateUser(t, app.Users, "User", "awesome", "awesome@school.test", testutil.Password, []string{user.RoleTeacher}, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", usr.Username}, wantErr: errPasswordEmpty},
		{name: "passwords mismatch", args: []string{"resetpassword", "-username", usr.Username}, pwds: []string{"N3w&Secret!", "other"}, wantErr: errPasswordMatch},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwds: []string{"N3w&Secret!", "N3w&Secret!"}, wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-username", usr.Username}, pwds: []string{"12345678", "12345678"}, wantErrIn: "password: "},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwds: []string{"N3w&Secret!", "N3w&Secret!"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, pwds: []string{"An0ther&Secret", "An0ther&Secret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(t, cl); err != nil {
				return
			}

			refreshed, err := app.UserSvc.GetByID(context.Background(), usr.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.pwds[0]))
			assert.Equal(t, usr.Username, refreshed.Username)
			assert.Equal(t, usr.Roles, refreshed.Roles)
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cl, app := setup(t)
	ctx := context.Background()
	pwds := []string{testutil.Password, testutil.Password}

	tests := []cliTest{
		{name: "no username nor email", args: []string{"adduser", "-name", "John"}, wantErr: errHelp},
		{
			name: "unknown role", args: []string{"adduser", "-username", "jdoe", "-role", "janitor"},
			wantErrStr: fmt.Sprintf("unknown role %q, must be one of %v", "janitor", user.AllRoles),
		},
		{name: "no password", args: []string{"adduser", "-username", "jdoe"}, wantErr: errPasswordEmpty},
		{name: "invalid username", args: []string{"adduser", "-username", "jd"}, pwds: pwds, wantErrIn: "username: "},
		{name: "create", args: []string{"adduser", "-username", "JDoe", "-email", "jdoe@school.test", "-name", "John Doe", "-role", user.RoleTeacher}, pwds: pwds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = tt.run(t, cl)
		})
	}

	created, err := app.UserSvc.GetByUsernameOrEmail(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", created.Name)
	assert.Equal(t, "jdoe@school.test", created.Email)
	assert.Equal(t, []string{user.RoleTeacher}, created.Roles)
	assert.True(t, created.IsActive)
	assert.NoError(t, created.CheckPassword(testutil.Password))

	t.Run("update", func(t *testing.T) {
		_ = cliTest{
			args: []string{"adduser", "-username", "jdoe", "-email", "jdoe@school.test", "-name", "John Doe", "-role", user.RoleAdmin},
			pwds: []string{"N3w&Secret!", "N3w&Secret!"},
		}.run(t, cl)

		updated, err := app.UserSvc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{user.RoleTeacher, user.RoleAdmin}, updated.Roles)
		assert.NoError(t, updated.CheckPassword("N3w&Secret!"))

		byEmail, err := app.UserSvc.GetByEmail(ctx, "jdoe@school.test")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)
	})
}

func Test_commandLine_report(t *testing.T) {
	cl, app := setup(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	amani := app.Student(t, "Amani")
	baraka := app.Student(t, "Baraka")
	class := app.Class(t, admin, teacher, amani, baraka)
	a := app.Assessment(t, teacher, class.ID, "Final Exam")
	app.Complete(t, teacher, a.ID, amani, 71)
	app.Complete(t, teacher, a.ID, baraka, 93.5)

	dir := t.TempDir()

	tests := []cliTest{
		{name: "no assessment", args: []string{"report"}, wantErr: errHelp},
		{name: "unsupported format", args: []string{"report", "-a", a.ID, "-f", "docx"}, wantErrStr: `unsupported format "docx"`},
		{name: "unknown assessment", args: []string{"report", "-a", "unknown"}, wantErrIn: "assessment not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = tt.run(t, cl)
		})
	}

	for format, prefix := range map[string]string{"pdf": "%PDF", "xlsx": "PK", "html": "<!DOCTYPE html>"} {
		t.Run(format, func(t *testing.T) {
			output := filepath.Join(dir, "results."+format)
			_ = cliTest{args: []string{"report", "-a", a.ID, "-f", format, "-o", output}}.run(t, cl)

			data, err := os.ReadFile(output)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(bytes.TrimSpace(data), []byte(prefix)), "unexpected %s content", format)
		})
	}

	t.Run("render failure leaves no file", func(t *testing.T) {
		reportRenderers["broken"] = func(w io.Writer, _ report.AssessmentReport) error {
			_, _ = io.WriteString(w, "partial")
			return errors.New("out of ink")
		}
		t.Cleanup(func() { delete(reportRenderers, "broken") })

		output := filepath.Join(dir, "results.broken")
		_ = cliTest{args: []string{"report", "-a", a.ID, "-f", "broken", "-o", output}, wantErrStr: "rendering broken report: out of ink"}.run(t, cl)

		_, err := os.Stat(output)
		assert.True(t, os.IsNotExist(err), "partial report left on disk")
	})
}

func Test_commandLine_cacheClear(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		cl, _ := setup(t)
		require.NoError(t, cl.cache.Set(ctx, "subjects", []string{"MATH101"}, time.Minute))

		_ = cliTest{args: []string{"cache", "clear"}}.run(t, cl)

		var got []string
		assert.NoError(t, cl.cache.Get(ctx, "subjects", &got))
		assert.Contains(t, cl.out.(*bytes.Buffer).String(), "nothing cleared")
	})

	t.Run("disk backend", func(t *testing.T) {
		cl, _ := setup(t)
		store, err := cache.NewDiskStore(t.TempDir())
		require.NoError(t, err)
		cl.cache = core.NewCache(store, "test")
		cl.cacheBackend = cache.BackendDisk
		require.NoError(t, cl.cache.Set(ctx, "subjects", []string{"MATH101"}, time.Minute))

		_ = cliTest{args: []string{"cache", "clear"}}.run(t, cl)

		var got []string
		assert.ErrorIs(t, cl.cache.Get(ctx, "subjects", &got), core.ErrCacheMiss)
		assert.Contains(t, cl.out.(*bytes.Buffer).String(), "disk cache cleared")
	})
}
