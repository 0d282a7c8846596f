// Package testutil wires the services of the app on the in-memory database for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/report"
	"github.com/trezcool/matokeo/core/school"
	"github.com/trezcool/matokeo/core/user"
	appfs "github.com/trezcool/matokeo/fs"
	emailsvc "github.com/trezcool/matokeo/services/email"
	logsvc "github.com/trezcool/matokeo/services/logger"
	"github.com/trezcool/matokeo/storage/cache"
	inmemdb "github.com/trezcool/matokeo/storage/database/inmem"
)

const Password = "Tr0ub4dor&3x"

// App holds every service of the app, backed by one in-memory database.
type App struct {
	Conf       *core.Config
	Logger     core.Logger
	Mail       *emailsvc.ConsoleService
	Validate   *validator.Validate
	Translator ut.Translator

	Users          user.Repository
	UserSvc        *user.Service
	SchoolSvc      *school.Service
	AssessmentSvc  *assessment.Service
	ReportSvc      *report.Service
	AssessmentRepo assessment.Repository
}

func NewApp(t *testing.T) *App {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewDiscardLogger()
	mail := emailsvc.NewConsoleServiceMock(conf, logger)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	assessment.RegisterValidators(validate, translator)

	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)
	assessments := inmemdb.NewAssessmentRepository(db)
	schoolSvc := school.NewService(inmemdb.NewSchoolRepository(db), users, core.NewCache(cache.NewMemoryStore(), "test"), conf)
	assessmentSvc := assessment.NewService(assessments, schoolSvc, users)

	return &App{
		Conf:           conf,
		Logger:         logger,
		Mail:           mail,
		Validate:       validate,
		Translator:     translator,
		Users:          users,
		UserSvc:        user.NewService(users, mail, conf),
		SchoolSvc:      schoolSvc,
		AssessmentSvc:  assessmentSvc,
		ReportSvc:      report.NewService(assessmentSvc, schoolSvc, users, mail, conf),
		AssessmentRepo: assessments,
	}
}

// CreateUser saves a user straight to repo. The password is only set when pwd is not empty.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (app *App) createWithRole(t *testing.T, name string, role string) user.User {
	t.Helper()
	uname := gofakeit.Regex("[a-z]{10}")
	return CreateUser(t, app.Users, name, uname, uname+"@school.test", Password, []string{role}, true)
}

func (app *App) Admin(t *testing.T) user.User {
	t.Helper()
	return app.createWithRole(t, "Admin", user.RoleAdmin)
}

func (app *App) Teacher(t *testing.T, name string) user.User {
	t.Helper()
	return app.createWithRole(t, name, user.RoleTeacher)
}

func (app *App) Student(t *testing.T, name string) user.User {
	t.Helper()
	return app.createWithRole(t, name, user.RoleStudent)
}

// Class creates a subject and a class of it taught by teacher, with students enrolled.
func (app *App) Class(t *testing.T, admin, teacher user.User, students ...user.User) school.Class {
	t.Helper()
	ctx := context.Background()

	subj, err := app.SchoolSvc.CreateSubject(ctx, admin, school.NewSubject{
		Code: gofakeit.Regex("[A-Z]{4}[0-9]{3}"),
		Name: "Mathematics",
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	class, err := app.SchoolSvc.CreateClass(ctx, admin, school.NewClass{
		Name:      subj.Code + " A",
		Section:   "A",
		Semester:  "2024-S1",
		SubjectID: subj.ID,
		TeacherID: teacher.ID,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	if len(students) > 0 {
		ids := make([]string, 0, len(students))
		for _, s := range students {
			ids = append(ids, s.ID)
		}
		if err = app.SchoolSvc.Enroll(ctx, admin, class.ID, school.EnrollStudents{StudentIDs: ids}); err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
	}
	return class
}

func (app *App) Assessment(t *testing.T, teacher user.User, classID, title string) assessment.Assessment {
	t.Helper()
	a, err := app.AssessmentSvc.Create(context.Background(), teacher, classID, assessment.NewAssessment{Title: title})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return a
}

// Complete records the completed attempt of student at an assessment.
func (app *App) Complete(t *testing.T, teacher user.User, assessmentID string, student user.User, score float64) {
	t.Helper()
	app.Attempt(t, teacher, assessmentID, student, assessment.StatusCompleted, &score)
}

func (app *App) Attempt(t *testing.T, teacher user.User, assessmentID string, student user.User, status string, score *float64) {
	t.Helper()
	_, err := app.AssessmentSvc.RecordAttempt(context.Background(), teacher, assessmentID, assessment.RecordAttempt{
		StudentID: student.ID,
		Status:    status,
		Score:     score,
	})
	if err != nil {
		t.Fatalf("RecordAttempt() failed: %v", err)
	}
}

func Float(f float64) *float64 { return &f }
