//go:build integration

// Run against a live postgres: `ENV=DEV go test -tags integration ./storage/database/postgres/`.
package pgrepos_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/school"
	"github.com/trezcool/matokeo/core/user"
	"github.com/trezcool/matokeo/storage/database"
	pgrepos "github.com/trezcool/matokeo/storage/database/postgres"
)

func TestPostgresRepositories(t *testing.T) {
	conf := core.NewConfig()
	if conf.Database.Engine != "postgres" {
		t.Skipf("database engine is %q", conf.Database.Engine)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	require.NoError(t, database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db.DB, "up"))

	users := pgrepos.NewUserRepository(db)
	schools := pgrepos.NewSchoolRepository(db)
	assessments := pgrepos.NewAssessmentRepository(db)

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	now := time.Now().UTC().Truncate(time.Microsecond)
	newUser := func(name, role string) user.User {
		usr, err := users.CreateUser(ctx, user.User{
			Name: name, Username: name + suffix, Email: name + suffix + "@school.test",
			IsActive: true, Roles: []string{role}, PasswordHash: []byte("hash"), CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
		return usr
	}
	teacher := newUser("teacher", user.RoleTeacher)
	student := newUser("student", user.RoleStudent)

	subj, err := schools.CreateSubject(ctx, school.Subject{Code: "S" + suffix, Name: "Integration", CreatedAt: now})
	require.NoError(t, err)
	class, err := schools.CreateClass(ctx, school.Class{Name: "Form " + suffix, Semester: "2024-S1", SubjectID: subj.ID, TeacherID: teacher.ID, CreatedAt: now})
	require.NoError(t, err)

	t.Run("enroll skips enrolled students", func(t *testing.T) {
		require.NoError(t, schools.Enroll(ctx, class.ID, student.ID))
		require.NoError(t, schools.Enroll(ctx, class.ID, student.ID))

		n, err := schools.CountRoster(ctx, class.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		classes, err := schools.QueryClasses(ctx, school.ClassFilter{StudentID: student.ID, TeacherID: teacher.ID})
		require.NoError(t, err)
		require.Len(t, classes, 1)
		assert.Equal(t, class.ID, classes[0].ID)
	})

	t.Run("save attempt upserts", func(t *testing.T) {
		a, err := assessments.CreateAssessment(ctx, assessment.Assessment{ClassID: class.ID, Title: "Quiz", CreatedBy: teacher.ID, CreatedAt: now})
		require.NoError(t, err)

		first, err := assessments.SaveAttempt(ctx, assessment.Attempt{AssessmentID: a.ID, StudentID: student.ID, Status: assessment.StatusInProgress, UpdatedAt: now})
		require.NoError(t, err)

		score := 87.5
		second, err := assessments.SaveAttempt(ctx, assessment.Attempt{
			AssessmentID: a.ID, StudentID: student.ID, Status: assessment.StatusCompleted,
			Score: &score, CompletedAt: &now, UpdatedAt: now,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		completed, err := assessments.QueryAttempts(ctx, a.ID, assessment.StatusCompleted)
		require.NoError(t, err)
		require.Len(t, completed, 1)
		require.NotNil(t, completed[0].Score)
		assert.Equal(t, score, *completed[0].Score)

		_, err = assessments.SaveAttempt(ctx, assessment.Attempt{AssessmentID: uuid.NewString(), StudentID: student.ID, Status: assessment.StatusInProgress, UpdatedAt: now})
		assert.ErrorIs(t, err, assessment.ErrNotFound)
	})
}
