package report_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/user"
	appfs "github.com/trezcool/matokeo/fs"
	"github.com/trezcool/matokeo/testutil"
)

func TestAssessmentReport(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	other := app.Teacher(t, "Ms Other")
	amani := app.Student(t, "Amani")
	baraka := app.Student(t, "Baraka")
	chausiku := app.Student(t, "Chausiku")
	dalila := app.Student(t, "Dalila")
	class := app.Class(t, admin, teacher, amani, baraka, chausiku, dalila)
	a := app.Assessment(t, teacher, class.ID, "Mid-term")

	app.Complete(t, teacher, a.ID, amani, 64)
	app.Complete(t, teacher, a.ID, baraka, 88.25)
	app.Complete(t, teacher, a.ID, chausiku, 64)
	app.Attempt(t, teacher, a.ID, dalila, assessment.StatusInProgress, nil)

	tests := []struct {
		name    string
		viewer  user.User
		wantErr error
	}{
		{name: "class teacher", viewer: teacher},
		{name: "admin", viewer: admin},
		{name: "other teacher", viewer: other, wantErr: core.ErrForbidden},
		{name: "student", viewer: amani, wantErr: core.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := app.ReportSvc.AssessmentReport(ctx, tt.viewer, a.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			require.Len(t, rep.Results, 3)
			assert.Equal(t, "Baraka", rep.Results[0].DisplayName)
			assert.Equal(t, 88.3, rep.Results[0].Score)
			assert.Equal(t, []int{1, 2, 2}, []int{rep.Results[0].Position, rep.Results[1].Position, rep.Results[2].Position})
			assert.Equal(t, "2nd", rep.Results[2].Ordinal)

			assert.Equal(t, 3, rep.Summary.ParticipantCount)
			assert.Equal(t, 4, rep.Summary.RosterSize)
			assert.Equal(t, 75.0, rep.Summary.ParticipationRate)
			require.NotNil(t, rep.Summary.AverageScore)
			assert.Equal(t, 72.1, *rep.Summary.AverageScore)
			assert.Equal(t, app.Conf.SchoolName, rep.SchoolName)
		})
	}

	_, err := app.ReportSvc.AssessmentReport(ctx, admin, class.ID)
	assert.ErrorIs(t, err, assessment.ErrNotFound)
}

func TestAssessmentReportEmpty(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	class := app.Class(t, admin, teacher, app.Student(t, "Amani"))
	a := app.Assessment(t, teacher, class.ID, "Quiz")

	rep, err := app.ReportSvc.AssessmentReportOf(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, rep.IsEmpty())
	assert.Empty(t, rep.Results)
	assert.Nil(t, rep.Summary.AverageScore)
	assert.Equal(t, 0.0, rep.Summary.ParticipationRate)
	assert.Len(t, rep.Distribution, 10)
}

func TestAssessmentPassMark(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	amani := app.Student(t, "Amani")
	baraka := app.Student(t, "Baraka")
	class := app.Class(t, admin, teacher, amani, baraka)

	strict, err := app.AssessmentSvc.Create(ctx, teacher, class.ID, assessment.NewAssessment{Title: "Strict", PassMark: testutil.Float(70)})
	require.NoError(t, err)
	lenient := app.Assessment(t, teacher, class.ID, "Lenient")
	for _, id := range []string{strict.ID, lenient.ID} {
		app.Complete(t, teacher, id, amani, 65)
		app.Complete(t, teacher, id, baraka, 40)
	}

	rep, err := app.ReportSvc.AssessmentReport(ctx, teacher, strict.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, rep.Summary.PassMark)
	assert.Equal(t, 0, rep.Summary.PassCount)

	rep, err = app.ReportSvc.AssessmentReport(ctx, teacher, lenient.ID)
	require.NoError(t, err)
	assert.Equal(t, app.Conf.Report.PassMark, rep.Summary.PassMark)
	assert.Equal(t, 1, rep.Summary.PassCount)
}

func TestStudentReport(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	admin := app.Admin(t)
	maths := app.Teacher(t, "Maths Teacher")
	history := app.Teacher(t, "History Teacher")
	stranger := app.Teacher(t, "Stranger")
	amani := app.Student(t, "Amani")
	baraka := app.Student(t, "Baraka")

	mathsClass := app.Class(t, admin, maths, amani, baraka)
	historyClass := app.Class(t, admin, history, amani)

	quiz := app.Assessment(t, maths, mathsClass.ID, "Maths quiz")
	app.Complete(t, maths, quiz.ID, amani, 55)
	app.Complete(t, maths, quiz.ID, baraka, 90)
	essay := app.Assessment(t, history, historyClass.ID, "History essay")

	tests := []struct {
		name        string
		viewer      user.User
		wantErr     error
		wantEntries []string
	}{
		{name: "self", viewer: amani, wantEntries: []string{"Maths quiz", "History essay"}},
		{name: "admin", viewer: admin, wantEntries: []string{"Maths quiz", "History essay"}},
		{name: "one of the teachers", viewer: history, wantEntries: []string{"History essay"}},
		{name: "not their teacher", viewer: stranger, wantErr: core.ErrForbidden},
		{name: "another student", viewer: baraka, wantErr: core.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := app.ReportSvc.StudentReport(ctx, tt.viewer, amani.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			titles := make([]string, 0, len(rep.Entries))
			for _, e := range rep.Entries {
				titles = append(titles, e.AssessmentTitle)
			}
			assert.ElementsMatch(t, tt.wantEntries, titles)

			for _, e := range rep.Entries {
				switch e.AssessmentID {
				case quiz.ID:
					assert.True(t, e.Completed)
					assert.Equal(t, "2nd", e.Ordinal)
					assert.Equal(t, 55.0, *e.Score)
					assert.Equal(t, 72.5, *e.ClassAverage)
					assert.Equal(t, 2, e.ParticipantCount)
				case essay.ID:
					assert.False(t, e.Completed)
					assert.Nil(t, e.Score)
					assert.Nil(t, e.ClassAverage)
				}
			}
		})
	}

	_, err := app.ReportSvc.StudentReport(ctx, admin, maths.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestEmailAssessmentReport(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	amani := app.Student(t, "Amani")
	class := app.Class(t, admin, teacher, amani)
	a := app.Assessment(t, teacher, class.ID, "Final Exam")
	app.Complete(t, teacher, a.ID, amani, 81)

	require.NoError(t, app.ReportSvc.EmailAssessmentReport(ctx, teacher, a.ID))

	sent := app.Mail.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, teacher.Email, msg.To[0].Address)
	assert.Equal(t, "Results: Final Exam", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "results-final-exam.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	assert.True(t, strings.Contains(msg.TextContent, "Participants: 1 / 1"))
	assert.True(t, strings.Contains(msg.TextContent, "Average score: 81.0"))

	noEmail := testutil.CreateUser(t, app.Users, "No Mail", "nomail", "", "", []string{user.RoleAdmin}, true)
	err := app.ReportSvc.EmailAssessmentReport(ctx, noEmail, a.ID)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	t.Run("missing template", func(t *testing.T) {
		t.Cleanup(func() { core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, app.Conf, app.Logger) })
		core.ParseEmailTemplates(fstest.MapFS{}, appfs.EmailTemplatesDir, app.Conf, app.Logger)
		app.Mail.Reset()

		err := app.ReportSvc.EmailAssessmentReport(ctx, teacher, a.ID)
		assert.ErrorContains(t, err, `email template "assessment_report" not found`)
		assert.Empty(t, app.Mail.SentMessages())
	})
}
