package assessment_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/school"
	"github.com/trezcool/matokeo/testutil"
)

func TestCreateAssessment(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	other := app.Teacher(t, "Ms Other")
	student := app.Student(t, "Jane")
	class := app.Class(t, admin, teacher, student)

	_, err := app.AssessmentSvc.Create(ctx, other, class.ID, assessment.NewAssessment{Title: "Quiz"})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = app.AssessmentSvc.Create(ctx, teacher, student.ID, assessment.NewAssessment{Title: "Quiz"})
	assert.ErrorIs(t, err, school.ErrClassNotFound)

	a, err := app.AssessmentSvc.Create(ctx, teacher, class.ID, assessment.NewAssessment{Title: "Quiz", PassMark: testutil.Float(60)})
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, a.CreatedBy)
	assert.Equal(t, 60.0, *a.PassMark)

	// the enrolled student sees it, the other teacher does not
	as, err := app.AssessmentSvc.List(ctx, student, class.ID)
	require.NoError(t, err)
	assert.Len(t, as, 1)
	_, err = app.AssessmentSvc.Get(ctx, other, a.ID)
	assert.ErrorIs(t, err, assessment.ErrNotFound)
}

func TestRecordAttempt(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	jane := app.Student(t, "Jane")
	stranger := app.Student(t, "Stranger")
	class := app.Class(t, admin, teacher, jane)
	a := app.Assessment(t, teacher, class.ID, "Quiz")

	_, err := app.AssessmentSvc.RecordAttempt(ctx, jane, a.ID, assessment.RecordAttempt{StudentID: jane.ID, Status: assessment.StatusInProgress})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = app.AssessmentSvc.RecordAttempt(ctx, teacher, a.ID, assessment.RecordAttempt{StudentID: stranger.ID, Status: assessment.StatusInProgress})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "student_id", vErr.Fields[0].Field)

	at, err := app.AssessmentSvc.RecordAttempt(ctx, teacher, a.ID, assessment.RecordAttempt{StudentID: jane.ID, Status: assessment.StatusInProgress})
	require.NoError(t, err)
	assert.Nil(t, at.CompletedAt)
	assert.Equal(t, "Jane", at.StudentName)

	completed, err := app.AssessmentSvc.RecordAttempt(ctx, teacher, a.ID, assessment.RecordAttempt{
		StudentID: jane.ID,
		Status:    assessment.StatusCompleted,
		Score:     testutil.Float(72.5),
	})
	require.NoError(t, err)
	assert.Equal(t, at.ID, completed.ID, "one attempt per student")
	assert.NotNil(t, completed.CompletedAt)

	attempts, err := app.AssessmentSvc.ListAttempts(ctx, teacher, a.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 72.5, *attempts[0].Score)
}

func TestCompletedScores(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	jane := app.Student(t, "Jane")
	john := app.Student(t, "John")
	mo := app.Student(t, "Mo")
	zoe := app.Student(t, "Zoe")
	class := app.Class(t, admin, teacher, jane, john, mo, zoe)
	a := app.Assessment(t, teacher, class.ID, "Quiz")

	app.Complete(t, teacher, a.ID, jane, 80)
	app.Attempt(t, teacher, a.ID, john, assessment.StatusInProgress, testutil.Float(40))
	app.Attempt(t, teacher, a.ID, mo, assessment.StatusAbandoned, nil)
	app.Complete(t, teacher, a.ID, zoe, 0)

	scores, err := app.AssessmentSvc.CompletedScores(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	got := map[string]float64{}
	for _, s := range scores {
		got[s.DisplayName] = s.Score
	}
	assert.Equal(t, map[string]float64{"Jane": 80, "Zoe": 0}, got)
}

func TestRecordAttemptValidation(t *testing.T) {
	app := testutil.NewApp(t)

	tests := []struct {
		name      string
		ra        assessment.RecordAttempt
		wantValid bool
	}{
		{name: "completed without score", ra: assessment.RecordAttempt{StudentID: "8c7b4d4e-8f5c-4e8e-9a59-3f5b9c1a2d10", Status: "completed"}},
		{name: "unknown status", ra: assessment.RecordAttempt{StudentID: "8c7b4d4e-8f5c-4e8e-9a59-3f5b9c1a2d10", Status: "graded"}},
		{name: "score out of range", ra: assessment.RecordAttempt{StudentID: "8c7b4d4e-8f5c-4e8e-9a59-3f5b9c1a2d10", Status: "completed", Score: testutil.Float(101)}},
		{name: "valid", ra: assessment.RecordAttempt{StudentID: "8c7b4d4e-8f5c-4e8e-9a59-3f5b9c1a2d10", Status: " Completed ", Score: testutil.Float(100)}, wantValid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ra.Validate(app.Validate)
			if tt.wantValid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func questionsWorkbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header := []interface{}{"question", "choice_a", "choice_b", "choice_c", "choice_d", "answer", "points"}
	rows = append([][]interface{}{header}, rows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}

func TestQuestionBanks(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	other := app.Teacher(t, "Ms Other")
	student := app.Student(t, "Jane")

	subj, err := app.SchoolSvc.CreateSubject(ctx, admin, school.NewSubject{Code: "GEO", Name: "Geography"})
	require.NoError(t, err)

	_, err = app.AssessmentSvc.CreateBank(ctx, student, assessment.NewQuestionBank{SubjectID: subj.ID, Name: "Capitals"})
	assert.ErrorIs(t, err, core.ErrForbidden)

	bank, err := app.AssessmentSvc.CreateBank(ctx, teacher, assessment.NewQuestionBank{SubjectID: subj.ID, Name: "Capitals"})
	require.NoError(t, err)

	_, err = app.AssessmentSvc.GetBank(ctx, other, bank.ID)
	assert.ErrorIs(t, err, assessment.ErrBankNotFound)

	qs, err := app.AssessmentSvc.AddQuestions(ctx, teacher, bank.ID, assessment.NewQuestion{
		Text: "Capital of Kenya?", Choices: []string{"Nairobi", "Mombasa"}, Answer: "a", Points: 1,
	})
	require.NoError(t, err)
	require.Len(t, qs, 1)

	imported, err := app.AssessmentSvc.ImportQuestions(ctx, teacher, bank.ID, questionsWorkbook(t,
		[]interface{}{"Capital of Congo?", "Kinshasa", "Lubumbashi", "Goma", "", "a", 2},
		[]interface{}{},
		[]interface{}{"Capital of Tanzania?", "Arusha", "Dodoma", "", "", "B", ""},
	), app.Validate)
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, []string{"Kinshasa", "Lubumbashi", "Goma"}, imported[0].Choices)
	assert.Equal(t, 2.0, imported[0].Points)
	assert.Equal(t, "b", imported[1].Answer)
	assert.Equal(t, 1.0, imported[1].Points)

	// one bad row: nothing imported
	_, err = app.AssessmentSvc.ImportQuestions(ctx, teacher, bank.ID, questionsWorkbook(t,
		[]interface{}{"Capital of Rwanda?", "Kigali", "Butare", "", "", "a", 1},
		[]interface{}{"Capital of Uganda?", "Kampala", "", "", "", "a", 1},
	), app.Validate)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "question_2.choices", vErr.Fields[0].Field)

	full, err := app.AssessmentSvc.GetBank(ctx, admin, bank.ID)
	require.NoError(t, err)
	assert.Len(t, full.Questions, 3)

	require.NoError(t, app.AssessmentSvc.DeleteQuestion(ctx, teacher, bank.ID, qs[0].ID))
	err = app.AssessmentSvc.DeleteQuestion(ctx, teacher, bank.ID, qs[0].ID)
	assert.ErrorIs(t, err, assessment.ErrQuestionNotFound)

	banks, err := app.AssessmentSvc.ListBanks(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, banks)
}

func TestParseQuestionsXLSXBadHeader(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "text"))
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))

	_, err := assessment.ParseQuestionsXLSX(buf)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = assessment.ParseQuestionsXLSX(bytes.NewBufferString("not a workbook"))
	assert.ErrorAs(t, err, &vErr)
}
