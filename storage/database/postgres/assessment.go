package pgrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matokeo/core/assessment"
)

type assessmentRow struct {
	ID          string       `db:"id"`
	ClassID     string       `db:"class_id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	DueAt       null.Time    `db:"due_at"`
	PassMark    null.Float64 `db:"pass_mark"`
	CreatedBy   string       `db:"created_by"`
	CreatedAt   time.Time    `db:"created_at"`
}

func (row assessmentRow) assessment() assessment.Assessment {
	return assessment.Assessment{
		ID:          row.ID,
		ClassID:     row.ClassID,
		Title:       row.Title,
		Description: row.Description,
		DueAt:       utcPtr(row.DueAt),
		PassMark:    row.PassMark.Ptr(),
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type attemptRow struct {
	ID           string       `db:"id"`
	AssessmentID string       `db:"assessment_id"`
	StudentID    string       `db:"student_id"`
	Status       string       `db:"status"`
	Score        null.Float64 `db:"score"`
	CompletedAt  null.Time    `db:"completed_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (row attemptRow) attempt() assessment.Attempt {
	return assessment.Attempt{
		ID:           row.ID,
		AssessmentID: row.AssessmentID,
		StudentID:    row.StudentID,
		Status:       row.Status,
		Score:        row.Score.Ptr(),
		CompletedAt:  utcPtr(row.CompletedAt),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type questionRow struct {
	ID       string         `db:"id"`
	BankID   string         `db:"bank_id"`
	Position int            `db:"position"`
	Text     string         `db:"text"`
	Choices  pq.StringArray `db:"choices"`
	Answer   string         `db:"answer"`
	Points   float64        `db:"points"`
}

func (row questionRow) question() assessment.Question {
	return assessment.Question{
		ID:      row.ID,
		BankID:  row.BankID,
		Text:    row.Text,
		Choices: []string(row.Choices),
		Answer:  row.Answer,
		Points:  row.Points,
	}
}

type bankRow struct {
	ID        string    `db:"id"`
	SubjectID string    `db:"subject_id"`
	Name      string    `db:"name"`
	OwnerID   string    `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (row bankRow) bank() assessment.QuestionBank {
	return assessment.QuestionBank{
		ID:        row.ID,
		SubjectID: row.SubjectID,
		Name:      row.Name,
		OwnerID:   row.OwnerID,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

type assessmentRepository struct {
	db *sqlx.DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *sqlx.DB) assessment.Repository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	a.ID = uuid.NewString()
	row := assessmentRow{
		ID:          a.ID,
		ClassID:     a.ClassID,
		Title:       a.Title,
		Description: a.Description,
		DueAt:       nullTime(a.DueAt),
		PassMark:    null.Float64FromPtr(a.PassMark),
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO assessment (id, class_id, title, description, due_at, pass_mark, created_by, created_at)
		VALUES (:id, :class_id, :title, :description, :due_at, :pass_mark, :created_by, :created_at)`,
		row)
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	return row.assessment(), nil
}

func (repo *assessmentRepository) QueryAssessments(ctx context.Context, classIDs ...string) ([]assessment.Assessment, error) {
	as := make([]assessment.Assessment, 0)
	classIDs = validUUIDs(classIDs)
	if len(classIDs) == 0 {
		return as, nil
	}
	query, args, err := psql.Select("*").From("assessment").
		Where(sq.Eq{"class_id": classIDs}).
		OrderBy("created_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []assessmentRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	for _, row := range rows {
		as = append(as, row.assessment())
	}
	return as, nil
}

func (repo *assessmentRepository) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	if !isUUID(id) {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	var row assessmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM assessment WHERE id = $1`, id); err != nil {
		return assessment.Assessment{}, trapNoRowsErr(err, assessment.ErrNotFound, "finding assessment")
	}
	return row.assessment(), nil
}

// saveAttemptSQL upserts the one attempt of a student per assessment. The id of a replaced attempt is kept.
const saveAttemptSQL = `
	INSERT INTO attempt (id, assessment_id, student_id, status, score, completed_at, updated_at)
	VALUES (:id, :assessment_id, :student_id, :status, :score, :completed_at, :updated_at)
	ON CONFLICT (assessment_id, student_id) DO UPDATE SET
		status = EXCLUDED.status, score = EXCLUDED.score,
		completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at
	RETURNING id`

func (repo *assessmentRepository) SaveAttempt(ctx context.Context, at assessment.Attempt) (assessment.Attempt, error) {
	row := attemptRow{
		ID:           uuid.NewString(),
		AssessmentID: at.AssessmentID,
		StudentID:    at.StudentID,
		Status:       at.Status,
		Score:        null.Float64FromPtr(at.Score),
		CompletedAt:  nullTime(at.CompletedAt),
		UpdatedAt:    at.UpdatedAt.UTC(),
	}
	query, args, err := sqlx.Named(saveAttemptSQL, row)
	if err != nil {
		return assessment.Attempt{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.GetContext(ctx, &row.ID, repo.db.Rebind(query), args...); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return assessment.Attempt{}, assessment.ErrNotFound
		}
		return assessment.Attempt{}, errors.Wrap(err, "saving attempt")
	}
	return row.attempt(), nil
}

func attemptsQuery(assessmentID string, statuses []string) sq.SelectBuilder {
	q := psql.Select("*").From("attempt").
		Where(sq.Eq{"assessment_id": assessmentID}).
		OrderBy("completed_at ASC NULLS LAST", "student_id")
	if len(statuses) > 0 {
		q = q.Where(sq.Eq{"status": statuses})
	}
	return q
}

func (repo *assessmentRepository) QueryAttempts(ctx context.Context, assessmentID string, statuses ...string) ([]assessment.Attempt, error) {
	attempts := make([]assessment.Attempt, 0)
	if !isUUID(assessmentID) {
		return attempts, nil
	}
	query, args, err := attemptsQuery(assessmentID, statuses).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []attemptRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	for _, row := range rows {
		attempts = append(attempts, row.attempt())
	}
	return attempts, nil
}

func (repo *assessmentRepository) CreateBank(ctx context.Context, bank assessment.QuestionBank) (assessment.QuestionBank, error) {
	row := bankRow{
		ID:        uuid.NewString(),
		SubjectID: bank.SubjectID,
		Name:      bank.Name,
		OwnerID:   bank.OwnerID,
		CreatedAt: bank.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO question_bank (id, subject_id, name, owner_id, created_at)
		VALUES (:id, :subject_id, :name, :owner_id, :created_at)`,
		row)
	if err != nil {
		return assessment.QuestionBank{}, errors.Wrap(err, "inserting question bank")
	}
	return row.bank(), nil
}

func (repo *assessmentRepository) QueryBanks(ctx context.Context, ownerID string) ([]assessment.QuestionBank, error) {
	banks := make([]assessment.QuestionBank, 0)
	q := psql.Select("*").From("question_bank").OrderBy("name", "id")
	if ownerID != "" {
		if !isUUID(ownerID) {
			return banks, nil
		}
		q = q.Where(sq.Eq{"owner_id": ownerID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []bankRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying question banks")
	}
	for _, row := range rows {
		banks = append(banks, row.bank())
	}
	return banks, nil
}

func (repo *assessmentRepository) GetBank(ctx context.Context, id string) (assessment.QuestionBank, error) {
	if !isUUID(id) {
		return assessment.QuestionBank{}, assessment.ErrBankNotFound
	}
	var row bankRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM question_bank WHERE id = $1`, id); err != nil {
		return assessment.QuestionBank{}, trapNoRowsErr(err, assessment.ErrBankNotFound, "finding question bank")
	}
	return row.bank(), nil
}

// CreateQuestions inserts every question in one transaction.
func (repo *assessmentRepository) CreateQuestions(ctx context.Context, qs ...assessment.Question) (created []assessment.Question, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	created = make([]assessment.Question, 0, len(qs))
	for _, q := range qs {
		row := questionRow{
			ID:      uuid.NewString(),
			BankID:  q.BankID,
			Text:    q.Text,
			Choices: pq.StringArray(q.Choices),
			Answer:  q.Answer,
			Points:  q.Points,
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO question (id, bank_id, text, choices, answer, points)
			VALUES (:id, :bank_id, :text, :choices, :answer, :points)`,
			row)
		if err != nil {
			if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
				return nil, assessment.ErrBankNotFound
			}
			return nil, errors.Wrap(err, "inserting question")
		}
		created = append(created, row.question())
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing questions")
	}
	return created, nil
}

func (repo *assessmentRepository) QueryQuestions(ctx context.Context, bankID string) ([]assessment.Question, error) {
	qs := make([]assessment.Question, 0)
	if !isUUID(bankID) {
		return qs, nil
	}
	var rows []questionRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM question WHERE bank_id = $1 ORDER BY position`, bankID); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	for _, row := range rows {
		qs = append(qs, row.question())
	}
	return qs, nil
}

func (repo *assessmentRepository) DeleteQuestion(ctx context.Context, bankID, id string) error {
	if !(isUUID(bankID) && isUUID(id)) {
		return assessment.ErrQuestionNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM question WHERE bank_id = $1 AND id = $2`, bankID, id)
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assessment.ErrQuestionNotFound
	}
	return nil
}
