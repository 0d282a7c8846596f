package assessment

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/result"
	"github.com/trezcool/matokeo/core/school"
	"github.com/trezcool/matokeo/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("assessment")
	ErrBankNotFound     = core.NewNotFoundError("question bank")
	ErrQuestionNotFound = core.NewNotFoundError("question")
	errScoreRequired    = errors.New("a completed attempt requires a score")
	errNotEnrolled      = errors.New("student is not enrolled in the class")

	nowFunc = time.Now // mockable
)

type Repository interface {
	CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
	// QueryAssessments returns the assessments of the given classes, newest first.
	QueryAssessments(ctx context.Context, classIDs ...string) ([]Assessment, error)
	GetAssessment(ctx context.Context, id string) (Assessment, error)

	// SaveAttempt creates or replaces the attempt of (AssessmentID, StudentID).
	SaveAttempt(ctx context.Context, at Attempt) (Attempt, error)
	// QueryAttempts returns the attempts at an assessment, optionally limited to some statuses,
	// ordered by completion time then student ID.
	QueryAttempts(ctx context.Context, assessmentID string, statuses ...string) ([]Attempt, error)

	CreateBank(ctx context.Context, bank QuestionBank) (QuestionBank, error)
	// QueryBanks returns the banks of ownerID, or all of them when ownerID is empty.
	QueryBanks(ctx context.Context, ownerID string) ([]QuestionBank, error)
	GetBank(ctx context.Context, id string) (QuestionBank, error)
	CreateQuestions(ctx context.Context, qs ...Question) ([]Question, error)
	QueryQuestions(ctx context.Context, bankID string) ([]Question, error)
	DeleteQuestion(ctx context.Context, bankID, id string) error
}

type Service struct {
	repo    Repository
	classes *school.Service
	users   user.Repository
}

func NewService(repo Repository, classes *school.Service, users user.Repository) *Service {
	return &Service{repo: repo, classes: classes, users: users}
}

func (svc *Service) Create(ctx context.Context, viewer user.User, classID string, na NewAssessment) (Assessment, error) {
	class, err := svc.classes.FindClass(ctx, classID)
	if err != nil {
		return Assessment{}, err
	}
	if !school.CanView(viewer, class) {
		return Assessment{}, core.ErrForbidden
	}

	a, err := svc.repo.CreateAssessment(ctx, Assessment{
		ClassID:     class.ID,
		Title:       na.Title,
		Description: na.Description,
		DueAt:       na.DueAt,
		PassMark:    na.PassMark,
		CreatedBy:   viewer.ID,
		CreatedAt:   nowFunc().UTC(),
	})
	return a, errors.Wrap(err, "creating assessment")
}

// List returns the assessments of a class viewer can see.
func (svc *Service) List(ctx context.Context, viewer user.User, classID string) ([]Assessment, error) {
	class, err := svc.classes.GetClass(ctx, viewer, classID)
	if err != nil {
		return nil, err
	}
	as, err := svc.repo.QueryAssessments(ctx, class.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	if as == nil {
		as = []Assessment{}
	}
	return as, nil
}

// ListForClasses returns the assessments of the given classes, without access checks.
func (svc *Service) ListForClasses(ctx context.Context, classIDs ...string) ([]Assessment, error) {
	if len(classIDs) == 0 {
		return []Assessment{}, nil
	}
	return svc.repo.QueryAssessments(ctx, classIDs...)
}

// Get returns the assessment if viewer can see its class.
func (svc *Service) Get(ctx context.Context, viewer user.User, id string) (Assessment, error) {
	a, err := svc.repo.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	if _, err = svc.classes.GetClass(ctx, viewer, a.ClassID); err != nil {
		if core.IsNotFound(err) {
			return Assessment{}, ErrNotFound
		}
		return Assessment{}, err
	}
	return a, nil
}

// Find returns an assessment without access checks.
func (svc *Service) Find(ctx context.Context, id string) (Assessment, error) {
	return svc.repo.GetAssessment(ctx, id)
}

// Authorize returns the assessment and its class when viewer may see the results:
// the class teacher or an admin. Others get ErrNotFound or core.ErrForbidden.
func (svc *Service) Authorize(ctx context.Context, viewer user.User, id string) (Assessment, school.Class, error) {
	a, err := svc.repo.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, school.Class{}, err
	}
	class, err := svc.classes.FindClass(ctx, a.ClassID)
	if err != nil {
		return Assessment{}, school.Class{}, errors.Wrap(err, "finding class")
	}
	if !school.CanView(viewer, class) {
		return Assessment{}, school.Class{}, core.ErrForbidden
	}
	return a, class, nil
}

// RecordAttempt saves the attempt of an enrolled student. Completing an attempt stamps its completion time.
func (svc *Service) RecordAttempt(ctx context.Context, viewer user.User, assessmentID string, ra RecordAttempt) (Attempt, error) {
	a, class, err := svc.Authorize(ctx, viewer, assessmentID)
	if err != nil {
		return Attempt{}, err
	}
	enrolled, err := svc.classes.IsEnrolled(ctx, class.ID, ra.StudentID)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Attempt{}, core.NewValidationError(
			errNotEnrolled,
			core.FieldError{Field: "student_id", Error: errNotEnrolled.Error()},
		)
	}

	now := nowFunc().UTC()
	at := Attempt{
		AssessmentID: a.ID,
		StudentID:    ra.StudentID,
		Status:       ra.Status,
		Score:        ra.Score,
		UpdatedAt:    now,
	}
	if at.Status == StatusCompleted {
		at.CompletedAt = &now
	}
	at, err = svc.repo.SaveAttempt(ctx, at)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "saving attempt")
	}
	named, err := svc.withNames(ctx, []Attempt{at})
	if err != nil {
		return Attempt{}, err
	}
	return named[0], nil
}

func (svc *Service) ListAttempts(ctx context.Context, viewer user.User, assessmentID string) ([]Attempt, error) {
	if _, _, err := svc.Authorize(ctx, viewer, assessmentID); err != nil {
		return nil, err
	}
	attempts, err := svc.repo.QueryAttempts(ctx, assessmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	if attempts == nil {
		attempts = []Attempt{}
	}
	return svc.withNames(ctx, attempts)
}

// CompletedScores returns one ScoreRecord per completed and scored attempt at the assessment,
// ordered by completion time. Attempts in any other state are left out.
func (svc *Service) CompletedScores(ctx context.Context, assessmentID string) ([]result.ScoreRecord, error) {
	attempts, err := svc.repo.QueryAttempts(ctx, assessmentID, StatusCompleted)
	if err != nil {
		return nil, errors.Wrap(err, "querying completed attempts")
	}

	scored := make([]Attempt, 0, len(attempts))
	for _, at := range attempts {
		if at.IsScored() {
			scored = append(scored, at)
		}
	}
	if scored, err = svc.withNames(ctx, scored); err != nil {
		return nil, err
	}

	records := make([]result.ScoreRecord, 0, len(scored))
	for _, at := range scored {
		records = append(records, result.ScoreRecord{
			StudentID:   at.StudentID,
			DisplayName: at.StudentName,
			Score:       *at.Score,
		})
	}
	return records, nil
}

// withNames returns a copy of attempts with their StudentName filled in.
func (svc *Service) withNames(ctx context.Context, attempts []Attempt) ([]Attempt, error) {
	if len(attempts) == 0 {
		return attempts, nil
	}
	ids := make([]string, 0, len(attempts))
	for _, at := range attempts {
		ids = append(ids, at.StudentID)
	}
	students, err := svc.users.GetUsersByID(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "finding students")
	}
	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.ID] = s.DisplayName()
	}

	named := make([]Attempt, 0, len(attempts))
	for _, at := range attempts {
		at.StudentName = names[at.StudentID]
		named = append(named, at)
	}
	return named, nil
}

// Question banks

func (svc *Service) CreateBank(ctx context.Context, viewer user.User, nb NewQuestionBank) (QuestionBank, error) {
	if !(viewer.IsAdmin() || viewer.IsTeacher()) {
		return QuestionBank{}, core.ErrForbidden
	}
	if _, err := svc.classes.GetSubject(ctx, nb.SubjectID); err != nil {
		if core.IsNotFound(err) {
			return QuestionBank{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
		}
		return QuestionBank{}, errors.Wrap(err, "finding subject")
	}
	bank, err := svc.repo.CreateBank(ctx, QuestionBank{
		SubjectID: nb.SubjectID,
		Name:      nb.Name,
		OwnerID:   viewer.ID,
		CreatedAt: nowFunc().UTC(),
	})
	return bank, errors.Wrap(err, "creating question bank")
}

// ListBanks returns every bank to admins and their own banks to teachers.
func (svc *Service) ListBanks(ctx context.Context, viewer user.User) ([]QuestionBank, error) {
	var owner string
	switch {
	case viewer.IsAdmin():
	case viewer.IsTeacher():
		owner = viewer.ID
	default:
		return nil, core.ErrForbidden
	}
	banks, err := svc.repo.QueryBanks(ctx, owner)
	if err != nil {
		return nil, errors.Wrap(err, "querying question banks")
	}
	if banks == nil {
		banks = []QuestionBank{}
	}
	return banks, nil
}

// GetBank returns the bank with its questions, to admins and to its owner.
func (svc *Service) GetBank(ctx context.Context, viewer user.User, id string) (QuestionBank, error) {
	bank, err := svc.ownBank(ctx, viewer, id)
	if err != nil {
		return QuestionBank{}, err
	}
	if bank.Questions, err = svc.repo.QueryQuestions(ctx, bank.ID); err != nil {
		return QuestionBank{}, errors.Wrap(err, "querying questions")
	}
	if bank.Questions == nil {
		bank.Questions = []Question{}
	}
	return bank, nil
}

func (svc *Service) ownBank(ctx context.Context, viewer user.User, id string) (QuestionBank, error) {
	bank, err := svc.repo.GetBank(ctx, id)
	if err != nil {
		return QuestionBank{}, err
	}
	if !(viewer.IsAdmin() || bank.OwnerID == viewer.ID) {
		return QuestionBank{}, ErrBankNotFound
	}
	return bank, nil
}

func (svc *Service) AddQuestions(ctx context.Context, viewer user.User, bankID string, nqs ...NewQuestion) ([]Question, error) {
	bank, err := svc.ownBank(ctx, viewer, bankID)
	if err != nil {
		return nil, err
	}
	qs := make([]Question, 0, len(nqs))
	for _, nq := range nqs {
		qs = append(qs, Question{
			BankID:  bank.ID,
			Text:    nq.Text,
			Choices: nq.Choices,
			Answer:  nq.Answer,
			Points:  nq.Points,
		})
	}
	created, err := svc.repo.CreateQuestions(ctx, qs...)
	return created, errors.Wrap(err, "creating questions")
}

func (svc *Service) DeleteQuestion(ctx context.Context, viewer user.User, bankID, id string) error {
	if _, err := svc.ownBank(ctx, viewer, bankID); err != nil {
		return err
	}
	return svc.repo.DeleteQuestion(ctx, bankID, id)
}

// ImportQuestions adds the questions of an XLSX workbook to a bank. Nothing is imported if one row is invalid.
func (svc *Service) ImportQuestions(ctx context.Context, viewer user.User, bankID string, r io.Reader, validate *validator.Validate) ([]Question, error) {
	if _, err := svc.ownBank(ctx, viewer, bankID); err != nil {
		return nil, err
	}
	nqs, err := ParseQuestionsXLSX(r)
	if err != nil {
		return nil, err
	}

	var fldErrs []core.FieldError
	for i := range nqs {
		if err = nqs[i].Validate(validate); err != nil {
			var vErrs validator.ValidationErrors
			if !errors.As(err, &vErrs) {
				return nil, err
			}
			for _, fe := range vErrs {
				fldErrs = append(fldErrs, core.FieldError{
					Field: fmt.Sprintf("question_%d.%s", i+1, fe.Field()),
					Error: fe.Error(),
				})
			}
		}
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(errors.New("invalid questions"), fldErrs...)
	}
	if len(nqs) == 0 {
		return []Question{}, nil
	}
	return svc.AddQuestions(ctx, viewer, bankID, nqs...)
}
