package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/assessment"
)

type assessmentRepository struct {
	db *assessmentTables
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) assessment.Repository {
	return &assessmentRepository{db: db.assessment}
}

func (repo *assessmentRepository) CreateAssessment(_ context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.NewString()
	repo.db.assessments[a.ID] = a
	return a, nil
}

func (repo *assessmentRepository) QueryAssessments(_ context.Context, classIDs ...string) ([]assessment.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	as := make([]assessment.Assessment, 0)
	for _, a := range repo.db.assessments {
		if core.StringInSlice(a.ClassID, classIDs) {
			as = append(as, a)
		}
	}
	sort.Slice(as, func(i, j int) bool {
		if !as[i].CreatedAt.Equal(as[j].CreatedAt) {
			return as[i].CreatedAt.After(as[j].CreatedAt)
		}
		return as[i].ID < as[j].ID
	})
	return as, nil
}

func (repo *assessmentRepository) GetAssessment(_ context.Context, id string) (assessment.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assessments[id]; ok {
		return a, nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

func (repo *assessmentRepository) SaveAttempt(_ context.Context, at assessment.Attempt) (assessment.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assessments[at.AssessmentID]; !ok {
		return assessment.Attempt{}, assessment.ErrNotFound
	}
	key := attemptKey{assessmentID: at.AssessmentID, studentID: at.StudentID}
	if prev, ok := repo.db.attempts[key]; ok {
		at.ID = prev.ID
	} else {
		at.ID = uuid.NewString()
	}
	at.StudentName = ""
	repo.db.attempts[key] = at
	return at, nil
}

func (repo *assessmentRepository) QueryAttempts(_ context.Context, assessmentID string, statuses ...string) ([]assessment.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	attempts := make([]assessment.Attempt, 0)
	for key, at := range repo.db.attempts {
		if key.assessmentID != assessmentID {
			continue
		}
		if len(statuses) > 0 && !core.StringInSlice(at.Status, statuses) {
			continue
		}
		attempts = append(attempts, at)
	}
	sort.Slice(attempts, func(i, j int) bool {
		ci, cj := attempts[i].CompletedAt, attempts[j].CompletedAt
		switch {
		case ci != nil && cj != nil && !ci.Equal(*cj):
			return ci.Before(*cj)
		case ci != nil && cj == nil:
			return true // completed first
		case ci == nil && cj != nil:
			return false
		}
		return attempts[i].StudentID < attempts[j].StudentID
	})
	return attempts, nil
}

func (repo *assessmentRepository) CreateBank(_ context.Context, bank assessment.QuestionBank) (assessment.QuestionBank, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	bank.ID = uuid.NewString()
	bank.Questions = nil
	repo.db.banks[bank.ID] = bank
	return bank, nil
}

func (repo *assessmentRepository) QueryBanks(_ context.Context, ownerID string) ([]assessment.QuestionBank, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	banks := make([]assessment.QuestionBank, 0, len(repo.db.banks))
	for _, bank := range repo.db.banks {
		if ownerID == "" || bank.OwnerID == ownerID {
			banks = append(banks, bank)
		}
	}
	sort.Slice(banks, func(i, j int) bool {
		if banks[i].Name != banks[j].Name {
			return banks[i].Name < banks[j].Name
		}
		return banks[i].ID < banks[j].ID
	})
	return banks, nil
}

func (repo *assessmentRepository) GetBank(_ context.Context, id string) (assessment.QuestionBank, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if bank, ok := repo.db.banks[id]; ok {
		return bank, nil
	}
	return assessment.QuestionBank{}, assessment.ErrBankNotFound
}

func (repo *assessmentRepository) CreateQuestions(_ context.Context, qs ...assessment.Question) ([]assessment.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]assessment.Question, 0, len(qs))
	for _, q := range qs {
		if _, ok := repo.db.banks[q.BankID]; !ok {
			return nil, assessment.ErrBankNotFound
		}
		q.ID = uuid.NewString()
		q.Choices = append([]string(nil), q.Choices...)
		created = append(created, q)
	}
	for _, q := range created {
		repo.db.questions[q.BankID] = append(repo.db.questions[q.BankID], q)
	}
	return created, nil
}

func (repo *assessmentRepository) QueryQuestions(_ context.Context, bankID string) ([]assessment.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return append([]assessment.Question{}, repo.db.questions[bankID]...), nil
}

func (repo *assessmentRepository) DeleteQuestion(_ context.Context, bankID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	qs := repo.db.questions[bankID]
	for i, q := range qs {
		if q.ID == id {
			repo.db.questions[bankID] = append(qs[:i:i], qs[i+1:]...)
			return nil
		}
	}
	return assessment.ErrQuestionNotFound
}
