package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/matokeo/core/school"
)

type schoolRepository struct {
	db *schoolTables
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) CreateSubject(_ context.Context, subj school.Subject) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	subj.ID = uuid.NewString()
	repo.db.subjects[subj.ID] = subj
	return subj, nil
}

func (repo *schoolRepository) QuerySubjects(_ context.Context) ([]school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]school.Subject, 0, len(repo.db.subjects))
	for _, subj := range repo.db.subjects {
		subjects = append(subjects, subj)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects, nil
}

func (repo *schoolRepository) GetSubject(_ context.Context, id string) (school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if subj, ok := repo.db.subjects[id]; ok {
		return subj, nil
	}
	return school.Subject{}, school.ErrSubjectNotFound
}

func (repo *schoolRepository) GetSubjectByCode(_ context.Context, code string) (school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, subj := range repo.db.subjects {
		if subj.Code == code {
			return subj, nil
		}
	}
	return school.Subject{}, school.ErrSubjectNotFound
}

func (repo *schoolRepository) CreateClass(_ context.Context, class school.Class) (school.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	class.ID = uuid.NewString()
	repo.db.classes[class.ID] = class
	return class, nil
}

func (repo *schoolRepository) QueryClasses(_ context.Context, filter school.ClassFilter) ([]school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]school.Class, 0)
	for _, class := range repo.db.classes {
		if filter.SubjectID != "" && class.SubjectID != filter.SubjectID {
			continue
		}
		if filter.TeacherID != "" && class.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Semester != "" && class.Semester != filter.Semester {
			continue
		}
		if filter.StudentID != "" {
			if _, ok := repo.db.enrollments[class.ID][filter.StudentID]; !ok {
				continue
			}
		}
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
	return classes, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, id string) (school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if class, ok := repo.db.classes[id]; ok {
		return class, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) Enroll(_ context.Context, classID string, studentIDs ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[classID]; !ok {
		return school.ErrClassNotFound
	}
	roster, ok := repo.db.enrollments[classID]
	if !ok {
		roster = make(map[string]time.Time)
		repo.db.enrollments[classID] = roster
	}
	now := time.Now().UTC()
	for _, id := range studentIDs {
		if _, enrolled := roster[id]; !enrolled {
			roster[id] = now
		}
	}
	return nil
}

func (repo *schoolRepository) QueryRoster(_ context.Context, classID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	roster := repo.db.enrollments[classID]
	ids := make([]string, 0, len(roster))
	for id := range roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *schoolRepository) CountRoster(_ context.Context, classID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.enrollments[classID]), nil
}

func (repo *schoolRepository) IsEnrolled(_ context.Context, classID, studentID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	_, ok := repo.db.enrollments[classID][studentID]
	return ok, nil
}
