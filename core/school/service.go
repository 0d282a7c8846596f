package school

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/user"
)

var (
	// errors
	ErrSubjectNotFound   = core.NewNotFoundError("subject")
	ErrClassNotFound     = core.NewNotFoundError("class")
	ErrSubjectCodeExists = errors.New("a subject with this code already exists")

	subjectsCacheKey = "subjects"

	nowFunc = time.Now // mockable
)

type Repository interface {
	CreateSubject(ctx context.Context, subj Subject) (Subject, error)
	// QuerySubjects returns all subjects ordered by code.
	QuerySubjects(ctx context.Context) ([]Subject, error)
	GetSubject(ctx context.Context, id string) (Subject, error)
	GetSubjectByCode(ctx context.Context, code string) (Subject, error)

	CreateClass(ctx context.Context, class Class) (Class, error)
	// QueryClasses applies AND operation on available ClassFilter fields.
	QueryClasses(ctx context.Context, filter ClassFilter) ([]Class, error)
	GetClass(ctx context.Context, id string) (Class, error)

	// Enroll is idempotent: already enrolled students are skipped.
	Enroll(ctx context.Context, classID string, studentIDs ...string) error
	QueryRoster(ctx context.Context, classID string) ([]string, error)
	CountRoster(ctx context.Context, classID string) (int, error)
	IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
}

type Service struct {
	repo  Repository
	users user.Repository
	cache *core.Cache
	conf  *core.Config
}

func NewService(repo Repository, users user.Repository, cache *core.Cache, conf *core.Config) *Service {
	return &Service{repo: repo, users: users, cache: cache, conf: conf}
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, viewer user.User, ns NewSubject) (Subject, error) {
	if !viewer.IsAdmin() {
		return Subject{}, core.ErrForbidden
	}
	if _, err := svc.repo.GetSubjectByCode(ctx, ns.Code); err == nil {
		return Subject{}, core.NewValidationError(
			ErrSubjectCodeExists,
			core.FieldError{Field: "code", Error: ErrSubjectCodeExists.Error()},
		)
	} else if !core.IsNotFound(err) {
		return Subject{}, errors.Wrap(err, "finding subject by code")
	}

	subj, err := svc.repo.CreateSubject(ctx, Subject{Code: ns.Code, Name: ns.Name, CreatedAt: nowFunc().UTC()})
	if err != nil {
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	if err = svc.cache.Invalidate(ctx, subjectsCacheKey); err != nil {
		return subj, errors.Wrap(err, "invalidating subjects cache")
	}
	return subj, nil
}

// ListSubjects returns every subject. The listing is cached for Config.Cache.SubjectTTL.
func (svc *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	var subjects []Subject
	err := svc.cache.Remember(ctx, subjectsCacheKey, svc.conf.Cache.SubjectTTL, &subjects, func() (interface{}, error) {
		return svc.repo.QuerySubjects(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []Subject{}
	}
	return subjects, nil
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, viewer user.User, nc NewClass) (Class, error) {
	if !viewer.IsAdmin() {
		return Class{}, core.ErrForbidden
	}
	if _, err := svc.repo.GetSubject(ctx, nc.SubjectID); err != nil {
		if core.IsNotFound(err) {
			return Class{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
		}
		return Class{}, errors.Wrap(err, "finding subject")
	}
	teacher, err := svc.users.GetUser(ctx, user.GetFilter{ID: nc.TeacherID})
	if err != nil {
		if core.IsNotFound(err) {
			return Class{}, core.NewValidationError(err, core.FieldError{Field: "teacher_id", Error: err.Error()})
		}
		return Class{}, errors.Wrap(err, "finding teacher")
	}
	if !teacher.IsTeacher() {
		return Class{}, core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "user is not a teacher"})
	}

	class, err := svc.repo.CreateClass(ctx, Class{
		Name:      nc.Name,
		Section:   nc.Section,
		Semester:  nc.Semester,
		SubjectID: nc.SubjectID,
		TeacherID: nc.TeacherID,
		CreatedAt: nowFunc().UTC(),
	})
	return class, errors.Wrap(err, "creating class")
}

// ListClasses returns the classes visible to viewer: all of them for admins,
// the ones they teach for teachers, the ones they are enrolled in for students.
func (svc *Service) ListClasses(ctx context.Context, viewer user.User, filter ClassFilter) ([]Class, error) {
	switch {
	case viewer.IsAdmin():
	case viewer.IsTeacher():
		filter.TeacherID = viewer.ID
	case viewer.IsStudent():
		filter.StudentID = viewer.ID
	default:
		return []Class{}, nil
	}
	classes, err := svc.repo.QueryClasses(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []Class{}
	}
	return classes, nil
}

// GetClass returns the class if viewer can see it; ErrClassNotFound otherwise.
func (svc *Service) GetClass(ctx context.Context, viewer user.User, id string) (Class, error) {
	class, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if CanView(viewer, class) {
		return class, nil
	}
	if viewer.IsStudent() {
		enrolled, err := svc.repo.IsEnrolled(ctx, class.ID, viewer.ID)
		if err != nil {
			return Class{}, errors.Wrap(err, "checking enrollment")
		}
		if enrolled {
			return class, nil
		}
	}
	return Class{}, ErrClassNotFound
}

// ClassesOf returns the classes studentID is enrolled in, without access checks.
func (svc *Service) ClassesOf(ctx context.Context, studentID string) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, ClassFilter{StudentID: studentID})
}

// FindClass returns a class without access checks.
func (svc *Service) FindClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

// Enroll adds active students to the class of classID.
func (svc *Service) Enroll(ctx context.Context, viewer user.User, classID string, es EnrollStudents) error {
	if !viewer.IsAdmin() {
		return core.ErrForbidden
	}
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return err
	}

	students, err := svc.users.GetUsersByID(ctx, es.StudentIDs...)
	if err != nil {
		return errors.Wrap(err, "finding students")
	}
	found := make(map[string]bool, len(students))
	for _, usr := range students {
		if usr.IsStudent() && usr.IsActive {
			found[usr.ID] = true
		}
	}
	for _, id := range es.StudentIDs {
		if !found[id] {
			return core.NewValidationError(nil, core.FieldError{
				Field: "student_ids",
				Error: fmt.Sprintf("%s is not an active student", id),
			})
		}
	}
	return errors.Wrap(svc.repo.Enroll(ctx, classID, es.StudentIDs...), "enrolling students")
}

// Roster returns the students enrolled in the class, if viewer can view the class.
func (svc *Service) Roster(ctx context.Context, viewer user.User, classID string) ([]user.User, error) {
	class, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !CanView(viewer, class) {
		return nil, ErrClassNotFound
	}

	ids, err := svc.repo.QueryRoster(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying roster")
	}
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	students, err := svc.users.GetUsersByID(ctx, ids...)
	return students, errors.Wrap(err, "finding students")
}

// RosterSize is the number of students enrolled in the class, participants or not.
func (svc *Service) RosterSize(ctx context.Context, classID string) (int, error) {
	n, err := svc.repo.CountRoster(ctx, classID)
	return n, errors.Wrap(err, "counting roster")
}

func (svc *Service) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	return svc.repo.IsEnrolled(ctx, classID, studentID)
}
