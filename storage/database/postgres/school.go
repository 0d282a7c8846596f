package pgrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSubject(ctx context.Context, subj school.Subject) (school.Subject, error) {
	subj.ID = uuid.NewString()
	subj.CreatedAt = subj.CreatedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO subject (id, code, name, created_at) VALUES (:id, :code, :name, :created_at)`, subj)
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return subj, nil
}

func (repo *schoolRepository) QuerySubjects(ctx context.Context) ([]school.Subject, error) {
	subjects := make([]school.Subject, 0)
	err := repo.db.SelectContext(ctx, &subjects, `SELECT * FROM subject ORDER BY code`)
	return subjects, errors.Wrap(err, "querying subjects")
}

func (repo *schoolRepository) getSubject(ctx context.Context, where sq.Eq) (school.Subject, error) {
	query, args, err := psql.Select("*").From("subject").Where(where).ToSql()
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "building query")
	}
	var subj school.Subject
	if err = repo.db.GetContext(ctx, &subj, query, args...); err != nil {
		return school.Subject{}, trapNoRowsErr(err, school.ErrSubjectNotFound, "finding subject")
	}
	return subj, nil
}

func (repo *schoolRepository) GetSubject(ctx context.Context, id string) (school.Subject, error) {
	if !isUUID(id) {
		return school.Subject{}, school.ErrSubjectNotFound
	}
	return repo.getSubject(ctx, sq.Eq{"id": id})
}

func (repo *schoolRepository) GetSubjectByCode(ctx context.Context, code string) (school.Subject, error) {
	return repo.getSubject(ctx, sq.Eq{"code": code})
}

func (repo *schoolRepository) CreateClass(ctx context.Context, class school.Class) (school.Class, error) {
	class.ID = uuid.NewString()
	class.CreatedAt = class.CreatedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO class (id, name, section, semester, subject_id, teacher_id, created_at)
		VALUES (:id, :name, :section, :semester, :subject_id, :teacher_id, :created_at)`,
		class)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return class, nil
}

// classesQuery selects the classes matching filter. ok is false when a malformed id can match nothing.
func classesQuery(filter school.ClassFilter) (q sq.SelectBuilder, ok bool) {
	q = psql.Select("c.*").From("class c").OrderBy("c.name", "c.id")
	for _, cond := range []struct{ col, val string }{
		{"c.subject_id", filter.SubjectID},
		{"c.teacher_id", filter.TeacherID},
	} {
		if cond.val == "" {
			continue
		}
		if !isUUID(cond.val) {
			return q, false
		}
		q = q.Where(sq.Eq{cond.col: cond.val})
	}
	if filter.Semester != "" {
		q = q.Where(sq.Eq{"c.semester": filter.Semester})
	}
	if filter.StudentID != "" {
		if !isUUID(filter.StudentID) {
			return q, false
		}
		q = q.Join("enrollment e ON e.class_id = c.id").Where(sq.Eq{"e.student_id": filter.StudentID})
	}
	return q, true
}

func (repo *schoolRepository) QueryClasses(ctx context.Context, filter school.ClassFilter) ([]school.Class, error) {
	q, ok := classesQuery(filter)
	if !ok {
		return []school.Class{}, nil
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	classes := make([]school.Class, 0)
	err = repo.db.SelectContext(ctx, &classes, query, args...)
	return classes, errors.Wrap(err, "querying classes")
}

func (repo *schoolRepository) GetClass(ctx context.Context, id string) (school.Class, error) {
	if !isUUID(id) {
		return school.Class{}, school.ErrClassNotFound
	}
	var class school.Class
	if err := repo.db.GetContext(ctx, &class, `SELECT * FROM class WHERE id = $1`, id); err != nil {
		return school.Class{}, trapNoRowsErr(err, school.ErrClassNotFound, "finding class")
	}
	return class, nil
}

func (repo *schoolRepository) Enroll(ctx context.Context, classID string, studentIDs ...string) error {
	if _, err := repo.GetClass(ctx, classID); err != nil {
		return err
	}
	if len(studentIDs) == 0 {
		return nil
	}
	query, args, err := enrollQuery(classID, studentIDs, time.Now()).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "enrolling students")
}

// enrollQuery skips the students already enrolled in the class.
func enrollQuery(classID string, studentIDs []string, at time.Time) sq.InsertBuilder {
	q := psql.Insert("enrollment").Columns("class_id", "student_id", "enrolled_at").Suffix("ON CONFLICT DO NOTHING")
	for _, id := range studentIDs {
		q = q.Values(classID, id, at.UTC())
	}
	return q
}

func (repo *schoolRepository) QueryRoster(ctx context.Context, classID string) ([]string, error) {
	ids := make([]string, 0)
	if !isUUID(classID) {
		return ids, nil
	}
	err := repo.db.SelectContext(ctx, &ids, `SELECT student_id FROM enrollment WHERE class_id = $1 ORDER BY student_id`, classID)
	return ids, errors.Wrap(err, "querying roster")
}

func (repo *schoolRepository) CountRoster(ctx context.Context, classID string) (int, error) {
	if !isUUID(classID) {
		return 0, nil
	}
	var n int
	err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM enrollment WHERE class_id = $1`, classID)
	return n, errors.Wrap(err, "counting roster")
}

func (repo *schoolRepository) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	if !(isUUID(classID) && isUUID(studentID)) {
		return false, nil
	}
	var enrolled bool
	err := repo.db.GetContext(ctx, &enrolled,
		`SELECT EXISTS (SELECT 1 FROM enrollment WHERE class_id = $1 AND student_id = $2)`, classID, studentID)
	return enrolled, errors.Wrap(err, "checking enrollment")
}
