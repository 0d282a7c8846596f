package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/user"
)

type Subject struct {
	ID        string    `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

type NewSubject struct {
	Code string `json:"code" validate:"required,max=16,alphanum_"`
	Name string `json:"name" validate:"required,notblank"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// Class is one teaching group of a Subject for a semester, taught by one teacher.
type Class struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Section   string    `json:"section" db:"section"`
	Semester  string    `json:"semester" db:"semester"`
	SubjectID string    `json:"subject_id" db:"subject_id"`
	TeacherID string    `json:"teacher_id" db:"teacher_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

type NewClass struct {
	Name      string `json:"name" validate:"required,notblank"`
	Section   string `json:"section"`
	Semester  string `json:"semester" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required,uuid"`
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Section = core.CleanString(nc.Section)
	nc.Semester = core.CleanString(nc.Semester)
	return validate.Struct(nc)
}

type Enrollment struct {
	ClassID    string    `json:"class_id" db:"class_id"`
	StudentID  string    `json:"student_id" db:"student_id"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"` // UTC
}

type EnrollStudents struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,uuid"`
}

func (es EnrollStudents) Validate(validate *validator.Validate) error { return validate.Struct(es) }

// ClassFilter selects classes; empty fields are ignored.
type ClassFilter struct {
	SubjectID string `query:"subject_id"`
	TeacherID string `query:"teacher_id"`
	StudentID string `query:"student_id"` // classes the student is enrolled in
	Semester  string `query:"semester"`
}

// CanView reports whether usr may see the results of class: admins and the class teacher.
func CanView(usr user.User, class Class) bool {
	return usr.IsAdmin() || (usr.IsTeacher() && class.TeacherID == usr.ID)
}
