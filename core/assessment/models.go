package assessment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/matokeo/core"
)

// Attempt statuses
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

var Statuses = []string{StatusNotStarted, StatusInProgress, StatusCompleted, StatusAbandoned}

type Assessment struct {
	ID          string     `json:"id"`
	ClassID     string     `json:"class_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`    // UTC
	PassMark    *float64   `json:"pass_mark"` // nil: the configured default
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
}

type NewAssessment struct {
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
	PassMark    *float64   `json:"pass_mark" validate:"omitempty,score"`
}

func (na *NewAssessment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	if na.DueAt != nil {
		due := na.DueAt.UTC()
		na.DueAt = &due
	}
	return validate.Struct(na)
}

// Attempt is the single attempt of a student at an assessment.
type Attempt struct {
	ID           string     `json:"id"`
	AssessmentID string     `json:"assessment_id"`
	StudentID    string     `json:"student_id"`
	StudentName  string     `json:"student_name"`
	Status       string     `json:"status"`
	Score        *float64   `json:"score"`
	CompletedAt  *time.Time `json:"completed_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"`   // UTC
}

// IsScored reports whether the attempt counts in the results of its assessment.
func (at Attempt) IsScored() bool {
	return at.Status == StatusCompleted && at.Score != nil
}

type RecordAttempt struct {
	StudentID string   `json:"student_id" validate:"required,uuid"`
	Status    string   `json:"status" validate:"required,status"`
	Score     *float64 `json:"score" validate:"omitempty,score"`
}

func (ra *RecordAttempt) Validate(validate *validator.Validate) error {
	ra.Status = core.CleanString(ra.Status, true /* lower */)
	if err := validate.Struct(ra); err != nil {
		return err
	}
	if ra.Status == StatusCompleted && ra.Score == nil {
		return core.NewValidationError(errScoreRequired, core.FieldError{Field: "score", Error: errScoreRequired.Error()})
	}
	return nil
}
