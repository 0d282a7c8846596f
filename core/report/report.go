// Package report builds the result reports of assessments and students, and renders them
// as HTML, PDF, XLSX and PNG charts.
package report

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/result"
	"github.com/trezcool/matokeo/core/school"
)

// Ordinal formats a position for display: 1st, 2nd, 3rd, 4th... 11th, 12th, 13th... 21st.
func Ordinal(position int) string {
	return humanize.Ordinal(position)
}

// ResultRow is the presentation of one RankedRecord.
type ResultRow struct {
	Position    int     `json:"position"`
	Ordinal     string  `json:"ordinal"`
	StudentID   string  `json:"student_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"` // rounded to 1 decimal place
}

func newResultRows(ranked []result.RankedRecord) []ResultRow {
	rows := make([]ResultRow, 0, len(ranked))
	for _, r := range ranked {
		rows = append(rows, ResultRow{
			Position:    r.Position,
			Ordinal:     Ordinal(r.Position),
			StudentID:   r.StudentID,
			DisplayName: r.DisplayName,
			Score:       result.Round(r.Score),
		})
	}
	return rows
}

// AssessmentReport is the ranked results of one assessment. It is built fresh on every request.
type AssessmentReport struct {
	SchoolName   string                `json:"school_name"`
	Assessment   assessment.Assessment `json:"assessment"`
	Class        school.Class          `json:"class"`
	Subject      school.Subject        `json:"subject"`
	GeneratedAt  time.Time             `json:"generated_at"` // UTC
	Results      []ResultRow           `json:"results"`
	Summary      result.Summary        `json:"summary"`
	Distribution []result.Bucket       `json:"distribution"`
}

// IsEmpty reports whether nobody completed the assessment yet.
func (rep AssessmentReport) IsEmpty() bool { return len(rep.Results) == 0 }

// Filename is the base name of the files the report is exported to, without extension.
func (rep AssessmentReport) Filename() string {
	return "results-" + slugify(rep.Assessment.Title)
}

// StudentReportEntry is the outcome of one assessment for the student of a StudentReport.
type StudentReportEntry struct {
	AssessmentID     string     `json:"assessment_id"`
	AssessmentTitle  string     `json:"assessment_title"`
	ClassID          string     `json:"class_id"`
	ClassName        string     `json:"class_name"`
	Completed        bool       `json:"completed"`
	Position         int        `json:"position,omitempty"`
	Ordinal          string     `json:"ordinal,omitempty"`
	Score            *float64   `json:"score"`
	ClassAverage     *float64   `json:"class_average"`
	ParticipantCount int        `json:"participant_count"`
	CreatedAt        time.Time  `json:"created_at"`
	DueAt            *time.Time `json:"due_at"`
}

type StudentReport struct {
	SchoolName  string               `json:"school_name"`
	StudentID   string               `json:"student_id"`
	StudentName string               `json:"student_name"`
	GeneratedAt time.Time            `json:"generated_at"` // UTC
	Entries     []StudentReportEntry `json:"entries"`
}
