package assessment

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/matokeo/core"
)

var choiceLetters = []string{"a", "b", "c", "d"}

// QuestionBank is a reusable set of multiple choice questions for a subject.
type QuestionBank struct {
	ID        string     `json:"id"`
	SubjectID string     `json:"subject_id"`
	Name      string     `json:"name"`
	OwnerID   string     `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"` // UTC
	Questions []Question `json:"questions,omitempty"`
}

type Question struct {
	ID      string   `json:"id"`
	BankID  string   `json:"bank_id"`
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
	Answer  string   `json:"answer"` // letter of the right choice
	Points  float64  `json:"points"`
}

type NewQuestionBank struct {
	SubjectID string `json:"subject_id" validate:"required,uuid"`
	Name      string `json:"name" validate:"required,notblank,max=120"`
}

func (nb *NewQuestionBank) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name)
	return validate.Struct(nb)
}

type NewQuestion struct {
	Text    string   `json:"text" validate:"required,notblank"`
	Choices []string `json:"choices" validate:"min=2,max=4,dive,notblank"`
	Answer  string   `json:"answer" validate:"required,oneof=a b c d"`
	Points  float64  `json:"points" validate:"gt=0"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	nq.Answer = core.CleanString(nq.Answer, true /* lower */)
	for i := range nq.Choices {
		nq.Choices[i] = core.CleanString(nq.Choices[i])
	}
	if nq.Points == 0 {
		nq.Points = 1
	}
	return validate.Struct(nq)
}

func choiceIndex(letter string) int {
	for i, l := range choiceLetters {
		if l == letter {
			return i
		}
	}
	return len(choiceLetters)
}

var questionSheetHeader = []string{"question", "choice_a", "choice_b", "choice_c", "choice_d", "answer", "points"}

// ParseQuestionsXLSX reads questions from the first sheet of an XLSX workbook.
// The first row must be the header `question|choice_a|choice_b|choice_c|choice_d|answer|points`;
// empty rows and empty choices are skipped, an empty points cell means 1.
func ParseQuestionsXLSX(r io.Reader) ([]NewQuestion, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "invalid XLSX file"))
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError(errors.New("the workbook has no sheet"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}
	if len(rows) == 0 || !isQuestionHeader(rows[0]) {
		return nil, core.NewValidationError(
			fmt.Errorf("the first row must be: %s", strings.Join(questionSheetHeader, ", ")),
		)
	}

	questions := make([]NewQuestion, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cell := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}

		nq := NewQuestion{Text: cell(0), Answer: cell(5)}
		for col := 1; col <= 4; col++ {
			if choice := cell(col); choice != "" {
				nq.Choices = append(nq.Choices, choice)
			}
		}
		if pts := cell(6); pts != "" {
			if nq.Points, err = strconv.ParseFloat(pts, 64); err != nil {
				return nil, core.NewValidationError(
					fmt.Errorf("row %d: invalid points %q", i+2, pts),
					core.FieldError{Field: fmt.Sprintf("row_%d", i+2), Error: "invalid points"},
				)
			}
		}
		questions = append(questions, nq)
	}
	return questions, nil
}

func isQuestionHeader(row []string) bool {
	if len(row) < len(questionSheetHeader) {
		return false
	}
	for i, col := range questionSheetHeader {
		if strings.ToLower(strings.TrimSpace(row[i])) != col {
			return false
		}
	}
	return true
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
