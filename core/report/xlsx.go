package report

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// RenderXLSX writes rep as an XLSX workbook with a results sheet and a summary sheet.
func RenderXLSX(w io.Writer, rep AssessmentReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return errors.Wrap(err, "naming results sheet")
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return errors.Wrap(err, "creating summary sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating style")
	}

	// results
	if err = setRow(f, resultsSheet, 1, []interface{}{"Position", "Ordinal", "Student ID", "Student", "Score"}); err != nil {
		return err
	}
	if err = f.SetRowStyle(resultsSheet, 1, 1, bold); err != nil {
		return errors.Wrap(err, "styling header")
	}
	for i, row := range rep.Results {
		values := []interface{}{row.Position, row.Ordinal, row.StudentID, row.DisplayName, row.Score}
		if err = setRow(f, resultsSheet, i+2, values); err != nil {
			return err
		}
	}
	if err = f.SetColWidth(resultsSheet, "C", "D", 36); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	// summary
	sum := rep.Summary
	lines := [][]interface{}{
		{"School", rep.SchoolName},
		{"Assessment", rep.Assessment.Title},
		{"Subject", rep.Subject.Code + " " + rep.Subject.Name},
		{"Class", rep.Class.Name},
		{"Semester", rep.Class.Semester},
		{"Generated at", rep.GeneratedAt},
		{"Participants", sum.ParticipantCount},
		{"Roster size", sum.RosterSize},
		{"Participation rate (%)", sum.ParticipationRate},
		{"Average score", optional(sum.AverageScore)},
		{"Median score", optional(sum.MedianScore)},
		{"Standard deviation", optional(sum.StdDevScore)},
		{"Lowest score", optional(sum.MinScore)},
		{"Highest score", optional(sum.MaxScore)},
		{"Pass mark", sum.PassMark},
		{"Passed", sum.PassCount},
		{"Pass rate (%)", sum.PassRate},
	}
	for i, line := range lines {
		if err = setRow(f, summarySheet, i+1, line); err != nil {
			return err
		}
	}
	if err = f.SetColStyle(summarySheet, "A", bold); err != nil {
		return errors.Wrap(err, "styling labels")
	}
	if err = f.SetColWidth(summarySheet, "A", "B", 28); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	f.SetActiveSheet(0)
	return errors.Wrap(f.Write(w), "writing XLSX")
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, "naming cell")
	}
	return errors.Wrapf(f.SetSheetRow(sheet, cell, &values), "writing row %d of %s", row, sheet)
}

// optional makes nil scores empty cells.
func optional(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
