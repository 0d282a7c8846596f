package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

const (
	pdfFont      = "Helvetica"
	pdfRowHeight = 7.0
	pdfMargin    = 15.0
)

var pdfResultCols = []struct {
	title string
	width float64
	align string
}{
	{"Position", 30, "L"},
	{"Student", 115, "L"},
	{"Score", 35, "R"},
}

// RenderPDF writes rep as an A4 PDF: a summary block, the distribution chart,
// then the results table, paginated with its header repeated on every page.
func RenderPDF(w io.Writer, rep AssessmentReport) error {
	pdf, err := newAssessmentPDF(rep)
	if err != nil {
		return err
	}
	if err = pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing PDF")
	}
	return nil
}

func newAssessmentPDF(rep AssessmentReport) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // UTF-8 -> cp1252
	pdf.SetTitle(rep.Assessment.Title, true)
	pdf.SetAuthor(rep.SchoolName, true)
	pdf.SetCreationDate(rep.GeneratedAt)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AliasNbPages("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont(pdfFont, "", 9)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(90, 5, tr(rep.SchoolName), "", 0, "L", false, 0, "")
		pdf.CellFormat(90, 5, tr(rep.Assessment.Title), "", 1, "R", false, 0, "")
		pdf.Ln(4)
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin)
		pdf.SetFont(pdfFont, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		footer := fmt.Sprintf("Generated on %s - page %d/{nb}", formatDate(rep.GeneratedAt), pdf.PageNo())
		pdf.CellFormat(0, 10, footer, "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// title
	pdf.SetFont(pdfFont, "B", 16)
	pdf.CellFormat(0, 9, tr(rep.Assessment.Title), "", 1, "L", false, 0, "")
	pdf.SetFont(pdfFont, "", 10)
	subtitle := fmt.Sprintf("%s %s - %s - %s", rep.Subject.Code, rep.Subject.Name, rep.Class.Name, rep.Class.Semester)
	pdf.CellFormat(0, 6, tr(subtitle), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writePDFSummary(pdf, rep)

	// chart
	var png bytes.Buffer
	if err := RenderChart(&png, rep.Distribution, "Score distribution"); err != nil {
		return nil, err
	}
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("distribution", opts, &png)
	pdf.ImageOptions("distribution", pdfMargin, 0, 120, 0, true, opts, 0, "")
	pdf.Ln(6)

	writePDFResults(pdf, rep, tr)
	return pdf, pdf.Error()
}

func writePDFSummary(pdf *fpdf.Fpdf, rep AssessmentReport) {
	sum := rep.Summary
	lines := [][2]string{
		{"Participants", fmt.Sprintf("%d / %d (%s)", sum.ParticipantCount, sum.RosterSize, formatPct(sum.ParticipationRate))},
		{"Average score", formatScore(sum.AverageScore)},
		{"Median score", formatScore(sum.MedianScore)},
		{"Standard deviation", formatScore(sum.StdDevScore)},
		{"Lowest / highest", formatScore(sum.MinScore) + " / " + formatScore(sum.MaxScore)},
		{"Passed (>= " + formatNum(sum.PassMark) + ")", fmt.Sprintf("%d (%s)", sum.PassCount, formatPct(sum.PassRate))},
	}

	pdf.SetFont(pdfFont, "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	for _, l := range lines {
		pdf.SetFont(pdfFont, "", 10)
		pdf.CellFormat(50, 6, l[0], "", 0, "L", false, 0, "")
		pdf.SetFont(pdfFont, "B", 10)
		pdf.CellFormat(0, 6, l[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func writePDFResults(pdf *fpdf.Fpdf, rep AssessmentReport, tr func(string) string) {
	pdf.SetFont(pdfFont, "B", 12)
	pdf.CellFormat(0, 8, "Results", "", 1, "L", false, 0, "")

	if rep.IsEmpty() {
		pdf.SetFont(pdfFont, "I", 10)
		pdf.CellFormat(0, 8, "No results yet.", "", 1, "L", false, 0, "")
		return
	}

	header := func() {
		pdf.SetFont(pdfFont, "B", 10)
		pdf.SetFillColor(235, 235, 235)
		for _, col := range pdfResultCols {
			pdf.CellFormat(col.width, pdfRowHeight, col.title, "B", 0, col.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(pdfFont, "", 10)
	}

	_, pageHeight := pdf.GetPageSize()
	bottom := pageHeight - 2*pdfMargin
	header()
	for _, row := range rep.Results {
		if pdf.GetY()+pdfRowHeight > bottom {
			pdf.AddPage()
			header()
		}
		values := []string{row.Ordinal, tr(row.DisplayName), formatNum(row.Score)}
		for i, col := range pdfResultCols {
			pdf.CellFormat(col.width, pdfRowHeight, values[i], "", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}
