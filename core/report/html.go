package report

import (
	"html/template"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	appfs "github.com/trezcool/matokeo/fs"
)

var (
	htmlTemplates = template.Must(template.New("report").Funcs(template.FuncMap{
		"score": formatScore,
		"num":   formatNum,
		"pct":   formatPct,
		"date":  formatDate,
	}).ParseFS(appfs.FS, appfs.ReportTemplates))

	slugRegex = regexp.MustCompile(`[^a-z0-9]+`)
)

// RenderHTML writes rep as a standalone HTML page.
func RenderHTML(w io.Writer, rep AssessmentReport) error {
	return htmlTemplates.ExecuteTemplate(w, "assessment.gohtml", rep)
}

// RenderStudentHTML writes rep as a standalone HTML page.
func RenderStudentHTML(w io.Writer, rep StudentReport) error {
	return htmlTemplates.ExecuteTemplate(w, "student.gohtml", rep)
}

// formatScore formats an optional score; nil is "n/a".
func formatScore(s *float64) string {
	if s == nil {
		return "n/a"
	}
	return formatNum(*s)
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

func formatPct(f float64) string {
	return formatNum(f) + "%"
}

func formatDate(t time.Time) string {
	return t.UTC().Format("02 Jan 2006 15:04 MST")
}

func slugify(s string) string {
	slug := strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if slug == "" {
		return "assessment"
	}
	return slug
}
