package echoapi

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matokeo/core/report"
)

func Test_reportApi_assessmentReport(t *testing.T) {
	srv, app := setup(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	other := app.Teacher(t, "Ms Other")
	amani := app.Student(t, "Amani")
	baraka := app.Student(t, "Baraka")
	chausiku := app.Student(t, "Chausiku")
	class := app.Class(t, admin, teacher, amani, baraka, chausiku)
	a := app.Assessment(t, teacher, class.ID, "Mid-term")

	app.Complete(t, teacher, a.ID, amani, 64)
	app.Complete(t, teacher, a.ID, baraka, 88.25)
	app.Complete(t, teacher, a.ID, chausiku, 64)

	teacherToken := getToken(t, srv, teacher)
	path := "/v1/assessments/" + a.ID + "/report"

	runHTTPTests(t, srv, []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingTokenBody)},
		{
			name: "Student", path: path, token: getToken(t, srv, amani), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Other teacher", path: path, token: getToken(t, srv, other), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Unknown assessment", path: "/v1/assessments/unknown/report", token: teacherToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "assessment not found"}),
		},
		{
			name: "Unknown format", path: path + "?format=docx", token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"format": "must be one of [json html pdf xlsx]"}),
		},
	})

	t.Run("JSON", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, teacherToken)
		var rep report.AssessmentReport
		decode(t, srv, req, rec, http.StatusOK, &rep)

		require.Len(t, rep.Results, 3)
		assert.Equal(t, "Baraka", rep.Results[0].DisplayName)
		assert.Equal(t, "1st", rep.Results[0].Ordinal)
		assert.Equal(t, 88.3, rep.Results[0].Score)
		assert.Equal(t, []int{1, 2, 2}, []int{rep.Results[0].Position, rep.Results[1].Position, rep.Results[2].Position})
		assert.Equal(t, 3, rep.Summary.ParticipantCount)
		assert.Equal(t, 3, rep.Summary.RosterSize)
	})

	t.Run("Exports", func(t *testing.T) {
		tests := []struct {
			format          string
			wantType        string
			wantDisposition string
			wantPrefix      []byte
		}{
			{format: "html", wantType: "text/html; charset=UTF-8", wantPrefix: []byte("<!DOCTYPE html>")},
			{format: "pdf", wantType: "application/pdf", wantDisposition: `attachment; filename="results-mid-term.pdf"`, wantPrefix: []byte("%PDF")},
			{format: "xlsx", wantType: mimeXLSX, wantDisposition: `attachment; filename="results-mid-term.xlsx"`, wantPrefix: []byte("PK")},
		}
		for _, tt := range tests {
			t.Run(tt.format, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodGet, path+"?format="+tt.format, teacherToken)
				srv.ServeHTTP(rec, req)
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
				assert.Equal(t, tt.wantDisposition, rec.Header().Get("Content-Disposition"))
				assert.True(t, bytes.HasPrefix(bytes.TrimSpace(rec.Body.Bytes()), tt.wantPrefix), "unexpected %s content", tt.format)
			})
		}
	})

	t.Run("Chart", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"/chart", getToken(t, srv, admin))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	})

	t.Run("Email", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path+"/email", teacherToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		sent := app.Mail.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, teacher.Email, sent[0].To[0].Address)
		assert.Equal(t, "Results: Mid-term", sent[0].Subject)
	})

	m := srv.deps.Metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reports.WithLabelValues("assessment", "json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reports.WithLabelValues("assessment", "pdf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reports.WithLabelValues("assessment", "png")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/v1/assessments/:id/report", "404")))
}

func Test_reportApi_studentReport(t *testing.T) {
	srv, app := setup(t)
	admin := app.Admin(t)
	teacher := app.Teacher(t, "Mr Teacher")
	other := app.Teacher(t, "Ms Other")
	amani := app.Student(t, "Amani")
	baraka := app.Student(t, "Baraka")
	class := app.Class(t, admin, teacher, amani, baraka)
	a := app.Assessment(t, teacher, class.ID, "Quiz")
	app.Complete(t, teacher, a.ID, amani, 55)
	app.Complete(t, teacher, a.ID, baraka, 70)

	path := "/v1/students/" + amani.ID + "/report"

	runHTTPTests(t, srv, []httpTest{
		{
			name: "Another student", path: path, token: getToken(t, srv, baraka), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Teacher of another class", path: path, token: getToken(t, srv, other), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Not a student", path: "/v1/students/" + teacher.ID + "/report", token: getToken(t, srv, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
	})

	for _, viewer := range []string{"self", "teacher"} {
		t.Run(viewer, func(t *testing.T) {
			token := getToken(t, srv, amani)
			if viewer == "teacher" {
				token = getToken(t, srv, teacher)
			}
			req, rec := newAuthRequest(http.MethodGet, path, token)
			var rep report.StudentReport
			decode(t, srv, req, rec, http.StatusOK, &rep)

			assert.Equal(t, "Amani", rep.StudentName)
			require.Len(t, rep.Entries, 1)
			assert.Equal(t, 2, rep.Entries[0].Position)
			assert.Equal(t, "2nd", rep.Entries[0].Ordinal)
			assert.Equal(t, 2, rep.Entries[0].ParticipantCount)
		})
	}

	t.Run("HTML", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?format=html", getToken(t, srv, amani))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, strings.Contains(rec.Body.String(), "Amani"))
	})
}
