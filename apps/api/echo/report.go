package echoapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/report"
	"github.com/trezcool/matokeo/core/user"
)

// Report formats
const (
	formatJSON = "json"
	formatHTML = "html"
	formatPDF  = "pdf"
	formatXLSX = "xlsx"
	formatPNG  = "png"

	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type reportApi struct {
	svc     *report.Service
	users   *user.Service
	metrics *Metrics
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := reportApi{
		svc:     deps.ReportSvc,
		users:   deps.UserSvc,
		metrics: deps.Metrics,
	}

	ag := g.Group("/assessments/:id/report", jwt, staffMiddleware())
	ag.GET("", api.assessmentReport)
	ag.GET("/chart", api.assessmentChart)
	ag.POST("/email", api.emailAssessmentReport)

	sg := g.Group("/students/:id/report", jwt)
	sg.GET("", api.studentReport)
}

func formatParam(ctx echo.Context, allowed ...string) (string, error) {
	format := ctx.QueryParam("format")
	if format == "" {
		return formatJSON, nil
	}
	if !core.StringInSlice(format, allowed) {
		return "", core.NewValidationError(
			fmt.Errorf("unsupported format: %s", format),
			core.FieldError{Field: "format", Error: fmt.Sprintf("must be one of %v", allowed)},
		)
	}
	return format, nil
}

func (api *reportApi) rendered(kind, format string) {
	if api.metrics != nil {
		api.metrics.reportRendered(kind, format)
	}
}

// render writes the output of fn to the response. fn renders to a buffer first
// so that a rendering error still gets a proper error response.
func render(ctx echo.Context, contentType, filename string, fn func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	if filename != "" {
		ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	}
	return ctx.Blob(http.StatusOK, contentType, buf.Bytes())
}

func (api *reportApi) assessmentReport(ctx echo.Context) error {
	format, err := formatParam(ctx, formatJSON, formatHTML, formatPDF, formatXLSX)
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rep, err := api.svc.AssessmentReport(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building assessment report")
	}

	switch format {
	case formatHTML:
		err = render(ctx, echo.MIMETextHTMLCharsetUTF8, "", func(w io.Writer) error { return report.RenderHTML(w, rep) })
	case formatPDF:
		err = render(ctx, "application/pdf", rep.Filename()+".pdf", func(w io.Writer) error { return report.RenderPDF(w, rep) })
	case formatXLSX:
		err = render(ctx, mimeXLSX, rep.Filename()+".xlsx", func(w io.Writer) error { return report.RenderXLSX(w, rep) })
	default:
		err = ctx.JSON(http.StatusOK, rep)
	}
	if err != nil {
		return errors.Wrapf(err, "rendering %s assessment report", format)
	}
	api.rendered("assessment", format)
	return nil
}

func (api *reportApi) assessmentChart(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rep, err := api.svc.AssessmentReport(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building assessment report")
	}

	err = render(ctx, "image/png", "", func(w io.Writer) error {
		return report.RenderChart(w, rep.Distribution, rep.Assessment.Title)
	})
	if err != nil {
		return errors.Wrap(err, "rendering chart")
	}
	api.rendered("assessment", formatPNG)
	return nil
}

func (api *reportApi) emailAssessmentReport(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.EmailAssessmentReport(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "emailing assessment report")
	}
	api.rendered("assessment", "email")
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "The report will arrive in your inbox shortly."})
}

func (api *reportApi) studentReport(ctx echo.Context) error {
	format, err := formatParam(ctx, formatJSON, formatHTML)
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rep, err := api.svc.StudentReport(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building student report")
	}

	if format == formatHTML {
		err = render(ctx, echo.MIMETextHTMLCharsetUTF8, "", func(w io.Writer) error { return report.RenderStudentHTML(w, rep) })
	} else {
		err = ctx.JSON(http.StatusOK, rep)
	}
	if err != nil {
		return errors.Wrapf(err, "rendering %s student report", format)
	}
	api.rendered("student", format)
	return nil
}
