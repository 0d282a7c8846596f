package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/user"
)

var errMissingFile = core.NewValidationError(
	errors.New("missing file"),
	core.FieldError{Field: "file", Error: "an XLSX file is required"},
)

type assessmentApi struct {
	svc      *assessment.Service
	users    *user.Service
	validate *validator.Validate
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := assessmentApi{
		svc:      deps.AssessmentSvc,
		users:    deps.UserSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/classes/:id/assessments", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, staffMiddleware())

	ag := g.Group("/assessments/:id", jwt)
	ag.GET("", api.retrieve)
	ag.GET("/attempts", api.queryAttempts, staffMiddleware())
	ag.POST("/attempts", api.recordAttempt, staffMiddleware())

	bg := g.Group("/banks", jwt, staffMiddleware())
	bg.GET("", api.queryBanks)
	bg.POST("", api.createBank)
	bg.GET("/:id", api.retrieveBank)
	bg.POST("/:id/questions", api.addQuestion)
	bg.DELETE("/:id/questions/:qid", api.deleteQuestion)
	bg.POST("/:id/import", api.importQuestions)
}

// Assessments

func (api *assessmentApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	as, err := api.svc.List(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing assessments")
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *assessmentApi) create(ctx echo.Context) error {
	var data assessment.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	a, err := api.svc.Create(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	a, err := api.svc.Get(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assessment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) queryAttempts(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	attempts, err := api.svc.ListAttempts(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing attempts")
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *assessmentApi) recordAttempt(ctx echo.Context) error {
	var data assessment.RecordAttempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordAttempt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	at, err := api.svc.RecordAttempt(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording attempt")
	}
	return ctx.JSON(http.StatusOK, at)
}

// Question banks

func (api *assessmentApi) queryBanks(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	banks, err := api.svc.ListBanks(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "listing question banks")
	}
	return ctx.JSON(http.StatusOK, banks)
}

func (api *assessmentApi) createBank(ctx echo.Context) error {
	var data assessment.NewQuestionBank
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestionBank")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	bank, err := api.svc.CreateBank(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating question bank")
	}
	return ctx.JSON(http.StatusCreated, bank)
}

func (api *assessmentApi) retrieveBank(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	bank, err := api.svc.GetBank(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting question bank")
	}
	return ctx.JSON(http.StatusOK, bank)
}

func (api *assessmentApi) addQuestion(ctx echo.Context) error {
	var data assessment.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	qs, err := api.svc.AddQuestions(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, qs[0])
}

func (api *assessmentApi) deleteQuestion(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.DeleteQuestion(ctx.Request().Context(), ctxUsr, ctx.Param("id"), ctx.Param("qid")); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// importQuestions adds the questions of the XLSX workbook uploaded as the "file" form field.
func (api *assessmentApi) importQuestions(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return errMissingFile
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	qs, err := api.svc.ImportQuestions(ctx.Request().Context(), ctxUsr, ctx.Param("id"), f, api.validate)
	if err != nil {
		return errors.Wrap(err, "importing questions")
	}
	return ctx.JSON(http.StatusCreated, qs)
}
